package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Alegandi83/webdemocracy/survey"
	"github.com/gorilla/mux"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeEngineError maps the survey package's error taxonomy onto HTTP
// status codes: bad request, not found, conflict. Anything else is a 500.
func writeEngineError(w http.ResponseWriter, err error) {
	var validationErr *survey.ValidationError
	var notFoundErr *survey.NotFoundError
	var stateErr *survey.StateError
	var duplicateErr *survey.DuplicateResponseError

	switch {
	case errors.As(err, &validationErr):
		http.Error(w, validationErr.Reason, http.StatusBadRequest)
	case errors.As(err, &notFoundErr):
		http.Error(w, notFoundErr.Error(), http.StatusNotFound)
	case errors.As(err, &stateErr):
		http.Error(w, stateErr.Reason, http.StatusConflict)
	case errors.As(err, &duplicateErr):
		http.Error(w, "You have already responded to this survey", http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func surveyIDFromPath(r *http.Request) (uint, error) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
