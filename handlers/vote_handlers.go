package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Alegandi83/webdemocracy/auth"
	"github.com/Alegandi83/webdemocracy/db"
	"github.com/Alegandi83/webdemocracy/survey"
)

// SubmitVote records a response to a survey. The voter does not need an
// account: identity is resolved from the session cookie and client IP, and
// the cookie is minted here on first contact.
func SubmitVote(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	var req survey.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	voter := auth.ResolveIdentity(w, r)
	receipt, err := survey.Submit(db.DB, surveyID, voter, &req)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status":        "recorded",
		"survey_id":     receipt.SurveyID,
		"session_token": receipt.SessionToken,
	})
}
