package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Alegandi83/webdemocracy/auth"
	"github.com/Alegandi83/webdemocracy/db"
	"github.com/Alegandi83/webdemocracy/survey"
)

type likeRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

// LikeSurvey records or updates the caller's appreciation of a survey.
// A second call from the same voter overwrites the previous rating.
func LikeSurvey(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	var req likeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	voter := auth.ResolveIdentity(w, r)
	like, err := survey.Rate(db.DB, surveyID, voter, req.Rating, req.Comment)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, like)
}

// GetUserLike returns the caller's own like for a survey, or null.
func GetUserLike(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	voter := auth.ResolveIdentity(w, r)
	like, err := survey.GetLike(db.DB, surveyID, voter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, like)
}

// GetLikeStats returns the aggregated like ratings of a survey.
func GetLikeStats(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	stats, err := survey.GetLikeStats(db.DB, surveyID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
