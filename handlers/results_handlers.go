package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Alegandi83/webdemocracy/auth"
	"github.com/Alegandi83/webdemocracy/db"
	"github.com/Alegandi83/webdemocracy/models"
	"github.com/Alegandi83/webdemocracy/survey"
)

// GetSurveyResults serves the aggregated results of a survey. The caller's
// identity is resolved so non-anonymous surveys can echo back their own
// previous response.
func GetSurveyResults(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	voter := auth.ResolveIdentity(w, r)
	bundle, err := survey.Results(db.DB, surveyID, &voter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// GetSurveyStats serves participation counters for a single survey.
func GetSurveyStats(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	stats, err := survey.GetStats(db.DB, surveyID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetVotesTimeline serves the cumulative participation curve of a survey,
// bucketed hourly for young surveys and daily for older ones.
func GetVotesTimeline(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	timeline, err := survey.Timeline(db.DB, surveyID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timeline)
}

// ExportSurveyData streams every response of a survey as CSV, one row per
// vote or open answer.
func ExportSurveyData(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	var s models.Survey
	if err := db.DB.Preload("Options").First(&s, surveyID).Error; err != nil {
		http.Error(w, "Survey not found", http.StatusNotFound)
		return
	}

	var votes []models.Vote
	if err := db.DB.Where("survey_id = ?", surveyID).Order("created_at ASC").Find(&votes).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var openResponses []models.OpenResponse
	if err := db.DB.Where("survey_id = ?", surveyID).Order("created_at ASC").Find(&openResponses).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	optionText := make(map[uint]string, len(s.Options))
	for _, o := range s.Options {
		optionText[o.ID] = o.OptionText
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment;filename=survey_%d_data.csv", s.ID))

	csvWriter := csv.NewWriter(w)
	csvWriter.Write([]string{"ResponseID", "Kind", "Option", "NumericValue", "DateValue", "Text", "Session", "Timestamp"})

	for _, v := range votes {
		row := []string{strconv.Itoa(int(v.ID)), "vote", "", "", "", "", v.VoterSession, v.CreatedAt.Format(time.RFC3339)}
		if v.OptionID != nil {
			row[2] = optionText[*v.OptionID]
		}
		if v.NumericValue != nil {
			row[3] = strconv.FormatFloat(*v.NumericValue, 'f', -1, 64)
		}
		if v.DateValue != nil {
			row[4] = v.DateValue.Format("2006-01-02")
		}
		csvWriter.Write(row)
	}
	for _, t := range openResponses {
		row := []string{strconv.Itoa(int(t.ID)), "open_response", "", "", "", t.ResponseText, t.VoterSession, t.CreatedAt.Format(time.RFC3339)}
		if t.OptionID != nil {
			row[2] = optionText[*t.OptionID]
		}
		csvWriter.Write(row)
	}

	csvWriter.Flush()
}
