package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Alegandi83/webdemocracy/auth"
	"github.com/Alegandi83/webdemocracy/db"
	"github.com/Alegandi83/webdemocracy/models"
	"github.com/Alegandi83/webdemocracy/survey"
	"github.com/glebarez/sqlite"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.MigrateSchema(testDB))
	return testDB
}

func newTestRouter() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/surveys", CreateSurvey).Methods("POST")
	router.HandleFunc("/surveys", ListSurveys).Methods("GET")
	router.HandleFunc("/surveys/{id}", GetSurvey).Methods("GET")
	router.HandleFunc("/surveys/{id}", UpdateSurvey).Methods("PATCH")
	router.HandleFunc("/surveys/{id}/vote", SubmitVote).Methods("POST")
	router.HandleFunc("/surveys/{id}/results", GetSurveyResults).Methods("GET")
	router.HandleFunc("/surveys/{id}/stats", GetSurveyStats).Methods("GET")
	router.HandleFunc("/surveys/{id}/votes-timeline", GetVotesTimeline).Methods("GET")
	router.HandleFunc("/surveys/{id}/like", LikeSurvey).Methods("POST")
	router.HandleFunc("/surveys/{id}/like", GetUserLike).Methods("GET")
	return router
}

func TestSurveyHandlers(t *testing.T) {
	db.DB = setupTestDB(t)
	auth.Store = sessions.NewCookieStore([]byte("test-session-key"))

	router := newTestRouter()

	pollster := models.User{Email: "pollster@example.com", Name: "Pollster", Role: models.RolePollster}
	db.DB.Create(&pollster)

	var surveyID uint

	t.Run("CreateSurvey", func(t *testing.T) {
		payload := map[string]interface{}{
			"title":         "Favorite color",
			"question_type": models.SingleChoice,
			"options":       []string{"Red", "Blue"},
		}
		body, _ := json.Marshal(payload)
		req, _ := http.NewRequest("POST", "/surveys", bytes.NewBuffer(body))
		req = req.WithContext(context.WithValue(req.Context(), "userID", pollster.ID))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)

		var created models.Survey
		json.Unmarshal(rr.Body.Bytes(), &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "Favorite color", created.Title)
		assert.Len(t, created.Options, 2)
		assert.True(t, created.IsActive)
		surveyID = created.ID
	})

	t.Run("SubmitVote", func(t *testing.T) {
		var s models.Survey
		require.NoError(t, db.DB.Preload("Options").First(&s, surveyID).Error)

		payload := map[string]interface{}{"option_ids": []uint{s.Options[0].ID}}
		body, _ := json.Marshal(payload)
		req, _ := http.NewRequest("POST", fmt.Sprintf("/surveys/%d/vote", surveyID), bytes.NewBuffer(body))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)

		var resp map[string]interface{}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		assert.Equal(t, "recorded", resp["status"])
		assert.NotEmpty(t, resp["session_token"])
	})

	t.Run("DuplicateVoteRejected", func(t *testing.T) {
		var s models.Survey
		require.NoError(t, db.DB.Preload("Options").First(&s, surveyID).Error)

		// Same client address as the previous vote, fresh cookies.
		payload := map[string]interface{}{"option_ids": []uint{s.Options[1].ID}}
		body, _ := json.Marshal(payload)
		req, _ := http.NewRequest("POST", fmt.Sprintf("/surveys/%d/vote", surveyID), bytes.NewBuffer(body))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("SecondVoterFromOtherAddress", func(t *testing.T) {
		var s models.Survey
		require.NoError(t, db.DB.Preload("Options").First(&s, surveyID).Error)

		payload := map[string]interface{}{"option_ids": []uint{s.Options[1].ID}}
		body, _ := json.Marshal(payload)
		req, _ := http.NewRequest("POST", fmt.Sprintf("/surveys/%d/vote", surveyID), bytes.NewBuffer(body))
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("GetSurveyResults", func(t *testing.T) {
		req, _ := http.NewRequest("GET", fmt.Sprintf("/surveys/%d/results", surveyID), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var bundle survey.ResultsBundle
		json.Unmarshal(rr.Body.Bytes(), &bundle)
		assert.Equal(t, surveyID, bundle.SurveyID)
		assert.Equal(t, 2, bundle.TotalVotes)
		require.Len(t, bundle.Results, 2)
		assert.Equal(t, 50.0, *bundle.Results[0].Percentage)
		assert.Equal(t, 50.0, *bundle.Results[1].Percentage)
	})

	t.Run("InvalidVotePayload", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{})
		req, _ := http.NewRequest("POST", fmt.Sprintf("/surveys/%d/vote", surveyID), bytes.NewBuffer(body))
		req.Header.Set("X-Forwarded-For", "203.0.113.8")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("VoteOnMissingSurvey", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{"option_ids": []uint{1}})
		req, _ := http.NewRequest("POST", "/surveys/99999/vote", bytes.NewBuffer(body))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("LikeSurvey", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{"rating": 5, "comment": "great"})
		req, _ := http.NewRequest("POST", fmt.Sprintf("/surveys/%d/like", surveyID), bytes.NewBuffer(body))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var like models.SurveyLike
		json.Unmarshal(rr.Body.Bytes(), &like)
		assert.Equal(t, 5, like.Rating)
		assert.Equal(t, "great", like.Comment)
	})

	t.Run("GetSurveyStats", func(t *testing.T) {
		req, _ := http.NewRequest("GET", fmt.Sprintf("/surveys/%d/stats", surveyID), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var stats survey.Stats
		json.Unmarshal(rr.Body.Bytes(), &stats)
		assert.Equal(t, 2, stats.TotalVotes)
		assert.Equal(t, 2, stats.TotalParticipants)
	})

	t.Run("GetVotesTimeline", func(t *testing.T) {
		req, _ := http.NewRequest("GET", fmt.Sprintf("/surveys/%d/votes-timeline", surveyID), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var timeline survey.TimelineResult
		json.Unmarshal(rr.Body.Bytes(), &timeline)
		assert.Equal(t, "hourly", timeline.Granularity)
		require.NotEmpty(t, timeline.Points)
		assert.Equal(t, 0, timeline.Points[0].CumulativeCount)
		assert.Equal(t, 2, timeline.Points[len(timeline.Points)-1].CumulativeCount)
	})

	t.Run("ListSurveys", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/surveys", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var items []surveyListItem
		json.Unmarshal(rr.Body.Bytes(), &items)
		require.Len(t, items, 1)
		assert.EqualValues(t, 2, items[0].TotalVotes)
	})

	t.Run("UpdateSurveyAllowList", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{"title": "Renamed"})
		req, _ := http.NewRequest("PATCH", fmt.Sprintf("/surveys/%d", surveyID), bytes.NewBuffer(body))
		req = req.WithContext(context.WithValue(req.Context(), "userID", pollster.ID))
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var updated models.Survey
		json.Unmarshal(rr.Body.Bytes(), &updated)
		assert.Equal(t, "Renamed", updated.Title)
	})
}
