package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Alegandi83/webdemocracy/auth"
	"github.com/Alegandi83/webdemocracy/db"
	"github.com/Alegandi83/webdemocracy/models"
	"github.com/Alegandi83/webdemocracy/survey"
	"gorm.io/gorm"
)

var questionTypes = map[string]bool{
	models.SingleChoice:   true,
	models.MultipleChoice: true,
	models.OpenText:       true,
	models.Scale:          true,
	models.Rating:         true,
	models.Date:           true,
}

var closureTypes = map[string]bool{
	models.ClosurePermanent: true,
	models.ClosureScheduled: true,
	models.ClosureManual:    true,
}

type createSurveyRequest struct {
	Title                  string     `json:"title"`
	Description            string     `json:"description"`
	QuestionType           string     `json:"question_type"`
	MinValue               *int       `json:"min_value"`
	MaxValue               *int       `json:"max_value"`
	ScaleMinLabel          string     `json:"scale_min_label"`
	ScaleMaxLabel          string     `json:"scale_max_label"`
	RatingIcon             string     `json:"rating_icon"`
	ClosureType            string     `json:"closure_type"`
	ExpiresAt              *time.Time `json:"expires_at"`
	AllowMultipleResponses bool       `json:"allow_multiple_responses"`
	AllowCustomOptions     bool       `json:"allow_custom_options"`
	RequireComment         bool       `json:"require_comment"`
	IsAnonymous            bool       `json:"is_anonymous"`
	Options                []string   `json:"options"`
	TagIDs                 []uint     `json:"tag_ids"`
}

// CreateSurvey creates a survey with its inline options and tag links in
// one transaction. Pollster or admin only.
func CreateSurvey(w http.ResponseWriter, r *http.Request) {
	var req createSurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}
	if req.QuestionType == "" {
		req.QuestionType = models.SingleChoice
	}
	if !questionTypes[req.QuestionType] {
		http.Error(w, "Unknown question type", http.StatusBadRequest)
		return
	}
	if req.ClosureType == "" {
		req.ClosureType = models.ClosurePermanent
	}
	if !closureTypes[req.ClosureType] {
		http.Error(w, "Unknown closure type", http.StatusBadRequest)
		return
	}
	if req.ClosureType == models.ClosureScheduled && req.ExpiresAt == nil {
		http.Error(w, "Scheduled closure requires expires_at", http.StatusBadRequest)
		return
	}

	userID := r.Context().Value("userID").(uint)
	s := models.Survey{
		UserID:                 userID,
		Title:                  req.Title,
		Description:            req.Description,
		QuestionType:           req.QuestionType,
		MinValue:               1,
		MaxValue:               5,
		ScaleMinLabel:          req.ScaleMinLabel,
		ScaleMaxLabel:          req.ScaleMaxLabel,
		RatingIcon:             "star",
		ClosureType:            req.ClosureType,
		ExpiresAt:              req.ExpiresAt,
		IsActive:               true,
		AllowMultipleResponses: req.AllowMultipleResponses,
		AllowCustomOptions:     req.AllowCustomOptions,
		RequireComment:         req.RequireComment,
		IsAnonymous:            req.IsAnonymous,
	}
	if req.MinValue != nil {
		s.MinValue = *req.MinValue
	}
	if req.MaxValue != nil {
		s.MaxValue = *req.MaxValue
	}
	if req.RatingIcon != "" {
		s.RatingIcon = req.RatingIcon
	}
	if s.MinValue >= s.MaxValue && (req.QuestionType == models.Scale || req.QuestionType == models.Rating) {
		http.Error(w, "min_value must be below max_value", http.StatusBadRequest)
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&s).Error; err != nil {
			return err
		}
		for i, text := range req.Options {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			option := models.SurveyOption{SurveyID: s.ID, OptionText: text, OptionOrder: i}
			if err := tx.Create(&option).Error; err != nil {
				return err
			}
		}
		if len(req.TagIDs) > 0 {
			var tags []models.Tag
			if err := tx.Where("id IN ?", req.TagIDs).Find(&tags).Error; err != nil {
				return err
			}
			if err := tx.Model(&s).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := db.DB.Preload("Options", orderOptions).Preload("Tags").First(&s, s.ID).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

type surveyListItem struct {
	models.Survey
	TotalVotes    int64    `json:"total_votes"`
	AverageRating *float64 `json:"average_rating,omitempty"`
}

// ListSurveys returns all surveys, newest first, each with its vote count
// and average like rating. Filters: question_type, tag_id, is_active,
// include_expired.
func ListSurveys(w http.ResponseWriter, r *http.Request) {
	q := db.DB.Model(&models.Survey{}).Preload("Options", orderOptions).Preload("Tags")

	if qt := r.URL.Query().Get("question_type"); qt != "" {
		q = q.Where("question_type = ?", qt)
	}
	if active := r.URL.Query().Get("is_active"); active != "" {
		v, err := strconv.ParseBool(active)
		if err == nil {
			q = q.Where("is_active = ?", v)
		}
	}
	if tagID := r.URL.Query().Get("tag_id"); tagID != "" {
		q = q.Joins("JOIN survey_tags ON survey_tags.survey_id = surveys.id").
			Where("survey_tags.tag_id = ?", tagID)
	}

	var surveys []models.Survey
	if err := q.Order("created_at DESC").Find(&surveys).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	includeExpired := r.URL.Query().Get("include_expired") == "true"
	items := make([]surveyListItem, 0, len(surveys))
	for i := range surveys {
		s := &surveys[i]
		if err := survey.RefreshActive(db.DB, s); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !includeExpired && expired(s) {
			continue
		}

		item := surveyListItem{Survey: *s}
		var voteCount, textCount int64
		db.DB.Model(&models.Vote{}).Where("survey_id = ?", s.ID).Count(&voteCount)
		db.DB.Model(&models.OpenResponse{}).Where("survey_id = ?", s.ID).Count(&textCount)
		item.TotalVotes = voteCount + textCount

		var avg *float64
		db.DB.Model(&models.SurveyLike{}).Where("survey_id = ? AND rating > 0", s.ID).
			Select("AVG(rating)").Scan(&avg)
		item.AverageRating = avg

		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

// GetSurvey returns one survey with options and tags. Reading a survey past
// its deadline flips it inactive before it is served.
func GetSurvey(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	var s models.Survey
	if err := db.DB.Preload("Options", orderOptions).Preload("Tags").First(&s, surveyID).Error; err != nil {
		http.Error(w, "Survey not found", http.StatusNotFound)
		return
	}
	if err := survey.RefreshActive(db.DB, &s); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type updateSurveyRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	ClosureType *string    `json:"closure_type"`
	ExpiresAt   *time.Time `json:"expires_at"`
	TagIDs      *[]uint    `json:"tag_ids"`
}

// UpdateSurvey applies an allow-listed partial update. Question type,
// options and the response-policy flags are frozen once a survey exists;
// activation is handled by ToggleSurveyActive.
func UpdateSurvey(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	var req updateSurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var s models.Survey
	if err := db.DB.First(&s, surveyID).Error; err != nil {
		http.Error(w, "Survey not found", http.StatusNotFound)
		return
	}
	if !canManage(r, &s) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			http.Error(w, "Title cannot be empty", http.StatusBadRequest)
			return
		}
		s.Title = *req.Title
	}
	if req.Description != nil {
		s.Description = *req.Description
	}
	if req.ClosureType != nil {
		if !closureTypes[*req.ClosureType] {
			http.Error(w, "Unknown closure type", http.StatusBadRequest)
			return
		}
		s.ClosureType = *req.ClosureType
	}
	if req.ExpiresAt != nil {
		s.ExpiresAt = req.ExpiresAt
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&s).Error; err != nil {
			return err
		}
		if req.TagIDs != nil {
			var tags []models.Tag
			if err := tx.Where("id IN ?", *req.TagIDs).Find(&tags).Error; err != nil {
				return err
			}
			if err := tx.Model(&s).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := db.DB.Preload("Options", orderOptions).Preload("Tags").First(&s, s.ID).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ToggleSurveyActive opens or closes a survey. Creator or admin only;
// reopening clears a stale deadline so the lazy expiry check does not close
// it again on the next read.
func ToggleSurveyActive(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := auth.CurrentUser(r)
	if err != nil || user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	s, err := survey.SetActive(db.DB, surveyID, user, req.IsActive)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// DeleteSurvey removes a survey and all of its responses. Creator or admin
// only.
func DeleteSurvey(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	var s models.Survey
	if err := db.DB.First(&s, surveyID).Error; err != nil {
		http.Error(w, "Survey not found", http.StatusNotFound)
		return
	}
	if !canManage(r, &s) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := deleteSurveyCascade(db.DB, s.ID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Survey deleted"})
}

// DeleteAllSurveys wipes every survey and its responses. Admin only.
func DeleteAllSurveys(w http.ResponseWriter, r *http.Request) {
	var surveys []models.Survey
	if err := db.DB.Find(&surveys).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	for _, s := range surveys {
		if err := deleteSurveyCascade(db.DB, s.ID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "All surveys deleted",
		"deleted": len(surveys),
	})
}

func deleteSurveyCascade(database *gorm.DB, surveyID uint) error {
	return database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("survey_id = ?", surveyID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("survey_id = ?", surveyID).Delete(&models.OpenResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("survey_id = ?", surveyID).Delete(&models.SurveyLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("survey_id = ?", surveyID).Delete(&models.SurveyOption{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM survey_tags WHERE survey_id = ?", surveyID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Survey{}, surveyID).Error
	})
}

// canManage reports whether the request's user is the survey creator or an
// admin.
func canManage(r *http.Request, s *models.Survey) bool {
	user, err := auth.CurrentUser(r)
	if err != nil || user == nil {
		return false
	}
	return user.IsAdmin() || s.UserID == user.ID
}

func orderOptions(tx *gorm.DB) *gorm.DB {
	return tx.Order("option_order ASC, id ASC")
}

func expired(s *models.Survey) bool {
	return s.ExpiresAt != nil && time.Now().After(*s.ExpiresAt) && !s.IsActive
}
