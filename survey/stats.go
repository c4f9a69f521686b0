package survey

import (
	"errors"
	"time"

	"github.com/Alegandi83/webdemocracy/models"
	"gorm.io/gorm"
)

// Stats is the moderator-facing overview of one survey.
type Stats struct {
	SurveyID          uint         `json:"survey_id"`
	SurveyTitle       string       `json:"survey_title"`
	SurveyDescription string       `json:"survey_description"`
	QuestionType      string       `json:"question_type"`
	CreatedAt         time.Time    `json:"created_at"`
	ExpiresAt         *time.Time   `json:"expires_at"`
	IsActive          bool         `json:"is_active"`
	TotalParticipants int          `json:"total_participants"`
	TotalVotes        int          `json:"total_votes"`
	LastVoteAt        *time.Time   `json:"last_vote_at"`
	OptionsCount      int          `json:"options_count"`
	LikeStats         *LikeStats   `json:"like_stats,omitempty"`
	Tags              []models.Tag `json:"tags"`
}

// GetStats computes participation counters for one survey.
func GetStats(db *gorm.DB, surveyID uint) (*Stats, error) {
	var s models.Survey
	if err := db.Preload("Tags").First(&s, surveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "survey", ID: surveyID}
		}
		return nil, err
	}
	if err := RefreshActive(db, &s); err != nil {
		return nil, err
	}

	var votes []models.Vote
	if err := db.Where("survey_id = ?", surveyID).Find(&votes).Error; err != nil {
		return nil, err
	}
	var texts []models.OpenResponse
	if err := db.Where("survey_id = ?", surveyID).Find(&texts).Error; err != nil {
		return nil, err
	}
	var likes []models.SurveyLike
	if err := db.Where("survey_id = ?", surveyID).Find(&likes).Error; err != nil {
		return nil, err
	}
	var optionsCount int64
	if err := db.Model(&models.SurveyOption{}).
		Where("survey_id = ?", surveyID).Count(&optionsCount).Error; err != nil {
		return nil, err
	}

	stats := &Stats{
		SurveyID:          s.ID,
		SurveyTitle:       s.Title,
		SurveyDescription: s.Description,
		QuestionType:      s.QuestionType,
		CreatedAt:         s.CreatedAt,
		ExpiresAt:         s.ExpiresAt,
		IsActive:          s.IsActive,
		TotalParticipants: distinctParticipants(votes, texts),
		TotalVotes:        len(votes) + len(texts),
		OptionsCount:      int(optionsCount),
		LikeStats:         likeStats(likes),
		Tags:              s.Tags,
	}
	for _, v := range votes {
		at := v.CreatedAt
		if stats.LastVoteAt == nil || at.After(*stats.LastVoteAt) {
			t := at
			stats.LastVoteAt = &t
		}
	}
	for _, t := range texts {
		at := t.CreatedAt
		if stats.LastVoteAt == nil || at.After(*stats.LastVoteAt) {
			tt := at
			stats.LastVoteAt = &tt
		}
	}
	return stats, nil
}
