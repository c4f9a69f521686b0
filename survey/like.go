package survey

import (
	"errors"
	"strings"

	"github.com/Alegandi83/webdemocracy/models"
	"gorm.io/gorm"
)

// Rate records or updates the voter's appreciation of a survey. Unlike
// responses, likes always allow update-in-place: a second call overwrites
// the rating and comment on the existing row.
func Rate(db *gorm.DB, surveyID uint, voter Identity, rating *int, comment *string) (*models.SurveyLike, error) {
	var s models.Survey
	if err := db.First(&s, surveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "survey", ID: surveyID}
		}
		return nil, err
	}

	if rating == nil && (comment == nil || strings.TrimSpace(*comment) == "") {
		return nil, invalid("a rating or a comment is required")
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, invalid("rating must be between 1 and 5")
	}

	var like *models.SurveyLike
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		like, err = upsertLike(tx, &s, voter, rating, comment)
		return err
	})
	if err != nil {
		return nil, err
	}
	return like, nil
}

// GetLike returns the voter's existing like for a survey, or nil.
func GetLike(db *gorm.DB, surveyID uint, voter Identity) (*models.SurveyLike, error) {
	var s models.Survey
	if err := db.First(&s, surveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "survey", ID: surveyID}
		}
		return nil, err
	}

	clause, args := voter.likerClause()
	var like models.SurveyLike
	err := db.Where("survey_id = ?", surveyID).Where(clause, args...).First(&like).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &like, nil
}

// GetLikeStats aggregates the like ratings of a single survey.
func GetLikeStats(db *gorm.DB, surveyID uint) (*LikeStats, error) {
	var s models.Survey
	if err := db.First(&s, surveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "survey", ID: surveyID}
		}
		return nil, err
	}

	var likes []models.SurveyLike
	if err := db.Where("survey_id = ?", surveyID).Find(&likes).Error; err != nil {
		return nil, err
	}
	stats := likeStats(likes)
	if stats == nil {
		stats = &LikeStats{RatingDistribution: emptyRatingDistribution()}
	}
	return stats, nil
}

func emptyRatingDistribution() []ValueCount {
	dist := make([]ValueCount, 5)
	for i := range dist {
		dist[i] = ValueCount{Value: float64(i + 1)}
	}
	return dist
}

func upsertLike(tx *gorm.DB, s *models.Survey, voter Identity, rating *int, comment *string) (*models.SurveyLike, error) {
	clause, args := voter.likerClause()

	var like models.SurveyLike
	err := tx.Where("survey_id = ?", s.ID).Where(clause, args...).First(&like).Error
	if err == nil {
		if rating != nil {
			like.Rating = *rating
		}
		if comment != nil {
			like.Comment = *comment
		}
		if err := tx.Save(&like).Error; err != nil {
			return nil, err
		}
		return &like, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Rating 0 marks a comment supplied without a rating.
	ratingValue := 0
	if rating != nil {
		ratingValue = *rating
	}
	like = models.SurveyLike{
		SurveyID:    s.ID,
		Rating:      ratingValue,
		UserIP:      voter.IP,
		UserSession: voter.Session,
		UserID:      voter.storedUserID(s.IsAnonymous),
	}
	if comment != nil {
		like.Comment = *comment
	}
	if err := tx.Create(&like).Error; err != nil {
		return nil, err
	}
	return &like, nil
}
