package survey

import (
	"time"

	"github.com/Alegandi83/webdemocracy/models"
	"gorm.io/gorm"
)

// RefreshActive closes the survey the first time any read or write touches
// it after expires_at has passed. The flip is committed immediately, on its
// own, so a later rollback of the caller's transaction cannot resurrect an
// expired survey.
func RefreshActive(db *gorm.DB, s *models.Survey) error {
	if !s.IsActive || s.ExpiresAt == nil || s.ClosureType == models.ClosurePermanent {
		return nil
	}
	if time.Now().Before(*s.ExpiresAt) {
		return nil
	}
	if err := db.Model(&models.Survey{}).Where("id = ?", s.ID).
		UpdateColumn("is_active", false).Error; err != nil {
		return err
	}
	s.IsActive = false
	return nil
}

// EnsureOpen guards the write path: it refreshes the lazy expiry state and
// rejects with a StateError when the survey no longer accepts responses.
func EnsureOpen(db *gorm.DB, s *models.Survey) error {
	if err := RefreshActive(db, s); err != nil {
		return err
	}
	if !s.IsActive {
		if s.ExpiresAt != nil && time.Now().After(*s.ExpiresAt) {
			return &StateError{Reason: "survey has expired"}
		}
		return &StateError{Reason: "survey is no longer active"}
	}
	return nil
}

// SetActive toggles a survey manually. Only the creator or an admin may do
// so; a closed survey keeps serving results either way.
func SetActive(db *gorm.DB, surveyID uint, actor *models.User, active bool) (*models.Survey, error) {
	var s models.Survey
	if err := db.First(&s, surveyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "survey", ID: surveyID}
		}
		return nil, err
	}
	if actor == nil || (actor.ID != s.UserID && !actor.IsAdmin()) {
		return nil, &StateError{Reason: "only the survey creator or an admin can toggle a survey"}
	}

	updates := map[string]interface{}{"is_active": active}
	// Reopening past the deadline clears it, otherwise the lazy expiry
	// check would close the survey again on the next read.
	if active && s.ExpiresAt != nil && time.Now().After(*s.ExpiresAt) {
		updates["expires_at"] = nil
		s.ExpiresAt = nil
	}
	if err := db.Model(&s).UpdateColumns(updates).Error; err != nil {
		return nil, err
	}
	s.IsActive = active
	return &s, nil
}
