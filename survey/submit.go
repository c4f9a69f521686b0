package survey

import (
	"errors"

	"github.com/Alegandi83/webdemocracy/models"
	"gorm.io/gorm"
)

// Receipt reports what one submission recorded.
type Receipt struct {
	SurveyID     uint   `json:"survey_id"`
	SessionToken string `json:"session_token"`
	Recorded     int    `json:"recorded"`
}

// Submit validates and persists one response submission. The whole write
// set — custom options, response rows and the optional like — commits in a
// single transaction; a failure anywhere leaves nothing behind.
func Submit(db *gorm.DB, surveyID uint, voter Identity, req *SubmitRequest) (*Receipt, error) {
	var s models.Survey
	if err := db.Preload("Options").First(&s, surveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "survey", ID: surveyID}
		}
		return nil, err
	}

	if err := EnsureOpen(db, &s); err != nil {
		return nil, err
	}

	plan, err := buildPlan(&s, req)
	if err != nil {
		return nil, err
	}

	if req.LikeRating != nil {
		if *req.LikeRating < 1 || *req.LikeRating > 5 {
			return nil, invalid("like rating must be between 1 and 5")
		}
	}

	if !s.AllowMultipleResponses {
		responded, err := hasResponded(db, s.ID, voter)
		if err != nil {
			return nil, err
		}
		if responded {
			return nil, &DuplicateResponseError{SurveyID: s.ID}
		}
	}

	userID := voter.storedUserID(s.IsAnonymous)

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, unit := range plan {
			optionID := unit.optionID
			if optionID == nil && unit.customText != "" {
				opt, err := findOrCreateOption(tx, &s, unit.customText, userID)
				if err != nil {
					return err
				}
				optionID = &opt.ID
			}

			switch unit.kind {
			case unitText:
				row := models.OpenResponse{
					SurveyID:     s.ID,
					OptionID:     optionID,
					ResponseText: unit.text,
					VoterIP:      voter.IP,
					VoterSession: voter.Session,
					UserID:       userID,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			case unitNumeric:
				v := unit.value
				row := models.Vote{
					SurveyID:     s.ID,
					OptionID:     optionID,
					NumericValue: &v,
					VoterIP:      voter.IP,
					VoterSession: voter.Session,
					UserID:       userID,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			default: // unitChoice, unitDateRef
				row := models.Vote{
					SurveyID:     s.ID,
					OptionID:     optionID,
					DateValue:    unit.date,
					VoterIP:      voter.IP,
					VoterSession: voter.Session,
					UserID:       userID,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
		}

		if req.LikeRating != nil || req.SurveyComment != nil {
			if _, err := upsertLike(tx, &s, voter, req.LikeRating, req.SurveyComment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Receipt{SurveyID: s.ID, SessionToken: voter.Session, Recorded: len(plan)}, nil
}

// hasResponded checks the inclusive-OR identity match over both physical
// response tables.
func hasResponded(db *gorm.DB, surveyID uint, voter Identity) (bool, error) {
	clause, args := voter.voterClause()

	var count int64
	if err := db.Model(&models.Vote{}).
		Where("survey_id = ?", surveyID).Where(clause, args...).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := db.Model(&models.OpenResponse{}).
		Where("survey_id = ?", surveyID).Where(clause, args...).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// findOrCreateOption resolves a custom option inside the submission
// transaction, so the option has a real id before any row references it
// and rolls back with the rest on failure. Options with identical text are
// reused instead of duplicated (date proposals in particular converge on
// one option per day).
func findOrCreateOption(tx *gorm.DB, s *models.Survey, text string, userID *uint) (*models.SurveyOption, error) {
	var opt models.SurveyOption
	err := tx.Where("survey_id = ? AND option_text = ?", s.ID, text).First(&opt).Error
	if err == nil {
		return &opt, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	opt = models.SurveyOption{
		SurveyID:    s.ID,
		OptionText:  text,
		OptionOrder: models.CustomOptionOrder,
		UserID:      userID,
	}
	if err := tx.Create(&opt).Error; err != nil {
		return nil, err
	}
	s.Options = append(s.Options, opt)
	return &opt, nil
}
