package survey

import (
	"strings"
	"time"

	"github.com/Alegandi83/webdemocracy/models"
)

// OptionVote carries one numeric value for one option (scale/rating
// surveys with sub-items).
type OptionVote struct {
	OptionID     uint     `json:"option_id"`
	NumericValue *float64 `json:"numeric_value"`
}

// OptionResponse carries one free-text answer for one option (open_text
// surveys with sub-items).
type OptionResponse struct {
	OptionID     uint   `json:"option_id"`
	ResponseText string `json:"response_text"`
}

// SubmitRequest is the allow-listed submission payload. Which fields are
// required depends on the survey's question type; everything else is
// ignored by the validator for that type.
type SubmitRequest struct {
	OptionIDs        []uint           `json:"option_ids"`
	CustomOptionText string           `json:"custom_option_text"`
	NumericValue     *float64         `json:"numeric_value"`
	DateValue        string           `json:"date_value"` // YYYY-MM-DD
	Comment          string           `json:"comment"`
	OptionVotes      []OptionVote     `json:"option_votes"`
	OptionResponses  []OptionResponse `json:"option_responses"`
	LikeRating       *int             `json:"like_rating"`
	SurveyComment    *string          `json:"survey_comment"`
}

type unitKind int

const (
	unitChoice unitKind = iota
	unitNumeric
	unitText
	unitDateRef
)

// responseUnit is one validated storage unit. The writer persists one row
// per unit; units with a nil optionID first create the custom option named
// by customText inside the same transaction.
type responseUnit struct {
	kind       unitKind
	optionID   *uint
	customText string
	value      float64
	text       string
	date       *time.Time
}

const dateLayout = "2006-01-02"

// buildPlan validates req against the survey's question-type contract and
// returns the list of response units to persist. The survey must be loaded
// with its options. All rejections are *ValidationError.
func buildPlan(s *models.Survey, req *SubmitRequest) ([]responseUnit, error) {
	switch s.QuestionType {
	case models.SingleChoice:
		return planSingleChoice(s, req)
	case models.MultipleChoice:
		return planMultipleChoice(s, req)
	case models.OpenText:
		return planOpenText(s, req)
	case models.Scale, models.Rating:
		return planNumeric(s, req)
	case models.Date:
		return planDate(s, req)
	default:
		return nil, invalid("unknown question type %q", s.QuestionType)
	}
}

func planSingleChoice(s *models.Survey, req *SubmitRequest) ([]responseUnit, error) {
	custom := strings.TrimSpace(req.CustomOptionText)
	if custom != "" {
		if !s.AllowCustomOptions {
			return nil, invalid("custom options are not allowed for this survey")
		}
		if len(req.OptionIDs) > 0 {
			return nil, invalid("select exactly one option or provide a new one, not both")
		}
		return []responseUnit{{kind: unitChoice, customText: custom}}, nil
	}
	if len(req.OptionIDs) != 1 {
		return nil, invalid("select exactly one option or provide a new one")
	}
	id := req.OptionIDs[0]
	if !ownsOption(s, id) {
		return nil, invalid("option %d does not belong to this survey", id)
	}
	return []responseUnit{{kind: unitChoice, optionID: &id}}, nil
}

func planMultipleChoice(s *models.Survey, req *SubmitRequest) ([]responseUnit, error) {
	var units []responseUnit
	if custom := strings.TrimSpace(req.CustomOptionText); custom != "" {
		if !s.AllowCustomOptions {
			return nil, invalid("custom options are not allowed for this survey")
		}
		units = append(units, responseUnit{kind: unitChoice, customText: custom})
	}
	seen := make(map[uint]bool)
	for _, id := range req.OptionIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if !ownsOption(s, id) {
			return nil, invalid("option %d does not belong to this survey", id)
		}
		id := id
		units = append(units, responseUnit{kind: unitChoice, optionID: &id})
	}
	if len(units) == 0 {
		return nil, invalid("select at least one option")
	}
	return units, nil
}

func planOpenText(s *models.Survey, req *SubmitRequest) ([]responseUnit, error) {
	if !s.HasOptions() {
		text := strings.TrimSpace(req.Comment)
		if text == "" {
			return nil, invalid("a response text is required")
		}
		return []responseUnit{{kind: unitText, text: text}}, nil
	}

	var units []responseUnit
	for _, or := range req.OptionResponses {
		if !ownsOption(s, or.OptionID) {
			return nil, invalid("option %d does not belong to this survey", or.OptionID)
		}
		text := strings.TrimSpace(or.ResponseText)
		if text == "" {
			continue
		}
		id := or.OptionID
		units = append(units, responseUnit{kind: unitText, optionID: &id, text: text})
	}
	custom := strings.TrimSpace(req.CustomOptionText)
	comment := strings.TrimSpace(req.Comment)
	if custom != "" && comment != "" {
		if !s.AllowCustomOptions {
			return nil, invalid("custom options are not allowed for this survey")
		}
		units = append(units, responseUnit{kind: unitText, customText: custom, text: comment})
	}
	if len(units) == 0 {
		return nil, invalid("answer at least one option")
	}
	return units, nil
}

func planNumeric(s *models.Survey, req *SubmitRequest) ([]responseUnit, error) {
	if !s.HasOptions() {
		if req.NumericValue == nil {
			return nil, invalid("a numeric value is required")
		}
		if err := checkRange(s, *req.NumericValue); err != nil {
			return nil, err
		}
		return []responseUnit{{kind: unitNumeric, value: *req.NumericValue}}, nil
	}

	var units []responseUnit
	for _, ov := range req.OptionVotes {
		if !ownsOption(s, ov.OptionID) {
			return nil, invalid("option %d does not belong to this survey", ov.OptionID)
		}
		if ov.NumericValue == nil {
			continue
		}
		if err := checkRange(s, *ov.NumericValue); err != nil {
			return nil, err
		}
		id := ov.OptionID
		units = append(units, responseUnit{kind: unitNumeric, optionID: &id, value: *ov.NumericValue})
	}
	if custom := strings.TrimSpace(req.CustomOptionText); custom != "" {
		if !s.AllowCustomOptions {
			return nil, invalid("custom options are not allowed for this survey")
		}
		if req.NumericValue == nil {
			return nil, invalid("a numeric value is required for the custom option")
		}
		if err := checkRange(s, *req.NumericValue); err != nil {
			return nil, err
		}
		units = append(units, responseUnit{kind: unitNumeric, customText: custom, value: *req.NumericValue})
	}
	if len(units) == 0 {
		return nil, invalid("rate at least one option")
	}
	return units, nil
}

func planDate(s *models.Survey, req *SubmitRequest) ([]responseUnit, error) {
	var date *time.Time
	if req.DateValue != "" {
		d, err := time.Parse(dateLayout, req.DateValue)
		if err != nil {
			return nil, invalid("date must be in YYYY-MM-DD format")
		}
		date = &d
	}

	if !s.HasOptions() {
		if date == nil {
			return nil, invalid("a date is required")
		}
		return []responseUnit{{kind: unitDateRef, date: date}}, nil
	}

	var units []responseUnit
	for _, id := range req.OptionIDs {
		if !ownsOption(s, id) {
			return nil, invalid("option %d does not belong to this survey", id)
		}
		id := id
		units = append(units, responseUnit{kind: unitDateRef, optionID: &id})
	}
	if date != nil {
		if !s.AllowCustomOptions {
			return nil, invalid("proposing new dates is not allowed for this survey")
		}
		units = append(units, responseUnit{
			kind:       unitDateRef,
			customText: date.Format(dateLayout),
			date:       date,
		})
	}
	if len(units) == 0 {
		return nil, invalid("select a date or propose a new one")
	}
	return units, nil
}

func ownsOption(s *models.Survey, id uint) bool {
	for _, o := range s.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

func checkRange(s *models.Survey, v float64) error {
	if v < float64(s.MinValue) || v > float64(s.MaxValue) {
		return invalid("value must be between %d and %d", s.MinValue, s.MaxValue)
	}
	return nil
}
