package survey

import (
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/Alegandi83/webdemocracy/models"
	"gorm.io/gorm"
)

// TimelinePoint is one bucket of the participation series. CumulativeCount
// is the total number of distinct participants up to and including the
// bucket; PeriodCount is how many of them appeared for the first time in
// this bucket.
type TimelinePoint struct {
	Timestamp       time.Time `json:"timestamp"`
	CumulativeCount int       `json:"cumulative_count"`
	PeriodCount     int       `json:"period_count"`
}

// TimelineResult is the cumulative participation series of one survey.
type TimelineResult struct {
	SurveyID    uint            `json:"survey_id"`
	Granularity string          `json:"granularity"` // hourly or daily
	Points      []TimelinePoint `json:"points"`
}

const hourlyWindow = 48 * time.Hour

// Timeline buckets all response timestamps of a survey: hourly while the
// survey is younger than 48 hours, daily afterwards. Distinct participants
// are counted by session token on anonymous surveys and by user id
// otherwise (rows without a user fall back to their session token). The
// series always starts with a synthetic zero point at survey creation and,
// when the last activity bucket lies in the past, ends with a synthetic
// point at now carrying the final total.
func Timeline(db *gorm.DB, surveyID uint) (*TimelineResult, error) {
	var s models.Survey
	if err := db.First(&s, surveyID).Error; err != nil {
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

	type event struct {
		at  time.Time
		key string
	}
	events := make([]event, 0, len(votes)+len(texts))
	for _, v := range votes {
		events = append(events, event{at: v.CreatedAt, key: participantKey(&s, v.UserID, v.VoterSession)})
	}
	for _, t := range texts {
		events = append(events, event{at: t.CreatedAt, key: participantKey(&s, t.UserID, t.VoterSession)})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })

	now := time.Now()
	granularity := "daily"
	if now.Sub(s.CreatedAt) < hourlyWindow {
		granularity = "hourly"
	}

	points := []TimelinePoint{{Timestamp: s.CreatedAt, CumulativeCount: 0, PeriodCount: 0}}

	seen := make(map[string]bool)
	var current *TimelinePoint
	for _, e := range events {
		bucket := truncateBucket(e.at, granularity)
		if current == nil || !current.Timestamp.Equal(bucket) {
			if current != nil {
				points = append(points, *current)
			}
			current = &TimelinePoint{Timestamp: bucket}
		}
		if !seen[e.key] {
			seen[e.key] = true
			current.PeriodCount++
		}
		current.CumulativeCount = len(seen)
	}
	if current != nil {
		points = append(points, *current)
	}

	// Close the series at now when the last bucket is already stale, so a
	// chart does not end mid-history.
	last := points[len(points)-1]
	if truncateBucket(now, granularity).After(last.Timestamp) {
		points = append(points, TimelinePoint{
			Timestamp:       now,
			CumulativeCount: len(seen),
			PeriodCount:     0,
		})
	}

	return &TimelineResult{SurveyID: s.ID, Granularity: granularity, Points: points}, nil
}

func participantKey(s *models.Survey, userID *uint, session string) string {
	if !s.IsAnonymous && userID != nil {
		return "user:" + strconv.FormatUint(uint64(*userID), 10)
	}
	return "session:" + session
}

func truncateBucket(t time.Time, granularity string) time.Time {
	t = t.UTC()
	if granularity == "hourly" {
		return t.Truncate(time.Hour)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
