package survey

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/Alegandi83/webdemocracy/models"
	"gorm.io/gorm"
)

// OptionResult is one aggregated row of a survey's result set. Choice and
// date surveys fill count and percentage; scale and rating surveys with
// options fill the numeric block instead.
type OptionResult struct {
	OptionID          uint         `json:"option_id"`
	OptionText        string       `json:"option_text"`
	VoteCount         int          `json:"vote_count"`
	Percentage        *float64     `json:"percentage,omitempty"`
	NumericAverage    *float64     `json:"numeric_average,omitempty"`
	NumericMedian     *float64     `json:"numeric_median,omitempty"`
	NumericMin        *float64     `json:"numeric_min,omitempty"`
	NumericMax        *float64     `json:"numeric_max,omitempty"`
	ValueDistribution []ValueCount `json:"value_distribution,omitempty"`
}

// NumericStats summarizes the numeric votes of a scale or rating survey
// without options.
type NumericStats struct {
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
	Min     float64 `json:"min_value"`
	Max     float64 `json:"max_value"`
	Count   int     `json:"count"`
}

// ValueCount is one bin of a value distribution histogram.
type ValueCount struct {
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// OpenResponseView is a free-text answer in a result set. Comments left on
// the like widget are re-projected into this shape as well.
type OpenResponseView struct {
	ID           uint      `json:"id"`
	OptionID     *uint     `json:"option_id,omitempty"`
	ResponseText string    `json:"response_text"`
	RespondedAt  time.Time `json:"responded_at"`
}

// LikeStats summarizes the appreciation ratings of a survey. Comment-only
// rows (rating 0) count toward the total but fall outside the 1-5
// histogram.
type LikeStats struct {
	AverageRating      float64      `json:"average_rating"`
	TotalLikes         int          `json:"total_likes"`
	RatingDistribution []ValueCount `json:"rating_distribution"`
}

// VoterView is the caller's own previous input, served so a client can
// pre-fill what the voter answered. Only populated on non-anonymous
// surveys.
type VoterView struct {
	OptionIDs     []uint           `json:"option_ids"`
	NumericValue  *float64         `json:"numeric_value,omitempty"`
	DateValue     string           `json:"date_value,omitempty"`
	OptionVotes   []OptionVote     `json:"option_votes,omitempty"`
	OptionAnswers []OptionResponse `json:"option_responses,omitempty"`
	Comment       string           `json:"comment,omitempty"`
}

// ResultsBundle is the full aggregate view of one survey. Which blocks are
// filled depends on the question type.
type ResultsBundle struct {
	SurveyID          uint               `json:"survey_id"`
	SurveyTitle       string             `json:"survey_title"`
	QuestionType      string             `json:"question_type"`
	TotalVotes        int                `json:"total_votes"`
	TotalResponses    int                `json:"total_responses"`
	Results           []OptionResult     `json:"results"`
	NumericStats      *NumericStats      `json:"numeric_stats,omitempty"`
	ValueDistribution []ValueCount       `json:"value_distribution,omitempty"`
	RatingIcon        string             `json:"rating_icon,omitempty"`
	MinValue          *int               `json:"min_value,omitempty"`
	MaxValue          *int               `json:"max_value,omitempty"`
	LikeStats         *LikeStats         `json:"like_stats,omitempty"`
	OpenResponses     []OpenResponseView `json:"open_responses"`
	MostCommonDate    *time.Time         `json:"most_common_date,omitempty"`
	MyResponse        *VoterView         `json:"my_response,omitempty"`
}

// Results recomputes the aggregate view of a survey from its persisted
// responses. Pure read side apart from the lazy expiry refresh; never
// fails except when the survey does not exist.
func Results(db *gorm.DB, surveyID uint, voter *Identity) (*ResultsBundle, error) {
	var s models.Survey
	if err := db.Preload("Options", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("option_order ASC, id ASC")
	}).First(&s, surveyID).Error; err != nil {
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

	bundle := &ResultsBundle{
		SurveyID:       s.ID,
		SurveyTitle:    s.Title,
		QuestionType:   s.QuestionType,
		Results:        []OptionResult{},
		OpenResponses:  []OpenResponseView{},
		LikeStats:      likeStats(likes),
		TotalResponses: distinctParticipants(votes, texts),
	}

	switch s.QuestionType {
	case models.SingleChoice, models.MultipleChoice:
		bundle.Results, bundle.TotalVotes = choiceResults(&s, votes)
	case models.OpenText:
		bundle.OpenResponses = textResults(texts)
		bundle.TotalVotes = len(texts)
		if s.HasOptions() {
			bundle.Results = perOptionTextCounts(&s, texts)
		}
	case models.Scale, models.Rating:
		numericResults(&s, votes, bundle)
	case models.Date:
		if s.HasOptions() {
			bundle.Results, bundle.TotalVotes = choiceResults(&s, votes)
		} else {
			bundle.MostCommonDate, bundle.TotalVotes = mostCommonDate(votes)
		}
	}

	// Comments from the like widget surface alongside open responses.
	for _, l := range likes {
		if l.Comment == "" {
			continue
		}
		bundle.OpenResponses = append(bundle.OpenResponses, OpenResponseView{
			ID:           l.ID,
			ResponseText: l.Comment,
			RespondedAt:  l.CreatedAt,
		})
	}
	sort.SliceStable(bundle.OpenResponses, func(i, j int) bool {
		return bundle.OpenResponses[i].RespondedAt.After(bundle.OpenResponses[j].RespondedAt)
	})

	if !s.IsAnonymous && voter != nil {
		view, err := voterView(db, &s, *voter)
		if err != nil {
			return nil, err
		}
		bundle.MyResponse = view
	}

	return bundle, nil
}

func choiceResults(s *models.Survey, votes []models.Vote) ([]OptionResult, int) {
	counts := make(map[uint]int)
	total := 0
	for _, v := range votes {
		if v.OptionID == nil {
			continue
		}
		counts[*v.OptionID]++
		total++
	}

	results := make([]OptionResult, 0, len(s.Options))
	for _, o := range s.Options {
		r := OptionResult{OptionID: o.ID, OptionText: o.OptionText, VoteCount: counts[o.ID]}
		pct := 0.0
		if total > 0 {
			pct = round2(float64(counts[o.ID]) / float64(total) * 100)
		}
		r.Percentage = &pct
		results = append(results, r)
	}
	return results, total
}

func textResults(texts []models.OpenResponse) []OpenResponseView {
	views := make([]OpenResponseView, 0, len(texts))
	for _, t := range texts {
		views = append(views, OpenResponseView{
			ID:           t.ID,
			OptionID:     t.OptionID,
			ResponseText: t.ResponseText,
			RespondedAt:  t.CreatedAt,
		})
	}
	return views
}

func perOptionTextCounts(s *models.Survey, texts []models.OpenResponse) []OptionResult {
	counts := make(map[uint]int)
	for _, t := range texts {
		if t.OptionID != nil {
			counts[*t.OptionID]++
		}
	}
	results := make([]OptionResult, 0, len(s.Options))
	for _, o := range s.Options {
		results = append(results, OptionResult{
			OptionID:   o.ID,
			OptionText: o.OptionText,
			VoteCount:  counts[o.ID],
		})
	}
	return results
}

func numericResults(s *models.Survey, votes []models.Vote, bundle *ResultsBundle) {
	bundle.RatingIcon = s.RatingIcon
	minV, maxV := s.MinValue, s.MaxValue
	bundle.MinValue = &minV
	bundle.MaxValue = &maxV

	if s.HasOptions() {
		byOption := make(map[uint][]float64)
		for _, v := range votes {
			if v.OptionID == nil || v.NumericValue == nil {
				continue
			}
			byOption[*v.OptionID] = append(byOption[*v.OptionID], *v.NumericValue)
		}
		for _, o := range s.Options {
			values := byOption[o.ID]
			r := OptionResult{OptionID: o.ID, OptionText: o.OptionText, VoteCount: len(values)}
			if len(values) > 0 {
				avg := round2(sum(values) / float64(len(values)))
				med := median(values)
				lo, hi := minMax(values)
				r.NumericAverage = &avg
				r.NumericMedian = &med
				r.NumericMin = &lo
				r.NumericMax = &hi
				r.ValueDistribution = distribution(values, s.MinValue, s.MaxValue)
			}
			bundle.Results = append(bundle.Results, r)
			bundle.TotalVotes += len(values)
		}
		return
	}

	var values []float64
	for _, v := range votes {
		if v.NumericValue != nil {
			values = append(values, *v.NumericValue)
		}
	}
	bundle.TotalVotes = len(values)
	if len(values) == 0 {
		return
	}
	lo, hi := minMax(values)
	bundle.NumericStats = &NumericStats{
		Average: round2(sum(values) / float64(len(values))),
		Median:  median(values),
		Min:     lo,
		Max:     hi,
		Count:   len(values),
	}
	bundle.ValueDistribution = distribution(values, s.MinValue, s.MaxValue)
}

func mostCommonDate(votes []models.Vote) (*time.Time, int) {
	counts := make(map[time.Time]int)
	total := 0
	for _, v := range votes {
		if v.DateValue == nil {
			continue
		}
		counts[v.DateValue.UTC().Truncate(24*time.Hour)]++
		total++
	}
	if total == 0 {
		return nil, 0
	}
	var best time.Time
	bestCount := -1
	for d, c := range counts {
		if c > bestCount || (c == bestCount && d.Before(best)) {
			best, bestCount = d, c
		}
	}
	return &best, total
}

func likeStats(likes []models.SurveyLike) *LikeStats {
	if len(likes) == 0 {
		return nil
	}
	dist := make([]ValueCount, 5)
	sumRatings := 0
	for i := range dist {
		dist[i] = ValueCount{Value: float64(i + 1)}
	}
	for _, l := range likes {
		sumRatings += l.Rating
		if l.Rating >= 1 && l.Rating <= 5 {
			dist[l.Rating-1].Count++
		}
	}
	return &LikeStats{
		AverageRating:      round2(float64(sumRatings) / float64(len(likes))),
		TotalLikes:         len(likes),
		RatingDistribution: dist,
	}
}

func voterView(db *gorm.DB, s *models.Survey, voter Identity) (*VoterView, error) {
	clause, args := voter.voterClause()

	var votes []models.Vote
	if err := db.Where("survey_id = ?", s.ID).Where(clause, args...).
		Find(&votes).Error; err != nil {
		return nil, err
	}
	var texts []models.OpenResponse
	if err := db.Where("survey_id = ?", s.ID).Where(clause, args...).
		Find(&texts).Error; err != nil {
		return nil, err
	}
	if len(votes) == 0 && len(texts) == 0 {
		return nil, nil
	}

	view := &VoterView{OptionIDs: []uint{}}
	for _, v := range votes {
		if v.OptionID != nil {
			view.OptionIDs = append(view.OptionIDs, *v.OptionID)
			if v.NumericValue != nil {
				view.OptionVotes = append(view.OptionVotes, OptionVote{
					OptionID:     *v.OptionID,
					NumericValue: v.NumericValue,
				})
			}
		} else if v.NumericValue != nil {
			view.NumericValue = v.NumericValue
		}
		if v.DateValue != nil {
			view.DateValue = v.DateValue.Format(dateLayout)
		}
	}
	for _, t := range texts {
		if t.OptionID != nil {
			view.OptionAnswers = append(view.OptionAnswers, OptionResponse{
				OptionID:     *t.OptionID,
				ResponseText: t.ResponseText,
			})
		} else {
			view.Comment = t.ResponseText
		}
	}
	return view, nil
}

// distinctParticipants counts unique voters across both response tables,
// keyed by session token.
func distinctParticipants(votes []models.Vote, texts []models.OpenResponse) int {
	seen := make(map[string]bool)
	for _, v := range votes {
		seen[v.VoterSession] = true
	}
	for _, t := range texts {
		seen[t.VoterSession] = true
	}
	return len(seen)
}

// median returns the middle element of the value-sorted list; on even
// counts the lower of the two middle elements, never their average.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return sorted[(len(sorted)-1)/2]
}

func distribution(values []float64, minValue, maxValue int) []ValueCount {
	counts := make(map[float64]int)
	for _, v := range values {
		counts[v]++
	}
	dist := make([]ValueCount, 0, maxValue-minValue+1)
	for i := minValue; i <= maxValue; i++ {
		dist = append(dist, ValueCount{Value: float64(i), Count: counts[float64(i)]})
	}
	return dist
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func minMax(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
