package survey

import (
	"testing"

	"github.com/Alegandi83/webdemocracy/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitSingleChoice(t *testing.T) {
	gdb := newTestDB(t)
	s := createSurvey(t, gdb, &models.Survey{QuestionType: models.SingleChoice}, "Red", "Blue")

	receipt, err := Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{OptionIDs: []uint{s.Options[0].ID}})
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.Recorded)
	assert.Equal(t, "session-1", receipt.SessionToken)

	var votes []models.Vote
	require.NoError(t, gdb.Where("survey_id = ?", s.ID).Find(&votes).Error)
	require.Len(t, votes, 1)
	assert.Equal(t, s.Options[0].ID, *votes[0].OptionID)
}

func TestSubmitSingleChoiceRejectsBadInput(t *testing.T) {
	gdb := newTestDB(t)
	s := createSurvey(t, gdb, &models.Survey{QuestionType: models.SingleChoice}, "Red", "Blue")

	var validationErr *ValidationError

	_, err := Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{})
	require.ErrorAs(t, err, &validationErr)

	_, err = Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{
		OptionIDs: []uint{s.Options[0].ID, s.Options[1].ID},
	})
	require.ErrorAs(t, err, &validationErr)

	// Option belonging to a different survey.
	other := createSurvey(t, gdb, &models.Survey{QuestionType: models.SingleChoice}, "Elsewhere")
	_, err = Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{OptionIDs: []uint{other.Options[0].ID}})
	require.ErrorAs(t, err, &validationErr)
}

func TestSubmitDuplicatePolicy(t *testing.T) {
	gdb := newTestDB(t)
	s := createSurvey(t, gdb, &models.Survey{QuestionType: models.SingleChoice}, "Red", "Blue")
	req := &SubmitRequest{OptionIDs: []uint{s.Options[0].ID}}

	first := Identity{IP: "10.0.0.1", Session: "session-a"}
	_, err := Submit(gdb, s.ID, first, req)
	require.NoError(t, err)

	var dup *DuplicateResponseError

	// Same session, different address.
	_, err = Submit(gdb, s.ID, Identity{IP: "10.0.0.99", Session: "session-a"}, req)
	require.ErrorAs(t, err, &dup)

	// Same address, different session.
	_, err = Submit(gdb, s.ID, Identity{IP: "10.0.0.1", Session: "session-b"}, req)
	require.ErrorAs(t, err, &dup)

	// Both fresh: a different voter.
	_, err = Submit(gdb, s.ID, Identity{IP: "10.0.0.2", Session: "session-c"}, req)
	require.NoError(t, err)
}

func TestSubmitDuplicateByUserID(t *testing.T) {
	gdb := newTestDB(t)
	s := createSurvey(t, gdb, &models.Survey{QuestionType: models.SingleChoice}, "Red", "Blue")
	req := &SubmitRequest{OptionIDs: []uint{s.Options[0].ID}}

	userID := uint(7)
	_, err := Submit(gdb, s.ID, Identity{UserID: &userID, IP: "10.0.0.1", Session: "session-a"}, req)
	require.NoError(t, err)

	// Same account from a new device and network.
	var dup *DuplicateResponseError
	_, err = Submit(gdb, s.ID, Identity{UserID: &userID, IP: "10.0.0.2", Session: "session-b"}, req)
	require.ErrorAs(t, err, &dup)
}

func TestSubmitAllowMultipleResponses(t *testing.T) {
	gdb := newTestDB(t)
	s := createSurvey(t, gdb, &models.Survey{
		QuestionType:           models.SingleChoice,
		AllowMultipleResponses: true,
	}, "Red", "Blue")
	req := &SubmitRequest{OptionIDs: []uint{s.Options[0].ID}}

	_, err := Submit(gdb, s.ID, anonVoter(1), req)
	require.NoError(t, err)
	_, err = Submit(gdb, s.ID, anonVoter(1), req)
	require.NoError(t, err)

	var votes []models.Vote
	require.NoError(t, gdb.Where("survey_id = ?", s.ID).Find(&votes).Error)
	assert.Len(t, votes, 2)
}

func TestSubmitMultipleChoiceDeduplicates(t *testing.T) {
	gdb := newTestDB(t)
	s := createSurvey(t, gdb, &models.Survey{QuestionType: models.MultipleChoice}, "A", "B", "C")

	receipt, err := Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{
		OptionIDs: []uint{s.Options[0].ID, s.Options[0].ID, s.Options[2].ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, receipt.Recorded)
}

func TestSubmitCustomOption(t *testing.T) {
	gdb := newTestDB(t)
	s := createSurvey(t, gdb, &models.Survey{
		QuestionType:       models.SingleChoice,
		AllowCustomOptions: true,
	}, "Red")

	_, err := Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{CustomOptionText: "Purple"})
	require.NoError(t, err)

	var opt models.SurveyOption
	require.NoError(t, gdb.Where("survey_id = ? AND option_text = ?", s.ID, "Purple").First(&opt).Error)
	assert.Equal(t, models.CustomOptionOrder, opt.OptionOrder)

	// A second voter writing the same text reuses the option.
	_, err = Submit(gdb, s.ID, anonVoter(2), &SubmitRequest{CustomOptionText: "Purple"})
	require.NoError(t, err)

	var count int64
	require.NoError(t, gdb.Model(&models.SurveyOption{}).
		Where("survey_id = ? AND option_text = ?", s.ID, "Purple").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSubmitCustomOptionDisallowed(t *testing.T) {
	gdb := newTestDB(t)

	cases := []struct {
		questionType string
		req          SubmitRequest
	}{
		{models.SingleChoice, SubmitRequest{CustomOptionText: "Nope"}},
		{models.MultipleChoice, SubmitRequest{CustomOptionText: "Nope"}},
		{models.OpenText, SubmitRequest{CustomOptionText: "Nope", Comment: "text"}},
		{models.Rating, SubmitRequest{CustomOptionText: "Nope", NumericValue: floatPtr(3)}},
		{models.Date, SubmitRequest{DateValue: "2026-09-01"}},
	}
	for _, tc := range cases {
		t.Run(tc.questionType, func(t *testing.T) {
			s := createSurvey(t, gdb, &models.Survey{QuestionType: tc.questionType}, "Existing")

			var validationErr *ValidationError
			_, err := Submit(gdb, s.ID, anonVoter(1), &tc.req)
			require.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestSubmitScaleBounds(t *testing.T) {
	gdb := newTestDB(t)
	s := createSurvey(t, gdb, &models.Survey{
		QuestionType: models.Scale,
		MinValue:     1,
		MaxValue:     10,
	})

	var validationErr *ValidationError
	_, err := Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{NumericValue: floatPtr(11)})
	require.ErrorAs(t, err, &validationErr)
	_, err = Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{NumericValue: floatPtr(0)})
	require.ErrorAs(t, err, &validationErr)

	// Boundaries are inclusive.
	_, err = Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{NumericValue: floatPtr(1)})
	require.NoError(t, err)
	_, err = Submit(gdb, s.ID, anonVoter(2), &SubmitRequest{NumericValue: floatPtr(10)})
	require.NoError(t, err)
}

func TestSubmitPerOptionNumeric(t *testing.T) {
	gdb := newTestDB(t)
	s := createSurvey(t, gdb, &models.Survey{QuestionType: models.Rating}, "Venue", "Catering")

	receipt, err := Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{
		OptionVotes: []OptionVote{
			{OptionID: s.Options[0].ID, NumericValue: floatPtr(5)},
			{OptionID: s.Options[1].ID, NumericValue: floatPtr(2)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, receipt.Recorded)
}

func TestSubmitOpenText(t *testing.T) {
	gdb := newTestDB(t)
	s := createSurvey(t, gdb, &models.Survey{QuestionType: models.OpenText})

	var validationErr *ValidationError
	_, err := Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{Comment: "   "})
	require.ErrorAs(t, err, &validationErr)

	_, err = Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{Comment: "  a real answer  "})
	require.NoError(t, err)

	var row models.OpenResponse
	require.NoError(t, gdb.Where("survey_id = ?", s.ID).First(&row).Error)
	assert.Equal(t, "a real answer", row.ResponseText)
}

func TestSubmitDate(t *testing.T) {
	gdb := newTestDB(t)
	s := createSurvey(t, gdb, &models.Survey{
		QuestionType:       models.Date,
		AllowCustomOptions: true,
	})

	var validationErr *ValidationError
	_, err := Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{DateValue: "01/09/2026"})
	require.ErrorAs(t, err, &validationErr)

	_, err = Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{DateValue: "2026-09-01"})
	require.NoError(t, err)

	var vote models.Vote
	require.NoError(t, gdb.Where("survey_id = ?", s.ID).First(&vote).Error)
	require.NotNil(t, vote.DateValue)
	assert.Equal(t, "2026-09-01", vote.DateValue.Format("2006-01-02"))
}

func TestSubmitDateProposalCreatesOption(t *testing.T) {
	gdb := newTestDB(t)
	s := createSurvey(t, gdb, &models.Survey{
		QuestionType:       models.Date,
		AllowCustomOptions: true,
	}, "2026-09-05")

	_, err := Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{DateValue: "2026-09-10"})
	require.NoError(t, err)

	var opt models.SurveyOption
	require.NoError(t, gdb.Where("survey_id = ? AND option_text = ?", s.ID, "2026-09-10").First(&opt).Error)
	assert.Equal(t, models.CustomOptionOrder, opt.OptionOrder)
}

func TestSubmitAnonymousSurveyDropsUserID(t *testing.T) {
	gdb := newTestDB(t)
	s := createSurvey(t, gdb, &models.Survey{
		QuestionType: models.SingleChoice,
		IsAnonymous:  true,
	}, "Red", "Blue")

	userID := uint(42)
	voter := Identity{UserID: &userID, IP: "10.0.0.1", Session: "session-a"}
	_, err := Submit(gdb, s.ID, voter, &SubmitRequest{OptionIDs: []uint{s.Options[0].ID}})
	require.NoError(t, err)

	var vote models.Vote
	require.NoError(t, gdb.Where("survey_id = ?", s.ID).First(&vote).Error)
	assert.Nil(t, vote.UserID)
	// IP and session still recorded for duplicate detection.
	assert.Equal(t, "10.0.0.1", vote.VoterIP)
	assert.Equal(t, "session-a", vote.VoterSession)
}

func TestSubmitWithFoldedLike(t *testing.T) {
	gdb := newTestDB(t)
	s := createSurvey(t, gdb, &models.Survey{QuestionType: models.SingleChoice}, "Red", "Blue")

	_, err := Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{
		OptionIDs:     []uint{s.Options[0].ID},
		LikeRating:    intPtr(4),
		SurveyComment: strPtr("nice one"),
	})
	require.NoError(t, err)

	var like models.SurveyLike
	require.NoError(t, gdb.Where("survey_id = ?", s.ID).First(&like).Error)
	assert.Equal(t, 4, like.Rating)
	assert.Equal(t, "nice one", like.Comment)
}

func TestSubmitInvalidLikeRatingRollsBackEverything(t *testing.T) {
	gdb := newTestDB(t)
	s := createSurvey(t, gdb, &models.Survey{QuestionType: models.SingleChoice}, "Red", "Blue")

	var validationErr *ValidationError
	_, err := Submit(gdb, s.ID, anonVoter(1), &SubmitRequest{
		OptionIDs:  []uint{s.Options[0].ID},
		LikeRating: intPtr(9),
	})
	require.ErrorAs(t, err, &validationErr)

	var count int64
	require.NoError(t, gdb.Model(&models.Vote{}).Where("survey_id = ?", s.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestSubmitUnknownSurvey(t *testing.T) {
	gdb := newTestDB(t)

	var notFound *NotFoundError
	_, err := Submit(gdb, 12345, anonVoter(1), &SubmitRequest{OptionIDs: []uint{1}})
	require.ErrorAs(t, err, &notFound)
}
