package survey

import (
	"fmt"
	"testing"
	"time"

	"github.com/Alegandi83/webdemocracy/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func backdatedSurvey(t *testing.T, gdb *gorm.DB, age time.Duration) *models.Survey {
	t.Helper()
	s := createSurvey(t, gdb, &models.Survey{QuestionType: models.SingleChoice}, "Red", "Blue")
	createdAt := time.Now().Add(-age)
	require.NoError(t, gdb.Model(s).UpdateColumn("created_at", createdAt).Error)
	s.CreatedAt = createdAt
	return s
}

func backdatedVote(t *testing.T, gdb *gorm.DB, s *models.Survey, session string, at time.Time) {
	t.Helper()
	vote := models.Vote{
		SurveyID:     s.ID,
		OptionID:     &s.Options[0].ID,
		VoterIP:      "10.0.0.1",
		VoterSession: session,
	}
	require.NoError(t, gdb.Create(&vote).Error)
	require.NoError(t, gdb.Model(&vote).UpdateColumn("created_at", at).Error)
}

func TestTimelineGranularity(t *testing.T) {
	gdb := newTestDB(t)

	young := backdatedSurvey(t, gdb, 2*time.Hour)
	timeline, err := Timeline(gdb, young.ID)
	require.NoError(t, err)
	assert.Equal(t, "hourly", timeline.Granularity)

	old := backdatedSurvey(t, gdb, 10*24*time.Hour)
	timeline, err = Timeline(gdb, old.ID)
	require.NoError(t, err)
	assert.Equal(t, "daily", timeline.Granularity)
}

func TestTimelineStartsAtCreationAndAccumulates(t *testing.T) {
	gdb := newTestDB(t)
	s := backdatedSurvey(t, gdb, 5*24*time.Hour)

	day := func(n int) time.Time { return s.CreatedAt.Add(time.Duration(n) * 24 * time.Hour) }
	backdatedVote(t, gdb, s, "session-1", day(1))
	backdatedVote(t, gdb, s, "session-2", day(1).Add(time.Hour))
	backdatedVote(t, gdb, s, "session-3", day(3))

	timeline, err := Timeline(gdb, s.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(timeline.Points), 3)

	first := timeline.Points[0]
	assert.Equal(t, 0, first.CumulativeCount)
	assert.WithinDuration(t, s.CreatedAt, first.Timestamp, time.Second)

	// Cumulative counts never decrease and end at the participant total.
	prev := 0
	for _, p := range timeline.Points {
		assert.GreaterOrEqual(t, p.CumulativeCount, prev)
		prev = p.CumulativeCount
	}
	assert.Equal(t, 3, timeline.Points[len(timeline.Points)-1].CumulativeCount)
}

func TestTimelinePeriodCountsFirstAppearanceOnly(t *testing.T) {
	gdb := newTestDB(t)
	s := backdatedSurvey(t, gdb, 5*24*time.Hour)

	day := func(n int) time.Time { return s.CreatedAt.Add(time.Duration(n) * 24 * time.Hour) }
	// The same session voting twice on different days counts once.
	backdatedVote(t, gdb, s, "session-1", day(1))
	backdatedVote(t, gdb, s, "session-1", day(2))
	backdatedVote(t, gdb, s, "session-2", day(2))

	timeline, err := Timeline(gdb, s.ID)
	require.NoError(t, err)

	total := 0
	for _, p := range timeline.Points {
		total += p.PeriodCount
	}
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, timeline.Points[len(timeline.Points)-1].CumulativeCount)
}

func TestTimelineCountsUsersAcrossSessions(t *testing.T) {
	gdb := newTestDB(t)
	s := backdatedSurvey(t, gdb, 3*time.Hour)

	// One authenticated user voting from two devices is one participant.
	userID := uint(9)
	for i, session := range []string{"session-a", "session-b"} {
		vote := models.Vote{
			SurveyID:     s.ID,
			OptionID:     &s.Options[0].ID,
			VoterIP:      fmt.Sprintf("10.0.0.%d", i+1),
			VoterSession: session,
			UserID:       &userID,
		}
		require.NoError(t, gdb.Create(&vote).Error)
	}

	timeline, err := Timeline(gdb, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, timeline.Points[len(timeline.Points)-1].CumulativeCount)
}

func TestTimelineUnknownSurvey(t *testing.T) {
	gdb := newTestDB(t)

	var notFound *NotFoundError
	_, err := Timeline(gdb, 555)
	require.ErrorAs(t, err, &notFound)
}
