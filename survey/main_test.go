package survey

import (
	"fmt"
	"testing"

	"github.com/Alegandi83/webdemocracy/db"
	"github.com/Alegandi83/webdemocracy/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// One connection, or each pooled connection would see its own empty
	// in-memory database.
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.MigrateSchema(gdb))
	return gdb
}

func anonVoter(n int) Identity {
	return Identity{
		IP:      fmt.Sprintf("10.0.0.%d", n),
		Session: fmt.Sprintf("session-%d", n),
	}
}

func createSurvey(t *testing.T, gdb *gorm.DB, s *models.Survey, options ...string) *models.Survey {
	t.Helper()
	if s.Title == "" {
		s.Title = "Test survey"
	}
	if s.QuestionType == "" {
		s.QuestionType = models.SingleChoice
	}
	if s.MinValue == 0 {
		s.MinValue = 1
	}
	if s.MaxValue == 0 {
		s.MaxValue = 5
	}
	if s.ClosureType == "" {
		s.ClosureType = models.ClosurePermanent
	}
	s.IsActive = true
	require.NoError(t, gdb.Create(s).Error)

	for i, text := range options {
		opt := models.SurveyOption{SurveyID: s.ID, OptionText: text, OptionOrder: i}
		require.NoError(t, gdb.Create(&opt).Error)
	}
	require.NoError(t, gdb.Preload("Options", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("option_order ASC, id ASC")
	}).First(s, s.ID).Error)
	return s
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }
