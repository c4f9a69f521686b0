package models

import (
	"time"

	"gorm.io/gorm"
)

// Question types supported by a survey. Each type has its own validation
// and aggregation path in the survey package.
const (
	SingleChoice   = "single_choice"
	MultipleChoice = "multiple_choice"
	OpenText       = "open_text"
	Scale          = "scale"
	Rating         = "rating"
	Date           = "date"
)

// Closure types controlling how a survey stops accepting responses.
const (
	ClosurePermanent = "permanent"
	ClosureScheduled = "scheduled"
	ClosureManual    = "manual"
)

// User roles.
const (
	RoleUser     = "user"
	RolePollster = "pollster"
	RoleAdmin    = "admin"
)

// Custom options created at vote time are ordered after every
// moderator-defined option.
const CustomOptionOrder = 999

type User struct {
	gorm.Model
	Email         string     `gorm:"uniqueIndex" json:"email"`
	Name          string     `json:"name"`
	GoogleID      *string    `gorm:"uniqueIndex" json:"-"`
	Picture       string     `json:"picture"`
	PasswordHash  string     `json:"-"`
	Role          string     `gorm:"default:user" json:"role"`
	LastLoginAt   *time.Time `json:"last_login_at"`
	LastIPAddress string     `json:"-"`
	Groups        []Group    `gorm:"many2many:user_groups;" json:"groups,omitempty"`
}

func (u *User) IsAdmin() bool    { return u.Role == RoleAdmin }
func (u *User) IsPollster() bool { return u.Role == RoleAdmin || u.Role == RolePollster }

type Tag struct {
	gorm.Model
	Name     string `gorm:"uniqueIndex;size:50" json:"name"`
	Color    string `gorm:"size:7;default:#6366f1" json:"color"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

type Group struct {
	gorm.Model
	Name        string `gorm:"size:100" json:"name"`
	Description string `json:"description"`
	CreatedBy   *uint  `json:"created_by"`
	Users       []User `gorm:"many2many:user_groups;" json:"users,omitempty"`
}

type Survey struct {
	gorm.Model
	UserID       uint   `json:"user_id"`
	Title        string `gorm:"size:200" json:"title"`
	Description  string `json:"description"`
	QuestionType string `gorm:"size:20;default:single_choice" json:"question_type"`

	// Range for scale/rating questions.
	MinValue      int    `gorm:"default:1" json:"min_value"`
	MaxValue      int    `gorm:"default:5" json:"max_value"`
	ScaleMinLabel string `gorm:"size:100" json:"scale_min_label"`
	ScaleMaxLabel string `gorm:"size:100" json:"scale_max_label"`
	RatingIcon    string `gorm:"size:20;default:star" json:"rating_icon"`

	ClosureType string     `gorm:"size:20;default:permanent" json:"closure_type"`
	ExpiresAt   *time.Time `json:"expires_at"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`

	AllowMultipleResponses bool `gorm:"default:false" json:"allow_multiple_responses"`
	AllowCustomOptions     bool `gorm:"default:false" json:"allow_custom_options"`
	RequireComment         bool `gorm:"default:false" json:"require_comment"`
	IsAnonymous            bool `gorm:"default:false" json:"is_anonymous"`

	Options       []SurveyOption `gorm:"constraint:OnDelete:CASCADE" json:"options"`
	Votes         []Vote         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	OpenResponses []OpenResponse `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Likes         []SurveyLike   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Tags          []Tag          `gorm:"many2many:survey_tags;" json:"tags"`
}

// HasOptions reports whether the survey defines sub-items. For open_text,
// scale and rating surveys this switches between per-option and single
// response mode.
func (s *Survey) HasOptions() bool { return len(s.Options) > 0 }

type SurveyOption struct {
	gorm.Model
	SurveyID    uint   `gorm:"index" json:"survey_id"`
	OptionText  string `gorm:"size:500" json:"option_text"`
	OptionOrder int    `gorm:"default:0" json:"option_order"`
	UserID      *uint  `json:"user_id,omitempty"`
}

type Vote struct {
	gorm.Model
	SurveyID     uint       `gorm:"index" json:"survey_id"`
	OptionID     *uint      `json:"option_id"`
	NumericValue *float64   `json:"numeric_value"`
	DateValue    *time.Time `json:"date_value"`
	VoterIP      string     `gorm:"size:45;index" json:"-"`
	VoterSession string     `gorm:"size:100;index" json:"-"`
	UserID       *uint      `gorm:"index" json:"user_id"`
}

type OpenResponse struct {
	gorm.Model
	SurveyID     uint   `gorm:"index" json:"survey_id"`
	OptionID     *uint  `json:"option_id"`
	ResponseText string `json:"response_text"`
	VoterIP      string `gorm:"size:45;index" json:"-"`
	VoterSession string `gorm:"size:100;index" json:"-"`
	UserID       *uint  `gorm:"index" json:"user_id"`
}

// SurveyLike holds the optional 1-5 appreciation rating and free-text
// comment, one row per voter per survey. Rating 0 marks a comment-only row.
type SurveyLike struct {
	gorm.Model
	SurveyID    uint   `gorm:"index" json:"survey_id"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment"`
	UserIP      string `gorm:"size:45;index" json:"-"`
	UserSession string `gorm:"size:100;index" json:"-"`
	UserID      *uint  `json:"user_id"`
}

type Setting struct {
	gorm.Model
	Key   string `gorm:"uniqueIndex;size:100" json:"key"`
	Value string `json:"value"`
}
