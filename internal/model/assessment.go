package model

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentStatus enumerates the lifecycle states of an assessment.
// Only published assessments accept new sessions.
type AssessmentStatus string

const (
	AssessmentStatusDraft     AssessmentStatus = "draft"
	AssessmentStatusPublished AssessmentStatus = "published"
	AssessmentStatusArchived  AssessmentStatus = "archived"
)

// Assessment is the immutable configuration source for sessions. Edits are
// only allowed while in draft; sessions snapshot what they need at creation,
// so later edits never retroactively change a running attempt.
type Assessment struct {
	ID               uuid.UUID        `json:"id"`
	OrgID            uuid.UUID        `json:"org_id"`
	DeckID           uuid.UUID        `json:"deck_id"`
	Title            string           `json:"title"`
	SkillDomain      string           `json:"skill_domain"`
	TimeLimitMinutes int              `json:"time_limit_minutes"`
	PassScore        int              `json:"pass_score"`
	QuestionCount    int              `json:"question_count"`
	ShuffleQuestions bool             `json:"shuffle_questions"`
	MaxAttempts      *int             `json:"max_attempts,omitempty"`
	CooldownMinutes  *int             `json:"cooldown_minutes,omitempty"`
	StartDate        *time.Time       `json:"start_date,omitempty"`
	EndDate          *time.Time       `json:"end_date,omitempty"`
	AccessCode       string           `json:"-"`
	Status           AssessmentStatus `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// CreateAssessmentRequest is the payload for creating a new assessment draft.
type CreateAssessmentRequest struct {
	DeckID           uuid.UUID  `json:"deck_id" binding:"required"`
	Title            string     `json:"title" binding:"required,min=3,max=255"`
	SkillDomain      string     `json:"skill_domain" binding:"required,min=2,max=100"`
	TimeLimitMinutes int        `json:"time_limit_minutes" binding:"required,min=1,max=480"`
	PassScore        int        `json:"pass_score" binding:"min=0,max=100"`
	QuestionCount    int        `json:"question_count" binding:"required,min=1"`
	ShuffleQuestions bool       `json:"shuffle_questions"`
	MaxAttempts      *int       `json:"max_attempts" binding:"omitempty,min=1"`
	CooldownMinutes  *int       `json:"cooldown_minutes" binding:"omitempty,min=1"`
	StartDate        *time.Time `json:"start_date" binding:"omitempty"`
	EndDate          *time.Time `json:"end_date" binding:"omitempty,gtfield=StartDate"`
	AccessCode       string     `json:"access_code" binding:"omitempty,min=4,max=64"`
}
