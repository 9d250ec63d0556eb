package model

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentAnswer is one row per question in a session's frozen order,
// created eagerly as a placeholder and filled in as the candidate answers.
// A nil SelectedIndex means unanswered. Rows are never added or removed
// after session creation.
type AssessmentAnswer struct {
	ID               uuid.UUID  `json:"id"`
	SessionID        uuid.UUID  `json:"session_id"`
	QuestionID       uuid.UUID  `json:"question_id"`
	SelectedIndex    *int       `json:"selected_index,omitempty"`
	IsCorrect        *bool      `json:"is_correct,omitempty"`
	AnsweredAt       *time.Time `json:"answered_at,omitempty"`
	TimeSpentSeconds *int       `json:"time_spent_seconds,omitempty"`
}
