package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates assessment session states. completed and
// timed_out are terminal; both carry a score.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusTimedOut   SessionStatus = "timed_out"
)

// Terminal reports whether the status permits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusTimedOut
}

// AssessmentSession is one candidate's attempt at one assessment.
// QuestionOrder is frozen at creation and defines the session's fixed
// universe of questions; TimeRemainingSeconds is a client-reported resume
// hint only; the authoritative deadline is always recomputed from
// StartedAt plus the assessment's time limit.
type AssessmentSession struct {
	ID                   uuid.UUID     `json:"id"`
	AssessmentID         uuid.UUID     `json:"assessment_id"`
	UserID               uuid.UUID     `json:"user_id"`
	QuestionOrder        []uuid.UUID   `json:"question_order"`
	Status               SessionStatus `json:"status"`
	StartedAt            time.Time     `json:"started_at"`
	CompletedAt          *time.Time    `json:"completed_at,omitempty"`
	TimeRemainingSeconds *int          `json:"time_remaining_seconds,omitempty"`
	Score                *int          `json:"score,omitempty"`
	Passed               *bool         `json:"passed,omitempty"`
	TabSwitchCount       int           `json:"tab_switch_count"`
	IPAddress            *string       `json:"ip_address,omitempty"`
}

// Deadline returns the server-side expiry instant for the given time limit.
func (s *AssessmentSession) Deadline(timeLimitMinutes int) time.Time {
	return s.StartedAt.Add(time.Duration(timeLimitMinutes) * time.Minute)
}

// HasQuestion reports whether questionID is part of the frozen order.
func (s *AssessmentSession) HasQuestion(questionID uuid.UUID) bool {
	for _, id := range s.QuestionOrder {
		if id == questionID {
			return true
		}
	}
	return false
}

// StartSessionRequest is the payload for starting (or resuming) a session.
type StartSessionRequest struct {
	AccessCode string `json:"access_code" binding:"omitempty,max=64"`
}

// SubmitAnswerRequest is the payload for answering one question.
// TimeRemainingSeconds is advisory telemetry persisted as a resume hint.
type SubmitAnswerRequest struct {
	QuestionID           uuid.UUID `json:"question_id" binding:"required"`
	SelectedIndex        *int      `json:"selected_index" binding:"required,min=0"`
	TimeRemainingSeconds *int      `json:"time_remaining_seconds" binding:"omitempty"`
	TimeSpentSeconds     *int      `json:"time_spent_seconds" binding:"omitempty,min=0"`
}

// SessionResult is the outcome of a terminal transition.
type SessionResult struct {
	Score   int  `json:"score"`
	Passed  bool `json:"passed"`
	Total   int  `json:"total"`
	Correct int  `json:"correct"`
}

// SessionPercentile is the read-only standing of a scored session among all
// terminal sessions of the same assessment.
type SessionPercentile struct {
	Percentile    int `json:"percentile"`
	Rank          int `json:"rank"`
	TotalSessions int `json:"total_sessions"`
}
