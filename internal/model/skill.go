package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// UserSkillScore is a running weighted average of a user's terminal session
// scores within one skill domain, maintained by the skill-score worker.
type UserSkillScore struct {
	UserID           uuid.UUID `json:"user_id"`
	Domain           string    `json:"domain"`
	Score            float64   `json:"score"`
	AssessmentsTaken int       `json:"assessments_taken"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Certificate records a generated pass certificate. The PDF itself lives on
// disk under the configured certificate directory.
type Certificate struct {
	ID           uuid.UUID `json:"id"`
	SessionID    uuid.UUID `json:"session_id"`
	UserID       uuid.UUID `json:"user_id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	Serial       string    `json:"serial"`
	FilePath     string    `json:"file_path"`
	IssuedAt     time.Time `json:"issued_at"`
}

// Notification is an in-app notification row. Actual email delivery is an
// external concern; the notification worker only records the event.
type Notification struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
}
