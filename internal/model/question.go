package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Question is a multiple-choice question belonging to a deck. Options is a
// JSON array of option texts; CorrectIndex is the authoritative answer and
// is never serialized to candidates.
type Question struct {
	ID           uuid.UUID       `json:"id"`
	DeckID       uuid.UUID       `json:"deck_id"`
	Prompt       string          `json:"prompt"`
	Options      json.RawMessage `json:"options"`
	CorrectIndex int             `json:"-"`
	OrderNum     int             `json:"order_num"`
}

// Deck is a question source owned by an organization. Content management is
// handled elsewhere; the engine only reads deck membership.
type Deck struct {
	ID    uuid.UUID `json:"id"`
	OrgID uuid.UUID `json:"org_id"`
	Title string    `json:"title"`
}
