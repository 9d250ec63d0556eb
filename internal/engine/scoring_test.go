package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skillbase/skillbase-backend/internal/model"
)

func boolPtr(b bool) *bool { return &b }

// ledger builds an answer slice with the given correctness flags; nil means
// unanswered.
func ledger(flags ...*bool) []model.AssessmentAnswer {
	answers := make([]model.AssessmentAnswer, len(flags))
	for i, f := range flags {
		answers[i] = model.AssessmentAnswer{IsCorrect: f}
	}
	return answers
}

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		answers   []model.AssessmentAnswer
		passScore int
		want      model.SessionResult
	}{
		{
			name:      "all correct passes",
			answers:   ledger(boolPtr(true), boolPtr(true)),
			passScore: 70,
			want:      model.SessionResult{Score: 100, Passed: true, Total: 2, Correct: 2},
		},
		{
			name:      "half correct fails at 70",
			answers:   ledger(boolPtr(true), boolPtr(false)),
			passScore: 70,
			want:      model.SessionResult{Score: 50, Passed: false, Total: 2, Correct: 1},
		},
		{
			name:      "unanswered counts toward total",
			answers:   ledger(boolPtr(true), nil, nil),
			passScore: 30,
			want:      model.SessionResult{Score: 33, Passed: true, Total: 3, Correct: 1},
		},
		{
			name:      "two thirds rounds up",
			answers:   ledger(boolPtr(true), boolPtr(true), nil),
			passScore: 70,
			want:      model.SessionResult{Score: 67, Passed: false, Total: 3, Correct: 2},
		},
		{
			name:      "empty ledger scores zero",
			answers:   nil,
			passScore: 0,
			want:      model.SessionResult{Score: 0, Passed: true, Total: 0, Correct: 0},
		},
		{
			name:      "score equal to threshold passes",
			answers:   ledger(boolPtr(true), boolPtr(false)),
			passScore: 50,
			want:      model.SessionResult{Score: 50, Passed: true, Total: 2, Correct: 1},
		},
		{
			name:      "nothing answered fails any positive threshold",
			answers:   ledger(nil, nil, nil, nil),
			passScore: 1,
			want:      model.SessionResult{Score: 0, Passed: false, Total: 4, Correct: 0},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Score(tc.answers, tc.passScore))
		})
	}
}
