package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skillbase/skillbase-backend/internal/model"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		score  int
		want   model.SessionPercentile
	}{
		{
			name:   "single scored session",
			scores: []int{80},
			score:  80,
			want:   model.SessionPercentile{Percentile: 100, Rank: 1, TotalSessions: 1},
		},
		{
			name:   "top of the field",
			scores: []int{100, 80, 60, 40},
			score:  100,
			want:   model.SessionPercentile{Percentile: 75, Rank: 1, TotalSessions: 4},
		},
		{
			name:   "bottom of the field",
			scores: []int{100, 80, 60, 40},
			score:  40,
			want:   model.SessionPercentile{Percentile: 0, Rank: 4, TotalSessions: 4},
		},
		{
			name:   "middle with ties sharing a rank class",
			scores: []int{90, 70, 70, 50},
			score:  70,
			want:   model.SessionPercentile{Percentile: 25, Rank: 2, TotalSessions: 4},
		},
		{
			name:   "everyone tied",
			scores: []int{60, 60, 60},
			score:  60,
			want:   model.SessionPercentile{Percentile: 0, Rank: 1, TotalSessions: 3},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Percentile(tc.scores, tc.score)
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, got.Percentile, 0)
			assert.LessOrEqual(t, got.Percentile, 100)
		})
	}
}
