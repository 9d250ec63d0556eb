package engine

import (
	"math"
	"sort"

	"github.com/skillbase/skillbase-backend/internal/model"
)

// Percentile ranks score among scores, the terminal scores of every session
// of the same assessment (this session's own score included). Rank is the
// 1-based position of the first score ≤ this one in descending order, so
// ties share a rank class; percentile is the share of sessions scoring
// strictly lower, rounded to 0-100. A lone scored session ranks first at
// the 100th percentile.
func Percentile(scores []int, score int) model.SessionPercentile {
	total := len(scores)
	if total <= 1 {
		return model.SessionPercentile{Percentile: 100, Rank: 1, TotalSessions: total}
	}

	sorted := make([]int, total)
	copy(sorted, scores)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	rank := total
	for i, s := range sorted {
		if s <= score {
			rank = i + 1
			break
		}
	}

	below := 0
	for _, s := range scores {
		if s < score {
			below++
		}
	}

	return model.SessionPercentile{
		Percentile:    int(math.Round(float64(below) / float64(total) * 100)),
		Rank:          rank,
		TotalSessions: total,
	}
}
