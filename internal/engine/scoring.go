package engine

import (
	"math"

	"github.com/skillbase/skillbase-backend/internal/model"
)

// Score turns a session's answer ledger into a score and pass/fail verdict.
// Unanswered rows (nil IsCorrect) count toward the total but never toward
// correct, so a candidate expired mid-attempt is scored on partial progress.
// An empty ledger scores 0.
func Score(answers []model.AssessmentAnswer, passScore int) model.SessionResult {
	total := len(answers)
	correct := 0
	for i := range answers {
		if answers[i].IsCorrect != nil && *answers[i].IsCorrect {
			correct++
		}
	}

	score := 0
	if total > 0 {
		score = int(math.Round(float64(correct) / float64(total) * 100))
	}

	return model.SessionResult{
		Score:   score,
		Passed:  score >= passScore,
		Total:   total,
		Correct: correct,
	}
}
