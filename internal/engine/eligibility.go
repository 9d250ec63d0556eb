// Package engine holds the pure decision functions of the assessment
// session engine: eligibility gating, question selection, scoring and
// percentile ranking. Nothing in this package performs I/O; all history
// and configuration is passed in by the caller, so every function is
// unit-testable without a store and safely callable from the expiry
// sweeper's batch loop without synchronization.
package engine

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/skillbase/skillbase-backend/internal/model"
)

// Eligibility failures. All are user-correctable or time-bound and are
// surfaced verbatim to the caller, never retried automatically.
var (
	ErrNotPublished       = errors.New("assessment is not published")
	ErrInvalidAccessCode  = errors.New("access code is missing or incorrect")
	ErrNotYetOpen         = errors.New("assessment has not opened yet")
	ErrClosed             = errors.New("assessment is closed")
	ErrMaxAttemptsReached = errors.New("maximum attempts reached")
)

// CooldownError reports how long the candidate must still wait before a
// retake, ceiling-rounded to whole minutes.
type CooldownError struct {
	MinutesLeft int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active: %d minute(s) left", e.MinutesLeft)
}

// CheckEligibility decides whether a new attempt may start. The checks
// short-circuit: the first failure wins.
//
// attempts is the candidate's full attempt history for this assessment,
// ordered by completion time, newest first. accessCode is what the caller
// supplied, which may be empty.
func CheckEligibility(a *model.Assessment, attempts []model.AssessmentSession, accessCode string, now time.Time) error {
	if a.Status != model.AssessmentStatusPublished {
		return ErrNotPublished
	}

	if a.AccessCode != "" {
		// Constant-time comparison: the exam gate must not leak how much
		// of a guessed code matched.
		if subtle.ConstantTimeCompare([]byte(a.AccessCode), []byte(accessCode)) != 1 {
			return ErrInvalidAccessCode
		}
	}

	if a.StartDate != nil && now.Before(*a.StartDate) {
		return ErrNotYetOpen
	}
	if a.EndDate != nil && now.After(*a.EndDate) {
		return ErrClosed
	}

	if a.MaxAttempts != nil {
		finished := 0
		for i := range attempts {
			if attempts[i].Status.Terminal() {
				finished++
			}
		}
		if finished >= *a.MaxAttempts {
			return ErrMaxAttemptsReached
		}
	}

	if a.CooldownMinutes != nil {
		for i := range attempts {
			if attempts[i].CompletedAt == nil {
				continue
			}
			// Newest finished attempt; earlier ones cannot impose a
			// longer cooldown.
			retakeAt := attempts[i].CompletedAt.Add(time.Duration(*a.CooldownMinutes) * time.Minute)
			if now.Before(retakeAt) {
				left := int(math.Ceil(retakeAt.Sub(now).Minutes()))
				return &CooldownError{MinutesLeft: left}
			}
			break
		}
	}

	return nil
}
