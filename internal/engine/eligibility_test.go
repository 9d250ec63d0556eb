package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbase/skillbase-backend/internal/model"
)

func intPtr(n int) *int              { return &n }
func timePtr(t time.Time) *time.Time { return &t }

func publishedAssessment() *model.Assessment {
	return &model.Assessment{
		Status:           model.AssessmentStatusPublished,
		TimeLimitMinutes: 60,
		PassScore:        70,
		QuestionCount:    10,
	}
}

func terminalAttempt(completedAt time.Time) model.AssessmentSession {
	return model.AssessmentSession{
		Status:      model.SessionStatusCompleted,
		CompletedAt: timePtr(completedAt),
	}
}

func TestCheckEligibility_StatusGate(t *testing.T) {
	now := time.Now()

	for _, status := range []model.AssessmentStatus{
		model.AssessmentStatusDraft,
		model.AssessmentStatusArchived,
	} {
		a := publishedAssessment()
		a.Status = status
		err := CheckEligibility(a, nil, "", now)
		assert.ErrorIs(t, err, ErrNotPublished, "status %s must not accept sessions", status)
	}

	assert.NoError(t, CheckEligibility(publishedAssessment(), nil, "", now))
}

func TestCheckEligibility_AccessCode(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		code     string
		supplied string
		wantErr  error
	}{
		{"no code configured accepts anything", "", "whatever", nil},
		{"matching code", "SECRET-42", "SECRET-42", nil},
		{"wrong code", "SECRET-42", "SECRET-43", ErrInvalidAccessCode},
		{"missing code", "SECRET-42", "", ErrInvalidAccessCode},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := publishedAssessment()
			a.AccessCode = tc.code
			err := CheckEligibility(a, nil, tc.supplied, now)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestCheckEligibility_TimeWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	a := publishedAssessment()
	a.StartDate = timePtr(now.Add(time.Hour))
	assert.ErrorIs(t, CheckEligibility(a, nil, "", now), ErrNotYetOpen)

	a = publishedAssessment()
	a.EndDate = timePtr(now.Add(-time.Hour))
	assert.ErrorIs(t, CheckEligibility(a, nil, "", now), ErrClosed)

	a = publishedAssessment()
	a.StartDate = timePtr(now.Add(-time.Hour))
	a.EndDate = timePtr(now.Add(time.Hour))
	assert.NoError(t, CheckEligibility(a, nil, "", now))
}

func TestCheckEligibility_MaxAttempts(t *testing.T) {
	now := time.Now()

	a := publishedAssessment()
	a.MaxAttempts = intPtr(1)

	// One finished attempt exhausts maxAttempts=1.
	attempts := []model.AssessmentSession{terminalAttempt(now.Add(-time.Hour))}
	assert.ErrorIs(t, CheckEligibility(a, attempts, "", now), ErrMaxAttemptsReached)

	// An in-progress session does not count as an attempt.
	attempts = []model.AssessmentSession{{Status: model.SessionStatusInProgress}}
	assert.NoError(t, CheckEligibility(a, attempts, "", now))

	// Timed-out sessions count like completed ones.
	a.MaxAttempts = intPtr(2)
	attempts = []model.AssessmentSession{
		{Status: model.SessionStatusTimedOut, CompletedAt: timePtr(now.Add(-2 * time.Hour))},
		terminalAttempt(now.Add(-time.Hour)),
	}
	assert.ErrorIs(t, CheckEligibility(a, attempts, "", now), ErrMaxAttemptsReached)
}

func TestCheckEligibility_Cooldown(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	a := publishedAssessment()
	a.CooldownMinutes = intPtr(30)

	// Finished 10 minutes ago: 20 minutes left.
	attempts := []model.AssessmentSession{terminalAttempt(now.Add(-10 * time.Minute))}
	err := CheckEligibility(a, attempts, "", now)
	var cd *CooldownError
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, 20, cd.MinutesLeft)

	// Remaining time is ceiling-rounded.
	attempts = []model.AssessmentSession{terminalAttempt(now.Add(-10*time.Minute - 30*time.Second))}
	err = CheckEligibility(a, attempts, "", now)
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, 20, cd.MinutesLeft)

	// 31 minutes after completion the cooldown has lapsed.
	attempts = []model.AssessmentSession{terminalAttempt(now.Add(-31 * time.Minute))}
	assert.NoError(t, CheckEligibility(a, attempts, "", now))

	// Only the newest finished attempt matters; in-progress rows are skipped.
	attempts = []model.AssessmentSession{
		{Status: model.SessionStatusInProgress},
		terminalAttempt(now.Add(-45 * time.Minute)),
		terminalAttempt(now.Add(-5 * time.Minute)),
	}
	// History is newest-first: -45m precedes -5m here, so the gate reads
	// the -45m attempt and passes. Callers are responsible for ordering.
	assert.NoError(t, CheckEligibility(a, attempts, "", now))
}

func TestCheckEligibility_ShortCircuitOrder(t *testing.T) {
	now := time.Now()

	// Unpublished wins over a bad access code.
	a := publishedAssessment()
	a.Status = model.AssessmentStatusDraft
	a.AccessCode = "SECRET"
	assert.ErrorIs(t, CheckEligibility(a, nil, "wrong", now), ErrNotPublished)

	// Bad access code wins over a closed window.
	a = publishedAssessment()
	a.AccessCode = "SECRET"
	a.EndDate = timePtr(now.Add(-time.Hour))
	assert.ErrorIs(t, CheckEligibility(a, nil, "wrong", now), ErrInvalidAccessCode)

	// Max attempts wins over cooldown.
	a = publishedAssessment()
	a.MaxAttempts = intPtr(1)
	a.CooldownMinutes = intPtr(30)
	attempts := []model.AssessmentSession{terminalAttempt(now.Add(-time.Minute))}
	assert.ErrorIs(t, CheckEligibility(a, attempts, "", now), ErrMaxAttemptsReached)
}

func TestCooldownError_Message(t *testing.T) {
	err := error(&CooldownError{MinutesLeft: 7})
	assert.Equal(t, "cooldown active: 7 minute(s) left", err.Error())
	assert.False(t, errors.Is(err, ErrMaxAttemptsReached))
}
