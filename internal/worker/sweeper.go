package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionExpirer is implemented by the session service.
type SessionExpirer interface {
	ExpireStale(ctx context.Context, orgID uuid.UUID) (int, error)
}

// Sweeper periodically force-completes in-progress sessions whose time
// budget has elapsed, so abandoned sessions reach a terminal state without
// any client involvement.
type Sweeper struct {
	expirer  SessionExpirer
	interval time.Duration
	log      zerolog.Logger
}

// NewSweeper creates a new Sweeper.
func NewSweeper(expirer SessionExpirer, interval time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		expirer:  expirer,
		interval: interval,
		log:      log.With().Str("component", "sweeper").Logger(),
	}
}

// Start runs the sweep loop until the context is cancelled. Call in a
// goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("Worker started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			if _, err := s.expirer.ExpireStale(ctx, uuid.Nil); err != nil {
				s.log.Error().Err(err).Msg("Sweep failed")
			}
		}
	}
}
