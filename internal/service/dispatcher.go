package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skillbase/skillbase-backend/internal/config"
	"github.com/skillbase/skillbase-backend/internal/model"
)

// SessionEvent describes a session lifecycle transition handed to the
// side-effect pipeline and the live monitor stream.
type SessionEvent struct {
	Type            string              `json:"type"` // session_started | session_completed | session_timed_out
	SessionID       uuid.UUID           `json:"session_id"`
	AssessmentID    uuid.UUID           `json:"assessment_id"`
	AssessmentTitle string              `json:"assessment_title"`
	SkillDomain     string              `json:"skill_domain,omitempty"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          model.SessionStatus `json:"status"`
	Score           *int                `json:"score,omitempty"`
	Passed          *bool               `json:"passed,omitempty"`
	OccurredAt      time.Time           `json:"occurred_at"`
}

// Dispatcher delivers best-effort side effects after a lifecycle
// transition has committed. Implementations must never block the caller's
// response and must swallow their own failures.
type Dispatcher interface {
	Dispatch(evt SessionEvent)
}

// RedisDispatcher fans session events out to the worker queues and the
// per-assessment monitor PubSub channel. Every delivery runs on a detached,
// bounded context: a Redis outage delays certificates and notifications
// but can never fail or revert the scoring transition that triggered it.
type RedisDispatcher struct {
	rdb     *redis.Client
	log     zerolog.Logger
	timeout time.Duration
}

// NewRedisDispatcher creates a RedisDispatcher.
func NewRedisDispatcher(rdb *redis.Client, log zerolog.Logger, timeout time.Duration) *RedisDispatcher {
	return &RedisDispatcher{
		rdb:     rdb,
		log:     log.With().Str("component", "dispatcher").Logger(),
		timeout: timeout,
	}
}

type certificatePayload struct {
	SessionID       uuid.UUID `json:"session_id"`
	UserID          uuid.UUID `json:"user_id"`
	AssessmentID    uuid.UUID `json:"assessment_id"`
	AssessmentTitle string    `json:"assessment_title"`
	Score           int       `json:"score"`
}

type notificationPayload struct {
	UserID          uuid.UUID `json:"user_id"`
	Kind            string    `json:"kind"`
	AssessmentTitle string    `json:"assessment_title"`
	Score           int       `json:"score"`
	Passed          bool      `json:"passed"`
}

type skillScorePayload struct {
	UserID uuid.UUID `json:"user_id"`
	Domain string    `json:"domain"`
	Score  int       `json:"score"`
}

// Dispatch publishes the event and, for terminal transitions, enqueues the
// result side effects. It never blocks the caller and errors are only logged.
func (d *RedisDispatcher) Dispatch(evt SessionEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		d.publishMonitorEvent(ctx, evt)

		if !evt.Status.Terminal() || evt.Score == nil || evt.Passed == nil {
			return
		}

		d.enqueue(ctx, config.QueueKey.NotificationsQueue, notificationPayload{
			UserID:          evt.UserID,
			Kind:            "assessment_result",
			AssessmentTitle: evt.AssessmentTitle,
			Score:           *evt.Score,
			Passed:          *evt.Passed,
		})

		if evt.SkillDomain != "" {
			d.enqueue(ctx, config.QueueKey.SkillScoresQueue, skillScorePayload{
				UserID: evt.UserID,
				Domain: evt.SkillDomain,
				Score:  *evt.Score,
			})
		}

		if *evt.Passed {
			d.enqueue(ctx, config.QueueKey.CertificatesQueue, certificatePayload{
				SessionID:       evt.SessionID,
				UserID:          evt.UserID,
				AssessmentID:    evt.AssessmentID,
				AssessmentTitle: evt.AssessmentTitle,
				Score:           *evt.Score,
			})
		}
	}()
}

func (d *RedisDispatcher) publishMonitorEvent(ctx context.Context, evt SessionEvent) {
	raw, err := json.Marshal(evt)
	if err != nil {
		d.log.Error().Err(err).Msg("marshal session event")
		return
	}
	channel := config.CacheKey.AssessmentEventsChannel(evt.AssessmentID.String())
	if err := d.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		d.log.Warn().Err(err).Str("channel", channel).Msg("publish session event failed")
	}
}

func (d *RedisDispatcher) enqueue(ctx context.Context, queue string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		d.log.Error().Err(err).Str("queue", queue).Msg("marshal side-effect payload")
		return
	}
	if err := d.rdb.RPush(ctx, queue, raw).Err(); err != nil {
		d.log.Warn().Err(err).Str("queue", queue).Msg("enqueue side effect failed")
	}
}
