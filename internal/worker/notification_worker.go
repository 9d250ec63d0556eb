package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skillbase/skillbase-backend/internal/config"
)

const (
	NotificationBatchSize    = 50
	NotificationBatchTimeout = 2 * time.Second
	NotificationPollTimeout  = 1 * time.Second

	// storeWriteTimeout caps every worker database write. The worker loops
	// run on a context with no deadline of its own.
	storeWriteTimeout = 5 * time.Second
)

// NotificationWorker consumes notifications_queue and records in-app
// notification rows in batches.
type NotificationWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewNotificationWorker creates a new NotificationWorker.
func NewNotificationWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *NotificationWorker {
	return &NotificationWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "notification_worker").Logger(),
	}
}

type notificationPayload struct {
	UserID          uuid.UUID `json:"user_id"`
	Kind            string    `json:"kind"`
	AssessmentTitle string    `json:"assessment_title"`
	Score           int       `json:"score"`
	Passed          bool      `json:"passed"`
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]*notificationPayload, 0, NotificationBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= NotificationBatchSize || time.Since(lastFlush) >= NotificationBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested, flushing remaining batch")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, NotificationPollTimeout, config.QueueKey.NotificationsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p notificationPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *NotificationWorker) flushSafe(ctx context.Context, batch []*notificationPayload) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, storeWriteTimeout)
	defer cancel()

	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk notification insert failed, using fallback")

		for _, p := range batch {
			if err := w.insertSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("insertSingle failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.QueueKey.NotificationsQueue, raw)
			}
		}
	}
}

// bulkInsert writes the whole batch with UNNEST in one round trip.
func (w *NotificationWorker) bulkInsert(ctx context.Context, batch []*notificationPayload) error {
	n := len(batch)

	userIDs := make([]uuid.UUID, 0, n)
	kinds := make([]string, 0, n)
	payloads := make([]string, 0, n)

	for _, p := range batch {
		body, err := json.Marshal(map[string]any{
			"assessment_title": p.AssessmentTitle,
			"score":            p.Score,
			"passed":           p.Passed,
		})
		if err != nil {
			return err
		}
		userIDs = append(userIDs, p.UserID)
		kinds = append(kinds, p.Kind)
		payloads = append(payloads, string(body))
	}

	query := `
		INSERT INTO notifications (user_id, kind, payload)
		SELECT u.user_id, u.kind, u.payload::jsonb
		FROM UNNEST(
			$1::uuid[],
			$2::text[],
			$3::text[]
		) AS u (user_id, kind, payload)
	`

	_, err := w.pool.Exec(ctx, query, userIDs, kinds, payloads)
	return err
}

func (w *NotificationWorker) insertSingle(ctx context.Context, p *notificationPayload) error {
	body, err := json.Marshal(map[string]any{
		"assessment_title": p.AssessmentTitle,
		"score":            p.Score,
		"passed":           p.Passed,
	})
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO notifications (user_id, kind, payload)
		 VALUES ($1, $2, $3::jsonb)`,
		p.UserID, p.Kind, string(body),
	)
	return err
}
