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

// SkillScoreWorker consumes skill_scores_queue and folds each terminal
// session score into the user's running average for that skill domain.
type SkillScoreWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewSkillScoreWorker creates a new SkillScoreWorker.
func NewSkillScoreWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SkillScoreWorker {
	return &SkillScoreWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "skillscore_worker").Logger(),
	}
}

type skillScorePayload struct {
	UserID uuid.UUID `json:"user_id"`
	Domain string    `json:"domain"`
	Score  int       `json:"score"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *SkillScoreWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *SkillScoreWorker) processNext(ctx context.Context) {
	item, err := w.rdb.BLPop(ctx, time.Second, config.QueueKey.SkillScoresQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(item) < 2 {
		return
	}

	var p skillScorePayload
	if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return
	}

	if err := w.fold(ctx, &p); err != nil {
		w.log.Error().Err(err).
			Str("user_id", p.UserID.String()).
			Str("domain", p.Domain).
			Msg("Fold error, retrying in 5s")
		w.rdb.RPush(ctx, config.QueueKey.SkillScoresQueue, item[1])
		time.Sleep(5 * time.Second)
	}
}

// fold upserts the running average in a single atomic statement, so
// concurrent folds for the same user and domain never lose an update.
func (w *SkillScoreWorker) fold(ctx context.Context, p *skillScorePayload) error {
	ctx, cancel := context.WithTimeout(ctx, storeWriteTimeout)
	defer cancel()

	_, err := w.pool.Exec(ctx,
		`INSERT INTO user_skill_scores (user_id, skill_domain, score, assessments_taken)
		 VALUES ($1, $2, $3, 1)
		 ON CONFLICT (user_id, skill_domain) DO UPDATE
		 SET score = ROUND(
		         (user_skill_scores.score * user_skill_scores.assessments_taken + EXCLUDED.score)
		         / (user_skill_scores.assessments_taken + 1),
		         1),
		     assessments_taken = user_skill_scores.assessments_taken + 1,
		     updated_at = NOW()`,
		p.UserID, p.Domain, p.Score,
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *SkillScoreWorker) drain(ctx context.Context) {
	drained := 0
	for {
		item, err := w.rdb.LPop(ctx, config.QueueKey.SkillScoresQueue).Result()
		if err != nil {
			break
		}

		var p skillScorePayload
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.fold(ctx, &p); err != nil {
			w.log.Error().Err(err).Msg("Drain fold error")
			w.rdb.RPush(ctx, config.QueueKey.SkillScoresQueue, item)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
