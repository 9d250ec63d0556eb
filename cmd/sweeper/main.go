package main

import (
	"context"
	"flag"
	"time"

	"github.com/google/uuid"
	"github.com/skillbase/skillbase-backend/internal/config"
	"github.com/skillbase/skillbase-backend/internal/database"
	"github.com/skillbase/skillbase-backend/internal/logger"
	"github.com/skillbase/skillbase-backend/internal/repository"
	"github.com/skillbase/skillbase-backend/internal/service"
)

// One-shot expiry sweep, intended for cron when the in-process sweeper is
// disabled (SWEEP_INTERVAL_SECONDS=0). Exits after a single pass.
func main() {
	var orgFlag string
	flag.StringVar(&orgFlag, "org", "", "Limit the sweep to one organization ID (default: all)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	orgID := uuid.Nil
	if orgFlag != "" {
		id, err := uuid.Parse(orgFlag)
		if err != nil {
			log.Fatal().Str("org", orgFlag).Msg("Invalid organization ID")
		}
		orgID = id
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout*10)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	dispatcher := service.NewRedisDispatcher(rdb, log, cfg.StoreTimeout)
	sessions := service.NewSessionService(
		repository.NewAssessmentRepository(pool, cfg.StoreTimeout),
		repository.NewSessionRepository(pool, cfg.StoreTimeout),
		repository.NewAnswerRepository(pool, cfg.StoreTimeout),
		repository.NewQuestionRepository(pool, cfg.StoreTimeout),
		dispatcher,
		rdb,
		log,
	)

	expired, err := sessions.ExpireStale(ctx, orgID)
	if err != nil {
		log.Fatal().Err(err).Msg("Sweep failed")
	}

	// Give the fire-and-forget dispatches a moment to reach Redis.
	time.Sleep(time.Second)

	log.Info().Int("expired", expired).Msg("Sweep complete")
}
