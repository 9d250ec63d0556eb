package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skillbase/skillbase-backend/internal/auth"
	"github.com/skillbase/skillbase-backend/internal/config"
	"github.com/skillbase/skillbase-backend/internal/database"
	"github.com/skillbase/skillbase-backend/internal/handler"
	"github.com/skillbase/skillbase-backend/internal/logger"
	"github.com/skillbase/skillbase-backend/internal/repository"
	"github.com/skillbase/skillbase-backend/internal/router"
	"github.com/skillbase/skillbase-backend/internal/service"
	"github.com/skillbase/skillbase-backend/internal/validator"
	"github.com/skillbase/skillbase-backend/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting SkillBase Backend")

	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
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

	assessmentRepo := repository.NewAssessmentRepository(pool, cfg.StoreTimeout)
	questionRepo := repository.NewQuestionRepository(pool, cfg.StoreTimeout)
	sessionRepo := repository.NewSessionRepository(pool, cfg.StoreTimeout)
	answerRepo := repository.NewAnswerRepository(pool, cfg.StoreTimeout)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	dispatcher := service.NewRedisDispatcher(rdb, log, cfg.StoreTimeout)
	sessionService := service.NewSessionService(assessmentRepo, sessionRepo, answerRepo, questionRepo, dispatcher, rdb, log)
	assessmentService := service.NewAssessmentService(assessmentRepo, questionRepo, sessionRepo, log)

	handlers := &router.Handlers{
		Session:    handler.NewSessionHandler(sessionService, log),
		Assessment: handler.NewAssessmentHandler(assessmentService, sessionService, log),
		WS:         handler.NewWSHandler(rdb, assessmentService, log, cfg.AllowedOrigins),
	}

	// Background workers: side-effect queue consumers plus the expiry
	// sweeper. The sweeper can be disabled in favor of cmd/sweeper on cron.
	workerCtx, workerCancel := context.WithCancel(context.Background())

	go worker.NewNotificationWorker(pool, rdb, log).Start(workerCtx)
	go worker.NewSkillScoreWorker(pool, rdb, log).Start(workerCtx)
	go worker.NewCertificateWorker(pool, rdb, cfg, log).Start(workerCtx)
	if cfg.SweepInterval > 0 {
		go worker.NewSweeper(sessionService, cfg.SweepInterval, log).Start(workerCtx)
	}

	r := router.SetupRouter(verifier, handlers, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}
