package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dkhp/registration-backend/internal/config"
	"github.com/dkhp/registration-backend/internal/database"
	"github.com/dkhp/registration-backend/internal/enrollment"
	"github.com/dkhp/registration-backend/internal/handler"
	"github.com/dkhp/registration-backend/internal/logger"
	"github.com/dkhp/registration-backend/internal/middleware"
	"github.com/dkhp/registration-backend/internal/repository"
	"github.com/dkhp/registration-backend/internal/router"
	"github.com/dkhp/registration-backend/internal/service"
	"github.com/dkhp/registration-backend/internal/stream"
	"github.com/dkhp/registration-backend/internal/validator"
	"github.com/dkhp/registration-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting registration backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	semesterRepo := repository.NewSemesterRepository(pool)
	subjectRepo := repository.NewSubjectRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	periodRepo := repository.NewRegistrationPeriodRepository(pool)
	registrationRepo := repository.NewRegistrationRepository(pool, subjectRepo)
	logRepo := repository.NewRegistrationLogRepository(pool)

	// ─── Initialize Enrollment Engine ──────────────────────────────────
	evaluator := enrollment.NewEvaluator(registrationRepo)
	transactor := enrollment.NewTransactor(registrationRepo, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	periodService := service.NewRegistrationPeriodService(periodRepo, semesterRepo, rdb, cfg.PeriodCacheTTL, log)
	registrationService := service.NewRegistrationService(periodService, evaluator, transactor, logRepo, rdb, log)
	courseService := service.NewCourseService(courseRepo, subjectRepo, semesterRepo, registrationRepo, periodService, log)
	subjectService := service.NewSubjectService(subjectRepo, log)
	semesterService := service.NewSemesterService(semesterRepo)
	capacityService := service.NewCapacityService(periodService, courseRepo)

	// ─── Live Capacity ─────────────────────────────────────────────────
	registry := stream.NewRegistry()
	broadcaster := worker.NewCapacityBroadcaster(registry, capacityService, cfg.BroadcastInterval, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Registration: handler.NewRegistrationHandler(registrationService, log),
		Course:       handler.NewCourseHandler(courseService, log),
		Subject:      handler.NewSubjectHandler(subjectService, log),
		Semester:     handler.NewSemesterHandler(semesterService, log),
		Period:       handler.NewRegistrationPeriodHandler(periodService, log),
		Capacity:     handler.NewCapacityHandler(registry, cfg.SubscriberExpiry, cfg.AllowedOrigins, log),
		System:       handler.NewSystemHandler(pool, rdb, registry, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	logWorker := worker.NewRegistrationLogWorker(logRepo, rdb, log)
	workers.Add(2)
	go func() {
		defer workers.Done()
		logWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		broadcaster.Start(workerCtx)
	}()

	enrollLimiter := middleware.NewRateLimiter(cfg.EnrollRateLimit, time.Minute)
	go enrollLimiter.Run(workerCtx.Done())

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, enrollLimiter, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Close live streams so Shutdown does not wait on them.
	registry.CloseAll()

	// 2. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 3. Stop the broadcaster and drain the audit queue.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
