package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/honmoon-go-api/internal/config"
	"github.com/noah-isme/honmoon-go-api/internal/database"
	"github.com/noah-isme/honmoon-go-api/internal/handler"
	"github.com/noah-isme/honmoon-go-api/internal/middleware"
	"github.com/noah-isme/honmoon-go-api/internal/repository"
	"github.com/noah-isme/honmoon-go-api/internal/router"
	"github.com/noah-isme/honmoon-go-api/internal/service"
	"github.com/noah-isme/honmoon-go-api/pkg/ai"
	"github.com/noah-isme/honmoon-go-api/pkg/imageurl"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "honmoon-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if !cfg.IsDevelopment() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, submission guard disabled")
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, activity events disabled")
		} else {
			defer natsConn.Drain()
		}
	}

	images := imageurl.New()
	judge, err := buildJudge(cfg, images, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure ai judges")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	policy := service.NewRewardPolicy(cfg.ConfidenceThreshold)

	missionRepo := repository.NewCachedMissionRepository(repository.NewMissionRepository(db), cfg.MissionCacheTTL)
	placeRepo := repository.NewPlaceRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	pointRepo := repository.NewPointRepository(db)

	rewards := service.NewRewardIssuer(pointRepo, policy, logger)
	// A concurrent submission for the same place may be waiting on both judges.
	contentionWait := 2*cfg.AITimeout + 5*time.Second
	submissionService := service.NewMissionSubmissionService(service.MissionSubmissionDependencies{
		Missions:   missionRepo,
		Places:     placeRepo,
		Activities: activityRepo,
		Points:     pointRepo,
		Transactor: repository.NewTransactor(db),
		Verifier:   service.NewMissionVerifier(judge, images, policy, logger),
		Rewards:    rewards,
		Judge:      judge,
		Guard:      service.NewSubmissionGuard(redisClient, "honmoon", cfg.SubmissionGuardTTL, logger),
		Publisher:  service.NewActivityPublisher(natsConn, service.ActivityCompletedSubject, logger),
		Logger:     logger,

		ContentionWait: contentionWait,
	})
	pointService := service.NewPointService(pointRepo, logger)
	catalogService := service.NewCatalogService(placeRepo, missionRepo)
	statsService := service.NewUserStatsService(activityRepo)

	reconciler, err := service.NewPointReconciler(pointRepo, cfg.PointsReconcileInterval, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create point reconciler")
	}
	if err := reconciler.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start point reconciler")
	}

	submitLimit := middleware.RateLimit("mission_submit", cfg.SubmitRateLimitPerMinute, time.Minute)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ReadTimeout:  15 * time.Second,
		// Submissions may wait out a concurrent request and then make two sequential AI calls.
		WriteTimeout: contentionWait + 2*cfg.AITimeout + 15*time.Second,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		Development:  cfg.IsDevelopment(),
	})
	router.Register(app, cfg, router.Dependencies{
		MissionHandler:  handler.NewMissionHandler(submissionService, validate, submitLimit, logger),
		ActivityHandler: handler.NewActivityHandler(submissionService, logger),
		PointHandler:    handler.NewPointHandler(pointService, reconciler, logger),
		CatalogHandler:  handler.NewCatalogHandler(catalogService, logger),
		UserHandler:     handler.NewUserHandler(statsService, logger),
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
		HealthCheckers:  healthCheckers(db, redisClient, natsConn),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Error().Err(err).Msg("server stopped listening")
			stop()
		}
	}()

	<-ctx.Done()
	shutdown(app, reconciler, logger)
}

// buildJudge wires OpenAI as the primary judge and Gemini as the secondary.
// With a single configured provider that provider is used alone.
func buildJudge(cfg config.Config, images *imageurl.Validator, logger zerolog.Logger) (ai.Judge, error) {
	var judges []ai.Judge

	if cfg.OpenAIAPIKey != "" {
		openAI, err := ai.NewOpenAIJudge(ai.Config{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.OpenAIModel,
			MaxTokens: cfg.AIMaxTokens,
			Timeout:   cfg.AITimeout,
			Images:    images,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		judges = append(judges, openAI)
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiJudge(ai.Config{
			APIKey:    cfg.GeminiAPIKey,
			Model:     cfg.GeminiModel,
			BaseURL:   cfg.GeminiBaseURL,
			MaxTokens: cfg.AIMaxTokens,
			Timeout:   cfg.AITimeout,
			Images:    images,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		judges = append(judges, gemini)
	}

	switch len(judges) {
	case 0:
		return nil, errors.New("at least one of openai or gemini api keys must be set")
	case 1:
		logger.Warn().Str("provider", judges[0].Name()).Msg("only one ai provider configured, fallback disabled")
		return judges[0], nil
	default:
		return ai.NewFallbackJudge(judges[0], judges[1], logger), nil
	}
}

func healthCheckers(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) map[string]handler.HealthChecker {
	checkers := map[string]handler.HealthChecker{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		checkers["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if natsConn != nil {
		checkers["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}
	}
	return checkers
}

func shutdown(app *fiber.App, reconciler *service.PointReconciler, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := reconciler.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("point reconciler shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
