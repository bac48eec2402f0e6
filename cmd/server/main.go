package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"slot-service/internal/app"
	"slot-service/internal/cache"
	"slot-service/internal/config"
	"slot-service/internal/logging"
	"slot-service/internal/server"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := app.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("failed to apply schema", zap.Error(err))
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		// Templates are still served from Postgres.
		logger.Warn("template cache disabled, redis unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	appInstance := &app.App{
		Slots:        &app.SlotStore{DB: pool},
		Templates:    cache.NewTemplateCache(&app.TemplateStore{DB: pool}, redisClient, cfg.TemplateCacheTTL, logger),
		Logger:       logger,
		Location:     cfg.Location(),
		MaxRangeDays: cfg.MaxApplyRangeDays,
		Calendar:     app.NewGoogleCalendarConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := app.NewRouter(appInstance, app.RouterOptions{
		JWTSecret:       cfg.JWTSecret,
		StaticTokens:    cfg.StaticTokens,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CORSOrigins:     cfg.CORSOriginList(),
	})

	if err := server.Run(ctx, cfg.Addr(), router, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}
