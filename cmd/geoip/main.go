package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"geoip/internal/config"
	"geoip/internal/handler"
	"geoip/internal/repository"
	"geoip/internal/service"
)

var (
	lastLogTime atomic.Value
	logMutex    sync.Mutex
)

func init() {
	lastLogTime.Store(time.Now())
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger
	logConfig := zap.NewProductionConfig()
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		logConfig.Level = zap.NewAtomicLevelAt(level)
	}
	logger, _ := logConfig.Build()
	defer logger.Sync()

	logger.Info("Starting up server...",
		zap.String("data_file", cfg.DataFile),
		zap.Bool("strict_parse", cfg.StrictParse),
		zap.Duration("refresh_interval", cfg.RefreshInterval))

	var repo service.Repository
	if cfg.PostgresURL != "" {
		db, err := sqlx.Connect("postgres", cfg.PostgresURL)
		if err != nil {
			logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer db.Close()

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		postgresRepo := repository.NewPostgresRepository(db, logger)
		if err := postgresRepo.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("Failed to prepare PostgreSQL schema", zap.Error(err))
		}
		repo = postgresRepo
	}

	var cache service.Cache
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("Failed to parse Redis URL", zap.Error(err))
		}

		redisClient := redis.NewClient(opt)
		defer redisClient.Close()

		cache = repository.NewRedisRepository(redisClient, cfg.CacheTTL, logger)
	}

	// Initialize services
	rirService := service.NewRIRService(logger)
	geoService := service.NewGeoService(
		repo,
		cache,
		rirService,
		cfg,
		logger,
	)

	// Build the range table and start background reloads
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := geoService.Start(ctx); err != nil {
		logger.Fatal("Failed to start geo service", zap.Error(err))
	}

	// Initialize HTTP server
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		// Always log errors and slow requests
		status := c.Response().StatusCode()
		if err != nil || latency > 100*time.Millisecond || (status != fiber.StatusOK && status != fiber.StatusNotFound) {
			logger.Info("request",
				zap.Int("status", status),
				zap.Duration("latency", latency),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			return err
		}

		// Check if 10 seconds have passed since last log
		last := lastLogTime.Load().(time.Time)
		if time.Since(last) >= 10*time.Second {
			logMutex.Lock()
			// Double-check after acquiring lock
			if time.Since(lastLogTime.Load().(time.Time)) >= 10*time.Second {
				logger.Info("sampled_request",
					zap.Int("status", status),
					zap.Duration("latency", latency),
					zap.String("method", c.Method()),
					zap.String("path", c.Path()),
				)
				lastLogTime.Store(time.Now())
			}
			logMutex.Unlock()
		}

		return err
	})

	// Initialize and register handlers
	h := handler.NewHandler(geoService, logger)
	h.RegisterRoutes(app)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	go func() {
		if err := app.Listen(cfg.ServerPort); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			logger.Info("Reloading range table...")
			if err := geoService.Reload(ctx); err != nil {
				logger.Error("Reload failed", zap.Error(err))
			}
			continue
		}
		break
	}

	logger.Info("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		logger.Error("Error during server shutdown", zap.Error(err))
	}
}
