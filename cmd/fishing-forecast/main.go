package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/fishing-forecast/internal/api/http"
	"github.com/i474232898/fishing-forecast/internal/config"
	"github.com/i474232898/fishing-forecast/internal/fishing"
	"github.com/i474232898/fishing-forecast/internal/fishing/providers"
	"github.com/i474232898/fishing-forecast/internal/logger"
	"github.com/i474232898/fishing-forecast/internal/scheduler"
	"github.com/i474232898/fishing-forecast/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := newCache(ctx, cfg, log)
	if closer, ok := cache.(io.Closer); ok {
		defer closer.Close()
	}

	openai := providers.NewOpenAIClient(httpClient, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	deps := fishing.Dependencies{
		Weather: providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey),
		Water:   providers.NewUSGSGauge(httpClient),
		Species: openai,
		Lister:  openai,
		History: providers.NewOpenMeteoArchive(httpClient),
		Advisor: openai,
		Cache:   cache,
	}
	if cfg.GoogleMapsAPIKey != "" {
		deps.Geocoder = providers.NewGoogleGeocoder(cfg.GoogleMapsAPIKey)
	} else {
		log.Info("GOOGLE_MAPS_API_KEY not set, geocoding disabled")
	}

	// Core service orchestrating the collaborators.
	service := fishing.NewService(deps,
		fishing.WithRetryPolicy(cfg.RetryPolicy()),
		fishing.WithLocation(cfg.Location),
		fishing.WithLogger(log),
	)

	feedback, err := openFeedback(cfg.FeedbackDBPath)
	if err != nil {
		log.Error("failed to open feedback store", "path", cfg.FeedbackDBPath, "error", err)
		os.Exit(1)
	}
	defer feedback.Close()

	// Scheduler that prunes the cache and keeps favorite spots warm.
	sched := scheduler.New(cfg.Spots, cfg.CachePruneInterval, service, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "fishing-forecast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Advice requests chain several upstream calls.
		WriteTimeout: 60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Error("request failed", "path", c.Path(), "status", code, "error", err)
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "fishing-forecast",
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Service:  service,
		Feedback: feedback,
		Tracker:  fishing.NewRequestTracker(),
	})

	go func() {
		log.Info("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}

// newCache prefers Redis when configured and falls back to the in-memory cache.
func newCache(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) fishing.Cache {
	if cfg.RedisAddr != "" {
		rc, err := store.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err == nil {
			log.Info("using redis weather cache", "addr", cfg.RedisAddr)
			return rc
		}
		log.Warn("redis unavailable, using in-memory cache", "addr", cfg.RedisAddr, "error", err)
	}
	return store.NewMemoryCache(cfg.CacheMaxEntries, cfg.CacheTTL)
}

func openFeedback(path string) (*store.FeedbackStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return store.OpenFeedbackStore(path)
}
