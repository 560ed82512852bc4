package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/i474232898/fishing-forecast/internal/fishing"
)

type AppConfig struct {
	Port        string        `envconfig:"PORT" default:"8080"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s" validate:"gt=0"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn warning error"`

	OpenWeatherAPIKey string `envconfig:"OPENWEATHER_API_KEY"`
	OpenAIAPIKey      string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel       string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	GoogleMapsAPIKey  string `envconfig:"GOOGLE_MAPS_API_KEY"`

	// Weather cache retention.
	CacheTTL           time.Duration `envconfig:"CACHE_TTL" default:"6h" validate:"gte=0"`
	CacheMaxEntries    int           `envconfig:"CACHE_MAX_ENTRIES" default:"1000" validate:"gte=0"`
	CachePruneInterval time.Duration `envconfig:"CACHE_PRUNE_INTERVAL" default:"15m" validate:"gt=0"`

	// Optional shared cache; empty keeps the in-memory cache.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	FeedbackDBPath string `envconfig:"FEEDBACK_DB_PATH" default:"data/feedback.db" validate:"required"`

	RetryBaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s" validate:"gt=0"`
	RetryMaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3" validate:"gte=1,lte=10"`

	// LocalTimezone decides what "today" means for date validation.
	LocalTimezone string `envconfig:"LOCAL_TIMEZONE" default:"Local"`

	// FavoriteSpots are "lat:lon" pairs whose weather the scheduler keeps warm.
	FavoriteSpots string `envconfig:"FAVORITE_SPOTS"`

	Location *time.Location       `ignored:"true"`
	Spots    []fishing.Coordinate `ignored:"true"`
}

// Load reads configuration from the environment (and an optional .env file) with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	loc, err := time.LoadLocation(cfg.LocalTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid LOCAL_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	spots, err := ParseSpots(cfg.FavoriteSpots)
	if err != nil {
		return nil, err
	}
	cfg.Spots = spots

	return cfg, nil
}

// RetryPolicy builds the aggregator's backoff policy.
func (c *AppConfig) RetryPolicy() fishing.RetryPolicy {
	return fishing.RetryPolicy{
		MaxAttempts: c.RetryMaxAttempts,
		BaseDelay:   c.RetryBaseDelay,
	}
}

// ParseSpots parses a comma separated list of "lat:lon" pairs.
func ParseSpots(raw string) ([]fishing.Coordinate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var spots []fishing.Coordinate
	for _, item := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(item), ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid FAVORITE_SPOTS entry %q: expected lat:lon", item)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude in FAVORITE_SPOTS entry %q: %w", item, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude in FAVORITE_SPOTS entry %q: %w", item, err)
		}
		c := fishing.Coordinate{Latitude: lat, Longitude: lon}
		if !c.Valid() {
			return nil, fmt.Errorf("FAVORITE_SPOTS entry %q is out of range", item)
		}
		spots = append(spots, c)
	}

	return spots, nil
}
