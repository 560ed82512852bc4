package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/fishing-forecast/internal/fishing"
)

func TestParseSpots(t *testing.T) {
	spots, err := ParseSpots(" 30.69:-88.04 , 39.74:-104.99")
	require.NoError(t, err)
	assert.Equal(t, []fishing.Coordinate{
		{Latitude: 30.69, Longitude: -88.04},
		{Latitude: 39.74, Longitude: -104.99},
	}, spots)

	spots, err = ParseSpots("")
	require.NoError(t, err)
	assert.Empty(t, spots)

	for _, bad := range []string{"30.69", "abc:1", "1:abc", "95:10"} {
		_, err := ParseSpots(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LOCAL_TIMEZONE", "UTC")
	t.Setenv("FAVORITE_SPOTS", "30.69:-88.04")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 6*time.Hour, cfg.CacheTTL)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Len(t, cfg.Spots, 1)
	assert.Equal(t, fishing.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}, cfg.RetryPolicy())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("LOCAL_TIMEZONE", "Mars/Olympus_Mons")
	_, err := Load()
	assert.Error(t, err)
}
