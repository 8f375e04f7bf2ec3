package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-places-bot/places"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.False(t, cfg.Telegram.Enabled)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2.0, cfg.RadiusKm())
	assert.Equal(t, 5, cfg.Search.ResultsPerPage)
	assert.Equal(t, 3, cfg.Search.HubPageSize)
	assert.Equal(t, places.DefaultCategories, cfg.Search.Categories)
	assert.Equal(t, DataSourceFile, cfg.Data.Source)
	assert.Equal(t, "data/locations.json", cfg.Data.LocationsFile)
	assert.Equal(t, 5*time.Minute, cfg.Data.ReloadInterval)
	assert.Equal(t, "03:00", cfg.Ingest.DailyAt)
	assert.Equal(t, 2*time.Second, cfg.Ingest.CategoryDelay)
	assert.False(t, cfg.Database.IsConfigured())
	assert.False(t, cfg.RedisConfigured())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SEARCH_RADIUS_M", "1500")
	t.Setenv("RESULTS_PER_PAGE", "6")
	t.Setenv("SUPPORTED_CATEGORIES", "Hotels, Cafes ,,Banks")
	t.Setenv("DATA_SOURCE", "DB")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "bot")
	t.Setenv("DB_NAME", "places")
	t.Setenv("REDIS_HOST", "redis")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1.5, cfg.RadiusKm())
	assert.Equal(t, 6, cfg.Search.ResultsPerPage)
	assert.Equal(t, []string{"Hotels", "Cafes", "Banks"}, cfg.Search.Categories)
	assert.Equal(t, DataSourceDB, cfg.Data.Source)
	assert.True(t, cfg.Database.IsConfigured())
	assert.Contains(t, cfg.Database.ConnectionString(), "search_path=public")
	assert.Equal(t, "redis:6379", cfg.Redis.Addr())
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HUB_PAGE_SIZE=4\nLOG_LEVEL=debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Search.HubPageSize)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"zero page size", "RESULTS_PER_PAGE", "0"},
		{"negative radius", "SEARCH_RADIUS_M", "-5"},
		{"unknown data source", "DATA_SOURCE", "s3"},
		{"unknown provider", "INGEST_PROVIDERS", "bing"},
		{"bad daily time", "INGEST_DAILY_AT", "3am"},
		{"bot without token", "ENABLE_TELEGRAM_BOT", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
