package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"telegram-places-bot/places"
)

type Config struct {
	Telegram TelegramConfig
	Server   ServerConfig
	Search   SearchConfig
	Data     DataConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Ingest   IngestConfig
	Log      LogConfig
}

type TelegramConfig struct {
	Enabled bool
	Token   string `validate:"required_if=Enabled true"`
}

type ServerConfig struct {
	Host string
	Port int `validate:"gt=0,lte=65535"`
}

type SearchConfig struct {
	RadiusMeters     float64  `validate:"gt=0"`
	ResultsPerPage   int      `validate:"gt=0"`
	CategoryPageSize int      `validate:"gt=0"`
	HubPageSize      int      `validate:"gt=0"`
	Categories       []string `validate:"min=1,dive,required"`
	SessionTTL       time.Duration
}

type DataConfig struct {
	Source         string `validate:"oneof=file db"`
	LocationsFile  string `validate:"required_if=Source file"`
	HubsFile       string
	ReloadInterval time.Duration `validate:"gt=0"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	DBName           string
	Schema           string
	SSLMode          string
	AllowInsecureSSL bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type IngestConfig struct {
	GoogleMapsAPIKey string
	Providers        string `validate:"oneof=osm google both"`
	OverpassURL      string `validate:"url"`
	DailyAt          string `validate:"datetime=15:04"`
	RunOnce          bool
	CategoryDelay    time.Duration
}

type LogConfig struct {
	Level string
}

const (
	DataSourceFile = "file"
	DataSourceDB   = "db"
)

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENABLE_TELEGRAM_BOT", false)
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SEARCH_RADIUS_M", 2000)
	v.SetDefault("RESULTS_PER_PAGE", 5)
	v.SetDefault("CATEGORY_PAGE_SIZE", 5)
	v.SetDefault("HUB_PAGE_SIZE", 3)
	v.SetDefault("SESSION_TTL_S", 3600)
	v.SetDefault("DATA_SOURCE", DataSourceFile)
	v.SetDefault("LOCATIONS_FILE", "data/locations.json")
	v.SetDefault("HUBS_FILE", "data/transport_hubs.json")
	v.SetDefault("RELOAD_INTERVAL_S", 300)
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("DB_SSLMODE", "prefer")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("INGEST_PROVIDERS", "osm")
	v.SetDefault("OVERPASS_URL", "https://overpass-api.de/api/interpreter")
	v.SetDefault("INGEST_DAILY_AT", "03:00")
	v.SetDefault("INGEST_CATEGORY_DELAY_MS", 2000)
}

// Load reads configuration from the environment, with envFile as an optional source of
// defaults. A missing envFile is not an error.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			Enabled: v.GetBool("ENABLE_TELEGRAM_BOT"),
			Token:   v.GetString("TELEGRAM_BOT_TOKEN"),
		},
		Server: ServerConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		Search: SearchConfig{
			RadiusMeters:     v.GetFloat64("SEARCH_RADIUS_M"),
			ResultsPerPage:   v.GetInt("RESULTS_PER_PAGE"),
			CategoryPageSize: v.GetInt("CATEGORY_PAGE_SIZE"),
			HubPageSize:      v.GetInt("HUB_PAGE_SIZE"),
			Categories:       parseList(v.GetString("SUPPORTED_CATEGORIES")),
			SessionTTL:       time.Duration(v.GetInt("SESSION_TTL_S")) * time.Second,
		},
		Data: DataConfig{
			Source:         strings.ToLower(v.GetString("DATA_SOURCE")),
			LocationsFile:  v.GetString("LOCATIONS_FILE"),
			HubsFile:       v.GetString("HUBS_FILE"),
			ReloadInterval: time.Duration(v.GetInt("RELOAD_INTERVAL_S")) * time.Second,
		},
		Database: DatabaseConfig{
			Host:             v.GetString("DB_HOST"),
			Port:             v.GetInt("DB_PORT"),
			User:             v.GetString("DB_USER"),
			Password:         v.GetString("DB_PASSWORD"),
			DBName:           v.GetString("DB_NAME"),
			Schema:           v.GetString("DB_SCHEMA"),
			SSLMode:          v.GetString("DB_SSLMODE"),
			AllowInsecureSSL: v.GetBool("DB_ALLOW_INSECURE_SSL"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Ingest: IngestConfig{
			GoogleMapsAPIKey: v.GetString("GOOGLE_MAPS_API_KEY"),
			Providers:        strings.ToLower(v.GetString("INGEST_PROVIDERS")),
			OverpassURL:      v.GetString("OVERPASS_URL"),
			DailyAt:          v.GetString("INGEST_DAILY_AT"),
			RunOnce:          v.GetBool("INGEST_RUN_ONCE"),
			CategoryDelay:    time.Duration(v.GetInt("INGEST_CATEGORY_DELAY_MS")) * time.Millisecond,
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}

	if len(cfg.Search.Categories) == 0 {
		cfg.Search.Categories = append([]string(nil), places.DefaultCategories...)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// RadiusKm is the search radius in kilometers.
func (c *Config) RadiusKm() float64 {
	return c.Search.RadiusMeters / 1000
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfigured reports whether a Redis host was given.
func (c *Config) RedisConfigured() bool {
	return c.Redis.Host != ""
}

// IsConfigured returns true if database configuration is provided
func (c DatabaseConfig) IsConfigured() bool {
	return c.Host != "" && c.DBName != "" && c.User != ""
}

// ConnectionString builds a PostgreSQL connection string from config
func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.Schema,
	)
}
