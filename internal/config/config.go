// Package config provides application configuration with multi-source
// priority.
//
// Sources, highest to lowest:
//  1. Environment variables (DATABASE_URL, GEMINI_API_KEY, WYBORCZY_*)
//  2. Config file (~/.wyborczy/config.yaml or ./config.yaml)
//  3. Defaults
//
// Validation is fail-fast: Load returns an error for any out-of-range value,
// using sentinel errors so callers can match with errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates GEMINI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates an empty model name.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates a temperature outside [0, 2].
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates a non-positive max token count.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates an empty embedder model.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidSourceCount indicates a retrieval topK outside [1, 20].
	ErrInvalidSourceCount = errors.New("invalid max source count")

	// ErrInvalidRateQuota indicates a non-positive rate-limit quota.
	ErrInvalidRateQuota = errors.New("invalid rate limit quota")

	// ErrInvalidRateWindow indicates a non-positive rate-limit window.
	ErrInvalidRateWindow = errors.New("invalid rate limit window")

	// ErrInvalidPostgresHost indicates an empty PostgreSQL host.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates a PostgreSQL port outside [1, 65535].
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates an empty PostgreSQL database name.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")
)

// Defaults mirroring the production deployment.
const (
	// DefaultModelName is the chat model used for answer generation.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultEmbedderModel outputs 768-dimension vectors matching the
	// pgvector schema in db/migrations.
	DefaultEmbedderModel = "text-embedding-004"

	// DefaultMaxSourceCount is how many passages ground each answer.
	DefaultMaxSourceCount = 5

	// DefaultRateQuota is the number of generations allowed per caller
	// within the rate window.
	DefaultRateQuota = 10

	// DefaultRateWindowHours is the sliding-window length in hours.
	DefaultRateWindowHours = 24
)

// Config stores application configuration.
type Config struct {
	// Generation
	ModelName   string  `mapstructure:"model_name"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	// Retrieval
	EmbedderModel  string `mapstructure:"embedder_model"`
	MaxSourceCount int    `mapstructure:"max_source_count"`

	// Rate limiting
	RateQuota       int `mapstructure:"rate_quota"`
	RateWindowHours int `mapstructure:"rate_window_hours"`

	// Storage (see storage.go for DSN builders)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE: never logged
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// HTTP server
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (set behind reverse proxy)

	// Logging
	LogJSON  bool   `mapstructure:"log_json"`
	LogLevel string `mapstructure:"log_level"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".wyborczy")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	v.SetEnvPrefix("WYBORCZY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every default configuration value.
func setDefaults(v *viper.Viper) {
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("temperature", 0.3)
	v.SetDefault("max_tokens", 1000)

	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("max_source_count", DefaultMaxSourceCount)

	v.SetDefault("rate_quota", DefaultRateQuota)
	v.SetDefault("rate_window_hours", DefaultRateWindowHours)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "wyborczy")
	v.SetDefault("postgres_password", "wyborczy_dev_password")
	v.SetDefault("postgres_db_name", "wyborczy")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("addr", "127.0.0.1:3500")
	v.SetDefault("cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("trust_proxy", false)

	v.SetDefault("log_json", false)
	v.SetDefault("log_level", "info")
}

// Validate checks all configuration values, fail-fast.
func (c *Config) Validate() error {
	if c.ModelName == "" {
		return ErrInvalidModelName
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be in [0, 2])", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.EmbedderModel == "" {
		return ErrInvalidEmbedderModel
	}
	if c.MaxSourceCount < 1 || c.MaxSourceCount > 20 {
		return fmt.Errorf("%w: %d (must be in [1, 20])", ErrInvalidSourceCount, c.MaxSourceCount)
	}
	if c.RateQuota <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRateQuota, c.RateQuota)
	}
	if c.RateWindowHours <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRateWindow, c.RateWindowHours)
	}
	if c.PostgresHost == "" {
		return ErrInvalidPostgresHost
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return ErrInvalidPostgresDBName
	}
	return nil
}

// CheckAPIKey verifies the Gemini API key is available. Genkit reads the key
// directly from the environment, so this is a startup guard rather than a
// config field.
func CheckAPIKey() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrMissingAPIKey)
	}
	return nil
}

// LogLevelSlog maps the configured log level string to a slog.Level.
// Unknown values default to info.
func (c *Config) LogLevelSlog() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
