// Package config loads service configuration from defaults, an optional YAML
// file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Storage drivers.
const (
	DriverAuto     = "auto"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Redis    RedisConfig    `koanf:"redis"`
	Weather  WeatherConfig  `koanf:"weather"`
	Spotify  SpotifyConfig  `koanf:"spotify"`
	Explain  ExplainConfig  `koanf:"explain"`
	Learning LearningConfig `koanf:"learning"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	FeedbackRate    int           `koanf:"feedback_rate" validate:"gte=1"` // Feedback requests per minute per client
}

// StorageConfig selects the durable store.
type StorageConfig struct {
	Driver      string `koanf:"driver" validate:"oneof=auto postgres sqlite memory"`
	DatabaseURL string `koanf:"database_url"`
	SQLitePath  string `koanf:"sqlite_path"`
}

// ResolvedDriver returns the driver to use, resolving "auto" from what is configured.
func (s StorageConfig) ResolvedDriver() string {
	if s.Driver != DriverAuto {
		return s.Driver
	}
	switch {
	case s.DatabaseURL != "":
		return DriverPostgres
	case s.SQLitePath != "":
		return DriverSQLite
	default:
		return DriverMemory
	}
}

// RedisConfig configures the cache. An empty URL disables caching.
type RedisConfig struct {
	URL string        `koanf:"url"`
	TTL time.Duration `koanf:"ttl" validate:"gt=0"`
}

// WeatherConfig configures the OpenWeatherMap client.
type WeatherConfig struct {
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// SpotifyConfig configures the Spotify catalog. Without credentials the
// static catalog is used.
type SpotifyConfig struct {
	ClientID          string        `koanf:"client_id"`
	ClientSecret      string        `koanf:"client_secret"`
	Genres            []string      `koanf:"genres" validate:"min=1,max=5"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	EnrichConcurrency int           `koanf:"enrich_concurrency" validate:"gte=1,lte=20"`
}

// Enabled reports whether credentials are configured.
func (s SpotifyConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// ExplainConfig configures the chat completions client.
type ExplainConfig struct {
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url" validate:"omitempty,url"`
	Model   string        `koanf:"model" validate:"required"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// LearningConfig configures feedback retention.
type LearningConfig struct {
	RetentionDays int           `koanf:"retention_days" validate:"gte=1"`
	PurgeInterval time.Duration `koanf:"purge_interval" validate:"gte=1m"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validatorInstance().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidConfig, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres storage requires DATABASE_URL", ErrInvalidConfig)
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite storage requires SQLITE_PATH", ErrInvalidConfig)
		}
	}

	if (c.Spotify.ClientID == "") != (c.Spotify.ClientSecret == "") {
		return fmt.Errorf("%w: SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET must be set together", ErrInvalidConfig)
	}
	return nil
}
