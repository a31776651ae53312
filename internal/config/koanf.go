package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/weather-mood/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			FeedbackRate:    60,
		},
		Storage: StorageConfig{
			Driver: DriverAuto,
		},
		Redis: RedisConfig{
			TTL: time.Hour,
		},
		Weather: WeatherConfig{
			Timeout: 5 * time.Second,
		},
		Spotify: SpotifyConfig{
			Genres:            []string{"pop", "indie", "lofi", "chill", "acoustic"},
			Timeout:           10 * time.Second,
			EnrichConcurrency: 5,
		},
		Explain: ExplainConfig{
			Model:   "gpt-3.5-turbo",
			Timeout: 15 * time.Second,
		},
		Learning: LearningConfig{
			RetentionDays: 30,
			PurgeInterval: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration:
//
//  1. Defaults
//  2. Config file: path, else CONFIG_PATH, else the first of DefaultConfigPaths that exists
//  3. Environment variables
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// Layer 3: environment
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("processing slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set by env.
var sliceConfigPaths = []string{
	"spotify.genres",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		var parts []string
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			if err := k.Set(path, parts); err != nil {
				return fmt.Errorf("setting %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"port":                  "server.port",
	"feedback_rate_limit":   "server.feedback_rate",
	"shutdown_timeout":      "server.shutdown_timeout",
	"storage_driver":        "storage.driver",
	"database_url":          "storage.database_url",
	"sqlite_path":           "storage.sqlite_path",
	"redis_url":             "redis.url",
	"cache_ttl":             "redis.ttl",
	"openweather_api_key":   "weather.api_key",
	"openweather_base_url":  "weather.base_url",
	"weather_timeout":       "weather.timeout",
	"spotify_client_id":     "spotify.client_id",
	"spotify_client_secret": "spotify.client_secret",
	"spotify_seed_genres":   "spotify.genres",
	"spotify_timeout":       "spotify.timeout",
	"openai_api_key":        "explain.api_key",
	"openai_base_url":       "explain.base_url",
	"openai_model":          "explain.model",
	"openai_timeout":        "explain.timeout",
	"mood_retention_days":   "learning.retention_days",
	"mood_purge_interval":   "learning.purge_interval",
	"log_level":             "logging.level",
	"log_format":            "logging.format",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
