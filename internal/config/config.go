// Package config loads application configuration from file, environment and
// defaults via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Search    SearchConfig    `mapstructure:"search"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// SearchConfig holds smart search pipeline configuration.
type SearchConfig struct {
	MaxProviders    int `mapstructure:"max_providers"`
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
	CacheMaxItems   int `mapstructure:"cache_max_items"`
}

// TelemetryConfig holds telemetry service configuration.
type TelemetryConfig struct {
	Enabled              bool `mapstructure:"enabled"`
	BufferSize           int  `mapstructure:"buffer_size"`
	FlushIntervalSeconds int  `mapstructure:"flush_interval_seconds"`
}

// ProvidersConfig holds per-provider adapter configuration.
type ProvidersConfig struct {
	TMDB         TMDBConfig         `mapstructure:"tmdb"`
	AniList      AniListConfig      `mapstructure:"anilist"`
	OpenLibrary  OpenLibraryConfig  `mapstructure:"openlibrary"`
	PodcastIndex PodcastIndexConfig `mapstructure:"podcastindex"`
}

// TMDBConfig holds TMDB API configuration.
type TMDBConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	ImageBaseURL string `mapstructure:"image_base_url"`
	Timeout      int    `mapstructure:"timeout"`
}

// AniListConfig holds AniList API configuration.
type AniListConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// OpenLibraryConfig holds Open Library API configuration.
type OpenLibraryConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// PodcastIndexConfig holds Podcast Index API configuration.
type PodcastIndexConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
	Timeout   int    `mapstructure:"timeout"`
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.wigg")
	}

	v.SetEnvPrefix("WIGG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8484)

	v.SetDefault("database.path", "./data/wigg.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")

	v.SetDefault("search.max_providers", 5)
	v.SetDefault("search.cache_ttl_seconds", 300)
	v.SetDefault("search.cache_max_items", 500)

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.buffer_size", 1000)
	v.SetDefault("telemetry.flush_interval_seconds", 30)

	v.SetDefault("providers.tmdb.api_key", "")
	v.SetDefault("providers.tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("providers.tmdb.image_base_url", "https://image.tmdb.org/t/p")
	v.SetDefault("providers.tmdb.timeout", 10)

	v.SetDefault("providers.anilist.base_url", "https://graphql.anilist.co")
	v.SetDefault("providers.anilist.timeout", 10)

	v.SetDefault("providers.openlibrary.base_url", "https://openlibrary.org")
	v.SetDefault("providers.openlibrary.timeout", 10)

	v.SetDefault("providers.podcastindex.api_key", "")
	v.SetDefault("providers.podcastindex.api_secret", "")
	v.SetDefault("providers.podcastindex.base_url", "https://api.podcastindex.org/api/1.0")
	v.SetDefault("providers.podcastindex.timeout", 10)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
