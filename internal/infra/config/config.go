// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Catalog source types.
const (
	SourceITunes  = "itunes"
	SourceSpotify = "spotify"
)

// Config represents the application configuration.
type Config struct {
	Player    PlayerConfig    `yaml:"player"`
	Favorites FavoritesConfig `yaml:"favorites"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Spotify   SpotifyConfig   `yaml:"spotify"`
}

// PlayerConfig represents playback session configuration.
type PlayerConfig struct {
	TickIntervalMs int      `yaml:"tick_interval_ms" default:"1000" validate:"gte=100,lte=10000"`
	SeekStepSec    int      `yaml:"seek_step_sec" default:"10" validate:"gte=1,lte=60"`
	DefaultVolume  *float64 `yaml:"default_volume" default:"1.0" validate:"required,gte=0,lte=1"`
	SampleRate     int      `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	EventBuffer    int      `yaml:"event_buffer" default:"64" validate:"gte=1"`
	MaxStreamBytes int64    `yaml:"max_stream_bytes" default:"33554432" validate:"gte=1024"`
}

// TickInterval returns the position tick period.
func (p PlayerConfig) TickInterval() time.Duration {
	return time.Duration(p.TickIntervalMs) * time.Millisecond
}

// Volume returns the initial volume level.
func (p PlayerConfig) Volume() float64 {
	if p.DefaultVolume == nil {
		return 1
	}
	return *p.DefaultVolume
}

// SeekStep returns the relative seek step.
func (p PlayerConfig) SeekStep() time.Duration {
	return time.Duration(p.SeekStepSec) * time.Second
}

// FavoritesConfig represents favorite store configuration.
type FavoritesConfig struct {
	Path  string `yaml:"path" default:"favorites.yaml"`
	Watch *bool  `yaml:"watch" default:"true"`
}

// WatchEnabled returns true if the favorites file should be watched for changes.
func (f FavoritesConfig) WatchEnabled() bool {
	return f.Watch == nil || *f.Watch
}

// CatalogConfig represents track catalog configuration.
type CatalogConfig struct {
	Sources []SourceConfig `yaml:"sources" validate:"required,min=1,dive"`
}

// SourceConfig represents a single catalog source configuration.
type SourceConfig struct {
	Type        string         `yaml:"type" validate:"required,oneof=itunes spotify"`
	DisplayName string         `yaml:"display_name"`
	Settings    map[string]any `yaml:"settings"`
}

// SpotifyConfig represents Spotify API configuration.
// Credentials are only required when a spotify catalog source is configured.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"US"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Default returns a configuration with a single iTunes catalog source.
func Default() *Config {
	cfg := &Config{
		Catalog: CatalogConfig{
			Sources: []SourceConfig{{Type: SourceITunes, DisplayName: "iTunes"}},
		},
	}
	cfg.overrideFromEnv()
	// defaults.Set only fails on malformed tags.
	_ = defaults.Set(cfg)
	return cfg
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("HARMONY_FAVORITES_PATH"); v != "" {
		c.Favorites.Path = v
	}
}

// HasSource checks if a catalog source of the given type is configured.
func (c *Config) HasSource(sourceType string) bool {
	return slices.ContainsFunc(c.Catalog.Sources, func(s SourceConfig) bool {
		return s.Type == sourceType
	})
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.HasSource(SourceSpotify) {
		if c.Spotify.ClientID == "" {
			return errors.New("spotify.client_id is required when a spotify source is configured")
		}
		if c.Spotify.ClientSecret == "" {
			return errors.New("spotify.client_secret is required when a spotify source is configured")
		}
	}

	return nil
}
