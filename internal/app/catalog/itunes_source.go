package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/domain/track"
	"github.com/osa030/harmony/internal/infra/itunes"
)

type ITunesSourceConfig struct {
	Country string `yaml:"country" mapstructure:"country" default:"US" validate:"len=2"`
	Limit   int    `yaml:"limit" mapstructure:"limit" default:"25" validate:"gte=1,lte=200"`
}

// ITunesSource resolves tracks through the iTunes Search API.
// References are numeric iTunes track IDs.
type ITunesSource struct {
	client ITunesClient
	config *ITunesSourceConfig
}

// NewITunesSourceConfig decodes and validates iTunes source settings.
func NewITunesSourceConfig(settings map[string]any) (*ITunesSourceConfig, error) {
	var config ITunesSourceConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("itunes source config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &config, nil
}

// NewITunesSource creates a new ITunesSource.
func NewITunesSource(client ITunesClient, config *ITunesSourceConfig) (*ITunesSource, error) {
	if client == nil {
		return nil, errors.New("itunes client is required")
	}
	if config == nil {
		return nil, errors.New("itunes source config is required")
	}
	return &ITunesSource{client: client, config: config}, nil
}

// Lookup resolves a numeric iTunes track ID.
func (s *ITunesSource) Lookup(ctx context.Context, ref string) (track.Track, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64)
	if err != nil || id <= 0 {
		return track.Track{}, errors.Wrapf(ErrUnsupportedRef, "not an itunes track id: %q", ref)
	}

	t, err := s.client.Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, itunes.ErrNotFound) {
			return track.Track{}, errors.Mark(err, ErrTrackNotFound)
		}
		return track.Track{}, errors.Wrap(err, "itunes lookup failed")
	}
	return t, nil
}

// Search searches songs in the configured store.
func (s *ITunesSource) Search(ctx context.Context, term string) ([]track.Track, error) {
	tracks, err := s.client.Search(ctx, term, s.config.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "itunes search failed")
	}
	return tracks, nil
}

// Name returns the source name.
func (s *ITunesSource) Name() string {
	return "itunes"
}
