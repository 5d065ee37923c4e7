package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/harmony/internal/domain/track"
)

type SpotifySourceConfig struct {
	Limit int `yaml:"limit" mapstructure:"limit" default:"20" validate:"gte=1,lte=50"`
	// Drop search results without a preview stream.
	PlayableOnly bool `yaml:"playable_only" mapstructure:"playable_only"`
}

// SpotifySource resolves tracks through the Spotify Web API.
// References are Spotify IDs, open.spotify.com URLs or spotify:track URIs.
type SpotifySource struct {
	client SpotifyClient
	config *SpotifySourceConfig
}

// NewSpotifySource creates a new SpotifySource.
func NewSpotifySource(client SpotifyClient, settings map[string]any) (*SpotifySource, error) {
	if client == nil {
		return nil, errors.New("spotify client is required")
	}

	var config SpotifySourceConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &SpotifySource{client: client, config: &config}, nil
}

// Lookup resolves a Spotify reference. Numeric references belong to iTunes.
func (s *SpotifySource) Lookup(ctx context.Context, ref string) (track.Track, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return track.Track{}, errors.Wrap(ErrUnsupportedRef, "empty spotify reference")
	}
	if _, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return track.Track{}, errors.Wrapf(ErrUnsupportedRef, "not a spotify reference: %q", ref)
	}

	t, err := s.client.GetTrack(ctx, ref)
	if err != nil {
		return track.Track{}, errors.Wrap(err, "spotify lookup failed")
	}
	return t, nil
}

// Search searches tracks on Spotify.
func (s *SpotifySource) Search(ctx context.Context, term string) ([]track.Track, error) {
	tracks, err := s.client.Search(ctx, term, s.config.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "spotify search failed")
	}
	if !s.config.PlayableOnly {
		return tracks, nil
	}

	playable := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.HasStream() {
			playable = append(playable, t)
		}
	}
	return playable, nil
}

// Name returns the source name.
func (s *SpotifySource) Name() string {
	return "spotify"
}
