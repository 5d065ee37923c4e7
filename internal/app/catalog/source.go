// Package catalog resolves tracks from music catalogs.
package catalog

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/harmony/internal/domain/track"
)

// Errors
var (
	ErrTrackNotFound  = errors.New("track not found in any catalog")
	ErrUnsupportedRef = errors.New("reference not supported by source")
)

// Source is the interface for track catalogs.
type Source interface {
	// Lookup resolves a single track from a catalog reference (ID, URL or URI).
	// Sources return ErrUnsupportedRef for references they cannot interpret.
	Lookup(ctx context.Context, ref string) (track.Track, error)

	// Search returns tracks matching term, best match first.
	Search(ctx context.Context, term string) ([]track.Track, error)

	// Name returns the source type (used in config).
	Name() string
}

// ITunesClient defines the iTunes operations needed by the catalog.
type ITunesClient interface {
	Lookup(ctx context.Context, id int64) (track.Track, error)
	Search(ctx context.Context, term string, limit int) ([]track.Track, error)
}

// SpotifyClient defines the Spotify operations needed by the catalog.
type SpotifyClient interface {
	GetTrack(ctx context.Context, trackID string) (track.Track, error)
	Search(ctx context.Context, query string, limit int) ([]track.Track, error)
}
