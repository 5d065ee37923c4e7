package session

import (
	"context"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/harmony/internal/domain/track"
)

// MusicPlayer is the audio engine driven by a session.
// Implementations must be safe for concurrent use: CurrentTime is called
// from the tick goroutine while commands arrive from the session loop.
type MusicPlayer interface {
	// SetURL loads the stream and returns its duration.
	SetURL(ctx context.Context, url string) (time.Duration, error)
	Play()
	Pause()
	Seek(t time.Duration)
	SetVolume(level float64)
	CurrentTime() time.Duration
}

// FavoriteStore persists favorite tracks.
type FavoriteStore interface {
	IsFavorite(ctx context.Context, trackID int64) (bool, error)
	AddFavorite(ctx context.Context, t track.Track) error
	DeleteFavorite(ctx context.Context, t track.Track) error
}

// ExternalOpener opens a URL outside the application (e.g. a browser).
type ExternalOpener interface {
	Open(ctx context.Context, u *url.URL) (bool, error)
}

// Ports groups the capabilities a session depends on.
type Ports struct {
	Player    MusicPlayer
	Favorites FavoriteStore
	Opener    ExternalOpener
}

func (p Ports) validate() error {
	if p.Player == nil {
		return errors.New("music player is required")
	}
	if p.Favorites == nil {
		return errors.New("favorite store is required")
	}
	if p.Opener == nil {
		return errors.New("external opener is required")
	}
	return nil
}
