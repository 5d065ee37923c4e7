package playback

import (
	"net/url"
	"time"

	"github.com/osa030/harmony/internal/domain/track"
)

// FailureKind classifies effect failures.
type FailureKind int

const (
	FailureStreamLoad          FailureKind = iota // Player could not load the stream
	FailureFavoritePersistence                    // Favorite store add/delete/query failed
	FailureExternalOpen                           // Info page could not be opened
)

// String returns the string representation of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureStreamLoad:
		return "stream_load"
	case FailureFavoritePersistence:
		return "favorite_persistence"
	case FailureExternalOpen:
		return "external_open"
	default:
		return "unknown"
	}
}

// Effect is work requested by a reduction.
// Player commands are synchronous; the rest perform I/O and re-enter as intents.
type Effect interface {
	isEffect()
}

// LoadStream loads URL into the player. Re-enters as InitialTimeKnown.
type LoadStream struct {
	URL string
}

// PlayerPlay starts the player.
type PlayerPlay struct{}

// PlayerPause pauses the player.
type PlayerPause struct{}

// PlayerSeek moves the player to Time.
type PlayerSeek struct {
	Time time.Duration
}

// PlayerSetVolume sets the player output level.
type PlayerSetVolume struct {
	Level float64
}

// AddFavorite persists Track as favorite. Re-enters as FavoriteSaved.
type AddFavorite struct {
	Track track.Track
}

// DeleteFavorite removes Track from favorites. Re-enters as FavoriteSaved.
type DeleteFavorite struct {
	Track track.Track
}

// QueryFavorite asks whether TrackID is a favorite. Re-enters as FavoriteStatus.
type QueryFavorite struct {
	TrackID int64
}

// OpenExternal hands URL to the external opener. Re-enters as InfoOpened.
type OpenExternal struct {
	URL *url.URL
}

// Send enqueues a follow-up intent, reduced before any other queued intent.
type Send struct {
	Intent Intent
}

// ReportFailure publishes an effect failure on the error side-channel.
type ReportFailure struct {
	Kind FailureKind
	Err  error
}

func (LoadStream) isEffect()      {}
func (PlayerPlay) isEffect()      {}
func (PlayerPause) isEffect()     {}
func (PlayerSeek) isEffect()      {}
func (PlayerSetVolume) isEffect() {}
func (AddFavorite) isEffect()     {}
func (DeleteFavorite) isEffect()  {}
func (QueryFavorite) isEffect()   {}
func (OpenExternal) isEffect()    {}
func (Send) isEffect()            {}
func (ReportFailure) isEffect()   {}
