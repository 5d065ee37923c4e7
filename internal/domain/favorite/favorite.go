// Package favorite provides the Favorite domain entity.
package favorite

import (
	"time"

	"github.com/osa030/harmony/internal/domain/track"
)

// Favorite is a track the user marked as favorite.
type Favorite struct {
	Track   track.Track
	AddedAt time.Time
}

// New creates a favorite for t added at the given time.
func New(t track.Track, addedAt time.Time) Favorite {
	return Favorite{Track: t, AddedAt: addedAt}
}
