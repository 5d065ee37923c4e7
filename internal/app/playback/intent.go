package playback

import "time"

// Intent is a user- or system-originated request to change playback state.
type Intent interface {
	isIntent()
}

// OpenStream stores the stream URL and starts loading it into the player.
type OpenStream struct {
	URL string
}

// InitialTimeKnown is posted once the player has loaded the stream.
type InitialTimeKnown struct {
	Current  time.Duration
	Duration time.Duration
}

// SeekTo moves playback to an absolute position.
type SeekTo struct {
	Time time.Duration
}

// Tick reports the player position. Posted periodically while the session is open.
type Tick struct {
	Time time.Duration
}

// CheckFavorite queries the favorite store for the session track.
type CheckFavorite struct{}

// FavoriteStatus is the result of CheckFavorite.
type FavoriteStatus struct {
	IsFavorite bool
}

// FavoriteSaved acknowledges a successful favorite add or delete.
type FavoriteSaved struct {
	Favorite bool
}

// InfoOpened is posted when the track info page has been handed to the opener.
type InfoOpened struct {
	Opened bool
}

// SetInfoPopover shows or hides the collection info popover.
type SetInfoPopover struct {
	Show bool
}

// Dismiss closes the session. It is terminal.
type Dismiss struct{}

// EffectFailed reports a failed effect. It never changes state.
type EffectFailed struct {
	Kind FailureKind
	Err  error
}

func (OpenStream) isIntent()       {}
func (InitialTimeKnown) isIntent() {}
func (SeekTo) isIntent()           {}
func (Tick) isIntent()             {}
func (CheckFavorite) isIntent()    {}
func (FavoriteStatus) isIntent()   {}
func (FavoriteSaved) isIntent()    {}
func (InfoOpened) isIntent()       {}
func (SetInfoPopover) isIntent()   {}
func (Dismiss) isIntent()          {}
func (EffectFailed) isIntent()     {}
