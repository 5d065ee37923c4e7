package playback

import "time"

// Child controls own a slice of State and reduce their own intents against it.
// Reduce runs the child reducer first and then lets the parent intercept the
// same intent, so a child intent can trigger session-level effects.
// A child never reads or writes another child's state; cross-child updates
// go through follow-up intents (SetMute -> MuteVolume -> SetVolume).

// PlayerControlIntent is an intent owned by the player control.
type PlayerControlIntent interface {
	Intent
	playerControl()
}

// TrackControlIntent is an intent owned by the track control.
type TrackControlIntent interface {
	Intent
	trackControl()
}

// VolumeControlIntent is an intent owned by the volume control.
type VolumeControlIntent interface {
	Intent
	volumeControl()
}

// PlayRequested toggles playback.
type PlayRequested struct {
	Play bool
}

// RelativeSeek moves playback by Delta, clamped to the track bounds.
type RelativeSeek struct {
	Delta time.Duration
}

// ToggleFavorite marks or unmarks the track as favorite.
type ToggleFavorite struct {
	Favorite bool
}

// SetMute mutes or unmutes audio.
type SetMute struct {
	Mute bool
}

// SetRepeatMode changes the end-of-track behavior.
type SetRepeatMode struct {
	Mode RepeatMode
}

// OpenInfo opens the track info page externally.
type OpenInfo struct{}

// SetVolume sets the output level. It is the only path that changes
// the player volume.
type SetVolume struct {
	Level float64
}

// MuteVolume zeroes or restores the level, remembering the level to restore.
type MuteVolume struct {
	Mute bool
}

func (PlayRequested) isIntent()  {}
func (RelativeSeek) isIntent()   {}
func (ToggleFavorite) isIntent() {}
func (SetMute) isIntent()        {}
func (SetRepeatMode) isIntent()  {}
func (OpenInfo) isIntent()       {}
func (SetVolume) isIntent()      {}
func (MuteVolume) isIntent()     {}

func (PlayRequested) playerControl() {}
func (RelativeSeek) playerControl()  {}

func (ToggleFavorite) trackControl() {}
func (SetMute) trackControl()        {}
func (SetRepeatMode) trackControl()  {}
func (OpenInfo) trackControl()       {}

func (SetVolume) volumeControl()  {}
func (MuteVolume) volumeControl() {}

// Reduce applies a player control intent.
func (s PlayerControlState) Reduce(in PlayerControlIntent) PlayerControlState {
	switch in := in.(type) {
	case PlayRequested:
		s.IsPlaying = in.Play
	}
	return s
}

// Reduce applies a track control intent.
func (s TrackControlState) Reduce(in TrackControlIntent) TrackControlState {
	switch in := in.(type) {
	case ToggleFavorite:
		s.IsFavorite = in.Favorite
	case SetMute:
		s.IsMute = in.Mute
	case SetRepeatMode:
		s.RepeatMode = in.Mode
	}
	return s
}

// Reduce applies a volume control intent.
func (s VolumeControlState) Reduce(in VolumeControlIntent) VolumeControlState {
	switch in := in.(type) {
	case SetVolume:
		s.Level = clampLevel(in.Level)
	case MuteVolume:
		if in.Mute {
			// Muting twice must not overwrite the remembered level with zero.
			if s.Level > 0 {
				s.PreviousLevel = s.Level
			}
			s.Level = 0
		} else {
			s.Level = s.PreviousLevel
		}
	}
	return s
}
