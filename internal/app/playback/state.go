// Package playback provides the playback session state machine.
//
// The machine is a pure transition function: Reduce takes the current State
// and an Intent and returns the next State plus the Effects the caller must
// run. It performs no I/O; see package session for the effect runner.
package playback

import (
	"time"

	"github.com/osa030/harmony/internal/domain/track"
)

// RepeatMode represents what happens when the track reaches its end.
type RepeatMode int

const (
	PlayOnce     RepeatMode = iota // Rewind and pause at end of track
	RepeatAlways                   // Rewind and keep playing once, then fall back to PlayOnce
)

// String returns the string representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case PlayOnce:
		return "play_once"
	case RepeatAlways:
		return "repeat_always"
	default:
		return "unknown"
	}
}

// PlayerControlState is the state owned by the player control.
type PlayerControlState struct {
	IsPlaying bool
}

// TrackControlState is the state owned by the track control.
type TrackControlState struct {
	IsFavorite bool
	IsMute     bool
	RepeatMode RepeatMode
}

// VolumeControlState is the state owned by the volume control.
// Both levels are in [0,1].
type VolumeControlState struct {
	Level         float64
	PreviousLevel float64 // Level to restore on unmute
}

// State is the playback session state for one open track.
type State struct {
	Track           track.Track
	StreamURL       string // Empty until the first OpenStream
	IsLoading       bool   // True until the duration is known
	CurrentTime     time.Duration
	TotalDuration   time.Duration
	ShowInfoPopover bool
	Closed          bool // Set by Dismiss; no further intents are reduced

	Player   PlayerControlState
	Controls TrackControlState
	Volume   VolumeControlState
}

// NewState creates the initial state for a session opened on t.
func NewState(t track.Track, level float64) State {
	level = clampLevel(level)
	return State{
		Track:     t,
		IsLoading: true,
		Controls: TrackControlState{
			IsMute:     level == 0,
			RepeatMode: PlayOnce,
		},
		Volume: VolumeControlState{
			Level:         level,
			PreviousLevel: level,
		},
	}
}

// IsPlaying returns true if the player control is playing.
func (s State) IsPlaying() bool { return s.Player.IsPlaying }

// IsMuted returns true if audio is muted.
func (s State) IsMuted() bool { return s.Controls.IsMute }

// IsFavorite returns true if the track is a favorite.
func (s State) IsFavorite() bool { return s.Controls.IsFavorite }

// RepeatMode returns the current repeat mode.
func (s State) RepeatMode() RepeatMode { return s.Controls.RepeatMode }

// Level returns the current volume level.
func (s State) Level() float64 { return s.Volume.Level }

// Remaining returns the time left until the end of the track.
func (s State) Remaining() time.Duration {
	return s.TotalDuration - s.CurrentTime
}

// clampTime clamps t into [0, s.TotalDuration].
func (s State) clampTime(t time.Duration) time.Duration {
	if t < 0 {
		return 0
	}
	if t > s.TotalDuration {
		return s.TotalDuration
	}
	return t
}

func clampLevel(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
