package playback

import "time"

// Reduce is the session transition function. It never mutates its input and
// performs no I/O; the returned effects describe the work to run, in order.
// Once the state is closed every intent is ignored.
func Reduce(s State, in Intent) (State, []Effect) {
	if s.Closed {
		return s, nil
	}

	switch c := in.(type) {
	case PlayerControlIntent:
		s.Player = s.Player.Reduce(c)
	case TrackControlIntent:
		s.Controls = s.Controls.Reduce(c)
	case VolumeControlIntent:
		s.Volume = s.Volume.Reduce(c)
	}

	switch in := in.(type) {
	case OpenStream:
		if s.StreamURL != "" {
			return s, nil
		}
		s.StreamURL = in.URL
		s.IsLoading = true
		return s, []Effect{LoadStream{URL: in.URL}}

	case InitialTimeKnown:
		s.TotalDuration = max(in.Duration, 0)
		s.CurrentTime = s.clampTime(in.Current)
		s.IsLoading = false
		return s, []Effect{Send{Intent: PlayRequested{Play: true}}}

	case SeekTo:
		s.CurrentTime = s.clampTime(in.Time)
		return s, []Effect{PlayerSeek{Time: s.CurrentTime}}

	case Tick:
		return tick(s, in.Time)

	case CheckFavorite:
		return s, []Effect{QueryFavorite{TrackID: s.Track.ID}}

	case FavoriteStatus:
		s.Controls.IsFavorite = in.IsFavorite
		return s, nil

	case FavoriteSaved:
		return s, nil

	case InfoOpened:
		return s, []Effect{Send{Intent: PlayRequested{Play: false}}}

	case SetInfoPopover:
		s.ShowInfoPopover = in.Show
		return s, nil

	case Dismiss:
		s.Closed = true
		s.Player.IsPlaying = false
		return s, []Effect{PlayerPause{}}

	case EffectFailed:
		return s, []Effect{ReportFailure{Kind: in.Kind, Err: in.Err}}

	// Player control
	case PlayRequested:
		if in.Play {
			return s, []Effect{PlayerPlay{}}
		}
		return s, []Effect{PlayerPause{}}

	case RelativeSeek:
		s.CurrentTime = s.clampTime(s.CurrentTime + in.Delta)
		return s, []Effect{PlayerSeek{Time: s.CurrentTime}}

	// Track control
	case ToggleFavorite:
		if in.Favorite {
			return s, []Effect{AddFavorite{Track: s.Track}}
		}
		return s, []Effect{DeleteFavorite{Track: s.Track}}

	case SetMute:
		return s, []Effect{Send{Intent: MuteVolume{Mute: in.Mute}}}

	case SetRepeatMode:
		return s, nil

	case OpenInfo:
		link, ok := s.Track.InfoLink()
		if !ok {
			return s, nil
		}
		return s, []Effect{OpenExternal{URL: link}}

	// Volume control
	case MuteVolume:
		return s, []Effect{Send{Intent: SetVolume{Level: s.Volume.Level}}}

	case SetVolume:
		s.Controls.IsMute = s.Volume.Level == 0
		return s, []Effect{PlayerSetVolume{Level: s.Volume.Level}}
	}

	return s, nil
}

// tick updates the position and applies the end-of-track policy.
// Ticks are ignored unless the player control is playing.
func tick(s State, t time.Duration) (State, []Effect) {
	if !s.Player.IsPlaying || s.IsLoading {
		return s, nil
	}

	s.CurrentTime = s.clampTime(t)
	if t < s.TotalDuration {
		return s, nil
	}

	// RepeatAlways is consumed by a single repeat.
	shouldPause := s.Controls.RepeatMode == PlayOnce
	if s.Controls.RepeatMode == RepeatAlways {
		s.Controls.RepeatMode = PlayOnce
	}

	return s, []Effect{
		Send{Intent: SeekTo{Time: 0}},
		Send{Intent: PlayRequested{Play: !shouldPause}},
	}
}
