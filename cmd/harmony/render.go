package main

import (
	"fmt"
	"strings"

	"github.com/osa030/harmony/internal/app/playback"
	"github.com/osa030/harmony/internal/app/session"
	"github.com/osa030/harmony/internal/domain/track"
)

// renderer prints session events to the prompt. Position ticks are not
// printed; use the status command to see the current time.
type renderer struct {
	last string
}

// render returns the text to print for e, or "" if nothing visible changed.
func (r *renderer) render(e session.Event) string {
	switch e.Type {
	case session.EventStateChanged:
		line := controlsLine(e.State)
		if e.State.ShowInfoPopover {
			line += "\n" + popover(e.State.Track)
		}
		if line == r.last {
			return ""
		}
		r.last = line
		return line
	case session.EventEffectFailed:
		return fmt.Sprintf("! %s: %v", e.Failure, e.Err)
	case session.EventClosed:
		return "closed"
	}
	return ""
}

// header describes the track when the session opens.
func header(t track.Track) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s", t.Title, t.Artist)
	if t.CollectionName != "" {
		fmt.Fprintf(&b, " - %s", t.CollectionName)
	}
	if t.ArtworkURL != "" {
		fmt.Fprintf(&b, "\nartwork: %s", t.LargeArtworkURL())
	}
	return b.String()
}

// controlsLine renders everything but the position.
func controlsLine(s playback.State) string {
	var flags []string
	switch {
	case s.IsLoading:
		flags = append(flags, "[loading]")
	case s.IsPlaying():
		flags = append(flags, "[playing]")
	default:
		flags = append(flags, "[paused]")
	}
	if s.IsMuted() {
		flags = append(flags, "muted")
	} else {
		flags = append(flags, fmt.Sprintf("vol %d%%", volumePercent(s.Level())))
	}
	if s.IsFavorite() {
		flags = append(flags, "fav")
	}
	if s.RepeatMode() == playback.RepeatAlways {
		flags = append(flags, "repeat")
	}
	return strings.Join(flags, " ")
}

// statusLine renders the position as elapsed and remaining time.
func statusLine(s playback.State) string {
	if s.IsLoading {
		return controlsLine(s)
	}
	return fmt.Sprintf("%s / -%s  %s",
		track.FormatTime(s.CurrentTime), track.FormatTime(s.Remaining()), controlsLine(s))
}

func popover(t track.Track) string {
	name := t.CollectionName
	if name == "" {
		name = "(unknown collection)"
	}
	return fmt.Sprintf("  collection: %s by %s", name, t.Artist)
}

func volumePercent(level float64) int {
	return int(level*100 + 0.5)
}
