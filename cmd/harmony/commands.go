package main

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"

	"github.com/osa030/harmony/internal/app/playback"
)

// errUnknownCommand is returned for input that maps to no command.
var errUnknownCommand = errors.New("unknown command")

// promptCommand maps a prompt word to a playback intent.
type promptCommand struct {
	name    string
	args    string
	help    string
	aliases []string
	parse   func(args []string, step time.Duration) (playback.Intent, error)
}

var promptCommands = []promptCommand{
	{name: "play", help: "resume playback", parse: noArgs(playback.PlayRequested{Play: true})},
	{name: "pause", help: "pause playback", parse: noArgs(playback.PlayRequested{Play: false})},
	{name: "seek", args: "<m:ss|sec>", help: "jump to a position", parse: parseSeek},
	{name: "fwd", args: "[sec]", help: "skip forward", aliases: []string{"f"}, parse: relativeSeek(1)},
	{name: "back", args: "[sec]", help: "skip backward", aliases: []string{"b"}, parse: relativeSeek(-1)},
	{name: "vol", args: "<0-100>", help: "set the volume", parse: parseVolume},
	{name: "mute", help: "mute audio", parse: noArgs(playback.SetMute{Mute: true})},
	{name: "unmute", help: "restore the volume", parse: noArgs(playback.SetMute{Mute: false})},
	{name: "fav", help: "add to favorites", parse: noArgs(playback.ToggleFavorite{Favorite: true})},
	{name: "unfav", help: "remove from favorites", parse: noArgs(playback.ToggleFavorite{Favorite: false})},
	{name: "repeat", args: "[on|off]", help: "repeat the track once more", parse: parseRepeat},
	{name: "info", help: "open the track page in a browser", parse: noArgs(playback.OpenInfo{})},
	{name: "popover", args: "[on|off]", help: "show collection details", parse: parsePopover},
	{name: "quit", help: "close the track", aliases: []string{"q", "exit"}, parse: noArgs(playback.Dismiss{})},
}

// parseCommand turns a prompt line into an intent.
// It returns a nil intent for an empty line.
func parseCommand(line string, step time.Duration) (playback.Intent, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	word := strings.ToLower(fields[0])
	for _, c := range promptCommands {
		if c.name == word || slices.Contains(c.aliases, word) {
			in, err := c.parse(fields[1:], step)
			if err != nil {
				return nil, errors.Wrapf(err, "%s %s", c.name, c.args)
			}
			return in, nil
		}
	}
	return nil, errors.Wrapf(errUnknownCommand, "%q", word)
}

// completer completes command names at the prompt.
func completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(promptCommands)+2)
	for _, c := range promptCommands {
		items = append(items, readline.PcItem(c.name))
	}
	items = append(items, readline.PcItem("status"), readline.PcItem("help"))
	return readline.NewPrefixCompleter(items...)
}

func usage() string {
	var b strings.Builder
	for _, c := range promptCommands {
		fmt.Fprintf(&b, "  %-20s %s\n", strings.TrimSpace(c.name+" "+c.args), c.help)
	}
	fmt.Fprintf(&b, "  %-20s %s\n", "status", "show position and controls")
	fmt.Fprintf(&b, "  %-20s %s\n", "help", "show this help")
	return b.String()
}

func noArgs(in playback.Intent) func([]string, time.Duration) (playback.Intent, error) {
	return func(args []string, _ time.Duration) (playback.Intent, error) {
		if len(args) > 0 {
			return nil, errors.New("takes no arguments")
		}
		return in, nil
	}
}

func parseSeek(args []string, _ time.Duration) (playback.Intent, error) {
	if len(args) != 1 {
		return nil, errors.New("position is required")
	}
	t, err := parsePosition(args[0])
	if err != nil {
		return nil, err
	}
	return playback.SeekTo{Time: t}, nil
}

func relativeSeek(sign time.Duration) func([]string, time.Duration) (playback.Intent, error) {
	return func(args []string, step time.Duration) (playback.Intent, error) {
		switch len(args) {
		case 0:
		case 1:
			d, err := parsePosition(args[0])
			if err != nil {
				return nil, err
			}
			step = d
		default:
			return nil, errors.New("too many arguments")
		}
		return playback.RelativeSeek{Delta: sign * step}, nil
	}
}

func parseVolume(args []string, _ time.Duration) (playback.Intent, error) {
	if len(args) != 1 {
		return nil, errors.New("level is required")
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(args[0], "%"))
	if err != nil || pct < 0 || pct > 100 {
		return nil, errors.Newf("invalid level %q", args[0])
	}
	return playback.SetVolume{Level: float64(pct) / 100}, nil
}

func parseRepeat(args []string, _ time.Duration) (playback.Intent, error) {
	on, err := parseSwitch(args)
	if err != nil {
		return nil, err
	}
	if on {
		return playback.SetRepeatMode{Mode: playback.RepeatAlways}, nil
	}
	return playback.SetRepeatMode{Mode: playback.PlayOnce}, nil
}

func parsePopover(args []string, _ time.Duration) (playback.Intent, error) {
	on, err := parseSwitch(args)
	if err != nil {
		return nil, err
	}
	return playback.SetInfoPopover{Show: on}, nil
}

// parseSwitch reads an optional on/off argument. No argument means on.
func parseSwitch(args []string) (bool, error) {
	switch {
	case len(args) == 0:
		return true, nil
	case len(args) > 1:
		return false, errors.New("too many arguments")
	}
	switch strings.ToLower(args[0]) {
	case "on", "yes", "true":
		return true, nil
	case "off", "no", "false":
		return false, nil
	}
	return false, errors.Newf("expected on or off, got %q", args[0])
}

// parsePosition accepts m:ss, plain seconds, or a Go duration such as 1m30s.
func parsePosition(s string) (time.Duration, error) {
	if m, sec, ok := strings.Cut(s, ":"); ok {
		mins, err1 := strconv.Atoi(m)
		secs, err2 := strconv.Atoi(sec)
		if err1 != nil || err2 != nil || mins < 0 || secs < 0 || secs >= 60 {
			return 0, errors.Newf("invalid position %q", s)
		}
		return time.Duration(mins)*time.Minute + time.Duration(secs)*time.Second, nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if !(n >= 0) || math.IsInf(n, 1) {
			return 0, errors.Newf("invalid position %q", s)
		}
		return time.Duration(n * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, errors.Newf("invalid position %q", s)
	}
	return d, nil
}
