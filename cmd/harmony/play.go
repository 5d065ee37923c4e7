package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/app/playback"
	"github.com/osa030/harmony/internal/app/session"
	"github.com/osa030/harmony/internal/infra/audio"
	"github.com/osa030/harmony/internal/infra/audio/speakerout"
	"github.com/osa030/harmony/internal/infra/browser"
	"github.com/osa030/harmony/internal/infra/config"
	"github.com/osa030/harmony/internal/infra/favorites"
	"github.com/osa030/harmony/internal/infra/logger"
)

// runPlay opens the track named by ref and drives it from an interactive prompt
// until the user quits or ctx is cancelled.
func runPlay(ctx context.Context, cfg *config.Config, ref string, ephemeral bool) error {
	chain, err := newCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	result, err := chain.Lookup(ctx, ref)
	if err != nil {
		return err
	}
	t := result.Track
	if !t.HasStream() {
		zlog.Warn().Msgf("Track has no preview stream: id=%d source=%s", t.ID, result.DisplayName)
	}

	out, err := speakerout.New(cfg.Player.SampleRate, 0)
	if err != nil {
		return err
	}
	player := audio.NewPlayer(out, audio.Config{
		SampleRate:     cfg.Player.SampleRate,
		MaxStreamBytes: cfg.Player.MaxStreamBytes,
	})
	defer player.Close()

	store, changes, err := openFavorites(ctx, cfg, ephemeral)
	if err != nil {
		return err
	}

	registry := session.NewRegistry(session.Ports{
		Player:    player,
		Favorites: store,
		Opener:    browser.New(),
	}, session.Config{
		TickInterval:  cfg.Player.TickInterval(),
		DefaultVolume: cfg.Player.Volume(),
		EventBuffer:   cfg.Player.EventBuffer,
	})
	defer registry.CloseAll()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "harmony> ",
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return errors.Wrap(err, "failed to start prompt")
	}
	defer rl.Close()

	// Route console logs through the prompt so they do not garble the input line.
	if *logfile == "" {
		if _, err := logger.Init(loggerConfig(rl.Stderr())); err != nil {
			return err
		}
	}

	fmt.Fprintln(rl.Stdout(), header(t))
	fmt.Fprintln(rl.Stdout(), "Type help for commands.")

	s, err := registry.Open(ctx, t)
	if err != nil {
		return err
	}

	go forwardFavoriteChanges(s, changes)
	go printEvents(s, rl)

	return prompt(rl, s, cfg.Player.SeekStep())
}

// openFavorites opens the favorites store. changes is nil when the store is
// not watched.
func openFavorites(ctx context.Context, cfg *config.Config, ephemeral bool) (session.FavoriteStore, <-chan struct{}, error) {
	if ephemeral {
		return favorites.NewMemoryStore(), nil, nil
	}
	store, err := favorites.OpenFileStore(cfg.Favorites.Path)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Favorites.WatchEnabled() {
		return store, nil, nil
	}
	if err := store.Watch(ctx); err != nil {
		zlog.Warn().Err(err).Msg("Favorites will not be reloaded on external edits")
		return store, nil, nil
	}
	return store, store.Changes(), nil
}

// forwardFavoriteChanges re-checks the favorite status whenever the store
// was edited outside this process.
func forwardFavoriteChanges(s *session.Session, changes <-chan struct{}) {
	if changes == nil {
		return
	}
	for {
		select {
		case <-s.Done():
			return
		case <-changes:
			if err := s.Send(playback.CheckFavorite{}); err != nil {
				return
			}
		}
	}
}

// printEvents prints session events until the session ends, then closes
// the prompt so a pending read returns.
func printEvents(s *session.Session, rl *readline.Instance) {
	var r renderer
	for e := range s.Events() {
		if line := r.render(e); line != "" {
			fmt.Fprintln(rl.Stdout(), line)
		}
	}
	_ = rl.Close()
}

// prompt reads commands and sends the matching intents until the session
// closes or input ends.
func prompt(rl *readline.Instance, s *session.Session, step time.Duration) error {
	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt), errors.Is(err, io.EOF):
			return dismiss(s)
		case err != nil:
			select {
			case <-s.Done():
				return nil
			default:
			}
			return errors.Wrap(err, "failed to read command")
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "help", "?":
			fmt.Fprint(rl.Stdout(), usage())
			continue
		case "status":
			fmt.Fprintln(rl.Stdout(), statusLine(s.State()))
			continue
		}

		in, err := parseCommand(line, step)
		if err != nil {
			fmt.Fprintf(rl.Stdout(), "! %v\n", err)
			continue
		}
		if in == nil {
			continue
		}
		if err := s.Send(in); err != nil {
			if errors.Is(err, session.ErrSessionClosed) {
				return nil
			}
			return err
		}
		if _, ok := in.(playback.Dismiss); ok {
			<-s.Done()
			return nil
		}
	}
}

// dismiss closes the session the way the quit command does.
func dismiss(s *session.Session) error {
	if err := s.Send(playback.Dismiss{}); err != nil && !errors.Is(err, session.ErrSessionClosed) {
		return err
	}
	<-s.Done()
	return nil
}
