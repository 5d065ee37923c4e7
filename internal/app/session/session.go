// Package session runs playback state machines against real ports.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/app/playback"
	"github.com/osa030/harmony/internal/domain/track"
)

// Errors
var (
	ErrSessionClosed       = errors.New("session is closed")
	ErrSessionNotFound     = errors.New("session not found")
	ErrStreamLoad          = errors.New("stream load failed")
	ErrFavoritePersistence = errors.New("favorite persistence failed")
	ErrExternalOpen        = errors.New("external open failed")
)

// Config holds session configuration.
type Config struct {
	TickInterval  time.Duration // Period of position ticks
	DefaultVolume float64       // Initial volume level in [0,1]
	QueueSize     int           // Buffered intents
	EventBuffer   int           // Buffered events; events are dropped when full
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 32
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 64
	}
	return c
}

// Session owns the playback state of one open track.
// All reductions happen on a single goroutine; I/O effects run on their own
// goroutines and re-enter through the intent queue.
type Session struct {
	id     string
	ports  Ports
	config Config
	logger zerolog.Logger

	mu      sync.RWMutex
	state   playback.State
	started bool

	intents chan playback.Intent
	eventCh chan Event

	// Cancelled on Dismiss or Close; in-flight effect results are dropped.
	ctx    context.Context
	cancel context.CancelFunc

	done      chan struct{}
	closeOnce sync.Once
	effects   sync.WaitGroup
}

// New creates a session for t. Call Start to begin processing intents.
func New(id string, t track.Track, ports Ports, config Config) (*Session, error) {
	if err := ports.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid ports")
	}
	config = config.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:     id,
		ports:  ports,
		config: config,
		logger: zlog.With().Str("session_id", id).Int64("track_id", t.ID).Logger(),
		state:  playback.NewState(t, config.DefaultVolume),

		intents: make(chan playback.Intent, config.QueueSize),
		eventCh: make(chan Event, config.EventBuffer),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}, nil
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Events returns the event channel. It is closed when the session ends.
func (s *Session) Events() <-chan Event {
	return s.eventCh
}

// Done is closed once the session loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns a copy of the current state.
func (s *Session) State() playback.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Start starts the intent loop and the position ticker.
// The session is closed when ctx is cancelled.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, s.cancel)

	go func() {
		defer stop()
		s.run()
	}()
	go s.tickLoop()

	s.logger.Debug().Msgf("session: started: track=%s tick=%v", s.State().Track.Title, s.config.TickInterval)
}

// Send enqueues an intent. It blocks while the queue is full.
func (s *Session) Send(in playback.Intent) error {
	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	select {
	case s.intents <- in:
		return nil
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

// Close cancels pending effects and stops the session. It waits for effect
// goroutines to return, so ports must honor context cancellation.
// The player is paused if the session was not already dismissed.
func (s *Session) Close() {
	s.cancel()

	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	if started {
		<-s.done
		s.effects.Wait()
	} else {
		s.closeOnce.Do(func() {
			close(s.eventCh)
			close(s.done)
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Closed {
		s.state.Closed = true
		s.state.Player.IsPlaying = false
		s.ports.Player.Pause()
	}
}

// run reduces queued intents until the session context is cancelled.
func (s *Session) run() {
	defer close(s.done)
	defer close(s.eventCh)

	for {
		select {
		case <-s.ctx.Done():
			return
		case in := <-s.intents:
			s.dispatch(in)
		}
	}
}

// dispatch reduces in and every follow-up intent it produces, in FIFO order.
func (s *Session) dispatch(in playback.Intent) {
	queue := []playback.Intent{in}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		s.mu.Lock()
		prev := s.state
		state, effects := playback.Reduce(prev, next)
		s.state = state
		s.mu.Unlock()

		s.logger.Debug().Msgf("session: reduced %T: effects=%d", next, len(effects))

		for _, e := range effects {
			if send, ok := e.(playback.Send); ok {
				queue = append(queue, send.Intent)
				continue
			}
			s.execute(e)
		}

		if state != prev {
			s.sendEvent(Event{Type: EventStateChanged, State: state})
		}

		if state.Closed {
			s.logger.Debug().Msg("session: dismissed")
			s.sendEvent(Event{Type: EventClosed, State: state})
			s.cancel()
			return
		}
	}
}

// execute runs a single effect. Player commands run inline; I/O runs async.
func (s *Session) execute(e playback.Effect) {
	player := s.ports.Player

	switch e := e.(type) {
	case playback.PlayerPlay:
		player.Play()

	case playback.PlayerPause:
		player.Pause()

	case playback.PlayerSeek:
		player.Seek(e.Time)

	case playback.PlayerSetVolume:
		player.SetVolume(e.Level)

	case playback.LoadStream:
		s.spawn(func(ctx context.Context) playback.Intent {
			duration, err := player.SetURL(ctx, e.URL)
			if err != nil {
				return failed(playback.FailureStreamLoad, ErrStreamLoad, errors.Wrapf(err, "failed to load stream %s", e.URL))
			}
			return playback.InitialTimeKnown{Current: player.CurrentTime(), Duration: duration}
		})

	case playback.AddFavorite:
		s.spawn(func(ctx context.Context) playback.Intent {
			if err := s.ports.Favorites.AddFavorite(ctx, e.Track); err != nil {
				return failed(playback.FailureFavoritePersistence, ErrFavoritePersistence, errors.Wrap(err, "failed to add favorite"))
			}
			return playback.FavoriteSaved{Favorite: true}
		})

	case playback.DeleteFavorite:
		s.spawn(func(ctx context.Context) playback.Intent {
			if err := s.ports.Favorites.DeleteFavorite(ctx, e.Track); err != nil {
				return failed(playback.FailureFavoritePersistence, ErrFavoritePersistence, errors.Wrap(err, "failed to delete favorite"))
			}
			return playback.FavoriteSaved{Favorite: false}
		})

	case playback.QueryFavorite:
		s.spawn(func(ctx context.Context) playback.Intent {
			isFavorite, err := s.ports.Favorites.IsFavorite(ctx, e.TrackID)
			if err != nil {
				return failed(playback.FailureFavoritePersistence, ErrFavoritePersistence, errors.Wrap(err, "failed to check favorite"))
			}
			return playback.FavoriteStatus{IsFavorite: isFavorite}
		})

	case playback.OpenExternal:
		s.spawn(func(ctx context.Context) playback.Intent {
			opened, err := s.ports.Opener.Open(ctx, e.URL)
			if err != nil {
				return failed(playback.FailureExternalOpen, ErrExternalOpen, errors.Wrapf(err, "failed to open %s", e.URL))
			}
			return playback.InfoOpened{Opened: opened}
		})

	case playback.ReportFailure:
		s.logger.Warn().Err(e.Err).Msgf("session: %s failed", e.Kind)
		s.sendEvent(Event{
			Type:    EventEffectFailed,
			State:   s.State(),
			Failure: e.Kind,
			Err:     e.Err,
		})

	default:
		s.logger.Error().Msgf("session: unhandled effect %T", e)
	}
}

// spawn runs fn on its own goroutine and posts its result.
func (s *Session) spawn(fn func(ctx context.Context) playback.Intent) {
	s.effects.Add(1)
	go func() {
		defer s.effects.Done()
		s.post(fn(s.ctx))
	}()
}

// post enqueues an effect result. Results are dropped once the session is closed.
func (s *Session) post(in playback.Intent) {
	if s.ctx.Err() != nil {
		s.logger.Debug().Msgf("session: dropping %T after close", in)
		return
	}
	select {
	case s.intents <- in:
	case <-s.ctx.Done():
		s.logger.Debug().Msgf("session: dropping %T after close", in)
	}
}

// tickLoop posts the player position every tick while playing.
func (s *Session) tickLoop() {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if !s.State().IsPlaying() {
				continue
			}
			s.post(playback.Tick{Time: s.ports.Player.CurrentTime()})
		}
	}
}

// sendEvent sends an event without blocking.
// Must only be called from the session loop.
func (s *Session) sendEvent(e Event) {
	select {
	case s.eventCh <- e:
	default:
		s.logger.Debug().Msgf("session: event buffer full, dropping %s", e.Type)
	}
}

// failed builds an EffectFailed intent marked with the given sentinel.
func failed(kind playback.FailureKind, mark, err error) playback.Intent {
	return playback.EffectFailed{Kind: kind, Err: errors.Mark(err, mark)}
}
