package session

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/app/playback"
	"github.com/osa030/harmony/internal/domain/track"
)

// Registry manages open sessions with thread-safe access.
// A session is removed once its loop exits.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ports  Ports
	config Config
}

// NewRegistry creates a new session registry.
func NewRegistry(ports Ports, config Config) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		ports:    ports,
		config:   config,
	}
}

// Open creates and starts a session for t, then requests the stream and
// the favorite status, as the track detail screen does when it appears.
func (r *Registry) Open(ctx context.Context, t track.Track) (*Session, error) {
	id := uuid.New().String()
	s, err := New(id, t, r.ports, r.config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	s.Start(ctx)
	go func() {
		<-s.Done()
		r.remove(id)
	}()

	for _, in := range []playback.Intent{
		playback.OpenStream{URL: t.StreamURL},
		playback.CheckFavorite{},
	} {
		if err := s.Send(in); err != nil {
			return nil, errors.Wrapf(err, "failed to send %T", in)
		}
	}

	zlog.Info().Msgf("opened session: id=%s track=%q artist=%q", id, t.Title, t.Artist)
	return s, nil
}

// Get retrieves a session by ID.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close closes a session by ID.
func (r *Registry) Close(id string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	s.Close()
	r.remove(id)
	return nil
}

// CloseAll closes every open session.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()

	for _, s := range all {
		s.Close()
		r.remove(s.ID())
	}
}

// Count returns the number of open sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}
