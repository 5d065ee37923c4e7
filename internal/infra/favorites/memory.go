// Package favorites provides favorite track stores.
package favorites

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/osa030/harmony/internal/domain/favorite"
	"github.com/osa030/harmony/internal/domain/track"
)

// MemoryStore keeps favorites in memory only.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[int64]favorite.Favorite
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[int64]favorite.Favorite),
		now:   time.Now,
	}
}

// IsFavorite returns true if the track is a favorite.
func (s *MemoryStore) IsFavorite(ctx context.Context, trackID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[trackID]
	return ok, nil
}

// AddFavorite adds t. Adding an existing favorite keeps its original time.
func (s *MemoryStore) AddFavorite(ctx context.Context, t track.Track) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[t.ID]; !ok {
		s.items[t.ID] = favorite.New(t, s.now())
	}
	return nil
}

// DeleteFavorite removes t. Removing a missing favorite is not an error.
func (s *MemoryStore) DeleteFavorite(ctx context.Context, t track.Track) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, t.ID)
	return nil
}

// List returns all favorites, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]favorite.Favorite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.items), nil
}

// sorted returns the favorites newest first, ties broken by track ID.
func sorted(items map[int64]favorite.Favorite) []favorite.Favorite {
	out := make([]favorite.Favorite, 0, len(items))
	for _, f := range items {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b favorite.Favorite) int {
		if c := b.AddedAt.Compare(a.AddedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Track.ID, b.Track.ID)
	})
	return out
}
