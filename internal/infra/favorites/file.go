package favorites

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/osa030/harmony/internal/domain/favorite"
	"github.com/osa030/harmony/internal/domain/track"
)

// fileFormat is the on-disk layout of the favorites file.
type fileFormat struct {
	Favorites []entry `yaml:"favorites"`
}

type entry struct {
	ID         int64     `yaml:"id"`
	Title      string    `yaml:"title"`
	Artist     string    `yaml:"artist"`
	Collection string    `yaml:"collection,omitempty"`
	ArtworkURL string    `yaml:"artwork_url,omitempty"`
	StreamURL  string    `yaml:"stream_url,omitempty"`
	InfoURL    string    `yaml:"info_url,omitempty"`
	AddedAt    time.Time `yaml:"added_at"`
}

// FileStore persists favorites to a YAML file.
// Writes replace the file atomically; Watch reloads it on external edits.
type FileStore struct {
	path string

	mu    sync.RWMutex
	items map[int64]favorite.Favorite
	now   func() time.Time

	changes chan struct{}
}

// OpenFileStore loads the favorites file at path. A missing file is an
// empty store; it is created on the first write.
func OpenFileStore(path string) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve favorites path")
	}

	s := &FileStore{
		path:    abs,
		items:   make(map[int64]favorite.Favorite),
		now:     time.Now,
		changes: make(chan struct{}, 1),
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the absolute path of the favorites file.
func (s *FileStore) Path() string {
	return s.path
}

// Changes receives a value whenever the file was reloaded after an external edit.
func (s *FileStore) Changes() <-chan struct{} {
	return s.changes
}

// IsFavorite returns true if the track is a favorite.
func (s *FileStore) IsFavorite(ctx context.Context, trackID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[trackID]
	return ok, nil
}

// AddFavorite adds t and saves the file. Adding an existing favorite is a no-op.
func (s *FileStore) AddFavorite(ctx context.Context, t track.Track) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[t.ID]; ok {
		return nil
	}
	s.items[t.ID] = favorite.New(t, s.now())
	if err := s.save(); err != nil {
		delete(s.items, t.ID)
		return err
	}
	zlog.Debug().Msgf("favorite added: id=%d title=%q", t.ID, t.Title)
	return nil
}

// DeleteFavorite removes t and saves the file.
func (s *FileStore) DeleteFavorite(ctx context.Context, t track.Track) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.items[t.ID]
	if !ok {
		return nil
	}
	delete(s.items, t.ID)
	if err := s.save(); err != nil {
		s.items[t.ID] = prev
		return err
	}
	zlog.Debug().Msgf("favorite deleted: id=%d title=%q", t.ID, t.Title)
	return nil
}

// List returns all favorites, newest first.
func (s *FileStore) List(ctx context.Context) ([]favorite.Favorite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.items), nil
}

// reload replaces the in-memory set with the file contents.
func (s *FileStore) reload() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.mu.Lock()
		s.items = make(map[int64]favorite.Favorite)
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to read favorites file")
	}

	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return errors.Wrapf(err, "failed to parse favorites file %s", s.path)
	}

	items := make(map[int64]favorite.Favorite, len(ff.Favorites))
	for _, e := range ff.Favorites {
		if e.ID == 0 {
			zlog.Warn().Msgf("skipping favorite without id: title=%q", e.Title)
			continue
		}
		items[e.ID] = favorite.New(track.Track{
			ID:             e.ID,
			Title:          e.Title,
			Artist:         e.Artist,
			CollectionName: e.Collection,
			ArtworkURL:     e.ArtworkURL,
			StreamURL:      e.StreamURL,
			InfoURL:        e.InfoURL,
		}, e.AddedAt)
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

// save writes the file through a temp file and rename. Caller holds s.mu.
func (s *FileStore) save() error {
	var ff fileFormat
	for _, f := range sorted(s.items) {
		ff.Favorites = append(ff.Favorites, entry{
			ID:         f.Track.ID,
			Title:      f.Track.Title,
			Artist:     f.Track.Artist,
			Collection: f.Track.CollectionName,
			ArtworkURL: f.Track.ArtworkURL,
			StreamURL:  f.Track.StreamURL,
			InfoURL:    f.Track.InfoURL,
			AddedAt:    f.AddedAt,
		})
	}

	data, err := yaml.Marshal(&ff)
	if err != nil {
		return errors.Wrap(err, "failed to encode favorites")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create favorites directory")
	}

	tmp, err := os.CreateTemp(dir, ".favorites-*.yaml")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write favorites")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to write favorites")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "failed to replace favorites file")
	}
	return nil
}

// notify signals Changes without blocking.
func (s *FileStore) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
