package favorites

import (
	"context"
	"maps"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/domain/favorite"
)

// watchDebounce coalesces bursts of events from editors and atomic saves.
const watchDebounce = 100 * time.Millisecond

// Watch reloads the store whenever the favorites file changes on disk,
// until ctx is cancelled. The parent directory is watched so that files
// replaced by rename are picked up.
func (s *FileStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "failed to watch %s", dir)
	}

	zlog.Debug().Msgf("watching favorites: path=%s", s.path)
	go s.watch(ctx, w)
	return nil
}

func (s *FileStore) watch(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			timer.Reset(watchDebounce)

		case <-timer.C:
			s.mu.RLock()
			before := maps.Clone(s.items)
			s.mu.RUnlock()

			if err := s.reload(); err != nil {
				zlog.Warn().Err(err).Msg("failed to reload favorites")
				continue
			}

			s.mu.RLock()
			changed := !maps.EqualFunc(before, s.items, sameFavorite)
			s.mu.RUnlock()

			if changed {
				zlog.Info().Msgf("favorites reloaded: path=%s", s.path)
				s.notify()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			zlog.Warn().Err(err).Msg("favorites watcher error")
		}
	}
}

func sameFavorite(a, b favorite.Favorite) bool {
	return a.Track == b.Track && a.AddedAt.Equal(b.AddedAt)
}
