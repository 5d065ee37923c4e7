package favorites

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/harmony/internal/domain/track"
)

var (
	umbrella = track.Track{
		ID:             1440824155,
		Title:          "Umbrella",
		Artist:         "Rihanna",
		CollectionName: "Good Girl Gone Bad",
		StreamURL:      "https://example.com/umbrella.mp3",
		InfoURL:        "https://music.apple.com/us/album/umbrella/1440824155",
	}
	diamonds = track.Track{ID: 42, Title: "Diamonds", Artist: "Rihanna"}
)

// clock returns a now func that advances a minute per call.
func clock() func() time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

type store interface {
	IsFavorite(ctx context.Context, trackID int64) (bool, error)
	AddFavorite(ctx context.Context, t track.Track) error
	DeleteFavorite(ctx context.Context, t track.Track) error
}

func exerciseStore(t *testing.T, s store) {
	t.Helper()
	ctx := context.Background()

	ok, err := s.IsFavorite(ctx, umbrella.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.AddFavorite(ctx, umbrella))
	require.NoError(t, s.AddFavorite(ctx, umbrella))
	ok, err = s.IsFavorite(ctx, umbrella.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.DeleteFavorite(ctx, umbrella))
	require.NoError(t, s.DeleteFavorite(ctx, umbrella))
	ok, err = s.IsFavorite(ctx, umbrella.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.IsFavorite(cancelled, umbrella.ID)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.AddFavorite(cancelled, umbrella), context.Canceled)
	assert.ErrorIs(t, s.DeleteFavorite(cancelled, umbrella), context.Canceled)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_List(t *testing.T) {
	s := NewMemoryStore()
	s.now = clock()
	ctx := context.Background()

	require.NoError(t, s.AddFavorite(ctx, umbrella))
	require.NoError(t, s.AddFavorite(ctx, diamonds))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Diamonds", list[0].Track.Title, "newest first")
	assert.Equal(t, "Umbrella", list[1].Track.Title)
}

func TestFileStore(t *testing.T) {
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "favorites.yaml"))
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "favorites.yaml")
	ctx := context.Background()

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	s.now = clock()

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file is created lazily")

	require.NoError(t, s.AddFavorite(ctx, umbrella))
	require.NoError(t, s.AddFavorite(ctx, diamonds))

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)

	list, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, diamonds, list[0].Track)
	assert.Equal(t, umbrella, list[1].Track)
	assert.True(t, list[1].AddedAt.Equal(time.Date(2024, 5, 1, 12, 1, 0, 0, time.UTC)))

	require.NoError(t, s.DeleteFavorite(ctx, diamonds))
	reopened, err = OpenFileStore(path)
	require.NoError(t, err)
	ok, err := reopened.IsFavorite(ctx, diamonds.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_SaveFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenFileStore(filepath.Join(dir, "favorites.yaml"))
	require.NoError(t, err)

	// A regular file where the parent directory should be.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	s.path = filepath.Join(blocker, "favorites.yaml")

	ctx := context.Background()
	assert.Error(t, s.AddFavorite(ctx, umbrella))
	ok, err := s.IsFavorite(ctx, umbrella.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.yaml")
	require.NoError(t, os.WriteFile(path, []byte("favorites: [:"), 0o644))

	_, err := OpenFileStore(path)
	assert.Error(t, err)
}

func TestOpenFileStore_SkipsEntriesWithoutID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
favorites:
  - id: 42
    title: Diamonds
    artist: Rihanna
    added_at: 2024-05-01T12:00:00Z
  - title: Broken
`), 0o644))

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Diamonds", list[0].Track.Title)
}

func TestFileStore_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.yaml")
	s, err := OpenFileStore(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Watch(ctx))

	// Own writes do not signal a change.
	require.NoError(t, s.AddFavorite(ctx, umbrella))
	select {
	case <-s.Changes():
		t.Fatal("own write reported as external change")
	case <-time.After(4 * watchDebounce):
	}

	// An external edit is picked up.
	require.NoError(t, os.WriteFile(path, []byte(`
favorites:
  - id: 42
    title: Diamonds
    artist: Rihanna
    added_at: 2024-05-01T12:00:00Z
`), 0o644))

	select {
	case <-s.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("external edit not detected")
	}

	ok, err := s.IsFavorite(ctx, diamonds.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.IsFavorite(ctx, umbrella.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
