package session

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/harmony/internal/app/playback"
	"github.com/osa030/harmony/internal/domain/track"
)

const waitFor = 2 * time.Second
const pollEvery = 5 * time.Millisecond

type fakePlayer struct {
	mu       sync.Mutex
	duration time.Duration
	loadErr  error
	current  time.Duration
	playing  bool
	urls     []string
	plays    int
	pauses   int
	seeks    []time.Duration
	volumes  []float64
}

func (p *fakePlayer) SetURL(ctx context.Context, u string) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls = append(p.urls, u)
	if p.loadErr != nil {
		return 0, p.loadErr
	}
	return p.duration, nil
}

func (p *fakePlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays++
	p.playing = true
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses++
	p.playing = false
}

func (p *fakePlayer) Seek(t time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seeks = append(p.seeks, t)
	p.current = t
}

func (p *fakePlayer) SetVolume(level float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volumes = append(p.volumes, level)
}

func (p *fakePlayer) CurrentTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *fakePlayer) setCurrent(t time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = t
}

func (p *fakePlayer) snapshot() fakePlayer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fakePlayer{
		playing: p.playing,
		plays:   p.plays,
		pauses:  p.pauses,
		urls:    append([]string(nil), p.urls...),
		seeks:   append([]time.Duration(nil), p.seeks...),
		volumes: append([]float64(nil), p.volumes...),
	}
}

type fakeFavorites struct {
	mu        sync.Mutex
	tracks    map[int64]track.Track
	err       error
	block     bool // IsFavorite blocks until ctx is cancelled
	added     []track.Track
	deleted   []track.Track
	queried   []int64
	cancelled bool
}

func newFakeFavorites() *fakeFavorites {
	return &fakeFavorites{tracks: make(map[int64]track.Track)}
}

func (f *fakeFavorites) IsFavorite(ctx context.Context, trackID int64) (bool, error) {
	f.mu.Lock()
	f.queried = append(f.queried, trackID)
	block, err := f.block, f.err
	_, ok := f.tracks[trackID]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		f.mu.Lock()
		f.cancelled = true
		f.mu.Unlock()
		return false, ctx.Err()
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (f *fakeFavorites) AddFavorite(ctx context.Context, t track.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, t)
	if f.err != nil {
		return f.err
	}
	f.tracks[t.ID] = t
	return nil
}

func (f *fakeFavorites) DeleteFavorite(ctx context.Context, t track.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, t)
	if f.err != nil {
		return f.err
	}
	delete(f.tracks, t.ID)
	return nil
}

func (f *fakeFavorites) addedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.added)
}

type fakeOpener struct {
	mu     sync.Mutex
	err    error
	opened []string
}

func (o *fakeOpener) Open(ctx context.Context, u *url.URL) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, u.String())
	if o.err != nil {
		return false, o.err
	}
	return true, nil
}

func (o *fakeOpener) openedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opened)
}

// recorder collects session events until the channel closes.
type recorder struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func record(s *Session) *recorder {
	r := &recorder{}
	go func() {
		for e := range s.Events() {
			r.mu.Lock()
			r.events = append(r.events, e)
			r.mu.Unlock()
		}
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
	}()
	return r
}

func (r *recorder) find(t EventType) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Type == t {
			return e, true
		}
	}
	return Event{}, false
}

func (r *recorder) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func testTrack() track.Track {
	return track.Track{
		ID:        7,
		Title:     "Umbrella",
		Artist:    "Rihanna",
		StreamURL: "a.mp3",
		InfoURL:   "https://music.example.com/track/7",
	}
}

type fixture struct {
	player    *fakePlayer
	favorites *fakeFavorites
	opener    *fakeOpener
	session   *Session
	events    *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		player:    &fakePlayer{duration: 180 * time.Second},
		favorites: newFakeFavorites(),
		opener:    &fakeOpener{},
	}
	return f
}

func (f *fixture) start(t *testing.T) *Session {
	t.Helper()
	s, err := New("test-session", testTrack(), f.ports(), Config{
		TickInterval:  10 * time.Millisecond,
		DefaultVolume: 1,
	})
	require.NoError(t, err)
	f.session = s
	f.events = record(s)
	s.Start(context.Background())
	t.Cleanup(s.Close)
	return s
}

func (f *fixture) ports() Ports {
	return Ports{Player: f.player, Favorites: f.favorites, Opener: f.opener}
}

func TestNew_RequiresPorts(t *testing.T) {
	tests := []struct {
		name  string
		ports Ports
	}{
		{name: "missing player", ports: Ports{Favorites: newFakeFavorites(), Opener: &fakeOpener{}}},
		{name: "missing favorites", ports: Ports{Player: &fakePlayer{}, Opener: &fakeOpener{}}},
		{name: "missing opener", ports: Ports{Player: &fakePlayer{}, Favorites: newFakeFavorites()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("id", testTrack(), tt.ports, Config{})
			assert.Error(t, err)
		})
	}
}

func TestSession_OpenStreamStartsPlayback(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)

	require.NoError(t, s.Send(playback.OpenStream{URL: "a.mp3"}))

	assert.Eventually(t, func() bool {
		st := s.State()
		return !st.IsLoading && st.TotalDuration == 180*time.Second && st.IsPlaying()
	}, waitFor, pollEvery)

	snap := f.player.snapshot()
	assert.Equal(t, []string{"a.mp3"}, snap.urls)
	assert.Equal(t, 1, snap.plays)
	assert.True(t, snap.playing)
	assert.Equal(t, "a.mp3", s.State().StreamURL)
}

func TestSession_StreamLoadFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.player.loadErr = errors.New("unsupported format")
	s := f.start(t)

	require.NoError(t, s.Send(playback.OpenStream{URL: "a.m4a"}))

	var ev Event
	require.Eventually(t, func() bool {
		var ok bool
		ev, ok = f.events.find(EventEffectFailed)
		return ok
	}, waitFor, pollEvery)

	assert.Equal(t, playback.FailureStreamLoad, ev.Failure)
	assert.True(t, errors.Is(ev.Err, ErrStreamLoad))
	assert.Contains(t, ev.Err.Error(), "unsupported format")

	st := s.State()
	assert.True(t, st.IsLoading, "failed load must not transition state")
	assert.False(t, st.IsPlaying())
	assert.Equal(t, 0, f.player.snapshot().plays)
}

func TestSession_SeekToIssuesPlayerSeek(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)

	require.NoError(t, s.Send(playback.OpenStream{URL: "a.mp3"}))
	require.Eventually(t, func() bool { return !s.State().IsLoading }, waitFor, pollEvery)
	require.NoError(t, s.Send(playback.PlayRequested{Play: false}))

	for _, seek := range []time.Duration{0, 42 * time.Second, 180 * time.Second} {
		require.NoError(t, s.Send(playback.SeekTo{Time: seek}))
		assert.Eventually(t, func() bool { return s.State().CurrentTime == seek }, waitFor, pollEvery)
	}

	assert.Equal(t, []time.Duration{0, 42 * time.Second, 180 * time.Second}, f.player.snapshot().seeks)
}

func TestSession_TicksFollowPlayer(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)

	require.NoError(t, s.Send(playback.OpenStream{URL: "a.mp3"}))
	require.Eventually(t, func() bool { return s.State().IsPlaying() }, waitFor, pollEvery)

	f.player.setCurrent(30 * time.Second)
	assert.Eventually(t, func() bool { return s.State().CurrentTime == 30*time.Second }, waitFor, pollEvery)

	// Paused sessions ignore the player position.
	require.NoError(t, s.Send(playback.PlayRequested{Play: false}))
	require.Eventually(t, func() bool { return !s.State().IsPlaying() }, waitFor, pollEvery)
	f.player.setCurrent(60 * time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 30*time.Second, s.State().CurrentTime)
}

func TestSession_RepeatOnceAtEndOfTrack(t *testing.T) {
	f := newFixture(t)
	f.player.duration = 100 * time.Second
	s := f.start(t)

	require.NoError(t, s.Send(playback.SetRepeatMode{Mode: playback.RepeatAlways}))
	require.NoError(t, s.Send(playback.OpenStream{URL: "a.mp3"}))
	require.Eventually(t, func() bool { return s.State().IsPlaying() }, waitFor, pollEvery)

	f.player.setCurrent(100 * time.Second)

	// The end of track rewinds and plays again once.
	require.Eventually(t, func() bool {
		return s.State().RepeatMode() == playback.PlayOnce && f.player.snapshot().plays == 2
	}, waitFor, pollEvery)
	assert.Contains(t, f.player.snapshot().seeks, time.Duration(0))

	// The repeat was consumed; the next end pauses.
	f.player.setCurrent(100 * time.Second)
	assert.Eventually(t, func() bool {
		st := s.State()
		return !st.IsPlaying() && st.CurrentTime == 0
	}, waitFor, pollEvery)

	snap := f.player.snapshot()
	assert.False(t, snap.playing)
	assert.Equal(t, 2, snap.plays)
}

func TestSession_FavoriteToggle(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)

	require.NoError(t, s.Send(playback.ToggleFavorite{Favorite: true}))
	require.Eventually(t, func() bool { return f.favorites.addedCount() == 1 }, waitFor, pollEvery)
	assert.Equal(t, int64(7), f.favorites.added[0].ID)

	// A fresh session on the same track sees the persisted favorite.
	other, err := New("other", testTrack(), f.ports(), Config{TickInterval: time.Hour})
	require.NoError(t, err)
	other.Start(context.Background())
	defer other.Close()

	require.False(t, other.State().IsFavorite())
	require.NoError(t, other.Send(playback.CheckFavorite{}))
	assert.Eventually(t, func() bool { return other.State().IsFavorite() }, waitFor, pollEvery)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, f.favorites.addedCount(), "add should be called exactly once")
}

func TestSession_FavoriteFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.favorites.err = errors.New("disk full")
	s := f.start(t)

	require.NoError(t, s.Send(playback.ToggleFavorite{Favorite: false}))

	var ev Event
	require.Eventually(t, func() bool {
		var ok bool
		ev, ok = f.events.find(EventEffectFailed)
		return ok
	}, waitFor, pollEvery)

	assert.Equal(t, playback.FailureFavoritePersistence, ev.Failure)
	assert.True(t, errors.Is(ev.Err, ErrFavoritePersistence))
}

func TestSession_OpenInfo(t *testing.T) {
	t.Run("opened pauses playback", func(t *testing.T) {
		f := newFixture(t)
		s := f.start(t)

		require.NoError(t, s.Send(playback.OpenStream{URL: "a.mp3"}))
		require.Eventually(t, func() bool { return s.State().IsPlaying() }, waitFor, pollEvery)

		require.NoError(t, s.Send(playback.OpenInfo{}))
		assert.Eventually(t, func() bool { return !s.State().IsPlaying() }, waitFor, pollEvery)
		assert.Equal(t, 1, f.opener.openedCount())
		assert.False(t, f.player.snapshot().playing)
	})

	t.Run("failure keeps playing", func(t *testing.T) {
		f := newFixture(t)
		f.opener.err = errors.New("no browser")
		s := f.start(t)

		require.NoError(t, s.Send(playback.OpenStream{URL: "a.mp3"}))
		require.Eventually(t, func() bool { return s.State().IsPlaying() }, waitFor, pollEvery)

		require.NoError(t, s.Send(playback.OpenInfo{}))
		var ev Event
		require.Eventually(t, func() bool {
			var ok bool
			ev, ok = f.events.find(EventEffectFailed)
			return ok
		}, waitFor, pollEvery)

		assert.Equal(t, playback.FailureExternalOpen, ev.Failure)
		assert.True(t, errors.Is(ev.Err, ErrExternalOpen))
		assert.True(t, s.State().IsPlaying())
	})
}

func TestSession_MuteRoundTrip(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)

	require.NoError(t, s.Send(playback.SetVolume{Level: 0.4}))
	require.NoError(t, s.Send(playback.SetMute{Mute: true}))
	require.Eventually(t, func() bool { return s.State().IsMuted() }, waitFor, pollEvery)
	assert.Equal(t, 0.0, s.State().Level())

	require.NoError(t, s.Send(playback.SetMute{Mute: false}))
	require.Eventually(t, func() bool { return !s.State().IsMuted() }, waitFor, pollEvery)
	assert.Equal(t, 0.4, s.State().Level())
	assert.Equal(t, []float64{0.4, 0, 0.4}, f.player.snapshot().volumes)
}

func TestSession_Dismiss(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)

	require.NoError(t, s.Send(playback.OpenStream{URL: "a.mp3"}))
	require.Eventually(t, func() bool { return s.State().IsPlaying() }, waitFor, pollEvery)

	require.NoError(t, s.Send(playback.Dismiss{}))

	select {
	case <-s.Done():
	case <-time.After(waitFor):
		t.Fatal("session did not stop after dismiss")
	}

	assert.True(t, s.State().Closed)
	assert.False(t, f.player.snapshot().playing)
	assert.ErrorIs(t, s.Send(playback.PlayRequested{Play: true}), ErrSessionClosed)
	assert.Eventually(t, f.events.isClosed, waitFor, pollEvery)

	_, ok := f.events.find(EventClosed)
	assert.True(t, ok)
}

func TestSession_CloseDropsPendingEffects(t *testing.T) {
	f := newFixture(t)
	f.favorites.block = true
	s := f.start(t)

	require.NoError(t, s.Send(playback.CheckFavorite{}))
	require.Eventually(t, func() bool {
		f.favorites.mu.Lock()
		defer f.favorites.mu.Unlock()
		return len(f.favorites.queried) == 1
	}, waitFor, pollEvery)

	s.Close()

	f.favorites.mu.Lock()
	cancelled := f.favorites.cancelled
	f.favorites.mu.Unlock()
	assert.True(t, cancelled, "pending effect should observe cancellation")

	_, failed := f.events.find(EventEffectFailed)
	assert.False(t, failed, "cancelled effect results must be dropped")
	assert.True(t, s.State().Closed)
	assert.ErrorIs(t, s.Send(playback.CheckFavorite{}), ErrSessionClosed)
}

func TestSession_CloseBeforeStart(t *testing.T) {
	f := newFixture(t)
	s, err := New("never-started", testTrack(), f.ports(), Config{})
	require.NoError(t, err)

	s.Close()
	s.Close()

	_, open := <-s.Events()
	assert.False(t, open)
	assert.ErrorIs(t, s.Send(playback.OpenStream{URL: "a.mp3"}), ErrSessionClosed)

	// Start after close is a no-op.
	s.Start(context.Background())
	assert.Empty(t, f.player.snapshot().urls)
}

func TestSession_ContextCancellationCloses(t *testing.T) {
	f := newFixture(t)
	s, err := New("ctx", testTrack(), f.ports(), Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(waitFor):
		t.Fatal("session did not stop after context cancellation")
	}
	s.Close()
}
