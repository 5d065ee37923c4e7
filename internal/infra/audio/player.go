// Package audio provides a beep-based music player.
package audio

import (
	"bytes"
	"context"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
	zlog "github.com/rs/zerolog/log"
)

// Errors
var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrStreamTooLarge    = errors.New("stream exceeds size limit")
)

// resampleQuality is passed to beep.Resample.
const resampleQuality = 4

// Output is the device the player mixes into.
// Lock and Unlock guard streamer state against the audio callback.
type Output interface {
	Play(s ...beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

// Config represents player configuration.
type Config struct {
	SampleRate     int   // Output sample rate
	MaxStreamBytes int64 // Largest stream that is loaded into memory
	HTTPClient     *http.Client
}

// Player plays a single stream at a time. It is safe for concurrent use.
type Player struct {
	out        Output
	sampleRate beep.SampleRate
	maxBytes   int64
	httpClient *http.Client

	mu     sync.Mutex
	stream beep.StreamSeekCloser
	format beep.Format
	ctrl   *beep.Ctrl
	volume *effects.Volume
	level  float64
}

// NewPlayer creates a player mixing into out.
func NewPlayer(out Output, cfg Config) *Player {
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	maxBytes := cfg.MaxStreamBytes
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Player{
		out:        out,
		sampleRate: beep.SampleRate(sampleRate),
		maxBytes:   maxBytes,
		httpClient: httpClient,
		level:      1,
	}
}

// SetURL loads the stream at rawURL, paused at its start, and returns its
// duration. rawURL is an http(s) URL or a local file path.
func (p *Player) SetURL(ctx context.Context, rawURL string) (time.Duration, error) {
	data, contentType, err := p.fetch(ctx, rawURL)
	if err != nil {
		return 0, err
	}

	stream, format, err := decode(data, formatOf(rawURL, contentType))
	if err != nil {
		return 0, err
	}

	if err := ctx.Err(); err != nil {
		stream.Close()
		return 0, errors.Wrap(err, "load cancelled")
	}

	duration := format.SampleRate.D(stream.Len())
	p.install(stream, format)

	zlog.Debug().Msgf("audio: loaded stream: url=%s rate=%d channels=%d duration=%v",
		rawURL, format.SampleRate, format.NumChannels, duration)
	return duration, nil
}

// install replaces the current stream with a paused one.
func (p *Player) install(stream beep.StreamSeekCloser, format beep.Format) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.out.Clear()
	if p.stream != nil {
		p.stream.Close()
	}

	ctrl := &beep.Ctrl{Streamer: stream, Paused: true}
	volume := &effects.Volume{Streamer: sustain{ctrl}, Base: 2}
	applyLevel(volume, p.level)

	p.stream = stream
	p.format = format
	p.ctrl = ctrl
	p.volume = volume

	var out beep.Streamer = volume
	if format.SampleRate != p.sampleRate {
		out = beep.Resample(resampleQuality, format.SampleRate, p.sampleRate, volume)
	}
	p.out.Play(out)
}

// Play resumes playback. It is a no-op until a stream is loaded.
func (p *Player) Play() {
	p.setPaused(false)
}

// Pause pauses playback.
func (p *Player) Pause() {
	p.setPaused(true)
}

func (p *Player) setPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}

	p.out.Lock()
	p.ctrl.Paused = paused
	p.out.Unlock()
}

// Seek moves the play position, clamped to the stream bounds.
func (p *Player) Seek(t time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return
	}

	pos := min(max(p.format.SampleRate.N(t), 0), p.stream.Len())

	p.out.Lock()
	err := p.stream.Seek(pos)
	p.out.Unlock()

	if err != nil {
		zlog.Warn().Err(err).Msgf("audio: seek failed: t=%v", t)
	}
}

// SetVolume sets the output level in [0,1]. The level survives stream changes.
func (p *Player) SetVolume(level float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.level = min(max(level, 0), 1)
	if p.volume == nil {
		return
	}

	p.out.Lock()
	applyLevel(p.volume, p.level)
	p.out.Unlock()
}

// CurrentTime returns the play position.
func (p *Player) CurrentTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return 0
	}

	p.out.Lock()
	pos := p.stream.Position()
	p.out.Unlock()

	return p.format.SampleRate.D(pos)
}

// Close stops output and releases the current stream.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.out.Clear()
	if p.stream == nil {
		return nil
	}
	err := p.stream.Close()
	p.stream, p.ctrl, p.volume = nil, nil, nil
	return err
}

// applyLevel maps a linear level onto the base-2 volume effect.
func applyLevel(v *effects.Volume, level float64) {
	if level <= 0 {
		v.Silent = true
		v.Volume = 0
		return
	}
	v.Silent = false
	v.Volume = math.Log2(level)
}

// fetch reads the stream into memory so the decoders can seek.
func (p *Player) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", errors.Wrap(err, "invalid stream url")
	}

	var body io.ReadCloser
	var contentType string

	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to create request")
		}
		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to send request")
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, "", errors.Newf("unexpected status fetching stream: %s", resp.Status)
		}
		body = resp.Body
		contentType = resp.Header.Get("Content-Type")

	case "file", "":
		name := u.Path
		if u.Scheme == "" {
			name = rawURL
		}
		f, err := os.Open(name)
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to open stream file")
		}
		body = f

	default:
		return nil, "", errors.Newf("unsupported stream scheme: %s", u.Scheme)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, p.maxBytes+1))
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read stream")
	}
	if int64(len(data)) > p.maxBytes {
		return nil, "", errors.Wrapf(ErrStreamTooLarge, "limit %d bytes", p.maxBytes)
	}
	return data, contentType, nil
}

type audioFormat int

const (
	formatUnknown audioFormat = iota
	formatMP3
	formatWAV
)

// formatOf detects the format from the URL extension, or from the content
// type when the URL has none.
func formatOf(rawURL, contentType string) audioFormat {
	ext := ""
	if u, err := url.Parse(rawURL); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	switch ext {
	case ".mp3":
		return formatMP3
	case ".wav", ".wave":
		return formatWAV
	case "":
	default:
		return formatUnknown
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return formatMP3
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return formatWAV
	}
	return formatUnknown
}

func decode(data []byte, format audioFormat) (beep.StreamSeekCloser, beep.Format, error) {
	r := readSeekNopCloser{bytes.NewReader(data)}

	var stream beep.StreamSeekCloser
	var f beep.Format
	var err error

	switch format {
	case formatMP3:
		stream, f, err = mp3.Decode(r)
	case formatWAV:
		stream, f, err = wav.Decode(r)
	default:
		return nil, beep.Format{}, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, beep.Format{}, errors.Wrap(err, "failed to decode stream")
	}
	return stream, f, nil
}

// readSeekNopCloser keeps the Seeker that io.NopCloser would hide.
type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }

// sustain emits silence once s is drained so the output keeps the entry and
// the stream can be rewound and resumed.
type sustain struct {
	s beep.Streamer
}

func (h sustain) Stream(samples [][2]float64) (int, bool) {
	n, _ := h.s.Stream(samples)
	clear(samples[n:])
	return len(samples), true
}

func (h sustain) Err() error {
	return h.s.Err()
}
