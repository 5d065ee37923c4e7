// Package speakerout mixes audio into the system speaker.
package speakerout

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	zlog "github.com/rs/zerolog/log"
)

// Speaker is the system audio device. Only one may be initialized per process.
type Speaker struct{}

// New initializes the speaker at sampleRate with the given buffer latency.
func New(sampleRate int, latency time.Duration) (*Speaker, error) {
	if latency <= 0 {
		latency = 100 * time.Millisecond
	}
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(latency)); err != nil {
		return nil, errors.Wrap(err, "failed to initialize speaker")
	}
	zlog.Debug().Msgf("speaker initialized: rate=%d latency=%v", sampleRate, latency)
	return &Speaker{}, nil
}

// Play adds streamers to the mixer.
func (s *Speaker) Play(streamers ...beep.Streamer) {
	speaker.Play(streamers...)
}

// Clear removes all streamers from the mixer.
func (s *Speaker) Clear() {
	speaker.Clear()
}

// Lock locks the mixer against the audio callback.
func (s *Speaker) Lock() {
	speaker.Lock()
}

// Unlock unlocks the mixer.
func (s *Speaker) Unlock() {
	speaker.Unlock()
}
