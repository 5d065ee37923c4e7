package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrack_LargeArtworkURL(t *testing.T) {
	tests := []struct {
		name     string
		artwork  string
		expected string
	}{
		{
			name:     "itunes artwork",
			artwork:  "https://is1-ssl.mzstatic.com/image/thumb/Music/100x100bb.jpg",
			expected: "https://is1-ssl.mzstatic.com/image/thumb/Music/600x600bb.jpg",
		},
		{
			name:     "no size marker",
			artwork:  "https://i.scdn.co/image/abc",
			expected: "https://i.scdn.co/image/abc",
		},
		{
			name:     "empty",
			artwork:  "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trk := Track{ArtworkURL: tt.artwork}
			assert.Equal(t, tt.expected, trk.LargeArtworkURL())
		})
	}
}

func TestTrack_InfoLink(t *testing.T) {
	tests := []struct {
		name    string
		infoURL string
		wantOK  bool
	}{
		{name: "absolute https", infoURL: "https://music.apple.com/us/album/1?i=7", wantOK: true},
		{name: "empty", infoURL: "", wantOK: false},
		{name: "relative path", infoURL: "/album/1", wantOK: false},
		{name: "malformed", infoURL: "http://[::1", wantOK: false},
		{name: "scheme only", infoURL: "mailto:", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, ok := Track{InfoURL: tt.infoURL}.InfoLink()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.NotNil(t, u)
				assert.Equal(t, tt.infoURL, u.String())
			}
		})
	}
}

func TestIDFromString(t *testing.T) {
	a := IDFromString("4uLU6hMCjMI75M1A2tKUQC")
	b := IDFromString("4uLU6hMCjMI75M1A2tKUQC")
	c := IDFromString("7GhIk7Il098yCjg4BQjzvb")

	assert.Equal(t, a, b, "same input should map to same ID")
	assert.NotEqual(t, a, c)
	assert.Positive(t, a)
	assert.Positive(t, c)
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{0, "0:00"},
		{9 * time.Second, "0:09"},
		{90 * time.Second, "1:30"},
		{30*time.Second + 900*time.Millisecond, "0:30"},
		{-5 * time.Second, "0:00"},
		{61 * time.Minute, "61:00"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatTime(tt.d))
		})
	}
}
