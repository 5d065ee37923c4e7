// Package track provides the Track domain entity.
package track

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
	"time"
)

// Track represents a playable catalog entry.
// It is an immutable value once loaded from a catalog source.
type Track struct {
	ID             int64  // Catalog track ID
	Title          string // Track name
	Artist         string // Artist name
	CollectionName string // Album / collection name
	ArtworkURL     string // Small artwork URL (100x100 on iTunes)
	StreamURL      string // Preview stream URL
	InfoURL        string // Web page for the track
}

// LargeArtworkURL returns the artwork URL upscaled for the detail screen.
func (t Track) LargeArtworkURL() string {
	return strings.Replace(t.ArtworkURL, "100x100", "600x600", 1)
}

// InfoLink parses InfoURL. It reports false when the URL is empty or not absolute.
func (t Track) InfoLink() (*url.URL, bool) {
	if t.InfoURL == "" {
		return nil, false
	}
	u, err := url.Parse(t.InfoURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, false
	}
	return u, true
}

// HasStream returns true if the track has a playable stream URL.
func (t Track) HasStream() bool {
	return t.StreamURL != ""
}

// IDFromString derives a stable positive ID from a string identifier.
// Used for catalogs whose native IDs are not numeric.
func IDFromString(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

// FormatTime formats d as m:ss. Negative durations are treated as zero.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
