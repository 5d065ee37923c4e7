// Package itunes provides a client for the iTunes Search API.
package itunes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/domain/track"
)

// ErrNotFound is returned when a lookup yields no track.
var ErrNotFound = errors.New("track not found")

const (
	defaultBaseURL = "https://itunes.apple.com"
	maxSearchLimit = 200
)

// Config represents iTunes client configuration.
type Config struct {
	Country string        // ISO country code of the store
	Timeout time.Duration // HTTP timeout; 10s when zero
}

// Client is an iTunes Search API client.
type Client struct {
	country    string
	baseURL    string
	httpClient *http.Client

	// Cache for lookups by track ID
	cache   map[int64]track.Track
	cacheMu sync.RWMutex
}

// result is a single entry of a search or lookup response.
type result struct {
	WrapperType     string `json:"wrapperType"`
	Kind            string `json:"kind"`
	TrackID         int64  `json:"trackId"`
	TrackName       string `json:"trackName"`
	ArtistName      string `json:"artistName"`
	CollectionName  string `json:"collectionName"`
	ArtworkURL100   string `json:"artworkUrl100"`
	PreviewURL      string `json:"previewUrl"`
	TrackViewURL    string `json:"trackViewUrl"`
	TrackTimeMillis int64  `json:"trackTimeMillis"`
}

// response represents the response of both /search and /lookup.
type response struct {
	ResultCount int      `json:"resultCount"`
	Results     []result `json:"results"`
}

// errorResponse represents an error body returned with a non-2xx status.
type errorResponse struct {
	ErrorMessage string `json:"errorMessage"`
}

// New creates a new iTunes client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	country := cfg.Country
	if country == "" {
		country = "US"
	}

	return &Client{
		country:    country,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      make(map[int64]track.Track),
	}
}

// Lookup retrieves a single song by its iTunes track ID.
// Reference: https://performance-partners.apple.com/search-api
func (c *Client) Lookup(ctx context.Context, id int64) (track.Track, error) {
	c.cacheMu.RLock()
	cached, ok := c.cache[id]
	c.cacheMu.RUnlock()
	if ok {
		zlog.Debug().Msgf("itunes lookup cache hit: id=%d", id)
		return cached, nil
	}

	params := url.Values{}
	params.Set("id", strconv.FormatInt(id, 10))
	params.Set("entity", "song")
	params.Set("country", c.country)

	resp, err := c.get(ctx, "/lookup", params)
	if err != nil {
		return track.Track{}, err
	}

	for _, r := range resp.Results {
		if !isSong(r) || r.TrackID != id {
			continue
		}
		t := convertTrack(r)

		c.cacheMu.Lock()
		c.cache[id] = t
		c.cacheMu.Unlock()
		return t, nil
	}

	return track.Track{}, errors.Wrapf(ErrNotFound, "itunes id %d", id)
}

// Search searches songs matching term.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]track.Track, error) {
	if term == "" {
		return nil, errors.New("search term is required")
	}
	if limit <= 0 {
		limit = 25
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	params := url.Values{}
	params.Set("term", term)
	params.Set("media", "music")
	params.Set("entity", "song")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("country", c.country)

	resp, err := c.get(ctx, "/search", params)
	if err != nil {
		return nil, err
	}

	tracks := make([]track.Track, 0, len(resp.Results))
	c.cacheMu.Lock()
	for _, r := range resp.Results {
		if !isSong(r) {
			continue
		}
		t := convertTrack(r)
		c.cache[t.ID] = t
		tracks = append(tracks, t)
	}
	c.cacheMu.Unlock()

	zlog.Debug().Msgf("itunes search: term=%q results=%d", term, len(tracks))
	return tracks, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*response, error) {
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		var apiError errorResponse
		if err := json.Unmarshal(body, &apiError); err == nil && apiError.ErrorMessage != "" {
			return nil, errors.Errorf("itunes API error %d: %s", resp.StatusCode, apiError.ErrorMessage)
		}
		return nil, errors.Errorf("itunes API error %d", resp.StatusCode)
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}
	return &parsed, nil
}

func isSong(r result) bool {
	return r.WrapperType == "track" && r.Kind == "song"
}

// convertTrack converts an iTunes result to a domain track.
func convertTrack(r result) track.Track {
	return track.Track{
		ID:             r.TrackID,
		Title:          r.TrackName,
		Artist:         r.ArtistName,
		CollectionName: r.CollectionName,
		ArtworkURL:     r.ArtworkURL100,
		StreamURL:      r.PreviewURL,
		InfoURL:        r.TrackViewURL,
	}
}
