package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/domain/track"
)

// Result represents a track with the source it came from.
type Result struct {
	Track       track.Track
	DisplayName string
}

// SourceWithMetadata wraps a source with its metadata.
type SourceWithMetadata struct {
	Source      Source
	DisplayName string
}

// Chain tries multiple sources in configuration order.
type Chain struct {
	sources []SourceWithMetadata
}

// NewChain creates a new source chain.
func NewChain(sources []SourceWithMetadata) *Chain {
	return &Chain{sources: sources}
}

// Lookup returns the track from the first source that resolves ref.
func (c *Chain) Lookup(ctx context.Context, ref string) (Result, error) {
	var errs error
	for i, sm := range c.sources {
		zlog.Debug().Msgf("trying source: index=%d total=%d name=%s source_type=%s",
			i+1, len(c.sources), sm.DisplayName, sm.Source.Name())

		t, err := sm.Source.Lookup(ctx, ref)
		if err != nil {
			if !errors.Is(err, ErrUnsupportedRef) {
				zlog.Warn().Msgf("source lookup failed, trying next: source=%s error=%v", sm.DisplayName, err)
			}
			errs = errors.CombineErrors(errs, err)
			continue
		}

		zlog.Info().Msgf("resolved track: source=%s id=%d title=%q", sm.DisplayName, t.ID, t.Title)
		return Result{Track: t, DisplayName: sm.DisplayName}, nil
	}

	if errs == nil {
		return Result{}, errors.Wrapf(ErrTrackNotFound, "no sources for %q", ref)
	}
	return Result{}, errors.Mark(errors.Wrapf(errs, "lookup %q", ref), ErrTrackNotFound)
}

// Search collects results from all sources, skipping duplicate track IDs.
// A failing source is skipped; an error is returned only if every source fails.
func (c *Chain) Search(ctx context.Context, term string) ([]Result, error) {
	if term == "" {
		return nil, errors.New("search term is required")
	}

	var results []Result
	seen := make(map[int64]bool)
	failed := 0

	for _, sm := range c.sources {
		tracks, err := sm.Source.Search(ctx, term)
		if err != nil {
			zlog.Warn().Msgf("source failed, trying next: source=%s error=%v", sm.DisplayName, err)
			failed++
			continue
		}

		for _, t := range tracks {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			results = append(results, Result{Track: t, DisplayName: sm.DisplayName})
		}

		zlog.Debug().Msgf("source returned tracks: source=%s count=%d total_so_far=%d",
			sm.DisplayName, len(tracks), len(results))
	}

	if failed > 0 && failed == len(c.sources) {
		return nil, errors.New("all sources failed to search")
	}
	return results, nil
}

// Len returns the number of sources.
func (c *Chain) Len() int {
	return len(c.sources)
}
