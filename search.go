// Package match provides content-based image similarity search.
//
// This file implements the fluent search API.
package match

import (
	"context"
	"fmt"
	"time"

	"github.com/Mihuashi/match/signature"
)

// Search creates a new fluent search builder for the given query image.
//
// Example:
//
//	results, err := m.Search(match.FromBytes(img)).
//	    Cutoff(0.4).
//	    AllOrientations(true).
//	    Execute(ctx)
func (m *Match) Search(src ImageSource) *SearchBuilder {
	return &SearchBuilder{
		m:               m,
		src:             src,
		cutoff:          m.cutoff,
		allOrientations: m.allOrientations,
	}
}

// SearchBuilder is a fluent builder for constructing search queries.
// Defaults come from the Match instance; each setter overrides per call.
type SearchBuilder struct {
	m               *Match
	src             ImageSource
	cutoff          float64
	allOrientations bool
}

// Cutoff overrides the maximum normalized distance for this search.
// Candidates at distance >= cutoff are excluded (strict inequality).
func (sb *SearchBuilder) Cutoff(cutoff float64) *SearchBuilder {
	sb.cutoff = cutoff
	return sb
}

// AllOrientations overrides orientation expansion for this search.
func (sb *SearchBuilder) AllOrientations(enabled bool) *SearchBuilder {
	sb.allOrientations = enabled
	return sb
}

// Execute runs the search and returns matches sorted by descending score.
// An empty result list is success, not an error.
func (sb *SearchBuilder) Execute(ctx context.Context) (results []Result, err error) {
	m := sb.m
	start := time.Now()
	defer func() {
		m.metrics.RecordSearch(len(results), time.Since(start), err)
		m.logger.LogSearch(ctx, sb.allOrientations, len(results), err)
	}()

	if sb.cutoff <= 0 || sb.cutoff > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCutoff, sb.cutoff)
	}

	data, err := sb.src.resolve(ctx, m.fetcher)
	if err != nil {
		return nil, translateError(err)
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, translateError(err)
	}

	if sb.allOrientations {
		results, err = m.searchAllOrientations(ctx, img, sb.cutoff)
	} else {
		results, err = m.searchSignature(ctx, signature.GenerateImage(img), sb.cutoff)
	}
	if err != nil {
		return nil, err
	}
	sortResults(results)
	return results, nil
}

// First returns only the best match, or ErrNotFound if nothing is within
// the cutoff.
func (sb *SearchBuilder) First(ctx context.Context) (Result, error) {
	results, err := sb.Execute(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(results) == 0 {
		return Result{}, ErrNotFound
	}
	return results[0], nil
}

// Exists reports whether at least one indexed image matches the search.
func (sb *SearchBuilder) Exists(ctx context.Context) (bool, error) {
	results, err := sb.Execute(ctx)
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}
