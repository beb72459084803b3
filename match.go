package match

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Mihuashi/match/distance"
	"github.com/Mihuashi/match/fetch"
	"github.com/Mihuashi/match/signature"
	"github.com/Mihuashi/match/store"
)

// Match is a content-based image similarity search engine over an injected
// record store. It is safe for concurrent use; concurrent adds to the same
// path race with last-writer-wins semantics at the delete-old step.
type Match struct {
	store           store.Store
	fetcher         *fetch.Fetcher
	logger          *Logger
	metrics         MetricsCollector
	cutoff          float64
	allOrientations bool
	maxCandidates   int
}

// Result is a single search match. Results are ephemeral: computed per
// search call, never persisted.
type Result struct {
	// ID is the engine-assigned record identifier.
	ID string
	// Path is the logical key the record was added under.
	Path string
	// Distance is the exact normalized distance to the query, in [0, 1).
	Distance float64
	// Score is the presentation form of Distance: (1 - Distance) * 100.
	Score float64
	// Metadata is the opaque metadata stored with the record, if any.
	Metadata map[string]any
}

// New creates a Match over the given store.
//
// The store carries its own lifecycle: Close closes it along with the
// engine.
func New(st store.Store, opts ...Option) (*Match, error) {
	if st == nil {
		return nil, ErrNilStore
	}
	o := options{
		cutoff:        DefaultCutoff,
		maxCandidates: DefaultMaxCandidates,
		fetcher:       fetch.New(),
		logger:        NoopLogger(),
		metrics:       NoopMetricsCollector{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cutoff <= 0 || o.cutoff > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCutoff, o.cutoff)
	}
	return &Match{
		store:           st,
		fetcher:         o.fetcher,
		logger:          o.logger,
		metrics:         o.metrics,
		cutoff:          o.cutoff,
		allOrientations: o.allOrientations,
		maxCandidates:   o.maxCandidates,
	}, nil
}

// ImageSource supplies the raw bytes of an image, either directly or by
// reference. Construct with FromBytes or FromRef.
type ImageSource interface {
	resolve(ctx context.Context, f *fetch.Fetcher) ([]byte, error)
}

type bytesSource []byte

func (s bytesSource) resolve(context.Context, *fetch.Fetcher) ([]byte, error) {
	return s, nil
}

// FromBytes wraps raw image bytes as an ImageSource.
func FromBytes(data []byte) ImageSource {
	return bytesSource(data)
}

type refSource string

func (s refSource) resolve(ctx context.Context, f *fetch.Fetcher) ([]byte, error) {
	return f.Fetch(ctx, string(s))
}

// FromRef wraps an image reference (http(s) URL, s3://bucket/key, or local
// path) as an ImageSource. The reference is fetched when the operation
// runs; fetch failures surface as DecodeError.
func FromRef(ref string) ImageSource {
	return refSource(ref)
}

// Add indexes an image under path. If records already exist for the path
// they are superseded: the new record is inserted first, then the old
// identifiers are deleted. Concurrent searches may briefly see both.
//
// Returns the new record's identifier.
func (m *Match) Add(ctx context.Context, path string, src ImageSource, metadata map[string]any) (id string, err error) {
	start := time.Now()
	defer func() {
		m.metrics.RecordAdd(time.Since(start), err)
	}()

	data, err := src.resolve(ctx, m.fetcher)
	if err != nil {
		err = translateError(err)
		m.logger.LogAdd(ctx, path, "", 0, err)
		return "", err
	}
	sig, err := signature.Generate(data)
	if err != nil {
		err = translateError(err)
		m.logger.LogAdd(ctx, path, "", 0, err)
		return "", err
	}

	oldIDs, err := m.store.IDsByPath(ctx, path)
	if err != nil {
		err = translateError(err)
		m.logger.LogAdd(ctx, path, "", 0, err)
		return "", err
	}

	id, err = m.store.Insert(ctx, store.Record{
		Path:      path,
		Signature: sig,
		Words:     signature.Words(sig),
		Metadata:  metadata,
	})
	if err != nil {
		err = translateError(err)
		m.logger.LogAdd(ctx, path, "", 0, err)
		return "", err
	}

	if err = m.store.DeleteIDs(ctx, oldIDs); err != nil {
		err = translateError(err)
		m.logger.LogAdd(ctx, path, id, 0, err)
		return "", err
	}

	m.logger.LogAdd(ctx, path, id, len(oldIDs), nil)
	return id, nil
}

// Delete removes every record stored under path. Deleting an absent path
// is a no-op, not an error.
func (m *Match) Delete(ctx context.Context, path string) (err error) {
	start := time.Now()
	removed := 0
	defer func() {
		m.metrics.RecordDelete(removed, time.Since(start), err)
	}()

	ids, err := m.store.IDsByPath(ctx, path)
	if err == nil {
		err = m.store.DeleteIDs(ctx, ids)
	}
	if err != nil {
		err = translateError(err)
		m.logger.LogDelete(ctx, path, 0, err)
		return err
	}
	removed = len(ids)
	m.logger.LogDelete(ctx, path, removed, nil)
	return nil
}

// Compare scores two images directly, without touching the index.
// Returns (1 - distance) * 100, so 100 means identical signatures.
func (m *Match) Compare(ctx context.Context, a, b ImageSource) (score float64, err error) {
	start := time.Now()
	defer func() {
		m.metrics.RecordCompare(time.Since(start), err)
	}()

	sigA, err := m.sourceSignature(ctx, a)
	if err != nil {
		m.logger.LogCompare(ctx, 0, err)
		return 0, err
	}
	sigB, err := m.sourceSignature(ctx, b)
	if err != nil {
		m.logger.LogCompare(ctx, 0, err)
		return 0, err
	}

	score = distance.Score(distance.Normalized(sigA, sigB))
	m.logger.LogCompare(ctx, score, nil)
	return score, nil
}

// List returns a stable page of indexed paths. Negative offset or limit
// are clamped to zero.
func (m *Match) List(ctx context.Context, offset, limit int) ([]string, error) {
	paths, err := m.store.ListPaths(ctx, offset, limit)
	return paths, translateError(err)
}

// Count returns the total number of indexed records.
func (m *Match) Count(ctx context.Context) (uint64, error) {
	n, err := m.store.Count(ctx)
	return n, translateError(err)
}

// Ping verifies the backing store is reachable.
func (m *Match) Ping(ctx context.Context) error {
	_, err := m.store.Count(ctx)
	return translateError(err)
}

// Close releases the backing store.
func (m *Match) Close() error {
	return m.store.Close()
}

func (m *Match) sourceSignature(ctx context.Context, src ImageSource) (signature.Signature, error) {
	data, err := src.resolve(ctx, m.fetcher)
	if err != nil {
		return signature.Signature{}, translateError(err)
	}
	sig, err := signature.Generate(data)
	if err != nil {
		return signature.Signature{}, translateError(err)
	}
	return sig, nil
}

// searchSignature runs the core retrieval + re-ranking pipeline for one
// query signature: approximate word retrieval, exact batch distance,
// strict cutoff filter.
func (m *Match) searchSignature(ctx context.Context, sig signature.Signature, cutoff float64) ([]Result, error) {
	candidates, err := m.store.CandidatesByWords(ctx, signature.Words(sig), m.maxCandidates)
	if err != nil {
		return nil, translateError(err)
	}
	if len(candidates) == 0 {
		// Nothing to re-rank; never hand an empty set to the distance
		// engine.
		return nil, nil
	}

	sigs := make([]signature.Signature, len(candidates))
	for i := range candidates {
		sigs[i] = candidates[i].Signature
	}
	dists := distance.Batch(sig, sigs)

	results := make([]Result, 0, len(candidates))
	for i, c := range candidates {
		if dists[i] >= cutoff {
			continue
		}
		results = append(results, Result{
			ID:       c.ID,
			Path:     c.Path,
			Distance: dists[i],
			Score:    distance.Score(dists[i]),
			Metadata: c.Metadata,
		})
	}
	return results, nil
}

// searchAllOrientations fans the pipeline out over every orientation of the
// query image and unions the results by record identifier, keeping each
// record's lowest distance.
func (m *Match) searchAllOrientations(ctx context.Context, img image.Image, cutoff float64) ([]Result, error) {
	orientations := signature.AllOrientations()
	perOrientation := make([][]Result, len(orientations))

	g, gctx := errgroup.WithContext(ctx)
	for i, o := range orientations {
		i, o := i, o
		g.Go(func() error {
			sig := signature.GenerateImage(o.Apply(img))
			results, err := m.searchSignature(gctx, sig, cutoff)
			if err != nil {
				return err
			}
			perOrientation[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := make(map[string]Result)
	order := make([]string, 0)
	for _, results := range perOrientation {
		for _, r := range results {
			prev, seen := best[r.ID]
			if !seen {
				order = append(order, r.ID)
			}
			if !seen || r.Distance < prev.Distance {
				best[r.ID] = r
			}
		}
	}

	union := make([]Result, 0, len(order))
	for _, id := range order {
		union = append(union, best[id])
	}
	return union, nil
}

// sortResults orders results by descending score (ascending distance),
// breaking ties by identifier for stable output.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", signature.ErrDecode, err)
	}
	return img, nil
}
