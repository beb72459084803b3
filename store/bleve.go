package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"

	"github.com/Mihuashi/match/signature"
)

const (
	fieldPath      = "path"
	fieldSignature = "signature"
	fieldMetadata  = "metadata"

	// maxPathMatches caps the identifier lookup per path. Paths briefly
	// hold two records during re-add; anything near this cap indicates a
	// bug elsewhere.
	maxPathMatches = 1000
)

// Index is a Store backed by an embedded Bleve index.
//
// An Index is safe for concurrent use and is meant to be constructed once
// at process start, injected into every component that needs it, and closed
// at shutdown.
type Index struct {
	idx   bleve.Index
	retry RetryPolicy
}

// Option configures an Index.
type Option func(*Index)

// WithRetryPolicy overrides the default backend retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Index) {
		if p.Attempts > 0 {
			s.retry = p
		}
	}
}

// Open opens the Bleve index at path, creating it if absent.
func Open(path string, opts ...Option) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, indexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrBackend, path, err)
	}
	return newIndex(idx, opts...), nil
}

// OpenInMemory creates a transient in-memory index. Used by tests and
// ephemeral deployments.
func OpenInMemory(opts ...Option) (*Index, error) {
	idx, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return nil, fmt.Errorf("%w: open in-memory index: %v", ErrBackend, err)
	}
	return newIndex(idx, opts...), nil
}

func newIndex(idx bleve.Index, opts ...Option) *Index {
	s := &Index{
		idx:   idx,
		retry: DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// indexMapping declares the document model: path and word slots as exact
// keyword terms, signature and metadata stored but never indexed.
func indexMapping() mapping.IndexMapping {
	dm := bleve.NewDocumentMapping()
	dm.Dynamic = false

	pathField := bleve.NewTextFieldMapping()
	pathField.Store = true
	pathField.Index = true
	pathField.IncludeInAll = false
	pathField.IncludeTermVectors = false
	pathField.Analyzer = keyword.Name
	dm.AddFieldMappingsAt(fieldPath, pathField)

	sigField := bleve.NewTextFieldMapping()
	sigField.Store = true
	sigField.Index = false
	sigField.IncludeInAll = false
	dm.AddFieldMappingsAt(fieldSignature, sigField)

	metaField := bleve.NewTextFieldMapping()
	metaField.Store = true
	metaField.Index = false
	metaField.IncludeInAll = false
	dm.AddFieldMappingsAt(fieldMetadata, metaField)

	for i := 0; i < signature.NumWords; i++ {
		wordField := bleve.NewTextFieldMapping()
		wordField.Store = false
		wordField.Index = true
		wordField.IncludeInAll = false
		wordField.IncludeTermVectors = false
		wordField.Analyzer = keyword.Name
		dm.AddFieldMappingsAt(signature.SlotName(i), wordField)
	}

	im := bleve.NewIndexMapping()
	im.DefaultMapping = dm
	im.DefaultAnalyzer = keyword.Name
	return im
}

// Insert implements Store.
func (s *Index) Insert(ctx context.Context, rec Record) (string, error) {
	doc := map[string]any{
		fieldPath:      rec.Path,
		fieldSignature: encodeSignature(rec.Signature),
	}
	if rec.Metadata != nil {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return "", fmt.Errorf("encode metadata: %w", err)
		}
		doc[fieldMetadata] = string(meta)
	}
	for i, w := range rec.Words {
		doc[signature.SlotName(i)] = strconv.FormatUint(uint64(w), 10)
	}

	id := uuid.NewString()
	err := s.withRetry(ctx, "insert", func(context.Context) error {
		return s.idx.Index(id, doc)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// DeleteIDs implements Store. Absent identifiers are skipped silently.
func (s *Index) DeleteIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withRetry(ctx, "delete", func(context.Context) error {
		batch := s.idx.NewBatch()
		for _, id := range ids {
			batch.Delete(id)
		}
		return s.idx.Batch(batch)
	})
}

// IDsByPath implements Store.
func (s *Index) IDsByPath(ctx context.Context, path string) ([]string, error) {
	q := bleve.NewTermQuery(path)
	q.SetField(fieldPath)
	req := bleve.NewSearchRequestOptions(q, maxPathMatches, 0, false)
	req.SortBy([]string{"_id"})

	res, err := s.search(ctx, "ids by path", req)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// ListPaths implements Store. Pagination order follows document
// identifiers, stable absent concurrent writes.
func (s *Index) ListPaths(ctx context.Context, offset, limit int) ([]string, error) {
	offset = max(offset, 0)
	limit = max(limit, 0)
	if limit == 0 {
		return []string{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), limit, offset, false)
	req.Fields = []string{fieldPath}
	req.SortBy([]string{"_id"})

	res, err := s.search(ctx, "list paths", req)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		path, _ := hit.Fields[fieldPath].(string)
		paths = append(paths, path)
	}
	return paths, nil
}

// Count implements Store.
func (s *Index) Count(ctx context.Context) (uint64, error) {
	var n uint64
	err := s.withRetry(ctx, "count", func(context.Context) error {
		var err error
		n, err = s.idx.DocCount()
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// CandidatesByWords implements Store.
//
// The query is a disjunction over every word slot: one shared slot value is
// enough to qualify. Word fields themselves are not stored, so the response
// carries only what re-ranking needs.
func (s *Index) CandidatesByWords(ctx context.Context, words signature.WordSet, maxResults int) ([]Candidate, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	terms := make([]query.Query, 0, signature.NumWords)
	for i, w := range words {
		tq := bleve.NewTermQuery(strconv.FormatUint(uint64(w), 10))
		tq.SetField(signature.SlotName(i))
		terms = append(terms, tq)
	}
	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(terms...), maxResults, 0, false)
	req.Fields = []string{fieldPath, fieldSignature, fieldMetadata}

	res, err := s.search(ctx, "candidates", req)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(res.Hits))
	for _, hit := range res.Hits {
		c := Candidate{ID: hit.ID}
		c.Path, _ = hit.Fields[fieldPath].(string)

		raw, _ := hit.Fields[fieldSignature].(string)
		c.Signature, err = decodeSignature(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: candidate %s: %v", ErrBackend, hit.ID, err)
		}

		if meta, ok := hit.Fields[fieldMetadata].(string); ok && meta != "" {
			if err := json.Unmarshal([]byte(meta), &c.Metadata); err != nil {
				return nil, fmt.Errorf("%w: candidate %s metadata: %v", ErrBackend, hit.ID, err)
			}
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// Close implements Store.
func (s *Index) Close() error {
	return s.idx.Close()
}

func (s *Index) search(ctx context.Context, op string, req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	var res *bleve.SearchResult
	err := s.withRetry(ctx, op, func(callCtx context.Context) error {
		var err error
		res, err = s.idx.SearchInContext(callCtx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func encodeSignature(sig signature.Signature) string {
	buf := make([]byte, signature.Length)
	for i, v := range sig {
		buf[i] = byte(v)
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func decodeSignature(raw string) (signature.Signature, error) {
	var sig signature.Signature
	buf, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return sig, fmt.Errorf("decode signature: %v", err)
	}
	if len(buf) != signature.Length {
		return sig, fmt.Errorf("signature has %d levels, want %d", len(buf), signature.Length)
	}
	for i, b := range buf {
		sig[i] = int8(b)
	}
	return sig, nil
}
