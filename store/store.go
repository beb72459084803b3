package store

import (
	"context"
	"errors"

	"github.com/Mihuashi/match/signature"
)

// ErrBackend is returned (wrapped) when the backing index fails or the
// retry budget is exhausted.
//
// Callers should test with errors.Is.
var ErrBackend = errors.New("backend request failed")

// Record is the logical document persisted for one indexed image.
//
// Records are immutable: a content change is modeled as insert + delete of
// the superseded identifiers, never as an in-place update.
type Record struct {
	Path      string
	Signature signature.Signature
	Words     signature.WordSet
	Metadata  map[string]any
}

// Candidate is a record fetched by approximate word matching, pending exact
// re-ranking. Word slots are deliberately absent: they are index keys, not
// payload.
type Candidate struct {
	ID        string
	Path      string
	Signature signature.Signature
	Metadata  map[string]any
}

// Store is the access pattern the search core requires from the backing
// engine. Implementations must be safe for concurrent use; each call is its
// own unit of work with no cross-call transaction scope.
type Store interface {
	// Insert atomically persists a record and returns its engine-assigned
	// identifier.
	Insert(ctx context.Context, rec Record) (string, error)

	// DeleteIDs removes the given identifiers. Deleting an absent
	// identifier is not an error.
	DeleteIDs(ctx context.Context, ids []string) error

	// IDsByPath returns the identifiers of every record whose path exactly
	// matches path, in stable order.
	IDsByPath(ctx context.Context, path string) ([]string, error)

	// ListPaths returns a stable page of record paths. Negative offset or
	// limit are clamped to zero before use.
	ListPaths(ctx context.Context, offset, limit int) ([]string, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (uint64, error)

	// CandidatesByWords returns up to max records sharing at least one word
	// slot value with words. An empty result is success.
	CandidatesByWords(ctx context.Context, words signature.WordSet, max int) ([]Candidate, error)

	// Close releases the backing index.
	Close() error
}
