package match

import (
	"errors"
	"fmt"

	"github.com/Mihuashi/match/fetch"
	"github.com/Mihuashi/match/signature"
	"github.com/Mihuashi/match/store"
)

var (
	// ErrNotFound is reserved for operations defined to require existence.
	// Add, Delete, Search, List and Count never return it: delete of an
	// absent path and an empty search are both success.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCutoff is returned when a distance cutoff is outside (0, 1].
	ErrInvalidCutoff = errors.New("cutoff must be in (0, 1]")

	// ErrNilStore is returned by New when no store is supplied.
	ErrNilStore = errors.New("store must not be nil")
)

// DecodeError indicates the input could not be turned into a signature:
// the bytes are not a decodable image, or the image reference could not be
// fetched.
//
// The original underlying error can be accessed via errors.Unwrap.
type DecodeError struct {
	cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.cause)
}

func (e *DecodeError) Unwrap() error { return e.cause }

// StoreError indicates the backing search engine failed: unavailable,
// retries exhausted, or a malformed response.
//
// The original underlying error can be accessed via errors.Unwrap.
type StoreError struct {
	cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %v", e.cause)
}

func (e *StoreError) Unwrap() error { return e.cause }

// translateError maps lower-layer sentinels onto the package's public error
// contract. Unknown errors pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, signature.ErrDecode) || errors.Is(err, fetch.ErrFetch) {
		return &DecodeError{cause: err}
	}
	if errors.Is(err, store.ErrBackend) {
		return &StoreError{cause: err}
	}
	return err
}
