package match

import (
	"github.com/Mihuashi/match/fetch"
)

const (
	// DefaultCutoff is the default maximum normalized distance for a
	// candidate to count as a match.
	DefaultCutoff = 0.45

	// DefaultMaxCandidates bounds the approximate retrieval set per query.
	DefaultMaxCandidates = 100
)

type options struct {
	cutoff          float64
	allOrientations bool
	maxCandidates   int
	fetcher         *fetch.Fetcher
	logger          *Logger
	metrics         MetricsCollector
}

// Option configures constructor behavior of Match.
type Option func(*options)

// WithCutoff sets the process-wide default distance cutoff. Candidates at
// distance >= cutoff are excluded from search results. Individual searches
// can override it per call.
func WithCutoff(cutoff float64) Option {
	return func(o *options) {
		o.cutoff = cutoff
	}
}

// WithAllOrientations sets the process-wide default for orientation
// expansion. Individual searches can override it per call.
func WithAllOrientations(enabled bool) Option {
	return func(o *options) {
		o.allOrientations = enabled
	}
}

// WithMaxCandidates bounds the number of approximate candidates fetched per
// query before re-ranking.
func WithMaxCandidates(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxCandidates = n
		}
	}
}

// WithFetcher sets the fetcher used to resolve image references.
// If unset, a default fetcher (HTTP and local files only) is used.
func WithFetcher(f *fetch.Fetcher) Option {
	return func(o *options) {
		if f != nil {
			o.fetcher = f
		}
	}
}

// WithLogger sets the structured logger for operation tracing.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metrics = mc
		}
	}
}
