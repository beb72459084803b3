package match

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordAdd is called after each add operation.
	// duration is the total time taken, err is nil if successful.
	RecordAdd(duration time.Duration, err error)

	// RecordDelete is called after each delete operation.
	// removed is the number of records removed.
	RecordDelete(removed int, duration time.Duration, err error)

	// RecordSearch is called after each search operation.
	// results is the number of matches surviving the cutoff.
	RecordSearch(results int, duration time.Duration, err error)

	// RecordCompare is called after each pairwise comparison.
	RecordCompare(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)         {}
func (NoopMetricsCollector) RecordDelete(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordCompare(time.Duration, error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount         atomic.Int64
	AddErrors        atomic.Int64
	AddTotalNanos    atomic.Int64
	DeleteCount      atomic.Int64
	DeleteErrors     atomic.Int64
	DeletedRecords   atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchResults    atomic.Int64
	SearchTotalNanos atomic.Int64
	CompareCount     atomic.Int64
	CompareErrors    atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(removed int, duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	b.DeletedRecords.Add(int64(removed))
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(results int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchResults.Add(int64(results))
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordCompare implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCompare(duration time.Duration, err error) {
	b.CompareCount.Add(1)
	if err != nil {
		b.CompareErrors.Add(1)
	}
}
