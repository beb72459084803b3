// Package store persists image records and serves approximate candidate
// retrieval on top of an embedded Bleve index.
//
// The index models one logical collection: the path is an exact-match
// keyword field, each signature word slot is an independently term-queryable
// keyword field, the raw signature and metadata are stored but never
// indexed. Candidate retrieval issues a disjunctive term query over the
// word slots, so any record sharing at least one word with the query
// qualifies.
//
// Every backend call runs under a per-call timeout and a bounded retry
// policy; exhaustion surfaces as an error wrapping ErrBackend.
package store
