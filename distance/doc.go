// Package distance computes the normalized dissimilarity between perceptual
// image signatures.
//
// The metric is a normalized Euclidean distance scaled into [0, 1]:
//
//	d(a, b) = |a - b| / (|a| + |b|)
//
// It is symmetric and zero for identical signatures. Search cutoffs are
// expressed in the same units this package emits.
package distance
