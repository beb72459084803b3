package distance

import (
	"math"

	"github.com/Mihuashi/match/signature"
)

// Normalized calculates the normalized Euclidean distance between two
// signatures.
//
// The result is in [0, 1]: 0 for identical signatures, approaching 1 for
// maximally dissimilar ones. Normalized(a, b) == Normalized(b, a). Two
// all-zero signatures have distance 0.
func Normalized(a, b signature.Signature) float64 {
	var diff, na, nb float64
	for i := 0; i < signature.Length; i++ {
		av := float64(a[i])
		bv := float64(b[i])
		d := av - bv
		diff += d * d
		na += av * av
		nb += bv * bv
	}
	denom := math.Sqrt(na) + math.Sqrt(nb)
	if denom == 0 {
		return 0
	}
	return math.Sqrt(diff) / denom
}

// Batch calculates the distance from query to every candidate.
//
// The result has one entry per candidate, in order, and is identical to
// calling Normalized per candidate. Callers must not pass an empty
// candidate set through hot paths that could have short-circuited; Batch
// itself tolerates it and returns an empty slice.
func Batch(query signature.Signature, candidates []signature.Signature) []float64 {
	out := make([]float64, len(candidates))
	for i := range candidates {
		out[i] = Normalized(query, candidates[i])
	}
	return out
}

// Score converts a normalized distance into the 0..100 similarity score
// used in user-facing results.
func Score(dist float64) float64 {
	return (1 - dist) * 100
}
