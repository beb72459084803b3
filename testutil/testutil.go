// Package testutil provides deterministic helpers for tests: a seeded,
// thread-safe random source, synthetic test images, and random signatures.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"sync"

	"github.com/Mihuashi/match/signature"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Blocks renders a deterministic random block pattern. Block patterns have
// strong local contrast, so their signatures are information-dense.
func Blocks(r *RNG, w, h, cell int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for by := 0; by < (h+cell-1)/cell; by++ {
		for bx := 0; bx < (w+cell-1)/cell; bx++ {
			v := uint8(r.Intn(256))
			for y := by * cell; y < min((by+1)*cell, h); y++ {
				for x := bx * cell; x < min((bx+1)*cell, w); x++ {
					img.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
				}
			}
		}
	}
	return img
}

// Gradient renders a diagonal brightness gradient.
func Gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x + y) * 255 / (w + h - 2))
			img.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// PNG encodes an image to PNG bytes.
func PNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// BlocksPNG is shorthand for PNG(Blocks(NewRNG(seed), 120, 120, 12)).
func BlocksPNG(seed int64) []byte {
	return PNG(Blocks(NewRNG(seed), 120, 120, 12))
}

// RandomSignature fills a signature with pseudo-random levels in [-2, 2].
func RandomSignature(r *RNG) signature.Signature {
	var sig signature.Signature
	for i := range sig {
		sig[i] = int8(r.Intn(5) - 2)
	}
	return sig
}
