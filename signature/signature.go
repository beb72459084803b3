package signature

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"
	"slices"
	"sort"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// GridSize is the number of sample points per image axis.
	GridSize = 9

	// NeighborCount is the number of neighbor differentials per grid point.
	NeighborCount = 8

	// Length is the total number of levels in a signature.
	Length = GridSize * GridSize * NeighborCount
)

const (
	// cropLower and cropUpper are the percentiles of cumulative brightness
	// change used to trim featureless borders before sampling.
	cropLower = 5
	cropUpper = 95

	// identicalTolerance is the brightness delta (on a 0..1 scale) below
	// which two regions count as identical.
	identicalTolerance = 2.0 / 255

	// levels is the number of quantization levels on each side of zero.
	levels = 2
)

// ErrDecode is returned when image bytes cannot be decoded.
//
// Callers should test with errors.Is.
var ErrDecode = errors.New("undecodable image")

// Signature is a fixed-length perceptual feature vector of an image.
//
// Each element is a quantized brightness differential in [-levels, levels].
// Signatures are value types and comparable with ==.
type Signature [Length]int8

// Generate decodes image bytes and computes their signature.
//
// It is deterministic and pure. JPEG, PNG, GIF, BMP, TIFF and WebP inputs
// are accepted; anything else fails with an error satisfying
// errors.Is(err, ErrDecode).
func Generate(data []byte) (Signature, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return GenerateImage(img), nil
}

// GenerateImage computes the signature of an already decoded image.
//
// Orientation-expanded search transforms the image first and calls this
// directly, because the feature extraction is not transform-equivariant.
func GenerateImage(img image.Image) Signature {
	gray := grayscale(img)
	rows, cols := cropWindow(gray)
	rowPts := gridPoints(rows[0], rows[1])
	colPts := gridPoints(cols[0], cols[1])
	means := meanLevels(gray, rowPts, colPts)
	diffs := differentials(means)
	return threshold(diffs)
}

// grayscale converts an image to a row-major luminance matrix in [0, 1].
func grayscale(img image.Image) [][]float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	g := make([][]float64, h)
	for y := 0; y < h; y++ {
		row := make([]float64, w)
		for x := 0; x < w; x++ {
			r, gr, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// ITU-R 709 luma coefficients on linear 16-bit channels.
			row[x] = (0.2125*float64(r) + 0.7154*float64(gr) + 0.0721*float64(bl)) / 65535
		}
		g[y] = row
	}
	return g
}

// cropWindow finds the row and column bounds that contain the central mass
// of brightness variation, trimming flat borders.
//
// Bounds are located at the cropLower/cropUpper percentiles of the
// cumulative absolute difference along each axis. Degenerate windows fall
// back to a fixed fractional crop.
func cropWindow(g [][]float64) (rows, cols [2]int) {
	h := len(g)
	w := len(g[0])

	rw := make([]float64, h)
	acc := 0.0
	for y := 0; y < h; y++ {
		for x := 0; x+1 < w; x++ {
			acc += math.Abs(g[y][x+1] - g[y][x])
		}
		rw[y] = acc
	}

	cw := make([]float64, w)
	acc = 0
	for x := 0; x < w; x++ {
		for y := 0; y+1 < h; y++ {
			acc += math.Abs(g[y+1][x] - g[y][x])
		}
		cw[x] = acc
	}

	rows[0] = searchSortedRight(rw, percentile(rw, cropLower))
	rows[1] = searchSortedLeft(rw, percentile(rw, cropUpper))
	cols[0] = searchSortedRight(cw, percentile(cw, cropLower))
	cols[1] = searchSortedLeft(cw, percentile(cw, cropUpper))

	if rows[0] >= rows[1] {
		rows[0] = h * cropLower / 100
		rows[1] = h * cropUpper / 100
	}
	if cols[0] >= cols[1] {
		cols[0] = w * cropLower / 100
		cols[1] = w * cropUpper / 100
	}
	return rows, cols
}

// gridPoints returns GridSize coordinates evenly spaced strictly inside
// [lo, hi].
func gridPoints(lo, hi int) [GridSize]int {
	var pts [GridSize]int
	span := float64(hi - lo)
	for i := 0; i < GridSize; i++ {
		pts[i] = lo + int(span*float64(i+1)/float64(GridSize+1))
	}
	return pts
}

// meanLevels computes the mean luminance of a PxP box around each grid
// point, with P scaled to the image so that boxes cover comparable
// fractions of differently sized images.
func meanLevels(g [][]float64, rowPts, colPts [GridSize]int) [GridSize][GridSize]float64 {
	h := len(g)
	w := len(g[0])
	p := min(h, w)/20 + boolToInt(min(h, w)%20 >= 10)
	if p < 2 {
		p = 2
	}

	var out [GridSize][GridSize]float64
	for i, r := range rowPts {
		r0 := max(r-p/2, 0)
		r1 := min(r0+p, h)
		for j, c := range colPts {
			c0 := max(c-p/2, 0)
			c1 := min(c0+p, w)
			sum := 0.0
			for y := r0; y < r1; y++ {
				for x := c0; x < c1; x++ {
					sum += g[y][x]
				}
			}
			out[i][j] = sum / float64((r1-r0)*(c1-c0))
		}
	}
	return out
}

// neighborOffsets enumerates the eight grid neighbors in a fixed order.
// The order is part of the signature contract and must not change.
var neighborOffsets = [NeighborCount][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// differentials computes, for every grid point, the difference between each
// neighbor's mean level and its own. Positions whose neighbor falls outside
// the grid are zero.
func differentials(means [GridSize][GridSize]float64) [Length]float64 {
	var out [Length]float64
	idx := 0
	for i := 0; i < GridSize; i++ {
		for j := 0; j < GridSize; j++ {
			for _, off := range neighborOffsets {
				ni, nj := i+off[0], j+off[1]
				if ni >= 0 && ni < GridSize && nj >= 0 && nj < GridSize {
					out[idx] = means[ni][nj] - means[i][j]
				}
				idx++
			}
		}
	}
	return out
}

// threshold quantizes raw differentials into levels -levels..levels.
//
// Differentials within identicalTolerance of zero become 0. The remaining
// positive (and, mirrored, negative) values are split into equal-population
// level buckets using percentile cutoffs, so the quantization adapts to the
// image's own contrast distribution.
func threshold(diffs [Length]float64) Signature {
	var sig Signature

	var pos, neg []float64
	for i, d := range diffs {
		if math.Abs(d) < identicalTolerance {
			diffs[i] = 0
			continue
		}
		if d > 0 {
			pos = append(pos, d)
		} else if d < 0 {
			neg = append(neg, -d)
		}
	}
	if len(pos) == 0 && len(neg) == 0 {
		return sig
	}

	posCut := levelCutoffs(pos)
	negCut := levelCutoffs(neg)

	for i, d := range diffs {
		switch {
		case d > 0:
			sig[i] = quantize(d, posCut)
		case d < 0:
			sig[i] = -quantize(-d, negCut)
		}
	}
	return sig
}

// levelCutoffs returns the interior percentile boundaries splitting vals
// into `levels` equal-population buckets.
func levelCutoffs(vals []float64) [levels - 1]float64 {
	var cuts [levels - 1]float64
	if len(vals) == 0 {
		return cuts
	}
	for k := 1; k < levels; k++ {
		cuts[k-1] = percentile(vals, 100*float64(k)/levels)
	}
	return cuts
}

func quantize(v float64, cuts [levels - 1]float64) int8 {
	level := int8(1)
	for _, c := range cuts {
		if v > c {
			level++
		}
	}
	return level
}

// percentile computes the p-th percentile of vals with linear
// interpolation. vals need not be sorted; it is not modified.
func percentile(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := slices.Clone(vals)
	slices.Sort(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// searchSortedLeft returns the first index i where sorted[i] >= v.
func searchSortedLeft(sorted []float64, v float64) int {
	return sort.Search(len(sorted), func(i int) bool { return sorted[i] >= v })
}

// searchSortedRight returns the first index i where sorted[i] > v.
func searchSortedRight(sorted []float64, v float64) int {
	return sort.Search(len(sorted), func(i int) bool { return sorted[i] > v })
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
