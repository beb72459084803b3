package signature

import (
	"fmt"
	"image"
)

// Orientation is one of the eight axis-aligned transforms of an image
// (the identity, three rotations, two flips, and the two diagonal
// reflections their compositions produce).
//
// Orientation-robust search generates a signature per transformed image;
// signatures themselves are never transformed.
type Orientation int

const (
	Identity Orientation = iota
	Rotate90
	Rotate180
	Rotate270
	FlipHorizontal
	FlipVertical
	Transpose
	Transverse
)

// AllOrientations returns every orientation, Identity first.
func AllOrientations() []Orientation {
	return []Orientation{
		Identity,
		Rotate90,
		Rotate180,
		Rotate270,
		FlipHorizontal,
		FlipVertical,
		Transpose,
		Transverse,
	}
}

func (o Orientation) String() string {
	switch o {
	case Identity:
		return "identity"
	case Rotate90:
		return "rotate90"
	case Rotate180:
		return "rotate180"
	case Rotate270:
		return "rotate270"
	case FlipHorizontal:
		return "flip-horizontal"
	case FlipVertical:
		return "flip-vertical"
	case Transpose:
		return "transpose"
	case Transverse:
		return "transverse"
	default:
		return fmt.Sprintf("Unknown(%d)", int(o))
	}
}

// Apply returns the transformed image. Identity returns src unchanged;
// every other orientation allocates a new image.
func (o Orientation) Apply(src image.Image) image.Image {
	if o == Identity {
		return src
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	var dst *image.NRGBA
	switch o {
	case Rotate90, Rotate270, Transpose, Transverse:
		dst = image.NewNRGBA(image.Rect(0, 0, h, w))
	default:
		dst = image.NewNRGBA(image.Rect(0, 0, w, h))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch o {
			case Rotate90:
				dx, dy = y, w-1-x
			case Rotate180:
				dx, dy = w-1-x, h-1-y
			case Rotate270:
				dx, dy = h-1-y, x
			case FlipHorizontal:
				dx, dy = w-1-x, y
			case FlipVertical:
				dx, dy = x, h-1-y
			case Transpose:
				dx, dy = y, x
			case Transverse:
				dx, dy = h-1-y, w-1-x
			}
			dst.Set(dx, dy, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
