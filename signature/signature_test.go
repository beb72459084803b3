package signature_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mihuashi/match/signature"
	"github.com/Mihuashi/match/testutil"
)

func TestGenerateDeterministic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Blocks", testutil.BlocksPNG(1)},
		{"Gradient", testutil.PNG(testutil.Gradient(160, 90))},
		{"Small", testutil.PNG(testutil.Blocks(testutil.NewRNG(7), 40, 40, 5))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := signature.Generate(tt.data)
			require.NoError(t, err)
			second, err := signature.Generate(tt.data)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestGenerateLevelsBounded(t *testing.T) {
	sig, err := signature.Generate(testutil.BlocksPNG(2))
	require.NoError(t, err)

	nonZero := 0
	for _, lvl := range sig {
		assert.GreaterOrEqual(t, lvl, int8(-2))
		assert.LessOrEqual(t, lvl, int8(2))
		if lvl != 0 {
			nonZero++
		}
	}
	// A high-contrast block pattern must produce an information-dense
	// signature, not a near-empty one.
	assert.Greater(t, nonZero, signature.Length/4)
}

func TestGenerateDistinguishesImages(t *testing.T) {
	a, err := signature.Generate(testutil.BlocksPNG(3))
	require.NoError(t, err)
	b, err := signature.Generate(testutil.BlocksPNG(4))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGenerateDecodeError(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Garbage", []byte("not an image at all")},
		{"Truncated", testutil.BlocksPNG(5)[:20]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := signature.Generate(tt.data)
			assert.ErrorIs(t, err, signature.ErrDecode)
		})
	}
}

func TestGenerateImageMatchesGenerate(t *testing.T) {
	img := testutil.Blocks(testutil.NewRNG(6), 120, 120, 12)
	fromImage := signature.GenerateImage(img)
	fromBytes, err := signature.Generate(testutil.PNG(img))
	require.NoError(t, err)
	assert.Equal(t, fromImage, fromBytes)
}

func TestGenerateFlatImageIsZero(t *testing.T) {
	// A featureless image has no brightness differentials anywhere.
	flat := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			flat.Set(x, y, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}

	sig := signature.GenerateImage(flat)
	assert.Equal(t, signature.Signature{}, sig)
}
