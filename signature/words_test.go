package signature_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mihuashi/match/signature"
	"github.com/Mihuashi/match/testutil"
)

func TestWordsDeterministic(t *testing.T) {
	sig, err := signature.Generate(testutil.BlocksPNG(10))
	require.NoError(t, err)
	assert.Equal(t, signature.Words(sig), signature.Words(sig))
}

func TestWordsBounded(t *testing.T) {
	limit := uint32(math.Pow(3, signature.WordLength))
	ws := signature.Words(testutil.RandomSignature(testutil.NewRNG(11)))
	for i, w := range ws {
		assert.Less(t, w, limit, "slot %d", i)
	}
}

func TestWordsCollapseContrast(t *testing.T) {
	// Words bucket by sign only: amplifying levels beyond +-1 must not
	// change any word.
	sig := testutil.RandomSignature(testutil.NewRNG(12))
	var amplified signature.Signature
	for i, lvl := range sig {
		switch {
		case lvl > 0:
			amplified[i] = 2
		case lvl < 0:
			amplified[i] = -2
		}
	}
	var clamped signature.Signature
	for i, lvl := range sig {
		switch {
		case lvl > 0:
			clamped[i] = 1
		case lvl < 0:
			clamped[i] = -1
		}
	}
	assert.Equal(t, signature.Words(clamped), signature.Words(amplified))
	assert.Equal(t, signature.Words(sig), signature.Words(amplified))
}

func TestWordsDifferForDistantSignatures(t *testing.T) {
	a := signature.Words(testutil.RandomSignature(testutil.NewRNG(13)))
	b := signature.Words(testutil.RandomSignature(testutil.NewRNG(14)))
	assert.NotEqual(t, a, b)
}

func TestWordsZeroSignature(t *testing.T) {
	ws := signature.Words(signature.Signature{})
	// All-zero windows pack every trit as 1.
	var expected uint32
	pow := uint32(1)
	for i := 0; i < signature.WordLength; i++ {
		expected += pow
		pow *= 3
	}
	for _, w := range ws {
		assert.Equal(t, expected, w)
	}
}

func TestSlotName(t *testing.T) {
	for i := 0; i < signature.NumWords; i++ {
		assert.Equal(t, fmt.Sprintf("simple_word_%d", i), signature.SlotName(i))
	}
}
