package signature

import "fmt"

const (
	// NumWords is the number of index words derived from a signature.
	NumWords = 63

	// WordLength is the number of signature levels packed into one word.
	WordLength = 16
)

// WordSet is the fixed-shape set of index words derived from a signature.
//
// Word i covers a WordLength-wide window of the signature starting at an
// evenly spaced position. Window levels are clamped to {-1, 0, 1} before
// base-3 packing, so many nearby signatures collapse onto the same word.
// Two records sharing at least one word slot value are retrieval candidates
// for each other.
type WordSet [NumWords]uint32

// slotNames is precomputed so query construction does no formatting.
var slotNames = func() [NumWords]string {
	var names [NumWords]string
	for i := range names {
		names[i] = fmt.Sprintf("simple_word_%d", i)
	}
	return names
}()

// SlotName returns the index field name of word slot i.
func SlotName(i int) string {
	return slotNames[i]
}

// Words derives the word set of a signature.
//
// It is pure: equal signatures always yield equal word sets.
func Words(s Signature) WordSet {
	var ws WordSet
	for i := 0; i < NumWords; i++ {
		pos := i * Length / NumWords
		var packed uint32
		pow := uint32(1)
		for k := 0; k < WordLength; k++ {
			// Windows run off the end of the signature near the tail;
			// missing levels read as zero.
			var lvl int8
			if pos+k < Length {
				lvl = s[pos+k]
			}
			trit := uint32(1)
			switch {
			case lvl > 0:
				trit = 2
			case lvl < 0:
				trit = 0
			}
			packed += trit * pow
			pow *= 3
		}
		ws[i] = packed
	}
	return ws
}
