// Package signature implements the perceptual image signature used for
// similarity search.
//
// A signature is a fixed-length vector of small signed levels describing the
// relative brightness of a 9x9 grid of image regions against their
// neighbors. Signatures are deterministic: the same image bytes always
// produce the same signature.
//
// The package also derives "words" from a signature: coarse, lossy base-3
// packings of short signature windows. Words are used only as index keys for
// approximate candidate retrieval, never for exact comparison.
package signature
