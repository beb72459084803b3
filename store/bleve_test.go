package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mihuashi/match/signature"
	"github.com/Mihuashi/match/testutil"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func testRecord(seed int64, path string, metadata map[string]any) Record {
	sig := testutil.RandomSignature(testutil.NewRNG(seed))
	return Record{
		Path:      path,
		Signature: sig,
		Words:     signature.Words(sig),
		Metadata:  metadata,
	}
}

func TestInsertAndCount(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	id, err := idx.Insert(ctx, testRecord(1, "a.jpg", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = idx.Insert(ctx, testRecord(2, "b.jpg", nil))
	require.NoError(t, err)

	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestIDsByPath(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	first, err := idx.Insert(ctx, testRecord(1, "dup.jpg", nil))
	require.NoError(t, err)
	second, err := idx.Insert(ctx, testRecord(2, "dup.jpg", nil))
	require.NoError(t, err)
	_, err = idx.Insert(ctx, testRecord(3, "other.jpg", nil))
	require.NoError(t, err)

	ids, err := idx.IDsByPath(ctx, "dup.jpg")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first, second}, ids)

	ids, err = idx.IDsByPath(ctx, "missing.jpg")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestIDsByPathExactMatch(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_, err := idx.Insert(ctx, testRecord(1, "dir/cat.jpg", nil))
	require.NoError(t, err)

	// Neither substrings nor super-strings of a path may match.
	for _, probe := range []string{"cat.jpg", "dir", "dir/cat.jpg.bak"} {
		ids, err := idx.IDsByPath(ctx, probe)
		require.NoError(t, err)
		assert.Empty(t, ids, "probe %q", probe)
	}
}

func TestDeleteIDsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	id, err := idx.Insert(ctx, testRecord(1, "a.jpg", nil))
	require.NoError(t, err)

	require.NoError(t, idx.DeleteIDs(ctx, []string{id}))
	// Deleting already-absent identifiers must not fail.
	require.NoError(t, idx.DeleteIDs(ctx, []string{id}))
	require.NoError(t, idx.DeleteIDs(ctx, []string{"never-existed"}))
	require.NoError(t, idx.DeleteIDs(ctx, nil))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListPaths(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	for i, path := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		_, err := idx.Insert(ctx, testRecord(int64(i), path, nil))
		require.NoError(t, err)
	}

	all, err := idx.ListPaths(ctx, 0, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.jpg", "b.jpg", "c.jpg"}, all)

	// Stable order across calls.
	again, err := idx.ListPaths(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, all, again)

	// Offset pagination walks the same order.
	page, err := idx.ListPaths(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, all[1], page[0])
}

func TestListPathsClamping(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_, err := idx.Insert(ctx, testRecord(1, "a.jpg", nil))
	require.NoError(t, err)

	tests := []struct {
		name          string
		offset, limit int
		expected      int
	}{
		{"NegativeBoth", -5, -1, 0},
		{"NegativeOffset", -5, 10, 1},
		{"ZeroLimit", 0, 0, 0},
		{"OffsetPastEnd", 10, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths, err := idx.ListPaths(ctx, tt.offset, tt.limit)
			require.NoError(t, err)
			assert.Len(t, paths, tt.expected)
		})
	}
}

func TestCandidatesByWords(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	rec := testRecord(1, "a.jpg", map[string]any{"label": "cat"})
	id, err := idx.Insert(ctx, rec)
	require.NoError(t, err)

	// The record's own word set shares every slot, so it must qualify.
	candidates, err := idx.CandidatesByWords(ctx, rec.Words, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, id, c.ID)
	assert.Equal(t, "a.jpg", c.Path)
	assert.Equal(t, rec.Signature, c.Signature)
	assert.Equal(t, map[string]any{"label": "cat"}, c.Metadata)
}

func TestCandidatesByWordsSingleSharedSlot(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	rec := testRecord(1, "a.jpg", nil)
	_, err := idx.Insert(ctx, rec)
	require.NoError(t, err)

	// A query sharing exactly one slot value still retrieves the record:
	// the match is disjunctive.
	var query signature.WordSet
	for i := range query {
		query[i] = rec.Words[i] + 1
	}
	query[7] = rec.Words[7]

	candidates, err := idx.CandidatesByWords(ctx, query, 10)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestCandidatesByWordsNoMatch(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	rec := testRecord(1, "a.jpg", nil)
	_, err := idx.Insert(ctx, rec)
	require.NoError(t, err)

	var query signature.WordSet
	for i := range query {
		query[i] = rec.Words[i] + 1
	}

	candidates, err := idx.CandidatesByWords(ctx, query, 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestCandidatesByWordsBounded(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	rec := testRecord(1, "seed.jpg", nil)
	_, err := idx.Insert(ctx, rec)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		clone := rec
		clone.Path = "copy.jpg"
		_, err := idx.Insert(ctx, clone)
		require.NoError(t, err)
	}

	candidates, err := idx.CandidatesByWords(ctx, rec.Words, 3)
	require.NoError(t, err)
	assert.Len(t, candidates, 3)

	candidates, err = idx.CandidatesByWords(ctx, rec.Words, 0)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSignatureRoundTrip(t *testing.T) {
	sig := testutil.RandomSignature(testutil.NewRNG(9))
	decoded, err := decodeSignature(encodeSignature(sig))
	require.NoError(t, err)
	assert.Equal(t, sig, decoded)
}

func TestDecodeSignatureMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"NotBase64", "%%%"},
		{"WrongLength", "AAAA"},
		{"Empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeSignature(tt.raw)
			assert.Error(t, err)
		})
	}
}
