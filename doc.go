// Package match provides a content-based image similarity search engine
// for Go.
//
// Images are reduced to compact perceptual signatures (see the signature
// package). Signatures are indexed under coarse "words" in an embedded
// search backend; a query first retrieves word-sharing candidates, then
// re-ranks them by exact normalized distance and keeps those under a
// configurable cutoff.
//
// # Quick Start
//
//	ctx := context.Background()
//	idx, _ := store.Open("./images.bleve")
//	m, _ := match.New(idx)
//	defer m.Close()
//
//	id, _ := m.Add(ctx, "cats/1.jpg", match.FromBytes(img), nil)
//
//	results, _ := m.Search(match.FromBytes(query)).
//	    Cutoff(0.4).
//	    AllOrientations(true).
//	    Execute(ctx)
//	for _, r := range results {
//	    fmt.Println(r.Path, r.Score)
//	}
//
// Re-adding a path supersedes its previous record; Delete removes every
// record for a path and is idempotent. Compare scores two images directly
// without touching the index.
//
// # Orientation Robustness
//
// With AllOrientations enabled a query is searched once per axis-aligned
// transform of the image (rotations, flips, diagonal reflections) and the
// results are unioned, keeping each record's best distance.
package match
