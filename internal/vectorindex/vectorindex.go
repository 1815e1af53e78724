// Package vectorindex implements the ANN keyframe index over a Postgres
// table with a pgvector column, exposing cosine similarity in descending
// (most-similar-first) order.
package vectorindex

import (
	"context"
)

// Hit is one ANN search result: a candidate id and its cosine similarity
// in [-1, 1], higher meaning closer.
type Hit struct {
	ID       uint64
	Distance float64
}

// Index is the ANN keyframe vector index.
type Index interface {
	// Search returns up to topK ids ranked highest-similarity-first.
	// excludeIDs filters server-side; callers must not filter client-side
	// and re-truncate, since that would under-fill the page.
	Search(ctx context.Context, embedding []float32, topK int, excludeIDs []uint64) ([]Hit, error)

	// SearchByID fetches the stored embedding for imgid, searches against
	// it with imgid added to excludeIDs, and returns the size-window at
	// offset (page-1)*size from a search over page*size ids. Fails with
	// apperrors.ErrNotFound if imgid has no stored embedding.
	SearchByID(ctx context.Context, imgid uint64, page, size int, excludeIDs []uint64) ([]Hit, error)

	// Size returns the total number of indexed embeddings.
	Size(ctx context.Context) (uint64, error)
}

// idsOf extracts ids in rank order from a Hit slice, used by callers that
// only need the ranking and not the raw distances.
func idsOf(hits []Hit) []uint64 {
	ids := make([]uint64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}

// RankedIDs returns the ids of hits in their existing rank order.
func RankedIDs(hits []Hit) []uint64 {
	return idsOf(hits)
}
