// Package neighbor implements the two neighbor-lookup operations that sit
// alongside hybrid search: same-video temporal neighbors of a keyframe,
// and visual-similarity search seeded by an existing keyframe's stored
// embedding rather than a fresh query.
package neighbor

import (
	"context"

	"github.com/mvkhanh/keyframesearch/internal/apperrors"
	"github.com/mvkhanh/keyframesearch/internal/metadatastore"
	"github.com/mvkhanh/keyframesearch/internal/models"
	"github.com/mvkhanh/keyframesearch/internal/pathresolver"
	"github.com/mvkhanh/keyframesearch/internal/vectorindex"
	"github.com/mvkhanh/keyframesearch/pkg/metrics"
)

// Service implements the neighbor and image-search operations.
type Service struct {
	Vector   vectorindex.Index
	Store    metadatastore.Store
	Resolver *pathresolver.Resolver
}

// New builds a neighbor Service over the given index and store.
func New(vec vectorindex.Index, store metadatastore.Store, resolver *pathresolver.Resolver) *Service {
	return &Service{Vector: vec, Store: store, Resolver: resolver}
}

// Neighbors returns the keyframes within k keys of imgid that belong to
// the same video as imgid, in ascending key order. If imgid itself has no
// row, the result is empty. Neighbors whose key falls in range but belong
// to a different video (a different video's keys are adjacent in the
// global keyspace) are dropped rather than returned out of scope.
func (s *Service) Neighbors(ctx context.Context, imgid uint64, k int) ([]models.Keyframe, error) {
	if k < 0 {
		return nil, apperrors.BadRequest("k must be non-negative, got %d", k)
	}

	candidateKeys := make([]uint64, 0, 2*k+1)
	lo := int64(imgid) - int64(k)
	hi := int64(imgid) + int64(k)
	for key := lo; key <= hi; key++ {
		if key < 0 {
			continue
		}
		candidateKeys = append(candidateKeys, uint64(key))
	}

	rows, err := s.Store.GetByKeys(ctx, candidateKeys, nil, nil, 1, len(candidateKeys))
	if err != nil {
		metrics.NeighborRequestsTotal.WithLabelValues("neighbors", "unavailable").Inc()
		return nil, err
	}

	var anchor *models.Keyframe
	for i := range rows {
		if rows[i].Key == imgid {
			anchor = &rows[i]
			break
		}
	}
	if anchor == nil {
		metrics.NeighborRequestsTotal.WithLabelValues("neighbors", "ok").Inc()
		return nil, nil
	}

	out := make([]models.Keyframe, 0, len(rows))
	for _, row := range rows {
		if row.GroupNum == anchor.GroupNum && row.VideoNum == anchor.VideoNum {
			out = append(out, row)
		}
	}

	metrics.NeighborRequestsTotal.WithLabelValues("neighbors", "ok").Inc()
	return out, nil
}

// ImageSearch runs visual-similarity search seeded by imgid's own stored
// embedding instead of a fresh query vector, returning the requested page
// of results in descending-similarity order.
func (s *Service) ImageSearch(ctx context.Context, imgid uint64, page, size int) ([]models.SearchResult, error) {
	if size < 1 {
		return nil, apperrors.BadRequest("size must be >= 1, got %d", size)
	}
	if page < 1 {
		page = 1
	}

	hits, err := s.Vector.SearchByID(ctx, imgid, page, size, nil)
	if err != nil {
		metrics.NeighborRequestsTotal.WithLabelValues("image_search", statusFor(err)).Inc()
		return nil, err
	}

	ids := vectorindex.RankedIDs(hits)
	rows, err := s.Store.GetByKeys(ctx, ids, nil, nil, 1, len(ids))
	if err != nil {
		metrics.NeighborRequestsTotal.WithLabelValues("image_search", "unavailable").Inc()
		return nil, err
	}

	byKey := make(map[uint64]models.Keyframe, len(rows))
	for _, row := range rows {
		byKey[row.Key] = row
	}

	results := make([]models.SearchResult, 0, len(ids))
	for _, id := range ids {
		kf, ok := byKey[id]
		if !ok {
			continue
		}
		results = append(results, models.SearchResult{ID: id, Path: s.Resolver.Path(kf)})
	}

	metrics.NeighborRequestsTotal.WithLabelValues("image_search", "ok").Inc()
	return results, nil
}

func statusFor(err error) string {
	switch {
	case apperrors.IsNotFound(err):
		return "not_found"
	case apperrors.IsBadRequest(err):
		return "bad_request"
	default:
		return "unavailable"
	}
}
