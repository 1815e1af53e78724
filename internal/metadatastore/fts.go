package metadatastore

import (
	"context"

	"github.com/mvkhanh/keyframesearch/pkg/logger"
	"github.com/mvkhanh/keyframesearch/pkg/metrics"
)

// FTSEngine is the native (tier 1) full-text search engine, normally
// backed by OpenSearch. A nil FTSEngine skips straight to the Postgres
// tsvector tier.
type FTSEngine interface {
	SearchIDs(ctx context.Context, source FTSSource, text string, limit int) ([]IDScore, error)
	SearchSegments(ctx context.Context, text string, limit int) ([]Segment, error)
}

const maxSegmentLimit = 1000

// FTSSearchIDs runs the three-tier fallback chain: native engine, then
// Postgres tsvector/ts_rank, then a case-insensitive substring scan,
// stopping at the first tier that returns a non-empty result.
func (s *PostgresStore) FTSSearchIDs(ctx context.Context, source FTSSource, text string, limit int) ([]IDScore, error) {
	if s.fts != nil {
		ids, err := s.fts.SearchIDs(ctx, source, text, limit)
		if err == nil && len(ids) > 0 {
			metrics.FTSFallbackTotal.WithLabelValues(string(source), "native").Inc()
			return truncateIDScore(ids, limit), nil
		}
		if err != nil {
			logger.Warn("native fts engine failed, falling back", map[string]interface{}{"source": string(source), "error": err.Error()})
		}
	}

	ids, err := s.tsvectorSearchIDs(ctx, source, text, limit)
	if err == nil && len(ids) > 0 {
		metrics.FTSFallbackTotal.WithLabelValues(string(source), "tsvector").Inc()
		return truncateIDScore(ids, limit), nil
	}
	if err != nil {
		logger.Warn("tsvector fts tier failed, falling back", map[string]interface{}{"source": string(source), "error": err.Error()})
	}

	ids, err = s.substringSearchIDs(ctx, source, text, limit)
	if err != nil {
		return nil, err
	}
	metrics.FTSFallbackTotal.WithLabelValues(string(source), "substring").Inc()
	return truncateIDScore(ids, limit), nil
}

// FTSSearchSegments is the ASR-only segment-returning variant, following
// the same fallback chain.
func (s *PostgresStore) FTSSearchSegments(ctx context.Context, text string, limit int) ([]Segment, error) {
	if limit > maxSegmentLimit {
		limit = maxSegmentLimit
	}

	if s.fts != nil {
		segs, err := s.fts.SearchSegments(ctx, text, limit)
		if err == nil && len(segs) > 0 {
			metrics.FTSFallbackTotal.WithLabelValues(string(SourceASR), "native").Inc()
			return truncateSegments(segs, limit), nil
		}
		if err != nil {
			logger.Warn("native fts engine failed for segments, falling back", map[string]interface{}{"error": err.Error()})
		}
	}

	segs, err := s.tsvectorSearchSegments(ctx, text, limit)
	if err == nil && len(segs) > 0 {
		metrics.FTSFallbackTotal.WithLabelValues(string(SourceASR), "tsvector").Inc()
		return truncateSegments(segs, limit), nil
	}
	if err != nil {
		logger.Warn("tsvector fts tier failed for segments, falling back", map[string]interface{}{"error": err.Error()})
	}

	segs, err = s.substringSearchSegments(ctx, text, limit)
	if err != nil {
		return nil, err
	}
	metrics.FTSFallbackTotal.WithLabelValues(string(SourceASR), "substring").Inc()
	return truncateSegments(segs, limit), nil
}

func truncateIDScore(ids []IDScore, limit int) []IDScore {
	if limit > 0 && len(ids) > limit {
		return ids[:limit]
	}
	return ids
}

func truncateSegments(segs []Segment, limit int) []Segment {
	if limit > 0 && len(segs) > limit {
		return segs[:limit]
	}
	return segs
}
