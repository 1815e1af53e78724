package metadatastore

import (
	"context"

	"github.com/mvkhanh/keyframesearch/internal/apperrors"
)

// tsvectorSearchIDs is the tier-2 fallback: native-engine-style relevance
// scoring via Postgres' own text search, used when OpenSearch is
// unreachable or returns nothing. Only OCR has a natural per-keyframe id;
// ASR ids are not meaningfully defined (a caption spans a time range, not
// a single keyframe) so an empty, non-error result is returned and the
// caller falls through to the next tier.
func (s *PostgresStore) tsvectorSearchIDs(ctx context.Context, source FTSSource, text string, limit int) ([]IDScore, error) {
	if source != SourceOCR {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT keyframe_key, ts_rank(search_vector, plainto_tsquery('english', $1)) AS score
		FROM keyframe_ocr
		WHERE search_vector @@ plainto_tsquery('english', $1)
		ORDER BY score DESC
		LIMIT $2
	`, text, limit)
	if err != nil {
		return nil, apperrors.Unavailable("tsvector ocr search failed: %v", err)
	}
	defer rows.Close()

	var out []IDScore
	for rows.Next() {
		var id int64
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, apperrors.Internal("scanning tsvector ocr row: %v", err)
		}
		out = append(out, IDScore{ID: uint64(id), Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable("iterating tsvector ocr rows: %v", err)
	}
	return out, nil
}

// substringSearchIDs is the tier-3 fallback: a constant-score
// case-insensitive substring scan.
func (s *PostgresStore) substringSearchIDs(ctx context.Context, source FTSSource, text string, limit int) ([]IDScore, error) {
	if source != SourceOCR {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT keyframe_key FROM keyframe_ocr WHERE text ILIKE '%' || $1 || '%' LIMIT $2
	`, text, limit)
	if err != nil {
		return nil, apperrors.Unavailable("substring ocr search failed: %v", err)
	}
	defer rows.Close()

	var out []IDScore
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Internal("scanning substring ocr row: %v", err)
		}
		out = append(out, IDScore{ID: uint64(id), Score: 1.0})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable("iterating substring ocr rows: %v", err)
	}
	return out, nil
}

func (s *PostgresStore) tsvectorSearchSegments(ctx context.Context, text string, limit int) ([]Segment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT group_num, video_num, start_time, end_time,
			ts_rank(search_vector, plainto_tsquery('english', $1)) AS score
		FROM speech_captions
		WHERE search_vector @@ plainto_tsquery('english', $1)
		ORDER BY score DESC
		LIMIT $2
	`, text, limit)
	if err != nil {
		return nil, apperrors.Unavailable("tsvector asr search failed: %v", err)
	}
	defer rows.Close()

	var out []Segment
	for rows.Next() {
		var seg Segment
		if err := rows.Scan(&seg.GroupNum, &seg.VideoNum, &seg.Start, &seg.End, &seg.Score); err != nil {
			return nil, apperrors.Internal("scanning tsvector asr row: %v", err)
		}
		out = append(out, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable("iterating tsvector asr rows: %v", err)
	}
	return out, nil
}

func (s *PostgresStore) substringSearchSegments(ctx context.Context, text string, limit int) ([]Segment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT group_num, video_num, start_time, end_time
		FROM speech_captions WHERE text ILIKE '%' || $1 || '%' LIMIT $2
	`, text, limit)
	if err != nil {
		return nil, apperrors.Unavailable("substring asr search failed: %v", err)
	}
	defer rows.Close()

	var out []Segment
	for rows.Next() {
		var seg Segment
		if err := rows.Scan(&seg.GroupNum, &seg.VideoNum, &seg.Start, &seg.End); err != nil {
			return nil, apperrors.Internal("scanning substring asr row: %v", err)
		}
		seg.Score = 1.0
		out = append(out, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable("iterating substring asr rows: %v", err)
	}
	return out, nil
}
