// Package metadatastore implements the keyframe and speech-caption
// document store: batch key lookup with order-preserving joins, the
// object-count post-filter, the three-tier full-text fallback chain, and
// the even-sampling time-range-to-keyframe expansion ASR segments need.
package metadatastore

import (
	"context"

	"github.com/mvkhanh/keyframesearch/internal/models"
)

// IDScore is a candidate id and the relevance score its full-text tier
// assigned it.
type IDScore struct {
	ID    uint64
	Score float64
}

// Segment is an ASR caption hit with its score, used by the ASR channel
// to project matched transcript ranges onto keyframe ranges.
type Segment struct {
	GroupNum int
	VideoNum int
	Start    float64
	End      float64
	Score    float64
}

// FTSSource names which collection a full-text query targets.
type FTSSource string

const (
	SourceASR FTSSource = "asr"
	SourceOCR FTSSource = "ocr"
)

// FallbackTier names which stage of the fallback chain served a query,
// for metrics and logging.
type FallbackTier string

const (
	TierNative    FallbackTier = "native"
	TierTSVector  FallbackTier = "tsvector"
	TierSubstring FallbackTier = "substring"
)

// Store is the keyframe metadata store.
type Store interface {
	// GetByKeys materializes rows for the given keys. When keys is
	// non-empty, rows are returned in keys' input order with unknown keys
	// dropped; when empty, rows are ordered by (group_num, video_num,
	// keyframe_num) ascending. groupNums/videoNums combine positionally
	// per §4.2: equal-length lists OR (group,video) pairs, video_num=-1
	// meaning "any video in that group"; a single non-empty list acts as
	// a plain IN-filter. Pagination (page>=1, 1<=size<=200) is applied
	// after sorting.
	GetByKeys(ctx context.Context, keys []uint64, groupNums, videoNums []int, page, size int) ([]models.Keyframe, error)

	// FilterByObjects returns the subsequence of ids whose objects satisfy
	// every filter in the conjunction, preserving input order.
	FilterByObjects(ctx context.Context, ids []uint64, filters []models.ObjFilter) ([]uint64, error)

	// FTSSearchIDs runs the three-tier full-text fallback chain against
	// source and returns up to limit (key, score) pairs, score-descending.
	FTSSearchIDs(ctx context.Context, source FTSSource, text string, limit int) ([]IDScore, error)

	// FTSSearchSegments is the ASR-only segment-returning variant of
	// full-text search, truncated to min(limit, 1000).
	FTSSearchSegments(ctx context.Context, text string, limit int) ([]Segment, error)

	// KeysInTimeRanges expands each (group,video,kf_start,kf_end) range to
	// up to perRangeLimit keys, evenly spaced by keyframe_num, de-duping
	// across ranges by first-seen order; final order is range-order then
	// ascending keyframe_num within a range.
	KeysInTimeRanges(ctx context.Context, ranges []models.TimeRange, perRangeLimit int) ([]uint64, error)

	// Size returns the total number of indexed keyframes (the collection
	// total used for total_page, not a filtered count).
	Size(ctx context.Context) (uint64, error)

	// ObjectClasses returns the distinct object-class names known to the
	// store, sorted ascending.
	ObjectClasses(ctx context.Context) ([]string, error)
}
