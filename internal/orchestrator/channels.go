// Channels model each retrieval path as the capability the design notes
// call for: rank(request) -> ranked candidate ids. Adding a fourth
// channel means writing one more implementation of this interface, not
// touching the orchestrator's fan-out logic.
package orchestrator

import (
	"context"
	"math"

	"github.com/mvkhanh/keyframesearch/internal/metadatastore"
	"github.com/mvkhanh/keyframesearch/internal/models"
	"github.com/mvkhanh/keyframesearch/internal/vectorindex"
)

// Channel is one retrieval path contributing a ranked candidate list to
// fusion. Active reports whether this request has the inputs the channel
// needs; Rank is only called when Active returns true.
type Channel interface {
	Name() string
	Active(req models.UnifiedRequest, embedding []float32) bool
	Rank(ctx context.Context, req models.UnifiedRequest, embedding []float32) ([]uint64, error)
}

// VectorChannel is the dense ANN retrieval path.
type VectorChannel struct {
	Index vectorindex.Index
}

func (c *VectorChannel) Name() string { return "vector" }

func (c *VectorChannel) Active(_ models.UnifiedRequest, embedding []float32) bool {
	return len(embedding) > 0
}

func (c *VectorChannel) Rank(ctx context.Context, req models.UnifiedRequest, embedding []float32) ([]uint64, error) {
	topK := req.Page * req.Size
	if req.Size > topK {
		topK = req.Size
	}
	topK *= req.Oversample

	hits, err := c.Index.Search(ctx, embedding, topK, req.ExcludeIDs)
	if err != nil {
		return nil, err
	}
	return vectorindex.RankedIDs(hits), nil
}

// ASRChannel matches the ASR transcript text, projects the matched
// segments' [start,end] onto a keyframe range via the configured fps,
// and expands each range to candidate keys.
type ASRChannel struct {
	Store         metadatastore.Store
	FPS           float64
	PerRangeLimit int
	SegmentLimit  int
}

func (c *ASRChannel) Name() string { return "asr" }

func (c *ASRChannel) Active(req models.UnifiedRequest, _ []float32) bool {
	return req.ASR != ""
}

func (c *ASRChannel) Rank(ctx context.Context, req models.UnifiedRequest, _ []float32) ([]uint64, error) {
	limit := c.SegmentLimit
	if limit <= 0 {
		limit = 1000
	}
	segs, err := c.Store.FTSSearchSegments(ctx, req.ASR, limit)
	if err != nil {
		return nil, err
	}

	ranges := make([]models.TimeRange, len(segs))
	for i, s := range segs {
		ranges[i] = models.TimeRange{
			GroupNum: s.GroupNum,
			VideoNum: s.VideoNum,
			KfStart:  int(math.Floor(s.Start * c.FPS)),
			KfEnd:    int(math.Ceil(s.End * c.FPS)),
		}
	}

	perRangeLimit := c.PerRangeLimit
	if perRangeLimit <= 0 {
		perRangeLimit = 10
	}
	return c.Store.KeysInTimeRanges(ctx, ranges, perRangeLimit)
}

// OCRChannel matches on-screen text.
type OCRChannel struct {
	Store   metadatastore.Store
	IDLimit int
}

func (c *OCRChannel) Name() string { return "ocr" }

func (c *OCRChannel) Active(req models.UnifiedRequest, _ []float32) bool {
	return req.OCR != ""
}

func (c *OCRChannel) Rank(ctx context.Context, req models.UnifiedRequest, _ []float32) ([]uint64, error) {
	limit := c.IDLimit
	if limit <= 0 {
		limit = 5000
	}
	idScores, err := c.Store.FTSSearchIDs(ctx, metadatastore.SourceOCR, req.OCR, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, len(idScores))
	for i, s := range idScores {
		ids[i] = s.ID
	}
	return ids, nil
}
