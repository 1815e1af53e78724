package metadatastore

import (
	"context"
	"encoding/json"

	"github.com/mvkhanh/keyframesearch/internal/apperrors"
	"github.com/mvkhanh/keyframesearch/pkg/opensearch"
)

// OpenSearchFTS is the native (tier 1) FTSEngine, backed by OpenSearch
// match queries against the ASR and OCR indices.
type OpenSearchFTS struct {
	client   *opensearch.Client
	asrIndex string
	ocrIndex string
}

// NewOpenSearchFTS creates a native FTSEngine over the given indices.
func NewOpenSearchFTS(client *opensearch.Client, asrIndex, ocrIndex string) *OpenSearchFTS {
	return &OpenSearchFTS{client: client, asrIndex: asrIndex, ocrIndex: ocrIndex}
}

type ocrDoc struct {
	KeyframeKey uint64 `json:"keyframe_key"`
}

type asrDoc struct {
	GroupNum int     `json:"group_num"`
	VideoNum int     `json:"video_num"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
}

func matchQuery(text string, size int) map[string]interface{} {
	return map[string]interface{}{
		"size":  size,
		"query": map[string]interface{}{"match": map[string]interface{}{"text": text}},
	}
}

func (e *OpenSearchFTS) SearchIDs(ctx context.Context, source FTSSource, text string, limit int) ([]IDScore, error) {
	index := e.ocrIndex
	if source == SourceASR {
		index = e.asrIndex
	}

	hits, err := e.client.Search(ctx, index, matchQuery(text, limit), limit)
	if err != nil {
		return nil, apperrors.Unavailable("opensearch fts search failed: %v", err)
	}

	out := make([]IDScore, 0, len(hits))
	for _, h := range hits {
		var doc ocrDoc
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			continue
		}
		out = append(out, IDScore{ID: doc.KeyframeKey, Score: h.Score})
	}
	return out, nil
}

func (e *OpenSearchFTS) SearchSegments(ctx context.Context, text string, limit int) ([]Segment, error) {
	hits, err := e.client.Search(ctx, e.asrIndex, matchQuery(text, limit), limit)
	if err != nil {
		return nil, apperrors.Unavailable("opensearch segment search failed: %v", err)
	}

	out := make([]Segment, 0, len(hits))
	for _, h := range hits {
		var doc asrDoc
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			continue
		}
		out = append(out, Segment{
			GroupNum: doc.GroupNum,
			VideoNum: doc.VideoNum,
			Start:    doc.Start,
			End:      doc.End,
			Score:    h.Score,
		})
	}
	return out, nil
}
