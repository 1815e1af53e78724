// Package models holds the data types shared across the retrieval and
// rank-fusion packages: keyframe and caption records, the filter grammar,
// and the request/response shapes the orchestrator exchanges with callers.
package models

// ObjectCount is one detected-object class and its count within a keyframe.
type ObjectCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Keyframe is a single indexed frame. Embedding is never carried on this
// struct: it lives only inside the vector index.
type Keyframe struct {
	Key         uint64        `json:"key"`
	GroupNum    int           `json:"group_num"`
	VideoNum    int           `json:"video_num"`
	KeyframeNum int           `json:"keyframe_num"`
	Objects     []ObjectCount `json:"objects"`
}

// SpeechCaption is one ASR transcript segment.
type SpeechCaption struct {
	GroupNum int     `json:"group_num"`
	VideoNum int     `json:"video_num"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Text     string  `json:"text"`
}

// Comparator is one of the six comparison operators an object filter may use.
type Comparator string

const (
	CmpEq  Comparator = "eq"
	CmpNeq Comparator = "neq"
	CmpGt  Comparator = "gt"
	CmpGte Comparator = "gte"
	CmpLt  Comparator = "lt"
	CmpLte Comparator = "lte"
)

// ObjFilter is one conjunctive object-count predicate: a keyframe passes
// the filter only if at least one of its objects entries matches Name and
// has entry.Count satisfying Cmp against Count (e.g. gte: entry.Count >= Count).
type ObjFilter struct {
	Name  string     `json:"name"`
	Cmp   Comparator `json:"cmp"`
	Count int        `json:"count"`
}

// ScopePair is a (group_num, video_num) pair used to scope a query to a
// group or to every video within it. VideoNum == -1 means "any video".
type ScopePair struct {
	GroupNum int
	VideoNum int
}

// TimeRange is an ASR segment projected onto a keyframe-number interval,
// the input to MetadataStore.KeysInTimeRanges.
type TimeRange struct {
	GroupNum int
	VideoNum int
	KfStart  int
	KfEnd    int
}

// UnifiedRequest is the input to SearchOrchestrator.Search.
type UnifiedRequest struct {
	Query       string
	ASR         string
	OCR         string
	ObjFilters  []ObjFilter
	ExcludeIDs  []uint64
	GroupNums   []int
	VideoNums   []int
	Page        int
	Size        int
	Oversample  int
	WeightVec   float64
	WeightASR   float64
	WeightOCR   float64
}

// KeyframeRow is a materialized row: a Keyframe plus whatever the request
// needs to resolve it to a displayable result.
type KeyframeRow struct {
	Keyframe
}

// SearchResult is one item in a response page: the keyframe's key and its
// resolved filesystem path.
type SearchResult struct {
	ID   uint64 `json:"id"`
	Path string `json:"path"`
}

// SearchResponse is the orchestrator's final response.
type SearchResponse struct {
	TotalPage int            `json:"total_page"`
	Results   []SearchResult `json:"results"`
}

// RankedID is a candidate id together with its per-channel rank (1-based
// position in that channel's ranked list).
type RankedID struct {
	ID   uint64
	Rank int
}
