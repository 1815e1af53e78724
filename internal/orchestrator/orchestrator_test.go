package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvkhanh/keyframesearch/config"
	"github.com/mvkhanh/keyframesearch/internal/apperrors"
	"github.com/mvkhanh/keyframesearch/internal/metadatastore"
	"github.com/mvkhanh/keyframesearch/internal/models"
	"github.com/mvkhanh/keyframesearch/internal/objectfilter"
	"github.com/mvkhanh/keyframesearch/internal/pathresolver"
	"github.com/mvkhanh/keyframesearch/internal/vectorindex"
)

// fakeIndex is a stub vectorindex.Index returning a fixed hit list.
type fakeIndex struct {
	hits []vectorindex.Hit
	size uint64
	err  error
	wait time.Duration
}

func (f *fakeIndex) Search(ctx context.Context, _ []float32, topK int, _ []uint64) ([]vectorindex.Hit, error) {
	if f.wait > 0 {
		select {
		case <-time.After(f.wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.hits) {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func (f *fakeIndex) SearchByID(ctx context.Context, _ uint64, _, _ int, _ []uint64) ([]vectorindex.Hit, error) {
	return f.hits, f.err
}

func (f *fakeIndex) Size(_ context.Context) (uint64, error) { return f.size, nil }

// fakeStore is a stub metadatastore.Store.
type fakeStore struct {
	rows       map[uint64]models.Keyframe
	filterErr  error
	getErr     error
	ftsIDs     []metadatastore.IDScore
	ftsSegs    []metadatastore.Segment
	keysInTime []uint64
}

func (s *fakeStore) GetByKeys(_ context.Context, keys []uint64, _, _ []int, page, size int) ([]models.Keyframe, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	var out []models.Keyframe
	for _, k := range keys {
		if kf, ok := s.rows[k]; ok {
			out = append(out, kf)
		}
	}
	start := (page - 1) * size
	if start >= len(out) {
		return nil, nil
	}
	end := start + size
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (s *fakeStore) FilterByObjects(_ context.Context, ids []uint64, filters []models.ObjFilter) ([]uint64, error) {
	if s.filterErr != nil {
		return nil, s.filterErr
	}
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if objectfilter.Passes(s.rows[id].Objects, filters) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *fakeStore) FTSSearchIDs(_ context.Context, _ metadatastore.FTSSource, _ string, _ int) ([]metadatastore.IDScore, error) {
	return s.ftsIDs, nil
}

func (s *fakeStore) FTSSearchSegments(_ context.Context, _ string, _ int) ([]metadatastore.Segment, error) {
	return s.ftsSegs, nil
}

func (s *fakeStore) KeysInTimeRanges(_ context.Context, _ []models.TimeRange, _ int) ([]uint64, error) {
	return s.keysInTime, nil
}

func (s *fakeStore) Size(_ context.Context) (uint64, error) { return uint64(len(s.rows)), nil }

func (s *fakeStore) ObjectClasses(_ context.Context) ([]string, error) { return nil, nil }

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) { return f.vec, f.err }

type noopTranslator struct{}

func (noopTranslator) Translate(_ context.Context, text string) (string, error) { return text, nil }

func testHybridConfig() config.HybridSearchConfig {
	return config.HybridSearchConfig{
		DefaultWeightVector: 1.0,
		DefaultWeightASR:    1.0,
		DefaultWeightOCR:    0.5,
		RRFConstantK:        60,
		DefaultOversample:   10,
		ASRFPS:              30,
		ASRPerRangeLimit:    10,
	}
}

func testTimeouts() config.TimeoutsConfig {
	return config.TimeoutsConfig{
		MetadataStore: time.Second,
		VectorIndex:   time.Second,
		Embed:         time.Second,
		Translate:     time.Second,
	}
}

func newTestOrchestrator(idx vectorindex.Index, store metadatastore.Store) *Orchestrator {
	return New(idx, store, pathresolver.New("/data"), fakeEmbedder{vec: []float32{0.1, 0.2}}, noopTranslator{}, testHybridConfig(), testTimeouts())
}

func TestSearch_VectorOnly(t *testing.T) {
	idx := &fakeIndex{hits: []vectorindex.Hit{{ID: 1, Distance: 0.9}, {ID: 2, Distance: 0.8}}, size: 2}
	store := &fakeStore{rows: map[uint64]models.Keyframe{
		1: {Key: 1, GroupNum: 1, VideoNum: 1, KeyframeNum: 1},
		2: {Key: 2, GroupNum: 1, VideoNum: 1, KeyframeNum: 2},
	}}
	o := newTestOrchestrator(idx, store)

	resp, err := o.Search(context.Background(), models.UnifiedRequest{Query: "a cat", Size: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, uint64(1), resp.Results[0].ID)
	assert.Equal(t, uint64(2), resp.Results[1].ID)
}

func TestSearch_ASRAndOCRNoVector(t *testing.T) {
	idx := &fakeIndex{size: 4}
	store := &fakeStore{
		rows: map[uint64]models.Keyframe{
			100: {Key: 100, GroupNum: 1, VideoNum: 1, KeyframeNum: 1},
			101: {Key: 101, GroupNum: 1, VideoNum: 1, KeyframeNum: 2},
			102: {Key: 102, GroupNum: 1, VideoNum: 1, KeyframeNum: 3},
			50:  {Key: 50, GroupNum: 1, VideoNum: 1, KeyframeNum: 4},
		},
		keysInTime: []uint64{100, 101, 102},
		ftsIDs:     []metadatastore.IDScore{{ID: 102}, {ID: 100}, {ID: 50}},
	}
	o := newTestOrchestrator(idx, store)

	resp, err := o.Search(context.Background(), models.UnifiedRequest{ASR: "hello", OCR: "world", Size: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Results)
}

func TestSearch_ObjectFilterApplied(t *testing.T) {
	idx := &fakeIndex{hits: []vectorindex.Hit{{ID: 1}, {ID: 2}}, size: 2}
	store := &fakeStore{rows: map[uint64]models.Keyframe{
		1: {Key: 1, GroupNum: 1, VideoNum: 1, KeyframeNum: 1, Objects: []models.ObjectCount{{Name: "person", Count: 1}}},
		2: {Key: 2, GroupNum: 1, VideoNum: 1, KeyframeNum: 2},
	}}
	o := newTestOrchestrator(idx, store)

	req := models.UnifiedRequest{
		Query: "dog",
		Size:  10,
		ObjFilters: []models.ObjFilter{
			{Name: "person", Cmp: models.CmpGte, Count: 1},
		},
	}
	resp, err := o.Search(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, uint64(1), resp.Results[0].ID)
}

func TestSearch_InvalidObjectFilterRejected(t *testing.T) {
	idx := &fakeIndex{size: 0}
	store := &fakeStore{rows: map[uint64]models.Keyframe{}}
	o := newTestOrchestrator(idx, store)

	req := models.UnifiedRequest{
		Query: "dog",
		Size:  10,
		ObjFilters: []models.ObjFilter{
			{Name: "", Cmp: models.CmpGte, Count: 1},
		},
	}
	_, err := o.Search(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsBadRequest(err))
}

func TestSearch_AllChannelsFailReturnsUnavailable(t *testing.T) {
	idx := &fakeIndex{err: apperrors.Unavailable("index down")}
	store := &fakeStore{rows: map[uint64]models.Keyframe{}}
	o := newTestOrchestrator(idx, store)

	_, err := o.Search(context.Background(), models.UnifiedRequest{Query: "anything", Size: 10})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestSearch_NoChannelActiveReturnsEmptyResults(t *testing.T) {
	idx := &fakeIndex{size: 0}
	store := &fakeStore{rows: map[uint64]models.Keyframe{}}
	o := newTestOrchestrator(idx, store)
	o.Embedder = fakeEmbedder{vec: nil}

	resp, err := o.Search(context.Background(), models.UnifiedRequest{Size: 10})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearch_BadSizeRejected(t *testing.T) {
	idx := &fakeIndex{size: 0}
	store := &fakeStore{rows: map[uint64]models.Keyframe{}}
	o := newTestOrchestrator(idx, store)

	_, err := o.Search(context.Background(), models.UnifiedRequest{Size: 0})
	require.Error(t, err)
	assert.True(t, apperrors.IsBadRequest(err))
}

func TestSearch_ChannelTimeoutIsRecoveredWhenOthersSucceed(t *testing.T) {
	idx := &fakeIndex{hits: []vectorindex.Hit{{ID: 1}}, size: 1, wait: 50 * time.Millisecond}
	store := &fakeStore{
		rows:       map[uint64]models.Keyframe{1: {Key: 1}, 100: {Key: 100}},
		keysInTime: []uint64{100},
	}
	o := newTestOrchestrator(idx, store)
	o.Timeouts.VectorIndex = time.Millisecond

	resp, err := o.Search(context.Background(), models.UnifiedRequest{Query: "x", ASR: "hi", Size: 10})
	require.NoError(t, err)
	require.NotNil(t, resp)
}
