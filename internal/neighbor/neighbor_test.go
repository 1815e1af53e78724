package neighbor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvkhanh/keyframesearch/internal/metadatastore"
	"github.com/mvkhanh/keyframesearch/internal/models"
	"github.com/mvkhanh/keyframesearch/internal/pathresolver"
	"github.com/mvkhanh/keyframesearch/internal/vectorindex"
)

type fakeStore struct {
	rows map[uint64]models.Keyframe
}

func (s *fakeStore) GetByKeys(_ context.Context, keys []uint64, _, _ []int, _, _ int) ([]models.Keyframe, error) {
	var out []models.Keyframe
	for _, k := range keys {
		if kf, ok := s.rows[k]; ok {
			out = append(out, kf)
		}
	}
	return out, nil
}

func (s *fakeStore) FilterByObjects(_ context.Context, ids []uint64, _ []models.ObjFilter) ([]uint64, error) {
	return ids, nil
}

func (s *fakeStore) FTSSearchIDs(_ context.Context, _ metadatastore.FTSSource, _ string, _ int) ([]metadatastore.IDScore, error) {
	return nil, nil
}

func (s *fakeStore) FTSSearchSegments(_ context.Context, _ string, _ int) ([]metadatastore.Segment, error) {
	return nil, nil
}

func (s *fakeStore) KeysInTimeRanges(_ context.Context, _ []models.TimeRange, _ int) ([]uint64, error) {
	return nil, nil
}

func (s *fakeStore) Size(_ context.Context) (uint64, error) { return uint64(len(s.rows)), nil }

func (s *fakeStore) ObjectClasses(_ context.Context) ([]string, error) { return nil, nil }

type fakeIndex struct {
	hits []vectorindex.Hit
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, _ int, _ []uint64) ([]vectorindex.Hit, error) {
	return f.hits, nil
}

func (f *fakeIndex) SearchByID(_ context.Context, _ uint64, _, _ int, _ []uint64) ([]vectorindex.Hit, error) {
	return f.hits, nil
}

func (f *fakeIndex) Size(_ context.Context) (uint64, error) { return uint64(len(f.hits)), nil }

func TestNeighbors_DropsKeysFromOtherVideos(t *testing.T) {
	store := &fakeStore{rows: map[uint64]models.Keyframe{
		997:  {Key: 997, GroupNum: 5, VideoNum: 2},
		998:  {Key: 998, GroupNum: 5, VideoNum: 2},
		999:  {Key: 999, GroupNum: 5, VideoNum: 1},
		1000: {Key: 1000, GroupNum: 5, VideoNum: 2},
		1001: {Key: 1001, GroupNum: 5, VideoNum: 3},
		1002: {Key: 1002, GroupNum: 5, VideoNum: 2},
		1003: {Key: 1003, GroupNum: 5, VideoNum: 2},
	}}
	svc := New(&fakeIndex{}, store, pathresolver.New("/data"))

	rows, err := svc.Neighbors(context.Background(), 1000, 3)
	require.NoError(t, err)

	var keys []uint64
	for _, r := range rows {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []uint64{997, 998, 1000, 1002, 1003}, keys)
}

func TestNeighbors_AnchorAbsentReturnsEmpty(t *testing.T) {
	store := &fakeStore{rows: map[uint64]models.Keyframe{}}
	svc := New(&fakeIndex{}, store, pathresolver.New("/data"))

	rows, err := svc.Neighbors(context.Background(), 42, 2)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNeighbors_NegativeKRejected(t *testing.T) {
	store := &fakeStore{rows: map[uint64]models.Keyframe{}}
	svc := New(&fakeIndex{}, store, pathresolver.New("/data"))

	_, err := svc.Neighbors(context.Background(), 10, -1)
	require.Error(t, err)
}

func TestImageSearch_MaterializesInScoreOrder(t *testing.T) {
	store := &fakeStore{rows: map[uint64]models.Keyframe{
		5: {Key: 5, GroupNum: 1, VideoNum: 1, KeyframeNum: 1},
		7: {Key: 7, GroupNum: 1, VideoNum: 1, KeyframeNum: 2},
	}}
	idx := &fakeIndex{hits: []vectorindex.Hit{{ID: 7, Distance: 0.95}, {ID: 5, Distance: 0.80}}}
	svc := New(idx, store, pathresolver.New("/data"))

	results, err := svc.ImageSearch(context.Background(), 99, 1, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint64(7), results[0].ID)
	assert.Equal(t, uint64(5), results[1].ID)
}

func TestImageSearch_BadSizeRejected(t *testing.T) {
	store := &fakeStore{rows: map[uint64]models.Keyframe{}}
	svc := New(&fakeIndex{}, store, pathresolver.New("/data"))

	_, err := svc.ImageSearch(context.Background(), 1, 1, 0)
	require.Error(t, err)
}
