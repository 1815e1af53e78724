package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvkhanh/keyframesearch/internal/models"
)

type fakeCacheStore struct {
	data  map[string][]byte
	reads int
	sets  int
}

func newFakeCacheStore() *fakeCacheStore { return &fakeCacheStore{data: map[string][]byte{}} }

func (f *fakeCacheStore) GetJSON(_ context.Context, key string, dest interface{}) error {
	f.reads++
	raw, ok := f.data[key]
	if !ok {
		return errCacheMiss
	}
	ids := dest.(*[]uint64)
	*ids = decodeIDs(raw)
	return nil
}

func (f *fakeCacheStore) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.sets++
	f.data[key] = encodeIDs(value.([]uint64))
	return nil
}

var errCacheMiss = errors.New("redis: nil")

func encodeIDs(ids []uint64) []byte {
	out := make([]byte, len(ids)*8)
	for i, id := range ids {
		for b := 0; b < 8; b++ {
			out[i*8+b] = byte(id >> (8 * b))
		}
	}
	return out
}

func decodeIDs(raw []byte) []uint64 {
	ids := make([]uint64, len(raw)/8)
	for i := range ids {
		var id uint64
		for b := 0; b < 8; b++ {
			id |= uint64(raw[i*8+b]) << (8 * b)
		}
		ids[i] = id
	}
	return ids
}

type countingChannel struct {
	name  string
	ids   []uint64
	calls int
}

func (c *countingChannel) Name() string { return c.name }
func (c *countingChannel) Active(models.UnifiedRequest, []float32) bool { return true }
func (c *countingChannel) Rank(context.Context, models.UnifiedRequest, []float32) ([]uint64, error) {
	c.calls++
	return c.ids, nil
}

func TestCachedChannel_SecondIdenticalRequestSkipsInner(t *testing.T) {
	inner := &countingChannel{name: "vector", ids: []uint64{3, 1, 2}}
	store := newFakeCacheStore()
	cached := &CachedChannel{Inner: inner, Cache: store, TTL: time.Minute}

	req := models.UnifiedRequest{Query: "a cat"}
	embedding := []float32{0.1, 0.2}

	ids1, err := cached.Rank(context.Background(), req, embedding)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 1, 2}, ids1)
	assert.Equal(t, 1, inner.calls)

	ids2, err := cached.Rank(context.Background(), req, embedding)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 1, 2}, ids2)
	assert.Equal(t, 1, inner.calls, "second call with identical request must hit the cache, not the inner channel")
}

func TestCachedChannel_DifferentQueryMisses(t *testing.T) {
	inner := &countingChannel{name: "asr", ids: []uint64{5}}
	store := newFakeCacheStore()
	cached := &CachedChannel{Inner: inner, Cache: store, TTL: time.Minute}

	_, err := cached.Rank(context.Background(), models.UnifiedRequest{ASR: "hello"}, nil)
	require.NoError(t, err)
	_, err = cached.Rank(context.Background(), models.UnifiedRequest{ASR: "goodbye"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestWrapChannelsWithCache_PreservesNameAndActive(t *testing.T) {
	inner := &countingChannel{name: "ocr", ids: []uint64{9}}
	o := &Orchestrator{Channels: []Channel{inner}}
	WrapChannelsWithCache(o, newFakeCacheStore(), time.Minute)

	require.Len(t, o.Channels, 1)
	assert.Equal(t, "ocr", o.Channels[0].Name())
	assert.True(t, o.Channels[0].Active(models.UnifiedRequest{}, nil))
}
