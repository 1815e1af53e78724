package rankfusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuse_SingleChannelWeightOne_PreservesOrder(t *testing.T) {
	ranks := RanksFromOrder([]uint64{7, 3, 9})
	out := Fuse([]ChannelRanking{{Weight: 1.0, Ranks: ranks}}, 60)

	ids := make([]uint64, len(out))
	for i, s := range out {
		ids[i] = s.ID
	}
	assert.Equal(t, []uint64{7, 3, 9}, ids)
}

func TestFuse_ASRAndOCRNoVector(t *testing.T) {
	asr := RanksFromOrder([]uint64{100, 101, 102})
	ocr := RanksFromOrder([]uint64{102, 50})

	out := Fuse([]ChannelRanking{
		{Weight: 1.0, Ranks: asr},
		{Weight: 0.5, Ranks: ocr},
	}, 60)

	ids := make([]uint64, len(out))
	for i, s := range out {
		ids[i] = s.ID
	}
	assert.Equal(t, []uint64{102, 100, 101, 50}, ids)
}

func TestFuse_TieBrokenByIDDescending(t *testing.T) {
	// each channel ranks a different id first, so the two scores tie exactly
	chA := RanksFromOrder([]uint64{5})
	chB := RanksFromOrder([]uint64{9})
	out := Fuse([]ChannelRanking{
		{Weight: 1.0, Ranks: chA},
		{Weight: 1.0, Ranks: chB},
	}, 60)

	assert.Equal(t, uint64(9), out[0].ID)
	assert.Equal(t, uint64(5), out[1].ID)
}

func TestFuse_EmptyChannels(t *testing.T) {
	out := Fuse(nil, 60)
	assert.Empty(t, out)
}

func TestFuse_ZeroWeightChannelContributesZeroButKeepsIds(t *testing.T) {
	ranks := RanksFromOrder([]uint64{1, 2, 3})
	out := Fuse([]ChannelRanking{{Weight: 0, Ranks: ranks}}, 60)
	require.Len(t, out, 3)
	for _, s := range out {
		assert.Equal(t, 0.0, s.Score)
	}
}

func TestRanksFromOrder_DuplicateKeepsFirstRank(t *testing.T) {
	ranks := RanksFromOrder([]uint64{4, 4, 5})
	assert.Equal(t, 1, ranks[4])
	assert.Equal(t, 2, ranks[5])
}
