package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankedIDs_PreservesHitOrder(t *testing.T) {
	hits := []Hit{{ID: 7, Distance: 0.9}, {ID: 3, Distance: 0.8}, {ID: 9, Distance: 0.1}}
	assert.Equal(t, []uint64{7, 3, 9}, RankedIDs(hits))
}

func TestRankedIDs_Empty(t *testing.T) {
	assert.Empty(t, RankedIDs(nil))
}
