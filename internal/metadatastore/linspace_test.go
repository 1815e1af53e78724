package metadatastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinspaceIndices_FewerThanLimitReturnsAll(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, linspaceIndices(3, 10))
}

func TestLinspaceIndices_EvenlySpacedEndpoints(t *testing.T) {
	idx := linspaceIndices(100, 10)
	assert.Equal(t, 0, idx[0])
	assert.Equal(t, 99, idx[len(idx)-1])
}

func TestLinspaceIndices_SingleLimit(t *testing.T) {
	assert.Equal(t, []int{0}, linspaceIndices(50, 1))
}

func TestLinspaceIndices_NoDuplicatesWhenDense(t *testing.T) {
	idx := linspaceIndices(10, 10)
	assert.Len(t, idx, 10)
}

func TestLinspaceIndices_ZeroSizeIsEmpty(t *testing.T) {
	assert.Nil(t, linspaceIndices(0, 10))
}
