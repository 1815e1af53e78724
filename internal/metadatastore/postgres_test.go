package metadatastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampPage_DefaultsAndBounds(t *testing.T) {
	page, size := clampPage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 1, size)

	page, size = clampPage(2, 500)
	assert.Equal(t, 2, page)
	assert.Equal(t, 200, size)

	page, size = clampPage(-1, 50)
	assert.Equal(t, 1, page)
	assert.Equal(t, 50, size)
}

func TestBuildScopeWhere_Empty(t *testing.T) {
	where, args, next := buildScopeWhere(nil, nil, 1)
	assert.Empty(t, where)
	assert.Nil(t, args)
	assert.Equal(t, 1, next)
}

func TestBuildScopeWhere_PositionalPairsWithAnyVideo(t *testing.T) {
	where, args, next := buildScopeWhere([]int{1, 2}, []int{-1, 5}, 1)
	assert.Equal(t, "(group_num = $1 OR (group_num = $2 AND video_num = $3))", where)
	assert.Equal(t, []interface{}{1, 2, 5}, args)
	assert.Equal(t, 4, next)
}

func TestBuildScopeWhere_SingleListIsINFilter(t *testing.T) {
	where, args, next := buildScopeWhere([]int{1, 2, 3}, nil, 1)
	assert.Equal(t, "group_num = ANY($1)", where)
	assert.Equal(t, []interface{}{[]int{1, 2, 3}}, args)
	assert.Equal(t, 2, next)
}

func TestBuildScopeWhere_VideoOnlyIsINFilter(t *testing.T) {
	where, _, _ := buildScopeWhere(nil, []int{7}, 1)
	assert.Equal(t, "video_num = ANY($1)", where)
}
