package objectfilter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvkhanh/keyframesearch/internal/models"
)

func TestValidate_Empty(t *testing.T) {
	assert.NoError(t, Validate(nil))
}

func TestValidate_Valid(t *testing.T) {
	err := Validate([]models.ObjFilter{
		{Name: "person", Cmp: models.CmpGte, Count: 2},
		{Name: "car", Cmp: models.CmpEq, Count: 0},
	})
	assert.NoError(t, err)
}

func TestValidate_EmptyName(t *testing.T) {
	err := Validate([]models.ObjFilter{{Name: "  ", Cmp: models.CmpEq, Count: 1}})
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestValidate_InvalidComparator(t *testing.T) {
	err := Validate([]models.ObjFilter{{Name: "person", Cmp: models.Comparator("between"), Count: 1}})
	assert.ErrorIs(t, err, ErrInvalidComparator)
	assert.True(t, errors.Is(err, ErrInvalidComparator))
}

func TestPasses_PersonGte2(t *testing.T) {
	filters := []models.ObjFilter{{Name: "person", Cmp: models.CmpGte, Count: 2}}

	assert.True(t, Passes([]models.ObjectCount{{Name: "person", Count: 2}}, filters))
	assert.True(t, Passes([]models.ObjectCount{{Name: "person", Count: 5}}, filters))
	assert.False(t, Passes([]models.ObjectCount{{Name: "person", Count: 1}}, filters))
	assert.False(t, Passes([]models.ObjectCount{{Name: "car", Count: 9}}, filters))
}

func TestPasses_AllComparators(t *testing.T) {
	cases := []struct {
		cmp   models.Comparator
		count int
		entry int
		want  bool
	}{
		{models.CmpEq, 3, 3, true},
		{models.CmpEq, 3, 4, false},
		{models.CmpNeq, 3, 4, true},
		{models.CmpNeq, 3, 3, false},
		{models.CmpGt, 3, 4, true},
		{models.CmpGt, 3, 3, false},
		{models.CmpGte, 3, 3, true},
		{models.CmpGte, 3, 2, false},
		{models.CmpLt, 3, 2, true},
		{models.CmpLt, 3, 3, false},
		{models.CmpLte, 3, 3, true},
		{models.CmpLte, 3, 4, false},
	}
	for _, c := range cases {
		filters := []models.ObjFilter{{Name: "x", Cmp: c.cmp, Count: c.count}}
		objects := []models.ObjectCount{{Name: "x", Count: c.entry}}
		assert.Equal(t, c.want, Passes(objects, filters), "cmp=%s count=%d entry=%d", c.cmp, c.count, c.entry)
	}
}

func TestPasses_ConjunctionRequiresAllFilters(t *testing.T) {
	filters := []models.ObjFilter{
		{Name: "person", Cmp: models.CmpGte, Count: 2},
		{Name: "dog", Cmp: models.CmpEq, Count: 1},
	}
	objects := []models.ObjectCount{{Name: "person", Count: 3}}
	assert.False(t, Passes(objects, filters))

	objects = append(objects, models.ObjectCount{Name: "dog", Count: 1})
	assert.True(t, Passes(objects, filters))
}

func TestPasses_NoEntriesNoFilters(t *testing.T) {
	assert.True(t, Passes(nil, nil))
}

func TestApplyStable_EmptyFiltersIsIdentity(t *testing.T) {
	ids := []uint64{3, 1, 2}
	out := ApplyStable(ids, nil, nil)
	assert.Equal(t, ids, out)

	// must be a copy, not the same backing array
	out[0] = 99
	assert.Equal(t, uint64(3), ids[0])
}

func TestApplyStable_PreservesInputOrder(t *testing.T) {
	filters := []models.ObjFilter{{Name: "person", Cmp: models.CmpGte, Count: 2}}
	objectsByID := map[uint64][]models.ObjectCount{
		1: {{Name: "person", Count: 3}},
		2: {{Name: "person", Count: 1}},
		3: {{Name: "person", Count: 2}},
	}
	out := ApplyStable([]uint64{3, 1, 2}, objectsByID, filters)
	assert.Equal(t, []uint64{3, 1}, out)
}

func TestApplyStable_MissingIDFailsClosed(t *testing.T) {
	filters := []models.ObjFilter{{Name: "person", Cmp: models.CmpEq, Count: 1}}
	out := ApplyStable([]uint64{1, 2}, map[uint64][]models.ObjectCount{1: {{Name: "person", Count: 1}}}, filters)
	assert.Equal(t, []uint64{1}, out)
}

func TestBuildSQLWhere_EmptyFilters(t *testing.T) {
	where, args := BuildSQLWhere(nil, 2)
	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestBuildSQLWhere_OffsetAndOperators(t *testing.T) {
	filters := []models.ObjFilter{
		{Name: "person", Cmp: models.CmpGte, Count: 2},
		{Name: "car", Cmp: models.CmpEq, Count: 0},
	}
	where, args := BuildSQLWhere(filters, 2)
	require.NotEmpty(t, where)
	assert.Contains(t, where, ">=")
	assert.Contains(t, where, "$2")
	assert.Contains(t, where, "$3")
	assert.Contains(t, where, "$4")
	assert.Contains(t, where, "$5")
	assert.Contains(t, where, "AND")
	require.Len(t, args, 4)
	assert.Equal(t, "person", args[0])
	assert.Equal(t, 2, args[1])
	assert.Equal(t, "car", args[2])
	assert.Equal(t, 0, args[3])
}
