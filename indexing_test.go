package das

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestNewIndexMapRank(t *testing.T) {
	_, err := NewIndexMap()
	assert.ErrorIs(t, err, ErrInvalidRank)
	_, err = NewIndexMap(make([]DimMap, MaxRank+1)...)
	assert.ErrorIs(t, err, ErrInvalidRank)

	m, err := NewIndexMap(MapTo(1), Unused, MapTo(0))
	require.NoError(t, err)
	assert.Equal(t, 3, m.Rank())
	assert.Equal(t, 2, m.Mapped())
	assert.Equal(t, Unused, m.At(5))
	assert.Equal(t, "{i:1, j:unused, k:0}", m.String())
	assert.Equal(t, "[i][k]", m.brackets())
	assert.False(t, m.increasing())
	assert.True(t, IdentityMap(3).increasing())
}

func TestIndexMapValidateCollectsEveryProblem(t *testing.T) {
	m, err := NewIndexMap(MapTo(0), MapTo(0), Generated, MapTo(4))
	require.NoError(t, err)

	err = m.validate(2, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadIndexMap)
	// duplicate target, generated entry, target out of range, mapped count
	assert.Len(t, multierr.Errors(err), 4)

	assert.NoError(t, IdentityMap(2).validate(2, 0))
	assert.NoError(t, mustMap(t, Unused, MapTo(0)).validate(2, 1))
	assert.Error(t, IdentityMap(2).validate(2, 1))
}

func TestIndexMapProject(t *testing.T) {
	m := mustMap(t, MapTo(1), Unused, MapTo(0))
	out := make([]int, 2)
	m.project([]int{7, 8, 9}, out)
	assert.Equal(t, []int{9, 7}, out)

	amin, amax := make([]int, 2), make([]int, 2)
	m.projectRange([]int{1, 0, 2}, []int{3, 1, 5}, amin, amax)
	assert.Equal(t, []int{2, 1}, amin)
	assert.Equal(t, []int{5, 3}, amax)
}

func TestMergeExtent(t *testing.T) {
	cases := []struct {
		a, b, want Extent
	}{
		{ExtUnused, 4, 4},
		{4, ExtUnused, 4},
		{ExtUnused, ExtFunc, ExtFunc},
		{ExtFunc, 4, 4},
		{3, 5, 3},
		{5, 3, 3},
		{ExtRagged, 5, ExtRagged},
		{ExtFunc, ExtRagged, ExtRagged},
		{ExtUnused, ExtUnused, ExtUnused},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, mergeExtent(c.a, c.b), "merge(%s, %s)", c.a, c.b)
	}
}

func TestCanStride(t *testing.T) {
	cases := []struct {
		name       string
		ragged     []bool
		amin, amax []int
		want       bool
	}{
		{"dense", []bool{false, false}, []int{0, 0}, []int{3, 4}, true},
		{"ragged after a wide dimension", []bool{false, true}, []int{0, 0}, []int{3, 2}, false},
		{"one row of a ragged table", []bool{false, true}, []int{1, 0}, []int{2, 4}, true},
		{"single values only", []bool{false, true, true}, []int{1, 1, 1}, []int{2, 2, 2}, true},
		{"ragged two dimensions later", []bool{false, false, true}, []int{0, 0, 0}, []int{1, 3, 1}, false},
		{"ragged before the wide dimension", []bool{false, true, false}, []int{0, 1, 0}, []int{1, 2, 5}, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, canStride(c.ragged, c.amin, c.amax), c.name)
	}
}

func TestExtentString(t *testing.T) {
	assert.Equal(t, "-", ExtUnused.String())
	assert.Equal(t, "*", ExtRagged.String())
	assert.Equal(t, "f", ExtFunc.String())
	assert.Equal(t, "12", Extent(12).String())
	assert.True(t, Extent(0).IsLength())
	assert.False(t, ExtFunc.IsLength())
}
