package das

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubsetDirectView(t *testing.T) {
	logs := observeLogs(t)
	a := mustArray(t, "spectrum", VTDouble, []int{4, 3}, seq(12))
	defer a.Release()
	v := mustView(t, a, IdentityMap(2))
	defer v.Release()

	out, err := v.Subset([]int{2, 0}, []int{3, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, out.Capacity())
	assert.Equal(t, []float64{6, 7, 8}, values(t, out))
	assert.Equal(t, "spectrum_subset", out.ID())
	// the view holds the array
	assert.Equal(t, 3, a.Refs())
	out.Release()
	assert.Equal(t, 2, a.Refs())
	assert.Equal(t, 1, logs.FilterMessage("direct subset").Len())
}

func TestSubsetTiersAgree(t *testing.T) {
	a := mustArray(t, "cube", VTShort, []int{3, 4, 5}, seq(60))
	defer a.Release()
	v := mustView(t, a, IdentityMap(3))
	defer v.Release()

	cases := []struct {
		name     string
		min, max []int
		direct   bool
	}{
		{"one plane", []int{1, 0, 0}, []int{2, 4, 5}, true},
		{"one row", []int{2, 3, 0}, []int{3, 4, 5}, true},
		{"everything", []int{0, 0, 0}, []int{3, 4, 5}, true},
		{"inner block", []int{1, 1, 1}, []int{3, 3, 4}, false},
		{"column", []int{0, 2, 3}, []int{3, 3, 4}, false},
		{"partial rows", []int{0, 0, 1}, []int{3, 4, 5}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			shape, err := rangeShape(c.min, c.max, true)
			require.NoError(t, err)

			slow, err := v.slowSubset(c.min, c.max, shape)
			require.NoError(t, err)
			defer slow.Release()

			strided, err := v.strideSubset(c.min, c.max, shape)
			require.NoError(t, err)
			require.NotNil(t, strided)
			defer strided.Release()
			assert.Equal(t, slow.Bytes(), strided.Bytes())
			assert.Equal(t, shape, strided.Capacity())

			direct := v.directSubset(c.min, c.max)
			if !c.direct {
				assert.Nil(t, direct)
				return
			}
			require.NotNil(t, direct)
			defer direct.Release()
			assert.Equal(t, slow.Bytes(), direct.Bytes())
			assert.Equal(t, shape, direct.Capacity())
		})
	}
}

func TestSubsetRaggedUsesFill(t *testing.T) {
	logs := observeLogs(t)
	a := mustArray(t, "ragged", VTInt, []int{3, 4}, seq(12), WithRagged(1), WithFillValue(-1))
	defer a.Release()
	require.NoError(t, a.SetLengthIn([]int{0}, 2))
	require.NoError(t, a.SetLengthIn([]int{1}, 3))

	v := mustView(t, a, IdentityMap(2))
	defer v.Release()

	out, err := v.Subset([]int{0, 0}, []int{3, 4})
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []int{3, 4}, out.Capacity())
	assert.Equal(t, []float64{0, 1, -1, -1, 4, 5, 6, -1, 8, 9, 10, 11}, values(t, out))
	assert.Equal(t, 1, logs.FilterMessage("element subset").Len())

	// a single ragged row comes back as a view of its valid part
	row, err := v.Subset([]int{1, 0}, []int{2, 3})
	require.NoError(t, err)
	defer row.Release()
	assert.Equal(t, []float64{4, 5, 6}, values(t, row))
	assert.Equal(t, 1, logs.FilterMessage("direct subset").Len())

	// reading past the row end is padded
	long, err := v.Subset([]int{1, 0}, []int{2, 4})
	require.NoError(t, err)
	defer long.Release()
	assert.Equal(t, []float64{4, 5, 6, -1}, values(t, long))
}

func TestSubsetRangeErrors(t *testing.T) {
	a := mustArray(t, "a", VTDouble, []int{4, 3}, seq(12))
	defer a.Release()
	v := mustView(t, a, IdentityMap(2))
	defer v.Release()

	_, err := v.Subset([]int{1, 1}, []int{2, 2})
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = v.Subset([]int{1}, []int{2})
	assert.ErrorIs(t, err, ErrInvalidRank)
	_, err = v.Subset([]int{2, 0}, []int{1, 3})
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = v.Subset([]int{-1, 0}, []int{1, 3})
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Equal(t, 2, a.Refs())
}

func TestSubsetUnusedDimensionRepeats(t *testing.T) {
	a := mustArray(t, "freq", VTDouble, []int{3}, []float64{10, 20, 30})
	defer a.Release()
	v := mustView(t, a, mustMap(t, Unused, MapTo(0)))
	defer v.Release()

	out, err := v.Subset([]int{0, 0}, []int{2, 3})
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []int{2, 3}, out.Capacity())
	assert.Equal(t, []float64{10, 20, 30, 10, 20, 30}, values(t, out))

	shape := []int{2, 3}
	slow, err := v.slowSubset([]int{0, 0}, []int{2, 3}, shape)
	require.NoError(t, err)
	defer slow.Release()
	assert.Equal(t, slow.Bytes(), out.Bytes())
}

func TestSubsetTransposed(t *testing.T) {
	a := mustArray(t, "a", VTDouble, []int{2, 3}, seq(6))
	defer a.Release()
	v := mustView(t, a, mustMap(t, MapTo(1), MapTo(0)))
	defer v.Release()

	out, err := v.Subset([]int{0, 0}, []int{3, 2})
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []int{3, 2}, out.Capacity())
	assert.Equal(t, []float64{0, 3, 1, 4, 2, 5}, values(t, out))
}

func TestSubsetText(t *testing.T) {
	a, err := NewArray("names", VTUByte, []int{3, 4}, WithUsage(UsageString))
	require.NoError(t, err)
	defer a.Release()
	for i, s := range []string{"ab", "cde", "f"} {
		require.NoError(t, a.SetText([]int{i}, s))
	}
	v, err := NewArrayView(a, IdentityMap(1), 1)
	require.NoError(t, err)
	defer v.Release()

	out, err := v.Subset([]int{1}, []int{3})
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []int{2, 4}, out.Capacity())
	assert.Equal(t, UsageString, out.Usage())
	assert.Equal(t, []byte("cde\x00f\x00\x00\x00"), out.Bytes())
}

// TestSubsetRaggedProperty builds random ragged arrays and checks that every
// strategy that accepts a range produces the same bytes as the element by
// element copy, which itself matches GetAt or the fill value everywhere.
func TestSubsetRaggedProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1138))
	for iter := 0; iter < 300; iter++ {
		dims := []int{1 + rng.Intn(4), 1 + rng.Intn(4), 1 + rng.Intn(4)}
		var ragged []int
		for d := 1; d < 3; d++ {
			if rng.Intn(2) == 0 {
				ragged = append(ragged, d)
			}
		}
		a := mustArray(t, "p", VTDouble, dims, seq(product(dims)), WithRagged(ragged...), WithFillValue(-1))
		for o := newOdometer([]int{0}, dims[:1]); !o.done; o.next() {
			if a.IsRagged(1) {
				require.NoError(t, a.SetLengthIn(o.cur, rng.Intn(dims[1]+1)))
			}
		}
		for o := newOdometer([]int{0, 0}, dims[:2]); !o.done; o.next() {
			if a.IsRagged(2) {
				require.NoError(t, a.SetLengthIn(o.cur, rng.Intn(dims[2]+1)))
			}
		}
		v := mustView(t, a, IdentityMap(3))

		min, max := make([]int, 3), make([]int, 3)
		for d := range dims {
			min[d] = rng.Intn(dims[d])
			max[d] = min[d] + 1 + rng.Intn(dims[d]-min[d])
		}
		shape, err := rangeShape(min, max, true)
		require.NoError(t, err)
		if len(shape) == 0 {
			v.Release()
			a.Release()
			continue
		}

		slow, err := v.slowSubset(min, max, shape)
		require.NoError(t, err)
		k := 0
		for o := newOdometer(min, max); !o.done; o.next() {
			want := -1.0
			if x, ok := a.Float64At(o.cur); ok {
				want = x
			}
			got, _ := decodeFloat64(VTDouble, slow.Bytes()[k*8:])
			require.Equal(t, want, got, "iteration %d at %v", iter, o.cur)
			k++
		}

		strided, err := v.strideSubset(min, max, shape)
		require.NoError(t, err)
		if strided != nil {
			require.Equal(t, slow.Bytes(), strided.Bytes(), "iteration %d strided %v..%v", iter, min, max)
			strided.Release()
		}
		if direct := v.directSubset(min, max); direct != nil {
			require.Equal(t, slow.Bytes(), direct.Bytes(), "iteration %d direct %v..%v", iter, min, max)
			require.Equal(t, shape, direct.Capacity())
			direct.Release()
		}
		slow.Release()
		v.Release()
		require.Equal(t, 1, a.Refs())
		a.Release()
	}
}

func TestSubsetByGet(t *testing.T) {
	s, err := NewSequence("time", VTDouble, 0, 0.5, "s", 2, 0)
	require.NoError(t, err)
	defer s.Release()

	out, err := s.Subset([]int{2, 0}, []int{5, 2})
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []int{3, 2}, out.Capacity())
	assert.Equal(t, []float64{1, 1, 1.5, 1.5, 2, 2}, values(t, out))
	assert.Equal(t, Units("s"), out.Units())

	// a wider range than the rank repeats values
	wide, err := s.Subset([]int{1, 0, 0}, []int{2, 1, 3})
	require.NoError(t, err)
	defer wide.Release()
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, values(t, wide))

	_, err = s.Subset([]int{1}, []int{2})
	assert.ErrorIs(t, err, ErrInvalidRank)
	_, err = s.Subset([]int{1, 1}, []int{2, 2})
	assert.ErrorIs(t, err, ErrInvalidRange)

	x, _ := decodeFloat64(VTDouble, out.Fill())
	assert.True(t, math.IsNaN(x))
}
