package das

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArrays(t *testing.T) []*Array {
	dense := mustArray(t, "spectrum", VTDouble, []int{4, 3}, seq(12), WithUnits("V**2 m**-2 Hz**-1"))

	ragged := mustArray(t, "counts", VTLong, []int{2, 3}, seq(6), WithRagged(1), WithFillValue(-1))
	require.NoError(t, ragged.SetLengthIn([]int{0}, 2))
	require.NoError(t, ragged.SetLengthIn([]int{1}, 0))

	text, err := NewArray("names", VTUByte, []int{2, 4}, WithUsage(UsageString))
	require.NoError(t, err)
	require.NoError(t, text.SetText([]int{0}, "ab"))
	require.NoError(t, text.SetText([]int{1}, "wxyz"))

	return []*Array{dense, ragged, text}
}

func assertSameArray(t *testing.T, want, got *Array) {
	t.Helper()
	assert.Equal(t, want.ID(), got.ID())
	assert.Equal(t, want.ValType(), got.ValType())
	assert.Equal(t, want.Capacity(), got.Capacity())
	assert.Equal(t, want.Units(), got.Units())
	assert.Equal(t, want.Usage(), got.Usage())
	assert.Equal(t, want.Fill(), got.Fill())
	assert.Equal(t, want.Bytes(), got.Bytes())
	assert.Equal(t, want.Shape(), got.Shape())
	for i := 0; i < want.Capacity()[0]; i++ {
		assert.Equal(t, want.LengthIn([]int{i}), got.LengthIn([]int{i}), "row %d", i)
	}
}

func TestArrayStoreRoundTrip(t *testing.T) {
	for _, codec := range []string{"", "gzip", "zstd"} {
		t.Run("codec "+codec, func(t *testing.T) {
			s := NewMemoryStore()
			for _, a := range testArrays(t) {
				require.NoError(t, WriteArray(s, "arrays/"+a.ID(), a, codec))
				got, err := ReadArray(s, "arrays/"+a.ID())
				require.NoError(t, err)
				assertSameArray(t, a, got)
				assert.Equal(t, 1, got.Refs())
				got.Release()
				a.Release()
			}
		})
	}
}

func TestWriteArrayKeys(t *testing.T) {
	s := NewMemoryStore()
	a := mustArray(t, "a", VTFloat, []int{2, 2}, seq(4))
	defer a.Release()
	require.NoError(t, WriteArray(s, "grp/a", a, "gzip"))
	assert.Equal(t, []string{"grp/a/.zarray", "grp/a/.zattrs", "grp/a/0.0"}, s.Keys("grp/"))

	meta := &ArrayMeta{}
	require.NoError(t, getJSON(s, "grp/a/.zarray", meta))
	assert.Equal(t, ZarrFormat, meta.ZarrFormat)
	assert.Equal(t, []int{2, 2}, meta.Shape)
	assert.Equal(t, "<f4", meta.Dtype.String())
	assert.Equal(t, FillValueNaN, meta.FillValue)
	assert.Equal(t, "gzip", meta.Compressor.ID)

	assert.ErrorIs(t, WriteArray(s, "grp/b", a, "blosc"), ErrUnsupported)
	_, err := ReadArray(s, "grp/missing")
	assert.ErrorIs(t, err, ErrNotfound)
}

func TestFillValueJSON(t *testing.T) {
	raw := make([]byte, 8)
	encodeFloat64(VTDouble, math.Inf(-1), raw)
	assert.Equal(t, FillValueNegativeInfinity, fillJSON(VTDouble, raw))
	encodeFloat64(VTDouble, -9999, raw)
	assert.Equal(t, -9999.0, fillJSON(VTDouble, raw))
	assert.Equal(t, int64(math.MinInt64), fillJSON(VTLong, defaultFill(VTLong)))

	got, err := fillRaw(VTFloat, FillValueInfinity)
	require.NoError(t, err)
	x, _ := decodeFloat64(VTFloat, got)
	assert.True(t, math.IsInf(x, 1))

	got, err = fillRaw(VTShort, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultFill(VTShort), got)

	_, err = fillRaw(VTShort, "lots")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = fillRaw(VTShort, true)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLocalStore(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, LocalStoreType, s.Type())

	a := mustArray(t, "time", VTDouble, []int{5}, seq(5), WithUnits("t2000"))
	defer a.Release()
	require.NoError(t, WriteArray(s, "time", a, "zstd"))
	got, err := ReadArray(s, "time")
	require.NoError(t, err)
	defer got.Release()
	assertSameArray(t, a, got)

	_, err = s.Get("nope/.zarray")
	assert.ErrorIs(t, err, ErrNotfound)
}

func TestEncodeExpression(t *testing.T) {
	km := mustArray(t, "range_km", VTDouble, []int{3}, []float64{1, 2, 3}, WithUnits("km"))
	defer km.Release()
	m := mustArray(t, "offset_m", VTDouble, []int{3}, []float64{10, 20, 30}, WithUnits("m"))
	defer m.Release()
	kv := mustView(t, km, IdentityMap(1))
	defer kv.Release()
	mv := mustView(t, m, IdentityMap(1))
	defer mv.Release()
	sum, err := NewBinary("total", kv, "+", mv)
	require.NoError(t, err)
	defer sum.Release()

	s := NewMemoryStore()
	enc := &Encoder{Sink: s, Compressor: "gzip"}
	require.NoError(t, enc.Encode(sum, "total"))

	cm, err := ReadConsolidated(s, "total")
	require.NoError(t, err)
	assert.Equal(t, 1, cm.ConsolidatedFormat)
	for _, key := range []string{
		".zgroup", ".zattrs",
		"left/.zgroup", "left/.zattrs", "left/values/.zarray", "left/values/.zattrs",
		"right/.zgroup", "right/.zattrs", "right/values/.zarray", "right/values/.zattrs",
	} {
		assert.Contains(t, cm.Metadata, key)
	}
	assert.Len(t, cm.Metadata, 10)

	attrs, ok := cm.Metadata[".zattrs"].(Attributes)
	require.True(t, ok)
	assert.Equal(t, "binary", attrs["kind"])
	assert.Equal(t, "+", attrs["op"])
	assert.Equal(t, "m", attrs["units"])
	assert.Equal(t, "(range_km[i] + offset_m[i]) m | i:0..3", attrs["expression"])

	left, ok := cm.Metadata["left/.zattrs"].(Attributes)
	require.True(t, ok)
	assert.Equal(t, "{i:0}", left["index_map"])

	got, err := ReadArray(s, "total/left/values")
	require.NoError(t, err)
	defer got.Release()
	assertSameArray(t, km, got)
}

func TestEncodeLeaves(t *testing.T) {
	s := NewMemoryStore()

	seqv, err := NewSequence("time", VTDouble, 10, 2.5, "s", 1, 0)
	require.NoError(t, err)
	defer seqv.Release()
	require.NoError(t, Encode(seqv, "time", s))
	assert.Equal(t, []string{"time/.zattrs", "time/.zgroup", "time/.zmetadata"}, s.Keys("time/"))

	c := NewConstant("gain", Float64Datum(2.5, "V"))
	defer c.Release()
	require.NoError(t, Encode(c, "gain", s))
	cm, err := ReadConsolidated(s, "gain")
	require.NoError(t, err)
	attrs := cm.Metadata[".zattrs"].(Attributes)
	assert.Equal(t, "constant", attrs["kind"])
	assert.Equal(t, "2.5 V", attrs["value"])

	b := xyzVectors(t, "B", seq(6), 2)
	defer b.Release()
	require.NoError(t, Encode(b, "mag", s))
	cm, err = ReadConsolidated(s, "mag")
	require.NoError(t, err)
	attrs = cm.Metadata[".zattrs"].(Attributes)
	assert.Equal(t, "GSE", attrs["frame"])
	assert.Equal(t, []interface{}{0.0, 1.0, 2.0}, attrs["dirs"])
	assert.Contains(t, cm.Metadata, "values/.zarray")

	enc := &Encoder{Sink: s, Compressor: "lz4"}
	assert.ErrorIs(t, enc.Encode(c, "bad"), ErrUnsupported)
}
