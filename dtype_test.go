package das

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDtypeValTypeRoundTrip(t *testing.T) {
	for vt := VTByte; vt <= VTDouble; vt++ {
		dt, err := DtypeOf(vt)
		require.NoError(t, err, vt.String())
		parsed, err := ParseDtype(dt.String())
		require.NoError(t, err, dt.String())
		got, err := parsed.ValType()
		require.NoError(t, err)
		assert.Equal(t, vt, got)
	}

	dt, err := DtypeOf(VTUByte)
	require.NoError(t, err)
	assert.Equal(t, "|u1", dt.String())
	dt, err = DtypeOf(VTDouble)
	require.NoError(t, err)
	assert.Equal(t, "<f8", dt.String())

	_, err = DtypeOf(VTText)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDtypeRejects(t *testing.T) {
	dt, err := ParseDtype(">i4")
	require.NoError(t, err)
	_, err = dt.ValType()
	assert.ErrorIs(t, err, ErrUnsupported)

	dt, err = ParseDtype("<f2")
	require.NoError(t, err)
	_, err = dt.ValType()
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "no 2 byte float type")
	assert.Equal(t, "uint", BTUnsigned.Human())

	dt, err = ParseDtype("|S1")
	require.NoError(t, err)
	vt, err := dt.ValType()
	require.NoError(t, err)
	assert.Equal(t, VTUByte, vt)

	_, err = ParseDtype("<f")
	assert.Error(t, err)
	_, err = ParseDtype("?f8")
	assert.Error(t, err)
	_, err = ParseDtype("<z8")
	assert.Error(t, err)
}

func TestDtypeJSON(t *testing.T) {
	var dt Dtype
	require.NoError(t, json.Unmarshal([]byte(`"&lt;f4[s]"`), &dt))
	assert.Equal(t, BOLittleEndian, dt.ByteOrder)
	assert.Equal(t, BTFloatingPoint, dt.BasicType)
	assert.Equal(t, 4, dt.ByteSize)
	assert.Equal(t, "[s]", dt.Units)

	data, err := dt.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"<f4[s]"`, string(data))
	assert.Error(t, json.Unmarshal([]byte(`4`), &dt))
}

func TestParseValType(t *testing.T) {
	for vt := VTByte; vt <= VTGeoVec; vt++ {
		got, err := ParseValType(vt.String())
		require.NoError(t, err)
		assert.Equal(t, vt, got)
	}
	_, err := ParseValType("unknown")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = ParseValType("complex")
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, "ValType(99)", ValType(99).String())
}

func TestFloat64Codec(t *testing.T) {
	b := make([]byte, 8)
	for vt := VTByte; vt <= VTDouble; vt++ {
		require.True(t, encodeFloat64(vt, 100, b), vt.String())
		got, ok := decodeFloat64(vt, b)
		require.True(t, ok)
		assert.Equal(t, 100.0, got, vt.String())
	}
	require.True(t, encodeFloat64(VTShort, -3, b))
	got, _ := decodeFloat64(VTShort, b)
	assert.Equal(t, -3.0, got)

	got, _ = decodeFloat64(VTFloat, defaultFill(VTFloat))
	assert.True(t, math.IsNaN(got))
}

func TestDatum(t *testing.T) {
	raw := make([]byte, 4)
	encodeFloat64(VTInt, 42, raw)
	d, err := NewDatum(VTInt, raw, "km")
	require.NoError(t, err)
	x, ok := d.Float64()
	require.True(t, ok)
	assert.Equal(t, 42.0, x)
	assert.Equal(t, "42 km", d.String())
	assert.Equal(t, raw, d.Raw())

	_, err = NewDatum(VTText, raw, "")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = NewDatum(VTDouble, raw[:3], "")
	assert.ErrorIs(t, err, ErrDatumOverflow)

	txt := TextDatum("ab\x00\x00", Dimensionless)
	s, ok := txt.Text()
	require.True(t, ok)
	assert.Equal(t, "ab", s)
	_, ok = txt.Float64()
	assert.False(t, ok)
	assert.Equal(t, "ab", txt.String())

	bs := ByteSeqDatum([]byte{0xde, 0xad})
	assert.Equal(t, "dead", bs.String())
	_, ok = bs.Text()
	assert.False(t, ok)

	assert.True(t, Float64Datum(math.NaN(), "").IsNaN())
	assert.False(t, TextDatum("NaN", "").IsNaN())
}

func TestCompareRaw(t *testing.T) {
	raw := make([]byte, 8)
	encodeFloat64(VTDouble, math.NaN(), raw)
	assert.True(t, compareRaw(raw, VTDouble, Float64Datum(math.NaN(), "")))
	assert.False(t, compareRaw(raw, VTDouble, Float64Datum(0, "")))

	short := make([]byte, 2)
	encodeFloat64(VTShort, -7, short)
	assert.True(t, compareRaw(short, VTShort, Float64Datum(-7, "")))
	assert.False(t, compareRaw(short, VTShort, Float64Datum(7, "")))

	assert.True(t, compareRaw([]byte("ab\x00\x00"), VTUByte, TextDatum("ab", "")))
	assert.False(t, compareRaw([]byte("ab"), VTUByte, TextDatum("abc", "")))
	assert.False(t, compareRaw([]byte("ab"), VTUByte, Float64Datum(1, "")))
}
