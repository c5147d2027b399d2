package das

import (
	"bytes"
	"fmt"
	"math"
)

// datumBufSize is the fixed space a datum has for a scalar value
const datumBufSize = 32

// Datum is a single typed, unit tagged value returned by element access.
// Scalars are copied into a fixed buffer, text and byte sequences reference
// the run they were read from, vectors carry their frame template.
type Datum struct {
	vt    ValType
	size  int
	units Units
	buf   [datumBufSize]byte
	run   []byte
	vec   GeoVec
}

// NewDatum wraps one raw element of a simple type
func NewDatum(vt ValType, raw []byte, units Units) (Datum, error) {
	d := Datum{vt: vt, units: units}
	if !vt.IsSimple() {
		return d, fmt.Errorf("%w: %s is not a scalar type", ErrUnsupported, vt)
	}
	if !d.setScalar(vt, raw) {
		return d, fmt.Errorf("%w: %d bytes of %s", ErrDatumOverflow, len(raw), vt)
	}
	return d, nil
}

// Float64Datum builds a double precision datum
func Float64Datum(v float64, units Units) Datum {
	d := Datum{vt: VTDouble, size: 8, units: units}
	encodeFloat64(VTDouble, v, d.buf[:])
	return d
}

// TextDatum builds a text datum
func TextDatum(s string, units Units) Datum {
	return Datum{vt: VTText, size: len(s), units: units, run: []byte(s)}
}

// ByteSeqDatum builds a raw byte sequence datum
func ByteSeqDatum(b []byte) Datum {
	return Datum{vt: VTByteSeq, size: len(b), run: b}
}

// VectorDatum builds a vector datum
func VectorDatum(v GeoVec, units Units) Datum {
	return Datum{vt: VTGeoVec, size: v.NComp * v.ESize(), units: units, vec: v}
}

func (d *Datum) setScalar(vt ValType, raw []byte) bool {
	sz := vt.Size()
	if sz > datumBufSize || len(raw) < sz {
		return false
	}
	d.vt = vt
	d.size = sz
	copy(d.buf[:sz], raw[:sz])
	return true
}

// ValType is the type of value held
func (d Datum) ValType() ValType { return d.vt }

// Units of the value
func (d Datum) Units() Units { return d.units }

// Raw returns the value's bytes in storage layout
func (d Datum) Raw() []byte {
	switch d.vt {
	case VTText, VTByteSeq:
		return d.run
	case VTGeoVec:
		return d.vec.Raw()
	default:
		return d.buf[:d.size]
	}
}

// Float64 converts scalar numeric datums
func (d Datum) Float64() (float64, bool) {
	if !d.vt.IsNumeric() {
		return 0, false
	}
	return decodeFloat64(d.vt, d.buf[:d.size])
}

// Text returns text datums as a string, trailing NUL bytes removed
func (d Datum) Text() (string, bool) {
	if d.vt != VTText {
		return "", false
	}
	return string(bytes.TrimRight(d.run, "\x00")), true
}

// Bytes returns the run referenced by text and byte sequence datums
func (d Datum) Bytes() ([]byte, bool) {
	if d.vt != VTText && d.vt != VTByteSeq {
		return nil, false
	}
	return d.run, true
}

// Vector returns the vector held by a vector datum
func (d Datum) Vector() (GeoVec, bool) {
	if d.vt != VTGeoVec {
		return GeoVec{}, false
	}
	return d.vec, true
}

// IsNaN reports whether a floating point datum holds NaN
func (d Datum) IsNaN() bool {
	if !d.vt.IsFloat() {
		return false
	}
	v, _ := d.Float64()
	return math.IsNaN(v)
}

func (d Datum) String() string {
	var s string
	switch d.vt {
	case VTText:
		s, _ = d.Text()
	case VTByteSeq:
		s = fmt.Sprintf("%x", d.run)
	case VTGeoVec:
		s = d.vec.String()
	default:
		if v, ok := d.Float64(); ok {
			s = fmt.Sprintf("%g", v)
		}
	}
	if d.units != Dimensionless {
		s += " " + string(d.units)
	}
	return s
}

// compareRaw compares a stored value against a datum with type awareness.
// Numbers compare by value with NaN equal to NaN, text and byte runs
// compare bytewise.
func compareRaw(raw []byte, vt ValType, d Datum) bool {
	if vt.IsNumeric() && d.vt.IsNumeric() {
		a, ok1 := decodeFloat64(vt, raw)
		b, ok2 := d.Float64()
		if !ok1 || !ok2 {
			return false
		}
		if math.IsNaN(a) || math.IsNaN(b) {
			return math.IsNaN(a) && math.IsNaN(b)
		}
		return a == b
	}
	switch d.vt {
	case VTText, VTByteSeq:
		return bytes.Equal(bytes.TrimRight(raw, "\x00"), bytes.TrimRight(d.run, "\x00"))
	case VTGeoVec:
		return bytes.Equal(raw, d.vec.Raw())
	}
	return false
}
