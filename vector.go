package das

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// MaxVecLen is the largest number of components a geometric vector may have
const MaxVecLen = 4

const vecBufSize = MaxVecLen * 8

// Coordinate system types for vector frames
const (
	SysUnknown     uint8 = 0
	SysCartesian   uint8 = 1
	SysPolar       uint8 = 2
	SysSpherical   uint8 = 3
	SysCylindrical uint8 = 4
)

// GeoVec is a spatial vector tagged with the coordinate frame it lives in.
// Components are stored in their native element type.
type GeoVec struct {
	Frame  uint8
	System uint8
	ET     ValType
	NComp  int
	Dirs   [MaxVecLen]uint8
	comps  [vecBufSize]byte
}

func newGeoVecTemplate(frame, system uint8, et ValType, dirs []uint8) (GeoVec, error) {
	v := GeoVec{Frame: frame, System: system, ET: et, NComp: len(dirs)}
	if !et.IsSimple() {
		return v, fmt.Errorf("%w: vector components must be simple numbers, not %s", ErrUnsupported, et)
	}
	if v.NComp < 1 || v.NComp > MaxVecLen {
		return v, fmt.Errorf("%w: %d vector components, max is %d", ErrUnsupported, v.NComp, MaxVecLen)
	}
	if v.NComp*et.Size() > vecBufSize {
		return v, fmt.Errorf("%w: %d components of %s", ErrDatumOverflow, v.NComp, et)
	}
	copy(v.Dirs[:], dirs)
	return v, nil
}

// ESize is the size of one component in bytes
func (v GeoVec) ESize() int { return v.ET.Size() }

// Raw returns the packed component bytes
func (v GeoVec) Raw() []byte {
	return v.comps[:v.NComp*v.ESize()]
}

// setRaw overlays raw component bytes onto the vector
func (v *GeoVec) setRaw(b []byte) bool {
	n := v.NComp * v.ESize()
	if len(b) < n || n > vecBufSize {
		return false
	}
	copy(v.comps[:n], b[:n])
	return true
}

// Components converts every component to float64
func (v GeoVec) Components() []float64 {
	out := make([]float64, v.NComp)
	sz := v.ESize()
	for i := range out {
		out[i], _ = decodeFloat64(v.ET, v.comps[i*sz:])
	}
	return out
}

// withComponents returns a copy of the vector, in double precision, holding vals
func (v GeoVec) withComponents(vals []float64) GeoVec {
	o := v
	o.ET = VTDouble
	o.NComp = len(vals)
	for i, x := range vals {
		encodeFloat64(VTDouble, x, o.comps[i*8:])
	}
	return o
}

func (v GeoVec) String() string {
	strs := make([]string, v.NComp)
	for i, c := range v.Components() {
		strs[i] = fmt.Sprintf("%g", c)
	}
	return "(" + strings.Join(strs, ", ") + ")"
}

// SameFrame reports whether two vectors can be combined
func (v GeoVec) SameFrame(o GeoVec) bool {
	return v.Frame == o.Frame && v.System == o.System && v.NComp == o.NComp && v.Dirs == o.Dirs
}

func vecNorm(a []float64) float64 {
	return floats.Norm(a, 2)
}

func vecDot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

func vecCross(a, b []float64) []float64 {
	return []float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func vecAdd(a, b []float64) []float64 {
	out := make([]float64, len(a))
	floats.AddTo(out, a, b)
	return out
}

func vecSub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	floats.SubTo(out, a, b)
	return out
}

func vecScale(c float64, a []float64) []float64 {
	out := make([]float64, len(a))
	copy(out, a)
	floats.Scale(c, out)
	return out
}
