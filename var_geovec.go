package das

import (
	"fmt"
	"strings"
)

// GeoVectorView is an array view whose internal dimension holds the
// components of a spatial vector in a named coordinate frame
type GeoVectorView struct {
	ArrayView
	frame string
	tmpl  GeoVec
}

var _ Variable = (*GeoVectorView)(nil)

// NewGeoVectorView creates a vector variable over a. The last dimension of a
// holds one component per direction code and may not be ragged. On success
// the view holds a reference to a.
func NewGeoVectorView(a *Array, imap IndexMap, frame string, frameID, system uint8, dirs []uint8) (*GeoVectorView, error) {
	if frame == "" {
		return nil, errorf(ErrUnsupported, "vector frame name is empty")
	}
	v := &GeoVectorView{frame: frame}
	if err := v.init(a, imap, 1); err != nil {
		return nil, err
	}
	last := a.Rank() - 1
	if a.ragged[last] || a.dims[last] != len(dirs) {
		return nil, errorf(ErrUnsupported, "array %s last dimension must hold exactly %d components", a.id, len(dirs))
	}
	if !a.vt.IsNumeric() || a.usage != UsageNone {
		return nil, errorf(ErrNotNumeric, "vector components of array %s are %s", a.id, a.vt)
	}
	tmpl, err := newGeoVecTemplate(frameID, system, a.vt, dirs)
	if err != nil {
		return nil, report(err)
	}
	v.tmpl = tmpl
	v.kind = KindGeoVector
	v.vt = VTGeoVec
	v.vsize = len(dirs) * a.esize

	a.IncRef()
	return v, nil
}

// Frame is the name of the coordinate frame
func (v *GeoVectorView) Frame() string { return v.frame }

// Template is the vector description shared by every value
func (v *GeoVectorView) Template() GeoVec { return v.tmpl }

func (v *GeoVectorView) Get(loc []int) (Datum, bool) {
	if !locOK(loc, v.extRank) {
		return Datum{}, false
	}
	run, _ := v.ary.GetIn(v.arrayLoc(loc))
	if run == nil {
		return Datum{}, false
	}
	vec := v.tmpl
	if !vec.setRaw(run) {
		return Datum{}, false
	}
	return VectorDatum(vec, v.units), true
}

// IsFill treats a vector as missing if any component holds the fill value
func (v *GeoVectorView) IsFill(d Datum) bool {
	vec, ok := d.Vector()
	if !ok {
		return false
	}
	for _, c := range vec.Components() {
		if compareRaw(v.ary.fill, v.ary.vt, Float64Datum(c, Dimensionless)) {
			return true
		}
	}
	return false
}

func (v *GeoVectorView) IsNumeric() bool { return true }

func (v *GeoVectorView) Expression(flags ExprFlags) string {
	return decorate(v, v.ary.id+v.imap.brackets(), flags, frameText(v.frame, v.tmpl))
}

func (v *GeoVectorView) Copy() Variable {
	c := *v
	c.varBase = v.varBase.clone()
	v.ary.IncRef()
	return &c
}

func frameText(frame string, tmpl GeoVec) string {
	dirs := make([]string, tmpl.NComp)
	for i := range dirs {
		dirs[i] = fmt.Sprintf("%d", tmpl.Dirs[i])
	}
	return fmt.Sprintf("<%s:%s>", frame, strings.Join(dirs, ","))
}

// vectorOf returns the vector template and frame name of vector valued
// variables
func vectorOf(v Variable) (GeoVec, string, bool) {
	switch t := v.(type) {
	case *GeoVectorView:
		return t.tmpl, t.frame, true
	case *Unary:
		return t.tmpl, t.frame, t.vt == VTGeoVec
	case *Binary:
		return t.tmpl, t.frame, t.vt == VTGeoVec
	case *Constant:
		vec, ok := t.d.Vector()
		return vec, t.frame, ok
	}
	return GeoVec{}, "", false
}
