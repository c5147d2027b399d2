package das

import (
	"fmt"

	"go.uber.org/zap"
)

// ArrayView is a variable reading its values from an Array through an
// index map
type ArrayView struct {
	varBase
	ary  *Array
	imap IndexMap
}

var _ Variable = (*ArrayView)(nil)

// NewArrayView creates a variable over a. The last intRank dimensions of a
// are internal: a byte array with internal rank 1 yields text (UsageString)
// or byte sequences, other element types need NewGeoVectorView for
// composite values. On success the view holds a reference to a.
func NewArrayView(a *Array, imap IndexMap, intRank int) (*ArrayView, error) {
	v := &ArrayView{}
	if err := v.init(a, imap, intRank); err != nil {
		return nil, err
	}
	v.kind = KindArray

	isBytes := a.vt == VTUByte || a.vt == VTByte
	switch {
	case a.usage == UsageString:
		if intRank != 1 {
			return nil, errorf(ErrUnsupported, "text array %s needs internal rank 1, got %d", a.id, intRank)
		}
		v.vt = VTText
	case intRank == 1 && isBytes:
		v.vt = VTByteSeq
	case intRank == 1:
		return nil, errorf(ErrUnsupported, "%s elements of array %s can't form a composite value, use a vector view", a.vt, a.id)
	case a.usage == UsageSubseq:
		return nil, errorf(ErrUnsupported, "byte sequence array %s needs internal rank 1", a.id)
	default:
		v.vt = a.vt
	}
	v.vsize = a.esize
	if intRank == 1 {
		v.vsize = a.esize * a.dims[a.Rank()-1]
	}

	a.IncRef()
	return v, nil
}

// init validates everything shared by plain and vector views without
// touching reference counts
func (v *ArrayView) init(a *Array, imap IndexMap, intRank int) error {
	if a == nil {
		return errorf(ErrUnsupported, "nil array")
	}
	if a.Refs() < 1 {
		return errorf(ErrReleased, "array %s", a.id)
	}
	if intRank < 0 || intRank > 1 {
		return errorf(ErrUnsupported, "internal rank %d of array %s, only 0 and 1 are supported", intRank, a.id)
	}
	if err := imap.validate(a.Rank(), intRank); err != nil {
		return report(err, zap.String("array", a.id), zap.Stringer("map", imap))
	}
	v.varBase = varBase{
		refCount: refCount{n: 1},
		id:       a.id,
		extRank:  imap.Rank(),
		intRank:  intRank,
		units:    a.units,
	}
	v.ary = a
	v.imap = imap
	return nil
}

// Array is the backing store
func (v *ArrayView) Array() *Array { return v.ary }

// IndexMap relates external dimensions to array dimensions
func (v *ArrayView) IndexMap() IndexMap { return v.imap }

func (v *ArrayView) extDims() int { return v.ary.Rank() - v.intRank }

// arrayLoc projects an external location onto the array's external
// dimensions
func (v *ArrayView) arrayLoc(loc []int) []int {
	out := make([]int, v.extDims())
	v.imap.project(loc, out)
	return out
}

func (v *ArrayView) Shape() []Extent {
	ashape := v.ary.Shape()
	out := make([]Extent, v.extRank)
	for d := range out {
		if dm := v.imap.At(d); dm.Kind == DimMapped {
			out[d] = ashape[dm.Dim]
		} else {
			out[d] = ExtUnused
		}
	}
	return out
}

func (v *ArrayView) IntrShape() []Extent {
	if v.intRank == 0 {
		return nil
	}
	return []Extent{v.ary.Shape()[v.ary.Rank()-1]}
}

func (v *ArrayView) Degenerate(d int) bool {
	return v.imap.At(d).Kind != DimMapped
}

func (v *ArrayView) LengthIn(loc []int) Extent {
	n := len(loc)
	if n >= v.extRank {
		return ExtUnused
	}
	dm := v.imap.At(n)
	if dm.Kind != DimMapped {
		return ExtUnused
	}
	return v.backLength(dm.Dim, loc)
}

// backLength is the length of array dimension t given an external prefix.
// When the prefix doesn't pin every earlier array dimension a ragged
// dimension can only report that it is ragged.
func (v *ArrayView) backLength(t int, loc []int) Extent {
	prefix := make([]int, t)
	known := 0
	for d := range loc {
		if dm := v.imap.At(d); dm.Kind == DimMapped && dm.Dim < t {
			prefix[dm.Dim] = loc[d]
			known++
		}
	}
	if known == t {
		return v.ary.LengthIn(prefix)
	}
	if v.ary.IsRagged(t) {
		return ExtRagged
	}
	return Extent(v.ary.dims[t])
}

func (v *ArrayView) Get(loc []int) (Datum, bool) {
	if !locOK(loc, v.extRank) {
		return Datum{}, false
	}
	aloc := v.arrayLoc(loc)
	switch v.intRank {
	case 0:
		raw := v.ary.GetAt(aloc)
		if raw == nil {
			return Datum{}, false
		}
		d, err := NewDatum(v.ary.vt, raw, v.units)
		if err != nil {
			return Datum{}, false
		}
		return d, true
	case 1:
		run, n := v.ary.GetIn(aloc)
		if run == nil {
			return Datum{}, false
		}
		run = run[:n*v.ary.esize]
		return Datum{vt: v.vt, size: len(run), units: v.units, run: run}, true
	}
	return Datum{}, false
}

func (v *ArrayView) IsFill(d Datum) bool {
	return compareRaw(v.ary.fill, v.ary.vt, d)
}

func (v *ArrayView) IsNumeric() bool {
	return v.intRank == 0 && v.vt.IsNumeric()
}

func (v *ArrayView) intrText() string {
	if v.intRank == 0 {
		return ""
	}
	kind := "bytes"
	if v.vt == VTText {
		kind = "text"
	}
	return fmt.Sprintf("<%s:%s>", kind, v.IntrShape()[0])
}

func (v *ArrayView) Expression(flags ExprFlags) string {
	return decorate(v, v.ary.id+v.imap.brackets(), flags, v.intrText())
}

func (v *ArrayView) Copy() Variable {
	c := *v
	c.varBase = v.varBase.clone()
	v.ary.IncRef()
	return &c
}

// Release drops a reference, the last one lets go of the array
func (v *ArrayView) Release() int {
	n, freed := v.dec("variable " + v.id)
	if freed {
		v.ary.Release()
	}
	return n
}
