package das

import (
	"go.uber.org/zap"
)

// Subset copies the values in [min, max) into a new rectangular array.
// Three strategies are tried in order: a view sharing the array's memory, a
// copy with fixed strides and an element by element copy that substitutes
// the fill value wherever a ragged row comes up short. They produce
// identical bytes, earlier ones are just cheaper.
func (v *ArrayView) Subset(min, max []int) (*Array, error) {
	if len(min) != v.extRank || len(max) != v.extRank {
		return nil, errorf(ErrInvalidRank, "variable %s has %d dimensions, range has %d", v.id, v.extRank, len(min))
	}
	shape, err := rangeShape(min, max, true)
	if err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		return nil, errorf(ErrInvalidRange, "range selects a single value of %s, use Get", v.id)
	}

	if out := v.directSubset(min, max); out != nil {
		logger().Debug("direct subset", zap.String("var", v.id), zap.Ints("min", min), zap.Ints("max", max))
		return out, nil
	}
	out, err := v.strideSubset(min, max, shape)
	if err != nil || out != nil {
		return out, err
	}
	return v.slowSubset(min, max, shape)
}

// newOutput allocates a fill-initialized array for subset results
func (v *ArrayView) newOutput(shape []int) (*Array, error) {
	a := v.ary
	dims := shape
	if v.intRank == 1 {
		dims = append(append([]int(nil), shape...), a.dims[a.Rank()-1])
	}
	out, err := NewArray(v.id+"_subset", a.vt, dims, WithFill(a.fill), WithUsage(a.usage))
	if err != nil {
		return nil, err
	}
	out.units = a.units
	return out, nil
}

// runBytes is the size of one value in storage, internal dimensions
// included
func (v *ArrayView) runBytes() int {
	a := v.ary
	if v.intRank == 1 {
		return a.esize * a.dims[a.Rank()-1]
	}
	return a.esize
}

// directSubset returns a view when the request is a run of single indices
// followed by full extents, in array order. It returns nil when the request
// has any other form.
func (v *ArrayView) directSubset(min, max []int) *Array {
	a := v.ary
	if !v.imap.increasing() {
		return nil
	}
	for d := 0; d < v.extRank; d++ {
		if v.imap.At(d).Kind != DimMapped && max[d]-min[d] != 1 {
			return nil
		}
	}
	next := v.extDims()
	if v.intRank == 1 && a.ragged[next] {
		return nil
	}
	amin, amax := make([]int, next), make([]int, next)
	v.imap.projectRange(min, max, amin, amax)

	var fixed []int
	full := false
	for t := 0; t < next; t++ {
		if amax[t]-amin[t] == 1 {
			if full {
				// the view would keep a dimension the result drops
				return nil
			}
			fixed = append(fixed, amin[t])
			continue
		}
		if amin[t] != 0 {
			return nil
		}
		n := a.dims[t]
		if a.ragged[t] {
			// the row is only known when every earlier index is fixed
			if full || !a.validPrefix(fixed) {
				return nil
			}
			n = a.lengthAt(t, fixed)
		}
		if amax[t] != n {
			return nil
		}
		full = true
	}
	if !full || !a.validPrefix(fixed) {
		return nil
	}
	out, err := a.SubSetIn(fixed)
	if err != nil {
		return nil
	}
	out.id = v.id + "_subset"
	return out
}

// strideSubset copies with fixed byte strides. It applies when canStride
// holds and every selected coordinate is inside its row, which leaves no
// position to fill. It returns nil, nil when it doesn't apply.
func (v *ArrayView) strideSubset(min, max []int, shape []int) (*Array, error) {
	a := v.ary
	next := v.extDims()
	amin, amax := make([]int, next), make([]int, next)
	v.imap.projectRange(min, max, amin, amax)
	if !canStride(a.ragged[:next], amin, amax) {
		return nil, nil
	}
	for t := 0; t < next; t++ {
		if amax[t] > a.lengthAt(t, amin) {
			return nil, nil
		}
	}

	out, err := v.newOutput(shape)
	if err != nil {
		return nil, err
	}
	run := v.runBytes()
	strides := make([]int, v.extRank)
	for d := range strides {
		if dm := v.imap.At(d); dm.Kind == DimMapped {
			strides[d] = a.strides[dm.Dim] * a.esize
		}
	}
	for _, s := range strides {
		if s < 0 {
			out.Release()
			return nil, errorf(ErrInternal, "negative stride %d in %s", s, v.id)
		}
	}

	// contiguous innermost runs move as one block
	omax := append([]int(nil), max...)
	block := run
	last := v.extRank - 1
	if strides[last] == run {
		block = run * (max[last] - min[last])
		omax[last] = min[last] + 1
	}

	src, dst := a.data, out.data
	w := 0
	for o := newOdometer(min, omax); !o.done; o.next() {
		off := 0
		for d, i := range o.cur {
			off += i * strides[d]
		}
		if off+block > len(src) || w+block > len(dst) {
			out.Release()
			return nil, errorf(ErrInternal, "strided copy of %s ran past its buffers", v.id)
		}
		copy(dst[w:w+block], src[off:off+block])
		w += block
	}
	if w != len(dst) {
		out.Release()
		return nil, errorf(ErrInternal, "strided copy of %s wrote %d of %d bytes", v.id, w, len(dst))
	}
	logger().Debug("strided subset", zap.String("var", v.id), zap.Ints("min", min), zap.Ints("max", max))
	return out, nil
}

// slowSubset checks every coordinate, positions outside the array's valid
// region keep the fill value
func (v *ArrayView) slowSubset(min, max []int, shape []int) (*Array, error) {
	a := v.ary
	out, err := v.newOutput(shape)
	if err != nil {
		return nil, err
	}
	run := v.runBytes()
	aloc := make([]int, v.extDims())
	w := 0
	filled := 0
	for o := newOdometer(min, max); !o.done; o.next() {
		v.imap.project(o.cur, aloc)
		var src []byte
		if v.intRank == 0 {
			src = a.GetAt(aloc)
		} else {
			src, _ = a.GetIn(aloc)
		}
		if len(src) == run {
			copy(out.data[w:w+run], src)
		} else {
			filled++
		}
		w += run
	}
	logger().Debug("element subset", zap.String("var", v.id), zap.Ints("min", min), zap.Ints("max", max), zap.Int("filled", filled))
	return out, nil
}

// subsetByGet materializes any variable through Get
func subsetByGet(v Variable, min, max []int) (*Array, error) {
	if len(min) != len(max) || len(min) < v.ExtRank() {
		return nil, errorf(ErrInvalidRank, "variable %s has %d dimensions, range has %d", v.ID(), v.ExtRank(), len(min))
	}
	drop := make([]bool, len(min))
	for d := range min {
		drop[d] = max[d]-min[d] == 1
	}
	return materialize(v, v.ID()+"_subset", min, max, drop)
}

// materialize evaluates v at every location in [min, max) and stores the
// results as doubles. Dimensions flagged in drop must select one value and
// are left out of the result. Invalid locations and fill values become NaN.
func materialize(v Variable, id string, min, max []int, drop []bool) (*Array, error) {
	var shape []int
	for d := range min {
		if min[d] < 0 || max[d] <= min[d] {
			return nil, errorf(ErrInvalidRange, "index %d range [%d,%d) is empty or negative", d, min[d], max[d])
		}
		if drop[d] {
			if max[d]-min[d] != 1 {
				return nil, errorf(ErrInternal, "dropping dimension %d of width %d", d, max[d]-min[d])
			}
			continue
		}
		shape = append(shape, max[d]-min[d])
	}
	if len(shape) == 0 {
		return nil, errorf(ErrInvalidRange, "range selects a single value of %s, use Get", v.ID())
	}

	ncomp := 0
	switch {
	case v.ValType() == VTGeoVec:
		tmpl, _, _ := vectorOf(v)
		ncomp = tmpl.NComp
		shape = append(shape, ncomp)
	case v.IsNumeric() && v.IntRank() == 0:
	default:
		return nil, errorf(ErrNotNumeric, "variable %s holds %s", v.ID(), v.ValType())
	}

	out, err := NewArray(id, VTDouble, shape)
	if err != nil {
		return nil, err
	}
	out.units = v.Units()

	k := 0
	for o := newOdometer(min, max); !o.done; o.next() {
		d, ok := v.Get(o.cur)
		if ok && !v.IsFill(d) {
			if ncomp > 0 {
				if vec, isVec := d.Vector(); isVec {
					for i, c := range vec.Components() {
						encodeFloat64(VTDouble, c, out.data[(k+i)*8:])
					}
				}
			} else if x, isNum := d.Float64(); isNum {
				encodeFloat64(VTDouble, x, out.data[k*8:])
			}
		}
		if ncomp > 0 {
			k += ncomp
		} else {
			k++
		}
	}
	return out, nil
}
