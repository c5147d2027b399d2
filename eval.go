package das

import (
	"go.uber.org/zap"
)

// Evaluate computes every value of v once and stores them in a new array
// backed variable, so repeated reads don't recompute an expression tree.
// Vector results come back as a GeoVectorView. Dimensions v doesn't depend
// on stay unused in the result. Ragged dimensions are stored at their
// longest row with NaN filling the rest. Variables that only generate
// values along some dimension have no end there and can't be evaluated.
func Evaluate(v Variable) (Variable, error) {
	rank := v.ExtRank()
	if rank == 0 {
		return nil, errorf(ErrUnbounded, "variable %s has no dimensions", v.ID())
	}

	min, max := make([]int, rank), make([]int, rank)
	drop := make([]bool, rank)
	dims := make([]DimMap, rank)
	next := 0
	for d := 0; d < rank; d++ {
		if v.Degenerate(d) {
			max[d], drop[d], dims[d] = 1, true, Unused
			continue
		}
		n, err := boundedLength(v, d, max[:d])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, errorf(ErrInvalidRange, "dimension %d of %s is empty", d, v.ID())
		}
		max[d], dims[d] = n, MapTo(next)
		next++
	}
	imap, err := NewIndexMap(dims...)
	if err != nil {
		return nil, report(err)
	}

	id := v.ID()
	if id == "" {
		id = "eval"
	}
	ary, err := materialize(v, id, min, max, drop)
	if err != nil {
		return nil, err
	}
	// the new view takes over the array
	defer ary.Release()

	logger().Debug("evaluated", zap.String("expr", v.Expression(0)), zap.Ints("shape", ary.Capacity()))
	if tmpl, frame, ok := vectorOf(v); ok {
		gv, err := NewGeoVectorView(ary, imap, frame, tmpl.Frame, tmpl.System, tmpl.Dirs[:tmpl.NComp])
		if err != nil {
			return nil, err
		}
		return gv, nil
	}
	av, err := NewArrayView(ary, imap, 0)
	if err != nil {
		return nil, err
	}
	return av, nil
}

// boundedLength finds the number of indices to evaluate along dimension d
// given the lengths already settled for earlier dimensions. Ragged
// dimensions are measured at every earlier location and the longest row
// wins.
func boundedLength(v Variable, d int, earlier []int) (int, error) {
	switch e := v.Shape()[d]; {
	case e.IsLength():
		return int(e), nil
	case e == ExtFunc:
		return 0, errorf(ErrUnbounded, "dimension %d of %s is generated without end", d, v.ID())
	}

	longest := 0
	measure := func(loc []int) error {
		e := v.LengthIn(loc)
		if !e.IsLength() {
			return errorf(ErrUnbounded, "dimension %d of %s has no length at %v", d, v.ID(), loc)
		}
		if int(e) > longest {
			longest = int(e)
		}
		return nil
	}
	if d == 0 {
		err := measure(nil)
		return longest, err
	}
	for o := newOdometer(make([]int, d), earlier); !o.done; o.next() {
		if err := measure(o.cur); err != nil {
			return 0, err
		}
	}
	return longest, nil
}
