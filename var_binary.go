package das

import (
	"math"

	"go.uber.org/zap"
)

var binaryOps = map[string]struct{}{
	"+": {}, "-": {}, "*": {}, "/": {}, "pow": {}, "dot": {}, "cross": {},
}

// Binary combines two variables value by value at shared locations
type Binary struct {
	varBase
	op          string
	left, right Variable
	// operand values are multiplied by these before combining
	lscale, rscale float64
	lvec, rvec     bool
	tmpl           GeoVec
	frame          string
}

var _ Variable = (*Binary)(nil)

// NewBinary builds (left op right). Operators are "+", "-", "*", "/",
// "pow", "dot" and "cross". Sums and differences take the right operand's
// units, the left operand is rescaled to match. A duration may be added to
// or subtracted from an epoch time, the result is an epoch time. Vectors
// combine only with vectors in the same frame, except that "*" and "/"
// scale a vector by a scalar. Every incompatibility is reported here. On
// success the expression holds a reference to both operands.
func NewBinary(id string, left Variable, op string, right Variable) (*Binary, error) {
	if _, ok := binaryOps[op]; !ok {
		return nil, errorf(ErrUnknownOp, "binary operator %q", op)
	}
	if left == nil || right == nil || left.Refs() < 1 || right.Refs() < 1 {
		return nil, errorf(ErrReleased, "operand of %s", op)
	}
	for _, v := range []Variable{left, right} {
		if !v.IsNumeric() {
			return nil, errorf(ErrNotNumeric, "operand %s of %s holds %s", v.ID(), op, v.ValType())
		}
	}

	b := &Binary{
		varBase: varBase{
			refCount: refCount{n: 1},
			id:       id,
			kind:     KindBinary,
			vt:       VTDouble,
			vsize:    8,
			extRank:  left.ExtRank(),
		},
		op:     op,
		left:   left,
		right:  right,
		lscale: 1,
		rscale: 1,
	}
	if right.ExtRank() > b.extRank {
		b.extRank = right.ExtRank()
	}
	if err := b.checkVectors(); err != nil {
		return nil, report(err, zap.String("op", op))
	}
	if err := b.checkUnits(); err != nil {
		return nil, report(err, zap.String("op", op))
	}

	left.IncRef()
	right.IncRef()
	return b, nil
}

// checkVectors settles the result type of operators on vector operands
func (b *Binary) checkVectors() error {
	ltmpl, lframe, lvec := vectorOf(b.left)
	rtmpl, rframe, rvec := vectorOf(b.right)
	b.lvec, b.rvec = lvec, rvec
	same := lvec && rvec && ltmpl.SameFrame(rtmpl) && lframe == rframe

	setVec := func(t GeoVec, frame string) {
		b.vt = VTGeoVec
		b.tmpl = t.withComponents(make([]float64, t.NComp))
		b.frame = frame
		b.vsize = 8 * t.NComp
		b.intRank = 1
	}

	switch b.op {
	case "+", "-":
		if lvec != rvec {
			return wrapf(ErrIncompatibleFrames, "%s mixes a vector and a scalar", b.op)
		}
		if lvec {
			if !same {
				return wrapf(ErrIncompatibleFrames, "%s of vectors in %s and %s", b.op, lframe, rframe)
			}
			setVec(ltmpl, lframe)
		}
	case "*":
		if lvec && rvec {
			return wrapf(ErrIncompatibleFrames, "vector products need dot or cross")
		}
		if lvec {
			setVec(ltmpl, lframe)
		} else if rvec {
			setVec(rtmpl, rframe)
		}
	case "/":
		if rvec {
			return wrapf(ErrIncompatibleFrames, "can't divide by a vector")
		}
		if lvec {
			setVec(ltmpl, lframe)
		}
	case "pow":
		if lvec || rvec {
			return wrapf(ErrNotNumeric, "pow needs scalar operands")
		}
	case "dot", "cross":
		if !lvec || !rvec {
			return wrapf(ErrNotNumeric, "%s needs two vectors", b.op)
		}
		if !same {
			return wrapf(ErrIncompatibleFrames, "%s of vectors in %s and %s", b.op, lframe, rframe)
		}
		if b.op == "cross" {
			if ltmpl.NComp != 3 {
				return wrapf(ErrIncompatibleFrames, "cross product of %d component vectors", ltmpl.NComp)
			}
			setVec(ltmpl, lframe)
		}
	}
	return nil
}

// checkUnits settles the result units and operand scale factors
func (b *Binary) checkUnits() error {
	lu, ru := b.left.Units(), b.right.Units()
	for _, u := range []Units{lu, ru} {
		if err := u.Valid(); err != nil {
			return err
		}
	}
	switch b.op {
	case "+", "-":
		switch {
		case lu.IsEpoch() && ru.IsEpoch():
			return wrapf(ErrIncompatibleUnits, "epoch times %q and %q can't be combined", lu, ru)
		case lu.IsEpoch():
			f, err := ConversionFactor(ru, lu.Interval())
			if err != nil {
				return err
			}
			b.rscale, b.units = f, lu
		case ru.IsEpoch():
			if b.op == "-" {
				return wrapf(ErrIncompatibleUnits, "can't subtract epoch time %q from %q", ru, lu)
			}
			f, err := ConversionFactor(lu, ru.Interval())
			if err != nil {
				return err
			}
			b.lscale, b.units = f, ru
		default:
			f, err := ConversionFactor(lu, ru)
			if err != nil {
				return err
			}
			b.lscale, b.units = f, ru
		}
	case "*", "dot", "cross":
		if lu.IsEpoch() || ru.IsEpoch() {
			return wrapf(ErrIncompatibleUnits, "epoch times can't be multiplied")
		}
		b.units = lu.Mul(ru)
	case "/":
		if lu.IsEpoch() || ru.IsEpoch() {
			return wrapf(ErrIncompatibleUnits, "epoch times can't be divided")
		}
		b.units = lu.Div(ru)
	case "pow":
		if !lu.IsDimensionless() || !ru.IsDimensionless() {
			return wrapf(ErrIncompatibleUnits, "pow needs dimensionless operands, got %q and %q", lu, ru)
		}
		var err error
		if b.lscale, err = ConversionFactor(lu, Dimensionless); err != nil {
			return err
		}
		if b.rscale, err = ConversionFactor(ru, Dimensionless); err != nil {
			return err
		}
		b.units = Dimensionless
	}
	return nil
}

// Op is the operator symbol
func (b *Binary) Op() string { return b.op }

// Left and Right are the operands
func (b *Binary) Left() Variable  { return b.left }
func (b *Binary) Right() Variable { return b.right }

// opExtent reads an operand's extent for dimension d, dimensions past the
// operand's rank are unused
func opExtent(v Variable, shape []Extent, d int) Extent {
	if d < v.ExtRank() {
		return shape[d]
	}
	return ExtUnused
}

func (b *Binary) Shape() []Extent {
	ls, rs := b.left.Shape(), b.right.Shape()
	out := make([]Extent, b.extRank)
	for d := range out {
		out[d] = mergeExtent(opExtent(b.left, ls, d), opExtent(b.right, rs, d))
	}
	return out
}

func (b *Binary) IntrShape() []Extent {
	if b.vt == VTGeoVec {
		return []Extent{Extent(b.tmpl.NComp)}
	}
	return nil
}

func (b *Binary) Degenerate(d int) bool {
	return b.left.Degenerate(d) && b.right.Degenerate(d)
}

func (b *Binary) LengthIn(loc []int) Extent {
	if len(loc) >= b.extRank {
		return ExtUnused
	}
	l, r := ExtUnused, ExtUnused
	if len(loc) < b.left.ExtRank() {
		l = b.left.LengthIn(loc)
	}
	if len(loc) < b.right.ExtRank() {
		r = b.right.LengthIn(loc)
	}
	return mergeExtent(l, r)
}

// operand reads one side and converts it to scaled components
func operand(v Variable, loc []int, scale float64) (vals []float64, fill, ok bool) {
	d, ok := v.Get(loc)
	if !ok {
		return nil, false, false
	}
	if v.IsFill(d) {
		return nil, true, true
	}
	if vec, isVec := d.Vector(); isVec {
		return vecScale(scale, vec.Components()), false, true
	}
	x, ok := d.Float64()
	if !ok {
		return nil, false, false
	}
	return []float64{x * scale}, false, true
}

func (b *Binary) nanResult() Datum {
	if b.vt == VTGeoVec {
		comps := make([]float64, b.tmpl.NComp)
		for i := range comps {
			comps[i] = math.NaN()
		}
		return VectorDatum(b.tmpl.withComponents(comps), b.units)
	}
	return Float64Datum(math.NaN(), b.units)
}

func (b *Binary) Get(loc []int) (Datum, bool) {
	if !locOK(loc, b.extRank) {
		return Datum{}, false
	}
	l, lfill, ok := operand(b.left, loc, b.lscale)
	if !ok {
		return Datum{}, false
	}
	r, rfill, ok := operand(b.right, loc, b.rscale)
	if !ok {
		return Datum{}, false
	}
	if lfill || rfill {
		return b.nanResult(), true
	}

	var vec []float64
	var x float64
	switch {
	case b.op == "dot":
		x = vecDot(l, r)
	case b.op == "cross":
		vec = vecCross(l, r)
	case b.lvec && b.rvec:
		if b.op == "+" {
			vec = vecAdd(l, r)
		} else {
			vec = vecSub(l, r)
		}
	case b.lvec:
		if b.op == "*" {
			vec = vecScale(r[0], l)
		} else {
			vec = vecScale(1/r[0], l)
		}
	case b.rvec:
		vec = vecScale(l[0], r)
	default:
		x = scalarOp(b.op, l[0], r[0])
	}
	if vec != nil {
		return VectorDatum(b.tmpl.withComponents(vec), b.units), true
	}
	return Float64Datum(x, b.units), true
}

func scalarOp(op string, l, r float64) float64 {
	switch op {
	case "+":
		return l + r
	case "-":
		return l - r
	case "*":
		return l * r
	case "/":
		return l / r
	case "pow":
		return math.Pow(l, r)
	}
	return math.NaN()
}

// IsFill reports NaN results, operands that are fill produce NaN
func (b *Binary) IsFill(d Datum) bool { return isNaNDatum(d) }

func (b *Binary) IsNumeric() bool { return true }

func (b *Binary) Subset(min, max []int) (*Array, error) {
	return subsetByGet(b, min, max)
}

func (b *Binary) Expression(flags ExprFlags) string {
	core := "(" + operandText(b.left, flags) + " " + b.op + " " + operandText(b.right, flags) + ")"
	intr := ""
	if b.vt == VTGeoVec {
		intr = frameText(b.frame, b.tmpl)
	}
	return decorate(b, core, flags, intr)
}

func (b *Binary) Copy() Variable {
	c := *b
	c.varBase = b.varBase.clone()
	b.left.IncRef()
	b.right.IncRef()
	return &c
}

// Release drops a reference, the last one releases both operands
func (b *Binary) Release() int {
	n, freed := b.dec("binary " + b.op)
	if freed {
		b.left.Release()
		b.right.Release()
	}
	return n
}
