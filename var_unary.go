package das

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

type unaryOp struct {
	// render wraps the operand text
	render func(string) string
	eval   func(float64) float64
	// units gives the result units for operand units u
	units func(u Units) (Units, error)
	// pure operators read their operand as a plain number or an angle in
	// radians
	pure bool
}

func sameUnits(u Units) (Units, error) { return u, nil }

func powUnits(n int) func(Units) (Units, error) {
	return func(u Units) (Units, error) { return u.Pow(n), nil }
}

func rootUnits(n int) func(Units) (Units, error) {
	return func(u Units) (Units, error) { return u.Root(n) }
}

func needDimensionless(u Units) (Units, error) {
	if !u.IsDimensionless() {
		return u, fmt.Errorf("%w: %q is not dimensionless", ErrIncompatibleUnits, u)
	}
	return Dimensionless, nil
}

func needAngle(u Units) (Units, error) {
	if !u.IsDimensionless() && !u.IsAngle() {
		return u, fmt.Errorf("%w: %q is not an angle", ErrIncompatibleUnits, u)
	}
	return Dimensionless, nil
}

func suffix(s string) func(string) string { return func(x string) string { return x + s } }
func call(f string) func(string) string   { return func(x string) string { return f + "(" + x + ")" } }

var unaryOps = map[string]unaryOp{
	"-":    {render: func(x string) string { return "-" + x }, eval: func(x float64) float64 { return -x }, units: sameUnits},
	"**2":  {render: suffix("**2"), eval: func(x float64) float64 { return x * x }, units: powUnits(2)},
	"**3":  {render: suffix("**3"), eval: func(x float64) float64 { return x * x * x }, units: powUnits(3)},
	"**-2": {render: suffix("**-2"), eval: func(x float64) float64 { return 1 / (x * x) }, units: powUnits(-2)},
	"**-3": {render: suffix("**-3"), eval: func(x float64) float64 { return 1 / (x * x * x) }, units: powUnits(-3)},
	"ln":   {render: call("ln"), eval: math.Log, units: needDimensionless, pure: true},
	"log":  {render: call("log"), eval: math.Log10, units: needDimensionless, pure: true},
	"sqrt": {render: call("sqrt"), eval: math.Sqrt, units: rootUnits(2)},
	"curt": {render: call("curt"), eval: math.Cbrt, units: rootUnits(3)},
	"sin":  {render: call("sin"), eval: math.Sin, units: needAngle, pure: true},
	"cos":  {render: call("cos"), eval: math.Cos, units: needAngle, pure: true},
	"tan":  {render: call("tan"), eval: math.Tan, units: needAngle, pure: true},
	"norm": {render: call("norm"), eval: math.Abs, units: sameUnits},
}

// Unary applies an operator to each value of another variable on demand
type Unary struct {
	varBase
	opName string
	op     unaryOp
	sub    Variable
	// scale converts operand values before the operator is applied
	scale float64
	tmpl  GeoVec
	frame string
}

var _ Variable = (*Unary)(nil)

// NewUnary builds op(sub). Operators are "-", "**2", "**3", "**-2", "**-3",
// "ln", "log", "sqrt", "curt", "sin", "cos", "tan" and, for vectors only,
// "norm". Vectors may also be negated. Unit problems are reported here,
// never during evaluation. On success the expression holds a reference to
// sub.
func NewUnary(op string, sub Variable) (*Unary, error) {
	uop, ok := unaryOps[op]
	if !ok {
		return nil, errorf(ErrUnknownOp, "unary operator %q", op)
	}
	if sub == nil || sub.Refs() < 1 {
		return nil, errorf(ErrReleased, "operand of %s", op)
	}
	if !sub.IsNumeric() {
		return nil, errorf(ErrNotNumeric, "operand %s of %s holds %s", sub.ID(), op, sub.ValType())
	}
	tmpl, frame, isVec := vectorOf(sub)
	if op == "norm" && !isVec {
		return nil, errorf(ErrNotNumeric, "norm needs a vector operand, %s holds %s", sub.ID(), sub.ValType())
	}
	if isVec && op != "norm" && op != "-" {
		return nil, errorf(ErrNotNumeric, "operator %s needs a scalar operand, %s holds vectors", op, sub.ID())
	}
	if err := sub.Units().Valid(); err != nil {
		return nil, report(err, zap.String("op", op))
	}
	if sub.Units().IsEpoch() {
		return nil, errorf(ErrIncompatibleUnits, "operator %s applied to epoch times %q", op, sub.Units())
	}
	units, err := uop.units(sub.Units())
	if err != nil {
		return nil, report(err, zap.String("op", op))
	}
	scale := 1.0
	if uop.pure {
		// ratios such as km/m still carry a scale
		to := Dimensionless
		if sub.Units().IsAngle() {
			to = "rad"
		}
		if scale, err = ConversionFactor(sub.Units(), to); err != nil {
			return nil, report(err, zap.String("op", op))
		}
	}

	u := &Unary{
		varBase: varBase{
			refCount: refCount{n: 1},
			kind:     KindUnary,
			vt:       VTDouble,
			vsize:    8,
			extRank:  sub.ExtRank(),
			units:    units,
		},
		opName: op,
		op:     uop,
		sub:    sub,
		scale:  scale,
	}
	if isVec && op == "-" {
		u.vt = VTGeoVec
		u.tmpl = tmpl.withComponents(make([]float64, tmpl.NComp))
		u.frame = frame
		u.vsize = 8 * tmpl.NComp
		u.intRank = 1
	}
	sub.IncRef()
	return u, nil
}

// Op is the operator symbol
func (u *Unary) Op() string { return u.opName }

// Operand is the variable the operator applies to
func (u *Unary) Operand() Variable { return u.sub }

func (u *Unary) Shape() []Extent           { return u.sub.Shape() }
func (u *Unary) Degenerate(d int) bool     { return u.sub.Degenerate(d) }
func (u *Unary) LengthIn(loc []int) Extent { return u.sub.LengthIn(loc) }

func (u *Unary) IntrShape() []Extent {
	if u.vt == VTGeoVec {
		return []Extent{Extent(u.tmpl.NComp)}
	}
	return nil
}

func (u *Unary) Get(loc []int) (Datum, bool) {
	d, ok := u.sub.Get(loc)
	if !ok {
		return Datum{}, false
	}
	fill := u.sub.IsFill(d)
	if vec, isVec := d.Vector(); isVec {
		comps := vec.Components()
		if u.opName == "norm" {
			if fill {
				return Float64Datum(math.NaN(), u.units), true
			}
			return Float64Datum(vecNorm(comps), u.units), true
		}
		if fill {
			for i := range comps {
				comps[i] = math.NaN()
			}
			return VectorDatum(u.tmpl.withComponents(comps), u.units), true
		}
		return VectorDatum(u.tmpl.withComponents(vecScale(-1, comps)), u.units), true
	}
	x, ok := d.Float64()
	if !ok {
		return Datum{}, false
	}
	if fill {
		return Float64Datum(math.NaN(), u.units), true
	}
	return Float64Datum(u.op.eval(x*u.scale), u.units), true
}

// IsFill reports NaN results, operands that are fill produce NaN
func (u *Unary) IsFill(d Datum) bool { return isNaNDatum(d) }

func (u *Unary) IsNumeric() bool { return true }

func (u *Unary) Subset(min, max []int) (*Array, error) {
	return subsetByGet(u, min, max)
}

func (u *Unary) Expression(flags ExprFlags) string {
	intr := ""
	if u.vt == VTGeoVec {
		intr = frameText(u.frame, u.tmpl)
	}
	return decorate(u, u.op.render(operandText(u.sub, flags)), flags, intr)
}

func (u *Unary) Copy() Variable {
	c := *u
	c.varBase = u.varBase.clone()
	u.sub.IncRef()
	return &c
}

// Release drops a reference, the last one releases the operand
func (u *Unary) Release() int {
	n, freed := u.dec("unary " + u.opName)
	if freed {
		u.sub.Release()
	}
	return n
}

// isNaNDatum reports NaN scalars and vectors with a NaN component
func isNaNDatum(d Datum) bool {
	if vec, ok := d.Vector(); ok {
		for _, c := range vec.Components() {
			if math.IsNaN(c) {
				return true
			}
		}
		return false
	}
	return d.IsNaN()
}
