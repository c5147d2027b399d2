package das

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ctessum/unit"
)

// Units is a physical unit expression such as "km", "V**2 m**-2 Hz**-1" or
// "km/s". Terms are separated by spaces, powers are written with "**" or "^"
// and a "/" inverts every term that follows it. Epoch units ("t2000",
// "us2000", "t1970", "mj1958") describe instants rather than durations and
// must stand alone.
type Units string

// Dimensionless is the empty unit
const Dimensionless Units = ""

type unitDef struct {
	scale float64
	dims  unit.Dimensions
	// epoch units carry the units of their tick size
	epoch    bool
	interval Units
}

var (
	dimLength = unit.Dimensions{unit.LengthDim: 1}
	dimTime   = unit.Dimensions{unit.TimeDim: 1}
	dimFreq   = unit.Dimensions{unit.TimeDim: -1}
	dimMass   = unit.Dimensions{unit.MassDim: 1}
	dimAngle  = unit.Dimensions{unit.AngleDim: 1}
	dimVolt   = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -3, unit.CurrentDim: -1}
	dimWatt   = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -3}
	dimJoule  = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -2}
	dimTesla  = unit.Dimensions{unit.MassDim: 1, unit.TimeDim: -2, unit.CurrentDim: -1}
)

var unitTable = map[string]unitDef{
	"m":   {scale: 1, dims: dimLength},
	"km":  {scale: 1e3, dims: dimLength},
	"cm":  {scale: 1e-2, dims: dimLength},
	"mm":  {scale: 1e-3, dims: dimLength},
	"s":   {scale: 1, dims: dimTime},
	"ms":  {scale: 1e-3, dims: dimTime},
	"μs":  {scale: 1e-6, dims: dimTime},
	"us":  {scale: 1e-6, dims: dimTime},
	"ns":  {scale: 1e-9, dims: dimTime},
	"min": {scale: 60, dims: dimTime},
	"h":   {scale: 3600, dims: dimTime},
	"day": {scale: 86400, dims: dimTime},
	"Hz":  {scale: 1, dims: dimFreq},
	"kHz": {scale: 1e3, dims: dimFreq},
	"MHz": {scale: 1e6, dims: dimFreq},
	"g":   {scale: 1e-3, dims: dimMass},
	"kg":  {scale: 1, dims: dimMass},
	"A":   {scale: 1, dims: unit.Dimensions{unit.CurrentDim: 1}},
	"K":   {scale: 1, dims: unit.Dimensions{unit.TemperatureDim: 1}},
	"V":   {scale: 1, dims: dimVolt},
	"mV":  {scale: 1e-3, dims: dimVolt},
	"W":   {scale: 1, dims: dimWatt},
	"J":   {scale: 1, dims: dimJoule},
	"eV":  {scale: 1.602176634e-19, dims: dimJoule},
	"nT":  {scale: 1e-9, dims: dimTesla},
	"rad": {scale: 1, dims: dimAngle},
	"deg": {scale: math.Pi / 180, dims: dimAngle},

	"t2000":  {scale: 1, dims: dimTime, epoch: true, interval: "s"},
	"t1970":  {scale: 1, dims: dimTime, epoch: true, interval: "s"},
	"us2000": {scale: 1e-6, dims: dimTime, epoch: true, interval: "μs"},
	"mj1958": {scale: 86400, dims: dimTime, epoch: true, interval: "day"},
}

type unitTerm struct {
	sym string
	pow int
}

func (u Units) terms() ([]unitTerm, error) {
	var out []unitTerm
	sign := 1
	for _, field := range strings.Fields(string(u)) {
		parts := strings.Split(field, "/")
		for i, p := range parts {
			if i > 0 {
				sign = -1
			}
			if p == "" {
				continue
			}
			t, err := parseTerm(p)
			if err != nil {
				return nil, err
			}
			t.pow *= sign
			out = mergeTerm(out, t)
		}
	}
	return out, nil
}

func parseTerm(s string) (unitTerm, error) {
	t := unitTerm{sym: s, pow: 1}
	var powStr string
	if i := strings.Index(s, "**"); i >= 0 {
		t.sym, powStr = s[:i], s[i+2:]
	} else if i := strings.Index(s, "^"); i >= 0 {
		t.sym, powStr = s[:i], s[i+1:]
	}
	if powStr != "" {
		p, err := strconv.Atoi(powStr)
		if err != nil {
			return t, fmt.Errorf("%w: bad power in %q", ErrIncompatibleUnits, s)
		}
		t.pow = p
	}
	if _, ok := unitTable[t.sym]; !ok {
		return t, fmt.Errorf("%w: unknown unit symbol %q", ErrIncompatibleUnits, t.sym)
	}
	return t, nil
}

func mergeTerm(ts []unitTerm, t unitTerm) []unitTerm {
	for i := range ts {
		if ts[i].sym == t.sym {
			ts[i].pow += t.pow
			if ts[i].pow == 0 {
				return append(ts[:i], ts[i+1:]...)
			}
			return ts
		}
	}
	if t.pow == 0 {
		return ts
	}
	return append(ts, t)
}

func formatTerms(ts []unitTerm) Units {
	strs := make([]string, 0, len(ts))
	for _, t := range ts {
		if t.pow == 1 {
			strs = append(strs, t.sym)
		} else {
			strs = append(strs, fmt.Sprintf("%s**%d", t.sym, t.pow))
		}
	}
	return Units(strings.Join(strs, " "))
}

// resolve reduces u to an SI scale factor and dimensions
func (u Units) resolve() (*unit.Unit, bool, error) {
	ts, err := u.terms()
	if err != nil {
		return nil, false, err
	}
	acc := unit.New(1, unit.Dimensions{})
	epoch := false
	for _, t := range ts {
		def := unitTable[t.sym]
		if def.epoch {
			if len(ts) != 1 || t.pow != 1 {
				return nil, false, fmt.Errorf("%w: epoch unit %s in compound expression %q", ErrIncompatibleUnits, t.sym, u)
			}
			epoch = true
		}
		base := unit.New(def.scale, def.dims)
		for i := 0; i < t.pow; i++ {
			acc = unit.Mul(acc, base)
		}
		for i := 0; i > t.pow; i-- {
			acc = unit.Div(acc, base)
		}
	}
	return acc, epoch, nil
}

// Valid returns an error if u can't be interpreted
func (u Units) Valid() error {
	_, _, err := u.resolve()
	return err
}

// IsEpoch reports whether u marks instants since a fixed time
func (u Units) IsEpoch() bool {
	def, ok := unitTable[strings.TrimSpace(string(u))]
	return ok && def.epoch
}

// Interval gives the duration units of one tick of an epoch unit, other
// units are returned unchanged
func (u Units) Interval() Units {
	if def, ok := unitTable[strings.TrimSpace(string(u))]; ok && def.epoch {
		return def.interval
	}
	return u
}

// IsDimensionless reports whether u has no physical dimension. Unparseable
// units are not dimensionless.
func (u Units) IsDimensionless() bool {
	v, epoch, err := u.resolve()
	return err == nil && !epoch && len(v.Dimensions()) == 0
}

// IsAngle reports whether u measures a plane angle
func (u Units) IsAngle() bool {
	v, epoch, err := u.resolve()
	return err == nil && !epoch && v.Dimensions().Matches(dimAngle)
}

// Convertible reports whether values in u can be rescaled into o. Epoch
// units only convert to themselves.
func (u Units) Convertible(o Units) bool {
	_, err := ConversionFactor(u, o)
	return err == nil
}

// ConversionFactor is the multiplier taking a value in from to a value in to
func ConversionFactor(from, to Units) (float64, error) {
	if from == to {
		return 1, nil
	}
	a, aEpoch, err := from.resolve()
	if err != nil {
		return 0, err
	}
	b, bEpoch, err := to.resolve()
	if err != nil {
		return 0, err
	}
	if aEpoch || bEpoch {
		return 0, fmt.Errorf("%w: can't convert %q to %q", ErrIncompatibleUnits, from, to)
	}
	if !a.Dimensions().Matches(b.Dimensions()) {
		return 0, fmt.Errorf("%w: %q (%s) vs %q (%s)", ErrIncompatibleUnits, from, a.Dimensions(), to, b.Dimensions())
	}
	return a.Value() / b.Value(), nil
}

// Mul gives the units of a product
func (u Units) Mul(o Units) Units {
	a, _ := u.terms()
	b, _ := o.terms()
	for _, t := range b {
		a = mergeTerm(a, t)
	}
	return formatTerms(a)
}

// Div gives the units of a quotient
func (u Units) Div(o Units) Units {
	a, _ := u.terms()
	b, _ := o.terms()
	for _, t := range b {
		a = mergeTerm(a, unitTerm{sym: t.sym, pow: -t.pow})
	}
	return formatTerms(a)
}

// Pow raises every term of u to the n'th power
func (u Units) Pow(n int) Units {
	ts, _ := u.terms()
	if n == 0 {
		return Dimensionless
	}
	for i := range ts {
		ts[i].pow *= n
	}
	return formatTerms(ts)
}

// Root takes the n'th root of u, every term power must be divisible by n
func (u Units) Root(n int) (Units, error) {
	ts, err := u.terms()
	if err != nil {
		return u, err
	}
	for i := range ts {
		if ts[i].pow%n != 0 {
			return u, fmt.Errorf("%w: can't take root %d of %q", ErrIncompatibleUnits, n, u)
		}
		ts[i].pow /= n
	}
	return formatTerms(ts), nil
}
