package das

import "go.uber.org/zap"

// Constant returns the same datum at every location. It depends on no
// dimension and so combines with variables of any shape.
type Constant struct {
	varBase
	d     Datum
	frame string
}

var _ Variable = (*Constant)(nil)

// NewConstant wraps a datum. Units that don't parse are reported, and any
// expression built over the constant is refused.
func NewConstant(id string, d Datum) *Constant {
	if err := d.units.Valid(); err != nil {
		report(err, zap.String("constant", id))
	}
	c := &Constant{
		varBase: varBase{
			refCount: refCount{n: 1},
			id:       id,
			kind:     KindConstant,
			vt:       d.vt,
			vsize:    d.size,
			units:    d.units,
		},
		d: d,
	}
	if !d.vt.IsSimple() {
		c.intRank = 1
	}
	return c
}

// NewVectorConstant wraps a vector datum along with its frame name so it
// can be combined with vector variables in that frame
func NewVectorConstant(id, frame string, vec GeoVec, units Units) *Constant {
	c := NewConstant(id, VectorDatum(vec, units))
	c.frame = frame
	return c
}

// Datum is the wrapped value
func (c *Constant) Datum() Datum { return c.d }

func (c *Constant) Shape() []Extent { return []Extent{} }

func (c *Constant) IntrShape() []Extent {
	switch c.vt {
	case VTGeoVec:
		return []Extent{Extent(c.d.vec.NComp)}
	case VTText, VTByteSeq:
		return []Extent{Extent(c.d.size)}
	}
	return nil
}

func (c *Constant) Degenerate(int) bool     { return true }
func (c *Constant) LengthIn([]int) Extent   { return ExtFunc }
func (c *Constant) Get([]int) (Datum, bool) { return c.d, true }
func (c *Constant) IsFill(Datum) bool       { return false }
func (c *Constant) IsNumeric() bool         { return c.vt.IsNumeric() || c.vt == VTGeoVec }
func (c *Constant) Subset(min, max []int) (*Array, error) {
	return subsetByGet(c, min, max)
}

func (c *Constant) Expression(flags ExprFlags) string {
	d := c.d
	d.units = Dimensionless
	core := d.String()
	if c.vt == VTText {
		core = `"` + core + `"`
	}
	intr := ""
	if c.vt == VTGeoVec {
		intr = frameText(c.frame, c.d.vec)
	}
	return decorate(c, core, flags, intr)
}

func (c *Constant) Copy() Variable {
	cp := *c
	cp.varBase = c.varBase.clone()
	return &cp
}

func (c *Constant) Release() int {
	n, _ := c.dec("constant " + c.id)
	return n
}
