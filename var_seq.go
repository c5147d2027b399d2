package das

import "fmt"

// Sequence generates min + i*interval along one external dimension
type Sequence struct {
	varBase
	dim      int
	min      float64
	interval float64
}

var _ Variable = (*Sequence)(nil)

// NewSequence creates a sequence of type vt varying along external
// dimension dim of an extRank dimensional index space
func NewSequence(id string, vt ValType, min, interval float64, units Units, extRank, dim int) (*Sequence, error) {
	if extRank < 1 || extRank > MaxRank {
		return nil, errorf(ErrInvalidRank, "sequence %s external rank %d", id, extRank)
	}
	if dim < 0 || dim >= extRank {
		return nil, errorf(ErrBadIndexMap, "sequence %s dimension %d outside rank %d", id, dim, extRank)
	}
	if !vt.IsNumeric() {
		return nil, errorf(ErrNotNumeric, "sequence %s of %s", id, vt)
	}
	if err := units.Valid(); err != nil {
		return nil, report(err)
	}
	return &Sequence{
		varBase: varBase{
			refCount: refCount{n: 1},
			id:       id,
			kind:     KindSequence,
			vt:       vt,
			vsize:    vt.Size(),
			extRank:  extRank,
			units:    units,
		},
		dim:      dim,
		min:      min,
		interval: interval,
	}, nil
}

func (s *Sequence) Min() float64      { return s.min }
func (s *Sequence) Interval() float64 { return s.interval }

// Dim is the external dimension driving the sequence
func (s *Sequence) Dim() int { return s.dim }

func (s *Sequence) Shape() []Extent {
	out := make([]Extent, s.extRank)
	for d := range out {
		out[d] = ExtUnused
	}
	out[s.dim] = ExtFunc
	return out
}

func (s *Sequence) IntrShape() []Extent { return nil }

func (s *Sequence) Degenerate(d int) bool { return d != s.dim }

func (s *Sequence) LengthIn(loc []int) Extent {
	if len(loc) == s.dim {
		return ExtFunc
	}
	return ExtUnused
}

func (s *Sequence) Get(loc []int) (Datum, bool) {
	if !locOK(loc, s.extRank) || loc[s.dim] < 0 {
		return Datum{}, false
	}
	var buf [8]byte
	encodeFloat64(s.vt, s.min+float64(loc[s.dim])*s.interval, buf[:])
	d, err := NewDatum(s.vt, buf[:], s.units)
	return d, err == nil
}

func (s *Sequence) IsFill(Datum) bool { return false }
func (s *Sequence) IsNumeric() bool   { return true }

func (s *Sequence) Subset(min, max []int) (*Array, error) {
	return subsetByGet(s, min, max)
}

func (s *Sequence) Expression(flags ExprFlags) string {
	core := fmt.Sprintf("%s[%c]", s.id, idxLetters[s.dim])
	if s.id == "" {
		core = fmt.Sprintf("(%g + %g*%c)", s.min, s.interval, idxLetters[s.dim])
	}
	return decorate(s, core, flags, "")
}

func (s *Sequence) Copy() Variable {
	c := *s
	c.varBase = s.varBase.clone()
	return &c
}

func (s *Sequence) Release() int {
	n, _ := s.dec("sequence " + s.id)
	return n
}
