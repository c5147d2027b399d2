package das

import (
	"fmt"
	"strings"
)

// Kind identifies the variant behind a Variable
type Kind uint8

const (
	KindConstant Kind = iota + 1
	KindSequence
	KindArray
	KindGeoVector
	KindUnary
	KindBinary
)

var kindNames = map[Kind]string{
	KindConstant:  "constant",
	KindSequence:  "sequence",
	KindArray:     "array",
	KindGeoVector: "geovector",
	KindUnary:     "unary",
	KindBinary:    "binary",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ExprFlags select the detail included by Variable.Expression
type ExprFlags uint

const (
	// ExpUnits appends the units
	ExpUnits ExprFlags = 0x02
	// ExpRange appends the valid range of every index
	ExpRange ExprFlags = 0x04
	// ExpSubex renders operands of expressions with their own units
	ExpSubex ExprFlags = 0x08
	// ExpIntr appends the structure of composite elements
	ExpIntr ExprFlags = 0x10
	// ExpType appends the value type
	ExpType ExprFlags = 0x20
)

// Variable is a lazily evaluated set of values addressed through a shared
// external index space. The set of implementations is closed: arrays, vector
// arrays, sequences, constants and unary or binary expressions over other
// variables.
//
// Variables are reference counted. Constructors return a variable holding
// one reference, Copy adds a descriptor holding its own, Release drops one.
// Counts are not atomic.
type Variable interface {
	ID() string
	Kind() Kind
	// ValType is the type of datum returned by Get
	ValType() ValType
	// ValSize is the byte size of one value
	ValSize() int
	Units() Units
	// ExtRank is the number of external dimensions
	ExtRank() int
	// IntRank is 0 for scalars, 1 for text, byte runs and vectors
	IntRank() int

	// Shape reports the extent of every external dimension
	Shape() []Extent
	// IntrShape reports the extent of internal dimensions
	IntrShape() []Extent
	// Degenerate reports whether the variable ignores external dimension d
	Degenerate(d int) bool
	// LengthIn gives the valid length of dimension len(loc) given the
	// preceding indices
	LengthIn(loc []int) Extent
	// Get reads the value at a full external location
	Get(loc []int) (Datum, bool)
	// IsFill reports whether d is this variable's "no data" value
	IsFill(d Datum) bool
	// IsNumeric reports whether values can be converted to numbers
	IsNumeric() bool
	// Subset materializes the values in [min, max). Dimensions selecting a
	// single value are dropped from the result.
	Subset(min, max []int) (*Array, error)
	// Expression renders the variable as text
	Expression(flags ExprFlags) string

	// Copy returns a new descriptor sharing every owned resource
	Copy() Variable
	IncRef() int
	Release() int
	Refs() int

	base() *varBase
}

// varBase holds the fields every variant shares
type varBase struct {
	refCount
	id      string
	kind    Kind
	vt      ValType
	vsize   int
	extRank int
	intRank int
	units   Units
}

func (b *varBase) base() *varBase   { return b }
func (b *varBase) ID() string       { return b.id }
func (b *varBase) Kind() Kind       { return b.kind }
func (b *varBase) ValType() ValType { return b.vt }
func (b *varBase) ValSize() int     { return b.vsize }
func (b *varBase) Units() Units     { return b.units }
func (b *varBase) ExtRank() int     { return b.extRank }
func (b *varBase) IntRank() int     { return b.intRank }
func (b *varBase) IncRef() int      { return b.inc() }

// clone duplicates the descriptor with a fresh count of one
func (b varBase) clone() varBase {
	b.refCount = refCount{n: 1}
	return b
}

// Orthogonal reports whether two variables depend on disjoint sets of
// external dimensions
func Orthogonal(a, b Variable) bool {
	n := a.ExtRank()
	if b.ExtRank() > n {
		n = b.ExtRank()
	}
	for d := 0; d < n; d++ {
		if !a.Degenerate(d) && !b.Degenerate(d) {
			return false
		}
	}
	return true
}

// locOK checks that loc covers rank dimensions
func locOK(loc []int, rank int) bool {
	return len(loc) >= rank
}

// rangeText renders " | i:0..4, j:0..*" from a shape
func rangeText(shape []Extent) string {
	var strs []string
	for d, e := range shape {
		switch e {
		case ExtUnused:
			continue
		case ExtFunc:
			strs = append(strs, fmt.Sprintf("%c:-", idxLetters[d]))
		case ExtRagged:
			strs = append(strs, fmt.Sprintf("%c:0..*", idxLetters[d]))
		default:
			strs = append(strs, fmt.Sprintf("%c:0..%d", idxLetters[d], e))
		}
	}
	if len(strs) == 0 {
		return ""
	}
	return " | " + strings.Join(strs, ", ")
}

// decorate appends the optional parts of an expression shared by all
// variants. intr describes composite elements and may be empty.
func decorate(v Variable, core string, flags ExprFlags, intr string) string {
	var sb strings.Builder
	sb.WriteString(core)
	if flags&ExpUnits != 0 && v.Units() != Dimensionless {
		sb.WriteString(" " + string(v.Units()))
	}
	if flags&ExpRange != 0 {
		sb.WriteString(rangeText(v.Shape()))
	}
	if flags&ExpIntr != 0 && intr != "" {
		sb.WriteString(" " + intr)
	}
	if flags&ExpType != 0 {
		sb.WriteString(" :" + v.ValType().String())
	}
	return sb.String()
}

// operandText renders a sub expression inside a larger one
func operandText(v Variable, flags ExprFlags) string {
	if flags&ExpSubex != 0 {
		return v.Expression(ExpUnits | ExpSubex)
	}
	return v.Expression(0)
}
