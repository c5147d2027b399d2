package das

import (
	"fmt"
	"math"
	"strings"

	"github.com/ctessum/sparse"
	"go.uber.org/zap"
)

// Usage describes how byte arrays are meant to be read
type Usage uint8

const (
	// UsageNone arrays hold plain numbers
	UsageNone Usage = iota
	// UsageString arrays hold text in their last index
	UsageString
	// UsageSubseq arrays hold opaque byte runs in their last index
	UsageSubseq
)

// Array is the typed, multi-dimensional backing store for variables.
// Storage is row-major over the array's capacity, every dimension after the
// first may be marked ragged in which case each row records its own valid
// length. Positions past a row's length hold the fill value.
//
// Arrays are reference counted. Views created by SubSetIn share memory with
// and hold a reference to their parent.
type Array struct {
	refCount
	id      string
	vt      ValType
	esize   int
	dims    []int
	ragged  []bool
	lens    [][]int
	strides []int
	fill    []byte
	units   Units
	usage   Usage
	data    []byte
	parent  *Array
}

// ArrayOption configures a new array
type ArrayOption func(a *Array) error

// WithFill sets the raw fill value, it must be exactly one element long
func WithFill(raw []byte) ArrayOption {
	return func(a *Array) error {
		if len(raw) != a.esize {
			return fmt.Errorf("%w: fill is %d bytes, elements are %d", ErrUnsupported, len(raw), a.esize)
		}
		a.fill = append([]byte(nil), raw...)
		return nil
	}
}

// WithFillValue sets the fill value from a number
func WithFillValue(v float64) ArrayOption {
	return func(a *Array) error {
		b := make([]byte, a.esize)
		encodeFloat64(a.vt, v, b)
		a.fill = b
		return nil
	}
}

// WithUnits sets the units of the array's values
func WithUnits(u Units) ArrayOption {
	return func(a *Array) error {
		a.units = u
		return u.Valid()
	}
}

// WithUsage marks how byte arrays should be interpreted
func WithUsage(u Usage) ArrayOption {
	return func(a *Array) error {
		if u != UsageNone && a.vt != VTUByte && a.vt != VTByte {
			return fmt.Errorf("%w: usage flags only apply to byte arrays", ErrUnsupported)
		}
		a.usage = u
		return nil
	}
}

// WithRagged marks dimensions whose length varies row by row
func WithRagged(dims ...int) ArrayOption {
	return func(a *Array) error {
		for _, d := range dims {
			if d <= 0 || d >= len(a.dims) {
				return fmt.Errorf("%w: dimension %d of a rank %d array can't be ragged", ErrInvalidRank, d, len(a.dims))
			}
			a.ragged[d] = true
		}
		return nil
	}
}

// NewArray allocates an array of the given capacity with every element set
// to the fill value. Ragged rows start out at full length.
func NewArray(id string, vt ValType, dims []int, opts ...ArrayOption) (*Array, error) {
	if !vt.IsSimple() {
		return nil, errorf(ErrUnsupported, "arrays hold simple types, not %s", vt)
	}
	if len(dims) == 0 || len(dims) > MaxRank {
		return nil, errorf(ErrInvalidRank, "array %s rank %d, must be 1 to %d", id, len(dims), MaxRank)
	}
	for d, n := range dims {
		if n < 0 {
			return nil, errorf(ErrInvalidRank, "array %s dimension %d has negative length", id, d)
		}
	}

	a := &Array{
		id:     id,
		vt:     vt,
		esize:  vt.Size(),
		dims:   append([]int(nil), dims...),
		ragged: make([]bool, len(dims)),
		lens:   make([][]int, len(dims)),
		fill:   defaultFill(vt),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, report(err, zap.String("array", id))
		}
	}

	a.strides = make([]int, len(dims))
	stride := 1
	for d := len(dims) - 1; d >= 0; d-- {
		a.strides[d] = stride
		stride *= dims[d]
	}
	for d := range dims {
		if !a.ragged[d] {
			continue
		}
		lens := make([]int, product(dims[:d]))
		for i := range lens {
			lens[i] = dims[d]
		}
		a.lens[d] = lens
	}

	a.data = make([]byte, product(dims)*a.esize)
	a.fillElements(0, product(dims))
	a.refCount.n = 1
	return a, nil
}

// NewArrayFloat64 builds a dense array from row-major values
func NewArrayFloat64(id string, vt ValType, dims []int, vals []float64, opts ...ArrayOption) (*Array, error) {
	a, err := NewArray(id, vt, dims, opts...)
	if err != nil {
		return nil, err
	}
	if len(vals) > product(dims) {
		return nil, errorf(ErrInvalidRange, "%d values for array %s of size %d", len(vals), id, product(dims))
	}
	for i, v := range vals {
		encodeFloat64(vt, v, a.data[i*a.esize:])
	}
	return a, nil
}

func (a *Array) ID() string          { return a.id }
func (a *Array) ValType() ValType    { return a.vt }
func (a *Array) ElemSize() int       { return a.esize }
func (a *Array) Rank() int           { return len(a.dims) }
func (a *Array) Units() Units        { return a.units }
func (a *Array) Usage() Usage        { return a.usage }
func (a *Array) Fill() []byte        { return a.fill }
func (a *Array) IsRagged(d int) bool { return d >= 0 && d < len(a.ragged) && a.ragged[d] }

// Capacity is the allocated length of each dimension
func (a *Array) Capacity() []int { return append([]int(nil), a.dims...) }

// Strides is the element offset between successive indices of each dimension
func (a *Array) Strides() []int { return append([]int(nil), a.strides...) }

// Bytes exposes the array's storage
func (a *Array) Bytes() []byte { return a.data }

// Shape reports the length of each dimension, ragged dimensions report
// ExtRagged
func (a *Array) Shape() []Extent {
	out := make([]Extent, len(a.dims))
	for d, n := range a.dims {
		if a.ragged[d] {
			out[d] = ExtRagged
		} else {
			out[d] = Extent(n)
		}
	}
	return out
}

// rowIndex is the row-major position of prefix[:d] within dims[:d]
func (a *Array) rowIndex(d int, prefix []int) int {
	idx := 0
	for i := 0; i < d; i++ {
		idx = idx*a.dims[i] + prefix[i]
	}
	return idx
}

func (a *Array) lengthAt(d int, prefix []int) int {
	if !a.ragged[d] {
		return a.dims[d]
	}
	return a.lens[d][a.rowIndex(d, prefix)]
}

func (a *Array) validPrefix(loc []int) bool {
	if len(loc) > len(a.dims) {
		return false
	}
	for d, i := range loc {
		if i < 0 || i >= a.lengthAt(d, loc) {
			return false
		}
	}
	return true
}

// inCapacity checks loc against allocated space only
func (a *Array) inCapacity(loc []int) bool {
	if len(loc) > len(a.dims) {
		return false
	}
	for d, i := range loc {
		if i < 0 || i >= a.dims[d] {
			return false
		}
	}
	return true
}

// ValidAt reports whether loc addresses a defined element
func (a *Array) ValidAt(loc []int) bool {
	return len(loc) == len(a.dims) && a.validPrefix(loc)
}

// LengthIn gives the number of valid indices in dimension len(loc) given
// the preceding indices. Invalid prefixes have length 0.
func (a *Array) LengthIn(loc []int) Extent {
	if len(loc) >= len(a.dims) {
		return ExtUnused
	}
	if !a.validPrefix(loc) {
		return 0
	}
	return Extent(a.lengthAt(len(loc), loc))
}

func (a *Array) offset(loc []int) int {
	off := 0
	for d, i := range loc {
		off += i * a.strides[d]
	}
	return off
}

// blockLen is the number of elements spanned by the dimensions after the
// first n
func (a *Array) blockLen(n int) int {
	if n == 0 {
		return a.dims[0] * a.strides[0]
	}
	return a.strides[n-1]
}

// GetAt returns the bytes of one element, or nil if loc is not valid
func (a *Array) GetAt(loc []int) []byte {
	if !a.ValidAt(loc) {
		return nil
	}
	off := a.offset(loc) * a.esize
	return a.data[off : off+a.esize]
}

// GetIn returns the storage under a partial index along with the number of
// valid elements it holds. For a prefix one short of the rank that is the
// row length, otherwise the full block.
func (a *Array) GetIn(loc []int) ([]byte, int) {
	if len(loc) >= len(a.dims) {
		b := a.GetAt(loc)
		if b == nil {
			return nil, 0
		}
		return b, 1
	}
	if !a.validPrefix(loc) {
		return nil, 0
	}
	off := a.offset(loc)
	block := a.blockLen(len(loc))
	count := block
	if len(loc) == len(a.dims)-1 {
		count = a.lengthAt(len(loc), loc)
	}
	return a.data[off*a.esize : (off+block)*a.esize], count
}

// Float64At converts the element at loc
func (a *Array) Float64At(loc []int) (float64, bool) {
	b := a.GetAt(loc)
	if b == nil {
		return 0, false
	}
	return decodeFloat64(a.vt, b)
}

// Set writes one raw element. Locations past the end of a ragged row are
// rejected, grow the row with SetLengthIn first.
func (a *Array) Set(loc []int, raw []byte) error {
	if !a.ValidAt(loc) {
		return errorf(ErrInvalidLocation, "%v not valid in array %s", loc, a.id)
	}
	if len(raw) != a.esize {
		return errorf(ErrUnsupported, "%d bytes written to %d byte elements", len(raw), a.esize)
	}
	off := a.offset(loc) * a.esize
	copy(a.data[off:off+a.esize], raw)
	return nil
}

// SetFloat64 writes one element from a number
func (a *Array) SetFloat64(loc []int, v float64) error {
	b := make([]byte, a.esize)
	encodeFloat64(a.vt, v, b)
	return a.Set(loc, b)
}

// SetLengthIn changes the length of the ragged row selected by loc.
// Elements dropped from the row are reset to fill.
func (a *Array) SetLengthIn(loc []int, n int) error {
	d := len(loc)
	if d == 0 || d >= len(a.dims) || !a.ragged[d] {
		return errorf(ErrInvalidRank, "dimension %d of array %s is not ragged", d, a.id)
	}
	if !a.inCapacity(loc) {
		return errorf(ErrInvalidLocation, "%v outside array %s capacity %v", loc, a.id, a.dims)
	}
	if n < 0 || n > a.dims[d] {
		return errorf(ErrInvalidRange, "row length %d, capacity is %d", n, a.dims[d])
	}
	row := a.rowIndex(d, loc)
	if old := a.lens[d][row]; n < old {
		base := a.offset(loc)
		a.fillElements(base+n*a.strides[d], (old-n)*a.strides[d])
	}
	a.lens[d][row] = n
	return nil
}

// SetText stores s in the last dimension at loc. Unused trailing space is
// set to fill, ragged rows take the string's length.
func (a *Array) SetText(loc []int, s string) error {
	d := len(loc)
	if d != len(a.dims)-1 || a.esize != 1 {
		return errorf(ErrUnsupported, "text needs a byte array indexed to its last dimension")
	}
	if !a.inCapacity(loc) {
		return errorf(ErrInvalidLocation, "%v outside array %s capacity %v", loc, a.id, a.dims)
	}
	if len(s) > a.dims[d] {
		return errorf(ErrDatumOverflow, "%d bytes of text, row holds %d", len(s), a.dims[d])
	}
	off := a.offset(loc)
	copy(a.data[off:], s)
	a.fillElements(off+len(s), a.dims[d]-len(s))
	if a.ragged[d] {
		a.lens[d][a.rowIndex(d, loc)] = len(s)
	}
	return nil
}

func (a *Array) fillElements(start, count int) {
	for i := start; i < start+count; i++ {
		copy(a.data[i*a.esize:(i+1)*a.esize], a.fill)
	}
}

// SubSetIn creates a view of everything under a partial index without
// copying. The view is rectangular in its first dimension even when that
// dimension is ragged in the parent, the row length becomes its extent.
func (a *Array) SubSetIn(loc []int) (*Array, error) {
	n := len(loc)
	if n >= len(a.dims) {
		return nil, errorf(ErrInvalidRank, "can't make a rank 0 view of array %s", a.id)
	}
	if !a.validPrefix(loc) {
		return nil, errorf(ErrInvalidLocation, "%v is not valid in array %s", loc, a.id)
	}

	v := &Array{
		id:      a.id,
		vt:      a.vt,
		esize:   a.esize,
		dims:    append([]int(nil), a.dims[n:]...),
		ragged:  append([]bool(nil), a.ragged[n:]...),
		lens:    make([][]int, len(a.dims)-n),
		strides: append([]int(nil), a.strides[n:]...),
		fill:    a.fill,
		units:   a.units,
		usage:   a.usage,
		parent:  a,
	}
	if v.ragged[0] {
		v.dims[0] = a.lengthAt(n, loc)
		v.ragged[0] = false
	}

	full := make([]int, len(a.dims))
	copy(full, loc)
	for d := n + 1; d < len(a.dims); d++ {
		if !a.ragged[d] {
			continue
		}
		start := a.rowIndex(d, full)
		v.lens[d-n] = a.lens[d][start : start+product(a.dims[n:d])]
	}

	off := a.offset(loc)
	end := off + v.dims[0]*v.strides[0]
	v.data = a.data[off*a.esize : end*a.esize]
	v.refCount.n = 1
	a.IncRef()
	return v, nil
}

// IncRef adds a reference and returns the new count
func (a *Array) IncRef() int { return a.inc() }

// Release drops a reference. When the last reference goes the array lets go
// of its parent, if it's a view.
func (a *Array) Release() int {
	n, freed := a.dec("array " + a.id)
	if freed {
		if a.parent != nil {
			a.parent.Release()
			a.parent = nil
		}
		a.data = nil
	}
	return n
}

// Dense exports a numeric array as float64 values, invalid positions in
// ragged rows become NaN
func (a *Array) Dense() (*sparse.DenseArray, error) {
	if !a.vt.IsNumeric() || a.usage != UsageNone {
		return nil, errorf(ErrNotNumeric, "array %s holds %s", a.id, a.vt)
	}
	out := sparse.ZerosDense(a.Capacity()...)
	k := 0
	for o := newOdometer(make([]int, len(a.dims)), a.dims); !o.done; o.next() {
		if v, ok := a.Float64At(o.cur); ok {
			out.Elements[k] = v
		} else {
			out.Elements[k] = math.NaN()
		}
		k++
	}
	return out, nil
}

func (a *Array) String() string {
	strs := make([]string, len(a.dims))
	for d, e := range a.Shape() {
		strs[d] = e.String()
	}
	s := fmt.Sprintf("%s[%s] %s", a.id, strings.Join(strs, ","), a.vt)
	if a.units != Dimensionless {
		s += " " + string(a.units)
	}
	return s
}

// refCount is a non-atomic reference counter, callers serialize access
type refCount struct {
	n int
}

func (r *refCount) inc() int {
	r.n++
	return r.n
}

// dec drops one reference, freed is true only on the transition to zero.
// Releasing a dead object is reported and otherwise ignored.
func (r *refCount) dec(what string) (n int, freed bool) {
	if r.n <= 0 {
		report(fmt.Errorf("%w: %s", ErrReleased, what))
		return 0, false
	}
	r.n--
	return r.n, r.n == 0
}

// Refs is the current number of references
func (r *refCount) Refs() int { return r.n }
