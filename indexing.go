package das

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// MaxRank is the largest external rank of a variable and the largest rank of
// an array
const MaxRank = 8

// Extent is the reported length of one dimension. Non-negative values are
// lengths, the named constants describe dimensions without a fixed length.
type Extent int

const (
	// ExtUnused marks a dimension the variable doesn't depend on
	ExtUnused Extent = -1
	// ExtRagged marks a dimension whose length depends on other indices
	ExtRagged Extent = -2
	// ExtFunc marks a dimension whose values are generated on demand and
	// have no natural end
	ExtFunc Extent = -3
)

// IsLength reports whether e is an actual length
func (e Extent) IsLength() bool { return e >= 0 }

func (e Extent) String() string {
	switch e {
	case ExtUnused:
		return "-"
	case ExtRagged:
		return "*"
	case ExtFunc:
		return "f"
	}
	return fmt.Sprintf("%d", int(e))
}

// mergeExtent combines the extents two variables report for the same
// dimension. Unused gives way to generated, generated gives way to lengths,
// the shorter of two lengths wins and ragged dominates all lengths.
func mergeExtent(a, b Extent) Extent {
	switch {
	case a == ExtUnused:
		return b
	case b == ExtUnused:
		return a
	case a == ExtFunc:
		return b
	case b == ExtFunc:
		return a
	case a == ExtRagged || b == ExtRagged:
		return ExtRagged
	case a < b:
		return a
	}
	return b
}

// DimKind tags how an external dimension relates to a variable's values
type DimKind uint8

const (
	// DimUnused dimensions don't affect the variable
	DimUnused DimKind = iota
	// DimMapped dimensions index a dimension of a backing array
	DimMapped
	// DimGenerated dimensions drive a computed value
	DimGenerated
)

// DimMap is one entry of an index map
type DimMap struct {
	Kind DimKind
	// Dim is the target array dimension of a DimMapped entry
	Dim int
}

// MapTo maps an external dimension onto array dimension dim
func MapTo(dim int) DimMap { return DimMap{Kind: DimMapped, Dim: dim} }

var (
	// Unused marks a degenerate external dimension
	Unused = DimMap{Kind: DimUnused}
	// Generated marks an external dimension that drives computed values
	Generated = DimMap{Kind: DimGenerated}
)

func (m DimMap) String() string {
	switch m.Kind {
	case DimMapped:
		return fmt.Sprintf("%d", m.Dim)
	case DimGenerated:
		return "gen"
	}
	return "unused"
}

// IndexMap relates each external dimension of a variable to the variable's
// storage. Entries past Rank are always unused.
type IndexMap struct {
	rank int
	dims [MaxRank]DimMap
}

// NewIndexMap builds an index map with one entry per external dimension
func NewIndexMap(dims ...DimMap) (IndexMap, error) {
	var m IndexMap
	if len(dims) < 1 || len(dims) > MaxRank {
		return m, fmt.Errorf("%w: external rank %d, must be 1 to %d", ErrInvalidRank, len(dims), MaxRank)
	}
	m.rank = len(dims)
	copy(m.dims[:], dims)
	return m, nil
}

// IdentityMap maps external dimension i onto array dimension i
func IdentityMap(rank int) IndexMap {
	var m IndexMap
	if rank > MaxRank {
		rank = MaxRank
	}
	m.rank = rank
	for i := 0; i < rank; i++ {
		m.dims[i] = MapTo(i)
	}
	return m
}

// Rank is the number of external dimensions
func (m IndexMap) Rank() int { return m.rank }

// At returns the entry for external dimension d
func (m IndexMap) At(d int) DimMap {
	if d < 0 || d >= m.rank {
		return Unused
	}
	return m.dims[d]
}

// Mapped counts the entries that index a backing array
func (m IndexMap) Mapped() int {
	n := 0
	for _, dm := range m.dims[:m.rank] {
		if dm.Kind == DimMapped {
			n++
		}
	}
	return n
}

// validate checks the map against an array of rank aryRank whose last
// intRank dimensions are internal. Every problem is collected.
func (m IndexMap) validate(aryRank, intRank int) error {
	var err error
	ext := aryRank - intRank
	seen := make(map[int]int, m.rank)
	for d, dm := range m.dims[:m.rank] {
		switch dm.Kind {
		case DimGenerated:
			err = multierr.Append(err, fmt.Errorf("%w: external dimension %d is generated, arrays only map or skip", ErrBadIndexMap, d))
		case DimMapped:
			if dm.Dim < 0 || dm.Dim >= ext {
				err = multierr.Append(err, fmt.Errorf("%w: external dimension %d maps to array dimension %d, array has %d external dimensions", ErrBadIndexMap, d, dm.Dim, ext))
			}
			if prev, ok := seen[dm.Dim]; ok {
				err = multierr.Append(err, fmt.Errorf("%w: external dimensions %d and %d both map to array dimension %d", ErrBadIndexMap, prev, d, dm.Dim))
			}
			seen[dm.Dim] = d
		}
	}
	if n := m.Mapped(); n+intRank != aryRank {
		err = multierr.Append(err, fmt.Errorf("%w: %d mapped dimensions plus internal rank %d doesn't match array rank %d", ErrBadIndexMap, n, intRank, aryRank))
	}
	return err
}

// project copies the mapped entries of an external location into an array
// location. Unused entries are skipped. out must have one slot per mapped
// entry.
func (m IndexMap) project(ext, out []int) {
	for d, dm := range m.dims[:m.rank] {
		if dm.Kind == DimMapped {
			out[dm.Dim] = ext[d]
		}
	}
}

// projectRange converts an external range into an array range
func (m IndexMap) projectRange(min, max []int, amin, amax []int) {
	m.project(min, amin)
	m.project(max, amax)
}

// increasing reports whether mapped entries appear in the same order as the
// array dimensions they target
func (m IndexMap) increasing() bool {
	last := -1
	for _, dm := range m.dims[:m.rank] {
		if dm.Kind != DimMapped {
			continue
		}
		if dm.Dim < last {
			return false
		}
		last = dm.Dim
	}
	return true
}

// letters used to name external dimensions in expressions
const idxLetters = "ijklmnpq"

// brackets renders "[i][j]" for each mapped entry
func (m IndexMap) brackets() string {
	var sb strings.Builder
	for d, dm := range m.dims[:m.rank] {
		if dm.Kind != DimUnused {
			sb.WriteString("[" + idxLetters[d:d+1] + "]")
		}
	}
	return sb.String()
}

func (m IndexMap) String() string {
	strs := make([]string, m.rank)
	for d, dm := range m.dims[:m.rank] {
		strs[d] = fmt.Sprintf("%c:%s", idxLetters[d], dm)
	}
	return "{" + strings.Join(strs, ", ") + "}"
}

// canStride decides whether a copy with fixed strides may walk the array
// range [amin, amax). Once a dimension selects more than one value no later
// dimension may be ragged, otherwise the block would cut through rows of
// differing length. Picking a single row of a ragged table is fine.
func canStride(ragged []bool, amin, amax []int) bool {
	first := -1
	for d := range amin {
		if amax[d]-amin[d] > 1 {
			first = d
			break
		}
	}
	if first < 0 {
		return true
	}
	for d := first + 1; d < len(amin); d++ {
		if ragged[d] {
			return false
		}
	}
	return true
}
