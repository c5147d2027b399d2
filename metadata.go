package das

import (
	"encoding/json"
	"fmt"
)

type MetaType string

const (
	// MTAttributes stores userland metadata keyed by array name
	MTAttributes MetaType = ".zattrs"
	// MTArray is the key for storing metadata on an array store
	MTArray MetaType = ".zarray"
	// MTGroup is the key for storing group definitions on an array store
	MTGroup MetaType = ".zgroup"
	// MTMetadata is the key for composite metadata
	MTMetadata MetaType = ".zmetadata"
)

// ZarrFormat is the storage format version written by this package
const ZarrFormat = 2

type MetaTyper interface {
	MetaType() MetaType
}

var metaTypes = map[MetaType]struct{}{
	MTAttributes: {},
	MTArray:      {},
	MTGroup:      {},
}

// relies on the fact that all keynames are 7 characters long
func KeyMetaType(s string) (mt MetaType, ok bool) {
	if len(s) < 7 {
		return mt, false
	}
	mt = MetaType(s[len(s)-7:])
	_, ok = metaTypes[mt]
	return mt, ok
}

type Attributes map[string]interface{}

func (Attributes) MetaType() MetaType { return MTAttributes }

// Group marks a key prefix holding arrays and other groups. Every encoded
// variable is a group.
type Group struct {
	ZarrFormat int `json:"zarr_format"`
}

func (Group) MetaType() MetaType { return MTGroup }

// ConsolidatedMetadata gathers every metadata document under a variable in
// one place, keyed by path relative to the variable
type ConsolidatedMetadata struct {
	ConsolidatedFormat int                  `json:"zarr_consolidated_format"`
	Metadata           map[string]MetaTyper `json:"metadata"`
}

type consolidatedMetaDecoder struct {
	ConsolidatedFormat int                        `json:"zarr_consolidated_format"`
	Metadata           map[string]json.RawMessage `json:"metadata"`
}

func (m *ConsolidatedMetadata) UnmarshalJSON(d []byte) error {
	cd := consolidatedMetaDecoder{}
	if err := json.Unmarshal(d, &cd); err != nil {
		return err
	}
	cm := ConsolidatedMetadata{
		ConsolidatedFormat: cd.ConsolidatedFormat,
		Metadata:           map[string]MetaTyper{},
	}

	for key, data := range cd.Metadata {
		kt, ok := KeyMetaType(key)
		if !ok {
			return fmt.Errorf("invalid consolidated metadata key: %q", key)
		}

		switch kt {
		case MTArray:
			arr := &ArrayMeta{}
			if err := json.Unmarshal(data, arr); err != nil {
				return fmt.Errorf("reading %q metadata: %w", key, err)
			}
			cm.Metadata[key] = arr
		case MTAttributes:
			attr := Attributes{}
			if err := json.Unmarshal(data, &attr); err != nil {
				return fmt.Errorf("reading %q attributes: %w", key, err)
			}
			cm.Metadata[key] = attr
		case MTGroup:
			grp := Group{}
			if err := json.Unmarshal(data, &grp); err != nil {
				return fmt.Errorf("reading %q group: %w", key, err)
			}
			cm.Metadata[key] = grp
		}
	}

	*m = cm
	return nil
}

// ArrayMeta is the configuration needed to interpret a stored array. It is
// encoded as JSON under the ".zarray" key of the array's path.
type ArrayMeta struct {
	// Version of the storage format, always 2
	ZarrFormat int `json:"zarr_format"`
	// Length of each dimension of the array, ragged dimensions are stored at
	// their capacity
	Shape []int `json:"shape"`
	// Length of each dimension of a chunk, arrays are written as a single
	// chunk so this matches Shape
	Chunks []int `json:"chunks"`
	// Element type as a numpy typestr
	Dtype Dtype `json:"dtype"`
	// Primary compression codec, nil when chunks are stored raw
	Compressor *CompressionMeta `json:"compressor"`

	// Value of uninitialized elements. Numbers are stored as JSON numbers,
	// NaN and the infinities as the strings below.
	FillValue interface{} `json:"fill_value"`
	// "C" for row-major chunk layout. Only "C" is written or read.
	Order string `json:"order"`
	// Codec configurations applied before compression, always empty here
	Filters []Filter `json:"filters"`

	// Separator placed between chunk indices in chunk keys, "." when empty
	DimensionSeparator string `json:"dimension_separator,omitempty"`
}

func (a ArrayMeta) MetaType() MetaType { return MTArray }

type Filter struct {
	ID     string `json:"id"`
	Dtype  string `json:"dtype,omitempty"`
	AsType string `json:"astype,omitempty"`
}

const (
	// Not a Number
	FillValueNaN = "NaN"
	// Infinity
	FillValueInfinity = "Infinity"
	// -Infinity
	FillValueNegativeInfinity = "-Infinity"
)
