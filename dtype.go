package das

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValType is the set of element types a variable or array can hold
type ValType uint8

const (
	VTUnknown ValType = iota
	VTByte
	VTUByte
	VTShort
	VTUShort
	VTInt
	VTUInt
	VTLong
	VTULong
	VTFloat
	VTDouble
	// composite types, only produced with an internal index
	VTText
	VTByteSeq
	VTGeoVec
)

var valTypeNames = map[ValType]string{
	VTUnknown: "unknown",
	VTByte:    "byte",
	VTUByte:   "ubyte",
	VTShort:   "short",
	VTUShort:  "ushort",
	VTInt:     "int",
	VTUInt:    "uint",
	VTLong:    "long",
	VTULong:   "ulong",
	VTFloat:   "float",
	VTDouble:  "double",
	VTText:    "text",
	VTByteSeq: "byteseq",
	VTGeoVec:  "geovec",
}

func (vt ValType) String() string {
	if s, ok := valTypeNames[vt]; ok {
		return s
	}
	return fmt.Sprintf("ValType(%d)", uint8(vt))
}

// ParseValType reads a type name as written by ValType.String
func ParseValType(s string) (ValType, error) {
	for vt, name := range valTypeNames {
		if name == s && vt != VTUnknown {
			return vt, nil
		}
	}
	return VTUnknown, fmt.Errorf("%w: value type %q", ErrUnsupported, s)
}

// Size is the storage size of a single element in bytes. Composite types
// report zero, their size depends on the internal extent.
func (vt ValType) Size() int {
	switch vt {
	case VTByte, VTUByte:
		return 1
	case VTShort, VTUShort:
		return 2
	case VTInt, VTUInt, VTFloat:
		return 4
	case VTLong, VTULong, VTDouble:
		return 8
	default:
		return 0
	}
}

// IsSimple reports whether vt is a fixed size scalar type that can back an array
func (vt ValType) IsSimple() bool {
	return vt >= VTByte && vt <= VTDouble
}

// IsNumeric reports whether values of this type convert to float64
func (vt ValType) IsNumeric() bool {
	return vt.IsSimple()
}

// IsFloat reports whether vt is a floating point type
func (vt ValType) IsFloat() bool {
	return vt == VTFloat || vt == VTDouble
}

// all element storage is little endian
var byteOrder = binary.LittleEndian

// decodeFloat64 converts one stored element of type vt to a float64
func decodeFloat64(vt ValType, b []byte) (float64, bool) {
	if len(b) < vt.Size() || !vt.IsSimple() {
		return 0, false
	}
	switch vt {
	case VTByte:
		return float64(int8(b[0])), true
	case VTUByte:
		return float64(b[0]), true
	case VTShort:
		return float64(int16(byteOrder.Uint16(b))), true
	case VTUShort:
		return float64(byteOrder.Uint16(b)), true
	case VTInt:
		return float64(int32(byteOrder.Uint32(b))), true
	case VTUInt:
		return float64(byteOrder.Uint32(b)), true
	case VTLong:
		return float64(int64(byteOrder.Uint64(b))), true
	case VTULong:
		return float64(byteOrder.Uint64(b)), true
	case VTFloat:
		return float64(math.Float32frombits(byteOrder.Uint32(b))), true
	case VTDouble:
		return math.Float64frombits(byteOrder.Uint64(b)), true
	}
	return 0, false
}

// encodeFloat64 writes v into b using the storage layout of vt. Integer
// types truncate toward zero.
func encodeFloat64(vt ValType, v float64, b []byte) bool {
	if len(b) < vt.Size() || !vt.IsSimple() {
		return false
	}
	switch vt {
	case VTByte:
		b[0] = byte(int8(v))
	case VTUByte:
		b[0] = byte(v)
	case VTShort:
		byteOrder.PutUint16(b, uint16(int16(v)))
	case VTUShort:
		byteOrder.PutUint16(b, uint16(v))
	case VTInt:
		byteOrder.PutUint32(b, uint32(int32(v)))
	case VTUInt:
		byteOrder.PutUint32(b, uint32(v))
	case VTLong:
		byteOrder.PutUint64(b, uint64(int64(v)))
	case VTULong:
		byteOrder.PutUint64(b, uint64(v))
	case VTFloat:
		byteOrder.PutUint32(b, math.Float32bits(float32(v)))
	case VTDouble:
		byteOrder.PutUint64(b, math.Float64bits(v))
	}
	return true
}

// defaultFill is the "no data" value used when an array doesn't declare one
func defaultFill(vt ValType) []byte {
	b := make([]byte, vt.Size())
	switch vt {
	case VTByte:
		b[0] = 0x80
	case VTUByte:
		// zero bytes double as string terminators
	case VTShort:
		byteOrder.PutUint16(b, uint16(0x8000))
	case VTUShort:
		byteOrder.PutUint16(b, math.MaxUint16)
	case VTInt:
		byteOrder.PutUint32(b, uint32(0x80000000))
	case VTUInt:
		byteOrder.PutUint32(b, math.MaxUint32)
	case VTLong:
		byteOrder.PutUint64(b, uint64(1)<<63)
	case VTULong:
		byteOrder.PutUint64(b, math.MaxUint64)
	case VTFloat, VTDouble:
		encodeFloat64(vt, math.NaN(), b)
	}
	return b
}

// Dtype is the set of all zarr data types
// Simple data types as a string following the NumPy array protocol type string
// (typestr) format. The format consists of 3 parts:
//  * One character describing the byteorder of the data:
//    "<": little-endian; ">": big-endian; "|": not-relevant)
//  * One character code giving the basic type of the array:
//    * "b": Boolean (integer type where all values are only True or False)
//    * "i": integer;
//    * "u": unsigned integer
//    * "f": floating point
//    * "S": string (fixed-length sequence of char)
//    * "V": other (void * – each item is a fixed-size chunk of memory))
//  * An integer specifying the number of bytes the type uses.
//
// Arrays are only ever written little endian, big endian dtypes are rejected
// on read.
type Dtype struct {
	ByteOrder ByteOrder
	BasicType BasicType
	ByteSize  int
	Units     string
}

var (
	_ json.Unmarshaler = (*Dtype)(nil)
	_ json.Marshaler   = (*Dtype)(nil)
)

func ParseDtype(s string) (dt Dtype, err error) {
	// bug in python implementation uses HTML escape sequences when serializaing JSON
	s = strings.Replace(s, "&lt;", "<", 1)
	s = strings.Replace(s, "&gt;", ">", 1)

	if len(s) < 3 {
		return dt, fmt.Errorf("invalid Dtype string. %q is too short", s)
	}

	boByte, s := s[0], s[1:]
	dt.ByteOrder, err = ParseByteOrder(rune(boByte))
	if err != nil {
		return dt, err
	}

	typeByte, s := s[0], s[1:]
	dt.BasicType, err = ParseBasicType(rune(typeByte))
	if err != nil {
		return dt, err
	}

	var sizeStr, unitStr string
	for i, b := range s {
		if b == '[' {
			unitStr = s[i:]
			break
		}
		sizeStr += string(b)
	}

	size, err := strconv.ParseInt(sizeStr, 10, 0)
	if err != nil {
		return dt, err
	}
	dt.ByteSize = int(size)
	dt.Units = unitStr

	return dt, nil
}

// DtypeOf returns the typestr describing storage of vt
func DtypeOf(vt ValType) (Dtype, error) {
	dt := Dtype{ByteOrder: BOLittleEndian, ByteSize: vt.Size()}
	switch vt {
	case VTByte, VTShort, VTInt, VTLong:
		dt.BasicType = BTInteger
	case VTUByte, VTUShort, VTUInt, VTULong:
		dt.BasicType = BTUnsigned
	case VTFloat, VTDouble:
		dt.BasicType = BTFloatingPoint
	default:
		return dt, fmt.Errorf("%w: no dtype for value type %s", ErrUnsupported, vt)
	}
	if dt.ByteSize == 1 {
		dt.ByteOrder = BONotRelevant
	}
	return dt, nil
}

// ValType maps a typestr onto an element type
func (dt Dtype) ValType() (ValType, error) {
	if dt.ByteOrder == BOBigEndian && dt.ByteSize > 1 {
		return VTUnknown, fmt.Errorf("%w: big endian dtype %s", ErrUnsupported, dt)
	}
	switch dt.BasicType {
	case BTInteger:
		switch dt.ByteSize {
		case 1:
			return VTByte, nil
		case 2:
			return VTShort, nil
		case 4:
			return VTInt, nil
		case 8:
			return VTLong, nil
		}
	case BTUnsigned, BTBoolean:
		switch dt.ByteSize {
		case 1:
			return VTUByte, nil
		case 2:
			return VTUShort, nil
		case 4:
			return VTUInt, nil
		case 8:
			return VTULong, nil
		}
	case BTFloatingPoint:
		switch dt.ByteSize {
		case 4:
			return VTFloat, nil
		case 8:
			return VTDouble, nil
		}
	case BTString, BTOther:
		if dt.ByteSize == 1 {
			return VTUByte, nil
		}
	}
	return VTUnknown, fmt.Errorf("%w: no %d byte %s type for dtype %s", ErrUnsupported, dt.ByteSize, dt.BasicType.Human(), dt)
}

func (dt Dtype) String() string {
	s := fmt.Sprintf("%s%s%d", string(dt.ByteOrder), string(dt.BasicType), dt.ByteSize)
	if dt.Units != "" {
		s += dt.Units
	}
	return s
}

func (dt Dtype) MarshalJSON() ([]byte, error) {
	return []byte(`"` + dt.String() + `"`), nil
}

func (dt *Dtype) UnmarshalJSON(d []byte) error {
	var s string
	if err := json.Unmarshal(d, &s); err != nil {
		return err
	}
	t, err := ParseDtype(s)
	if err != nil {
		return err
	}

	*dt = t
	return nil
}

type ByteOrder rune

func ParseByteOrder(r rune) (ByteOrder, error) {
	o := ByteOrder(r)
	if _, ok := byteOrders[o]; !ok {
		return o, fmt.Errorf("unsupported byte order format: %q", r)
	}
	return o, nil
}

const (
	BONotRelevant  ByteOrder = '|'
	BOLittleEndian ByteOrder = '<'
	BOBigEndian    ByteOrder = '>'
)

var byteOrders = map[ByteOrder]struct{}{
	BONotRelevant:  {},
	BOLittleEndian: {},
	BOBigEndian:    {},
}

type BasicType rune

func ParseBasicType(r rune) (BasicType, error) {
	t := BasicType(r)
	if _, ok := supportedBasicTypes[t]; !ok {
		return t, fmt.Errorf("unsupported basic type: %q", r)
	}
	return t, nil
}

func (bt BasicType) Human() string {
	return supportedBasicTypes[bt]
}

const (
	BTBoolean       BasicType = 'b'
	BTInteger       BasicType = 'i'
	BTUnsigned      BasicType = 'u'
	BTFloatingPoint BasicType = 'f'
	BTString        BasicType = 'S'
	BTOther         BasicType = 'V'
)

var supportedBasicTypes = map[BasicType]string{
	BTBoolean:       "bool",
	BTInteger:       "int",
	BTUnsigned:      "uint",
	BTFloatingPoint: "float",
	BTString:        "string",
	BTOther:         "other",
}
