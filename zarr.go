package das

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"math"
	"path"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// arrayAttrs is the ".zattrs" document stored next to each array
type arrayAttrs struct {
	ID     string           `json:"id"`
	Units  string           `json:"units,omitempty"`
	Usage  string           `json:"usage,omitempty"`
	Ragged map[string][]int `json:"ragged,omitempty"`
}

var usageNames = map[Usage]string{
	UsageString: "string",
	UsageSubseq: "subseq",
}

func (u Usage) String() string { return usageNames[u] }

func parseUsage(s string) (Usage, error) {
	for u, name := range usageNames {
		if name == s {
			return u, nil
		}
	}
	if s == "" {
		return UsageNone, nil
	}
	return UsageNone, wrapf(ErrUnsupported, "array usage %q", s)
}

func metaKey(p string, mt MetaType) string { return path.Join(p, string(mt)) }

// chunkKey names the only chunk of a rank n array, "0.0" for rank 2
func chunkKey(p string, rank int) string {
	return path.Join(p, strings.TrimSuffix(strings.Repeat("0.", rank), "."))
}

func putJSON(s Sink, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(key, bytes.NewReader(data))
}

// fillJSON converts a raw fill value to its JSON form. 64 bit integers keep
// every digit.
func fillJSON(vt ValType, raw []byte) interface{} {
	switch vt {
	case VTLong:
		return int64(byteOrder.Uint64(raw))
	case VTULong:
		return byteOrder.Uint64(raw)
	}
	v, _ := decodeFloat64(vt, raw)
	switch {
	case math.IsNaN(v):
		return FillValueNaN
	case math.IsInf(v, 1):
		return FillValueInfinity
	case math.IsInf(v, -1):
		return FillValueNegativeInfinity
	}
	return v
}

// fillRaw converts a JSON fill value, decoded with UseNumber, to raw bytes
func fillRaw(vt ValType, val interface{}) ([]byte, error) {
	b := make([]byte, vt.Size())
	switch x := val.(type) {
	case nil:
		return defaultFill(vt), nil
	case string:
		switch x {
		case FillValueNaN:
			encodeFloat64(vt, math.NaN(), b)
		case FillValueInfinity:
			encodeFloat64(vt, math.Inf(1), b)
		case FillValueNegativeInfinity:
			encodeFloat64(vt, math.Inf(-1), b)
		default:
			return nil, wrapf(ErrUnsupported, "fill value %q", x)
		}
	case json.Number:
		switch vt {
		case VTLong:
			i, err := strconv.ParseInt(x.String(), 10, 64)
			if err != nil {
				return nil, err
			}
			byteOrder.PutUint64(b, uint64(i))
		case VTULong:
			u, err := strconv.ParseUint(x.String(), 10, 64)
			if err != nil {
				return nil, err
			}
			byteOrder.PutUint64(b, u)
		default:
			f, err := x.Float64()
			if err != nil {
				return nil, err
			}
			encodeFloat64(vt, f, b)
		}
	default:
		return nil, wrapf(ErrUnsupported, "fill value %v", val)
	}
	return b, nil
}

// newArrayMeta describes a for storage as a single chunk
func newArrayMeta(a *Array, codec *CompressionMeta) (*ArrayMeta, error) {
	dt, err := DtypeOf(a.vt)
	if err != nil {
		return nil, err
	}
	return &ArrayMeta{
		ZarrFormat: ZarrFormat,
		Shape:      a.Capacity(),
		Chunks:     a.Capacity(),
		Dtype:      dt,
		Compressor: codec,
		FillValue:  fillJSON(a.vt, a.fill),
		Order:      "C",
	}, nil
}

func newArrayAttrs(a *Array) arrayAttrs {
	attrs := arrayAttrs{ID: a.id, Units: string(a.units), Usage: a.usage.String()}
	for d := range a.dims {
		if !a.ragged[d] {
			continue
		}
		if attrs.Ragged == nil {
			attrs.Ragged = map[string][]int{}
		}
		attrs.Ragged[strconv.Itoa(d)] = append([]int(nil), a.lens[d][:product(a.dims[:d])]...)
	}
	return attrs
}

// WriteArray stores a under p as a zarr array with a single chunk. codec is
// a zarr compressor id, "zstd" or "gzip", or empty for raw chunks.
func WriteArray(s Sink, p string, a *Array, codec string) error {
	cm, err := NewCompressionMeta(codec)
	if err != nil {
		return report(err)
	}
	_, err = writeArray(s, p, a, cm)
	return err
}

func writeArray(s Sink, p string, a *Array, cm *CompressionMeta) (*ArrayMeta, error) {
	meta, err := newArrayMeta(a, cm)
	if err != nil {
		return nil, report(err, zap.String("path", p))
	}
	if err := putJSON(s, metaKey(p, MTArray), meta); err != nil {
		return nil, err
	}
	if err := putJSON(s, metaKey(p, MTAttributes), newArrayAttrs(a)); err != nil {
		return nil, err
	}
	if len(a.data) == 0 {
		return meta, nil
	}

	buf := &bytes.Buffer{}
	w, err := cm.Compressor(buf)
	if err != nil {
		return nil, report(err, zap.String("path", p))
	}
	if _, err := w.Write(a.data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return meta, s.Put(chunkKey(p, a.Rank()), buf)
}

// ReadArray loads an array written by WriteArray. The caller holds the only
// reference to the result.
func ReadArray(s Store, p string) (*Array, error) {
	meta := &ArrayMeta{}
	if err := getJSON(s, metaKey(p, MTArray), meta); err != nil {
		return nil, err
	}
	attrs := arrayAttrs{}
	if err := getJSON(s, metaKey(p, MTAttributes), &attrs); err != nil {
		return nil, err
	}
	if meta.Order != "" && meta.Order != "C" {
		return nil, errorf(ErrUnsupported, "%s order %q", p, meta.Order)
	}
	vt, err := meta.Dtype.ValType()
	if err != nil {
		return nil, report(err)
	}
	fill, err := fillRaw(vt, meta.FillValue)
	if err != nil {
		return nil, report(err)
	}
	usage, err := parseUsage(attrs.Usage)
	if err != nil {
		return nil, report(err)
	}

	var ragged []int
	for key := range attrs.Ragged {
		d, err := strconv.Atoi(key)
		if err != nil {
			return nil, errorf(ErrUnsupported, "ragged dimension %q", key)
		}
		ragged = append(ragged, d)
	}
	a, err := NewArray(attrs.ID, vt, meta.Shape, WithFill(fill), WithUnits(Units(attrs.Units)), WithUsage(usage), WithRagged(ragged...))
	if err != nil {
		return nil, err
	}
	for _, d := range ragged {
		lens := attrs.Ragged[strconv.Itoa(d)]
		if len(lens) != len(a.lens[d]) {
			a.Release()
			return nil, errorf(ErrInvalidRange, "%s dimension %d has %d row lengths, want %d", p, d, len(lens), len(a.lens[d]))
		}
		copy(a.lens[d], lens)
	}
	if len(a.data) == 0 {
		return a, nil
	}

	f, err := s.Get(chunkKey(p, a.Rank()))
	if err != nil {
		a.Release()
		return nil, err
	}
	defer f.Close()
	r, err := meta.Compressor.Decompressor(f)
	if err != nil {
		a.Release()
		return nil, err
	}
	defer r.Close()
	if _, err := io.ReadFull(r, a.data); err != nil {
		a.Release()
		return nil, fmt.Errorf("reading %s chunk: %w", p, err)
	}
	return a, nil
}

func getJSON(s Store, key string, v interface{}) error {
	f, err := s.Get(key)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := ioutil.ReadAll(f)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}

// ReadConsolidated loads the metadata summary written at the root of an
// encoded variable
func ReadConsolidated(s Store, role string) (*ConsolidatedMetadata, error) {
	cm := &ConsolidatedMetadata{}
	if err := getJSON(s, metaKey(role, MTMetadata), cm); err != nil {
		return nil, err
	}
	return cm, nil
}
