package das

import (
	"path"

	"go.uber.org/zap"
)

// Encoder writes variables to a Sink. Each variable becomes a group under
// its role holding a ".zattrs" description, array backed variables add
// their array under "values" and expressions nest their operands under
// "operand", "left" and "right". A ".zmetadata" document at the role
// consolidates every description written.
type Encoder struct {
	Sink Sink
	// Compressor is the zarr codec id for array chunks: "zstd", "gzip", or
	// empty for raw chunks
	Compressor string
}

// Encode writes v under role with zstd compressed arrays
func Encode(v Variable, role string, s Sink) error {
	e := &Encoder{Sink: s, Compressor: "zstd"}
	return e.Encode(v, role)
}

// Encode writes v under role
func (e *Encoder) Encode(v Variable, role string) error {
	cm, err := NewCompressionMeta(e.Compressor)
	if err != nil {
		return report(err)
	}
	meta := map[string]MetaTyper{}
	if err := e.encode(v, role, "", cm, meta); err != nil {
		return report(err, zap.String("role", role))
	}
	return putJSON(e.Sink, metaKey(role, MTMetadata), ConsolidatedMetadata{
		ConsolidatedFormat: 1,
		Metadata:           meta,
	})
}

func (e *Encoder) encode(v Variable, root, rel string, cm *CompressionMeta, meta map[string]MetaTyper) error {
	p := path.Join(root, rel)
	attrs := Attributes{
		"kind":       v.Kind().String(),
		"id":         v.ID(),
		"type":       v.ValType().String(),
		"units":      string(v.Units()),
		"ext_rank":   v.ExtRank(),
		"int_rank":   v.IntRank(),
		"shape":      shapeStrings(v.Shape()),
		"expression": v.Expression(ExpUnits | ExpRange),
	}

	var err error
	switch t := v.(type) {
	case *GeoVectorView:
		attrs["index_map"] = t.imap.String()
		attrs["frame"] = t.frame
		attrs["frame_id"] = t.tmpl.Frame
		attrs["system"] = t.tmpl.System
		dirs := make([]int, t.tmpl.NComp)
		for i := range dirs {
			dirs[i] = int(t.tmpl.Dirs[i])
		}
		attrs["dirs"] = dirs
		err = e.encodeArray(t.ary, root, path.Join(rel, "values"), cm, meta)
	case *ArrayView:
		attrs["index_map"] = t.imap.String()
		err = e.encodeArray(t.ary, root, path.Join(rel, "values"), cm, meta)
	case *Sequence:
		attrs["min"] = t.min
		attrs["interval"] = t.interval
		attrs["dim"] = t.dim
	case *Constant:
		attrs["value"] = t.d.String()
	case *Unary:
		attrs["op"] = t.opName
		err = e.encode(t.sub, root, path.Join(rel, "operand"), cm, meta)
	case *Binary:
		attrs["op"] = t.op
		if err = e.encode(t.left, root, path.Join(rel, "left"), cm, meta); err == nil {
			err = e.encode(t.right, root, path.Join(rel, "right"), cm, meta)
		}
	}
	if err != nil {
		return err
	}

	grp := Group{ZarrFormat: ZarrFormat}
	if err := putJSON(e.Sink, metaKey(p, MTGroup), grp); err != nil {
		return err
	}
	if err := putJSON(e.Sink, metaKey(p, MTAttributes), attrs); err != nil {
		return err
	}
	meta[metaKey(rel, MTGroup)] = grp
	meta[metaKey(rel, MTAttributes)] = attrs
	return nil
}

func (e *Encoder) encodeArray(a *Array, root, rel string, cm *CompressionMeta, meta map[string]MetaTyper) error {
	am, err := writeArray(e.Sink, path.Join(root, rel), a, cm)
	if err != nil {
		return err
	}
	meta[metaKey(rel, MTArray)] = am
	meta[metaKey(rel, MTAttributes)] = arrayAttributes(a)
	return nil
}

// arrayAttributes is the generic form of an array's ".zattrs" document
func arrayAttributes(a *Array) Attributes {
	aa := newArrayAttrs(a)
	attrs := Attributes{"id": aa.ID}
	if aa.Units != "" {
		attrs["units"] = aa.Units
	}
	if aa.Usage != "" {
		attrs["usage"] = aa.Usage
	}
	if aa.Ragged != nil {
		attrs["ragged"] = aa.Ragged
	}
	return attrs
}

func shapeStrings(shape []Extent) []string {
	out := make([]string, len(shape))
	for i, e := range shape {
		out[i] = e.String()
	}
	return out
}
