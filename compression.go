package das

import (
	"io"
	"io/ioutil"

	"github.com/qri-io/dataset/compression"
)

// CompressionMeta defines compression settings das-go understands
type CompressionMeta struct {
	ID      string `json:"id"`
	Cname   string `json:"cname,omitempty"`
	Clevel  int    `json:"clevel,omitempty"`
	Shuffle int    `json:"shuffle,omitempty"`
}

// zarr codec ids and the compression formats that implement them
var codecFormats = map[string]string{
	"zstd": "zst",
	"gzip": "gzip",
}

// NewCompressionMeta returns settings for a zarr codec id. An empty id means
// chunks are stored uncompressed and gives a nil result.
func NewCompressionMeta(id string) (*CompressionMeta, error) {
	if id == "" {
		return nil, nil
	}
	if _, ok := codecFormats[id]; !ok {
		return nil, wrapf(ErrUnsupported, "compressor %q", id)
	}
	return &CompressionMeta{ID: id}, nil
}

func (m *CompressionMeta) format() (string, error) {
	f, ok := codecFormats[m.ID]
	if !ok {
		return "", wrapf(ErrUnsupported, "compressor %q", m.ID)
	}
	return f, nil
}

// Decompressor wraps r in a reader undoing m. Nil settings read r as is.
func (m *CompressionMeta) Decompressor(r io.Reader) (io.ReadCloser, error) {
	if m == nil {
		return ioutil.NopCloser(r), nil
	}
	f, err := m.format()
	if err != nil {
		return nil, err
	}
	return compression.Decompressor(f, r)
}

// Compressor wraps w in a writer applying m. Close flushes the compressed
// stream.
func (m *CompressionMeta) Compressor(w io.Writer) (io.WriteCloser, error) {
	if m == nil {
		return nopWriteCloser{w}, nil
	}
	f, err := m.format()
	if err != nil {
		return nil, err
	}
	return compression.Compressor(f, w)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
