package das

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// https://zarr.readthedocs.io/en/stable/spec/v2.html#metadata
const specExample = `{
  "chunks": [
    1000,
    1000
  ],
	"compressor": {
			"id": "blosc",
			"cname": "lz4",
			"clevel": 5,
			"shuffle": 1
	},
	"dtype": "<f8",
	"fill_value": "NaN",
	"filters": [
			{"id": "delta", "dtype": "<f8", "astype": "<f4"}
	],
	"order": "C",
	"shape": [
			10000,
			10000
	],
	"zarr_format": 2
}`

func TestMetadataSerialization(t *testing.T) {
	m := &ArrayMeta{}
	require.NoError(t, json.Unmarshal([]byte(specExample), m))
	assert.Equal(t, []int{10000, 10000}, m.Shape)
	assert.Equal(t, "blosc", m.Compressor.ID)
	assert.Equal(t, 5, m.Compressor.Clevel)
	assert.Equal(t, FillValueNaN, m.FillValue)
	require.Len(t, m.Filters, 1)
	assert.Equal(t, "<f4", m.Filters[0].AsType)

	vt, err := m.Dtype.ValType()
	require.NoError(t, err)
	assert.Equal(t, VTDouble, vt)
	assert.Equal(t, MTArray, m.MetaType())
}

const consolidatedExample = `{
	"zarr_consolidated_format": 1,
	"metadata": {
		".zgroup": {"zarr_format": 2},
		".zattrs": {"kind": "array", "id": "time"},
		"values/.zarray": {
			"zarr_format": 2,
			"shape": [5],
			"chunks": [5],
			"dtype": "<f8",
			"compressor": {"id": "zstd"},
			"fill_value": "NaN",
			"order": "C",
			"filters": null
		}
	}
}`

func TestConsolidatedMetadata(t *testing.T) {
	cm := &ConsolidatedMetadata{}
	require.NoError(t, json.Unmarshal([]byte(consolidatedExample), cm))
	assert.Equal(t, 1, cm.ConsolidatedFormat)
	require.Len(t, cm.Metadata, 3)
	assert.Equal(t, Group{ZarrFormat: 2}, cm.Metadata[".zgroup"])
	assert.Equal(t, Attributes{"kind": "array", "id": "time"}, cm.Metadata[".zattrs"])
	am, ok := cm.Metadata["values/.zarray"].(*ArrayMeta)
	require.True(t, ok)
	assert.Equal(t, []int{5}, am.Shape)

	bad := `{"metadata": {"values/.zblob": {}}}`
	assert.Error(t, json.Unmarshal([]byte(bad), cm))
}

func TestKeyMetaType(t *testing.T) {
	mt, ok := KeyMetaType("a/b/.zarray")
	assert.True(t, ok)
	assert.Equal(t, MTArray, mt)
	_, ok = KeyMetaType(".zmetadata")
	assert.False(t, ok)
	_, ok = KeyMetaType("x")
	assert.False(t, ok)
}
