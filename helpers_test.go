package das

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// observeLogs routes diagnostics to an in-memory core for the rest of the
// test
func observeLogs(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })
	return logs
}

func seq(n int) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = float64(i)
	}
	return vals
}

func mustArray(t *testing.T, id string, vt ValType, dims []int, vals []float64, opts ...ArrayOption) *Array {
	t.Helper()
	a, err := NewArrayFloat64(id, vt, dims, vals, opts...)
	require.NoError(t, err)
	return a
}

func mustView(t *testing.T, a *Array, imap IndexMap) *ArrayView {
	t.Helper()
	v, err := NewArrayView(a, imap, 0)
	require.NoError(t, err)
	return v
}

func mustMap(t *testing.T, dims ...DimMap) IndexMap {
	t.Helper()
	m, err := NewIndexMap(dims...)
	require.NoError(t, err)
	return m
}

// values decodes every element of a dense numeric array
func values(t *testing.T, a *Array) []float64 {
	t.Helper()
	d, err := a.Dense()
	require.NoError(t, err)
	return d.Elements
}

func xyzVectors(t *testing.T, id string, vals []float64, n int) *GeoVectorView {
	t.Helper()
	a := mustArray(t, id, VTDouble, []int{n, 3}, vals, WithUnits("nT"))
	v, err := NewGeoVectorView(a, IdentityMap(1), "GSE", 1, SysCartesian, []uint8{0, 1, 2})
	require.NoError(t, err)
	a.Release()
	return v
}
