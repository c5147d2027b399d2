package das

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversionFactor(t *testing.T) {
	cases := []struct {
		from, to Units
		want     float64
	}{
		{"km", "m", 1000},
		{"m", "km", 1e-3},
		{"min", "s", 60},
		{"deg", "rad", math.Pi / 180},
		{"km/s", "m s**-1", 1000},
		{"nT", "nT", 1},
		{"mV", "V", 1e-3},
		{"kHz", "Hz", 1000},
	}
	for _, c := range cases {
		got, err := ConversionFactor(c.from, c.to)
		require.NoError(t, err, "%s -> %s", c.from, c.to)
		assert.InDelta(t, c.want, got, c.want*1e-12, "%s -> %s", c.from, c.to)
	}

	for _, pair := range [][2]Units{{"V", "m"}, {"t2000", "s"}, {"s", "us2000"}, {"parsecs", "m"}} {
		_, err := ConversionFactor(pair[0], pair[1])
		assert.ErrorIs(t, err, ErrIncompatibleUnits, "%s -> %s", pair[0], pair[1])
	}
	assert.True(t, Units("h").Convertible("day"))
	assert.False(t, Units("h").Convertible("Hz"))
}

func TestUnitsArithmetic(t *testing.T) {
	assert.Equal(t, Units("V m**-1"), Units("V").Mul("m**-1"))
	assert.Equal(t, Units("m**2"), Units("m").Mul("m"))
	assert.Equal(t, Dimensionless, Units("m").Div("m"))
	assert.Equal(t, Units("km s**-1"), Units("km").Div("s"))
	assert.Equal(t, Units("km s**-1"), Units("km/s").Pow(1))
	assert.Equal(t, Units("V**2 m**-2"), Units("V m**-1").Pow(2))
	assert.Equal(t, Units("V**-3"), Units("V").Pow(-3))
	assert.Equal(t, Dimensionless, Units("V").Pow(0))

	r, err := Units("V**2 m**-2").Root(2)
	require.NoError(t, err)
	assert.Equal(t, Units("V m**-1"), r)
	r, err = Units("m^3").Root(3)
	require.NoError(t, err)
	assert.Equal(t, Units("m"), r)
	_, err = Units("V").Root(2)
	assert.ErrorIs(t, err, ErrIncompatibleUnits)
}

func TestUnitsPredicates(t *testing.T) {
	assert.True(t, Dimensionless.IsDimensionless())
	assert.True(t, Units("m/m").IsDimensionless())
	assert.False(t, Units("m").IsDimensionless())
	assert.False(t, Units("furlongs").IsDimensionless())

	assert.True(t, Units("deg").IsAngle())
	assert.True(t, Units("rad").IsAngle())
	assert.False(t, Units("m").IsAngle())

	assert.True(t, Units("t2000").IsEpoch())
	assert.False(t, Units("s").IsEpoch())
	assert.Equal(t, Units("μs"), Units("us2000").Interval())
	assert.Equal(t, Units("day"), Units("mj1958").Interval())
	assert.Equal(t, Units("km"), Units("km").Interval())

	assert.NoError(t, Units("V**2 m**-2 Hz**-1").Valid())
	assert.NoError(t, Units("t1970").Valid())
	for _, bad := range []Units{"parsecs", "m**x", "t2000 s", "t2000**2"} {
		assert.ErrorIs(t, bad.Valid(), ErrIncompatibleUnits, string(bad))
	}
}
