package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func mustMultiPolygon(t *testing.T, rings ...[]float64) *geom.MultiPolygon {
	t.Helper()
	mp := geom.NewMultiPolygon(geom.XY)
	for _, flat := range rings {
		poly := geom.NewPolygon(geom.XY)
		require.NoError(t, poly.Push(geom.NewLinearRingFlat(geom.XY, flat)))
		require.NoError(t, mp.Push(poly))
	}
	return mp
}

// ring coordinates are X=lon, Y=lat.
func squareRing(lonMin, latMin, lonMax, latMax float64) []float64 {
	return []float64{
		lonMin, latMin,
		lonMin, latMax,
		lonMax, latMax,
		lonMax, latMin,
		lonMin, latMin,
	}
}

func TestMultiPolygonContains_Square(t *testing.T) {
	mp := mustMultiPolygon(t, squareRing(0, 0, 10, 10))

	tests := []struct {
		name     string
		lat, lon float64
		expected bool
	}{
		{name: "center", lat: 5, lon: 5, expected: true},
		{name: "near edge inside", lat: 9.99, lon: 9.99, expected: true},
		{name: "north of box", lat: 10.01, lon: 5, expected: false},
		{name: "west of box", lat: 5, lon: -0.01, expected: false},
		{name: "far away", lat: -45, lon: 120, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, multiPolygonContains(mp, tt.lat, tt.lon))
		})
	}
}

func TestMultiPolygonContains_Hole(t *testing.T) {
	// Outer ring with a hole in the middle; even-odd parity excludes the hole
	// whether the rings share a polygon or not.
	sameBody := mustMultiPolygon(t, squareRing(0, 0, 10, 10))
	hole := geom.NewLinearRingFlat(geom.XY, squareRing(4, 4, 6, 6))
	require.NoError(t, sameBody.Polygon(0).Push(hole))

	separate := mustMultiPolygon(t, squareRing(0, 0, 10, 10), squareRing(4, 4, 6, 6))

	for _, mp := range []*geom.MultiPolygon{sameBody, separate} {
		assert.False(t, multiPolygonContains(mp, 5, 5), "inside the hole")
		assert.True(t, multiPolygonContains(mp, 2, 2), "between outer ring and hole")
		assert.False(t, multiPolygonContains(mp, 15, 15), "outside everything")
	}
}

func TestMultiPolygonContains_MultipleParts(t *testing.T) {
	// An archipelago: two disjoint islands under one region.
	mp := mustMultiPolygon(t, squareRing(0, 0, 2, 2), squareRing(5, 5, 7, 7))

	assert.True(t, multiPolygonContains(mp, 1, 1))
	assert.True(t, multiPolygonContains(mp, 6, 6))
	assert.False(t, multiPolygonContains(mp, 3.5, 3.5))
}

func TestMultiPolygonContains_Degenerate(t *testing.T) {
	assert.False(t, multiPolygonContains(nil, 0, 0))

	// A two-point "ring" cannot contain anything.
	mp := geom.NewMultiPolygon(geom.XY)
	poly := geom.NewPolygon(geom.XY)
	require.NoError(t, poly.Push(geom.NewLinearRingFlat(geom.XY, []float64{0, 0, 1, 1})))
	require.NoError(t, mp.Push(poly))
	assert.False(t, multiPolygonContains(mp, 0.5, 0.5))
}
