package datastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// polyline round-trip stays exact within the fixed-point precision
func TestPolylineRoundTrip(t *testing.T) {
	coords := []Coordinate{
		NewCoordinate(-7.5533505, 110.8233842),
		NewCoordinate(-7.5597772, 110.8364994),
		NewCoordinate(47.642563, -122.322375),
	}

	encoded := RenderPath(coords)
	decoded, err := DecodePath(encoded)
	assert.NoError(t, err)
	assert.Equal(t, len(coords), len(decoded))

	for i := range coords {
		assert.InDelta(t, coords[i].LatDeg(), decoded[i].LatDeg(), 1e-5)
		assert.InDelta(t, coords[i].LonDeg(), decoded[i].LonDeg(), 1e-5)
	}
}

func TestCoordinateFixedPointEquality(t *testing.T) {
	a := NewCoordinate(-7.55335041, 110.82338421)
	b := NewCoordinate(-7.55335039, 110.82338419)
	assert.Equal(t, a, b)
}

func TestGeometryWellDefined(t *testing.T) {
	g := NewCompressedGeometry()
	first := g.Append([]GeometryEntry{{NodeID: 0, CumulativeWeight: 0}, {NodeID: 1, CumulativeWeight: 10}})
	second := g.Append([]GeometryEntry{
		{NodeID: 1, CumulativeWeight: 0},
		{NodeID: 5, CumulativeWeight: 4},
		{NodeID: 2, CumulativeWeight: 9},
	})

	assert.Equal(t, int32(0), first)
	assert.Equal(t, int32(1), second)
	assert.Equal(t, 2, g.Len())

	// offsets monotonically non-decreasing
	for i := 1; i < len(g.Offsets); i++ {
		assert.GreaterOrEqual(t, g.Offsets[i], g.Offsets[i-1])
	}

	assert.Equal(t, []int32{1, 5, 2}, g.Nodes(second))
	assert.Equal(t, []int32{0, 4, 5}, g.Weights(second))
}
