package geo

import (
	"math"
	"testing"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/stretchr/testify/assert"
)

func TestBearingCardinalDirections(t *testing.T) {
	// due north
	assert.InDelta(t, 0.0, BearingTo(0, 0, 1, 0), 0.5)
	// due east
	assert.InDelta(t, 90.0, BearingTo(0, 0, 0, 1), 0.5)
	// due south
	assert.InDelta(t, 180.0, BearingTo(1, 0, 0, 0), 0.5)
	// due west
	assert.InDelta(t, 270.0, BearingTo(0, 1, 0, 0), 0.5)
}

func TestAngleBetween(t *testing.T) {
	// heading north, continuing north is straight
	assert.InDelta(t, 180.0, AngleBetween(0, 0), 0.1)
	// heading north, turning east is a right turn
	assert.InDelta(t, 90.0, AngleBetween(0, 90), 0.1)
	// heading north, turning west is a left turn
	assert.InDelta(t, 270.0, AngleBetween(0, 270), 0.1)
	// heading north, going back south is a u-turn
	assert.InDelta(t, 0.0, math.Min(AngleBetween(0, 180), 360-AngleBetween(0, 180)), 0.1)
}

func TestBearingsAreReversed(t *testing.T) {
	assert.True(t, BearingsAreReversed(0, 180))
	assert.True(t, BearingsAreReversed(10, 200))
	assert.False(t, BearingsAreReversed(0, 90))
}

func TestHaversineKnownDistance(t *testing.T) {
	// one degree of latitude is ~111 km
	d := CalculateHaversineDistance(0, 0, 1, 0)
	assert.InDelta(t, 111.2, d, 1.0)
}

func TestGetDestinationPointInverts(t *testing.T) {
	lat, lon := -7.5533, 110.8233
	destLat, destLon := GetDestinationPoint(lat, lon, 45, 1.0)
	back := CalculateHaversineDistance(lat, lon, destLat, destLon)
	assert.InDelta(t, 1.0, back, 0.01)
}

func TestProjectPointToLine(t *testing.T) {
	from := datastructure.NewCoordinate(0, 0)
	to := datastructure.NewCoordinate(0, 0.01)
	query := datastructure.NewCoordinate(0.001, 0.005)

	proj := ProjectPointToLineCoord(from, to, query)
	assert.InDelta(t, 0.0, proj.LatDeg(), 1e-4)
	assert.InDelta(t, 0.005, proj.LonDeg(), 1e-4)
}

func TestDouglasPeuckerDropsCollinearPoints(t *testing.T) {
	coords := []datastructure.Coordinate{
		datastructure.NewCoordinate(0, 0),
		datastructure.NewCoordinate(0, 0.001),
		datastructure.NewCoordinate(0, 0.002),
		datastructure.NewCoordinate(0, 0.003),
	}
	simplified := RamerDouglasPeucker(coords)
	assert.Equal(t, 2, len(simplified))
	assert.Equal(t, coords[0], simplified[0])
	assert.Equal(t, coords[3], simplified[1])
}
