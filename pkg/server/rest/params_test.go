package rest

import (
	"testing"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinatesLonLatPairs(t *testing.T) {
	waypoints, err := parseCoordinates("110.82,-7.55;110.83,-7.56")
	require.NoError(t, err)
	require.Len(t, waypoints, 2)
	assert.InDelta(t, -7.55, waypoints[0].Lat, 1e-9)
	assert.InDelta(t, 110.82, waypoints[0].Lon, 1e-9)
}

func TestParseCoordinatesPolyline(t *testing.T) {
	encoded := datastructure.RenderPath([]datastructure.Coordinate{
		datastructure.NewCoordinate(-7.55, 110.82),
		datastructure.NewCoordinate(-7.56, 110.83),
	})
	waypoints, err := parseCoordinates("polyline(" + encoded + ")")
	require.NoError(t, err)
	require.Len(t, waypoints, 2)
	assert.InDelta(t, -7.55, waypoints[0].Lat, 1e-5)
}

// the error carries the position of the first bad character
func TestParseCoordinatesReportsPosition(t *testing.T) {
	_, err := parseCoordinates("110.82,-7.55;borked")
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 13, parseErr.Position)
}

func TestParseCoordinatesRejectsOutOfRange(t *testing.T) {
	_, err := parseCoordinates("181.0,0.0")
	assert.Error(t, err)
	_, err = parseCoordinates("0.0,91.0")
	assert.Error(t, err)
}

func TestApplyBearings(t *testing.T) {
	waypoints, err := parseCoordinates("0,0;1,1")
	require.NoError(t, err)

	require.NoError(t, applyBearings(waypoints, "90,20;"))
	assert.True(t, waypoints[0].HasBearing)
	assert.Equal(t, 90.0, waypoints[0].Bearing)
	assert.Equal(t, 20.0, waypoints[0].BearingRange)
	assert.False(t, waypoints[1].HasBearing)

	assert.Error(t, applyBearings(waypoints, "90,20"))
	assert.Error(t, applyBearings(waypoints, "900,20;"))
}

func TestApplyRadiuses(t *testing.T) {
	waypoints, err := parseCoordinates("0,0;1,1")
	require.NoError(t, err)

	require.NoError(t, applyRadiuses(waypoints, "150;unlimited"))
	assert.Equal(t, 150.0, waypoints[0].Radius)
	assert.Equal(t, 0.0, waypoints[1].Radius)

	assert.Error(t, applyRadiuses(waypoints, "150"))
	assert.Error(t, applyRadiuses(waypoints, "-5;10"))
}

func TestParseRouteOptionsValidation(t *testing.T) {
	opts, err := parseRouteOptions(map[string][]string{
		"steps":    {"true"},
		"overview": {"full"},
	})
	require.NoError(t, err)
	assert.True(t, opts.Steps)
	assert.Equal(t, "full", opts.Overview)
	assert.Equal(t, "polyline", opts.GeometryFormat)

	_, err = parseRouteOptions(map[string][]string{"overview": {"everything"}})
	assert.Error(t, err)
	_, err = parseRouteOptions(map[string][]string{"geometries": {"wkt"}})
	assert.Error(t, err)
}
