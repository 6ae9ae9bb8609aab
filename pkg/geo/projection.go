package geo

import (
	"github.com/golang/geo/s2"
	"github.com/lintang-b-s/routex/pkg/datastructure"
)

// ProjectPointToLineCoord projects snap onto the segment (from, to) via
// s2, returning the foot of perpendicular clamped to the segment.
func ProjectPointToLineCoord(from, to datastructure.Coordinate,
	snap datastructure.Coordinate) datastructure.Coordinate {
	fromS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(from.LatDeg(), from.LonDeg()))
	toS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(to.LatDeg(), to.LonDeg()))
	snapS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(snap.LatDeg(), snap.LonDeg()))
	projection := s2.Project(snapS2, fromS2, toS2)
	projectLatLng := s2.LatLngFromPoint(projection)
	return datastructure.NewCoordinate(projectLatLng.Lat.Degrees(), projectLatLng.Lng.Degrees())
}

// PointPositionBetweenLinePoints returns the index i such that the query
// point projects onto the segment points[i-1]..points[i]; clamped to the
// valid range.
func PointPositionBetweenLinePoints(lat, lon float64, points []datastructure.Coordinate) int {
	if len(points) < 2 {
		return 0
	}
	bestIdx := 1
	bestDist := -1.0
	for i := 1; i < len(points); i++ {
		proj := ProjectPointToLineCoord(points[i-1], points[i], datastructure.NewCoordinate(lat, lon))
		dist := CalculateHaversineDistance(lat, lon, proj.LatDeg(), proj.LonDeg())
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
			bestIdx = i
		}
	}
	return bestIdx
}
