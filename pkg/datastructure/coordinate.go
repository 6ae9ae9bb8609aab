package datastructure

import (
	"math"

	"github.com/twpayne/go-polyline"
)

// COORDINATE_PRECISION micro-degrees per degree. Coordinates are stored
// fixed-point so equality is exact.
const COORDINATE_PRECISION = 1e6

type Coordinate struct {
	Lat int32
	Lon int32
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: int32(math.Round(lat * COORDINATE_PRECISION)),
		Lon: int32(math.Round(lon * COORDINATE_PRECISION)),
	}
}

func NewCoordinateFixed(lat, lon int32) Coordinate {
	return Coordinate{Lat: lat, Lon: lon}
}

func (c Coordinate) LatDeg() float64 {
	return float64(c.Lat) / COORDINATE_PRECISION
}

func (c Coordinate) LonDeg() float64 {
	return float64(c.Lon) / COORDINATE_PRECISION
}

func NewCoordinates(lat, lon []float64) []Coordinate {
	coords := make([]Coordinate, len(lat))
	for i := range lat {
		coords[i] = NewCoordinate(lat[i], lon[i])
	}
	return coords
}

// RenderPath encodes a coordinate path as a google polyline string.
func RenderPath(path []Coordinate) string {
	coords := make([][]float64, 0, len(path))
	for _, p := range path {
		coords = append(coords, []float64{p.LatDeg(), p.LonDeg()})
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePath decodes a google polyline string back into coordinates.
func DecodePath(s string) ([]Coordinate, error) {
	coords, _, err := polyline.DecodeCoords([]byte(s))
	if err != nil {
		return nil, err
	}
	path := make([]Coordinate, 0, len(coords))
	for _, c := range coords {
		path = append(path, NewCoordinate(c[0], c[1]))
	}
	return path, nil
}
