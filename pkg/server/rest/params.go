package rest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/server/rest/service"
)

// ParseError reports the position of the first offending character so
// clients can fix the url.
type ParseError struct {
	Position int
	Message  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid options: %s (at position %d)", e.Message, e.Position)
}

// parseCoordinates accepts "lon,lat;lon,lat;..." or
// "polyline(<encoded>)".
func parseCoordinates(raw string) ([]service.Waypoint, error) {
	if strings.HasPrefix(raw, "polyline(") {
		if !strings.HasSuffix(raw, ")") {
			return nil, &ParseError{Position: len(raw), Message: "unterminated polyline"}
		}
		encoded := raw[len("polyline(") : len(raw)-1]
		coords, err := datastructure.DecodePath(encoded)
		if err != nil {
			return nil, &ParseError{Position: len("polyline("), Message: "malformed polyline"}
		}
		waypoints := make([]service.Waypoint, len(coords))
		for i, c := range coords {
			waypoints[i] = service.Waypoint{Lat: c.LatDeg(), Lon: c.LonDeg()}
		}
		return waypoints, nil
	}

	var waypoints []service.Waypoint
	position := 0
	for _, pair := range strings.Split(raw, ";") {
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, &ParseError{Position: position, Message: "expected lon,lat"}
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, &ParseError{Position: position, Message: "bad longitude"}
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, &ParseError{Position: position + len(parts[0]) + 1, Message: "bad latitude"}
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return nil, &ParseError{Position: position, Message: "coordinate out of range"}
		}
		waypoints = append(waypoints, service.Waypoint{Lat: lat, Lon: lon})
		position += len(pair) + 1
	}
	if len(waypoints) == 0 {
		return nil, &ParseError{Position: 0, Message: "no coordinates"}
	}
	return waypoints, nil
}

// applyBearings parses "θ,r;;θ,r" — empty entries leave the waypoint
// unfiltered.
func applyBearings(waypoints []service.Waypoint, raw string) error {
	if raw == "" {
		return nil
	}
	entries := strings.Split(raw, ";")
	if len(entries) != len(waypoints) {
		return &ParseError{Position: 0, Message: "bearings cardinality mismatch"}
	}
	for i, entry := range entries {
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ",")
		if len(parts) != 2 {
			return &ParseError{Position: 0, Message: "expected bearing,range"}
		}
		bearing, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || bearing < 0 || bearing > 360 {
			return &ParseError{Position: 0, Message: "bad bearing"}
		}
		rang, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || rang < 0 || rang > 180 {
			return &ParseError{Position: 0, Message: "bad bearing range"}
		}
		waypoints[i].HasBearing = true
		waypoints[i].Bearing = bearing
		waypoints[i].BearingRange = rang
	}
	return nil
}

// applyRadiuses parses "r;r;unlimited".
func applyRadiuses(waypoints []service.Waypoint, raw string) error {
	if raw == "" {
		return nil
	}
	entries := strings.Split(raw, ";")
	if len(entries) != len(waypoints) {
		return &ParseError{Position: 0, Message: "radiuses cardinality mismatch"}
	}
	for i, entry := range entries {
		if entry == "" || entry == "unlimited" {
			continue
		}
		radius, err := strconv.ParseFloat(entry, 64)
		if err != nil || radius <= 0 {
			return &ParseError{Position: 0, Message: "bad radius"}
		}
		waypoints[i].Radius = radius
	}
	return nil
}

func applyHints(waypoints []service.Waypoint, raw string) {
	if raw == "" {
		return
	}
	entries := strings.Split(raw, ";")
	for i, entry := range entries {
		if i < len(waypoints) && entry != "" {
			waypoints[i].Hint = entry
		}
	}
}

// parseIndexList parses "0;2;5" into indices.
func parseIndexList(raw string) ([]int, error) {
	if raw == "" || raw == "all" {
		return nil, nil
	}
	var out []int
	for _, entry := range strings.Split(raw, ";") {
		idx, err := strconv.Atoi(entry)
		if err != nil || idx < 0 {
			return nil, &ParseError{Position: 0, Message: "bad index list"}
		}
		out = append(out, idx)
	}
	return out, nil
}

func parseRouteOptions(query map[string][]string) (service.RouteOptions, error) {
	get := func(key, fallback string) string {
		if v, ok := query[key]; ok && len(v) > 0 {
			return v[0]
		}
		return fallback
	}

	opts := service.RouteOptions{
		Steps:            get("steps", "false") == "true",
		Overview:         get("overview", "simplified"),
		GeometryFormat:   get("geometries", "polyline"),
		ContinueStraight: get("continue_straight", "default"),
		Alternatives:     get("alternatives", "false") == "true",
	}

	switch opts.Overview {
	case "false", "simplified", "full":
	default:
		return opts, &ParseError{Position: 0, Message: "bad overview value"}
	}
	switch opts.GeometryFormat {
	case "polyline", "geojson":
	default:
		return opts, &ParseError{Position: 0, Message: "bad geometries value"}
	}
	switch opts.ContinueStraight {
	case "true", "false", "default":
	default:
		return opts, &ParseError{Position: 0, Message: "bad continue_straight value"}
	}
	return opts, nil
}
