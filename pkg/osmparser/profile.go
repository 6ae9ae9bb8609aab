package osmparser

import (
	"strconv"
	"strings"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/paulmach/osm"
)

// WeightData is the mutable per-way annotation the profile fills in. A
// non-zero Duration (seconds, whole way) wins over Speed when the final
// edge weight is computed; ferries use it.
type WeightData struct {
	Speed       float64 // km/h
	Duration    float64 // seconds for the whole way, 0 when speed-based
	WayLength   float64 // meters, filled by the builder for duration split
	Mode        datastructure.TravelMode
	RoadClass   datastructure.RoadClass
	Forward     bool
	Backward    bool
	Name        string
	Ref         string
	Destinations string
	Pronunciation string
	TurnLanes    string
	Roundabout   bool
	Circular     bool
	Startpoint   bool
}

// ProfileCallback abstracts the scripting profile: it decides which ways
// are routable and tags them with speed, mode and direction.
type ProfileCallback interface {
	AcceptWay(way *osm.Way) bool
	ProcessWay(way *osm.Way) WeightData
	// ProcessSegment may adjust the weight data per segment, e.g. for
	// segment-speed overrides.
	ProcessSegment(from, to datastructure.Coordinate, distanceMeters float64, w *WeightData)
	ProcessNode(node *osm.Node) (barrier bool, trafficSignal bool)
	TurnPenalty(angleDeg float64) int32
}

var skipHighway = map[string]struct{}{
	"footway":                {},
	"construction":           {},
	"cycleway":               {},
	"path":                   {},
	"pedestrian":             {},
	"busway":                 {},
	"steps":                  {},
	"bridleway":              {},
	"corridor":               {},
	"street_lamp":            {},
	"bus_stop":               {},
	"crossing":               {},
	"elevator":               {},
	"emergency_bay":          {},
	"emergency_access_point": {},
	"give_way":               {},
	"platform":               {},
	"proposed":               {},
	"rest_area":              {},
	"speed_camera":           {},
	"track":                  {},
	"bus_guideway":           {},
	"stop":                   {},
	"toll_gantry":            {},
	"traffic_mirror":         {},
	"traffic_signals":        {},
	"trailhead":              {},
}

// CarProfile is the default profile: drivable highway classes plus road
// ferries.
type CarProfile struct{}

func NewCarProfile() *CarProfile {
	return &CarProfile{}
}

func (p *CarProfile) AcceptWay(way *osm.Way) bool {
	highway := way.Tags.Find("highway")
	junction := way.Tags.Find("junction")
	if highway != "" {
		if _, ok := skipHighway[highway]; !ok {
			return true
		}
		return false
	}
	if way.Tags.Find("route") == "ferry" || way.Tags.Find("route") == "shuttle_train" {
		return true
	}
	if way.Tags.Find("route") == "road" {
		return true
	}
	return junction != ""
}

func roadTypeMaxSpeed(roadType string) float64 {
	switch roadType {
	case "motorway":
		return 100
	case "trunk":
		return 70
	case "primary":
		return 65
	case "secondary":
		return 60
	case "tertiary":
		return 50
	case "unclassified":
		return 30
	case "residential":
		return 30
	case "service":
		return 20
	case "motorway_link":
		return 70
	case "trunk_link":
		return 65
	case "primary_link":
		return 60
	case "secondary_link":
		return 50
	case "tertiary_link":
		return 40
	case "living_street":
		return 10
	case "road":
		return 20
	default:
		return 40
	}
}

func isRestrictedAccess(value string) bool {
	switch value {
	case "no", "restricted", "military", "emergency", "private", "permit":
		return true
	}
	return false
}

func parseMaxSpeed(value string) float64 {
	if value == "" || value == "none" || value == "signals" {
		return 0
	}
	if strings.Contains(value, "mph") {
		if v, err := strconv.ParseFloat(strings.TrimSpace(strings.Replace(value, "mph", "", -1)), 64); err == nil {
			return v * 1.60934
		}
		return 0
	}
	if strings.Contains(value, "km/h") {
		if v, err := strconv.ParseFloat(strings.TrimSpace(strings.Replace(value, "km/h", "", -1)), 64); err == nil {
			return v
		}
		return 0
	}
	if strings.Contains(value, "knots") {
		if v, err := strconv.ParseFloat(strings.TrimSpace(strings.Replace(value, "knots", "", -1)), 64); err == nil {
			return v * 1.852
		}
		return 0
	}
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return v
	}
	return 0
}

func parseDurationSeconds(value string) float64 {
	// hh:mm:ss, hh:mm, or plain minutes
	parts := strings.Split(value, ":")
	switch len(parts) {
	case 3:
		h, _ := strconv.ParseFloat(parts[0], 64)
		m, _ := strconv.ParseFloat(parts[1], 64)
		s, _ := strconv.ParseFloat(parts[2], 64)
		return h*3600 + m*60 + s
	case 2:
		h, _ := strconv.ParseFloat(parts[0], 64)
		m, _ := strconv.ParseFloat(parts[1], 64)
		return h*3600 + m*60
	default:
		m, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0
		}
		return m * 60
	}
}

func (p *CarProfile) ProcessWay(way *osm.Way) WeightData {
	w := WeightData{
		Mode:       datastructure.TRAVEL_MODE_DRIVING,
		Forward:    true,
		Backward:   true,
		Startpoint: true,
		Name:       way.Tags.Find("name"),
		Ref:        way.Tags.Find("ref"),
		Destinations:  way.Tags.Find("destination"),
		Pronunciation: way.Tags.Find("name:pronunciation"),
		TurnLanes:     way.Tags.Find("turn:lanes"),
	}

	highway := way.Tags.Find("highway")
	w.RoadClass = datastructure.RoadClassFromHighway(highway)

	if route := way.Tags.Find("route"); route == "ferry" || route == "shuttle_train" {
		w.Mode = datastructure.TRAVEL_MODE_FERRY
		w.RoadClass = datastructure.ROAD_CLASS_FERRY
		w.Speed = 5
		if dur := way.Tags.Find("duration"); dur != "" {
			w.Duration = parseDurationSeconds(dur)
		}
	} else {
		w.Speed = roadTypeMaxSpeed(highway)
		if maxSpeed := parseMaxSpeed(way.Tags.Find("maxspeed")); maxSpeed > 0 {
			w.Speed = maxSpeed
		}
	}

	switch way.Tags.Find("junction") {
	case "roundabout":
		w.Roundabout = true
	case "circular":
		w.Circular = true
	}

	oneway := way.Tags.Find("oneway")
	vehicleForwardRestricted := isRestrictedAccess(way.Tags.Find("vehicle:forward")) ||
		isRestrictedAccess(way.Tags.Find("motor_vehicle:forward"))
	vehicleBackwardRestricted := isRestrictedAccess(way.Tags.Find("vehicle:backward")) ||
		isRestrictedAccess(way.Tags.Find("motor_vehicle:backward"))

	if oneway == "yes" || oneway == "1" || oneway == "true" || w.Roundabout {
		w.Backward = false
	} else if oneway == "-1" {
		w.Forward = false
	}
	if vehicleForwardRestricted {
		w.Forward = false
	}
	if vehicleBackwardRestricted {
		w.Backward = false
	}

	if isRestrictedAccess(way.Tags.Find("access")) || isRestrictedAccess(way.Tags.Find("motor_vehicle")) {
		w.Forward = false
		w.Backward = false
	}

	if way.Tags.Find("highway") == "service" && way.Tags.Find("service") == "parking_aisle" {
		w.Startpoint = false
	}

	return w
}

func (p *CarProfile) ProcessSegment(from, to datastructure.Coordinate, distanceMeters float64, w *WeightData) {
	// the default car profile has no segment-speed overrides
}

func (p *CarProfile) ProcessNode(node *osm.Node) (bool, bool) {
	barrier := false
	if b := node.Tags.Find("barrier"); b != "" && b != "no" {
		switch b {
		case "cattle_grid", "border_control", "toll_booth", "sally_port", "entrance", "height_restrictor":
			// passable barriers
		default:
			barrier = node.Tags.Find("access") != "yes"
		}
	}
	if node.Tags.Find("ford") != "" {
		barrier = true
	}
	trafficSignal := strings.Contains(node.Tags.Find("highway"), "traffic_signals")
	return barrier, trafficSignal
}

const (
	turnPenaltyScale = 75.0 // tenths of seconds at a full u-turn
)

// TurnPenalty maps the deviation from straight (degrees in [0, 180]) to a
// weight penalty in tenths of seconds; zero for straight continuations.
func (p *CarProfile) TurnPenalty(angleDeg float64) int32 {
	if angleDeg < 10 {
		return 0
	}
	frac := angleDeg / 180.0
	return int32(turnPenaltyScale * frac * frac)
}
