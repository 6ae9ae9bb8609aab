package datastructure

// StepManeuver is the action taken at the start of a RouteStep.
type StepManeuver struct {
	Location      Coordinate
	BearingBefore float64
	BearingAfter  float64
	Instruction   TurnInstruction
	ExitCount     int
	WaypointType  WaypointType
}

// IntersectionView is an intersection passed through within a step, with
// the available bearings ordered counter-clockwise from north and the
// entry-allowed flag per bearing.
type IntersectionView struct {
	Location Coordinate
	Bearings []float64
	Entry    []bool
	In       int
	Out      int
	Lanes    []LaneTuple
	LaneDesc LaneDescription
}

// RouteStep is a single turn-to-turn segment of a leg. It only lives
// inside one query response.
type RouteStep struct {
	Distance      float64 // meters
	Duration      float64 // seconds
	Name          string
	Ref           string
	Pronunciation string
	Destinations  string
	RotaryName    string
	Mode          TravelMode
	Maneuver      StepManeuver
	GeometryBegin int
	GeometryEnd   int
	Intersections []IntersectionView
	NameID        int32
}

// ElongateBy extends the step over its successor: distances and durations
// add up and the geometry window absorbs the successor's.
func (s *RouteStep) ElongateBy(next RouteStep) {
	s.Distance += next.Distance
	s.Duration += next.Duration
	s.GeometryEnd = next.GeometryEnd
	if len(next.Intersections) > 0 {
		s.Intersections = append(s.Intersections, next.Intersections...)
	}
}

// Invalidate marks the step for removal by the post-processing sweep.
func (s *RouteStep) Invalidate() {
	s.Maneuver.Instruction = NoTurnInstruction()
	s.Maneuver.WaypointType = WAYPOINT_TYPE_NONE
}

func (s *RouteStep) Invalidated() bool {
	return s.Maneuver.Instruction.Type == TURN_TYPE_NO_TURN &&
		s.Maneuver.WaypointType == WAYPOINT_TYPE_NONE
}

// Leg is the assembled result between two waypoints.
type Leg struct {
	Geometry         []Coordinate
	SegmentOffsets   []int
	SegmentDistances []float64
	Steps            []RouteStep
	Distance         float64
	Duration         float64
}

// PhantomNode is the projection of a query coordinate onto one compressed
// edge, carrying the split weights needed to seed a search from mid-edge.
type PhantomNode struct {
	ForwardSegmentID int32
	ReverseSegmentID int32
	ForwardWeight    int32
	ReverseWeight    int32
	ForwardOffset    int32
	ReverseOffset    int32
	ComponentID      uint32
	IsTiny           bool
	Location         Coordinate
	InputLocation    Coordinate
	GeometryID       int32
	EdgeDistance     float64 // meters from input to projection
}

func (p *PhantomNode) ForwardEnabled() bool {
	return p.ForwardSegmentID != INVALID_NODE_ID
}

func (p *PhantomNode) ReverseEnabled() bool {
	return p.ReverseSegmentID != INVALID_NODE_ID
}

// SameEdge reports whether two phantoms share a compressed edge.
func (p *PhantomNode) SameEdge(other *PhantomNode) bool {
	return p.GeometryID == other.GeometryID &&
		(p.ForwardSegmentID == other.ForwardSegmentID || p.ReverseSegmentID == other.ReverseSegmentID)
}
