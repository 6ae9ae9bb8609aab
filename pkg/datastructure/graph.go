package datastructure

import "math"

const (
	// INVALID_WEIGHT sentinel for "no edge". Edge weights themselves are
	// strictly positive int32 tenths-of-seconds.
	INVALID_WEIGHT int32 = math.MaxInt32

	INVALID_NODE_ID int32 = -1
	INVALID_EDGE_ID int32 = -1
)

type TravelMode uint8

const (
	TRAVEL_MODE_INACCESSIBLE TravelMode = iota
	TRAVEL_MODE_DRIVING
	TRAVEL_MODE_FERRY
)

func (m TravelMode) String() string {
	switch m {
	case TRAVEL_MODE_DRIVING:
		return "driving"
	case TRAVEL_MODE_FERRY:
		return "ferry"
	default:
		return "inaccessible"
	}
}

// RoadClass orders road categories by importance, motorway first. Used by
// the obvious-turn heuristic.
type RoadClass uint8

const (
	ROAD_CLASS_MOTORWAY RoadClass = iota
	ROAD_CLASS_MOTORWAY_LINK
	ROAD_CLASS_TRUNK
	ROAD_CLASS_TRUNK_LINK
	ROAD_CLASS_PRIMARY
	ROAD_CLASS_PRIMARY_LINK
	ROAD_CLASS_SECONDARY
	ROAD_CLASS_SECONDARY_LINK
	ROAD_CLASS_TERTIARY
	ROAD_CLASS_TERTIARY_LINK
	ROAD_CLASS_UNCLASSIFIED
	ROAD_CLASS_RESIDENTIAL
	ROAD_CLASS_LIVING_STREET
	ROAD_CLASS_SERVICE
	ROAD_CLASS_FERRY
	ROAD_CLASS_OTHER
)

func RoadClassFromHighway(highway string) RoadClass {
	switch highway {
	case "motorway":
		return ROAD_CLASS_MOTORWAY
	case "motorway_link":
		return ROAD_CLASS_MOTORWAY_LINK
	case "trunk":
		return ROAD_CLASS_TRUNK
	case "trunk_link":
		return ROAD_CLASS_TRUNK_LINK
	case "primary":
		return ROAD_CLASS_PRIMARY
	case "primary_link":
		return ROAD_CLASS_PRIMARY_LINK
	case "secondary":
		return ROAD_CLASS_SECONDARY
	case "secondary_link":
		return ROAD_CLASS_SECONDARY_LINK
	case "tertiary":
		return ROAD_CLASS_TERTIARY
	case "tertiary_link":
		return ROAD_CLASS_TERTIARY_LINK
	case "unclassified":
		return ROAD_CLASS_UNCLASSIFIED
	case "residential":
		return ROAD_CLASS_RESIDENTIAL
	case "living_street":
		return ROAD_CLASS_LIVING_STREET
	case "service":
		return ROAD_CLASS_SERVICE
	default:
		return ROAD_CLASS_OTHER
	}
}

func (rc RoadClass) IsLink() bool {
	switch rc {
	case ROAD_CLASS_MOTORWAY_LINK, ROAD_CLASS_TRUNK_LINK, ROAD_CLASS_PRIMARY_LINK,
		ROAD_CLASS_SECONDARY_LINK, ROAD_CLASS_TERTIARY_LINK:
		return true
	}
	return false
}

func (rc RoadClass) IsRamp() bool {
	return rc == ROAD_CLASS_MOTORWAY_LINK || rc == ROAD_CLASS_TRUNK_LINK
}

func (rc RoadClass) IsMotorway() bool {
	return rc == ROAD_CLASS_MOTORWAY || rc == ROAD_CLASS_TRUNK
}

func (rc RoadClass) IsLowPriority() bool {
	return rc >= ROAD_CLASS_SERVICE
}

// NodeBasedNode is an intersection of the raw graph. Raw nodes only live
// during extraction.
type NodeBasedNode struct {
	Coord         Coordinate
	OsmID         int64
	Barrier       bool
	TrafficSignal bool
}

func NewNodeBasedNode(coord Coordinate, osmID int64, barrier, trafficSignal bool) NodeBasedNode {
	return NodeBasedNode{
		Coord:         coord,
		OsmID:         osmID,
		Barrier:       barrier,
		TrafficSignal: trafficSignal,
	}
}

// NodeBasedEdge is a directed segment between two raw intersections. After
// orientation Source < Target always holds; direction is carried by the
// Forward/Backward flags.
type NodeBasedEdge struct {
	Source     int32
	Target     int32
	Weight     int32   // tenths of seconds
	Distance   float64 // meters
	NameID     int32
	RoadClass  RoadClass
	TravelMode TravelMode
	TurnLaneID int32
	Forward    bool
	Backward   bool
	Roundabout bool
	Circular   bool
	Startpoint bool
	IsSplit    bool
	GeometryID int32 // set by the compressor
}

func (e *NodeBasedEdge) Reverse() {
	e.Source, e.Target = e.Target, e.Source
	e.Forward, e.Backward = e.Backward, e.Forward
}

// EdgeBasedNode is one directed compressed edge promoted to a node of the
// edge-expanded graph. Disabled directions carry INVALID_NODE_ID.
type EdgeBasedNode struct {
	ForwardSegmentID int32
	ReverseSegmentID int32
	NameID           int32
	GeometryID       int32
	ForwardWeight    int32
	ReverseWeight    int32
	ForwardOffset    int32
	ReverseOffset    int32
	ComponentID      uint32
	Coord            Coordinate
	TravelMode       TravelMode
	IsTiny           bool
	Startpoint       bool
}

func (n *EdgeBasedNode) ForwardEnabled() bool {
	return n.ForwardSegmentID != INVALID_NODE_ID
}

func (n *EdgeBasedNode) ReverseEnabled() bool {
	return n.ReverseSegmentID != INVALID_NODE_ID
}

// EdgeBasedEdge is a legal turn between two edge-based nodes. Shortcut
// edges are synthesized offline by the contractor and carry the skipped
// via node for unpacking.
type EdgeBasedEdge struct {
	EdgeID   int32
	Source   int32
	Target   int32
	Weight   int32 // edge weight + turn penalty
	Distance float64
	Forward  bool
	Backward bool
	Shortcut bool
	ViaNode  int32 // INVALID_NODE_ID unless Shortcut
}

func NewEdgeBasedEdge(edgeID, source, target, weight int32, distance float64, forward, backward bool) EdgeBasedEdge {
	return EdgeBasedEdge{
		EdgeID:   edgeID,
		Source:   source,
		Target:   target,
		Weight:   weight,
		Distance: distance,
		Forward:  forward,
		Backward: backward,
		ViaNode:  INVALID_NODE_ID,
	}
}

func NewShortcutEdge(edgeID, source, target, weight int32, distance float64, forward, backward bool, viaNode int32) EdgeBasedEdge {
	e := NewEdgeBasedEdge(edgeID, source, target, weight, distance, forward, backward)
	e.Shortcut = true
	e.ViaNode = viaNode
	return e
}

// TurnData is the per-turn-edge guidance annotation persisted alongside
// the edge-based graph.
type TurnData struct {
	Instruction       TurnInstruction
	Lanes             LaneTuple
	LaneDescriptionID int32
	ExitCount         int32
	TurnPenalty       int32
	PreTurnBearing    float64
	PostTurnBearing   float64
}
