package guidance

import (
	"testing"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/extractor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func node(lat, lon float64) datastructure.NodeBasedNode {
	return datastructure.NewNodeBasedNode(datastructure.NewCoordinate(lat, lon), 0, false, false)
}

func road(source, target int32, nameID int32, class datastructure.RoadClass) datastructure.NodeBasedEdge {
	return datastructure.NodeBasedEdge{
		Source:     source,
		Target:     target,
		Weight:     10,
		Distance:   100,
		NameID:     nameID,
		RoadClass:  class,
		TravelMode: datastructure.TRAVEL_MODE_DRIVING,
		Forward:    true,
		Backward:   true,
		Startpoint: true,
		GeometryID: datastructure.INVALID_EDGE_ID,
	}
}

// names: id 0 = "", id 1 = "main", id 2 = "side"
func guidanceGraph(nodes []datastructure.NodeBasedNode, edges []datastructure.NodeBasedEdge) *extractor.CompressedGraph {
	g := &extractor.CompressedGraph{
		Nodes: nodes,
		Edges: edges,
		Names: []string{
			"", "", "", "",
			"main", "", "", "",
			"side", "", "", "",
		},
		LaneDescriptions: []datastructure.LaneDescription{nil},
		LaneStrings:      []string{""},
	}
	extractor.NewCompressor(zap.NewNop()).Compress(g)
	return g
}

func TestGetTurnModifierWindows(t *testing.T) {
	assert.Equal(t, datastructure.DIRECTION_UTURN, getTurnModifier(2))
	assert.Equal(t, datastructure.DIRECTION_SHARP_RIGHT, getTurnModifier(40))
	assert.Equal(t, datastructure.DIRECTION_RIGHT, getTurnModifier(90))
	assert.Equal(t, datastructure.DIRECTION_SLIGHT_RIGHT, getTurnModifier(150))
	assert.Equal(t, datastructure.DIRECTION_STRAIGHT, getTurnModifier(180))
	assert.Equal(t, datastructure.DIRECTION_SLIGHT_LEFT, getTurnModifier(210))
	assert.Equal(t, datastructure.DIRECTION_LEFT, getTurnModifier(260))
	assert.Equal(t, datastructure.DIRECTION_SHARP_LEFT, getTurnModifier(320))
}

/*
straight pass-through on the same name is suppressed:

	0 --main-- 1 --main-- 2
*/
func TestPassThroughSameNameSuppressed(t *testing.T) {
	// a signal node keeps the pass-through from being compressed away
	g2 := guidanceGraph(
		[]datastructure.NodeBasedNode{node(0, 0), signalNode(0, 0.001), node(0, 0.002)},
		[]datastructure.NodeBasedEdge{road(0, 1, 1, datastructure.ROAD_CLASS_PRIMARY), road(1, 2, 1, datastructure.ROAD_CLASS_PRIMARY)},
	)
	require.Len(t, g2.Edges, 2)

	annotations := NewAnnotator(zap.NewNop()).AnnotateIntersection(g2, 0, 1, []int32{1})
	require.Len(t, annotations, 1)
	assert.Equal(t, datastructure.TURN_TYPE_SUPPRESSED, annotations[0].Instruction.Type)
	assert.Equal(t, datastructure.DIRECTION_STRAIGHT, annotations[0].Instruction.Modifier)
}

func signalNode(lat, lon float64) datastructure.NodeBasedNode {
	n := node(lat, lon)
	n.TrafficSignal = true
	return n
}

/*
name change on a pass-through announces NewName:

	0 --main-- 1 --side-- 2
*/
func TestPassThroughNameChange(t *testing.T) {
	g := guidanceGraph(
		[]datastructure.NodeBasedNode{node(0, 0), node(0, 0.001), node(0, 0.002)},
		[]datastructure.NodeBasedEdge{road(0, 1, 1, datastructure.ROAD_CLASS_PRIMARY), road(1, 2, 2, datastructure.ROAD_CLASS_PRIMARY)},
	)
	require.Len(t, g.Edges, 2)

	annotations := NewAnnotator(zap.NewNop()).AnnotateIntersection(g, 0, 1, []int32{1})
	require.Len(t, annotations, 1)
	assert.Equal(t, datastructure.TURN_TYPE_NEW_NAME, annotations[0].Instruction.Type)
}

/*
right-angle T junction from the stem announces end of road:

	      2
	      |
	0 --- 1 --- 3     in-edge 0->1 comes from the west, roads go north
	                  and east... stem view: in from 0, out left (2) and
	                  straight (3) exists, so this is no T. Real T below.
*/
func TestEndOfRoadAtTJunction(t *testing.T) {
	/*
	   in-edge climbs from the south into a perpendicular east-west road:

	   1 ------ 2 ------ 3
	            |
	            0
	*/
	g := guidanceGraph(
		[]datastructure.NodeBasedNode{node(-0.001, 0.001), node(0, 0), node(0, 0.001), node(0, 0.002)},
		[]datastructure.NodeBasedEdge{
			road(1, 2, 1, datastructure.ROAD_CLASS_PRIMARY),
			road(2, 3, 1, datastructure.ROAD_CLASS_PRIMARY),
			road(0, 2, 2, datastructure.ROAD_CLASS_PRIMARY),
		},
	)
	require.Len(t, g.Edges, 3)

	// in edge (0,2) northbound into via 2
	annotations := NewAnnotator(zap.NewNop()).AnnotateIntersection(g, 2, 2, []int32{0, 1})
	require.Len(t, annotations, 2)

	byType := map[datastructure.DirectionModifier]datastructure.TurnType{}
	for _, a := range annotations {
		byType[a.Instruction.Modifier] = a.Instruction.Type
	}
	assert.Equal(t, datastructure.TURN_TYPE_END_OF_ROAD, byType[datastructure.DIRECTION_LEFT])
	assert.Equal(t, datastructure.TURN_TYPE_END_OF_ROAD, byType[datastructure.DIRECTION_RIGHT])
}

/*
motorway off-ramp: mainline continues, link leaves slight right.

	0 ==Hwy== 1 ==Hwy== 2
	            \
	             3 (link)
*/
func TestOffRampFromMotorway(t *testing.T) {
	g := guidanceGraph(
		[]datastructure.NodeBasedNode{node(0, 0), node(0, 0.001), node(0, 0.002), node(-0.0005, 0.0018)},
		[]datastructure.NodeBasedEdge{
			oneway(road(0, 1, 1, datastructure.ROAD_CLASS_MOTORWAY)),
			oneway(road(1, 2, 1, datastructure.ROAD_CLASS_MOTORWAY)),
			oneway(road(1, 3, 0, datastructure.ROAD_CLASS_MOTORWAY_LINK)),
		},
	)
	require.Len(t, g.Edges, 3)

	annotations := NewAnnotator(zap.NewNop()).AnnotateIntersection(g, 0, 1, []int32{1, 2})
	require.Len(t, annotations, 2)

	// the link leg must be an off ramp to the right
	var linkInstruction datastructure.TurnInstruction
	for i, outEdge := range []int32{1, 2} {
		if outEdge == 2 {
			linkInstruction = annotations[i].Instruction
		}
	}
	assert.Equal(t, datastructure.TURN_TYPE_OFF_RAMP, linkInstruction.Type)
	assert.True(t, linkInstruction.Modifier.IsRightTurn())
}

func oneway(e datastructure.NodeBasedEdge) datastructure.NodeBasedEdge {
	e.Backward = false
	return e
}

func TestFindForkGroupsNarrowWedge(t *testing.T) {
	intersection := &Intersection{
		InEdge: 99,
		Roads: []ConnectedRoad{
			{EdgeID: 1, Angle: 165, EntryAllowed: true},
			{EdgeID: 2, Angle: 195, EntryAllowed: true},
		},
	}
	lo, hi, ok := findFork(intersection)
	require.True(t, ok)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 1, hi)

	// a wide pair is no fork
	wide := &Intersection{
		InEdge: 99,
		Roads: []ConnectedRoad{
			{EdgeID: 1, Angle: 100, EntryAllowed: true},
			{EdgeID: 2, Angle: 260, EntryAllowed: true},
		},
	}
	_, _, ok = findFork(wide)
	assert.False(t, ok)
}

func TestIsSameNameEmptyNeverMatches(t *testing.T) {
	assert.False(t, isSameName("", ""))
	assert.False(t, isSameName("main", ""))
	assert.True(t, isSameName("main", "main"))
}
