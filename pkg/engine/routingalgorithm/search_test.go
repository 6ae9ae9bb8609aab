package routingalgorithm_test

import (
	"context"
	"testing"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/engine/facade"
	"github.com/lintang-b-s/routex/pkg/engine/routingalgorithm"
	"github.com/lintang-b-s/routex/pkg/extractor"
	"github.com/lintang-b-s/routex/pkg/guidance"
	"github.com/lintang-b-s/routex/pkg/osmparser"
	"github.com/lintang-b-s/routex/pkg/snap"
	"github.com/lintang-b-s/routex/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixtureNode(lat, lon float64) datastructure.NodeBasedNode {
	return datastructure.NewNodeBasedNode(datastructure.NewCoordinate(lat, lon), 0, false, false)
}

func fixtureEdge(source, target int32, weight int32, nameID int32) datastructure.NodeBasedEdge {
	return datastructure.NodeBasedEdge{
		Source:     source,
		Target:     target,
		Weight:     weight,
		Distance:   float64(weight) * 10,
		NameID:     nameID,
		RoadClass:  datastructure.ROAD_CLASS_PRIMARY,
		TravelMode: datastructure.TRAVEL_MODE_DRIVING,
		Forward:    true,
		Backward:   true,
		Startpoint: true,
		GeometryID: datastructure.INVALID_EDGE_ID,
	}
}

// buildFacade runs the real extraction pipeline over a hand-made graph
// and loads the result into an owning facade.
func buildFacade(t *testing.T, nodes []datastructure.NodeBasedNode,
	edges []datastructure.NodeBasedEdge) (facade.DataFacade, *snap.Resolver) {
	t.Helper()
	log := zap.NewNop()

	g := &extractor.CompressedGraph{
		Nodes: nodes,
		Edges: edges,
		Names: []string{
			"", "", "", "",
			"first", "", "", "",
			"second", "", "", "",
		},
		LaneDescriptions: []datastructure.LaneDescription{nil},
		LaneStrings:      []string{""},
	}
	extractor.NewCompressor(log).Compress(g)

	profile := osmparser.NewCarProfile()
	expander := extractor.NewEdgeExpander(guidance.NewAnnotator(log), profile.TurnPenalty, 2, 1, log)
	expanded := expander.Expand(g)

	tables := &storage.RoutingTables{
		EdgeBasedNodes:   expanded.Nodes,
		DirectedCount:    expanded.DirectedCount,
		SegmentNode:      expanded.SegmentEdge,
		SegmentIsForward: expanded.SegmentIsForward,
		Edges:            expanded.Edges,
		Turns:            expanded.Turns,
		Geometry:         *g.Geometry,
		Names:            g.Names,
		LaneDescriptions: g.LaneDescriptions,
		LaneStrings:      g.LaneStrings,
	}
	for _, n := range g.Nodes {
		tables.Coordinates = append(tables.Coordinates, n.Coord)
	}
	tables.Checksum = tables.ComputeChecksum()

	f, err := facade.NewOwningFacade(tables)
	require.NoError(t, err)

	tree, err := snap.BuildIndex(f)
	require.NoError(t, err)
	return f, snap.NewResolver(tree, f)
}

func phantomAt(t *testing.T, resolver *snap.Resolver, lat, lon float64) *datastructure.PhantomNode {
	t.Helper()
	candidates := resolver.Nearest(lat, lon, snap.DefaultOptions())
	require.NotEmpty(t, candidates, "no snap candidate at %f,%f", lat, lon)
	return &candidates[0]
}

/*
a straight chain compressed into one edge, weight 10 per segment:

	0 --10-- 1 --10-- 2 --10-- 3     all "first"
*/
func lineFixture(t *testing.T) (facade.DataFacade, *snap.Resolver) {
	return buildFacade(t,
		[]datastructure.NodeBasedNode{
			fixtureNode(0, 0), fixtureNode(0, 0.001), fixtureNode(0, 0.002), fixtureNode(0, 0.003),
		},
		[]datastructure.NodeBasedEdge{
			fixtureEdge(0, 1, 10, 1), fixtureEdge(1, 2, 10, 1), fixtureEdge(2, 3, 10, 1),
		},
	)
}

// the projection splits the compressed edge: the route between two
// mid-chain phantoms weighs exactly the covered cumulative weight
func TestSameEdgeRoute(t *testing.T) {
	f, resolver := lineFixture(t)
	algorithm := routingalgorithm.NewRouteAlgorithm(f)

	source := phantomAt(t, resolver, 0, 0.0005)
	target := phantomAt(t, resolver, 0, 0.0025)

	path, err := algorithm.ShortestPath(context.Background(), source, target)
	require.NoError(t, err)
	assert.Equal(t, int32(20), path.Weight)
	require.Len(t, path.Nodes, 1)
	assert.Empty(t, path.Edges)
}

// routes on a purely bidirectional graph weigh the same in both
// directions
func TestRouteSymmetry(t *testing.T) {
	f, resolver := lineFixture(t)
	algorithm := routingalgorithm.NewRouteAlgorithm(f)

	a := phantomAt(t, resolver, 0, 0.0005)
	b := phantomAt(t, resolver, 0, 0.0025)

	forth, err := algorithm.ShortestPath(context.Background(), a, b)
	require.NoError(t, err)
	back, err := algorithm.ShortestPath(context.Background(), b, a)
	require.NoError(t, err)
	assert.Equal(t, forth.Weight, back.Weight)
}

// a single-pair matrix equals the one-to-one route weight
func TestManyToManyMatchesRoute(t *testing.T) {
	f, resolver := lineFixture(t)
	algorithm := routingalgorithm.NewRouteAlgorithm(f)

	source := phantomAt(t, resolver, 0, 0.0005)
	target := phantomAt(t, resolver, 0, 0.0025)

	route, err := algorithm.ShortestPath(context.Background(), source, target)
	require.NoError(t, err)

	matrix, err := algorithm.ManyToMany(context.Background(),
		[]*datastructure.PhantomNode{source}, []*datastructure.PhantomNode{target})
	require.NoError(t, err)
	require.Len(t, matrix, 1)
	require.Len(t, matrix[0], 1)
	assert.Equal(t, route.Weight, matrix[0][0])
}

/*
T junction, turn onto the stem:

	0 --- 1 --- 2     "first"
	      |
	      3           "second"
*/
func tFixture(t *testing.T) (facade.DataFacade, *snap.Resolver) {
	return buildFacade(t,
		[]datastructure.NodeBasedNode{
			fixtureNode(0, 0), fixtureNode(0, 0.001), fixtureNode(0, 0.002), fixtureNode(-0.001, 0.001),
		},
		[]datastructure.NodeBasedEdge{
			fixtureEdge(0, 1, 10, 1), fixtureEdge(1, 2, 10, 1), fixtureEdge(1, 3, 10, 2),
		},
	)
}

func TestRouteWithTurnReportsConsistentWeight(t *testing.T) {
	f, resolver := tFixture(t)
	algorithm := routingalgorithm.NewRouteAlgorithm(f)

	source := phantomAt(t, resolver, 0, 0.0005)
	target := phantomAt(t, resolver, -0.0005, 0.001)

	path, err := algorithm.ShortestPath(context.Background(), source, target)
	require.NoError(t, err)

	// covered: 5 out of the first edge, 5 into the stem, plus the turn
	// edge's penalty
	total := source.ReverseWeight + target.ForwardWeight
	for _, edgeID := range path.Edges {
		total += f.Turn(edgeID).TurnPenalty
	}
	assert.Equal(t, total, path.Weight)

	// the unpacked sequence contains only original edges
	for _, edgeID := range path.Edges {
		assert.False(t, f.Edge(edgeID).Shortcut)
	}
}

// assembled steps carry the waypoint bookends and the right turn
func TestRouteSteps(t *testing.T) {
	f, resolver := tFixture(t)
	algorithm := routingalgorithm.NewRouteAlgorithm(f)
	assembler := guidance.NewStepAssembler(f)

	source := phantomAt(t, resolver, 0, 0.0005)
	target := phantomAt(t, resolver, -0.0005, 0.001)

	path, err := algorithm.ShortestPath(context.Background(), source, target)
	require.NoError(t, err)

	leg := assembler.Assemble(path, source, target)
	steps := guidance.PostProcess(leg.Steps, source, target)

	require.GreaterOrEqual(t, len(steps), 3)
	assert.Equal(t, datastructure.WAYPOINT_TYPE_DEPART, steps[0].Maneuver.WaypointType)
	assert.Equal(t, datastructure.WAYPOINT_TYPE_ARRIVE, steps[len(steps)-1].Maneuver.WaypointType)
	assert.Equal(t, "first", steps[0].Name)

	var sawRightTurn bool
	for _, step := range steps[1 : len(steps)-1] {
		assert.Equal(t, datastructure.WAYPOINT_TYPE_NONE, step.Maneuver.WaypointType)
		if step.Maneuver.Instruction.Type == datastructure.TURN_TYPE_TURN &&
			step.Maneuver.Instruction.Modifier == datastructure.DIRECTION_RIGHT {
			sawRightTurn = true
			assert.Equal(t, "second", step.Name)
		}
	}
	assert.True(t, sawRightTurn, "expected a right turn onto the stem")
}

// shortcuts from the offline contractor unpack back into original edges
func TestShortcutUnpacking(t *testing.T) {
	tables := &storage.RoutingTables{
		DirectedCount: 3,
		Edges: []datastructure.EdgeBasedEdge{
			datastructure.NewEdgeBasedEdge(0, 0, 1, 5, 50, true, false),
			datastructure.NewEdgeBasedEdge(1, 1, 2, 5, 50, true, false),
			datastructure.NewShortcutEdge(2, 0, 2, 10, 100, true, false, 1),
		},
		Turns: make([]datastructure.TurnData, 3),
	}
	tables.Checksum = tables.ComputeChecksum()
	f, err := facade.NewOwningFacade(tables)
	require.NoError(t, err)

	algorithm := routingalgorithm.NewRouteAlgorithm(f)
	source := &datastructure.PhantomNode{
		ForwardSegmentID: 0,
		ReverseSegmentID: datastructure.INVALID_NODE_ID,
	}
	target := &datastructure.PhantomNode{
		ForwardSegmentID: 2,
		ReverseSegmentID: datastructure.INVALID_NODE_ID,
	}

	path, err := algorithm.ShortestPath(context.Background(), source, target)
	require.NoError(t, err)
	assert.Equal(t, int32(10), path.Weight)

	require.Len(t, path.Edges, 2)
	for _, edgeID := range path.Edges {
		assert.False(t, f.Edge(edgeID).Shortcut, "emitted edge %d is still a shortcut", edgeID)
	}
	assert.Equal(t, []int32{0, 1, 2}, path.Nodes)
}

func TestNoRouteAcrossDisconnectedIslands(t *testing.T) {
	f, resolver := buildFacade(t,
		[]datastructure.NodeBasedNode{
			fixtureNode(0, 0), fixtureNode(0, 0.001),
			fixtureNode(0.01, 0), fixtureNode(0.01, 0.001),
		},
		[]datastructure.NodeBasedEdge{
			fixtureEdge(0, 1, 10, 1), fixtureEdge(2, 3, 10, 2),
		},
	)
	algorithm := routingalgorithm.NewRouteAlgorithm(f)

	source := phantomAt(t, resolver, 0, 0.0005)
	target := phantomAt(t, resolver, 0.01, 0.0005)

	_, err := algorithm.ShortestPath(context.Background(), source, target)
	assert.ErrorIs(t, err, routingalgorithm.ErrNoRoute)
}
