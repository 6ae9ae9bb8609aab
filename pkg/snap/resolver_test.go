package snap_test

import (
	"testing"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/engine/facade"
	"github.com/lintang-b-s/routex/pkg/extractor"
	"github.com/lintang-b-s/routex/pkg/osmparser"
	"github.com/lintang-b-s/routex/pkg/snap"
	"github.com/lintang-b-s/routex/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAnnotator struct{}

func (stubAnnotator) AnnotateIntersection(g *extractor.CompressedGraph, inEdge int32, via int32,
	outEdges []int32) []datastructure.TurnData {
	out := make([]datastructure.TurnData, len(outEdges))
	for i := range out {
		out[i] = datastructure.TurnData{Instruction: datastructure.SuppressedInstruction(datastructure.DIRECTION_STRAIGHT)}
	}
	return out
}

func buildResolver(t *testing.T, nodes []datastructure.NodeBasedNode,
	edges []datastructure.NodeBasedEdge, tinyLimit int) *snap.Resolver {
	t.Helper()
	log := zap.NewNop()

	g := &extractor.CompressedGraph{
		Nodes:            nodes,
		Edges:            edges,
		Names:            []string{"", "", "", ""},
		LaneDescriptions: []datastructure.LaneDescription{nil},
		LaneStrings:      []string{""},
	}
	extractor.NewCompressor(log).Compress(g)

	profile := osmparser.NewCarProfile()
	expander := extractor.NewEdgeExpander(stubAnnotator{}, profile.TurnPenalty, tinyLimit, 1, log)
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
	return snap.NewResolver(tree, f)
}

func node(lat, lon float64) datastructure.NodeBasedNode {
	return datastructure.NewNodeBasedNode(datastructure.NewCoordinate(lat, lon), 0, false, false)
}

func edge(source, target int32, weight int32) datastructure.NodeBasedEdge {
	return datastructure.NodeBasedEdge{
		Source:     source,
		Target:     target,
		Weight:     weight,
		Distance:   float64(weight) * 10,
		NameID:     0,
		RoadClass:  datastructure.ROAD_CLASS_PRIMARY,
		TravelMode: datastructure.TRAVEL_MODE_DRIVING,
		Forward:    true,
		Backward:   true,
		Startpoint: true,
		GeometryID: datastructure.INVALID_EDGE_ID,
	}
}

/*
chain compressed into one edge of total weight 30; a query next to the
middle of the second segment splits the weights 15/15.

	0 --10-- 1 --10-- 2 --10-- 3
*/
func TestProjectionSplitsWeights(t *testing.T) {
	resolver := buildResolver(t,
		[]datastructure.NodeBasedNode{node(0, 0), node(0, 0.001), node(0, 0.002), node(0, 0.003)},
		[]datastructure.NodeBasedEdge{edge(0, 1, 10), edge(1, 2, 10), edge(2, 3, 10)},
		2)

	candidates := resolver.Nearest(0.0001, 0.0015, snap.DefaultOptions())
	require.Len(t, candidates, 1)

	phantom := candidates[0]
	assert.Equal(t, int32(15), phantom.ForwardWeight)
	assert.Equal(t, int32(15), phantom.ReverseWeight)
	// the projection drops onto the line itself
	assert.InDelta(t, 0.0, phantom.Location.LatDeg(), 1e-5)
	assert.InDelta(t, 0.0015, phantom.Location.LonDeg(), 1e-5)
}

// the bearing filter disables the direction pointing the wrong way
func TestBearingFilter(t *testing.T) {
	resolver := buildResolver(t,
		[]datastructure.NodeBasedNode{node(0, 0), node(0, 0.001)},
		[]datastructure.NodeBasedEdge{edge(0, 1, 10)},
		1)

	opts := snap.DefaultOptions()
	opts.HasBearing = true
	opts.Bearing = 90 // eastbound only
	opts.BearingRange = 30

	candidates := resolver.Nearest(0.0001, 0.0005, opts)
	require.Len(t, candidates, 1)
	phantom := candidates[0]
	assert.True(t, phantom.ForwardEnabled())
	assert.False(t, phantom.ReverseEnabled())

	opts.Bearing = 270 // westbound only
	candidates = resolver.Nearest(0.0001, 0.0005, opts)
	require.Len(t, candidates, 1)
	phantom = candidates[0]
	assert.False(t, phantom.ForwardEnabled())
	assert.True(t, phantom.ReverseEnabled())
}

/*
the nearest candidate sits on a tiny island; the alternative must come
from the big component.

	0 --- 1        (tiny, 2 directed nodes)

	2 --- 3 --- 4  (big)
	      |
	      5
*/
func TestBigComponentAlternative(t *testing.T) {
	resolver := buildResolver(t,
		[]datastructure.NodeBasedNode{
			node(0, 0), node(0, 0.001),
			node(0.002, 0), node(0.002, 0.001), node(0.002, 0.002), node(0.001, 0.001),
		},
		[]datastructure.NodeBasedEdge{
			edge(0, 1, 10),
			edge(2, 3, 10), edge(3, 4, 10), edge(3, 5, 10),
		},
		4)

	// closer to the tiny island
	primary, alternative := resolver.NearestWithAlternative(0.0001, 0.0005, snap.DefaultOptions())
	require.NotNil(t, primary)
	assert.True(t, primary.IsTiny)
	require.NotNil(t, alternative)
	assert.False(t, alternative.IsTiny)
}
