package extractor

import (
	"testing"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// plainAnnotator assigns a bare turn instruction to every legal turn.
type plainAnnotator struct{}

func (plainAnnotator) AnnotateIntersection(g *CompressedGraph, inEdge int32, via int32,
	outEdges []int32) []datastructure.TurnData {
	out := make([]datastructure.TurnData, len(outEdges))
	for i := range out {
		out[i] = datastructure.TurnData{
			Instruction: datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_TURN, datastructure.DIRECTION_STRAIGHT),
		}
	}
	return out
}

func noPenalty(float64) int32 { return 0 }

func expand(t *testing.T, g *CompressedGraph) *ExpandedGraph {
	t.Helper()
	NewCompressor(zap.NewNop()).Compress(g)
	expander := NewEdgeExpander(plainAnnotator{}, noPenalty, 2, 1, zap.NewNop())
	return expander.Expand(g)
}

/*
T intersection, all bidirectional:

	0 --- 1 --- 2
	      |
	      3
*/
func tGraph() *CompressedGraph {
	return testGraph(
		[]datastructure.NodeBasedNode{
			testNode(0, 0), testNode(0, 0.001), testNode(0, 0.002), testNode(-0.001, 0.001),
		},
		[]datastructure.NodeBasedEdge{
			testEdge(0, 1, 10), testEdge(1, 2, 10), testEdge(1, 3, 10),
		},
	)
}

func TestExpandCreatesDirectedNodePerDirection(t *testing.T) {
	expanded := expand(t, tGraph())

	// three bidirectional compressed edges -> six directed nodes
	assert.Equal(t, int32(6), expanded.DirectedCount)
	assert.Len(t, expanded.Nodes, 3)
	for _, node := range expanded.Nodes {
		// every edge-based node has at least one enabled direction
		assert.True(t, node.ForwardEnabled() || node.ReverseEnabled())
	}
}

func TestExpandForbidsUTurnsAtThroughNodes(t *testing.T) {
	g := tGraph()
	expanded := expand(t, g)

	for _, turnEdge := range expanded.Edges {
		inEdge := expanded.SegmentEdge[turnEdge.Source]
		outEdge := expanded.SegmentEdge[turnEdge.Target]
		if inEdge == outEdge {
			// u-turn over the same compressed edge: only legal at the
			// dead ends (nodes 0, 2, 3), where exactly one road leaves
			inForward := expanded.SegmentIsForward[turnEdge.Source]
			outForward := expanded.SegmentIsForward[turnEdge.Target]
			assert.NotEqual(t, inForward, outForward)

			edge := g.Edges[inEdge]
			via := edge.Target
			if !inForward {
				via = edge.Source
			}
			assert.NotEqual(t, int32(1), via, "u-turn at the through node 1")
		}
	}
}

/*
no_* restriction (0,1,2) removes exactly the straight-through turn:

	0 --- 1 --- 2
	      |
	      3
*/
func TestExpandHonorsNoRestriction(t *testing.T) {
	withRestriction := tGraph()
	withRestriction.Restrictions = []datastructure.TurnRestriction{{
		FromNode: 0, ViaNode: 1, ToNode: 2, Valid: true,
	}}
	restricted := expand(t, withRestriction)

	free := expand(t, tGraph())
	assert.Equal(t, len(free.Edges)-1, len(restricted.Edges))
}

// only_* restriction keeps just the mandatory target
func TestExpandHonorsOnlyRestriction(t *testing.T) {
	g := tGraph()
	g.Restrictions = []datastructure.TurnRestriction{{
		FromNode: 0, ViaNode: 1, ToNode: 3, OnlyTurn: true, Valid: true,
	}}
	expanded := expand(t, g)

	// from edge (0,1) the only turn at node 1 goes onto edge (1,3)
	for _, turnEdge := range expanded.Edges {
		inEdgeID := expanded.SegmentEdge[turnEdge.Source]
		if inEdgeID != 0 || !expanded.SegmentIsForward[turnEdge.Source] {
			continue
		}
		outEdgeID := expanded.SegmentEdge[turnEdge.Target]
		assert.Equal(t, int32(2), outEdgeID, "only_* must force the turn onto edge (1,3)")
	}
}

/*
two disconnected islands; the small one must be marked tiny.

	0 --- 1 --- 2     4 --- 5
	      |
	      3
*/
func TestExpandMarksTinyComponents(t *testing.T) {
	nodes := []datastructure.NodeBasedNode{
		testNode(0, 0), testNode(0, 0.001), testNode(0, 0.002), testNode(-0.001, 0.001),
		testNode(1, 1), testNode(1, 1.001),
	}
	edges := []datastructure.NodeBasedEdge{
		testEdge(0, 1, 10), testEdge(1, 2, 10), testEdge(1, 3, 10),
		testEdge(4, 5, 10),
	}
	g := testGraph(nodes, edges)

	NewCompressor(zap.NewNop()).Compress(g)
	expander := NewEdgeExpander(plainAnnotator{}, noPenalty, 3, 1, zap.NewNop())
	expanded := expander.Expand(g)

	require.Len(t, expanded.Nodes, 4)

	var tinyCount, bigCount int
	for _, node := range expanded.Nodes {
		if node.IsTiny {
			tinyCount++
		} else {
			bigCount++
		}
	}
	assert.Equal(t, 1, tinyCount, "the isolated 4-5 edge is below the component threshold")
	assert.Equal(t, 3, bigCount)
}

func TestExpandTurnWeightIncludesPenalty(t *testing.T) {
	g := tGraph()
	NewCompressor(zap.NewNop()).Compress(g)
	expander := NewEdgeExpander(plainAnnotator{}, func(float64) int32 { return 7 }, 2, 1, zap.NewNop())
	expanded := expander.Expand(g)

	for _, turnEdge := range expanded.Edges {
		inEdge := g.Edges[expanded.SegmentEdge[turnEdge.Source]]
		assert.Equal(t, inEdge.Weight+7, turnEdge.Weight)
	}
}
