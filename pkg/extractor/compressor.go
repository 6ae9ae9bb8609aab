package extractor

import (
	"github.com/lintang-b-s/routex/pkg/datastructure"
	"go.uber.org/zap"
)

// CompressedGraph is the node-based graph after degree-two chains were
// collapsed. Every surviving edge has a geometry id; the inner node
// sequence and cumulative weights live in the packed geometry table.
type CompressedGraph struct {
	Nodes        []datastructure.NodeBasedNode
	Edges        []datastructure.NodeBasedEdge
	Geometry     *datastructure.CompressedGeometry
	Restrictions []datastructure.TurnRestriction

	Names            []string
	LaneDescriptions []datastructure.LaneDescription
	LaneStrings      []string

	// adjacency over Edges, per node
	firstEdge [][]int32
}

func (g *CompressedGraph) IncidentEdges(node int32) []int32 {
	return g.firstEdge[node]
}

// OutgoingRoads lists edges traversable away from the node.
func (g *CompressedGraph) OutgoingRoads(node int32) []int32 {
	out := make([]int32, 0, len(g.firstEdge[node]))
	for _, edgeID := range g.firstEdge[node] {
		edge := g.Edges[edgeID]
		if (edge.Source == node && edge.Forward) || (edge.Target == node && edge.Backward) {
			out = append(out, edgeID)
		}
	}
	return out
}

func (g *CompressedGraph) EdgeOtherEnd(edgeID, node int32) int32 {
	edge := g.Edges[edgeID]
	if edge.Source == node {
		return edge.Target
	}
	return edge.Source
}

func (g *CompressedGraph) buildAdjacency() {
	g.firstEdge = make([][]int32, len(g.Nodes))
	for i, edge := range g.Edges {
		g.firstEdge[edge.Source] = append(g.firstEdge[edge.Source], int32(i))
		g.firstEdge[edge.Target] = append(g.firstEdge[edge.Target], int32(i))
	}
}

func (g *CompressedGraph) Name(nameID int32) string {
	return g.Names[nameID*4]
}

// GeometryCoordinates expands a directed traversal of an edge into its
// full coordinate chain including both endpoints. The packed geometry
// always opens with the edge source.
func (g *CompressedGraph) GeometryCoordinates(edgeID int32, fromNode int32) []datastructure.Coordinate {
	edge := g.Edges[edgeID]
	chain := g.Geometry.Nodes(edge.GeometryID)
	coords := make([]datastructure.Coordinate, 0, len(chain))
	for _, n := range chain {
		coords = append(coords, g.Nodes[n].Coord)
	}
	if fromNode != edge.Source {
		for i, j := 0, len(coords)-1; i < j; i, j = i+1, j-1 {
			coords[i], coords[j] = coords[j], coords[i]
		}
	}
	return coords
}

type Compressor struct {
	log *zap.Logger
}

func NewCompressor(log *zap.Logger) *Compressor {
	return &Compressor{log: log}
}

// Compress collapses every maximal chain of degree-two nodes into a single
// edge, preserving total weight and distance and recording the inner node
// sequence in the packed geometry table. Restrictions whose from/to node
// was an inner chain node are rewritten to the surviving chain endpoint.
func (c *Compressor) Compress(graph *CompressedGraph) {
	graph.buildAdjacency()

	restrictionVia := make(map[int32]struct{})
	for _, r := range graph.Restrictions {
		if r.Valid {
			restrictionVia[r.ViaNode] = struct{}{}
		}
	}

	removed := make([]bool, len(graph.Edges))
	// chainOf[edge][0] = node sequence source..target of the stored
	// orientation, weights aligned per segment
	chainNodes := make(map[int32][]int32)
	chainWeights := make(map[int32][]int32)

	compressedCount := 0
	for node := int32(0); node < int32(len(graph.Nodes)); node++ {
		if !c.canCollapse(graph, node, restrictionVia) {
			continue
		}
		incident := graph.firstEdge[node]
		left, right := incident[0], incident[1]
		if removed[left] || removed[right] || left == right {
			continue
		}

		merged, ok := c.mergeAt(graph, node, left, right, chainNodes, chainWeights)
		if !ok {
			continue
		}

		// the merged edge replaces left; right is gone
		removed[right] = true
		graph.Edges[left] = merged.edge
		chainNodes[left] = merged.nodes
		chainWeights[left] = merged.weights

		// rewire adjacency: node keeps nothing, the far endpoint of
		// right now touches left
		c.replaceIncident(graph, merged.farNode, right, left)
		graph.firstEdge[node] = nil

		// restrictions adjacent to the vanished node move to the
		// surviving endpoints
		c.fixupRestrictions(graph, node, merged)

		compressedCount++
	}

	c.pack(graph, removed, chainNodes, chainWeights)
	c.log.Info("compressed degree-two chains",
		zap.Int("collapsed_nodes", compressedCount),
		zap.Int("edges", len(graph.Edges)))
}

func (c *Compressor) canCollapse(graph *CompressedGraph, node int32, restrictionVia map[int32]struct{}) bool {
	if graph.Nodes[node].Barrier || graph.Nodes[node].TrafficSignal {
		return false
	}
	if _, ok := restrictionVia[node]; ok {
		return false
	}
	incident := graph.firstEdge[node]
	if len(incident) != 2 {
		return false
	}
	a, b := graph.Edges[incident[0]], graph.Edges[incident[1]]
	if a.NameID != b.NameID || a.TravelMode != b.TravelMode ||
		a.RoadClass != b.RoadClass || a.TurnLaneID != b.TurnLaneID ||
		a.Roundabout != b.Roundabout || a.IsSplit != b.IsSplit {
		return false
	}
	return true
}

type mergedChain struct {
	edge    datastructure.NodeBasedEdge
	nodes   []int32 // inner nodes source..target order
	weights []int32 // per inner node: cumulative weight at that node
	farNode int32
}

// mergeAt merges the two incident edges of a degree-two node into one
// chain edge spanning from left's far endpoint to right's far endpoint.
func (c *Compressor) mergeAt(graph *CompressedGraph, node, left, right int32,
	chainNodes map[int32][]int32, chainWeights map[int32][]int32) (mergedChain, bool) {

	leftEdge := graph.Edges[left]
	rightEdge := graph.Edges[right]

	leftFar := graph.EdgeOtherEnd(left, node)
	rightFar := graph.EdgeOtherEnd(right, node)
	if leftFar == rightFar {
		// collapsing would produce a loop edge
		return mergedChain{}, false
	}

	// direction flags seen walking leftFar -> node -> rightFar
	leftForward, leftBackward := directedFlags(leftEdge, leftFar)
	rightForward, rightBackward := directedFlags(rightEdge, node)
	forward := leftForward && rightForward
	backward := leftBackward && rightBackward
	if !forward && !backward {
		return mergedChain{}, false
	}

	// chains expressed in walking order leftFar -> rightFar
	leftChainNodes, leftChainWeights := chainInWalkOrder(graph, left, leftFar, chainNodes, chainWeights)
	rightChainNodes, rightChainWeights := chainInWalkOrder(graph, right, node, chainNodes, chainWeights)

	nodes := make([]int32, 0, len(leftChainNodes)+1+len(rightChainNodes))
	weights := make([]int32, 0, cap(nodes))
	nodes = append(nodes, leftChainNodes...)
	weights = append(weights, leftChainWeights...)
	nodes = append(nodes, node)
	weights = append(weights, leftEdge.Weight)
	base := leftEdge.Weight
	for i := range rightChainNodes {
		nodes = append(nodes, rightChainNodes[i])
		weights = append(weights, base+rightChainWeights[i])
	}

	merged := leftEdge
	merged.Source = leftFar
	merged.Target = rightFar
	merged.Weight = leftEdge.Weight + rightEdge.Weight
	merged.Distance = leftEdge.Distance + rightEdge.Distance
	merged.Forward = forward
	merged.Backward = backward

	if merged.Source > merged.Target {
		merged.Reverse()
		reverseChain(nodes, weights, merged.Weight)
	}

	return mergedChain{edge: merged, nodes: nodes, weights: weights, farNode: rightFar}, true
}

// directedFlags returns (forward, backward) for a traversal of edge
// starting at from.
func directedFlags(edge datastructure.NodeBasedEdge, from int32) (bool, bool) {
	if edge.Source == from {
		return edge.Forward, edge.Backward
	}
	return edge.Backward, edge.Forward
}

// chainInWalkOrder returns the inner chain of an edge oriented so the walk
// starts at from. Weights are cumulative from the walk start.
func chainInWalkOrder(graph *CompressedGraph, edgeID, from int32,
	chainNodes map[int32][]int32, chainWeights map[int32][]int32) ([]int32, []int32) {
	edge := graph.Edges[edgeID]
	nodes := append([]int32(nil), chainNodes[edgeID]...)
	weights := append([]int32(nil), chainWeights[edgeID]...)
	if edge.Source != from {
		reverseChain(nodes, weights, edge.Weight)
	}
	return nodes, weights
}

// reverseChain flips a cumulative-weight chain in place: node order
// reverses and each cumulative weight w becomes total-w.
func reverseChain(nodes []int32, weights []int32, total int32) {
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
		weights[i], weights[j] = weights[j], weights[i]
	}
	for i := range weights {
		weights[i] = total - weights[i]
	}
}

func (c *Compressor) replaceIncident(graph *CompressedGraph, node, oldEdge, newEdge int32) {
	incident := graph.firstEdge[node]
	for i, e := range incident {
		if e == oldEdge {
			incident[i] = newEdge
		}
	}
}

func (c *Compressor) fixupRestrictions(graph *CompressedGraph, vanished int32, merged mergedChain) {
	for i := range graph.Restrictions {
		r := &graph.Restrictions[i]
		if !r.Valid {
			continue
		}
		if r.FromNode == vanished {
			if r.ViaNode == merged.edge.Source {
				r.FromNode = merged.edge.Target
			} else {
				r.FromNode = merged.edge.Source
			}
		}
		if r.ToNode == vanished {
			if r.ViaNode == merged.edge.Source {
				r.ToNode = merged.edge.Target
			} else {
				r.ToNode = merged.edge.Source
			}
		}
	}
}

// pack drops removed edges and freezes chains into the packed geometry
// table. Every surviving edge gets a geometry id; the closing entry is the
// edge target so geometry[id..id+1] always brackets a full traversal.
func (c *Compressor) pack(graph *CompressedGraph, removed []bool,
	chainNodes map[int32][]int32, chainWeights map[int32][]int32) {

	geometry := datastructure.NewCompressedGeometry()
	packed := make([]datastructure.NodeBasedEdge, 0, len(graph.Edges))
	for i := range graph.Edges {
		if removed[i] {
			continue
		}
		edge := graph.Edges[i]

		nodes := chainNodes[int32(i)]
		weights := chainWeights[int32(i)]
		entries := make([]datastructure.GeometryEntry, 0, len(nodes)+2)
		entries = append(entries, datastructure.GeometryEntry{
			NodeID:           edge.Source,
			CumulativeWeight: 0,
		})
		for j := range nodes {
			entries = append(entries, datastructure.GeometryEntry{
				NodeID:           nodes[j],
				CumulativeWeight: weights[j],
			})
		}
		entries = append(entries, datastructure.GeometryEntry{
			NodeID:           edge.Target,
			CumulativeWeight: edge.Weight,
		})

		edge.GeometryID = geometry.Append(entries)
		packed = append(packed, edge)
	}

	graph.Edges = packed
	graph.Geometry = geometry
	graph.buildAdjacency()
}
