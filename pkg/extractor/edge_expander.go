package extractor

import (
	"github.com/lintang-b-s/routex/pkg/concurrent"
	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/geo"
	"go.uber.org/zap"
)

// IntersectionAnnotator assigns a TurnData to every legal turn of one
// in-edge at a via node. outEdges lists the candidate out edge ids in the
// same order the returned annotations must follow.
type IntersectionAnnotator interface {
	AnnotateIntersection(g *CompressedGraph, inEdge int32, via int32, outEdges []int32) []datastructure.TurnData
}

// ExpandedGraph is the edge-based graph: one directed node per traversable
// direction of each compressed edge, one edge per legal turn.
type ExpandedGraph struct {
	// Nodes has one entry per compressed edge carrying both direction ids.
	Nodes []datastructure.EdgeBasedNode
	// DirectedCount is the routing-graph node count.
	DirectedCount int32
	Edges         []datastructure.EdgeBasedEdge
	Turns         []datastructure.TurnData

	// directed id -> compressed edge id / direction
	SegmentEdge      []int32
	SegmentIsForward []bool
}

type EdgeExpander struct {
	log       *zap.Logger
	annotator IntersectionAnnotator
	penaltyFn func(angleDeg float64) int32
	tinyLimit int
	threads   int
}

func NewEdgeExpander(annotator IntersectionAnnotator, penaltyFn func(float64) int32,
	smallComponentSize, threads int, log *zap.Logger) *EdgeExpander {
	return &EdgeExpander{
		log:       log,
		annotator: annotator,
		penaltyFn: penaltyFn,
		tinyLimit: smallComponentSize,
		threads:   threads,
	}
}

// EntryBearing is the bearing of the final geometry segment of a directed
// traversal of edgeID starting at fromNode.
func EntryBearing(g *CompressedGraph, edgeID, fromNode int32) float64 {
	coords := g.GeometryCoordinates(edgeID, fromNode)
	last := coords[len(coords)-1]
	prev := coords[len(coords)-2]
	return geo.BearingTo(prev.LatDeg(), prev.LonDeg(), last.LatDeg(), last.LonDeg())
}

// ExitBearing is the bearing of the first geometry segment of a directed
// traversal of edgeID starting at fromNode.
func ExitBearing(g *CompressedGraph, edgeID, fromNode int32) float64 {
	coords := g.GeometryCoordinates(edgeID, fromNode)
	return geo.BearingTo(coords[0].LatDeg(), coords[0].LonDeg(), coords[1].LatDeg(), coords[1].LonDeg())
}

// Expand promotes every directed compressed edge to an edge-based node and
// emits one edge-based edge per legal turn, annotated by the guidance
// annotator. Components are classified afterwards.
func (ex *EdgeExpander) Expand(g *CompressedGraph) *ExpandedGraph {
	expanded := &ExpandedGraph{}

	restrictionIndex := datastructure.NewRestrictionIndex(g.Restrictions)

	// directed segment ids
	forwardID := make([]int32, len(g.Edges))
	reverseID := make([]int32, len(g.Edges))
	next := int32(0)
	for i, edge := range g.Edges {
		forwardID[i] = datastructure.INVALID_NODE_ID
		reverseID[i] = datastructure.INVALID_NODE_ID
		if edge.Forward {
			forwardID[i] = next
			expanded.SegmentEdge = append(expanded.SegmentEdge, int32(i))
			expanded.SegmentIsForward = append(expanded.SegmentIsForward, true)
			next++
		}
		if edge.Backward {
			reverseID[i] = next
			expanded.SegmentEdge = append(expanded.SegmentEdge, int32(i))
			expanded.SegmentIsForward = append(expanded.SegmentIsForward, false)
			next++
		}
	}
	expanded.DirectedCount = next

	expanded.Nodes = make([]datastructure.EdgeBasedNode, len(g.Edges))
	for i, edge := range g.Edges {
		mid := representativeCoordinate(g, int32(i))
		expanded.Nodes[i] = datastructure.EdgeBasedNode{
			ForwardSegmentID: forwardID[i],
			ReverseSegmentID: reverseID[i],
			NameID:           edge.NameID,
			GeometryID:       edge.GeometryID,
			ForwardWeight:    edge.Weight,
			ReverseWeight:    edge.Weight,
			Coord:            mid,
			TravelMode:       edge.TravelMode,
			Startpoint:       edge.Startpoint,
		}
	}

	ex.expandAllVias(g, restrictionIndex, forwardID, reverseID, expanded)

	ex.assignComponents(expanded)

	ex.log.Info("edge expansion done",
		zap.Int32("edge_based_nodes", expanded.DirectedCount),
		zap.Int("turn_edges", len(expanded.Edges)))

	return expanded
}

// directedID returns the routing node id of traversing edgeID arriving at
// or leaving a node; enteringVia true means the traversal ends at via.
func directedID(g *CompressedGraph, edgeID, via int32, enteringVia bool,
	forwardID, reverseID []int32) int32 {
	edge := g.Edges[edgeID]
	if enteringVia {
		if edge.Target == via {
			return forwardID[edgeID]
		}
		return reverseID[edgeID]
	}
	if edge.Source == via {
		return forwardID[edgeID]
	}
	return reverseID[edgeID]
}

type pendingTurn struct {
	edge datastructure.EdgeBasedEdge
	turn datastructure.TurnData
}

type viaJob struct {
	lo, hi int32
}

// expandAllVias fans the via nodes over a worker pool in fixed buffers;
// results are merged back in buffer order so edge ids stay deterministic.
func (ex *EdgeExpander) expandAllVias(g *CompressedGraph,
	restrictions *datastructure.RestrictionIndex,
	forwardID, reverseID []int32, expanded *ExpandedGraph) {

	const bufferSize = 4096
	numVias := int32(len(g.Nodes))
	numJobs := int(numVias+bufferSize-1) / bufferSize

	workers := ex.threads
	if workers <= 0 {
		workers = 1
	}

	pool := concurrent.NewWorkerPool[concurrent.Job[viaJob], concurrent.Job[[]pendingTurn]](workers, numJobs)
	pool.Start(func(job concurrent.Job[viaJob]) concurrent.Job[[]pendingTurn] {
		var turns []pendingTurn
		for via := job.JobItem.lo; via < job.JobItem.hi; via++ {
			turns = append(turns, ex.expandVia(g, via, restrictions, forwardID, reverseID)...)
		}
		return concurrent.NewJob(job.ID, turns)
	})

	for jobID := 0; jobID < numJobs; jobID++ {
		lo := int32(jobID) * bufferSize
		hi := lo + bufferSize
		if hi > numVias {
			hi = numVias
		}
		pool.AddJob(concurrent.NewJob(jobID, viaJob{lo: lo, hi: hi}))
	}
	pool.Close()
	pool.Wait()

	ordered := make([][]pendingTurn, numJobs)
	for result := range pool.CollectResults() {
		ordered[result.ID] = result.JobItem
	}

	for _, buffer := range ordered {
		for _, pending := range buffer {
			pending.edge.EdgeID = int32(len(expanded.Edges))
			expanded.Edges = append(expanded.Edges, pending.edge)
			expanded.Turns = append(expanded.Turns, pending.turn)
		}
	}
}

func (ex *EdgeExpander) expandVia(g *CompressedGraph, via int32,
	restrictions *datastructure.RestrictionIndex,
	forwardID, reverseID []int32) []pendingTurn {

	incident := g.IncidentEdges(via)
	outgoing := g.OutgoingRoads(via)
	var result []pendingTurn

	for _, inEdgeID := range incident {
		inID := directedID(g, inEdgeID, via, true, forwardID, reverseID)
		if inID == datastructure.INVALID_NODE_ID {
			continue
		}
		inFrom := g.EdgeOtherEnd(inEdgeID, via)

		legalOut := make([]int32, 0, len(outgoing))
		for _, outEdgeID := range outgoing {
			outTo := g.EdgeOtherEnd(outEdgeID, via)

			if outEdgeID == inEdgeID {
				// u-turn back over the same edge, only at dead ends
				if len(outgoing) > 1 {
					continue
				}
			} else if outTo == inFrom && len(outgoing) > 1 {
				// u-turn via a parallel edge
				continue
			}

			if restrictions.IsTurnRestricted(inFrom, via, outTo) {
				continue
			}
			legalOut = append(legalOut, outEdgeID)
		}

		if len(legalOut) == 0 {
			continue
		}

		annotations := ex.annotator.AnnotateIntersection(g, inEdgeID, via, legalOut)

		inBearing := EntryBearing(g, inEdgeID, inFrom)
		inWeight := g.Edges[inEdgeID].Weight
		inDistance := g.Edges[inEdgeID].Distance

		for k, outEdgeID := range legalOut {
			outID := directedID(g, outEdgeID, via, false, forwardID, reverseID)
			if outID == datastructure.INVALID_NODE_ID {
				continue
			}

			outBearing := ExitBearing(g, outEdgeID, via)
			deviation := geo.AngularDeviation(geo.AngleBetween(inBearing, outBearing), 180.0)
			penalty := ex.penaltyFn(deviation)

			turn := annotations[k]
			turn.TurnPenalty = penalty
			turn.PreTurnBearing = inBearing
			turn.PostTurnBearing = outBearing

			result = append(result, pendingTurn{
				edge: datastructure.NewEdgeBasedEdge(
					datastructure.INVALID_EDGE_ID, inID, outID, inWeight+penalty, inDistance, true, false),
				turn: turn,
			})
		}
	}
	return result
}

// representativeCoordinate picks the midpoint-ish inner coordinate used
// for component snapping previews.
func representativeCoordinate(g *CompressedGraph, edgeID int32) datastructure.Coordinate {
	coords := g.GeometryCoordinates(edgeID, g.Edges[edgeID].Source)
	return coords[len(coords)/2]
}

// assignComponents runs Tarjan SCC over the turn graph and marks tiny
// components. Both directions of one edge-based node always share the
// forward direction's component.
func (ex *EdgeExpander) assignComponents(expanded *ExpandedGraph) {
	adjacency := make([][]int32, expanded.DirectedCount)
	for _, e := range expanded.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	componentOf, sizes := TarjanSCC(adjacency)

	for i := range expanded.Nodes {
		node := &expanded.Nodes[i]
		directed := node.ForwardSegmentID
		if directed == datastructure.INVALID_NODE_ID {
			directed = node.ReverseSegmentID
		}
		if directed == datastructure.INVALID_NODE_ID {
			continue
		}
		component := componentOf[directed]
		node.ComponentID = uint32(component)
		node.IsTiny = sizes[component] < ex.tinyLimit
	}
}
