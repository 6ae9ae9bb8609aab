package routingalgorithm

import (
	"context"
	"errors"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/engine/facade"
)

var (
	ErrNoRoute   = errors.New("no route found between the given locations")
	ErrCancelled = errors.New("query cancelled")
)

type cameFromPair struct {
	EdgeID int32
	Node   int32
}

// PathResult is the raw search outcome: the directed node sequence from
// source to target phantom and the original (unpacked) turn edges between
// them.
type PathResult struct {
	Nodes  []int32
	Edges  []int32
	Weight int32
}

type RouteAlgorithm struct {
	f facade.DataFacade
}

func NewRouteAlgorithm(f facade.DataFacade) *RouteAlgorithm {
	return &RouteAlgorithm{f: f}
}

// searchState is the per-direction scratch of one query.
type searchState struct {
	queue    *datastructure.MinHeap[int32]
	dist     map[int32]int32
	settled  map[int32]struct{}
	cameFrom map[int32]cameFromPair
}

func newSearchState() *searchState {
	return &searchState{
		queue:    datastructure.NewMinHeap[int32](),
		dist:     make(map[int32]int32),
		settled:  make(map[int32]struct{}),
		cameFrom: make(map[int32]cameFromPair),
	}
}

func (s *searchState) seed(node int32, weight int32) {
	if existing, ok := s.dist[node]; !ok || weight < existing {
		s.dist[node] = weight
		s.queue.DecreaseKey(datastructure.PriorityQueueNode[int32]{Rank: weight, Item: node})
		s.cameFrom[node] = cameFromPair{EdgeID: datastructure.INVALID_EDGE_ID, Node: datastructure.INVALID_NODE_ID}
	}
}

// ShortestPath runs the bidirectional search between two phantom nodes
// over the contracted edge-based graph.
//
// The forward key of a node is the cost from the source projection to the
// node's segment entry; seeds carry the negated already-consumed part of
// the phantom's own segment. The reverse key is the cost from a segment
// entry to the target projection. A node settled by both sides is a
// meeting candidate with total = forward + reverse key.
func (rt *RouteAlgorithm) ShortestPath(ctx context.Context, source, target *datastructure.PhantomNode) (*PathResult, error) {
	forward := newSearchState()
	backward := newSearchState()

	if source.ForwardEnabled() {
		forward.seed(source.ForwardSegmentID, -source.ForwardWeight)
	}
	if source.ReverseEnabled() {
		forward.seed(source.ReverseSegmentID, -source.ReverseWeight)
	}
	if target.ForwardEnabled() {
		backward.seed(target.ForwardSegmentID, target.ForwardWeight)
	}
	if target.ReverseEnabled() {
		backward.seed(target.ReverseSegmentID, target.ReverseWeight)
	}

	best := datastructure.INVALID_WEIGHT
	meeting := datastructure.INVALID_NODE_ID

	checkMeeting := func(node int32) {
		df, okF := forward.dist[node]
		db, okB := backward.dist[node]
		if !okF || !okB {
			return
		}
		_, settledF := forward.settled[node]
		_, settledB := backward.settled[node]
		if !settledF && !settledB {
			return
		}
		total := df + db
		if total < 0 {
			// same-edge seeding where the target projection lies behind
			// the source; the route has to loop, the candidate is bogus
			return
		}
		if total < best {
			best = total
			meeting = node
		}
	}

	pops := 0
	for forward.queue.Size() > 0 || backward.queue.Size() > 0 {
		pops++
		if pops&63 == 0 {
			select {
			case <-ctx.Done():
				return nil, ErrCancelled
			default:
			}
		}

		frontier, other, isForward := rt.pickFrontier(forward, backward)
		if frontier == nil {
			break
		}

		top, _ := frontier.queue.GetMin()
		if best != datastructure.INVALID_WEIGHT && top.Rank >= best {
			// this side is exhausted; drain the other or stop
			frontier.queue.Clear()
			if other.queue.Size() == 0 {
				break
			}
			continue
		}

		node, _ := frontier.queue.ExtractMin()
		frontier.settled[node.Item] = struct{}{}
		checkMeeting(node.Item)

		if rt.stalled(frontier, node.Item, isForward) {
			continue
		}

		rt.relax(frontier, node.Item, isForward)
	}

	if meeting == datastructure.INVALID_NODE_ID {
		return nil, ErrNoRoute
	}

	return rt.buildPath(forward, backward, meeting, best)
}

// pickFrontier pops from the queue with the smaller top key; equal keys
// prefer forward for determinism.
func (rt *RouteAlgorithm) pickFrontier(forward, backward *searchState) (*searchState, *searchState, bool) {
	ftop, fok := forward.queue.GetMin()
	btop, bok := backward.queue.GetMin()
	switch {
	case fok && bok:
		if ftop.Rank <= btop.Rank {
			return forward, backward, true
		}
		return backward, forward, false
	case fok:
		return forward, backward, true
	case bok:
		return backward, forward, false
	default:
		return nil, nil, false
	}
}

// stalled applies stall-on-demand: when an opposite-direction edge proves
// a shorter path to the popped node, the pop was premature. Core nodes are
// uncontracted and never stall.
func (rt *RouteAlgorithm) stalled(state *searchState, node int32, isForward bool) bool {
	if rt.f.IsCore(node) {
		return false
	}
	var edges []int32
	if isForward {
		edges = rt.f.InEdges(node)
	} else {
		edges = rt.f.OutEdges(node)
	}
	for _, edgeID := range edges {
		e := rt.f.Edge(edgeID)
		neighbor := e.Source
		if neighbor == node {
			neighbor = e.Target
		}
		if d, ok := state.dist[neighbor]; ok {
			if _, settled := state.settled[neighbor]; settled && d+e.Weight < state.dist[node] {
				return true
			}
		}
	}
	return false
}

func (rt *RouteAlgorithm) relax(state *searchState, node int32, isForward bool) {
	var edges []int32
	if isForward {
		edges = rt.f.OutEdges(node)
	} else {
		edges = rt.f.InEdges(node)
	}

	for _, edgeID := range edges {
		e := rt.f.Edge(edgeID)

		var neighbor int32
		if isForward {
			if e.Source == node && e.Forward {
				neighbor = e.Target
			} else if e.Target == node && e.Backward {
				neighbor = e.Source
			} else {
				continue
			}
		} else {
			if e.Target == node && e.Forward {
				neighbor = e.Source
			} else if e.Source == node && e.Backward {
				neighbor = e.Target
			} else {
				continue
			}
		}

		if _, ok := state.settled[neighbor]; ok {
			continue
		}

		newDist := state.dist[node] + e.Weight
		if existing, ok := state.dist[neighbor]; !ok || newDist < existing {
			state.dist[neighbor] = newDist
			state.queue.DecreaseKey(datastructure.PriorityQueueNode[int32]{Rank: newDist, Item: neighbor})
			state.cameFrom[neighbor] = cameFromPair{EdgeID: edgeID, Node: node}
		}
	}
}

// buildPath stitches the two half-paths at the meeting node and unpacks
// every shortcut into original edges.
func (rt *RouteAlgorithm) buildPath(forward, backward *searchState, meeting int32, weight int32) (*PathResult, error) {
	// forward half, reversed walk meeting -> source
	var forwardEdges []int32
	node := meeting
	for {
		pair, ok := forward.cameFrom[node]
		if !ok || pair.Node == datastructure.INVALID_NODE_ID {
			break
		}
		forwardEdges = append(forwardEdges, pair.EdgeID)
		node = pair.Node
	}
	sourceNode := node
	// reverse in place to get source -> meeting order
	for i, j := 0, len(forwardEdges)-1; i < j; i, j = i+1, j-1 {
		forwardEdges[i], forwardEdges[j] = forwardEdges[j], forwardEdges[i]
	}

	var backwardEdges []int32
	node = meeting
	for {
		pair, ok := backward.cameFrom[node]
		if !ok || pair.Node == datastructure.INVALID_NODE_ID {
			break
		}
		backwardEdges = append(backwardEdges, pair.EdgeID)
		node = pair.Node
	}

	result := &PathResult{Weight: weight}
	result.Nodes = append(result.Nodes, sourceNode)

	current := sourceNode
	appendEdge := func(edgeID int32) {
		current = rt.unpackInto(edgeID, current, result)
	}
	for _, edgeID := range forwardEdges {
		appendEdge(edgeID)
	}
	for _, edgeID := range backwardEdges {
		appendEdge(edgeID)
	}

	return result, nil
}

// unpackInto expands edgeID (walking away from the `from` node) into
// original edges, appending them and the visited nodes; returns the far
// endpoint.
func (rt *RouteAlgorithm) unpackInto(edgeID int32, from int32, result *PathResult) int32 {
	e := rt.f.Edge(edgeID)
	to := e.Target
	if to == from {
		to = e.Source
	}

	if !e.Shortcut {
		result.Edges = append(result.Edges, edgeID)
		result.Nodes = append(result.Nodes, to)
		return to
	}

	first := rt.f.FindEdge(from, e.ViaNode)
	second := rt.f.FindEdge(e.ViaNode, to)
	if first == datastructure.INVALID_EDGE_ID || second == datastructure.INVALID_EDGE_ID {
		// torn contraction data; surface the shortcut as-is
		result.Edges = append(result.Edges, edgeID)
		result.Nodes = append(result.Nodes, to)
		return to
	}
	rt.unpackInto(first, from, result)
	return rt.unpackInto(second, e.ViaNode, result)
}
