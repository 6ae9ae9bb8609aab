package osmparser

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"go.uber.org/zap"
)

var (
	ErrTooManyNodes = errors.New("road network exceeds the internal node id space")
)

// ExtractionGraph is the compact internal graph: dense node ids, oriented
// deduplicated edges, resolved restrictions, and the interned string
// tables.
type ExtractionGraph struct {
	Nodes        []datastructure.NodeBasedNode
	Edges        []datastructure.NodeBasedEdge
	Restrictions []datastructure.TurnRestriction

	// Names holds 4 strings per name id: name, destinations,
	// pronunciation, ref.
	Names []string

	LaneDescriptions []datastructure.LaneDescription
	LaneStrings      []string
}

const nameStride = 4

func (g *ExtractionGraph) Name(nameID int32) string {
	return g.Names[nameID*nameStride]
}

func (g *ExtractionGraph) Ref(nameID int32) string {
	return g.Names[nameID*nameStride+3]
}

type GraphBuilder struct {
	log *zap.Logger

	nameIDs map[string]int32
	laneIDs map[string]int32
}

func NewGraphBuilder(log *zap.Logger) *GraphBuilder {
	return &GraphBuilder{
		log:     log,
		nameIDs: make(map[string]int32),
		laneIDs: make(map[string]int32),
	}
}

// Build runs the graph-builder pipeline: dense id assignment, weight
// computation, orientation, duplicate-edge reduction, and restriction
// resolution. Inconsistent rows are invalidated and skipped; the run only
// fails on hard limits.
func (b *GraphBuilder) Build(parsed *ParsedData) (*ExtractionGraph, error) {
	graph := &ExtractionGraph{}

	// reserve name id 0 / lane id 0 for "no value"
	b.internName(graph, "", "", "", "")
	b.internLanes(graph, "")

	// collect referenced node ids, sort, deduplicate
	referenced := make([]int64, 0, len(parsed.Nodes))
	for _, n := range parsed.Nodes {
		referenced = append(referenced, n.OsmID)
	}
	sort.Slice(referenced, func(i, j int) bool { return referenced[i] < referenced[j] })
	referenced = dedupSortedInt64(referenced)

	if len(referenced) > math.MaxInt32 {
		return nil, ErrTooManyNodes
	}

	// external -> internal by position in the sorted unique list
	internalID := make(map[int64]int32, len(referenced))
	for i, osmID := range referenced {
		internalID[osmID] = int32(i)
	}

	graph.Nodes = make([]datastructure.NodeBasedNode, len(referenced))
	for _, n := range parsed.Nodes {
		graph.Nodes[internalID[n.OsmID]] = datastructure.NewNodeBasedNode(n.Coord, n.OsmID, n.Barrier, n.TrafficSignal)
	}

	edges := make([]datastructure.NodeBasedEdge, 0, len(parsed.Segments))
	invalidated := 0
	for _, seg := range parsed.Segments {
		source, okSource := internalID[seg.FromOsm]
		target, okTarget := internalID[seg.ToOsm]
		if !okSource || !okTarget {
			b.log.Debug("segment references unknown node",
				zap.Int64("from", seg.FromOsm), zap.Int64("to", seg.ToOsm))
			invalidated++
			continue
		}
		if source == target {
			// self loop
			invalidated++
			continue
		}

		weight := computeWeight(seg)

		nameID := b.internName(graph, seg.W.Name, seg.W.Destinations, seg.W.Pronunciation, seg.W.Ref)
		laneID := b.internLanes(graph, seg.W.TurnLanes)

		edge := datastructure.NodeBasedEdge{
			Source:     source,
			Target:     target,
			Weight:     weight,
			Distance:   seg.DistanceMeters,
			NameID:     nameID,
			RoadClass:  seg.W.RoadClass,
			TravelMode: seg.W.Mode,
			TurnLaneID: laneID,
			Forward:    seg.W.Forward,
			Backward:   seg.W.Backward,
			Roundabout: seg.W.Roundabout,
			Circular:   seg.W.Circular,
			Startpoint: seg.W.Startpoint,
			GeometryID: datastructure.INVALID_EDGE_ID,
		}

		// orient so source < target; direction flags carry the swap
		if edge.Source > edge.Target {
			edge.Reverse()
		}

		edges = append(edges, edge)
	}

	graph.Edges = reduceDuplicateEdges(edges)

	b.resolveRestrictions(parsed, internalID, graph)

	if invalidated > 0 {
		b.log.Info("invalidated inconsistent segments", zap.Int("count", invalidated))
	}
	b.log.Info("graph built",
		zap.Int("nodes", len(graph.Nodes)),
		zap.Int("edges", len(graph.Edges)),
		zap.Int("names", len(graph.Names)/nameStride))

	return graph, nil
}

// computeWeight turns the profile annotation into a strictly positive
// integer weight in tenths of seconds.
func computeWeight(seg ParsedSegment) int32 {
	var seconds float64
	if seg.W.Duration > 0 && seg.W.WayLength > 0 {
		seconds = seg.W.Duration * (seg.DistanceMeters / seg.W.WayLength)
	} else {
		speed := seg.W.Speed
		if speed <= 0 {
			speed = 10
		}
		seconds = seg.DistanceMeters / (speed / 3.6)
	}
	weight := int32(math.Round(seconds * 10))
	if weight < 1 {
		weight = 1
	}
	return weight
}

// reduceDuplicateEdges keeps, per (source, target) group, the minimum
// weight forward candidate and the minimum weight backward candidate. When
// they are the same row a single bidirectional edge survives; otherwise
// two split unidirectional rows do.
func reduceDuplicateEdges(edges []datastructure.NodeBasedEdge) []datastructure.NodeBasedEdge {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		if edges[i].Target != edges[j].Target {
			return edges[i].Target < edges[j].Target
		}
		return edges[i].NameID < edges[j].NameID
	})

	out := make([]datastructure.NodeBasedEdge, 0, len(edges))
	for lo := 0; lo < len(edges); {
		hi := lo
		for hi < len(edges) && edges[hi].Source == edges[lo].Source && edges[hi].Target == edges[lo].Target {
			hi++
		}

		bestForward, bestBackward := -1, -1
		for i := lo; i < hi; i++ {
			if edges[i].Forward && (bestForward == -1 || edges[i].Weight < edges[bestForward].Weight) {
				bestForward = i
			}
			if edges[i].Backward && (bestBackward == -1 || edges[i].Weight < edges[bestBackward].Weight) {
				bestBackward = i
			}
		}

		switch {
		case bestForward != -1 && bestForward == bestBackward:
			edge := edges[bestForward]
			edge.IsSplit = false
			out = append(out, edge)
		default:
			if bestForward != -1 {
				edge := edges[bestForward]
				edge.Backward = false
				edge.IsSplit = bestBackward != -1
				out = append(out, edge)
			}
			if bestBackward != -1 && bestBackward != bestForward {
				edge := edges[bestBackward]
				edge.Forward = false
				edge.IsSplit = bestForward != -1
				out = append(out, edge)
			}
		}

		lo = hi
	}
	return out
}

// resolveRestrictions rewrites raw way/node restriction references to
// internal node ids. The from/to nodes are the way endpoints adjacent to
// the via node.
func (b *GraphBuilder) resolveRestrictions(parsed *ParsedData, internalID map[int64]int32, graph *ExtractionGraph) {
	for _, r := range parsed.Restrictions {
		if r.ViaIsWay {
			// via-way restrictions are not expanded
			b.log.Debug("skipping via-way restriction",
				zap.Int64("from", r.FromWay), zap.Int64("to", r.ToWay))
			continue
		}

		fromAdjacent, okFrom := wayNodeAdjacentToVia(parsed.RestrictionWayNodes[r.FromWay], r.ViaOsm)
		toAdjacent, okTo := wayNodeAdjacentToVia(parsed.RestrictionWayNodes[r.ToWay], r.ViaOsm)
		via, okVia := internalID[r.ViaOsm]
		if !okFrom || !okTo || !okVia {
			b.log.Debug("restriction references missing members",
				zap.Int64("from", r.FromWay), zap.Int64("via", r.ViaOsm), zap.Int64("to", r.ToWay))
			continue
		}

		fromNode, okFromNode := internalID[fromAdjacent]
		toNode, okToNode := internalID[toAdjacent]
		if !okFromNode || !okToNode {
			continue
		}

		r.FromNode = fromNode
		r.ViaNode = via
		r.ToNode = toNode
		r.Valid = true
		graph.Restrictions = append(graph.Restrictions, r)
	}
}

// wayNodeAdjacentToVia finds the node next to the via endpoint of a way.
func wayNodeAdjacentToVia(nodes []int64, via int64) (int64, bool) {
	if len(nodes) < 2 {
		return 0, false
	}
	if nodes[0] == via {
		return nodes[1], true
	}
	if nodes[len(nodes)-1] == via {
		return nodes[len(nodes)-2], true
	}
	return 0, false
}

func (b *GraphBuilder) internName(graph *ExtractionGraph, name, destinations, pronunciation, ref string) int32 {
	key := name + "\x00" + destinations + "\x00" + pronunciation + "\x00" + ref
	if id, ok := b.nameIDs[key]; ok {
		return id
	}
	id := int32(len(graph.Names) / nameStride)
	b.nameIDs[key] = id
	graph.Names = append(graph.Names, name, destinations, pronunciation, ref)
	return id
}

func (b *GraphBuilder) internLanes(graph *ExtractionGraph, turnLanes string) int32 {
	if id, ok := b.laneIDs[turnLanes]; ok {
		return id
	}
	id := int32(len(graph.LaneDescriptions))
	b.laneIDs[turnLanes] = id
	graph.LaneDescriptions = append(graph.LaneDescriptions, parseLaneDescription(turnLanes))
	graph.LaneStrings = append(graph.LaneStrings, turnLanes)
	return id
}

// parseLaneDescription parses a turn:lanes value, leftmost lane first in
// the tag, stored rightmost first.
func parseLaneDescription(turnLanes string) datastructure.LaneDescription {
	if turnLanes == "" {
		return nil
	}
	lanes := strings.Split(turnLanes, "|")
	desc := make(datastructure.LaneDescription, 0, len(lanes))
	for i := len(lanes) - 1; i >= 0; i-- {
		var indication datastructure.LaneIndication
		for _, part := range strings.Split(lanes[i], ";") {
			indication |= datastructure.LaneIndicationFromString(part)
		}
		desc = append(desc, indication)
	}
	return desc
}

func dedupSortedInt64(xs []int64) []int64 {
	if len(xs) == 0 {
		return xs
	}
	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}
