package guidance

import (
	"github.com/lintang-b-s/routex/pkg/extractor"
	"github.com/lintang-b-s/routex/pkg/geo"
)

// IntersectionCase is the tagged classification of an intersection as seen
// from one in-edge; a single switch over it replaces a handler hierarchy.
type IntersectionCase uint8

const (
	CASE_ONE_WAY IntersectionCase = iota
	CASE_TWO_WAY
	CASE_THREE_WAY
	CASE_COMPLEX
	CASE_ROUNDABOUT
	CASE_SLIPROAD
)

const (
	// maximum length of a link edge that can act as a sliproad
	maxSliproadLength = 250.0 // meters
)

// classify tags the intersection. Roundabouts win over everything, then
// sliproad candidates, then plain degree counting.
func classify(g *extractor.CompressedGraph, intersection *Intersection) IntersectionCase {
	if g.Edges[intersection.InEdge].Roundabout || g.Edges[intersection.InEdge].Circular {
		return CASE_ROUNDABOUT
	}
	for _, road := range intersection.Roads {
		edge := g.Edges[road.EdgeID]
		if road.EntryAllowed && (edge.Roundabout || edge.Circular) {
			return CASE_ROUNDABOUT
		}
	}

	if isSliproadCandidate(g, intersection) {
		return CASE_SLIPROAD
	}

	switch intersection.Degree() {
	case 1:
		return CASE_ONE_WAY
	case 2:
		return CASE_TWO_WAY
	case 3:
		return CASE_THREE_WAY
	default:
		return CASE_COMPLEX
	}
}

// isSliproadCandidate detects the short unnamed link that bypasses a main
// junction: the enterable non-straight road is a short link edge whose far
// end joins a higher-class crossroad.
func isSliproadCandidate(g *extractor.CompressedGraph, intersection *Intersection) bool {
	if intersection.Degree() != 3 {
		return false
	}
	for _, road := range intersection.Roads {
		if !road.EntryAllowed || road.EdgeID == intersection.InEdge {
			continue
		}
		edge := g.Edges[road.EdgeID]
		if !edge.RoadClass.IsLink() || g.Name(edge.NameID) != "" {
			continue
		}
		if edge.Distance > maxSliproadLength {
			continue
		}
		if geo.AngularDeviation(road.Angle, 180.0) > 66 {
			continue
		}
		// far end must touch a through road of a usable class
		far := road.To
		for _, farEdgeID := range g.IncidentEdges(far) {
			if farEdgeID == road.EdgeID {
				continue
			}
			farEdge := g.Edges[farEdgeID]
			if !farEdge.RoadClass.IsLowPriority() && !farEdge.RoadClass.IsLink() {
				return true
			}
		}
	}
	return false
}
