package guidance

import (
	"sort"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/extractor"
	"github.com/lintang-b-s/routex/pkg/geo"
)

// ConnectedRoad is one outgoing road of an intersection as seen from a
// specific in-edge.
type ConnectedRoad struct {
	EdgeID       int32
	To           int32
	Bearing      float64 // bearing leaving the via node
	Angle        float64 // turn angle from the in-edge: 0 u-turn, 180 straight
	EntryAllowed bool
	Instruction  datastructure.TurnInstruction
	Lanes        datastructure.LaneTuple
}

// Intersection is the ordered view of a via node from one in-edge. Roads
// are sorted by turn angle, the u-turn road (if any) first.
type Intersection struct {
	Via       int32
	InEdge    int32
	InFrom    int32
	InBearing float64
	Roads     []ConnectedRoad
}

// assembleIntersection lists every incident edge at via as an outgoing
// road, with entry legality from the direction flags, ordered by turn
// angle relative to the in-edge.
func assembleIntersection(g *extractor.CompressedGraph, inEdge, via int32) Intersection {
	inFrom := g.EdgeOtherEnd(inEdge, via)
	inBearing := extractor.EntryBearing(g, inEdge, inFrom)

	intersection := Intersection{
		Via:       via,
		InEdge:    inEdge,
		InFrom:    inFrom,
		InBearing: inBearing,
	}

	for _, edgeID := range g.IncidentEdges(via) {
		edge := g.Edges[edgeID]
		entryAllowed := (edge.Source == via && edge.Forward) || (edge.Target == via && edge.Backward)

		bearing := extractor.ExitBearing(g, edgeID, via)
		angle := geo.AngleBetween(inBearing, bearing)

		intersection.Roads = append(intersection.Roads, ConnectedRoad{
			EdgeID:       edgeID,
			To:           g.EdgeOtherEnd(edgeID, via),
			Bearing:      bearing,
			Angle:        angle,
			EntryAllowed: entryAllowed,
			Instruction:  datastructure.NoTurnInstruction(),
		})
	}

	sort.Slice(intersection.Roads, func(i, j int) bool {
		return intersection.Roads[i].Angle < intersection.Roads[j].Angle
	})

	return intersection
}

// Degree counts the roads of the intersection including the u-turn road.
func (i *Intersection) Degree() int {
	return len(i.Roads)
}

// EnterableCount counts roads a vehicle may actually enter.
func (i *Intersection) EnterableCount() int {
	count := 0
	for _, road := range i.Roads {
		if road.EntryAllowed {
			count++
		}
	}
	return count
}

func (i *Intersection) findRoad(edgeID int32) int {
	for idx, road := range i.Roads {
		if road.EdgeID == edgeID {
			return idx
		}
	}
	return -1
}

// uturnIndex returns the road going back over the in-edge, or -1.
func (i *Intersection) uturnIndex() int {
	for idx, road := range i.Roads {
		if road.EdgeID == i.InEdge {
			return idx
		}
	}
	return -1
}

// straightmostIndex returns the enterable road closest to straight, or -1.
func (i *Intersection) straightmostIndex() int {
	best := -1
	bestDeviation := 361.0
	for idx, road := range i.Roads {
		if !road.EntryAllowed {
			continue
		}
		deviation := geo.AngularDeviation(road.Angle, 180.0)
		if deviation < bestDeviation {
			bestDeviation = deviation
			best = idx
		}
	}
	return best
}

// getTurnModifier maps a turn angle to the direction modifier. Windows
// follow the reference semantics: 180 is straight, smaller angles turn
// right, larger turn left.
func getTurnModifier(angle float64) datastructure.DirectionModifier {
	switch {
	case angle < 23 || angle > 337:
		return datastructure.DIRECTION_UTURN
	case angle < 60:
		return datastructure.DIRECTION_SHARP_RIGHT
	case angle < 140:
		return datastructure.DIRECTION_RIGHT
	case angle < 160:
		return datastructure.DIRECTION_SLIGHT_RIGHT
	case angle <= 200:
		return datastructure.DIRECTION_STRAIGHT
	case angle <= 220:
		return datastructure.DIRECTION_SLIGHT_LEFT
	case angle <= 300:
		return datastructure.DIRECTION_LEFT
	case angle <= 337:
		return datastructure.DIRECTION_SHARP_LEFT
	default:
		return datastructure.DIRECTION_UTURN
	}
}
