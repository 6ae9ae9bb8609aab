package guidance

import (
	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/extractor"
	"github.com/lintang-b-s/routex/pkg/geo"
)

type roundaboutTier uint8

const (
	tierRoundabout roundaboutTier = iota
	tierRotary
	tierRoundaboutIntersection
)

const (
	// ring diameter above which a named circle counts as a rotary
	rotaryDiameterMeters = 35.0
	maxRingWalk          = 200
)

// classifyRoundaboutTier walks the ring starting at one roundabout edge
// and decides the tier from its diameter, its name, and how many ways
// attach to it.
func classifyRoundaboutTier(g *extractor.CompressedGraph, startEdge int32) roundaboutTier {
	ringCoords := make([]datastructure.Coordinate, 0, 16)
	attachedWays := 0
	named := false

	edgeID := startEdge
	node := g.Edges[startEdge].Source
	visited := make(map[int32]struct{})

	for steps := 0; steps < maxRingWalk; steps++ {
		if _, ok := visited[edgeID]; ok {
			break
		}
		visited[edgeID] = struct{}{}

		edge := g.Edges[edgeID]
		if g.Name(edge.NameID) != "" {
			named = true
		}
		ringCoords = append(ringCoords, g.Nodes[node].Coord)

		next := g.EdgeOtherEnd(edgeID, node)
		nextEdge := int32(-1)
		for _, candidate := range g.IncidentEdges(next) {
			candidateEdge := g.Edges[candidate]
			if candidateEdge.Roundabout || candidateEdge.Circular {
				if candidate != edgeID {
					nextEdge = candidate
				}
			} else {
				attachedWays++
			}
		}
		if nextEdge == -1 {
			break
		}
		edgeID = nextEdge
		node = next
	}

	diameter := 0.0
	for i := 0; i < len(ringCoords); i++ {
		for j := i + 1; j < len(ringCoords); j++ {
			d := geo.HaversineMeters(
				ringCoords[i].LatDeg(), ringCoords[i].LonDeg(),
				ringCoords[j].LatDeg(), ringCoords[j].LonDeg())
			if d > diameter {
				diameter = d
			}
		}
	}

	if diameter > rotaryDiameterMeters && named {
		return tierRotary
	}
	if attachedWays <= 2 && diameter <= rotaryDiameterMeters {
		return tierRoundaboutIntersection
	}
	return tierRoundabout
}

func enterInstruction(tier roundaboutTier) datastructure.TurnType {
	switch tier {
	case tierRotary:
		return datastructure.TURN_TYPE_ENTER_ROTARY
	case tierRoundaboutIntersection:
		return datastructure.TURN_TYPE_ENTER_ROUNDABOUT_INTERSECTION
	default:
		return datastructure.TURN_TYPE_ENTER_ROUNDABOUT
	}
}

func enterAndExitInstruction(tier roundaboutTier) datastructure.TurnType {
	switch tier {
	case tierRotary:
		return datastructure.TURN_TYPE_ENTER_AND_EXIT_ROTARY
	case tierRoundaboutIntersection:
		return datastructure.TURN_TYPE_ENTER_AND_EXIT_ROUNDABOUT_INTERSECTION
	default:
		return datastructure.TURN_TYPE_ENTER_AND_EXIT_ROUNDABOUT
	}
}

func exitInstruction(tier roundaboutTier) datastructure.TurnType {
	switch tier {
	case tierRotary:
		return datastructure.TURN_TYPE_EXIT_ROTARY
	case tierRoundaboutIntersection:
		return datastructure.TURN_TYPE_EXIT_ROUNDABOUT_INTERSECTION
	default:
		return datastructure.TURN_TYPE_EXIT_ROUNDABOUT
	}
}

// handleRoundabout assigns the enter/stay/exit instruction family. The
// exit_count bookkeeping happens later in the step post-processor.
func (a *Annotator) handleRoundabout(g *extractor.CompressedGraph, intersection *Intersection) {
	inEdge := g.Edges[intersection.InEdge]
	inOnRing := inEdge.Roundabout || inEdge.Circular

	var tier roundaboutTier
	if inOnRing {
		tier = classifyRoundaboutTier(g, intersection.InEdge)
	} else {
		for _, road := range intersection.Roads {
			edge := g.Edges[road.EdgeID]
			if edge.Roundabout || edge.Circular {
				tier = classifyRoundaboutTier(g, road.EdgeID)
				break
			}
		}
	}

	for i := range intersection.Roads {
		road := &intersection.Roads[i]
		outEdge := g.Edges[road.EdgeID]
		outOnRing := outEdge.Roundabout || outEdge.Circular
		modifier := getTurnModifier(road.Angle)

		switch {
		case !inOnRing && outOnRing:
			road.Instruction = datastructure.NewTurnInstruction(enterInstruction(tier), modifier)
		case inOnRing && outOnRing:
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_STAY_ON_ROUNDABOUT, datastructure.DIRECTION_STRAIGHT)
		case inOnRing && !outOnRing:
			road.Instruction = datastructure.NewTurnInstruction(exitInstruction(tier), modifier)
		default:
			// passing next to the ring without touching it
			road.Instruction = a.basicTurn(g, intersection, road, modifier)
		}
	}
}
