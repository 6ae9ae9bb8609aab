package guidance

import (
	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/extractor"
)

// assignLanes distributes the in-edge's lane description over the
// enterable roads: lanes are consumed rightmost first by the rightmost
// turns, so every road ends up with a contiguous
// (first_lane_from_the_right, lanes_in_turn) window whose indications
// match its modifier.
func assignLanes(g *extractor.CompressedGraph, intersection *Intersection) {
	laneID := g.Edges[intersection.InEdge].TurnLaneID
	if laneID <= 0 || int(laneID) >= len(g.LaneDescriptions) {
		return
	}
	description := g.LaneDescriptions[laneID]
	if len(description) == 0 {
		return
	}

	// roads in angle order: u-turn, sharp right, ..., straight, ..., left.
	// skip the u-turn road for allocation, it takes whatever is left on
	// the far side.
	nextLane := int32(0)
	for i := range intersection.Roads {
		road := &intersection.Roads[i]
		if !road.EntryAllowed || road.EdgeID == intersection.InEdge {
			continue
		}
		modifier := road.Instruction.Modifier

		count := int32(0)
		first := nextLane
		for int(nextLane) < len(description) && description[nextLane].Matches(modifier) {
			count++
			nextLane++
		}
		if count == 0 {
			// no dedicated arrow; a straight road may still use unmarked
			// lanes
			continue
		}
		road.Lanes = datastructure.NewLaneTuple(count, first)
	}
}

// laneChoiceExists reports whether a lane description actually forces a
// choice: all-straight or all-empty descriptions do not.
func laneChoiceExists(description datastructure.LaneDescription) bool {
	for _, indication := range description {
		if indication != datastructure.LANE_NONE && indication != datastructure.LANE_STRAIGHT {
			return true
		}
	}
	return false
}
