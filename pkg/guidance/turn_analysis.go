package guidance

import (
	"math"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/extractor"
	"github.com/lintang-b-s/routex/pkg/geo"
	"go.uber.org/zap"
)

const (
	// GROUP_ANGLE is the wedge within which roads count as one fork.
	GROUP_ANGLE = 35.0

	// a turn within this deviation of straight can be obvious
	obviousStraightDeviation = 10.0
	// all other roads must deviate by more than this for obviousness
	obviousOtherDeviation = 35.0
)

// Annotator assigns a TurnInstruction to every legal turn at an
// intersection. It implements extractor.IntersectionAnnotator.
type Annotator struct {
	log *zap.Logger
}

func NewAnnotator(log *zap.Logger) *Annotator {
	return &Annotator{log: log}
}

func (a *Annotator) AnnotateIntersection(g *extractor.CompressedGraph, inEdge int32, via int32,
	outEdges []int32) []datastructure.TurnData {

	intersection := assembleIntersection(g, inEdge, via)

	switch classify(g, &intersection) {
	case CASE_ONE_WAY:
		a.handleDeadEnd(g, &intersection)
	case CASE_TWO_WAY:
		a.handlePassThrough(g, &intersection)
	case CASE_THREE_WAY:
		a.handleThreeWay(g, &intersection)
	case CASE_ROUNDABOUT:
		a.handleRoundabout(g, &intersection)
	case CASE_SLIPROAD:
		a.handleSliproad(g, &intersection)
	default:
		a.handleComplex(g, &intersection)
	}

	assignLanes(g, &intersection)

	annotations := make([]datastructure.TurnData, len(outEdges))
	for i, outEdgeID := range outEdges {
		idx := intersection.findRoad(outEdgeID)
		if idx == -1 {
			annotations[i] = datastructure.TurnData{Instruction: datastructure.NoTurnInstruction()}
			continue
		}
		road := intersection.Roads[idx]
		annotations[i] = datastructure.TurnData{
			Instruction:       road.Instruction,
			Lanes:             road.Lanes,
			LaneDescriptionID: g.Edges[intersection.InEdge].TurnLaneID,
		}
	}
	return annotations
}

// handleDeadEnd: the only road turns back over the in-edge.
func (a *Annotator) handleDeadEnd(g *extractor.CompressedGraph, intersection *Intersection) {
	for i := range intersection.Roads {
		road := &intersection.Roads[i]
		if road.EdgeID == intersection.InEdge {
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_TURN, datastructure.DIRECTION_UTURN)
		} else {
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_CONTINUE, getTurnModifier(road.Angle))
		}
	}
}

// handlePassThrough: two roads only, so the continuation is forced. Mode
// and name changes still deserve an instruction.
func (a *Annotator) handlePassThrough(g *extractor.CompressedGraph, intersection *Intersection) {
	inEdge := g.Edges[intersection.InEdge]
	for i := range intersection.Roads {
		road := &intersection.Roads[i]
		if road.EdgeID == intersection.InEdge {
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_TURN, datastructure.DIRECTION_UTURN)
			continue
		}
		outEdge := g.Edges[road.EdgeID]
		modifier := getTurnModifier(road.Angle)

		switch {
		case outEdge.TravelMode != inEdge.TravelMode:
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_NOTIFICATION, modifier)
		case isRampTransition(inEdge.RoadClass, outEdge.RoadClass):
			road.Instruction = rampInstruction(inEdge.RoadClass, outEdge.RoadClass, modifier)
		case !isSameName(g.Name(inEdge.NameID), g.Name(outEdge.NameID)) &&
			g.Name(outEdge.NameID) != "":
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_NEW_NAME, modifier)
		case inEdge.TurnLaneID > 0 && laneChoiceExists(g.LaneDescriptions[inEdge.TurnLaneID]):
			// announced lanes on the approach of a pass-through: the
			// post-processor drops it again when nothing changes
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_USE_LANE, modifier)
		default:
			road.Instruction = datastructure.SuppressedInstruction(modifier)
		}
	}
}

// assignMotorway: on and around the motorway the link/mainline roles
// decide the announcements, ahead of fork or end-of-road shapes.
func (a *Annotator) assignMotorway(g *extractor.CompressedGraph, intersection *Intersection) bool {
	inEdge := g.Edges[intersection.InEdge]
	if !inEdge.RoadClass.IsMotorway() && !inEdge.RoadClass.IsRamp() {
		return false
	}

	for i := range intersection.Roads {
		road := &intersection.Roads[i]
		if road.EdgeID == intersection.InEdge {
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_TURN, datastructure.DIRECTION_UTURN)
			continue
		}
		outEdge := g.Edges[road.EdgeID]
		modifier := getTurnModifier(road.Angle)

		switch {
		case inEdge.RoadClass.IsMotorway() && outEdge.RoadClass.IsRamp():
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_OFF_RAMP, sidewaysModifier(modifier, road.Angle))
		case inEdge.RoadClass.IsMotorway() && outEdge.RoadClass.IsMotorway():
			if !isSameName(g.Name(inEdge.NameID), g.Name(outEdge.NameID)) &&
				g.Name(outEdge.NameID) != "" {
				road.Instruction = datastructure.NewTurnInstruction(
					datastructure.TURN_TYPE_NEW_NAME, modifier)
			} else {
				road.Instruction = datastructure.SuppressedInstruction(modifier)
			}
		case inEdge.RoadClass.IsRamp() && outEdge.RoadClass.IsMotorway():
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_MERGE, sidewaysModifier(modifier, road.Angle))
		default:
			road.Instruction = a.basicTurn(g, intersection, road, modifier)
		}
	}
	return true
}

// sidewaysModifier leans a straight announcement to the side the turn
// actually drifts towards; ramps and merges are never plain straight.
func sidewaysModifier(m datastructure.DirectionModifier, angle float64) datastructure.DirectionModifier {
	if m != datastructure.DIRECTION_STRAIGHT {
		return m
	}
	if angle < 180 {
		return datastructure.DIRECTION_SLIGHT_RIGHT
	}
	return datastructure.DIRECTION_SLIGHT_LEFT
}

// handleThreeWay: end-of-road, forks, and obvious continuations.
func (a *Annotator) handleThreeWay(g *extractor.CompressedGraph, intersection *Intersection) {
	if a.assignMotorway(g, intersection) {
		return
	}
	if a.assignEndOfRoad(g, intersection) {
		return
	}

	if lo, hi, ok := findFork(intersection); ok {
		a.assignFork(g, intersection, lo, hi)
		a.assignRemaining(g, intersection)
		return
	}

	obvious := findObviousTurn(g, intersection)
	for i := range intersection.Roads {
		road := &intersection.Roads[i]
		if road.EdgeID == intersection.InEdge {
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_TURN, datastructure.DIRECTION_UTURN)
			continue
		}
		modifier := getTurnModifier(road.Angle)
		outEdge := g.Edges[road.EdgeID]
		if i == obvious {
			inEdge := g.Edges[intersection.InEdge]
			if isRampTransition(inEdge.RoadClass, outEdge.RoadClass) {
				road.Instruction = rampInstruction(inEdge.RoadClass, outEdge.RoadClass, modifier)
			} else if !isSameName(g.Name(inEdge.NameID), g.Name(outEdge.NameID)) &&
				g.Name(outEdge.NameID) != "" {
				road.Instruction = datastructure.NewTurnInstruction(
					datastructure.TURN_TYPE_NEW_NAME, modifier)
			} else {
				road.Instruction = datastructure.SuppressedInstruction(modifier)
			}
			continue
		}
		road.Instruction = a.basicTurn(g, intersection, road, modifier)
	}
}

// assignEndOfRoad detects the T shape: the in-edge dies into a
// perpendicular road, only left and right remain.
func (a *Annotator) assignEndOfRoad(g *extractor.CompressedGraph, intersection *Intersection) bool {
	var left, right *ConnectedRoad
	for i := range intersection.Roads {
		road := &intersection.Roads[i]
		if road.EdgeID == intersection.InEdge || !road.EntryAllowed {
			continue
		}
		deviation := geo.AngularDeviation(road.Angle, 180.0)
		if deviation < 85 {
			// a near-straight continuation exists, not a T
			return false
		}
		if road.Angle < 180 {
			right = road
		} else {
			left = road
		}
	}
	if left == nil && right == nil {
		return false
	}

	for i := range intersection.Roads {
		road := &intersection.Roads[i]
		switch road {
		case left:
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_END_OF_ROAD, datastructure.DIRECTION_LEFT)
		case right:
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_END_OF_ROAD, datastructure.DIRECTION_RIGHT)
		default:
			if road.EdgeID == intersection.InEdge {
				road.Instruction = datastructure.NewTurnInstruction(
					datastructure.TURN_TYPE_TURN, datastructure.DIRECTION_UTURN)
			}
		}
	}
	return true
}

func (a *Annotator) assignFork(g *extractor.CompressedGraph, intersection *Intersection, lo, hi int) {
	// two- or three-armed forks get slight modifiers around straight
	arms := hi - lo + 1
	for offset := 0; offset < arms; offset++ {
		road := &intersection.Roads[lo+offset]
		var modifier datastructure.DirectionModifier
		switch {
		case arms == 2 && offset == 0:
			modifier = datastructure.DIRECTION_SLIGHT_RIGHT
		case arms == 2 && offset == 1:
			modifier = datastructure.DIRECTION_SLIGHT_LEFT
		case offset == 0:
			modifier = datastructure.DIRECTION_SLIGHT_RIGHT
		case offset == arms-1:
			modifier = datastructure.DIRECTION_SLIGHT_LEFT
		default:
			modifier = datastructure.DIRECTION_STRAIGHT
		}
		road.Instruction = datastructure.NewTurnInstruction(datastructure.TURN_TYPE_FORK, modifier)
	}
}

func (a *Annotator) assignRemaining(g *extractor.CompressedGraph, intersection *Intersection) {
	for i := range intersection.Roads {
		road := &intersection.Roads[i]
		if road.Instruction.Type != datastructure.TURN_TYPE_NO_TURN {
			continue
		}
		if road.EdgeID == intersection.InEdge {
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_TURN, datastructure.DIRECTION_UTURN)
			continue
		}
		road.Instruction = a.basicTurn(g, intersection, road, getTurnModifier(road.Angle))
	}
}

// handleComplex partitions the roads into the right side and the left
// side of the in-edge and assigns distinct modifiers per side.
func (a *Annotator) handleComplex(g *extractor.CompressedGraph, intersection *Intersection) {
	if a.assignMotorway(g, intersection) {
		return
	}
	obvious := findObviousTurn(g, intersection)

	seen := make(map[datastructure.DirectionModifier]int)
	for i := range intersection.Roads {
		road := &intersection.Roads[i]
		if road.EdgeID == intersection.InEdge {
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_TURN, datastructure.DIRECTION_UTURN)
			continue
		}
		modifier := getTurnModifier(road.Angle)
		if i == obvious {
			outEdge := g.Edges[road.EdgeID]
			inEdge := g.Edges[intersection.InEdge]
			if !isSameName(g.Name(inEdge.NameID), g.Name(outEdge.NameID)) &&
				g.Name(outEdge.NameID) != "" {
				road.Instruction = datastructure.NewTurnInstruction(
					datastructure.TURN_TYPE_NEW_NAME, modifier)
			} else {
				road.Instruction = datastructure.SuppressedInstruction(modifier)
			}
			continue
		}
		// conflicting modifiers on one side spread to the slight/sharp
		// neighbours
		if _, taken := seen[modifier]; taken {
			modifier = spreadModifier(modifier, road.Angle)
		}
		seen[modifier] = i
		road.Instruction = a.basicTurn(g, intersection, road, modifier)
	}
}

func (a *Annotator) handleSliproad(g *extractor.CompressedGraph, intersection *Intersection) {
	for i := range intersection.Roads {
		road := &intersection.Roads[i]
		if road.EdgeID == intersection.InEdge {
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_TURN, datastructure.DIRECTION_UTURN)
			continue
		}
		edge := g.Edges[road.EdgeID]
		modifier := getTurnModifier(road.Angle)
		if edge.RoadClass.IsLink() && g.Name(edge.NameID) == "" &&
			geo.AngularDeviation(road.Angle, 180.0) <= 66 {
			road.Instruction = datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_SLIPROAD, modifier)
			continue
		}
		road.Instruction = a.basicTurn(g, intersection, road, modifier)
	}
}

// basicTurn picks between plain turns and ramp instructions.
func (a *Annotator) basicTurn(g *extractor.CompressedGraph, intersection *Intersection,
	road *ConnectedRoad, modifier datastructure.DirectionModifier) datastructure.TurnInstruction {
	inEdge := g.Edges[intersection.InEdge]
	outEdge := g.Edges[road.EdgeID]
	if isRampTransition(inEdge.RoadClass, outEdge.RoadClass) {
		return rampInstruction(inEdge.RoadClass, outEdge.RoadClass, modifier)
	}
	if modifier == datastructure.DIRECTION_STRAIGHT &&
		isSameName(g.Name(inEdge.NameID), g.Name(outEdge.NameID)) {
		return datastructure.NewTurnInstruction(datastructure.TURN_TYPE_CONTINUE, modifier)
	}
	return datastructure.NewTurnInstruction(datastructure.TURN_TYPE_TURN, modifier)
}

func isRampTransition(in, out datastructure.RoadClass) bool {
	if out.IsRamp() && !in.IsRamp() {
		return true
	}
	if in.IsRamp() && out.IsMotorway() {
		return true
	}
	return false
}

func rampInstruction(in, out datastructure.RoadClass, modifier datastructure.DirectionModifier) datastructure.TurnInstruction {
	if in.IsRamp() && out.IsMotorway() {
		// joining the mainline from a link
		return datastructure.NewTurnInstruction(datastructure.TURN_TYPE_MERGE, modifier)
	}
	if in.IsMotorway() && out.IsRamp() {
		return datastructure.NewTurnInstruction(datastructure.TURN_TYPE_OFF_RAMP, modifier)
	}
	return datastructure.NewTurnInstruction(datastructure.TURN_TYPE_ON_RAMP, modifier)
}

// spreadModifier nudges a duplicate modifier to its free neighbour so two
// roads on one side never share an announcement.
func spreadModifier(m datastructure.DirectionModifier, angle float64) datastructure.DirectionModifier {
	if m.IsRightTurn() || (m == datastructure.DIRECTION_STRAIGHT && angle < 180) {
		if angle < 90 {
			return datastructure.DIRECTION_SHARP_RIGHT
		}
		return datastructure.DIRECTION_SLIGHT_RIGHT
	}
	if angle > 270 {
		return datastructure.DIRECTION_SHARP_LEFT
	}
	return datastructure.DIRECTION_SLIGHT_LEFT
}

// findObviousTurn returns the index of the single dominant continuation,
// or -1. A road is obvious when it dominates by road category, or when it
// is nearly straight, every alternative deviates far more, and name
// continuity does not argue against it.
func findObviousTurn(g *extractor.CompressedGraph, intersection *Intersection) int {
	inEdge := g.Edges[intersection.InEdge]
	inName := g.Name(inEdge.NameID)

	best := -1
	bestDeviation := 361.0
	secondBestDeviation := 361.0
	categoryDominant := -1

	for i := range intersection.Roads {
		road := &intersection.Roads[i]
		if !road.EntryAllowed || road.EdgeID == intersection.InEdge {
			continue
		}
		outEdge := g.Edges[road.EdgeID]
		deviation := geo.AngularDeviation(road.Angle, 180.0)

		if deviation < bestDeviation {
			secondBestDeviation = bestDeviation
			bestDeviation = deviation
			best = i
		} else if deviation < secondBestDeviation {
			secondBestDeviation = deviation
		}

		// category dominance: the only road at least as important as the
		// in-edge
		if outEdge.RoadClass <= inEdge.RoadClass && !outEdge.RoadClass.IsLowPriority() {
			if categoryDominant == -1 {
				categoryDominant = i
			} else {
				categoryDominant = -2
			}
		}
	}

	if categoryDominant >= 0 {
		road := intersection.Roads[categoryDominant]
		if geo.AngularDeviation(road.Angle, 180.0) < 100 {
			return categoryDominant
		}
	}

	if best == -1 {
		return -1
	}
	if bestDeviation > obviousStraightDeviation {
		return -1
	}
	if secondBestDeviation <= obviousOtherDeviation {
		return -1
	}

	bestEdge := g.Edges[intersection.Roads[best].EdgeID]
	bestName := g.Name(bestEdge.NameID)
	if inName != "" && bestName != "" && !isSameName(inName, bestName) {
		// another road continues the name, prefer it
		for i := range intersection.Roads {
			road := &intersection.Roads[i]
			if i == best || !road.EntryAllowed || road.EdgeID == intersection.InEdge {
				continue
			}
			if isSameName(inName, g.Name(g.Edges[road.EdgeID].NameID)) {
				return -1
			}
		}
	}
	return best
}

// findFork returns the contiguous range [lo..hi] of enterable roads that
// are mutually within GROUP_ANGLE and cover a narrow wedge around
// straight.
func findFork(intersection *Intersection) (int, int, bool) {
	straightmost := intersection.straightmostIndex()
	if straightmost == -1 {
		return 0, 0, false
	}
	if geo.AngularDeviation(intersection.Roads[straightmost].Angle, 180.0) > GROUP_ANGLE {
		return 0, 0, false
	}

	lo, hi := straightmost, straightmost
	for lo > 0 {
		prev := intersection.Roads[lo-1]
		if !prev.EntryAllowed || prev.EdgeID == intersection.InEdge {
			break
		}
		if math.Abs(intersection.Roads[hi].Angle-prev.Angle) > GROUP_ANGLE {
			break
		}
		lo--
	}
	for hi < len(intersection.Roads)-1 {
		next := intersection.Roads[hi+1]
		if !next.EntryAllowed || next.EdgeID == intersection.InEdge {
			break
		}
		if math.Abs(next.Angle-intersection.Roads[lo].Angle) > GROUP_ANGLE {
			break
		}
		hi++
	}

	if hi == lo {
		return 0, 0, false
	}
	// the whole group must sit in the straight wedge
	if geo.AngularDeviation(intersection.Roads[lo].Angle, 180.0) > 2*GROUP_ANGLE ||
		geo.AngularDeviation(intersection.Roads[hi].Angle, 180.0) > 2*GROUP_ANGLE {
		return 0, 0, false
	}
	return lo, hi, true
}

func isSameName(name1, name2 string) bool {
	if name1 == "" || name2 == "" {
		// street names are often empty in osm, better treated as different
		return false
	}
	return name1 == name2
}
