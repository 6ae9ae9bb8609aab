package guidance

import (
	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/geo"
)

const (
	// a step shorter than this merges into its neighbour on collapse
	shortStepDistance = 30.0 // meters
	// staggered right-left jogs below this length become one Continue
	staggeredDistance = 3.0 // meters
	// first/last steps at or below this are trimmed away
	trimDistance = 1.0 // meters

	// depart/arrive get a side modifier only inside this offset window
	minSideOffset = 5.0   // meters
	maxSideOffset = 300.0 // meters
)

// PostProcess rewrites the raw step list into the final guidance: the
// passes run in order, each followed by a sweep of invalidated steps.
// Depart and Arrive always survive.
func PostProcess(steps []datastructure.RouteStep,
	source, target *datastructure.PhantomNode) []datastructure.RouteStep {
	if len(steps) == 0 {
		return steps
	}

	steps = accountRoundabouts(steps)
	steps = sweep(steps)

	steps = collapseSteps(steps)
	steps = sweep(steps)

	steps = refineEndOfRoad(steps)
	steps = sweep(steps)

	steps = assignRelativeWaypointModifiers(steps, source, target)

	steps = trimShortEndSteps(steps)
	steps = sweep(steps)

	return steps
}

// sweep drops every invalidated step; waypoint steps are never dropped.
func sweep(steps []datastructure.RouteStep) []datastructure.RouteStep {
	out := steps[:0]
	for _, step := range steps {
		if step.Maneuver.WaypointType == datastructure.WAYPOINT_TYPE_NONE && step.Invalidated() {
			continue
		}
		out = append(out, step)
	}
	return out
}

// Pass A: roundabout exit accounting. The enter step receives the number
// of exits passed, stays are invalidated, the exit keeps the post-ring
// name.
func accountRoundabouts(steps []datastructure.RouteStep) []datastructure.RouteStep {
	enterIdx := -1
	exitCount := 0
	for i := range steps {
		instruction := steps[i].Maneuver.Instruction
		switch {
		case instruction.EntersRoundabout():
			enterIdx = i
			exitCount = 1
			if instruction.LeavesRoundabout() {
				// entered and exited at the same intersection
				steps[i].Maneuver.ExitCount = exitCount
				enterIdx = -1
			}
		case instruction.Type == datastructure.TURN_TYPE_STAY_ON_ROUNDABOUT:
			exitCount++
			if enterIdx != -1 {
				steps[enterIdx].ElongateBy(steps[i])
				steps[i].Invalidate()
			}
		case instruction.LeavesRoundabout():
			if enterIdx != -1 {
				steps[enterIdx].Maneuver.ExitCount = exitCount
				steps[enterIdx].RotaryName = steps[enterIdx].Name
				steps[enterIdx].Name = steps[i].Name
				enterIdx = -1
			}
		}
	}
	return steps
}

// forwardStepSignage carries the signage of the absorbed step onto the
// surviving one.
func forwardStepSignage(destination *datastructure.RouteStep, origin datastructure.RouteStep) {
	destination.Name = origin.Name
	destination.NameID = origin.NameID
	destination.Ref = origin.Ref
	destination.Pronunciation = origin.Pronunciation
	destination.Destinations = origin.Destinations
	destination.Destinations = origin.Destinations
}

// Pass B: step collapsing.
func collapseSteps(steps []datastructure.RouteStep) []datastructure.RouteStep {
	for i := 1; i < len(steps)-1; i++ {
		prev := previousValid(steps, i)
		if prev == -1 {
			continue
		}
		cur := i
		next := nextValid(steps, i)

		if steps[cur].Invalidated() || steps[cur].Maneuver.WaypointType != datastructure.WAYPOINT_TYPE_NONE {
			continue
		}

		if collapseSliproad(steps, prev, cur) {
			continue
		}
		if collapseUseLane(steps, prev, cur) {
			continue
		}
		if next != -1 && collapseStaggered(steps, prev, cur, next) {
			continue
		}
		if next != -1 && collapseUTurn(steps, prev, cur, next) {
			continue
		}
		if next != -1 && collapseNameOscillation(steps, prev, cur, next) {
			continue
		}
		collapseShortNewName(steps, prev, cur)
	}
	return steps
}

func previousValid(steps []datastructure.RouteStep, i int) int {
	for j := i - 1; j >= 0; j-- {
		if !steps[j].Invalidated() {
			return j
		}
	}
	return -1
}

func nextValid(steps []datastructure.RouteStep, i int) int {
	for j := i + 1; j < len(steps); j++ {
		if !steps[j].Invalidated() {
			return j
		}
	}
	return -1
}

// short segment followed by a straightish rename: elongate the previous
// step over it.
func collapseShortNewName(steps []datastructure.RouteStep, prev, cur int) bool {
	if steps[prev].Distance >= shortStepDistance {
		return false
	}
	if steps[prev].Mode != steps[cur].Mode {
		return false
	}
	instruction := steps[cur].Maneuver.Instruction
	collapsible := instruction.Type == datastructure.TURN_TYPE_NEW_NAME ||
		instruction.Type == datastructure.TURN_TYPE_MERGE ||
		((instruction.Type == datastructure.TURN_TYPE_SUPPRESSED ||
			instruction.Type == datastructure.TURN_TYPE_TURN ||
			instruction.Type == datastructure.TURN_TYPE_CONTINUE) &&
			instruction.Modifier == datastructure.DIRECTION_STRAIGHT)
	if !collapsible {
		return false
	}
	if steps[prev].Maneuver.WaypointType != datastructure.WAYPOINT_TYPE_NONE &&
		instruction.Type == datastructure.TURN_TYPE_MERGE {
		return false
	}
	forwardStepSignage(&steps[prev], steps[cur])
	steps[prev].ElongateBy(steps[cur])
	steps[cur].Invalidate()
	return true
}

// staggered short jog collapsing into a u-turn: prev turns one way, cur
// short, next heads back the way prev came.
func collapseUTurn(steps []datastructure.RouteStep, prev, cur, next int) bool {
	if steps[cur].Distance >= shortStepDistance {
		return false
	}
	curModifier := steps[cur].Maneuver.Instruction.Modifier
	nextModifier := steps[next].Maneuver.Instruction.Modifier
	sameSide := (curModifier.IsRightTurn() && nextModifier.IsRightTurn()) ||
		(curModifier.IsLeftTurn() && nextModifier.IsLeftTurn())
	if !sameSide {
		return false
	}
	if !geo.BearingsAreReversed(steps[prev].Maneuver.BearingAfter, steps[next].Maneuver.BearingAfter) {
		return false
	}

	steps[cur].Maneuver.Instruction = datastructure.NewTurnInstruction(
		datastructure.TURN_TYPE_CONTINUE, datastructure.DIRECTION_UTURN)
	forwardStepSignage(&steps[cur], steps[next])
	steps[cur].ElongateBy(steps[next])
	steps[next].Invalidate()
	return true
}

// UseLane vanishes when the lane indications force no actual choice.
func collapseUseLane(steps []datastructure.RouteStep, prev, cur int) bool {
	if steps[cur].Maneuver.Instruction.Type != datastructure.TURN_TYPE_USE_LANE {
		return false
	}
	for _, intersection := range steps[cur].Intersections {
		if laneChoiceExists(intersection.LaneDesc) {
			return false
		}
	}
	steps[prev].ElongateBy(steps[cur])
	steps[cur].Invalidate()
	return true
}

// a sliproad step fuses with the following turn onto the named crossroad.
func collapseSliproad(steps []datastructure.RouteStep, prev, cur int) bool {
	if steps[prev].Maneuver.Instruction.Type != datastructure.TURN_TYPE_SLIPROAD {
		return false
	}
	turnAngle := geo.AngleBetween(steps[prev].Maneuver.BearingAfter, steps[cur].Maneuver.BearingAfter)
	modifier := getTurnModifier(turnAngle)
	turnType := datastructure.TURN_TYPE_TURN
	if modifier == datastructure.DIRECTION_STRAIGHT {
		turnType = datastructure.TURN_TYPE_CONTINUE
	}
	steps[prev].Maneuver.Instruction = datastructure.NewTurnInstruction(turnType, modifier)
	forwardStepSignage(&steps[prev], steps[cur])
	steps[prev].ElongateBy(steps[cur])
	steps[cur].Invalidate()
	return true
}

// A -> B -> A over short distances collapses back to a single A step.
func collapseNameOscillation(steps []datastructure.RouteStep, prev, cur, next int) bool {
	if steps[cur].Distance >= shortStepDistance {
		return false
	}
	if !isSameName(steps[prev].Name, steps[next].Name) || isSameName(steps[prev].Name, steps[cur].Name) {
		return false
	}
	if steps[cur].Maneuver.Instruction.Type != datastructure.TURN_TYPE_NEW_NAME &&
		steps[cur].Maneuver.Instruction.Type != datastructure.TURN_TYPE_SUPPRESSED {
		return false
	}
	if steps[next].Maneuver.Instruction.Type != datastructure.TURN_TYPE_NEW_NAME {
		return false
	}
	steps[prev].ElongateBy(steps[cur])
	steps[prev].ElongateBy(steps[next])
	steps[cur].Invalidate()
	steps[next].Invalidate()
	return true
}

// a right-left (or left-right) jog within a few meters is one staggered
// intersection crossed straight.
func collapseStaggered(steps []datastructure.RouteStep, prev, cur, next int) bool {
	if steps[cur].Distance > staggeredDistance {
		return false
	}
	curModifier := steps[cur].Maneuver.Instruction.Modifier
	nextModifier := steps[next].Maneuver.Instruction.Modifier
	opposite := (curModifier == datastructure.DIRECTION_RIGHT && nextModifier == datastructure.DIRECTION_LEFT) ||
		(curModifier == datastructure.DIRECTION_LEFT && nextModifier == datastructure.DIRECTION_RIGHT)
	if !opposite {
		return false
	}
	steps[cur].Maneuver.Instruction = datastructure.NewTurnInstruction(
		datastructure.TURN_TYPE_CONTINUE, datastructure.DIRECTION_STRAIGHT)
	forwardStepSignage(&steps[cur], steps[next])
	steps[cur].ElongateBy(steps[next])
	steps[next].Invalidate()
	return true
}

// Pass C: an EndOfRoad right after the previous announcement reads better
// as a plain turn.
func refineEndOfRoad(steps []datastructure.RouteStep) []datastructure.RouteStep {
	for i := 1; i < len(steps); i++ {
		if steps[i].Maneuver.Instruction.Type != datastructure.TURN_TYPE_END_OF_ROAD {
			continue
		}
		prev := previousValid(steps, i)
		if prev == -1 {
			continue
		}
		if len(steps[prev].Intersections) < 2 {
			steps[i].Maneuver.Instruction.Type = datastructure.TURN_TYPE_TURN
		}
	}
	return steps
}

// Pass D: depart and arrive get a side modifier from the query offset,
// but only when the offset is inside the meaningful window; otherwise the
// u-turn sentinel says "no side".
func assignRelativeWaypointModifiers(steps []datastructure.RouteStep,
	source, target *datastructure.PhantomNode) []datastructure.RouteStep {
	if len(steps) == 0 {
		return steps
	}

	depart := &steps[0]
	depart.Maneuver.Instruction.Modifier = relativeModifier(
		source.Location, source.InputLocation, depart.Maneuver.BearingAfter)

	arrive := &steps[len(steps)-1]
	arrive.Maneuver.Instruction.Modifier = relativeModifier(
		target.Location, target.InputLocation, arrive.Maneuver.BearingBefore)

	return steps
}

func relativeModifier(projected, input datastructure.Coordinate, travelBearing float64) datastructure.DirectionModifier {
	offset := geo.HaversineMeters(
		projected.LatDeg(), projected.LonDeg(), input.LatDeg(), input.LonDeg())
	if offset < minSideOffset || offset > maxSideOffset {
		return datastructure.DIRECTION_UTURN
	}
	toInput := geo.BearingTo(
		projected.LatDeg(), projected.LonDeg(), input.LatDeg(), input.LonDeg())
	angle := geo.AngleBetween(travelBearing, toInput)
	switch {
	case angle > 160 && angle < 200:
		return datastructure.DIRECTION_STRAIGHT
	case angle < 180:
		return datastructure.DIRECTION_RIGHT
	default:
		return datastructure.DIRECTION_LEFT
	}
}

// Pass E: zero-ish length first/last steps are folded into their
// neighbour, with geometry windows and boundary bearings fixed up.
func trimShortEndSteps(steps []datastructure.RouteStep) []datastructure.RouteStep {
	if len(steps) > 2 && steps[0].Distance <= trimDistance {
		next := &steps[1]
		next.GeometryBegin = steps[0].GeometryBegin
		next.Maneuver.WaypointType = datastructure.WAYPOINT_TYPE_DEPART
		next.Maneuver.Instruction = datastructure.NewTurnInstruction(
			datastructure.TURN_TYPE_NO_TURN, steps[0].Maneuver.Instruction.Modifier)
		next.Maneuver.Location = steps[0].Maneuver.Location
		next.Maneuver.BearingBefore = 0
		steps[0].Invalidate()
	}
	if len(steps) > 2 && steps[len(steps)-2].Distance <= trimDistance {
		last := len(steps) - 1
		beforeIdx := previousValid(steps, last-1)
		if beforeIdx != -1 {
			steps[beforeIdx].ElongateBy(steps[last-1])
			steps[last-1].Invalidate()
		}
	}
	return steps
}
