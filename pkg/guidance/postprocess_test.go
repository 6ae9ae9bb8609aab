package guidance

import (
	"testing"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waypointStep(wp datastructure.WaypointType, name string) datastructure.RouteStep {
	return datastructure.RouteStep{
		Name:     name,
		Distance: 100,
		Duration: 10,
		Mode:     datastructure.TRAVEL_MODE_DRIVING,
		Maneuver: datastructure.StepManeuver{
			Instruction: datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_NO_TURN, datastructure.DIRECTION_STRAIGHT),
			WaypointType: wp,
		},
	}
}

func turnStep(turnType datastructure.TurnType, modifier datastructure.DirectionModifier,
	name string, distance float64) datastructure.RouteStep {
	return datastructure.RouteStep{
		Name:     name,
		Distance: distance,
		Duration: distance / 10,
		Mode:     datastructure.TRAVEL_MODE_DRIVING,
		Maneuver: datastructure.StepManeuver{
			Instruction: datastructure.NewTurnInstruction(turnType, modifier),
		},
	}
}

func phantoms() (*datastructure.PhantomNode, *datastructure.PhantomNode) {
	source := &datastructure.PhantomNode{
		Location:      datastructure.NewCoordinate(0, 0),
		InputLocation: datastructure.NewCoordinate(0, 0),
	}
	target := &datastructure.PhantomNode{
		Location:      datastructure.NewCoordinate(0, 0.01),
		InputLocation: datastructure.NewCoordinate(0, 0.01),
	}
	return source, target
}

// first step stays Depart, last stays Arrive, nothing in between carries a
// waypoint type
func TestPostProcessPreservesWaypointBookends(t *testing.T) {
	source, target := phantoms()
	steps := []datastructure.RouteStep{
		waypointStep(datastructure.WAYPOINT_TYPE_DEPART, "first"),
		turnStep(datastructure.TURN_TYPE_TURN, datastructure.DIRECTION_RIGHT, "second", 500),
		waypointStep(datastructure.WAYPOINT_TYPE_ARRIVE, "second"),
	}

	out := PostProcess(steps, source, target)
	require.GreaterOrEqual(t, len(out), 2)
	assert.Equal(t, datastructure.WAYPOINT_TYPE_DEPART, out[0].Maneuver.WaypointType)
	assert.Equal(t, datastructure.WAYPOINT_TYPE_ARRIVE, out[len(out)-1].Maneuver.WaypointType)
	for _, step := range out[1 : len(out)-1] {
		assert.Equal(t, datastructure.WAYPOINT_TYPE_NONE, step.Maneuver.WaypointType)
	}
}

// post-processing its own output changes nothing
func TestPostProcessIdempotent(t *testing.T) {
	source, target := phantoms()
	steps := []datastructure.RouteStep{
		waypointStep(datastructure.WAYPOINT_TYPE_DEPART, "first"),
		turnStep(datastructure.TURN_TYPE_NEW_NAME, datastructure.DIRECTION_STRAIGHT, "renamed", 10),
		turnStep(datastructure.TURN_TYPE_TURN, datastructure.DIRECTION_RIGHT, "second", 500),
		turnStep(datastructure.TURN_TYPE_USE_LANE, datastructure.DIRECTION_STRAIGHT, "second", 40),
		waypointStep(datastructure.WAYPOINT_TYPE_ARRIVE, "second"),
	}

	once := PostProcess(steps, source, target)
	onceCopy := append([]datastructure.RouteStep(nil), once...)
	twice := PostProcess(onceCopy, source, target)

	require.Equal(t, len(once), len(twice))
	for i := range once {
		assert.Equal(t, once[i].Maneuver.Instruction, twice[i].Maneuver.Instruction, "step %d", i)
		assert.Equal(t, once[i].Name, twice[i].Name, "step %d", i)
		assert.InDelta(t, once[i].Distance, twice[i].Distance, 1e-9, "step %d", i)
	}
}

/*
roundabout accounting: enter, two stays, exit -> the enter step carries
exit 3 and the stays vanish.
*/
func TestRoundaboutExitCounting(t *testing.T) {
	source, target := phantoms()
	steps := []datastructure.RouteStep{
		waypointStep(datastructure.WAYPOINT_TYPE_DEPART, "in"),
		turnStep(datastructure.TURN_TYPE_ENTER_ROUNDABOUT, datastructure.DIRECTION_RIGHT, "ring", 30),
		turnStep(datastructure.TURN_TYPE_STAY_ON_ROUNDABOUT, datastructure.DIRECTION_STRAIGHT, "ring", 30),
		turnStep(datastructure.TURN_TYPE_STAY_ON_ROUNDABOUT, datastructure.DIRECTION_STRAIGHT, "ring", 30),
		turnStep(datastructure.TURN_TYPE_EXIT_ROUNDABOUT, datastructure.DIRECTION_RIGHT, "out", 500),
		waypointStep(datastructure.WAYPOINT_TYPE_ARRIVE, "out"),
	}

	out := PostProcess(steps, source, target)

	var enter *datastructure.RouteStep
	for i := range out {
		if out[i].Maneuver.Instruction.Type == datastructure.TURN_TYPE_ENTER_ROUNDABOUT {
			enter = &out[i]
		}
		assert.NotEqual(t, datastructure.TURN_TYPE_STAY_ON_ROUNDABOUT, out[i].Maneuver.Instruction.Type)
	}
	require.NotNil(t, enter)
	// two stays after the enter: the chosen exit is the third
	assert.Equal(t, 3, enter.Maneuver.ExitCount)
	// the enter step announces the road the ring is left onto
	assert.Equal(t, "out", enter.Name)
	assert.Equal(t, "ring", enter.RotaryName)
}

// a use-lane step with no actual lane choice disappears
func TestUseLaneCollapses(t *testing.T) {
	source, target := phantoms()

	allStraight := turnStep(datastructure.TURN_TYPE_USE_LANE, datastructure.DIRECTION_STRAIGHT, "main", 50)
	allStraight.Intersections = []datastructure.IntersectionView{{
		LaneDesc: datastructure.LaneDescription{datastructure.LANE_STRAIGHT, datastructure.LANE_STRAIGHT},
	}}

	steps := []datastructure.RouteStep{
		waypointStep(datastructure.WAYPOINT_TYPE_DEPART, "main"),
		allStraight,
		waypointStep(datastructure.WAYPOINT_TYPE_ARRIVE, "main"),
	}
	out := PostProcess(steps, source, target)
	for _, step := range out {
		assert.NotEqual(t, datastructure.TURN_TYPE_USE_LANE, step.Maneuver.Instruction.Type)
	}

	// with a real choice the step survives
	withChoice := turnStep(datastructure.TURN_TYPE_USE_LANE, datastructure.DIRECTION_STRAIGHT, "main", 50)
	withChoice.Intersections = []datastructure.IntersectionView{{
		LaneDesc: datastructure.LaneDescription{
			datastructure.LANE_RIGHT, datastructure.LANE_STRAIGHT, datastructure.LANE_LEFT,
		},
	}}
	steps = []datastructure.RouteStep{
		waypointStep(datastructure.WAYPOINT_TYPE_DEPART, "main"),
		withChoice,
		waypointStep(datastructure.WAYPOINT_TYPE_ARRIVE, "main"),
	}
	out = PostProcess(steps, source, target)
	found := false
	for _, step := range out {
		if step.Maneuver.Instruction.Type == datastructure.TURN_TYPE_USE_LANE {
			found = true
		}
	}
	assert.True(t, found)
}

// a rename right after departing on a short stub folds into the depart
func TestShortNewNameCollapse(t *testing.T) {
	source, target := phantoms()
	depart := waypointStep(datastructure.WAYPOINT_TYPE_DEPART, "stub")
	depart.Distance = 10

	steps := []datastructure.RouteStep{
		depart,
		turnStep(datastructure.TURN_TYPE_NEW_NAME, datastructure.DIRECTION_STRAIGHT, "main", 400),
		waypointStep(datastructure.WAYPOINT_TYPE_ARRIVE, "main"),
	}

	out := PostProcess(steps, source, target)
	require.Len(t, out, 2)
	assert.Equal(t, datastructure.WAYPOINT_TYPE_DEPART, out[0].Maneuver.WaypointType)
	assert.Equal(t, "main", out[0].Name)
	assert.InDelta(t, 410.0, out[0].Distance, 1e-9)
}

// right-left jog within three meters reads as crossing one staggered
// intersection
func TestStaggeredIntersectionCollapse(t *testing.T) {
	source, target := phantoms()
	steps := []datastructure.RouteStep{
		waypointStep(datastructure.WAYPOINT_TYPE_DEPART, "main"),
		turnStep(datastructure.TURN_TYPE_TURN, datastructure.DIRECTION_RIGHT, "cross", 2),
		turnStep(datastructure.TURN_TYPE_TURN, datastructure.DIRECTION_LEFT, "main", 300),
		waypointStep(datastructure.WAYPOINT_TYPE_ARRIVE, "main"),
	}

	out := PostProcess(steps, source, target)

	var continues int
	for _, step := range out {
		assert.NotEqual(t, datastructure.DIRECTION_LEFT, step.Maneuver.Instruction.Modifier)
		if step.Maneuver.Instruction.Type == datastructure.TURN_TYPE_CONTINUE &&
			step.Maneuver.Instruction.Modifier == datastructure.DIRECTION_STRAIGHT {
			continues++
		}
	}
	assert.Equal(t, 1, continues)
}
