package guidance

import (
	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/engine/facade"
	"github.com/lintang-b-s/routex/pkg/engine/routingalgorithm"
	"github.com/lintang-b-s/routex/pkg/geo"
)

// StepAssembler unpacks a search result into leg geometry and the raw
// step list handed to the post-processor.
type StepAssembler struct {
	f facade.DataFacade
}

func NewStepAssembler(f facade.DataFacade) *StepAssembler {
	return &StepAssembler{f: f}
}

// chainFor returns the directed coordinate chain of one routing node.
func (a *StepAssembler) chainFor(directed int32) []datastructure.Coordinate {
	node, isForward := a.f.SegmentNode(directed)
	nodeIDs := a.f.GeometryNodes(node.GeometryID)
	coords := make([]datastructure.Coordinate, len(nodeIDs))
	for i, id := range nodeIDs {
		coords[i] = a.f.Coordinate(id)
	}
	if !isForward {
		for i, j := 0, len(coords)-1; i < j; i, j = i+1, j-1 {
			coords[i], coords[j] = coords[j], coords[i]
		}
	}
	return coords
}

// traversalWeight is the weight of fully traversing one routing node's
// segment.
func (a *StepAssembler) traversalWeight(directed int32) int32 {
	node, isForward := a.f.SegmentNode(directed)
	if isForward {
		return node.ForwardWeight
	}
	return node.ReverseWeight
}

// Assemble builds the leg for one unpacked path between two phantoms.
func (a *StepAssembler) Assemble(path *routingalgorithm.PathResult,
	source, target *datastructure.PhantomNode) *datastructure.Leg {

	leg := &datastructure.Leg{}
	if len(path.Nodes) == 0 {
		return leg
	}

	// geometry assembly; boundaries[i] is the geometry index of the
	// intersection between node i and node i+1
	geometry := []datastructure.Coordinate{source.Location}
	boundaries := make([]int, 0, len(path.Nodes))

	for i, directed := range path.Nodes {
		chain := a.chainFor(directed)

		begin := 0
		if i == 0 {
			begin = geo.PointPositionBetweenLinePoints(
				source.Location.LatDeg(), source.Location.LonDeg(), chain)
		} else {
			begin = 1 // the boundary coordinate is shared with the previous chain
		}

		if i == len(path.Nodes)-1 {
			end := geo.PointPositionBetweenLinePoints(
				target.Location.LatDeg(), target.Location.LonDeg(), chain)
			for j := begin; j < end; j++ {
				geometry = append(geometry, chain[j])
			}
			geometry = append(geometry, target.Location)
		} else {
			for j := begin; j < len(chain); j++ {
				geometry = append(geometry, chain[j])
			}
			boundaries = append(boundaries, len(geometry)-1)
		}
	}

	leg.Geometry = geometry
	leg.SegmentOffsets, leg.SegmentDistances = segmentStats(geometry)

	// per-node durations, phantom-trimmed at both ends
	nodeWeights := make([]int32, len(path.Nodes))
	for i, directed := range path.Nodes {
		switch {
		case i == 0 && len(path.Nodes) == 1:
			nodeWeights[i] = weightBetweenPhantoms(source, target, directed)
		case i == 0:
			nodeWeights[i] = remainingWeight(source, directed)
		case i == len(path.Nodes)-1:
			nodeWeights[i] = consumedWeight(target, directed)
		default:
			nodeWeights[i] = a.traversalWeight(directed)
		}
	}

	leg.Steps = a.buildSteps(path, source, target, geometry, boundaries, nodeWeights)

	for _, step := range leg.Steps {
		leg.Distance += step.Distance
		leg.Duration += step.Duration
	}
	return leg
}

// remainingWeight is the cost of the source phantom's partial first
// segment.
func remainingWeight(p *datastructure.PhantomNode, directed int32) int32 {
	if directed == p.ForwardSegmentID {
		return p.ReverseWeight
	}
	return p.ForwardWeight
}

// consumedWeight is the cost of the target phantom's partial last segment.
func consumedWeight(p *datastructure.PhantomNode, directed int32) int32 {
	if directed == p.ForwardSegmentID {
		return p.ForwardWeight
	}
	return p.ReverseWeight
}

// weightBetweenPhantoms covers the same-edge case.
func weightBetweenPhantoms(source, target *datastructure.PhantomNode, directed int32) int32 {
	w := consumedWeight(target, directed) - consumedWeight(source, directed)
	if w < 0 {
		return 0
	}
	return w
}

func (a *StepAssembler) buildSteps(path *routingalgorithm.PathResult,
	source, target *datastructure.PhantomNode,
	geometry []datastructure.Coordinate, boundaries []int, nodeWeights []int32) []datastructure.RouteStep {

	steps := make([]datastructure.RouteStep, 0, len(boundaries)+2)

	departBearing := 0.0
	if len(geometry) > 1 {
		departBearing = geo.BearingTo(
			geometry[0].LatDeg(), geometry[0].LonDeg(),
			geometry[1].LatDeg(), geometry[1].LonDeg())
	}

	firstNode, _ := a.f.SegmentNode(path.Nodes[0])
	name, ref, pronunciation, destinations := a.f.Name(firstNode.NameID)

	current := datastructure.RouteStep{
		Name:          name,
		Ref:           ref,
		Pronunciation: pronunciation,
		Destinations:  destinations,
		NameID:        firstNode.NameID,
		Mode:          firstNode.TravelMode,
		GeometryBegin: 0,
		Duration:      float64(nodeWeights[0]) / 10.0,
		Maneuver: datastructure.StepManeuver{
			Location:     source.Location,
			BearingAfter: departBearing,
			Instruction: datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_NO_TURN, datastructure.DIRECTION_STRAIGHT),
			WaypointType: datastructure.WAYPOINT_TYPE_DEPART,
		},
	}

	for i, boundary := range boundaries {
		edgeID := path.Edges[i]
		turn := a.f.Turn(edgeID)
		entered, _ := a.f.SegmentNode(path.Nodes[i+1])
		enteredName, enteredRef, enteredPronunciation, enteredDestinations := a.f.Name(entered.NameID)

		nameChanges := entered.NameID != current.NameID
		if turn.Instruction.Type != datastructure.TURN_TYPE_SUPPRESSED || nameChanges {
			current.GeometryEnd = boundary + 1
			steps = append(steps, current)

			current = datastructure.RouteStep{
				Name:          enteredName,
				Ref:           enteredRef,
				Pronunciation: enteredPronunciation,
				Destinations:  enteredDestinations,
				NameID:        entered.NameID,
				Mode:          entered.TravelMode,
				GeometryBegin: boundary,
				Maneuver: datastructure.StepManeuver{
					Location:      geometry[boundary],
					BearingBefore: turn.PreTurnBearing,
					BearingAfter:  turn.PostTurnBearing,
					Instruction:   turn.Instruction,
					WaypointType:  datastructure.WAYPOINT_TYPE_NONE,
				},
				Intersections: []datastructure.IntersectionView{{
					Location: geometry[boundary],
					Bearings: []float64{geo.ReverseBearing(turn.PreTurnBearing), turn.PostTurnBearing},
					Entry:    []bool{false, true},
					In:       0,
					Out:      1,
					Lanes:    []datastructure.LaneTuple{turn.Lanes},
					LaneDesc: a.f.LaneDescription(turn.LaneDescriptionID),
				}},
			}
		} else {
			current.Duration += float64(turn.TurnPenalty) / 10.0
		}
		current.Duration += float64(nodeWeights[i+1]) / 10.0
	}

	current.GeometryEnd = len(geometry)
	steps = append(steps, current)

	arriveBearing := 0.0
	if len(geometry) > 1 {
		last := len(geometry) - 1
		arriveBearing = geo.BearingTo(
			geometry[last-1].LatDeg(), geometry[last-1].LonDeg(),
			geometry[last].LatDeg(), geometry[last].LonDeg())
	}
	lastNode, _ := a.f.SegmentNode(path.Nodes[len(path.Nodes)-1])
	arriveName, arriveRef, arrivePronunciation, arriveDestinations := a.f.Name(lastNode.NameID)
	steps = append(steps, datastructure.RouteStep{
		Name:          arriveName,
		Ref:           arriveRef,
		Pronunciation: arrivePronunciation,
		Destinations:  arriveDestinations,
		NameID:        lastNode.NameID,
		Mode:          lastNode.TravelMode,
		GeometryBegin: len(geometry) - 1,
		GeometryEnd:   len(geometry),
		Maneuver: datastructure.StepManeuver{
			Location:      target.Location,
			BearingBefore: arriveBearing,
			Instruction: datastructure.NewTurnInstruction(
				datastructure.TURN_TYPE_NO_TURN, datastructure.DIRECTION_STRAIGHT),
			WaypointType: datastructure.WAYPOINT_TYPE_ARRIVE,
		},
	})

	// distances from the geometry windows
	for i := range steps {
		steps[i].Distance = geometryDistance(geometry, steps[i].GeometryBegin, steps[i].GeometryEnd)
	}

	return steps
}

func segmentStats(geometry []datastructure.Coordinate) ([]int, []float64) {
	offsets := make([]int, 0, len(geometry))
	distances := make([]float64, 0, len(geometry))
	for i := 1; i < len(geometry); i++ {
		offsets = append(offsets, i-1)
		distances = append(distances, geo.HaversineMeters(
			geometry[i-1].LatDeg(), geometry[i-1].LonDeg(),
			geometry[i].LatDeg(), geometry[i].LonDeg()))
	}
	return offsets, distances
}

func geometryDistance(geometry []datastructure.Coordinate, begin, end int) float64 {
	if end > len(geometry) {
		end = len(geometry)
	}
	total := 0.0
	for i := begin + 1; i < end; i++ {
		total += geo.HaversineMeters(
			geometry[i-1].LatDeg(), geometry[i-1].LonDeg(),
			geometry[i].LatDeg(), geometry[i].LonDeg())
	}
	return total
}
