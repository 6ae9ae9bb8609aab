package osmparser

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/geo"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"
)

type nodeCoord struct {
	lat float64
	lon float64
}

// ParsedSegment is one consecutive node pair of an accepted way, already
// annotated by the profile. The graph builder turns these into
// NodeBasedEdge rows.
type ParsedSegment struct {
	FromOsm        int64
	ToOsm          int64
	WayID          int64
	FromCoord      datastructure.Coordinate
	ToCoord        datastructure.Coordinate
	DistanceMeters float64
	W              WeightData
}

type ParsedNode struct {
	OsmID         int64
	Coord         datastructure.Coordinate
	Barrier       bool
	TrafficSignal bool
}

// ParsedData is everything the graph builder needs.
type ParsedData struct {
	Nodes               []ParsedNode
	Segments            []ParsedSegment
	Restrictions        []datastructure.TurnRestriction
	RestrictionWayNodes map[int64][]int64
}

type OsmParser struct {
	profile            ProfileCallback
	referencedNodes    map[int64]struct{}
	restrictionWays    map[int64]struct{}
	acceptedNodeMap    map[int64]nodeCoord
	barrierNodes       map[int64]bool
	trafficSignalNodes map[int64]bool
	log                *zap.Logger
}

func NewOsmParser(profile ProfileCallback, log *zap.Logger) *OsmParser {
	return &OsmParser{
		profile:            profile,
		referencedNodes:    make(map[int64]struct{}),
		restrictionWays:    make(map[int64]struct{}),
		acceptedNodeMap:    make(map[int64]nodeCoord),
		barrierNodes:       make(map[int64]bool),
		trafficSignalNodes: make(map[int64]bool),
		log:                log,
	}
}

// Parse runs two scans over the pbf file: the first collects the node ids
// referenced by accepted ways and the restriction relations, the second
// materializes node coordinates and emits annotated segments.
func (p *OsmParser) Parse(mapFile string) (*ParsedData, error) {
	f, err := os.Open(mapFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result := &ParsedData{
		RestrictionWayNodes: make(map[int64][]int64),
	}

	scanner := osmpbf.New(context.Background(), f, 0)
	// must not be parallel, ordering matters
	countWays := 0
	for scanner.Scan() {
		o := scanner.Object()

		switch o.ObjectID().Type() {
		case osm.TypeWay:
			way := o.(*osm.Way)
			if len(way.Nodes) < 2 {
				continue
			}
			if !p.profile.AcceptWay(way) {
				continue
			}
			if (countWays+1)%50000 == 0 {
				p.log.Info("reading openstreetmap ways", zap.Int("count", countWays+1))
			}
			countWays++

			for _, node := range way.Nodes {
				p.referencedNodes[int64(node.ID)] = struct{}{}
			}
		case osm.TypeRelation:
			relation := o.(*osm.Relation)
			p.processRestrictionRelation(relation, result)
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, err
	}
	scanner.Close()

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	scanner = osmpbf.New(context.Background(), f, 0)
	defer scanner.Close()

	countWays = 0
	countNodes := 0
	for scanner.Scan() {
		o := scanner.Object()

		switch o.ObjectID().Type() {
		case osm.TypeNode:
			node := o.(*osm.Node)
			if (countNodes+1)%50000 == 0 {
				p.log.Info("processing openstreetmap nodes", zap.Int("count", countNodes+1))
			}
			countNodes++

			if _, ok := p.referencedNodes[int64(node.ID)]; !ok {
				continue
			}
			p.acceptedNodeMap[int64(node.ID)] = nodeCoord{lat: node.Lat, lon: node.Lon}

			barrier, trafficSignal := p.profile.ProcessNode(node)
			if barrier {
				p.barrierNodes[int64(node.ID)] = true
			}
			if trafficSignal {
				p.trafficSignalNodes[int64(node.ID)] = true
			}
		case osm.TypeWay:
			way := o.(*osm.Way)
			if len(way.Nodes) < 2 {
				continue
			}
			if !p.profile.AcceptWay(way) {
				continue
			}
			if (countWays+1)%50000 == 0 {
				p.log.Info("processing openstreetmap ways", zap.Int("count", countWays+1))
			}
			countWays++

			p.processWay(way, result)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	result.Nodes = make([]ParsedNode, 0, len(p.acceptedNodeMap))
	for osmID, coord := range p.acceptedNodeMap {
		result.Nodes = append(result.Nodes, ParsedNode{
			OsmID:         osmID,
			Coord:         datastructure.NewCoordinate(coord.lat, coord.lon),
			Barrier:       p.barrierNodes[osmID],
			TrafficSignal: p.trafficSignalNodes[osmID],
		})
	}

	p.log.Info("parsed openstreetmap file",
		zap.Int("nodes", len(result.Nodes)),
		zap.Int("segments", len(result.Segments)),
		zap.Int("restrictions", len(result.Restrictions)))

	return result, nil
}

func (p *OsmParser) processWay(way *osm.Way, result *ParsedData) {
	w := p.profile.ProcessWay(way)
	if !w.Forward && !w.Backward {
		return
	}

	if _, ok := p.restrictionWays[int64(way.ID)]; ok {
		nodeIDs := make([]int64, 0, len(way.Nodes))
		for _, n := range way.Nodes {
			nodeIDs = append(nodeIDs, int64(n.ID))
		}
		result.RestrictionWayNodes[int64(way.ID)] = nodeIDs
	}

	wayLength := 0.0
	for i := 1; i < len(way.Nodes); i++ {
		prev, okPrev := p.acceptedNodeMap[int64(way.Nodes[i-1].ID)]
		curr, okCurr := p.acceptedNodeMap[int64(way.Nodes[i].ID)]
		if !okPrev || !okCurr {
			continue
		}
		wayLength += geo.HaversineMeters(prev.lat, prev.lon, curr.lat, curr.lon)
	}
	w.WayLength = wayLength

	for i := 1; i < len(way.Nodes); i++ {
		fromOsm := int64(way.Nodes[i-1].ID)
		toOsm := int64(way.Nodes[i].ID)

		from, okFrom := p.acceptedNodeMap[fromOsm]
		to, okTo := p.acceptedNodeMap[toOsm]
		if !okFrom || !okTo {
			// incomplete extract, the way references a node outside it
			p.log.Debug("way references missing node",
				zap.Int64("way", int64(way.ID)), zap.Int64("from", fromOsm), zap.Int64("to", toOsm))
			continue
		}

		fromCoord := datastructure.NewCoordinate(from.lat, from.lon)
		toCoord := datastructure.NewCoordinate(to.lat, to.lon)
		dist := geo.HaversineMeters(from.lat, from.lon, to.lat, to.lon)

		segW := w
		p.profile.ProcessSegment(fromCoord, toCoord, dist, &segW)

		result.Segments = append(result.Segments, ParsedSegment{
			FromOsm:        fromOsm,
			ToOsm:          toOsm,
			WayID:          int64(way.ID),
			FromCoord:      fromCoord,
			ToCoord:        toCoord,
			DistanceMeters: dist,
			W:              segW,
		})
	}
}

func (p *OsmParser) processRestrictionRelation(relation *osm.Relation, result *ParsedData) {
	if relation.Tags.Find("type") != "restriction" {
		return
	}
	restriction := relation.Tags.Find("restriction")
	if restriction == "" {
		restriction = relation.Tags.Find("restriction:motorcar")
	}
	if restriction == "" {
		return
	}

	onlyTurn := strings.HasPrefix(restriction, "only_")
	if !onlyTurn && !strings.HasPrefix(restriction, "no_") {
		return
	}

	var fromWay, toWay, viaNode int64 = -1, -1, -1
	viaIsWay := false
	for _, member := range relation.Members {
		switch member.Role {
		case "from":
			if member.Type == osm.TypeWay {
				fromWay = member.Ref
			}
		case "to":
			if member.Type == osm.TypeWay {
				toWay = member.Ref
			}
		case "via":
			if member.Type == osm.TypeNode {
				viaNode = member.Ref
			} else if member.Type == osm.TypeWay {
				viaIsWay = true
			}
		}
	}

	if fromWay == -1 || toWay == -1 {
		return
	}

	r := datastructure.NewTurnRestriction(fromWay, viaNode, toWay, onlyTurn)
	r.ViaIsWay = viaIsWay
	result.Restrictions = append(result.Restrictions, r)

	p.restrictionWays[fromWay] = struct{}{}
	p.restrictionWays[toWay] = struct{}{}
}
