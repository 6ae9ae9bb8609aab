package snap

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/engine/facade"
	"github.com/lintang-b-s/routex/pkg/geo"
)

const (
	// DefaultMaxRadius bounds the snapping search.
	DefaultMaxRadius = 300.0 // meters
	searchRetries    = 2
)

// Options filter the candidate set of one snap query.
type Options struct {
	MaxRadiusMeters float64
	MaxResults      int
	Bearing         float64
	BearingRange    float64
	HasBearing      bool
}

func DefaultOptions() Options {
	return Options{MaxRadiusMeters: DefaultMaxRadius, MaxResults: 1}
}

// Resolver snaps query coordinates to phantom nodes over the spatial
// index.
type Resolver struct {
	tree *rtreego.Rtree
	f    facade.DataFacade
}

func NewResolver(tree *rtreego.Rtree, f facade.DataFacade) *Resolver {
	return &Resolver{tree: tree, f: f}
}

// Nearest returns up to opts.MaxResults phantom candidates ordered by
// projection distance.
func (r *Resolver) Nearest(lat, lon float64, opts Options) []datastructure.PhantomNode {
	if opts.MaxRadiusMeters <= 0 {
		opts.MaxRadiusMeters = DefaultMaxRadius
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 1
	}

	candidates := r.candidates(lat, lon, opts)
	if len(candidates) > opts.MaxResults {
		candidates = candidates[:opts.MaxResults]
	}
	return candidates
}

// NearestWithAlternative returns the closest candidate, plus the closest
// candidate on a big component when the primary sits on a tiny one, so
// queries do not get trapped in disconnected islands.
func (r *Resolver) NearestWithAlternative(lat, lon float64, opts Options) (*datastructure.PhantomNode, *datastructure.PhantomNode) {
	opts.MaxResults = 32
	candidates := r.candidates(lat, lon, opts)
	if len(candidates) == 0 {
		return nil, nil
	}
	primary := candidates[0]
	if !primary.IsTiny {
		return &primary, nil
	}
	for i := 1; i < len(candidates); i++ {
		if !candidates[i].IsTiny {
			alternative := candidates[i]
			return &primary, &alternative
		}
	}
	return &primary, nil
}

func (r *Resolver) candidates(lat, lon float64, opts Options) []datastructure.PhantomNode {
	radiusKM := opts.MaxRadiusMeters / 1000.0

	var leaves []rtreego.Spatial
	for try := 0; try <= searchRetries; try++ {
		upperLat, upperLon := geo.GetDestinationPoint(lat, lon, 45, radiusKM)
		lowerLat, lowerLon := geo.GetDestinationPoint(lat, lon, 225, radiusKM)

		rect, err := rtreego.NewRectFromPoints(
			rtreego.Point{lowerLat, lowerLon},
			rtreego.Point{upperLat, upperLon},
		)
		if err != nil {
			return nil
		}
		leaves = r.tree.SearchIntersect(rect)
		if len(leaves) > 0 {
			break
		}
		radiusKM += 0.05
	}

	// best projection per edge-based node
	best := make(map[int32]datastructure.PhantomNode)
	for _, spatial := range leaves {
		leaf := spatial.(*SegmentLeaf)
		phantom, ok := r.projectOnto(leaf, lat, lon, opts)
		if !ok {
			continue
		}
		if existing, seen := best[leaf.NodeIndex]; !seen || phantom.EdgeDistance < existing.EdgeDistance {
			best[leaf.NodeIndex] = phantom
		}
	}

	candidates := make([]datastructure.PhantomNode, 0, len(best))
	for _, phantom := range best {
		if phantom.EdgeDistance <= opts.MaxRadiusMeters {
			candidates = append(candidates, phantom)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].EdgeDistance != candidates[j].EdgeDistance {
			return candidates[i].EdgeDistance < candidates[j].EdgeDistance
		}
		return candidates[i].ForwardSegmentID < candidates[j].ForwardSegmentID
	})
	return candidates
}

// projectOnto drops the perpendicular from the query onto one geometry
// segment and derives the split weights.
func (r *Resolver) projectOnto(leaf *SegmentLeaf, lat, lon float64, opts Options) (datastructure.PhantomNode, bool) {
	nodes := r.f.EdgeBasedNodes()
	node := nodes[leaf.NodeIndex]

	query := datastructure.NewCoordinate(lat, lon)
	projection := geo.ProjectPointToLineCoord(leaf.From, leaf.To, query)
	distToQuery := geo.HaversineMeters(lat, lon, projection.LatDeg(), projection.LonDeg())

	weights := r.f.GeometryWeights(node.GeometryID)
	totalWeight := int32(0)
	for _, w := range weights {
		totalWeight += w
	}

	cumAtStart := int32(0)
	for i := int32(0); i < leaf.SegmentIndex && int(i) < len(weights); i++ {
		cumAtStart += weights[i]
	}

	segmentLength := geo.HaversineMeters(
		leaf.From.LatDeg(), leaf.From.LonDeg(), leaf.To.LatDeg(), leaf.To.LonDeg())
	frac := 0.0
	if segmentLength > 0 {
		frac = geo.HaversineMeters(
			leaf.From.LatDeg(), leaf.From.LonDeg(), projection.LatDeg(), projection.LonDeg()) / segmentLength
		frac = math.Min(1, math.Max(0, frac))
	}

	segmentWeight := int32(0)
	if int(leaf.SegmentIndex) < len(weights) {
		segmentWeight = weights[leaf.SegmentIndex]
	}
	forwardWeight := cumAtStart + int32(math.Round(frac*float64(segmentWeight)))
	reverseWeight := totalWeight - forwardWeight

	phantom := datastructure.PhantomNode{
		ForwardSegmentID: node.ForwardSegmentID,
		ReverseSegmentID: node.ReverseSegmentID,
		ForwardWeight:    forwardWeight,
		ReverseWeight:    reverseWeight,
		ComponentID:      node.ComponentID,
		IsTiny:           node.IsTiny,
		Location:         projection,
		InputLocation:    query,
		GeometryID:       node.GeometryID,
		EdgeDistance:     distToQuery,
	}

	if opts.HasBearing {
		segmentBearing := geo.BearingTo(
			leaf.From.LatDeg(), leaf.From.LonDeg(), leaf.To.LatDeg(), leaf.To.LonDeg())
		if !geo.BearingInRange(segmentBearing, opts.Bearing, opts.BearingRange) {
			phantom.ForwardSegmentID = datastructure.INVALID_NODE_ID
		}
		if !geo.BearingInRange(geo.ReverseBearing(segmentBearing), opts.Bearing, opts.BearingRange) {
			phantom.ReverseSegmentID = datastructure.INVALID_NODE_ID
		}
	}

	if !phantom.ForwardEnabled() && !phantom.ReverseEnabled() {
		return datastructure.PhantomNode{}, false
	}
	return phantom, true
}
