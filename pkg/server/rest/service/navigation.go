package service

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"

	kbinary "github.com/kelindar/binary"
	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/engine/facade"
	"github.com/lintang-b-s/routex/pkg/engine/routingalgorithm"
	"github.com/lintang-b-s/routex/pkg/guidance"
	"github.com/lintang-b-s/routex/pkg/kv"
	"github.com/lintang-b-s/routex/pkg/snap"
	"go.uber.org/zap"
)

var (
	ErrNoSegment      = errors.New("no snappable segment within the search radius")
	ErrNoRoute        = errors.New("no route found")
	ErrTooBig         = errors.New("too many locations in one request")
	ErrDataMissing    = errors.New("routing data missing")
	ErrInvalidOptions = errors.New("invalid options")
)

const DefaultMaxLocations = 100

// Waypoint is one query location with its optional snapping filters.
type Waypoint struct {
	Lat          float64
	Lon          float64
	Bearing      float64
	BearingRange float64
	HasBearing   bool
	Radius       float64
	Hint         string
}

type RouteOptions struct {
	Steps            bool
	Overview         string // false | simplified | full
	GeometryFormat   string // polyline | geojson
	ContinueStraight string
	Alternatives     bool
}

type RouteLeg struct {
	Distance float64
	Duration float64
	Steps    []datastructure.RouteStep
	Geometry []datastructure.Coordinate
}

type RouteResult struct {
	Legs      []RouteLeg
	Distance  float64
	Duration  float64
	Geometry  []datastructure.Coordinate
	Waypoints []datastructure.PhantomNode
}

type NearestResult struct {
	Phantom  datastructure.PhantomNode
	Name     string
	Distance float64
}

// NavigationService binds snapping, search, and guidance under the facade
// provider. The spatial index is a derived structure cached per facade
// version.
type NavigationService struct {
	provider     *facade.Provider
	kvDB         *kv.KVDB // optional h3 candidate store, nil when absent
	log          *zap.Logger
	maxLocations int

	mu              sync.Mutex
	resolverVersion uint64
	resolver        *snap.Resolver
}

func NewNavigationService(provider *facade.Provider, maxLocations int, log *zap.Logger) *NavigationService {
	if maxLocations <= 0 {
		maxLocations = DefaultMaxLocations
	}
	return &NavigationService{
		provider:     provider,
		log:          log,
		maxLocations: maxLocations,
	}
}

// WithCandidateStore attaches the h3 candidate store written by the
// extractor; nearest queries use it as a cheap negative filter.
func (s *NavigationService) WithCandidateStore(kvDB *kv.KVDB) *NavigationService {
	s.kvDB = kvDB
	return s
}

// resolverFor rebuilds the r-tree only when the facade snapshot changed.
func (s *NavigationService) resolverFor(f facade.DataFacade) (*snap.Resolver, error) {
	version := s.provider.Version()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolver != nil && s.resolverVersion == version {
		return s.resolver, nil
	}
	tree, err := snap.BuildIndex(f)
	if err != nil {
		return nil, err
	}
	s.resolver = snap.NewResolver(tree, f)
	s.resolverVersion = version
	return s.resolver, nil
}

// resolveWaypoint snaps one waypoint, honoring hints and the big-component
// preference.
func (s *NavigationService) resolveWaypoint(f facade.DataFacade, resolver *snap.Resolver,
	w Waypoint) (*datastructure.PhantomNode, error) {
	if w.Hint != "" {
		if phantom, ok := decodeHint(w.Hint, f.Checksum()); ok {
			return phantom, nil
		}
	}

	opts := snap.DefaultOptions()
	if w.Radius > 0 {
		opts.MaxRadiusMeters = w.Radius
	}
	if w.HasBearing {
		opts.HasBearing = true
		opts.Bearing = w.Bearing
		opts.BearingRange = w.BearingRange
	}

	primary, alternative := resolver.NearestWithAlternative(w.Lat, w.Lon, opts)
	if primary == nil {
		return nil, ErrNoSegment
	}
	if primary.IsTiny && alternative != nil {
		return alternative, nil
	}
	return primary, nil
}

// Checksum of the current snapshot, stamped into hints.
func (s *NavigationService) Checksum() uint32 {
	f, release := s.provider.Acquire()
	defer release()
	return f.Checksum()
}

// Route computes the one-to-one (or via-point) route with optional
// turn-by-turn steps.
func (s *NavigationService) Route(ctx context.Context, waypoints []Waypoint, opts RouteOptions) (*RouteResult, error) {
	if len(waypoints) < 2 {
		return nil, ErrInvalidOptions
	}
	if len(waypoints) > s.maxLocations {
		return nil, ErrTooBig
	}

	f, release := s.provider.Acquire()
	defer release()

	resolver, err := s.resolverFor(f)
	if err != nil {
		return nil, ErrDataMissing
	}

	phantoms := make([]*datastructure.PhantomNode, len(waypoints))
	for i, w := range waypoints {
		phantom, err := s.resolveWaypoint(f, resolver, w)
		if err != nil {
			return nil, err
		}
		phantoms[i] = phantom
	}

	algorithm := routingalgorithm.NewRouteAlgorithm(f)
	assembler := guidance.NewStepAssembler(f)

	result := &RouteResult{}
	for i := 0; i+1 < len(phantoms); i++ {
		path, err := algorithm.ShortestPath(ctx, phantoms[i], phantoms[i+1])
		if err != nil {
			if errors.Is(err, routingalgorithm.ErrCancelled) {
				return nil, err
			}
			return nil, ErrNoRoute
		}

		leg := assembler.Assemble(path, phantoms[i], phantoms[i+1])
		steps := leg.Steps
		if opts.Steps {
			steps = guidance.PostProcess(steps, phantoms[i], phantoms[i+1])
		} else {
			steps = nil
		}

		result.Legs = append(result.Legs, RouteLeg{
			Distance: leg.Distance,
			Duration: leg.Duration,
			Steps:    steps,
			Geometry: leg.Geometry,
		})
		result.Distance += leg.Distance
		result.Duration += leg.Duration
		if i == 0 {
			result.Geometry = append(result.Geometry, leg.Geometry...)
		} else if len(leg.Geometry) > 1 {
			result.Geometry = append(result.Geometry, leg.Geometry[1:]...)
		}
	}

	for _, phantom := range phantoms {
		result.Waypoints = append(result.Waypoints, *phantom)
	}
	return result, nil
}

// Table computes the duration matrix between the selected sources and
// destinations.
func (s *NavigationService) Table(ctx context.Context, waypoints []Waypoint,
	sources, destinations []int) ([][]float64, []datastructure.PhantomNode, error) {
	if len(waypoints) > s.maxLocations {
		return nil, nil, ErrTooBig
	}
	if len(waypoints) == 0 {
		return nil, nil, ErrInvalidOptions
	}

	f, release := s.provider.Acquire()
	defer release()

	resolver, err := s.resolverFor(f)
	if err != nil {
		return nil, nil, ErrDataMissing
	}

	phantoms := make([]*datastructure.PhantomNode, len(waypoints))
	for i, w := range waypoints {
		phantom, err := s.resolveWaypoint(f, resolver, w)
		if err != nil {
			return nil, nil, err
		}
		phantoms[i] = phantom
	}

	if len(sources) == 0 {
		sources = allIndices(len(waypoints))
	}
	if len(destinations) == 0 {
		destinations = allIndices(len(waypoints))
	}
	for _, idx := range append(append([]int(nil), sources...), destinations...) {
		if idx < 0 || idx >= len(waypoints) {
			return nil, nil, ErrInvalidOptions
		}
	}

	sourcePhantoms := make([]*datastructure.PhantomNode, len(sources))
	for i, idx := range sources {
		sourcePhantoms[i] = phantoms[idx]
	}
	targetPhantoms := make([]*datastructure.PhantomNode, len(destinations))
	for i, idx := range destinations {
		targetPhantoms[i] = phantoms[idx]
	}

	algorithm := routingalgorithm.NewRouteAlgorithm(f)
	matrix, err := algorithm.ManyToMany(ctx, sourcePhantoms, targetPhantoms)
	if err != nil {
		return nil, nil, err
	}

	durations := make([][]float64, len(matrix))
	for i, row := range matrix {
		durations[i] = make([]float64, len(row))
		for j, weight := range row {
			if weight == datastructure.INVALID_WEIGHT {
				durations[i][j] = -1
			} else {
				durations[i][j] = float64(weight) / 10.0
			}
		}
	}

	snapped := make([]datastructure.PhantomNode, len(phantoms))
	for i, p := range phantoms {
		snapped[i] = *p
	}
	return durations, snapped, nil
}

// Nearest returns the k closest snappable segments with their street
// names.
func (s *NavigationService) Nearest(ctx context.Context, w Waypoint, k int) ([]NearestResult, error) {
	if s.kvDB != nil {
		if _, err := s.kvDB.NearbyEdges(w.Lat, w.Lon); errors.Is(err, kv.ErrEdgesNotFound) {
			// nothing in this cell or its neighbours, skip the tree walk
			return nil, ErrNoSegment
		}
	}

	f, release := s.provider.Acquire()
	defer release()

	resolver, err := s.resolverFor(f)
	if err != nil {
		return nil, ErrDataMissing
	}

	opts := snap.DefaultOptions()
	opts.MaxResults = k
	if w.Radius > 0 {
		opts.MaxRadiusMeters = w.Radius
	}
	if w.HasBearing {
		opts.HasBearing = true
		opts.Bearing = w.Bearing
		opts.BearingRange = w.BearingRange
	}

	candidates := resolver.Nearest(w.Lat, w.Lon, opts)
	if len(candidates) == 0 {
		return nil, ErrNoSegment
	}

	results := make([]NearestResult, 0, len(candidates))
	for _, candidate := range candidates {
		directed := candidate.ForwardSegmentID
		if directed == datastructure.INVALID_NODE_ID {
			directed = candidate.ReverseSegmentID
		}
		node, _ := f.SegmentNode(directed)
		name, _, _, _ := f.Name(node.NameID)
		results = append(results, NearestResult{
			Phantom:  candidate,
			Name:     name,
			Distance: candidate.EdgeDistance,
		})
	}
	return results, nil
}

// Match snaps a gps trace and routes between consecutive snapped points.
func (s *NavigationService) Match(ctx context.Context, trace []Waypoint) (*RouteResult, error) {
	if len(trace) < 2 {
		return nil, ErrInvalidOptions
	}
	return s.Route(ctx, trace, RouteOptions{Steps: false, Overview: "full"})
}

// Trip orders the waypoints with a nearest-neighbour tour over the
// duration matrix and routes the tour.
func (s *NavigationService) Trip(ctx context.Context, waypoints []Waypoint) (*RouteResult, []int, error) {
	if len(waypoints) < 2 {
		return nil, nil, ErrInvalidOptions
	}

	durations, _, err := s.Table(ctx, waypoints, nil, nil)
	if err != nil {
		return nil, nil, err
	}

	order := nearestNeighbourTour(durations)
	ordered := make([]Waypoint, len(order))
	for i, idx := range order {
		ordered[i] = waypoints[idx]
	}

	route, err := s.Route(ctx, ordered, RouteOptions{Steps: true, Overview: "simplified"})
	if err != nil {
		return nil, nil, err
	}
	return route, order, nil
}

func nearestNeighbourTour(durations [][]float64) []int {
	n := len(durations)
	visited := make([]bool, n)
	order := make([]int, 0, n)
	current := 0
	visited[0] = true
	order = append(order, 0)
	for len(order) < n {
		next := -1
		best := -1.0
		for j := 0; j < n; j++ {
			if visited[j] || durations[current][j] < 0 {
				continue
			}
			if next == -1 || durations[current][j] < best {
				next = j
				best = durations[current][j]
			}
		}
		if next == -1 {
			// disconnected remainder, keep input order
			for j := 0; j < n; j++ {
				if !visited[j] {
					next = j
					break
				}
			}
		}
		visited[next] = true
		order = append(order, next)
		current = next
	}
	return order
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

type hintBlob struct {
	Checksum uint32
	Phantom  datastructure.PhantomNode
}

// EncodeHint packs a resolved phantom into the opaque hint the client can
// replay on the next request.
func EncodeHint(phantom *datastructure.PhantomNode, checksum uint32) string {
	blob, err := kbinary.Marshal(hintBlob{Checksum: checksum, Phantom: *phantom})
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(blob)
}

func decodeHint(hint string, checksum uint32) (*datastructure.PhantomNode, bool) {
	raw, err := base64.URLEncoding.DecodeString(hint)
	if err != nil {
		return nil, false
	}
	var blob hintBlob
	if err := kbinary.Unmarshal(raw, &blob); err != nil {
		return nil, false
	}
	if blob.Checksum != checksum {
		// stale hint from an older snapshot
		return nil, false
	}
	return &blob.Phantom, true
}
