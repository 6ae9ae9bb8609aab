package facade

import (
	"errors"
	"sync"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/storage"
)

var ErrDataMissing = errors.New("routing tables missing or torn")

// DataFacade is the uniform read-only view over one coherent snapshot of
// the persisted tables. A facade value is immutable; reloads swap whole
// facades through the Provider.
type DataFacade interface {
	NumDirectedNodes() int32
	OutEdges(node int32) []int32
	InEdges(node int32) []int32
	Edge(edgeID int32) datastructure.EdgeBasedEdge
	Turn(edgeID int32) datastructure.TurnData
	FindEdge(from, to int32) int32
	IsCore(node int32) bool

	// SegmentNode resolves a directed node id to its edge-based node
	// record and traversal direction.
	SegmentNode(directed int32) (datastructure.EdgeBasedNode, bool)
	EdgeBasedNodes() []datastructure.EdgeBasedNode

	Coordinate(nodeBased int32) datastructure.Coordinate
	GeometryNodes(geometryID int32) []int32
	GeometryWeights(geometryID int32) []int32

	// Name splits a name id into its four strings.
	Name(nameID int32) (name, ref, pronunciation, destinations string)
	LaneDescription(id int32) datastructure.LaneDescription
	LaneString(id int32) string

	Checksum() uint32
	Timestamp() string
}

const nameStride = 4

// OwningFacade holds a private in-process copy of the tables.
type OwningFacade struct {
	tables   *storage.RoutingTables
	firstOut [][]int32
	firstIn  [][]int32
}

func NewOwningFacade(tables *storage.RoutingTables) (*OwningFacade, error) {
	if tables.Checksum != tables.ComputeChecksum() {
		return nil, ErrDataMissing
	}
	f := &OwningFacade{tables: tables}
	f.buildAdjacency()
	return f, nil
}

func (f *OwningFacade) buildAdjacency() {
	n := f.tables.DirectedCount
	f.firstOut = make([][]int32, n)
	f.firstIn = make([][]int32, n)
	for i, e := range f.tables.Edges {
		if e.Forward {
			f.firstOut[e.Source] = append(f.firstOut[e.Source], int32(i))
			f.firstIn[e.Target] = append(f.firstIn[e.Target], int32(i))
		}
		if e.Backward {
			f.firstOut[e.Target] = append(f.firstOut[e.Target], int32(i))
			f.firstIn[e.Source] = append(f.firstIn[e.Source], int32(i))
		}
	}
}

func (f *OwningFacade) NumDirectedNodes() int32 { return f.tables.DirectedCount }

func (f *OwningFacade) OutEdges(node int32) []int32 { return f.firstOut[node] }

func (f *OwningFacade) InEdges(node int32) []int32 { return f.firstIn[node] }

func (f *OwningFacade) Edge(edgeID int32) datastructure.EdgeBasedEdge {
	return f.tables.Edges[edgeID]
}

func (f *OwningFacade) Turn(edgeID int32) datastructure.TurnData {
	return f.tables.Turns[edgeID]
}

func (f *OwningFacade) FindEdge(from, to int32) int32 {
	for _, edgeID := range f.firstOut[from] {
		e := f.tables.Edges[edgeID]
		if (e.Source == from && e.Target == to) || (e.Backward && e.Target == from && e.Source == to) {
			return edgeID
		}
	}
	return datastructure.INVALID_EDGE_ID
}

func (f *OwningFacade) IsCore(node int32) bool {
	if len(f.tables.CoreFlags) == 0 {
		return true
	}
	return f.tables.CoreFlags[node]
}

func (f *OwningFacade) SegmentNode(directed int32) (datastructure.EdgeBasedNode, bool) {
	idx := f.tables.SegmentNode[directed]
	return f.tables.EdgeBasedNodes[idx], f.tables.SegmentIsForward[directed]
}

func (f *OwningFacade) EdgeBasedNodes() []datastructure.EdgeBasedNode {
	return f.tables.EdgeBasedNodes
}

func (f *OwningFacade) Coordinate(nodeBased int32) datastructure.Coordinate {
	return f.tables.Coordinates[nodeBased]
}

func (f *OwningFacade) GeometryNodes(geometryID int32) []int32 {
	return f.tables.Geometry.Nodes(geometryID)
}

func (f *OwningFacade) GeometryWeights(geometryID int32) []int32 {
	return f.tables.Geometry.Weights(geometryID)
}

func (f *OwningFacade) Name(nameID int32) (string, string, string, string) {
	base := nameID * nameStride
	if base < 0 || int(base)+3 >= len(f.tables.Names) {
		return "", "", "", ""
	}
	return f.tables.Names[base], f.tables.Names[base+3], f.tables.Names[base+2], f.tables.Names[base+1]
}

func (f *OwningFacade) LaneDescription(id int32) datastructure.LaneDescription {
	if id <= 0 || int(id) >= len(f.tables.LaneDescriptions) {
		return nil
	}
	return f.tables.LaneDescriptions[id]
}

func (f *OwningFacade) LaneString(id int32) string {
	if id <= 0 || int(id) >= len(f.tables.LaneStrings) {
		return ""
	}
	return f.tables.LaneStrings[id]
}

func (f *OwningFacade) Checksum() uint32 { return f.tables.Checksum }

func (f *OwningFacade) Timestamp() string { return f.tables.Timestamp }

func (f *OwningFacade) Tables() *storage.RoutingTables { return f.tables }

// Provider hands out the current facade under a shared lock and swaps it
// atomically when the datastore publishes new tables. Readers hold the
// shared lock for a whole query and never observe a half-swapped layout.
type Provider struct {
	mu      sync.RWMutex
	current DataFacade
	version uint64
}

func NewProvider(initial DataFacade) *Provider {
	return &Provider{current: initial, version: 1}
}

// Acquire returns the current facade with the shared lock held; release
// must be called when the query finishes.
func (p *Provider) Acquire() (DataFacade, func()) {
	p.mu.RLock()
	f := p.current
	return f, p.mu.RUnlock
}

// Version changes on every swap; cached derived structures compare it.
func (p *Provider) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// Swap publishes a new snapshot. Exclusive only for the pointer flip.
func (p *Provider) Swap(next DataFacade) {
	p.mu.Lock()
	p.current = next
	p.version++
	p.mu.Unlock()
}
