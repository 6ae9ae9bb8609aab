package datastructure

// GeometryEntry is one inner node of a compressed edge with the cumulative
// weight from the chain start.
type GeometryEntry struct {
	NodeID           int32
	CumulativeWeight int32
}

// CompressedGeometry is the packed inner-node table of all compressed
// edges. Offsets is monotonically non-decreasing and has one extra closing
// entry, so Entries[Offsets[id]:Offsets[id+1]] is well-defined for every
// geometry id.
type CompressedGeometry struct {
	Offsets []int32
	Entries []GeometryEntry
}

func NewCompressedGeometry() *CompressedGeometry {
	return &CompressedGeometry{Offsets: []int32{0}}
}

// Append closes the geometry of the next edge id and returns it.
func (g *CompressedGeometry) Append(entries []GeometryEntry) int32 {
	id := int32(len(g.Offsets) - 1)
	g.Entries = append(g.Entries, entries...)
	g.Offsets = append(g.Offsets, int32(len(g.Entries)))
	return id
}

func (g *CompressedGeometry) Get(id int32) []GeometryEntry {
	return g.Entries[g.Offsets[id]:g.Offsets[id+1]]
}

func (g *CompressedGeometry) Len() int {
	return len(g.Offsets) - 1
}

// Nodes returns the inner node sequence of a geometry id in forward order.
func (g *CompressedGeometry) Nodes(id int32) []int32 {
	entries := g.Get(id)
	nodes := make([]int32, len(entries))
	for i, e := range entries {
		nodes[i] = e.NodeID
	}
	return nodes
}

// Weights returns the per-segment weights of a geometry id, recovered from
// the cumulative sums.
func (g *CompressedGeometry) Weights(id int32) []int32 {
	entries := g.Get(id)
	weights := make([]int32, len(entries))
	prev := int32(0)
	for i, e := range entries {
		weights[i] = e.CumulativeWeight - prev
		prev = e.CumulativeWeight
	}
	return weights
}
