package snap

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/engine/facade"
	"github.com/lintang-b-s/routex/pkg/storage"
	"github.com/uber/h3-go/v4"
	kbinary "github.com/kelindar/binary"
)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
	segmentPadding   = 1e-5 // degrees, keeps zero-area rects legal
)

// SegmentLeaf is one geometry segment of an edge-based node inside the
// spatial index.
type SegmentLeaf struct {
	NodeIndex    int32 // index into the edge-based node table
	SegmentIndex int32 // geometry segment, From..To
	From         datastructure.Coordinate
	To           datastructure.Coordinate

	rect rtreego.Rect
}

func (l *SegmentLeaf) Bounds() rtreego.Rect {
	return l.rect
}

func newSegmentLeaf(nodeIndex, segmentIndex int32, from, to datastructure.Coordinate) (*SegmentLeaf, error) {
	minLat := min(from.LatDeg(), to.LatDeg()) - segmentPadding
	minLon := min(from.LonDeg(), to.LonDeg()) - segmentPadding
	maxLat := max(from.LatDeg(), to.LatDeg()) + segmentPadding
	maxLon := max(from.LonDeg(), to.LonDeg()) + segmentPadding

	rect, err := rtreego.NewRectFromPoints(
		rtreego.Point{minLat, minLon},
		rtreego.Point{maxLat, maxLon},
	)
	if err != nil {
		return nil, err
	}
	return &SegmentLeaf{
		NodeIndex:    nodeIndex,
		SegmentIndex: segmentIndex,
		From:         from,
		To:           to,
		rect:         rect,
	}, nil
}

// collectLeaves lists every geometry segment of every snappable edge-based
// node, ordered by the h3 cell of the segment midpoint so pages and tree
// insertion follow a space-filling order.
func collectLeaves(f facade.DataFacade) ([]*SegmentLeaf, error) {
	nodes := f.EdgeBasedNodes()
	leaves := make([]*SegmentLeaf, 0, len(nodes)*2)

	for i := range nodes {
		node := &nodes[i]
		if !node.Startpoint {
			continue
		}
		chain := f.GeometryNodes(node.GeometryID)
		for s := 1; s < len(chain); s++ {
			from := f.Coordinate(chain[s-1])
			to := f.Coordinate(chain[s])
			leaf, err := newSegmentLeaf(int32(i), int32(s), from, to)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, leaf)
		}
	}

	cells := make([]h3.Cell, len(leaves))
	for i, leaf := range leaves {
		mid := h3.NewLatLng(
			(leaf.From.LatDeg()+leaf.To.LatDeg())/2,
			(leaf.From.LonDeg()+leaf.To.LonDeg())/2)
		cells[i] = h3.LatLngToCell(mid, 9)
	}
	order := make([]int, len(leaves))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return cells[order[a]] < cells[order[b]]
	})

	sorted := make([]*SegmentLeaf, len(leaves))
	for i, idx := range order {
		sorted[i] = leaves[idx]
	}
	return sorted, nil
}

// BuildIndex bulk-loads the spatial index from a facade snapshot.
func BuildIndex(f facade.DataFacade) (*rtreego.Rtree, error) {
	leaves, err := collectLeaves(f)
	if err != nil {
		return nil, err
	}
	spatials := make([]rtreego.Spatial, len(leaves))
	for i, leaf := range leaves {
		spatials[i] = leaf
	}
	return rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren, spatials...), nil
}

type leafRecord struct {
	NodeIndex    int32
	SegmentIndex int32
	FromLat      int32
	FromLon      int32
	ToLat        int32
	ToLon        int32
}

// WriteLeafPages persists the index leaves into the 4 KiB paged file the
// datastore serves.
func WriteLeafPages(path string, f facade.DataFacade) error {
	leaves, err := collectLeaves(f)
	if err != nil {
		return err
	}
	w, err := storage.NewPageWriter(path)
	if err != nil {
		return err
	}
	for _, leaf := range leaves {
		record, err := kbinary.Marshal(leafRecord{
			NodeIndex:    leaf.NodeIndex,
			SegmentIndex: leaf.SegmentIndex,
			FromLat:      leaf.From.Lat,
			FromLon:      leaf.From.Lon,
			ToLat:        leaf.To.Lat,
			ToLon:        leaf.To.Lon,
		})
		if err != nil {
			w.Close()
			return err
		}
		if err := w.Append(record); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// LoadIndexFromPages rebuilds the spatial index from the paged leaf file.
func LoadIndexFromPages(path string) (*rtreego.Rtree, error) {
	var spatials []rtreego.Spatial
	err := storage.ReadAllPages(path, func(record []byte) error {
		var r leafRecord
		if err := kbinary.Unmarshal(record, &r); err != nil {
			return err
		}
		leaf, err := newSegmentLeaf(r.NodeIndex, r.SegmentIndex,
			datastructure.NewCoordinateFixed(r.FromLat, r.FromLon),
			datastructure.NewCoordinateFixed(r.ToLat, r.ToLon))
		if err != nil {
			return err
		}
		spatials = append(spatials, leaf)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren, spatials...), nil
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
