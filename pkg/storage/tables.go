package storage

import (
	"hash/crc32"
	"os"
	"time"

	"github.com/lintang-b-s/routex/pkg/datastructure"
)

// file extensions of the persisted table family
const (
	ExtBase         = ".rtx"
	ExtRestrictions = ".rtx.restrictions"
	ExtNames        = ".rtx.names"
	ExtGeometry     = ".rtx.geometry"
	ExtEdgeGraph    = ".rtx.ebg"
	ExtTurnData     = ".rtx.edges"
	ExtNodes        = ".rtx.nodes"
	ExtFileIndex    = ".rtx.fileIndex"
	ExtRAMIndex     = ".rtx.ramIndex"
	ExtTimestamp    = ".rtx.timestamp"
	ExtProperties   = ".rtx.properties"
	ExtLaneDesc     = ".rtx.tld"
	ExtLaneStrings  = ".rtx.tls"
	ExtIntersection = ".rtx.icd"
	ExtCore         = ".rtx.core"
)

type Properties struct {
	ProfileName        string
	SmallComponentSize int
	CoreFraction       float64
	Contracted         bool
}

// RawGraph is the node-based output of the graph builder, consumed by the
// compressor/expander and by the offline contractor.
type RawGraph struct {
	Nodes []datastructure.NodeBasedNode
	Edges []datastructure.NodeBasedEdge
}

// RoutingTables is the logical table set the router reads. One value of
// this struct is one coherent snapshot.
type RoutingTables struct {
	Checksum  uint32
	Timestamp string

	Properties Properties

	// node-based coordinates, indexed by internal node id; geometry
	// entries reference them
	Coordinates []datastructure.Coordinate

	// one record per compressed edge, both direction ids inside
	EdgeBasedNodes []datastructure.EdgeBasedNode
	DirectedCount  int32
	// directed id -> EdgeBasedNodes index / direction
	SegmentNode      []int32
	SegmentIsForward []bool

	// the turn graph (plus contractor shortcuts)
	Edges []datastructure.EdgeBasedEdge
	Turns []datastructure.TurnData

	Geometry datastructure.CompressedGeometry

	// 4 strings per name id: name, destinations, pronunciation, ref
	Names []string

	LaneDescriptions []datastructure.LaneDescription
	LaneStrings      []string

	Restrictions []datastructure.TurnRestriction

	// is_core flag per directed node, empty before contraction
	CoreFlags []bool
}

// ComputeChecksum folds the table sizes into a crc so facades can spot a
// torn snapshot.
func (t *RoutingTables) ComputeChecksum() uint32 {
	h := crc32.NewIEEE()
	var scratch [8]byte
	writeInt := func(v int) {
		for i := 0; i < 8; i++ {
			scratch[i] = byte(v >> (8 * i))
		}
		h.Write(scratch[:])
	}
	writeInt(len(t.Coordinates))
	writeInt(len(t.EdgeBasedNodes))
	writeInt(int(t.DirectedCount))
	writeInt(len(t.Edges))
	writeInt(len(t.Names))
	writeInt(t.Geometry.Len())
	return h.Sum32()
}

type namesFile struct {
	BlockSize    int
	BlockOffsets []uint32
	Lengths      []uint8
	Blob         []byte
}

type geometryFile struct {
	Offsets []int32
	Entries []datastructure.GeometryEntry
}

// WriteTables persists every logical table under base with its fixed
// extension.
func WriteTables(base string, t *RoutingTables) error {
	t.Checksum = t.ComputeChecksum()
	if t.Timestamp == "" {
		t.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	if err := WriteSectionFile(base+ExtNodes, struct {
		Checksum         uint32
		Coordinates      []datastructure.Coordinate
		EdgeBasedNodes   []datastructure.EdgeBasedNode
		DirectedCount    int32
		SegmentNode      []int32
		SegmentIsForward []bool
	}{t.Checksum, t.Coordinates, t.EdgeBasedNodes, t.DirectedCount, t.SegmentNode, t.SegmentIsForward}); err != nil {
		return err
	}

	if err := WriteSectionFile(base+ExtEdgeGraph, t.Edges); err != nil {
		return err
	}
	if err := WriteSectionFile(base+ExtTurnData, t.Turns); err != nil {
		return err
	}

	if err := WriteSectionFile(base+ExtGeometry, geometryFile{
		Offsets: t.Geometry.Offsets,
		Entries: t.Geometry.Entries,
	}); err != nil {
		return err
	}

	if err := writeNames(base+ExtNames, t.Names); err != nil {
		return err
	}

	if err := WriteSectionFile(base+ExtLaneDesc, t.LaneDescriptions); err != nil {
		return err
	}
	if err := WriteSectionFile(base+ExtLaneStrings, t.LaneStrings); err != nil {
		return err
	}
	if err := WriteSectionFile(base+ExtRestrictions, t.Restrictions); err != nil {
		return err
	}
	if err := WriteSectionFile(base+ExtCore, t.CoreFlags); err != nil {
		return err
	}
	if err := WriteSectionFile(base+ExtProperties, t.Properties); err != nil {
		return err
	}
	if err := os.WriteFile(base+ExtTimestamp, []byte(t.Timestamp), 0o644); err != nil {
		return err
	}
	return nil
}

// WriteRawGraph persists the node-based graph for the offline contractor.
func WriteRawGraph(base string, raw *RawGraph) error {
	return WriteSectionFile(base+ExtBase, *raw)
}

func ReadRawGraph(base string) (*RawGraph, error) {
	var raw RawGraph
	if err := ReadSectionFile(base+ExtBase, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

// LoadTables reads a coherent snapshot back and validates the checksum.
func LoadTables(base string) (*RoutingTables, error) {
	t := &RoutingTables{}

	var nodes struct {
		Checksum         uint32
		Coordinates      []datastructure.Coordinate
		EdgeBasedNodes   []datastructure.EdgeBasedNode
		DirectedCount    int32
		SegmentNode      []int32
		SegmentIsForward []bool
	}
	if err := ReadSectionFile(base+ExtNodes, &nodes); err != nil {
		return nil, err
	}
	t.Checksum = nodes.Checksum
	t.Coordinates = nodes.Coordinates
	t.EdgeBasedNodes = nodes.EdgeBasedNodes
	t.DirectedCount = nodes.DirectedCount
	t.SegmentNode = nodes.SegmentNode
	t.SegmentIsForward = nodes.SegmentIsForward

	if err := ReadSectionFile(base+ExtEdgeGraph, &t.Edges); err != nil {
		return nil, err
	}
	if err := ReadSectionFile(base+ExtTurnData, &t.Turns); err != nil {
		return nil, err
	}

	var geometry geometryFile
	if err := ReadSectionFile(base+ExtGeometry, &geometry); err != nil {
		return nil, err
	}
	t.Geometry = datastructure.CompressedGeometry{Offsets: geometry.Offsets, Entries: geometry.Entries}

	names, err := readNames(base + ExtNames)
	if err != nil {
		return nil, err
	}
	t.Names = names

	if err := ReadSectionFile(base+ExtLaneDesc, &t.LaneDescriptions); err != nil {
		return nil, err
	}
	if err := ReadSectionFile(base+ExtLaneStrings, &t.LaneStrings); err != nil {
		return nil, err
	}
	if err := ReadSectionFile(base+ExtRestrictions, &t.Restrictions); err != nil {
		return nil, err
	}
	if err := ReadSectionFile(base+ExtCore, &t.CoreFlags); err != nil {
		return nil, err
	}
	if err := ReadSectionFile(base+ExtProperties, &t.Properties); err != nil {
		return nil, err
	}

	timestamp, err := os.ReadFile(base + ExtTimestamp)
	if err != nil {
		return nil, err
	}
	t.Timestamp = string(timestamp)

	return t, nil
}

// writeNames lays the name table out as a RangeTable over the
// concatenated blob.
func writeNames(path string, names []string) error {
	lengths := make([]int, len(names))
	var blob []byte
	for i, name := range names {
		if len(name) > maxRangeEntryLength {
			name = name[:maxRangeEntryLength]
		}
		lengths[i] = len(name)
		blob = append(blob, name...)
	}
	rt := NewRangeTable(lengths, DefaultRangeTableBlockSize)
	return WriteSectionFile(path, namesFile{
		BlockSize:    rt.BlockSize,
		BlockOffsets: rt.BlockOffsets,
		Lengths:      rt.Lengths,
		Blob:         blob,
	})
}

func readNames(path string) ([]string, error) {
	var file namesFile
	if err := ReadSectionFile(path, &file); err != nil {
		return nil, err
	}
	rt := &RangeTable{
		BlockSize:    file.BlockSize,
		BlockOffsets: file.BlockOffsets,
		Lengths:      file.Lengths,
		Sum:          uint32(len(file.Blob)),
	}
	names := make([]string, rt.Count())
	for i := range names {
		begin, end := rt.Range(i)
		names[i] = string(file.Blob[begin:end])
	}
	return names, nil
}
