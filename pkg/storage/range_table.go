package storage

// RangeTable is a block-based prefix-sum index over a concatenated char
// blob: every BlockSize-th offset is stored exactly, the offsets in
// between are recovered from byte-sized deltas. Lookup cost is one partial
// block scan.
type RangeTable struct {
	BlockSize    int
	BlockOffsets []uint32
	Lengths      []uint8
	Sum          uint32
}

const (
	DefaultRangeTableBlockSize = 16
	maxRangeEntryLength        = 255
)

// NewRangeTable builds the index from the individual entry lengths.
// Entries longer than 255 bytes must have been truncated by the writer.
func NewRangeTable(lengths []int, blockSize int) *RangeTable {
	rt := &RangeTable{
		BlockSize: blockSize,
		Lengths:   make([]uint8, 0, len(lengths)),
	}
	offset := uint32(0)
	for i, length := range lengths {
		if i%blockSize == 0 {
			rt.BlockOffsets = append(rt.BlockOffsets, offset)
		}
		if length > maxRangeEntryLength {
			length = maxRangeEntryLength
		}
		rt.Lengths = append(rt.Lengths, uint8(length))
		offset += uint32(length)
	}
	rt.Sum = offset
	return rt
}

// Range returns the [begin, end) byte window of one entry inside the blob.
func (rt *RangeTable) Range(id int) (uint32, uint32) {
	block := id / rt.BlockSize
	begin := rt.BlockOffsets[block]
	for i := block * rt.BlockSize; i < id; i++ {
		begin += uint32(rt.Lengths[i])
	}
	return begin, begin + uint32(rt.Lengths[id])
}

func (rt *RangeTable) Count() int {
	return len(rt.Lengths)
}
