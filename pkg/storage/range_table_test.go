package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeTableExactOffsets(t *testing.T) {
	lengths := []int{3, 0, 7, 1, 12, 5}
	rt := NewRangeTable(lengths, DefaultRangeTableBlockSize)

	expectedBegin := uint32(0)
	for i, length := range lengths {
		begin, end := rt.Range(i)
		assert.Equal(t, expectedBegin, begin, "entry %d begin", i)
		assert.Equal(t, expectedBegin+uint32(length), end, "entry %d end", i)
		expectedBegin += uint32(length)
	}
	assert.Equal(t, expectedBegin, rt.Sum)
}

// entries spanning multiple blocks still resolve through the block-exact
// offsets plus in-block deltas
func TestRangeTableCrossesBlocks(t *testing.T) {
	lengths := make([]int, 100)
	total := 0
	for i := range lengths {
		lengths[i] = (i * 7) % 23
		total += lengths[i]
	}
	rt := NewRangeTable(lengths, DefaultRangeTableBlockSize)

	begin := uint32(0)
	for i, length := range lengths {
		gotBegin, gotEnd := rt.Range(i)
		assert.Equal(t, begin, gotBegin, "entry %d", i)
		assert.Equal(t, begin+uint32(length), gotEnd, "entry %d", i)
		begin += uint32(length)
	}
	assert.Equal(t, uint32(total), rt.Sum)
	assert.Equal(t, 100, rt.Count())
	// one exact offset per started block
	assert.Equal(t, (100+15)/16, len(rt.BlockOffsets))
}

func TestFingerprintRoundTrip(t *testing.T) {
	var buf writableBuffer
	assert.NoError(t, WriteFingerprint(&buf))
	assert.NoError(t, ReadFingerprint(&buf))

	var tampered writableBuffer
	assert.NoError(t, WriteFingerprint(&tampered))
	tampered.data[0] = 'X'
	assert.ErrorIs(t, ReadFingerprint(&tampered), ErrBadFingerprint)
}

type writableBuffer struct {
	data []byte
	pos  int
}

func (b *writableBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *writableBuffer) Read(p []byte) (int, error) {
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}
