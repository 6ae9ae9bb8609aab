package kv

import (
	"github.com/DataDog/zstd"
	"github.com/kelindar/binary"
)

func encodeEdges(edges []KVEdge) ([]byte, error) {
	encoded, err := binary.Marshal(edges)
	if err != nil {
		return nil, err
	}
	return compress(encoded)
}

func loadEdges(compressed []byte) ([]KVEdge, error) {
	decompressed, err := decompress(compressed)
	if err != nil {
		return nil, err
	}
	var edges []KVEdge
	if err := binary.Unmarshal(decompressed, &edges); err != nil {
		return nil, err
	}
	return edges, nil
}

func compress(bb []byte) ([]byte, error) {
	var compressed []byte
	compressed, err := zstd.Compress(compressed, bb)
	if err != nil {
		return []byte{}, err
	}
	return compressed, nil
}

func decompress(compressed []byte) ([]byte, error) {
	var bb []byte
	bb, err := zstd.Decompress(bb, compressed)
	if err != nil {
		return []byte{}, err
	}
	return bb, nil
}
