package storage

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/DataDog/zstd"
	kbinary "github.com/kelindar/binary"
)

// sections are fingerprinted files holding one zstd-compressed binary blob
// each.

func encodeSection[T any](value T) ([]byte, error) {
	blob, err := kbinary.Marshal(value)
	if err != nil {
		return nil, err
	}
	var compressed []byte
	compressed, err = zstd.Compress(compressed, blob)
	if err != nil {
		return nil, err
	}
	return compressed, nil
}

func decodeSection[T any](compressed []byte, out *T) error {
	var blob []byte
	blob, err := zstd.Decompress(blob, compressed)
	if err != nil {
		return err
	}
	return kbinary.Unmarshal(blob, out)
}

// WriteSectionFile writes fingerprint, length, and the compressed blob.
func WriteSectionFile[T any](path string, value T) error {
	compressed, err := encodeSection(value)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteFingerprint(f); err != nil {
		return err
	}
	var lengthBuf [8]byte
	binary.LittleEndian.PutUint64(lengthBuf[:], uint64(len(compressed)))
	if _, err := f.Write(lengthBuf[:]); err != nil {
		return err
	}
	if _, err := f.Write(compressed); err != nil {
		return err
	}
	return f.Sync()
}

// ReadSectionFile validates the fingerprint and decodes the blob.
func ReadSectionFile[T any](path string, out *T) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := ReadFingerprint(f); err != nil {
		return err
	}
	var lengthBuf [8]byte
	if _, err := io.ReadFull(f, lengthBuf[:]); err != nil {
		return err
	}
	compressed := make([]byte, binary.LittleEndian.Uint64(lengthBuf[:]))
	if _, err := io.ReadFull(f, compressed); err != nil {
		return err
	}
	return decodeSection(compressed, out)
}

// SectionBytes encodes a value the way WriteSectionFile lays it out, for
// stores that keep tables in a kv instead of plain files.
func SectionBytes[T any](value T) ([]byte, error) {
	compressed, err := encodeSection(value)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteFingerprint(&buf); err != nil {
		return nil, err
	}
	var lengthBuf [8]byte
	binary.LittleEndian.PutUint64(lengthBuf[:], uint64(len(compressed)))
	buf.Write(lengthBuf[:])
	buf.Write(compressed)
	return buf.Bytes(), nil
}

// DecodeSectionBytes is the inverse of SectionBytes.
func DecodeSectionBytes[T any](data []byte, out *T) error {
	r := bytes.NewReader(data)
	if err := ReadFingerprint(r); err != nil {
		return err
	}
	var lengthBuf [8]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return err
	}
	compressed := make([]byte, binary.LittleEndian.Uint64(lengthBuf[:]))
	if _, err := io.ReadFull(r, compressed); err != nil {
		return err
	}
	return decodeSection(compressed, out)
}
