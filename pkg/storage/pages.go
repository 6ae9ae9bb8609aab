package storage

import (
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Leaf records of the spatial index are paginated to fixed 4 KiB pages so
// the datastore can serve them without loading the whole file.
const PageSize = 4096

var ErrRecordTooLarge = errors.New("record exceeds page size")

// PageWriter packs variable-length records into fixed pages, each page
// zstd-compressed independently.
type PageWriter struct {
	f       *os.File
	encoder *zstd.Encoder
	page    []byte
	count   uint32
	pages   int
}

func NewPageWriter(path string) (*PageWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := WriteFingerprint(f); err != nil {
		f.Close()
		return nil, err
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &PageWriter{
		f:       f,
		encoder: encoder,
		page:    make([]byte, 4, PageSize),
	}, nil
}

// Append adds one record; a page is flushed when the next record would
// overflow it.
func (w *PageWriter) Append(record []byte) error {
	need := 4 + len(record)
	if need+4 > PageSize {
		return ErrRecordTooLarge
	}
	if len(w.page)+need > PageSize {
		if err := w.flushPage(); err != nil {
			return err
		}
	}
	var lengthBuf [4]byte
	binary.LittleEndian.PutUint32(lengthBuf[:], uint32(len(record)))
	w.page = append(w.page, lengthBuf[:]...)
	w.page = append(w.page, record...)
	w.count++
	return nil
}

func (w *PageWriter) flushPage() error {
	if w.count == 0 {
		return nil
	}
	binary.LittleEndian.PutUint32(w.page[:4], w.count)
	compressed := w.encoder.EncodeAll(w.page, nil)

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(compressed)))
	if _, err := w.f.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.f.Write(compressed); err != nil {
		return err
	}
	w.page = w.page[:4]
	w.count = 0
	w.pages++
	return nil
}

func (w *PageWriter) Close() error {
	if err := w.flushPage(); err != nil {
		w.f.Close()
		return err
	}
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// ReadAllPages streams every record of a paged file back.
func ReadAllPages(path string, visit func(record []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := ReadFingerprint(f); err != nil {
		return err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer decoder.Close()

	var header [4]byte
	for {
		if _, err := io.ReadFull(f, header[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		compressed := make([]byte, binary.LittleEndian.Uint32(header[:]))
		if _, err := io.ReadFull(f, compressed); err != nil {
			return err
		}
		page, err := decoder.DecodeAll(compressed, nil)
		if err != nil {
			return err
		}
		count := binary.LittleEndian.Uint32(page[:4])
		offset := uint32(4)
		for i := uint32(0); i < count; i++ {
			length := binary.LittleEndian.Uint32(page[offset:])
			offset += 4
			if err := visit(page[offset : offset+length]); err != nil {
				return err
			}
			offset += length
		}
	}
}
