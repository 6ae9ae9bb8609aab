package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Every persisted table starts with a 4-byte fingerprint plus a version
// byte; readers refuse mismatching files outright.
var Fingerprint = [4]byte{'R', 'T', 'X', '1'}

const FormatVersion byte = 1

var (
	ErrBadFingerprint = errors.New("persisted table fingerprint mismatch")
	ErrBadVersion     = errors.New("persisted table version mismatch")
)

func WriteFingerprint(w io.Writer) error {
	if _, err := w.Write(Fingerprint[:]); err != nil {
		return err
	}
	_, err := w.Write([]byte{FormatVersion})
	return err
}

func ReadFingerprint(r io.Reader) error {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("reading fingerprint: %w", err)
	}
	if !bytes.Equal(header[:4], Fingerprint[:]) {
		return ErrBadFingerprint
	}
	if header[4] != FormatVersion {
		return ErrBadVersion
	}
	return nil
}
