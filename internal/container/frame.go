// Package container implements the on-disk frame and trailer layout of a
// patch container: the per-instruction record format, and the fixed-width
// trailer that makes a container self-locating regardless of what prologue
// bytes (e.g. a self-extracting launcher) precede it.
//
// This package is pure serialization: it knows how to write and read the
// byte layout, but nothing about trees, deltas, or compression.
package container

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/distropatch/spatch"
	"golang.org/x/xerrors"
)

// maxNameLen is the largest value a uint16 name_length can hold.
const maxNameLen = 1<<16 - 1

// WriteHeader writes the name_length + name + kind fields common to every
// frame. For a DELETE frame this is the entire frame; for any other kind
// the caller follows with WriteRawPayload (uncompressed kinds) or with a
// compressor adapter that writes its own payload_size-prefixed payload
// directly (compressed kinds).
func WriteHeader(w io.Writer, kind spatch.Kind, name string) error {
	if len(name) > maxNameLen {
		return xerrors.Errorf("WriteHeader(%s): name too long (%d bytes)", name, len(name))
	}
	var hdr [2]byte
	binary.LittleEndian.PutUint16(hdr[:], uint16(len(name)))
	if _, err := w.Write(hdr[:]); err != nil {
		return xerrors.Errorf("WriteHeader(%s): %w", name, err)
	}
	if _, err := io.WriteString(w, name); err != nil {
		return xerrors.Errorf("WriteHeader(%s): %w", name, err)
	}
	if _, err := w.Write([]byte{byte(kind)}); err != nil {
		return xerrors.Errorf("WriteHeader(%s): %w", name, err)
	}
	return nil
}

// WriteRawPayload writes the payload_size + payload fields for an
// uncompressed CHANGE or ADD_OR_REPLACE frame.
func WriteRawPayload(w io.Writer, payload []byte) error {
	var sz [4]byte
	binary.LittleEndian.PutUint32(sz[:], uint32(len(payload)))
	if _, err := w.Write(sz[:]); err != nil {
		return xerrors.Errorf("WriteRawPayload: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return xerrors.Errorf("WriteRawPayload: %w", err)
	}
	return nil
}

// WritePayloadSize writes just the payload_size field, for callers that
// stream the payload bytes themselves instead of passing a resident
// slice to WriteRawPayload.
func WritePayloadSize(w io.Writer, size uint32) error {
	var sz [4]byte
	binary.LittleEndian.PutUint32(sz[:], size)
	if _, err := w.Write(sz[:]); err != nil {
		return xerrors.Errorf("WritePayloadSize: %w", err)
	}
	return nil
}

// Reader iterates the frames of a container's frame region in order. It is
// constructed over the bounded span [patch_offset, patch_offset+bytesLeft)
// a Trailer resolves; see ReadTrailer.
type Reader struct {
	r io.Reader
}

// NewReader returns a Reader that parses frames from r, which must already
// be positioned at the first frame.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 4096)}
}

// Next reads the next frame's header. It returns io.EOF, not an error,
// when fewer than the 2 name_length bytes (or any subsequent header byte)
// can be read: a truncated header at a frame boundary is the
// clean end-of-stream signal, not corruption.
func (r *Reader) Next() (kind spatch.Kind, name string, err error) {
	var hdr [2]byte
	n, err := io.ReadFull(r.r, hdr[:])
	if n == 0 && err == io.EOF {
		return 0, "", io.EOF
	}
	if err != nil {
		// A short read here (1 byte, or a subsequent field truncated) is
		// still a clean boundary; there is no partial-frame recovery to
		// attempt.
		return 0, "", io.EOF
	}
	nameLen := binary.LittleEndian.Uint16(hdr[:])
	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(r.r, nameBuf); err != nil {
		return 0, "", io.EOF
	}
	var kb [1]byte
	if _, err := io.ReadFull(r.r, kb[:]); err != nil {
		return 0, "", io.EOF
	}
	return spatch.Kind(kb[0]), string(nameBuf), nil
}

// ReadPayloadSize reads the payload_size field following a non-DELETE
// frame's header. For uncompressed kinds this is the payload length; for
// compressed kinds it is the on-disk compressed-record length.
func (r *Reader) ReadPayloadSize() (uint32, error) {
	var sz [4]byte
	if _, err := io.ReadFull(r.r, sz[:]); err != nil {
		return 0, xerrors.Errorf("ReadPayloadSize: %v: %w", err, spatch.ErrCorruptStream)
	}
	return binary.LittleEndian.Uint32(sz[:]), nil
}

// ReadRawPayload reads exactly size bytes of an uncompressed payload.
func (r *Reader) ReadRawPayload(size uint32) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, xerrors.Errorf("ReadRawPayload: %v: %w", err, spatch.ErrCorruptStream)
	}
	return buf, nil
}

// LimitedSource returns an io.Reader bounded to exactly n bytes of the
// underlying stream, for handing a compressed payload region to the
// stream decompressor without letting it read past its own frame.
func (r *Reader) LimitedSource(n uint32) io.Reader {
	return io.LimitReader(r.r, int64(n))
}
