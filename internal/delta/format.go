// Package delta implements a "copy-from-source + insert-literal"
// binary-delta codec, plus the
// on-demand source block fetcher (C5) that lets the reconstructor apply a
// delta without the source file ever being fully resident.
//
// The wire format is the classic copy/insert opcode stream used by git's
// packfile deltas (see the patch_delta reference this is grounded on): a
// leading pair of size varints, then a sequence of single-byte-tagged
// ops — a high bit set selects a copy op whose offset/size fields are
// present only for the non-zero bytes (a command-byte bitmask), a clear
// high bit selects an insert op whose low 7 bits give a literal length
// followed by that many literal bytes.
package delta

import (
	"encoding/binary"
	"io"

	"github.com/distropatch/spatch"
	"golang.org/x/xerrors"
)

const (
	copyCmdBit  = 0x80
	copyOff0    = 0x01
	copyOff1    = 0x02
	copyOff2    = 0x04
	copyOff3    = 0x08
	copySize0   = 0x10
	copySize1   = 0x20
	copySize2   = 0x40
	maxInsert   = 0x7f
	// maxCopySize is the largest size 3 copy-op size bytes can hold. An
	// exact 1<<24 would encode as three zero bytes and collide with the
	// zero-means-0x10000 sentinel in readCopy.
	maxCopySize = 1<<24 - 1
)

// putUvarint writes a base-128 continuation-encoded unsigned integer, LSB
// group first — the same variable-length size encoding git pack deltas
// use for their header sizes.
func putUvarint(w io.Writer, v uint64) error {
	var buf [10]byte
	i := 0
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf[i] = b
		i++
		if v == 0 {
			break
		}
	}
	_, err := w.Write(buf[:i])
	return err
}

func readUvarint(r io.ByteReader) (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
		if shift > 63 {
			return 0, xerrors.Errorf("readUvarint: varint too long: %w", spatch.ErrCorruptStream)
		}
	}
}

// writeCopy encodes a copy op for the source span [offset, offset+size).
func writeCopy(w io.Writer, offset, size uint64) error {
	if size == 0 {
		return xerrors.Errorf("writeCopy: zero-length copy")
	}
	if size > maxCopySize {
		return xerrors.Errorf("writeCopy: copy size %d exceeds %d", size, maxCopySize)
	}
	var offBytes, sizeBytes [4]byte
	binary.LittleEndian.PutUint32(offBytes[:], uint32(offset))
	binary.LittleEndian.PutUint32(sizeBytes[:], uint32(size))

	cmd := byte(copyCmdBit)
	var out []byte
	for i, mask := range [4]byte{copyOff0, copyOff1, copyOff2, copyOff3} {
		if offBytes[i] != 0 {
			cmd |= mask
			out = append(out, offBytes[i])
		}
	}
	for i, mask := range [3]byte{copySize0, copySize1, copySize2} {
		if sizeBytes[i] != 0 {
			cmd |= mask
			out = append(out, sizeBytes[i])
		}
	}
	if _, err := w.Write([]byte{cmd}); err != nil {
		return err
	}
	_, err := w.Write(out)
	return err
}

// readCopy decodes a copy op given its command byte.
func readCopy(r io.ByteReader, cmd byte) (offset, size uint64, err error) {
	var offBytes, sizeBytes [4]byte
	for i, mask := range [4]byte{copyOff0, copyOff1, copyOff2, copyOff3} {
		if cmd&mask != 0 {
			b, err := r.ReadByte()
			if err != nil {
				return 0, 0, err
			}
			offBytes[i] = b
		}
	}
	for i, mask := range [3]byte{copySize0, copySize1, copySize2} {
		if cmd&mask != 0 {
			b, err := r.ReadByte()
			if err != nil {
				return 0, 0, err
			}
			sizeBytes[i] = b
		}
	}
	offset = uint64(binary.LittleEndian.Uint32(offBytes[:]))
	size = uint64(binary.LittleEndian.Uint32(sizeBytes[:]))
	if size == 0 {
		// Matches the historical git pack-delta quirk this format is
		// grounded on: a size field that decodes to zero means a copy
		// of 0x10000 bytes, not an empty copy.
		size = 0x10000
	}
	return offset, size, nil
}

// writeInsert encodes an insert op carrying at most maxInsert literal
// bytes; callers must split longer literal runs themselves.
func writeInsert(w io.Writer, literal []byte) error {
	if len(literal) == 0 || len(literal) > maxInsert {
		return xerrors.Errorf("writeInsert: invalid literal length %d", len(literal))
	}
	if _, err := w.Write([]byte{byte(len(literal))}); err != nil {
		return err
	}
	_, err := w.Write(literal)
	return err
}
