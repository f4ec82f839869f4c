package xzstream

import (
	"encoding/binary"
	"io"

	"github.com/distropatch/spatch"
	"github.com/ulikunitz/xz/lzma"
	"golang.org/x/xerrors"
)

// Decompress is the inverse of Compress. src must be bounded to exactly
// the on-disk compressed record (the frame's payload_size bytes): a
// 4-byte original uncompressed size followed by the compressor's property
// block and compressed bitstream. Decompress streams the original bytes
// to dst in BlockSize windows, invoking progress after each window, and
// issues a finalization read to flush any buffered output.
func Decompress(dst io.Writer, src io.Reader, progress func(bytesDone int64)) error {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(src, sizeBuf[:]); err != nil {
		return xerrors.Errorf("Decompress: %v: %w", err, spatch.ErrCorruptStream)
	}
	originalSize := int64(binary.LittleEndian.Uint32(sizeBuf[:]))

	lr, err := lzma.NewReader(src)
	if err != nil {
		return xerrors.Errorf("Decompress: %v: %w", err, spatch.ErrCorruptStream)
	}

	buf := make([]byte, spatch.BlockSize)
	var done int64
	for {
		n, err := lr.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return xerrors.Errorf("Decompress: %w", werr)
			}
			done += int64(n)
			if progress != nil {
				progress(done)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return xerrors.Errorf("Decompress: %v: %w", err, spatch.ErrCorruptStream)
		}
	}
	if originalSize >= 0 && done != originalSize {
		return xerrors.Errorf("Decompress: decoded %d bytes, want %d: %w", done, originalSize, spatch.ErrCorruptStream)
	}
	return nil
}
