// Package xzstream adapts github.com/ulikunitz/xz/lzma into the
// placeholder-then-patch framing the container uses: a CHANGE_LZMA or
// ADD_OR_REPLACE_LZMA payload is [payload_size][original_size][compressor
// property block][compressed bitstream with end-marker], where
// payload_size is patched in after the compressed length is known.
package xzstream

import (
	"encoding/binary"
	"io"

	"github.com/ulikunitz/xz/lzma"
	"golang.org/x/xerrors"
)

// Tuning knobs: maximum strength, a large dictionary, and a
// literal-context configuration biased toward binary content. The
// reference LZMA SDK's "fast bytes" knob has no equivalent in
// ulikunitz/xz/lzma's pure-Go encoder; the binary-tree match finder is
// its closest "highest strength" setting and is used instead.
const (
	literalContextBits  = 4
	literalPositionBits = 2
	positionBits        = 2
	maxDictCap          = 64 << 20
	minDictCap          = 1 << 16
)

func dictCapFor(size int64) int {
	if size <= 0 {
		return minDictCap
	}
	cap := minDictCap
	for int64(cap) < size && cap < maxDictCap {
		cap <<= 1
	}
	if cap > maxDictCap {
		cap = maxDictCap
	}
	return cap
}

// ProgressFunc is invoked at the compressor's choice with the number of
// input bytes consumed and output bytes emitted so far.
type ProgressFunc func(inputBytesConsumed, outputBytesEmitted int64)

type countingReader struct {
	r        io.Reader
	consumed int64
	emitted  *int64
	progress ProgressFunc
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.consumed += int64(n)
	if c.progress != nil {
		c.progress(c.consumed, *c.emitted)
	}
	return n, err
}

type countingWriter struct {
	w       io.Writer
	emitted *int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	*c.emitted += int64(n)
	return n, err
}

// Compress writes a complete compressed payload record to w, which
// must support Seek (the container file the differ is writing). src
// yields originalSize bytes of uncompressed target content. progress may
// be nil.
func Compress(w io.WriteSeeker, src io.Reader, originalSize int64, progress ProgressFunc) error {
	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return xerrors.Errorf("Compress: %w", err)
	}

	// (2) placeholder for payload_size.
	if _, err := w.Write(make([]byte, 4)); err != nil {
		return xerrors.Errorf("Compress: %w", err)
	}

	// (3) original uncompressed size.
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(originalSize))
	if _, err := w.Write(sizeBuf[:]); err != nil {
		return xerrors.Errorf("Compress: %w", err)
	}

	props := lzma.Properties{
		LC: literalContextBits,
		LP: literalPositionBits,
		PB: positionBits,
	}
	cfg := lzma.WriterConfig{
		Properties:   &props,
		DictCap:      dictCapFor(originalSize),
		SizeInHeader: false,
		EOSMarker:    true,
		Matcher:      lzma.BinaryTree,
	}

	// (4), (5) property block + compressed bitstream, written directly to
	// w. The counting writer sits below the encoder so emitted reflects
	// actual output bytes, header included.
	var emitted int64
	cw := &countingWriter{w: w, emitted: &emitted}
	lw, err := cfg.NewWriter(cw)
	if err != nil {
		return xerrors.Errorf("Compress: %w", err)
	}

	cr := &countingReader{r: src, emitted: &emitted, progress: progress}
	if _, err := io.Copy(lw, cr); err != nil {
		return xerrors.Errorf("Compress: compression failed: %w", err)
	}
	if err := lw.Close(); err != nil {
		return xerrors.Errorf("Compress: compression failed: %w", err)
	}

	end, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return xerrors.Errorf("Compress: %w", err)
	}

	// (6) seek back, write the true payload_size, seek forward to end.
	payloadSize := end - start - 4
	if _, err := w.Seek(start, io.SeekStart); err != nil {
		return xerrors.Errorf("Compress: %w", err)
	}
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(payloadSize))
	if _, err := w.Write(sizeBuf[:]); err != nil {
		return xerrors.Errorf("Compress: %w", err)
	}
	if _, err := w.Seek(end, io.SeekStart); err != nil {
		return xerrors.Errorf("Compress: %w", err)
	}
	return nil
}
