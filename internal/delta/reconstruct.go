package delta

import (
	"bytes"
	"io"

	"github.com/distropatch/spatch"
	"golang.org/x/xerrors"
)

// Reconstructor applies a delta payload against a source file serviced by
// a BlockFetcher, so the source is never fully resident. Output is
// produced in bursts: one io.Writer call per insert op and one per
// block-bounded span of a copy op.
type Reconstructor struct {
	fetcher *BlockFetcher
}

// NewReconstructor returns a Reconstructor pulling source windows from
// fetcher.
func NewReconstructor(fetcher *BlockFetcher) *Reconstructor {
	return &Reconstructor{fetcher: fetcher}
}

// Apply decodes payload (a header of two size varints followed by
// copy/insert ops, see format.go) and writes the reconstructed target
// bytes to dst. progress, if non-nil, is invoked with the cumulative
// number of output bytes after every burst.
func (rc *Reconstructor) Apply(dst io.Writer, payload []byte, progress func(bytesDone int64)) error {
	r := bytes.NewReader(payload)
	srcSize, err := readUvarint(r)
	if err != nil {
		return xerrors.Errorf("Apply: reading source size: %w", spatch.ErrCorruptStream)
	}
	tgtSize, err := readUvarint(r)
	if err != nil {
		return xerrors.Errorf("Apply: reading target size: %w", spatch.ErrCorruptStream)
	}

	var written int64
	emit := func(p []byte) error {
		if _, err := dst.Write(p); err != nil {
			return xerrors.Errorf("Apply: %w", err)
		}
		written += int64(len(p))
		if progress != nil {
			progress(written)
		}
		return nil
	}

	for {
		cmd, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return xerrors.Errorf("Apply: %w", spatch.ErrCorruptStream)
		}
		if cmd&copyCmdBit != 0 {
			offset, size, err := readCopy(r, cmd)
			if err != nil {
				return xerrors.Errorf("Apply: truncated copy op: %w", spatch.ErrCorruptStream)
			}
			if offset+size > srcSize {
				return xerrors.Errorf("Apply: copy [%d,%d) outside source of %d bytes: %w", offset, offset+size, srcSize, spatch.ErrCorruptStream)
			}
			if err := rc.copyFromSource(emit, offset, size); err != nil {
				return err
			}
		} else {
			// Insert op: cmd is the literal length (1..maxInsert).
			lit := make([]byte, cmd)
			if _, err := io.ReadFull(r, lit); err != nil {
				return xerrors.Errorf("Apply: truncated insert op: %w", spatch.ErrCorruptStream)
			}
			if err := emit(lit); err != nil {
				return err
			}
		}
	}
	if uint64(written) != tgtSize {
		return xerrors.Errorf("Apply: reconstructed %d bytes, want %d: %w", written, tgtSize, spatch.ErrCorruptStream)
	}
	return nil
}

// copyFromSource emits the source span [offset, offset+size), fetching
// each covered block on demand. Spans may cross block boundaries; blocks
// may be requested in any order across ops, which the fetcher services by
// re-seeking.
func (rc *Reconstructor) copyFromSource(emit func([]byte) error, offset, size uint64) error {
	blockSize := uint64(rc.fetcher.blockSize)
	for size > 0 {
		blockNo := offset / blockSize
		blockOff := offset % blockSize
		blk, err := rc.fetcher.Fetch(int64(blockNo))
		if err != nil {
			return xerrors.Errorf("Apply: fetching source block %d: %w", blockNo, err)
		}
		if blockOff >= uint64(len(blk)) {
			return xerrors.Errorf("Apply: source block %d too short (%d bytes): %w", blockNo, len(blk), spatch.ErrCorruptStream)
		}
		n := uint64(len(blk)) - blockOff
		if n > size {
			n = size
		}
		if err := emit(blk[blockOff : blockOff+n]); err != nil {
			return err
		}
		offset += n
		size -= n
	}
	return nil
}
