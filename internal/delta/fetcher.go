package delta

import "io"

// BlockFetcher services the Reconstructor's requests for fixed-size
// windows of a source file so the full file never needs to be resident.
// It lazily allocates a single block-sized buffer on first use and
// reuses it across calls; callers may request any block number in any
// order and the fetcher simply re-seeks (via ReadAt) to service it.
type BlockFetcher struct {
	src       io.ReaderAt
	blockSize int
	buf       []byte
}

// NewBlockFetcher returns a fetcher reading fixed blockSize windows from
// src on demand.
func NewBlockFetcher(src io.ReaderAt, blockSize int) *BlockFetcher {
	return &BlockFetcher{src: src, blockSize: blockSize}
}

// Fetch returns the bytes of block number blockNo. The returned slice
// aliases the fetcher's single internal buffer and is only valid until
// the next call to Fetch. Its length is less than blockSize only for the
// last (short) block of the source.
func (f *BlockFetcher) Fetch(blockNo int64) ([]byte, error) {
	if f.buf == nil {
		f.buf = make([]byte, f.blockSize)
	}
	off := blockNo * int64(f.blockSize)
	n, err := f.src.ReadAt(f.buf, off)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return f.buf[:n], nil
}
