// Package chunkbuf implements a FIFO of heap blocks used to buffer delta
// codec output before it is framed into a container (or stream-compressed
// first). The delta codec yields output in arbitrary-size bursts at
// unpredictable times while the container writer drains it in
// arbitrary-size reads; a chunked FIFO gives O(1) append and O(1) head
// drain without the realloc storms a single growing []byte would cause.
package chunkbuf

import "io"

// block holds one appended slice plus a read cursor into it. Reads may
// split a block at an arbitrary position; off tracks how much of the
// block's bytes have already been drained.
type block struct {
	data []byte
	off  int
	next *block
}

// Buffer is a FIFO of byte blocks. The zero value is an empty, usable
// Buffer.
type Buffer struct {
	head, tail *block
	size       int
}

// Append copies p into a new block and links it at the tail.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	blk := &block{data: cp}
	if b.tail == nil {
		b.head, b.tail = blk, blk
	} else {
		b.tail.next = blk
		b.tail = blk
	}
	b.size += len(cp)
}

// ReadInto copies up to len(dst) bytes from the head of the buffer into
// dst, draining whole blocks as they empty, and returns the number of
// bytes copied. It returns 0 when the buffer is empty.
func (b *Buffer) ReadInto(dst []byte) int {
	n := 0
	for n < len(dst) && b.head != nil {
		blk := b.head
		copied := copy(dst[n:], blk.data[blk.off:])
		n += copied
		blk.off += copied
		b.size -= copied
		if blk.off == len(blk.data) {
			b.head = blk.next
			if b.head == nil {
				b.tail = nil
			}
		}
	}
	return n
}

// Write appends p, implementing io.Writer so a delta encoder can emit
// its output bursts straight into the buffer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.Append(p)
	return len(p), nil
}

// Read drains the buffer into p, implementing io.Reader so a stream
// compressor can consume the buffered payload. It returns io.EOF once
// the buffer is empty.
func (b *Buffer) Read(p []byte) (int, error) {
	n := b.ReadInto(p)
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Size returns the number of unread bytes currently buffered, including
// the partially-drained head block.
func (b *Buffer) Size() int {
	return b.size
}

// Destroy releases all remaining blocks. After Destroy the Buffer is empty
// and may be reused.
func (b *Buffer) Destroy() {
	b.head, b.tail = nil, nil
	b.size = 0
}
