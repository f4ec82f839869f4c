package delta

import (
	"io"

	"golang.org/x/xerrors"
)

// minMatch is the shortest run worth encoding as a copy rather than as
// literal bytes; below this length the 2-8 byte copy-op overhead is not
// worth it.
const minMatch = 8

// maxChain bounds how many candidate source offsets are considered per
// hash bucket, trading match quality for encode time on pathologically
// repetitive sources.
const maxChain = 32

func hashAt(b []byte, i int) uint64 {
	// FNV-1a over the fixed-size minMatch window starting at i.
	var h uint64 = 14695981039346656037
	for _, c := range b[i : i+minMatch] {
		h ^= uint64(c)
		h *= 1099511628211
	}
	return h
}

// Encode writes the delta that transforms source into target to out: a
// header of two size varints followed by a stream of copy/insert ops (see
// format.go). Both source and target must be fully resident; the match
// index spans the whole source, which is what keeps payloads small.
func Encode(out io.Writer, source, target []byte) error {
	if err := putUvarint(out, uint64(len(source))); err != nil {
		return xerrors.Errorf("Encode: %w", err)
	}
	if err := putUvarint(out, uint64(len(target))); err != nil {
		return xerrors.Errorf("Encode: %w", err)
	}

	index := make(map[uint64][]int)
	if len(source) >= minMatch {
		for i := 0; i+minMatch <= len(source); i++ {
			h := hashAt(source, i)
			bucket := index[h]
			if len(bucket) >= maxChain {
				bucket = bucket[1:]
			}
			index[h] = append(bucket, i)
		}
	}

	var literal []byte
	flushLiteral := func() error {
		for len(literal) > 0 {
			n := len(literal)
			if n > maxInsert {
				n = maxInsert
			}
			if err := writeInsert(out, literal[:n]); err != nil {
				return err
			}
			literal = literal[n:]
		}
		return nil
	}

	i := 0
	for i < len(target) {
		if i+minMatch > len(target) || len(source) < minMatch {
			literal = append(literal, target[i])
			i++
			continue
		}
		h := hashAt(target, i)
		bestOff, bestLen := -1, 0
		for _, off := range index[h] {
			l := matchLen(source[off:], target[i:])
			if l > bestLen {
				bestOff, bestLen = off, l
			}
		}
		if bestLen < minMatch {
			literal = append(literal, target[i])
			i++
			continue
		}
		if err := flushLiteral(); err != nil {
			return xerrors.Errorf("Encode: %w", err)
		}
		for bestLen > 0 {
			chunk := bestLen
			if chunk > maxCopySize {
				chunk = maxCopySize
			}
			if err := writeCopy(out, uint64(bestOff), uint64(chunk)); err != nil {
				return xerrors.Errorf("Encode: %w", err)
			}
			bestOff += chunk
			i += chunk
			bestLen -= chunk
		}
	}
	if err := flushLiteral(); err != nil {
		return xerrors.Errorf("Encode: %w", err)
	}
	return nil
}

func matchLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
