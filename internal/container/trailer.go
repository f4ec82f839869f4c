package container

import (
	"encoding/binary"
	"io"

	"github.com/distropatch/spatch"
	"golang.org/x/xerrors"
)

// TrailerSize is the fixed byte width of the trailer record: patch_offset
// (int64) + config_offset (int64) + tag (uint64).
const TrailerSize = 8 + 8 + 8

// ConfigSize is the byte width of the config record (a single uint32
// format_version).
const ConfigSize = 4

// Trailer is the fixed-width record at the tail of every container. Two
// offsets rather than one allow a forward-compatible config record to sit
// between the last frame and the trailer itself.
type Trailer struct {
	PatchOffset  int64
	ConfigOffset int64
	Tag          uint64
}

// HasConfig reports whether a config record is present: ConfigOffset > 0
// means present, 0 is the legacy "no config" sentinel.
func (t Trailer) HasConfig() bool {
	return t.ConfigOffset > 0
}

// WriteTrailer serializes t to w in the fixed field order
// (patch_offset, config_offset, tag).
func WriteTrailer(w io.Writer, t Trailer) error {
	var buf [TrailerSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(t.PatchOffset))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(t.ConfigOffset))
	binary.LittleEndian.PutUint64(buf[16:24], t.Tag)
	if _, err := w.Write(buf[:]); err != nil {
		return xerrors.Errorf("WriteTrailer: %w", err)
	}
	return nil
}

// ReadTrailer reads the trailer from the last TrailerSize bytes of a
// container whose total size is fileSize, and validates the tag.
func ReadTrailer(r io.ReaderAt, fileSize int64) (Trailer, error) {
	if fileSize < TrailerSize {
		return Trailer{}, xerrors.Errorf("ReadTrailer: file too small (%d bytes): %w", fileSize, spatch.ErrNotAPatch)
	}
	var buf [TrailerSize]byte
	if _, err := r.ReadAt(buf[:], fileSize-TrailerSize); err != nil {
		return Trailer{}, xerrors.Errorf("ReadTrailer: %w", err)
	}
	t := Trailer{
		PatchOffset:  int64(binary.LittleEndian.Uint64(buf[0:8])),
		ConfigOffset: int64(binary.LittleEndian.Uint64(buf[8:16])),
		Tag:          binary.LittleEndian.Uint64(buf[16:24]),
	}
	if t.Tag != spatch.TrailerTag {
		return Trailer{}, xerrors.Errorf("ReadTrailer: %w", spatch.ErrNotAPatch)
	}
	return t, nil
}

// WriteConfig serializes the config record (currently just a
// format_version) to w.
func WriteConfig(w io.Writer, formatVersion uint32) error {
	var buf [ConfigSize]byte
	binary.LittleEndian.PutUint32(buf[:], formatVersion)
	if _, err := w.Write(buf[:]); err != nil {
		return xerrors.Errorf("WriteConfig: %w", err)
	}
	return nil
}

// ReadConfig reads the config record at the given absolute offset and
// validates its format_version.
func ReadConfig(r io.ReaderAt, offset int64) (uint32, error) {
	var buf [ConfigSize]byte
	if _, err := r.ReadAt(buf[:], offset); err != nil {
		return 0, xerrors.Errorf("ReadConfig: %w", err)
	}
	version := binary.LittleEndian.Uint32(buf[:])
	if version != spatch.FormatVersion {
		return version, xerrors.Errorf("ReadConfig: got version %d, want %d: %w", version, spatch.FormatVersion, spatch.ErrUnsupportedVersion)
	}
	return version, nil
}

// BytesLeft computes the length of the frame region given a trailer and
// the container's total file size.
func BytesLeft(t Trailer, fileSize int64) int64 {
	if t.HasConfig() {
		return t.ConfigOffset - t.PatchOffset
	}
	return fileSize - t.PatchOffset - TrailerSize
}
