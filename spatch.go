// Package spatch holds the constants shared by every component of the
// patch container system: the differ (cmd/sdiffer), the patcher
// (cmd/spatcher), and the internal packages that implement the container
// format, the delta codec, and the stream compressor.
package spatch

const (
	// TrailerTag is the fixed sentinel word written at the very end of
	// every container. Its presence is the only validity marker; there is
	// no magic at the start of the file, so a container can be appended to
	// an arbitrary prologue (e.g. a self-extracting launcher) without
	// disturbing detection.
	TrailerTag uint64 = 0xBADC0DEDEADBEEF

	// FormatVersion is the only recognized value of the config record's
	// format_version field.
	FormatVersion uint32 = 1

	// BlockSize is the fixed window size used by the delta-source block
	// fetcher (C5) and by the stream decompressor's bounded read/write
	// passes.
	BlockSize = 256 * 1024

	// BackupSuffixLimit bounds the search for an unused "name.sbk.N"
	// backup path to [0, BackupSuffixLimit).
	BackupSuffixLimit = 999
)

// Kind is the persisted instruction kind, a single byte whose values are
// fixed for on-disk compatibility.
type Kind byte

const (
	// Change applies a binary delta payload against a named source file.
	Change Kind = 0
	// ChangeLZMA is Change with an LZMA-compressed payload.
	ChangeLZMA Kind = 1
	// AddOrReplace writes the payload verbatim as the target file.
	AddOrReplace Kind = 2
	// AddOrReplaceLZMA is AddOrReplace with an LZMA-compressed payload.
	AddOrReplaceLZMA Kind = 3
	// Delete removes the named target file; it carries no payload.
	Delete Kind = 4
)

// String implements fmt.Stringer for diagnostic messages.
func (k Kind) String() string {
	switch k {
	case Change:
		return "CHANGE"
	case ChangeLZMA:
		return "CHANGE_LZMA"
	case AddOrReplace:
		return "ADD_OR_REPLACE"
	case AddOrReplaceLZMA:
		return "ADD_OR_REPLACE_LZMA"
	case Delete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Compressed reports whether k's payload is LZMA stream-compressed.
func (k Kind) Compressed() bool {
	return k == ChangeLZMA || k == AddOrReplaceLZMA
}

// IsChange reports whether k applies a binary delta against a source file
// (as opposed to writing a payload verbatim or deleting).
func (k Kind) IsChange() bool {
	return k == Change || k == ChangeLZMA
}
