package spatch

import "errors"

// The error taxonomy shared by both engines. Callers compare with
// errors.Is; the
// concrete error returned from an engine is usually wrapped with
// xerrors.Errorf("...: %w", ErrX) to add frame/path context.
var (
	// ErrIOFail means a filesystem call returned failure.
	ErrIOFail = errors.New("io failure")
	// ErrCorruptStream means a truncated frame, bad property block,
	// decoder/declared-size mismatch, or missing end-marker.
	ErrCorruptStream = errors.New("corrupt stream")
	// ErrNotAPatch means the trailer tag did not match TrailerTag.
	ErrNotAPatch = errors.New("not a patch")
	// ErrUnsupportedVersion means a config record was present but its
	// format_version did not match FormatVersion.
	ErrUnsupportedVersion = errors.New("unsupported patch format version")
	// ErrSourceMissing means a CHANGE/CHANGE_LZMA frame had no readable
	// source file.
	ErrSourceMissing = errors.New("source file missing")
	// ErrCancelled means the caller's context was cancelled between two
	// frames.
	ErrCancelled = errors.New("cancelled")
)
