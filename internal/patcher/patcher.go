// Package patcher implements the container-consuming engine: it locates
// the trailer, iterates the frame stream, and reconstructs target files
// by applying deltas, streaming (possibly compressed) add payloads, or
// deleting, with crash-safe rename-based overwrite of existing targets.
package patcher

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/distropatch/spatch"
	"github.com/distropatch/spatch/internal/container"
	"github.com/distropatch/spatch/internal/delta"
	"github.com/distropatch/spatch/internal/progress"
	"github.com/distropatch/spatch/internal/treewalk"
	"github.com/distropatch/spatch/internal/xzstream"
	"github.com/google/renameio"
	"golang.org/x/xerrors"
)

// Input is the subset of *os.File the patcher needs: random access for
// the trailer and config record, sequential reads for the frame stream.
type Input interface {
	io.ReaderAt
	io.ReadSeeker
}

// Patcher applies a container to a target tree or file.
type Patcher struct {
	// Source is the root for CHANGE frame sources. Empty or "-" in tree
	// mode selects the in-place upgrade: the existing target file is
	// renamed to a ".sbk.N" backup and used as the delta source.
	Source string
	// Output is the target root (tree mode) or the output file path
	// (single mode).
	Output string
	// TreeMode selects per-frame paths under Output; otherwise the
	// container's single frame writes Output itself.
	TreeMode bool
	// KeepGoing continues the frame loop past a frame whose source file
	// is missing instead of aborting. All other frame errors abort.
	KeepGoing bool
	Progress  *progress.Surface
}

func (p *Patcher) hasSource() bool {
	return p.Source != "" && p.Source != "-"
}

// Apply parses the trailer of in, seeks to the frame region and processes
// every frame. Cancellation is cooperative with frame granularity.
func (p *Patcher) Apply(ctx context.Context, in Input) error {
	fileSize, err := in.Seek(0, io.SeekEnd)
	if err != nil {
		return xerrors.Errorf("patcher: %w", err)
	}
	trailer, err := container.ReadTrailer(in, fileSize)
	if err != nil {
		return err
	}
	if trailer.HasConfig() {
		if _, err := container.ReadConfig(in, trailer.ConfigOffset); err != nil {
			return err
		}
	}
	bytesLeft := container.BytesLeft(trailer, fileSize)
	if _, err := in.Seek(trailer.PatchOffset, io.SeekStart); err != nil {
		return xerrors.Errorf("patcher: %w", err)
	}
	r := container.NewReader(io.LimitReader(in, bytesLeft))

	for {
		if err := ctx.Err(); err != nil {
			return xerrors.Errorf("patcher: %w", spatch.ErrCancelled)
		}
		kind, name, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := p.doFrame(r, kind, name); err != nil {
			if errors.Is(err, spatch.ErrSourceMissing) && p.KeepGoing {
				p.Progress.Messagef(progress.SeverityWarning, "skipping %s: %v", name, err)
				continue
			}
			p.Progress.Messagef(progress.SeverityError, "%v", err)
			return err
		}
	}
}

// doFrame processes a single frame: path decisions, backup rename,
// payload application, and backup cleanup or rollback.
func (p *Patcher) doFrame(r *container.Reader, kind spatch.Kind, name string) error {
	outPath := p.Output
	if p.TreeMode {
		if err := treewalk.ValidateRel(name); err != nil {
			return xerrors.Errorf("doFrame: rejecting frame path: %w", err)
		}
		outPath = treewalk.Native(p.Output, name)
	}

	if kind == spatch.Delete {
		return p.doDelete(outPath)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return xerrors.Errorf("doFrame(%s): %w", name, err)
	}

	// CHANGE frames need their source resolved (and, in-place, the
	// backup rename performed) before any output is produced.
	var srcPath, bakPath string
	if kind.IsChange() {
		var err error
		srcPath, bakPath, err = p.resolveSource(name, outPath)
		if err != nil {
			// The frame fails, but its payload must still be consumed so
			// a KeepGoing caller parses the next frame from the right
			// position.
			if skipErr := p.skipPayload(r); skipErr != nil {
				return skipErr
			}
			return err
		}
	}

	err := p.writeOutput(r, kind, name, srcPath, outPath)
	if bakPath != "" {
		if err != nil {
			if rerr := backupRestore(bakPath, outPath); rerr != nil {
				p.Progress.Messagef(progress.SeverityError, "rollback of %s failed: %v", outPath, rerr)
			}
		} else if rerr := os.Remove(bakPath); rerr != nil {
			p.Progress.Messagef(progress.SeverityWarning, "removing backup %s: %v", bakPath, rerr)
		}
	}
	return err
}

func (p *Patcher) doDelete(outPath string) error {
	p.Progress.Info(outPath, 0, spatch.Delete)
	if err := os.Remove(outPath); err != nil {
		if os.IsNotExist(err) {
			p.Progress.Messagef(progress.SeverityWarning, "delete %s: already absent", outPath)
			return nil
		}
		return xerrors.Errorf("doFrame(%s): %v: %w", outPath, err, spatch.ErrIOFail)
	}
	p.Progress.Progress(progress.Done)
	return nil
}

// resolveSource decides the delta source path for a CHANGE frame. The
// returned bakPath is non-empty when the existing target was renamed
// aside (in-place mode); the caller owns restoring or removing it.
func (p *Patcher) resolveSource(name, outPath string) (srcPath, bakPath string, err error) {
	switch {
	case p.TreeMode && p.hasSource():
		srcPath = treewalk.Native(p.Source, name)
	case p.TreeMode:
		// In-place upgrade: the current target content is the source.
		if !treewalk.Exists(outPath) {
			return "", "", xerrors.Errorf("doFrame(%s): %w", name, spatch.ErrSourceMissing)
		}
		bak, err := backupRename(outPath)
		if err != nil {
			return "", "", err
		}
		return bak, bak, nil
	case p.hasSource():
		srcPath = p.Source
	default:
		srcPath = name
	}
	if !treewalk.Exists(srcPath) {
		return "", "", xerrors.Errorf("doFrame(%s): %s: %w", name, srcPath, spatch.ErrSourceMissing)
	}
	return srcPath, "", nil
}

// writeOutput produces the new target file content for a non-DELETE
// frame. The bytes go to a temp file in the target's directory which
// replaces outPath only on success, so an existing target is never
// partially overwritten.
func (p *Patcher) writeOutput(r *container.Reader, kind spatch.Kind, name, srcPath, outPath string) error {
	payloadSize, err := r.ReadPayloadSize()
	if err != nil {
		return err
	}

	t, err := renameio.TempFile(filepath.Dir(outPath), outPath)
	if err != nil {
		return xerrors.Errorf("doFrame(%s): %v: %w", name, err, spatch.ErrIOFail)
	}
	defer t.Cleanup()

	switch kind {
	case spatch.AddOrReplace:
		p.Progress.Info(outPath, int64(payloadSize), kind)
		p.Progress.Progress(0)
		if err := p.streamRaw(t, r.LimitedSource(payloadSize), int64(payloadSize)); err != nil {
			return xerrors.Errorf("doFrame(%s): %w", name, err)
		}
	case spatch.AddOrReplaceLZMA:
		lim := r.LimitedSource(payloadSize)
		var sizeBuf [4]byte
		if _, err := io.ReadFull(lim, sizeBuf[:]); err != nil {
			return xerrors.Errorf("doFrame(%s): %v: %w", name, err, spatch.ErrCorruptStream)
		}
		p.Progress.Info(outPath, int64(binary.LittleEndian.Uint32(sizeBuf[:])), kind)
		p.Progress.Progress(0)
		src := io.MultiReader(bytes.NewReader(sizeBuf[:]), lim)
		if err := xzstream.Decompress(t, src, p.Progress.Progress); err != nil {
			return xerrors.Errorf("doFrame(%s): %w", name, err)
		}
		// The decoder stops at its end-marker; drain whatever slack is
		// left so the next frame parses from the right position.
		if _, err := io.Copy(io.Discard, lim); err != nil {
			return xerrors.Errorf("doFrame(%s): %w", name, err)
		}
	case spatch.Change, spatch.ChangeLZMA:
		if err := p.applyChange(t, r, kind, name, srcPath, outPath, payloadSize); err != nil {
			return err
		}
	default:
		return xerrors.Errorf("doFrame(%s): unknown instruction kind %d: %w", name, kind, spatch.ErrCorruptStream)
	}

	if err := t.CloseAtomicallyReplace(); err != nil {
		return xerrors.Errorf("doFrame(%s): %v: %w", name, err, spatch.ErrIOFail)
	}
	p.Progress.Progress(progress.Done)
	return nil
}

// applyChange reconstructs a target from srcPath plus a delta payload.
// The payload is fully resident (decompressed in place for CHANGE_LZMA);
// the source is read through the block fetcher and never fully loaded.
func (p *Patcher) applyChange(out io.Writer, r *container.Reader, kind spatch.Kind, name, srcPath, outPath string, payloadSize uint32) error {
	payload, err := r.ReadRawPayload(payloadSize)
	if err != nil {
		return err
	}
	if kind == spatch.ChangeLZMA {
		var dec bytes.Buffer
		if err := xzstream.Decompress(&dec, bytes.NewReader(payload), nil); err != nil {
			return xerrors.Errorf("doFrame(%s): %w", name, err)
		}
		payload = dec.Bytes()
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return xerrors.Errorf("doFrame(%s): %v: %w", name, err, spatch.ErrSourceMissing)
	}
	defer src.Close()

	p.Progress.Info(outPath, -1, kind)
	p.Progress.Progress(0)
	fetcher := delta.NewBlockFetcher(src, spatch.BlockSize)
	if err := delta.NewReconstructor(fetcher).Apply(out, payload, p.Progress.Progress); err != nil {
		return xerrors.Errorf("doFrame(%s): %w", name, err)
	}
	return nil
}

// skipPayload discards a failed frame's payload bytes.
func (p *Patcher) skipPayload(r *container.Reader) error {
	size, err := r.ReadPayloadSize()
	if err != nil {
		return err
	}
	n, err := io.Copy(io.Discard, r.LimitedSource(size))
	if err != nil {
		return xerrors.Errorf("skipPayload: %v: %w", err, spatch.ErrIOFail)
	}
	if n != int64(size) {
		return xerrors.Errorf("skipPayload: payload ends after %d of %d bytes: %w", n, size, spatch.ErrCorruptStream)
	}
	return nil
}

// streamRaw copies an uncompressed add payload in fixed windows with a
// progress report per window. A stream ending before expected bytes have
// been copied is a truncated frame.
func (p *Patcher) streamRaw(dst io.Writer, src io.Reader, expected int64) error {
	buf := make([]byte, spatch.BlockSize)
	var done int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return xerrors.Errorf("%v: %w", werr, spatch.ErrIOFail)
			}
			done += int64(n)
			p.Progress.Progress(done)
		}
		if err == io.EOF {
			if done != expected {
				return xerrors.Errorf("payload ends after %d of %d bytes: %w", done, expected, spatch.ErrCorruptStream)
			}
			return nil
		}
		if err != nil {
			return xerrors.Errorf("%v: %w", err, spatch.ErrCorruptStream)
		}
	}
}
