// Package differ implements the container-producing engine: it walks a
// source and a target tree (or compares two single files), classifies
// each target path as change or add and each orphaned source path as
// delete, and writes the resulting frames plus the self-locating trailer.
package differ

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/distropatch/spatch"
	"github.com/distropatch/spatch/internal/chunkbuf"
	"github.com/distropatch/spatch/internal/container"
	"github.com/distropatch/spatch/internal/delta"
	"github.com/distropatch/spatch/internal/progress"
	"github.com/distropatch/spatch/internal/treewalk"
	"github.com/distropatch/spatch/internal/xzstream"
	"golang.org/x/xerrors"
)

// NoSource is the sentinel source path meaning "no source": every target
// file becomes an ADD_OR_REPLACE frame and no DELETE frames are emitted.
const NoSource = "-"

// Differ produces a patch container transforming Source into Target.
// Source and Target are either both directory trees or both single
// files; Run picks the mode by stat'ing Target.
type Differ struct {
	Source   string // directory, file, or NoSource
	Target   string // directory or file
	Compress bool
	Progress *progress.Surface
}

// Output is where a container is written. *os.File satisfies it; the
// seeking is needed because the compressor adapter patches each
// compressed frame's payload_size in place, and because the trailer
// records absolute offsets.
type Output interface {
	io.Writer
	io.Seeker
}

// Run writes the complete container to out: frames, config record, then
// trailer. Any error is fatal and leaves the trailer unwritten, so a
// partial container is cleanly rejected by the patcher. Cancellation is
// cooperative with frame granularity.
func (d *Differ) Run(ctx context.Context, out Output) error {
	patchOffset, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return xerrors.Errorf("differ: %w", err)
	}

	treeMode := false
	if info, err := os.Stat(d.Target); err != nil {
		return xerrors.Errorf("differ: %w", err)
	} else if info.IsDir() {
		treeMode = true
	}

	if treeMode {
		if d.Source != NoSource {
			info, err := os.Stat(d.Source)
			if err != nil {
				return xerrors.Errorf("differ: %w", err)
			}
			if !info.IsDir() {
				return xerrors.Errorf("differ: target %s is a directory but source %s is not", d.Target, d.Source)
			}
		}
		if err := d.runTree(ctx, out); err != nil {
			return err
		}
	} else {
		if err := d.runSingle(ctx, out); err != nil {
			return err
		}
	}

	configOffset, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return xerrors.Errorf("differ: %w", err)
	}
	if err := container.WriteConfig(out, spatch.FormatVersion); err != nil {
		return err
	}
	return container.WriteTrailer(out, container.Trailer{
		PatchOffset:  patchOffset,
		ConfigOffset: configOffset,
		Tag:          spatch.TrailerTag,
	})
}

// runTree is the additions/changes pass followed by the deletions pass.
// Additions precede removals so a concurrent observer of the container
// never sees a delete before the adds that accompany it.
func (d *Differ) runTree(ctx context.Context, out Output) error {
	err := treewalk.Walk(d.Target, func(rel string, size int64) error {
		if err := ctx.Err(); err != nil {
			return xerrors.Errorf("differ: %w", spatch.ErrCancelled)
		}
		if d.Source != NoSource {
			srcPath := treewalk.Native(d.Source, rel)
			if treewalk.Exists(srcPath) {
				return d.emitChange(rel, srcPath, treewalk.Native(d.Target, rel), out, true)
			}
		}
		return d.emitAdd(rel, treewalk.Native(d.Target, rel), size, out)
	})
	if err != nil {
		return err
	}
	if d.Source == NoSource {
		return nil
	}
	return treewalk.Walk(d.Source, func(rel string, size int64) error {
		if err := ctx.Err(); err != nil {
			return xerrors.Errorf("differ: %w", spatch.ErrCancelled)
		}
		if treewalk.Exists(treewalk.Native(d.Target, rel)) {
			return nil
		}
		return d.emitDelete(rel, out)
	})
}

// runSingle emits the one frame of single-file mode. The frame name is
// the source path for a CHANGE and the target path for a pure ADD,
// matching what a single-file patch invocation expects to find.
func (d *Differ) runSingle(ctx context.Context, out Output) error {
	if err := ctx.Err(); err != nil {
		return xerrors.Errorf("differ: %w", spatch.ErrCancelled)
	}
	if d.Source != NoSource && treewalk.Exists(d.Source) {
		return d.emitChange(d.Source, d.Source, d.Target, out, false)
	}
	info, err := os.Stat(d.Target)
	if err != nil {
		return xerrors.Errorf("differ: %w", err)
	}
	return d.emitAdd(d.Target, d.Target, info.Size(), out)
}

// emitChange produces a delta payload with the full source and target
// resident, then frames it (compressed or raw). Full residency is a
// deliberate trade-off: the encoder's match window spans the whole
// source, which is what keeps CHANGE payloads small.
//
// With skipUnchanged set (tree mode), a byte-identical pair produces no
// frame at all; single-file mode always emits its one frame.
func (d *Differ) emitChange(name, srcPath, tgtPath string, out Output, skipUnchanged bool) error {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return xerrors.Errorf("differ: %s: %w", name, err)
	}
	tgt, err := os.ReadFile(tgtPath)
	if err != nil {
		return xerrors.Errorf("differ: %s: %w", name, err)
	}
	if skipUnchanged && bytes.Equal(src, tgt) {
		return nil
	}

	var buf chunkbuf.Buffer
	defer buf.Destroy()
	if err := delta.Encode(&buf, src, tgt); err != nil {
		return xerrors.Errorf("differ: %s: %w", name, err)
	}

	kind := spatch.Change
	if d.Compress {
		kind = spatch.ChangeLZMA
	}
	d.Progress.Info(name, int64(len(tgt)), kind)
	if err := container.WriteHeader(out, kind, name); err != nil {
		return err
	}
	if d.Compress {
		if err := xzstream.Compress(out, &buf, int64(buf.Size()), d.compressProgress()); err != nil {
			return err
		}
	} else {
		if err := container.WritePayloadSize(out, uint32(buf.Size())); err != nil {
			return err
		}
		if err := d.streamPayload(out, &buf); err != nil {
			return xerrors.Errorf("differ: %s: %w", name, err)
		}
	}
	d.Progress.Progress(progress.Done)
	return nil
}

func (d *Differ) emitAdd(name, tgtPath string, size int64, out Output) error {
	f, err := os.Open(tgtPath)
	if err != nil {
		return xerrors.Errorf("differ: %s: %w", name, err)
	}
	defer f.Close()

	kind := spatch.AddOrReplace
	if d.Compress {
		kind = spatch.AddOrReplaceLZMA
	}
	d.Progress.Info(name, size, kind)
	if err := container.WriteHeader(out, kind, name); err != nil {
		return err
	}
	if d.Compress {
		if err := xzstream.Compress(out, f, size, d.compressProgress()); err != nil {
			return err
		}
	} else {
		if err := container.WritePayloadSize(out, uint32(size)); err != nil {
			return err
		}
		if err := d.streamPayload(out, io.LimitReader(f, size)); err != nil {
			return xerrors.Errorf("differ: %s: %w", name, err)
		}
	}
	d.Progress.Progress(progress.Done)
	return nil
}

func (d *Differ) emitDelete(name string, out Output) error {
	d.Progress.Info(name, 0, spatch.Delete)
	if err := container.WriteHeader(out, spatch.Delete, name); err != nil {
		return err
	}
	d.Progress.Progress(progress.Done)
	return nil
}

// streamPayload copies an uncompressed payload in fixed windows,
// reporting progress after each.
func (d *Differ) streamPayload(out io.Writer, in io.Reader) error {
	buf := make([]byte, spatch.BlockSize)
	var done int64
	for {
		n, err := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
			done += int64(n)
			d.Progress.Progress(done)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (d *Differ) compressProgress() xzstream.ProgressFunc {
	if d.Progress == nil {
		return nil
	}
	return func(inputBytesConsumed, outputBytesEmitted int64) {
		d.Progress.Progress(inputBytesConsumed)
	}
}
