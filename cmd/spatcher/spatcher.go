// spatcher applies a patch container:
//
//	spatcher <patch> <target>            in-place upgrade of directory target
//	spatcher <source> <patch> <target>   explicit source; - means no source
//
// In the two-argument form the target directory doubles as the implicit
// source: each existing file is renamed to a .sbk.N backup which serves
// as the delta source and as the rollback copy. With three arguments a
// directory source patches a tree, a file source patches a single file.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/distropatch/spatch"
	"github.com/distropatch/spatch/internal/asyncpatch"
	"github.com/distropatch/spatch/internal/patcher"
	"github.com/distropatch/spatch/internal/progress"
	"github.com/distropatch/spatch/internal/rlimit"
	"github.com/mattn/go-isatty"
	"golang.org/x/xerrors"
)

var keepGoing = flag.Bool("keep_going",
	false,
	"continue patching past CHANGE frames whose source file is missing")

func funcmain(ctx context.Context) error {
	flag.Parse()

	var srcPath, patchPath, outPath string
	switch flag.NArg() {
	case 2:
		patchPath, outPath = flag.Arg(0), flag.Arg(1)
	case 3:
		srcPath, patchPath, outPath = flag.Arg(0), flag.Arg(1), flag.Arg(2)
	default:
		return xerrors.New("usage: spatcher [source] <patch> <target>")
	}

	treeMode := true
	if srcPath != "" && srcPath != "-" {
		info, err := os.Stat(srcPath)
		if err != nil {
			return xerrors.Errorf("stat %s: %w", srcPath, err)
		}
		treeMode = info.IsDir()
	}

	if err := rlimit.BumpNOFILE(); err != nil {
		log.Printf("setrlimit: %v", err)
	}

	in, err := os.Open(patchPath)
	if err != nil {
		return xerrors.Errorf("opening %s: %w", patchPath, err)
	}
	spatch.RegisterAtExit(in.Close)

	p := &patcher.Patcher{
		Source:    srcPath,
		Output:    outPath,
		TreeMode:  treeMode,
		KeepGoing: *keepGoing,
		Progress:  progress.Console(os.Stdout, isatty.IsTerminal(os.Stdout.Fd())),
	}
	// The frame loop runs as one cancellable background task; this main
	// goroutine is the stand-in for a front end's event loop.
	task := asyncpatch.Start(ctx, func(ctx context.Context) error {
		return p.Apply(ctx, in)
	})
	return task.Wait()
}

func main() {
	ctx, canc := spatch.InterruptibleContext()
	defer canc()
	err := funcmain(ctx)
	if aerr := spatch.RunAtExit(); err == nil {
		err = aerr
	}
	if err != nil {
		log.Fatal(err)
	}
}
