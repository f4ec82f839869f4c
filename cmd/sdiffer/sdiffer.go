// sdiffer builds a patch container from a source and a target tree (or a
// pair of single files), driven by an INI configuration file:
//
//	sdiffer [config.ini]
//
// The config path defaults to sdiffer.ini in the working directory.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/distropatch/spatch"
	"github.com/distropatch/spatch/internal/differ"
	"github.com/distropatch/spatch/internal/patchcfg"
	"github.com/distropatch/spatch/internal/progress"
	"github.com/distropatch/spatch/internal/rlimit"
	"github.com/mattn/go-isatty"
	"golang.org/x/xerrors"
)

func funcmain(ctx context.Context) error {
	flag.Parse()
	if flag.NArg() > 1 {
		return xerrors.New("usage: sdiffer [config.ini]")
	}
	iniPath := "sdiffer.ini"
	if flag.NArg() == 1 {
		iniPath = flag.Arg(0)
	}
	cfg, err := patchcfg.Load(iniPath)
	if err != nil {
		return err
	}

	if err := rlimit.BumpNOFILE(); err != nil {
		log.Printf("setrlimit: %v", err)
	}

	out, err := os.Create(cfg.Output)
	if err != nil {
		return xerrors.Errorf("creating %s: %w", cfg.Output, err)
	}
	spatch.RegisterAtExit(func() error {
		// On the error path a partial container is deliberately left
		// behind with no trailer, so a patcher run rejects it cleanly.
		return out.Close()
	})

	d := &differ.Differ{
		Source:   cfg.From,
		Target:   cfg.To,
		Compress: cfg.Compress,
		Progress: progress.Console(os.Stdout, isatty.IsTerminal(os.Stdout.Fd())),
	}
	if err := d.Run(ctx, out); err != nil {
		return err
	}
	log.Printf("wrote %s", cfg.Output)
	return nil
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
