package progress

import (
	"testing"

	"github.com/distropatch/spatch"
)

func TestNilSurfaceIsSafe(t *testing.T) {
	var s *Surface
	s.Info("a.txt", 4, spatch.AddOrReplace)
	s.Progress(123)
	s.Messagef(SeverityError, "oops: %d", 42)
}

func TestEmptySurfaceIsSafe(t *testing.T) {
	s := &Surface{}
	s.Info("a.txt", 4, spatch.AddOrReplace)
	s.Progress(Done)
	s.Messagef(SeverityInfo, "fine")
}

func TestCallbacksFire(t *testing.T) {
	var (
		gotPath string
		gotSize int64
		gotKind spatch.Kind
		gotDone int64
		gotMsg  string
		gotSev  Severity
	)
	s := &Surface{
		InfoFunc: func(path string, size int64, kind spatch.Kind) {
			gotPath, gotSize, gotKind = path, size, kind
		},
		ProgressFunc: func(bytesDone int64) { gotDone = bytesDone },
		MessageFunc:  func(severity Severity, msg string) { gotSev, gotMsg = severity, msg },
	}
	s.Info("dir/f.bin", -1, spatch.Change)
	s.Progress(Done)
	s.Messagef(SeverityError, "frame %d failed", 3)

	if gotPath != "dir/f.bin" || gotSize != -1 || gotKind != spatch.Change {
		t.Fatalf("Info got (%q, %d, %v)", gotPath, gotSize, gotKind)
	}
	if gotDone != Done {
		t.Fatalf("Progress got %d, want Done", gotDone)
	}
	if gotSev != SeverityError || gotMsg != "frame 3 failed" {
		t.Fatalf("Message got (%d, %q)", gotSev, gotMsg)
	}
}
