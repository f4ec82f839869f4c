// Package progress is the callback surface through which the differ and
// patcher engines report per-file info, byte progress, and diagnostic
// messages to whatever front end drives them (CLI, background worker, or
// nothing at all).
package progress

import (
	"fmt"
	"io"
	"log"

	"github.com/distropatch/spatch"
)

// Severity classifies a diagnostic message. Negative severities are
// errors.
type Severity int

const (
	SeverityError   Severity = -1
	SeverityInfo    Severity = 0
	SeverityWarning Severity = 1
)

// Done is the bytesDone value marking frame completion in a Progress
// callback.
const Done = -1

// Surface bundles the three optional callbacks. A nil *Surface, or a
// Surface with nil fields, is valid and reports nothing; engines call
// the methods below rather than the fields so they never have to check.
type Surface struct {
	// InfoFunc is called once per frame just before processing. size is
	// the expected output byte count, -1 when unknown (a CHANGE frame's
	// target size is not recorded in the container) and 0 for DELETE.
	InfoFunc func(path string, size int64, kind spatch.Kind)
	// ProgressFunc is called one or more times per frame with the
	// cumulative output byte count; Done marks frame completion.
	ProgressFunc func(bytesDone int64)
	// MessageFunc receives human-readable diagnostics.
	MessageFunc func(severity Severity, msg string)
}

func (s *Surface) Info(path string, size int64, kind spatch.Kind) {
	if s == nil || s.InfoFunc == nil {
		return
	}
	s.InfoFunc(path, size, kind)
}

func (s *Surface) Progress(bytesDone int64) {
	if s == nil || s.ProgressFunc == nil {
		return
	}
	s.ProgressFunc(bytesDone)
}

func (s *Surface) Messagef(severity Severity, format string, args ...interface{}) {
	if s == nil || s.MessageFunc == nil {
		return
	}
	s.MessageFunc(severity, fmt.Sprintf(format, args...))
}

// Default is the process-wide surface used by callers that do not thread
// their own through; it reports nothing until its fields are set.
var Default = &Surface{}

// Console returns a Surface rendering to w. With interactive set (w is a
// terminal) it draws a live carriage-return progress line per frame;
// otherwise it logs one line per frame and stays silent on byte
// progress, which keeps piped output sane.
func Console(w io.Writer, interactive bool) *Surface {
	s := &Surface{
		InfoFunc: func(path string, size int64, kind spatch.Kind) {
			log.Printf("%s %s", kind, path)
		},
		MessageFunc: func(severity Severity, msg string) {
			if severity < 0 {
				log.Printf("error: %s", msg)
				return
			}
			log.Print(msg)
		},
	}
	if interactive {
		var total int64
		s.InfoFunc = func(path string, size int64, kind spatch.Kind) {
			total = size
			fmt.Fprintf(w, "%s %s\n", kind, path)
		}
		s.ProgressFunc = func(bytesDone int64) {
			if bytesDone == Done {
				fmt.Fprintf(w, "\r    done%20s\n", "")
				return
			}
			if total > 0 {
				fmt.Fprintf(w, "\r    %d/%d (%d%%)", bytesDone, total, bytesDone*100/total)
			} else {
				fmt.Fprintf(w, "\r    %d bytes", bytesDone)
			}
		}
	}
	return s
}
