package container

import (
	"bytes"
	"io"
	"testing"

	"github.com/distropatch/spatch"
	"github.com/google/go-cmp/cmp"
	"github.com/orcaman/writerseeker"
)

func TestWriteReadRawFrames(t *testing.T) {
	var ws writerseeker.WriterSeeker

	if err := WriteHeader(&ws, spatch.AddOrReplace, "a/b.txt"); err != nil {
		t.Fatal(err)
	}
	if err := WriteRawPayload(&ws, []byte("hello world")); err != nil {
		t.Fatal(err)
	}
	if err := WriteHeader(&ws, spatch.Delete, "old.txt"); err != nil {
		t.Fatal(err)
	}

	r := NewReader(ws.Reader())

	kind, name, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if kind != spatch.AddOrReplace || name != "a/b.txt" {
		t.Fatalf("got (%v, %q), want (AddOrReplace, a/b.txt)", kind, name)
	}
	size, err := r.ReadPayloadSize()
	if err != nil {
		t.Fatal(err)
	}
	payload, err := r.ReadRawPayload(size)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("hello world", string(payload)); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	kind, name, err = r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if kind != spatch.Delete || name != "old.txt" {
		t.Fatalf("got (%v, %q), want (Delete, old.txt)", kind, name)
	}

	if _, _, err := r.Next(); err != io.EOF {
		t.Fatalf("Next() at end = %v, want io.EOF", err)
	}
}

func TestNextTruncatedHeaderIsCleanEOF(t *testing.T) {
	// A lone byte (half of a name_length field) must be reported as a
	// clean end-of-stream, not a parse error.
	r := NewReader(bytes.NewReader([]byte{0x01}))
	if _, _, err := r.Next(); err != io.EOF {
		t.Fatalf("Next() on truncated header = %v, want io.EOF", err)
	}
}
