package xzstream

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/orcaman/writerseeker"
)

func compressBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var ws writerseeker.WriterSeeker
	if err := Compress(&ws, bytes.NewReader(data), int64(len(data)), nil); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	out, err := io.ReadAll(ws.Reader())
	if err != nil {
		t.Fatalf("reading compressed buffer: %v", err)
	}
	return out
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("A", 65536))

	record := compressBytes(t, data)
	// record = payload_size(4) + original_size(4) + props + bitstream.
	payloadSize := len(record) - 4
	if payloadSize <= 0 || payloadSize >= len(data) {
		t.Fatalf("unexpected compressed payload size %d for %d bytes of input", payloadSize, len(data))
	}

	var out bytes.Buffer
	var progressed []int64
	if err := Decompress(&out, bytes.NewReader(record[4:]), func(done int64) {
		progressed = append(progressed, done)
	}); err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(out.Bytes(), data) {
		t.Fatalf("decompressed %d bytes, want %d bytes matching input", out.Len(), len(data))
	}
	if len(progressed) == 0 {
		t.Fatal("Decompress reported no progress")
	}
}

func TestCompressDecompressSmall(t *testing.T) {
	data := []byte("hello world")
	record := compressBytes(t, data)
	var out bytes.Buffer
	if err := Decompress(&out, bytes.NewReader(record[4:]), nil); err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if out.String() != string(data) {
		t.Fatalf("Decompress() = %q, want %q", out.String(), data)
	}
}
