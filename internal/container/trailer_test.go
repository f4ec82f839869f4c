package container

import (
	"bytes"
	"errors"
	"testing"

	"github.com/distropatch/spatch"
)

func TestTrailerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("frame-region-bytes")
	patchOffset := int64(0)
	configOffset := int64(buf.Len())
	if err := WriteConfig(&buf, spatch.FormatVersion); err != nil {
		t.Fatal(err)
	}
	trailer := Trailer{PatchOffset: patchOffset, ConfigOffset: configOffset, Tag: spatch.TrailerTag}
	if err := WriteTrailer(&buf, trailer); err != nil {
		t.Fatal(err)
	}

	data := buf.Bytes()
	got, err := ReadTrailer(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if got != trailer {
		t.Fatalf("ReadTrailer() = %+v, want %+v", got, trailer)
	}
	if !got.HasConfig() {
		t.Fatal("HasConfig() = false, want true")
	}
	version, err := ReadConfig(bytes.NewReader(data), got.ConfigOffset)
	if err != nil {
		t.Fatal(err)
	}
	if version != spatch.FormatVersion {
		t.Fatalf("ReadConfig() = %d, want %d", version, spatch.FormatVersion)
	}
	if want := int64(len("frame-region-bytes")); BytesLeft(got, int64(len(data))) != want {
		t.Fatalf("BytesLeft() = %d, want %d", BytesLeft(got, int64(len(data))), want)
	}
}

func TestTrailerCorruptTag(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("abc")
	if err := WriteTrailer(&buf, Trailer{PatchOffset: 0, ConfigOffset: 0, Tag: 0}); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	_, err := ReadTrailer(bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, spatch.ErrNotAPatch) {
		t.Fatalf("ReadTrailer() error = %v, want ErrNotAPatch", err)
	}
}

func TestTrailerNoConfig(t *testing.T) {
	trailer := Trailer{PatchOffset: 5, ConfigOffset: 0, Tag: spatch.TrailerTag}
	if trailer.HasConfig() {
		t.Fatal("HasConfig() = true, want false")
	}
	fileSize := int64(100)
	if got, want := BytesLeft(trailer, fileSize), fileSize-trailer.PatchOffset-TrailerSize; got != want {
		t.Fatalf("BytesLeft() = %d, want %d", got, want)
	}
}
