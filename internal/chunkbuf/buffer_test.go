package chunkbuf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAppendReadInto(t *testing.T) {
	var b Buffer
	b.Append([]byte("hello "))
	b.Append([]byte("world"))
	if got, want := b.Size(), len("hello world"); got != want {
		t.Fatalf("Size() = %d, want %d", got, want)
	}

	got := make([]byte, 8)
	n := b.ReadInto(got)
	if n != 8 {
		t.Fatalf("ReadInto() = %d, want 8", n)
	}
	if diff := cmp.Diff("hello wo", string(got[:n])); diff != "" {
		t.Errorf("ReadInto() mismatch (-want +got):\n%s", diff)
	}
	if got, want := b.Size(), len("rld"); got != want {
		t.Fatalf("Size() after partial drain = %d, want %d", got, want)
	}

	rest := make([]byte, 16)
	n = b.ReadInto(rest)
	if diff := cmp.Diff("rld", string(rest[:n])); diff != "" {
		t.Errorf("ReadInto() tail mismatch (-want +got):\n%s", diff)
	}
	if b.Size() != 0 {
		t.Fatalf("Size() after full drain = %d, want 0", b.Size())
	}
	if n := b.ReadInto(rest); n != 0 {
		t.Fatalf("ReadInto() on empty buffer = %d, want 0", n)
	}
}

func TestDestroy(t *testing.T) {
	var b Buffer
	b.Append([]byte("abc"))
	b.Destroy()
	if b.Size() != 0 {
		t.Fatalf("Size() after Destroy = %d, want 0", b.Size())
	}
	if n := b.ReadInto(make([]byte, 4)); n != 0 {
		t.Fatalf("ReadInto() after Destroy = %d, want 0", n)
	}
}

func TestSplitAcrossBlocks(t *testing.T) {
	var b Buffer
	for i := 0; i < 5; i++ {
		b.Append([]byte{byte('a' + i)})
	}
	got := make([]byte, 5)
	n := b.ReadInto(got)
	if n != 5 {
		t.Fatalf("ReadInto() = %d, want 5", n)
	}
	if diff := cmp.Diff("abcde", string(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
