package treewalk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkOrderAndSkips(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	writeFile(t, filepath.Join(root, "a.txt"), "aa")
	writeFile(t, filepath.Join(root, "sub", "c.txt"), "ccc")
	writeFile(t, filepath.Join(root, ".hidden"), "no")
	writeFile(t, filepath.Join(root, ".git", "config"), "no")

	var got []string
	sizes := map[string]int64{}
	err := Walk(root, func(rel string, size int64) error {
		got = append(got, rel)
		sizes[rel] = size
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []string{"a.txt", "b.txt", "sub/c.txt"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Walk order: diff (-want +got):\n%s", diff)
	}
	if sizes["sub/c.txt"] != 3 {
		t.Fatalf("size of sub/c.txt = %d, want 3", sizes["sub/c.txt"])
	}
}

func TestValidateRel(t *testing.T) {
	for _, ok := range []string{"a.txt", "dir/sub/file.bin", "a..b/c"} {
		if err := ValidateRel(ok); err != nil {
			t.Errorf("ValidateRel(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "/etc/passwd", "../escape", "dir/../../escape", "a/.."} {
		if err := ValidateRel(bad); err == nil {
			t.Errorf("ValidateRel(%q) = nil, want error", bad)
		}
	}
}

func TestNative(t *testing.T) {
	got := Native("root", "a/b/c.txt")
	want := filepath.Join("root", "a", "b", "c.txt")
	if got != want {
		t.Fatalf("Native() = %q, want %q", got, want)
	}
	if Native("root", "") != "root" {
		t.Fatalf("Native(root, \"\") = %q, want root", Native("root", ""))
	}
}
