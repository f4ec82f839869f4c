package patchcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func loadString(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sdiffer.ini")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return Load(path)
}

func TestLoad(t *testing.T) {
	cfg, err := loadString(t, `
[compare]
from = old-tree
to = new-tree

[output]
path = update.spatch
compress = 1
icon = app.ico
`)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := &Config{
		From:     "old-tree",
		To:       "new-tree",
		Output:   "update.spatch",
		Compress: true,
		Icon:     "app.ico",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("Load: diff (-want +got):\n%s", diff)
	}
}

func TestLoadCompressSpellings(t *testing.T) {
	for spelling, want := range map[string]bool{
		"0": false, "1": true, "false": false, "true": true,
	} {
		cfg, err := loadString(t, `
[compare]
from = -
to = tree
[output]
path = out.spatch
compress = `+spelling+`
`)
		if err != nil {
			t.Fatalf("Load(compress = %s): %v", spelling, err)
		}
		if cfg.Compress != want {
			t.Errorf("compress = %s parsed as %v, want %v", spelling, cfg.Compress, want)
		}
	}
}

func TestLoadDefaultsAndMissing(t *testing.T) {
	cfg, err := loadString(t, `
[compare]
from = -
to = tree
[output]
path = out.spatch
`)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Compress {
		t.Fatal("compress defaulted to true, want false")
	}

	if _, err := loadString(t, "[compare]\nfrom = a\n"); err == nil {
		t.Fatal("Load with missing keys succeeded, want error")
	}
}
