// Package treewalk is the boundary between the container's POSIX-style
// `/`-separated relative paths and the host filesystem: it walks
// directory trees the way the differ needs (deterministic order,
// dot-entries skipped) and validates frame paths the way the patcher
// requires (relative, no traversal).
package treewalk

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/xerrors"
)

// ValidateRel rejects frame paths that could navigate outside the
// caller-supplied root: empty paths, absolute paths, and any `..`
// segment. Container paths always use `/`.
func ValidateRel(name string) error {
	if name == "" {
		return xerrors.New("empty path")
	}
	if strings.HasPrefix(name, "/") {
		return xerrors.Errorf("absolute path %q", name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return xerrors.Errorf("path %q contains ..", name)
		}
	}
	return nil
}

// Native converts a container-level relative path under root into a
// host path.
func Native(root, rel string) string {
	if rel == "" {
		return root
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Walk calls fn for every regular file under root, depth-first. Entries
// whose name begins with `.` are skipped entirely (files and whole
// subtrees), so tooling directories like `.git` never enter a walk.
// Directory entries are visited in name order, making the walk
// deterministic per run. rel is `/`-separated and relative to root.
func Walk(root string, fn func(rel string, size int64) error) error {
	return walk(root, "", fn)
}

func walk(root, rel string, fn func(rel string, size int64) error) error {
	entries, err := os.ReadDir(Native(root, rel))
	if err != nil {
		return xerrors.Errorf("walk %s: %w", Native(root, rel), err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, ent := range entries {
		name := ent.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}
		if ent.IsDir() {
			if err := walk(root, childRel, fn); err != nil {
				return err
			}
			continue
		}
		info, err := ent.Info()
		if err != nil {
			return xerrors.Errorf("walk %s: %w", Native(root, childRel), err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if err := fn(childRel, info.Size()); err != nil {
			return err
		}
	}
	return nil
}
