// Package project resolves the project root used to scope tracking records.
package project

import (
	"os"
	"path/filepath"
)

// Markers are the files or directories whose presence identifies a project root.
var Markers = []string{
	".git",
	"Cargo.toml",
	"package.json",
	"go.mod",
	"pyproject.toml",
}

// DetectRoot walks up from the current working directory and returns the
// nearest project root, or "" when none is found.
func DetectRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return DetectRootFrom(wd)
}

// DetectRootFrom walks up from start (inclusive) and returns the canonical
// absolute path of the first directory containing one of Markers.
// Symlinks are resolved before walking; when that fails the raw absolute path
// is used. Returns "" if no ancestor up to the filesystem root has a marker.
func DetectRootFrom(start string) string {
	dir := canonicalize(start)
	for {
		if hasMarker(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs
	}
	return resolved
}

func hasMarker(dir string) bool {
	for _, m := range Markers {
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return true
		}
	}
	return false
}
