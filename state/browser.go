package state

import (
	"path/filepath"

	"excalidraw-desktop/core"
)

// SplitListing separates a directory listing into folders and drawings,
// keeping the listing order within each.
func SplitListing(files []core.FileEntry) (dirs, docs []core.FileEntry) {
	for _, f := range files {
		if f.IsDirectory {
			dirs = append(dirs, f)
		} else {
			docs = append(docs, f)
		}
	}
	return dirs, docs
}

// ParentDirectory is the directory one level up from current. The root, and
// an unknown current directory, map to "/".
func ParentDirectory(current string) string {
	if AtRoot(current) {
		return "/"
	}
	parent := filepath.Dir(current)
	if parent == "." {
		return "/"
	}
	return parent
}

// AtRoot reports whether there is no directory above current.
func AtRoot(current string) bool {
	return current == "" || filepath.Dir(current) == current
}
