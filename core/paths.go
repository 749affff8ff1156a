package core

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// EnsureExtension appends the document extension exactly once.
func EnsureExtension(name string) string {
	return strings.TrimSuffix(name, DocumentExtension) + DocumentExtension
}

func IsDocument(name string) bool {
	return strings.HasSuffix(name, DocumentExtension)
}

// ThumbnailPath derives the sibling PNG of a document:
// dirname(doc)/basename(doc, ".excalidraw") + ".png".
func ThumbnailPath(docPath string) string {
	base := filepath.Base(docPath)
	if base != DocumentExtension {
		base = strings.TrimSuffix(base, DocumentExtension)
	}
	return filepath.Join(filepath.Dir(docPath), base+ThumbnailExtension)
}

// DefaultFilename names a drawing that has never been saved.
func DefaultFilename(now time.Time) string {
	return fmt.Sprintf("drawing_%d", now.UnixMilli())
}

// BackupKey names a mirrored copy of docPath: one folder per document,
// one object per saved revision.
func BackupKey(docPath, revision string) string {
	name := strings.TrimSuffix(filepath.Base(docPath), DocumentExtension)
	return name + "/" + revision + DocumentExtension
}
