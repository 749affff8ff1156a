package core

import (
	"context"
	"errors"
)

const (
	DocumentExtension  = ".excalidraw"
	ThumbnailExtension = ".png"
)

var (
	// ErrDialogCancelled is returned by Dialogs when the user dismisses the dialog.
	ErrDialogCancelled = errors.New("dialog cancelled")
	ErrInvalidDrawing  = errors.New("invalid drawing")
)

// DocumentFilter restricts native dialogs to drawing documents.
var DocumentFilter = FileFilter{
	Description: "Excalidraw Files",
	Extensions:  []string{"excalidraw"},
}

type (
	// FileEntry is one row of a directory listing. HasThumbnail is computed
	// when the listing is built and never persisted.
	FileEntry struct {
		Name         string `json:"name"`
		Path         string `json:"path"`
		IsDirectory  bool   `json:"isDirectory"`
		HasThumbnail bool   `json:"hasThumbnail"`
	}

	FileFilter struct {
		Description string
		Extensions  []string
	}

	// Dialogs is the native file dialog surface of the host. Both methods
	// return ErrDialogCancelled when the user aborts.
	Dialogs interface {
		SaveFile(ctx context.Context, defaultPath string, filter FileFilter) (string, error)
		OpenFile(ctx context.Context, startDir string, filter FileFilter) (string, error)
	}

	RecentFile struct {
		Path       string `json:"path"`
		LastOpened int64  `json:"lastOpened"`
	}

	RecentRegistry interface {
		TouchFile(ctx context.Context, path string) error
		ForgetFile(ctx context.Context, path string) error
		ListRecent(ctx context.Context, limit int) ([]RecentFile, error)
	}

	// Mirror receives a copy of every document the host writes.
	Mirror interface {
		Mirror(ctx context.Context, path string, data []byte) error
	}
)
