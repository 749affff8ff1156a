//go:build cgo

package dialogs

import (
	"context"
	"errors"
	"path/filepath"

	"excalidraw-desktop/core"

	"github.com/sirupsen/logrus"
	"github.com/sqweek/dialog"
)

// Native shows the operating system's file dialogs.
type Native struct{}

func NewNative() (core.Dialogs, error) {
	return Native{}, nil
}

func (Native) SaveFile(ctx context.Context, defaultPath string, filter core.FileFilter) (string, error) {
	b := dialog.File().
		Title("Save Drawing").
		SetStartDir(filepath.Dir(defaultPath)).
		SetStartFile(filepath.Base(defaultPath))
	if len(filter.Extensions) > 0 {
		b = b.Filter(filter.Description, filter.Extensions...)
	}

	path, err := b.Save()
	return path, translate(err, "save")
}

func (Native) OpenFile(ctx context.Context, startDir string, filter core.FileFilter) (string, error) {
	b := dialog.File().
		Title("Open Drawing").
		SetStartDir(startDir)
	if len(filter.Extensions) > 0 {
		b = b.Filter(filter.Description, filter.Extensions...)
	}

	path, err := b.Load()
	return path, translate(err, "open")
}

func translate(err error, kind string) error {
	if errors.Is(err, dialog.ErrCancelled) {
		return core.ErrDialogCancelled
	}
	if err != nil {
		logrus.WithError(err).WithField("dialog", kind).Error("Native dialog failed")
	}
	return err
}
