//go:build !cgo

package dialogs

import (
	"errors"

	"excalidraw-desktop/core"
)

func NewNative() (core.Dialogs, error) {
	return nil, errors.New("native dialogs require a cgo build; use accept-default or none")
}
