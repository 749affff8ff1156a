package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"excalidraw-desktop/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Mirror keeps a copy of every saved revision under basePath, one directory
// per document name.
type Mirror struct {
	basePath string
}

func NewMirror(basePath string) (*Mirror, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &Mirror{basePath: basePath}, nil
}

func (m *Mirror) Mirror(ctx context.Context, path string, data []byte) error {
	key := core.BackupKey(path, ulid.Make().String())
	target := filepath.Join(m.basePath, filepath.FromSlash(key))
	log := logrus.WithFields(logrus.Fields{
		"file_path":   path,
		"backup_path": target,
	})

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		log.WithError(err).Error("Failed to create backup directory")
		return err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		log.WithError(err).Error("Failed to write backup")
		return err
	}

	log.WithField("data_length", len(data)).Debug("Drawing mirrored")
	return nil
}
