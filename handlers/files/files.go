// Package files is the host side of the bridge: it owns every filesystem and
// dialog side effect behind the four bridge commands.
package files

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"excalidraw-desktop/bridge"
	"excalidraw-desktop/core"

	"github.com/sirupsen/logrus"
)

const pngDataURLPrefix = "data:image/png;base64,"

type Option func(*Host)

// Host implements bridge.Host on top of the local filesystem.
type Host struct {
	dialogs    core.Dialogs
	registry   core.RecentRegistry
	mirror     core.Mirror
	defaultDir string
	home       string
	now        func() time.Time
}

var _ bridge.Host = (*Host)(nil)

func WithRegistry(r core.RecentRegistry) Option {
	return func(h *Host) {
		h.registry = r
	}
}

func WithMirror(m core.Mirror) Option {
	return func(h *Host) {
		h.mirror = m
	}
}

// WithDefaultDirectory sets where the save dialog opens.
func WithDefaultDirectory(dir string) Option {
	return func(h *Host) {
		h.defaultDir = dir
	}
}

// WithHomeDirectory overrides the user's home directory.
func WithHomeDirectory(dir string) Option {
	return func(h *Host) {
		h.home = dir
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Host) {
		h.now = now
	}
}

func NewHost(dialogs core.Dialogs, opts ...Option) *Host {
	h := &Host{
		dialogs: dialogs,
		now:     time.Now,
	}
	if home, err := os.UserHomeDir(); err == nil {
		h.home = home
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Host) Save(ctx context.Context, req bridge.SaveRequest) bridge.Result {
	log := logrus.WithField("filename", req.Filename)

	if req.Data.IsZero() {
		return bridge.Err("drawing data is required")
	}
	if err := core.ValidateDrawing(req.Data); err != nil {
		log.WithError(err).Warn("Rejected invalid drawing")
		return bridge.Fail(err)
	}

	target, err := h.saveTarget(ctx, req.Filename)
	if errors.Is(err, core.ErrDialogCancelled) {
		log.Info("Save dialog cancelled")
		return bridge.Cancelled("Save cancelled")
	}
	if err != nil {
		log.WithError(err).Error("Failed to choose save location")
		return bridge.Fail(err)
	}

	content, err := req.Data.Indent()
	if err != nil {
		return bridge.Fail(err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		log.WithError(err).Error("Failed to create parent directory")
		return bridge.Fail(err)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		log.WithError(err).Error("Failed to write drawing")
		return bridge.Fail(err)
	}

	log.WithFields(logrus.Fields{
		"file_path":   target,
		"data_length": len(content),
		"elements":    req.Data.ElementCount(),
	}).Info("Drawing saved successfully")
	h.afterSave(ctx, target, content)

	return bridge.OK(bridge.SaveOK{FilePath: target})
}

// saveTarget writes to an absolute filename directly and otherwise asks the
// user, proposing <defaultDir>/<name>.excalidraw.
func (h *Host) saveTarget(ctx context.Context, filename string) (string, error) {
	if filepath.IsAbs(filename) {
		return core.EnsureExtension(filename), nil
	}
	if h.dialogs == nil {
		return "", errors.New("no file dialog available")
	}

	name := filename
	if name == "" {
		name = core.DefaultFilename(h.now())
	}
	defaultPath := filepath.Join(h.DefaultDirectory(), core.EnsureExtension(name))

	target, err := h.dialogs.SaveFile(ctx, defaultPath, core.DocumentFilter)
	if err != nil {
		return "", err
	}
	if target == "" {
		return "", core.ErrDialogCancelled
	}
	return core.EnsureExtension(target), nil
}

// DefaultDirectory is the configured directory, else ~/Documents when it
// exists, else the home directory.
func (h *Host) DefaultDirectory() string {
	if h.defaultDir != "" {
		return h.defaultDir
	}
	if h.home == "" {
		return "."
	}
	docs := filepath.Join(h.home, "Documents")
	if info, err := os.Stat(docs); err == nil && info.IsDir() {
		return docs
	}
	return h.home
}

func (h *Host) afterSave(ctx context.Context, path string, content []byte) {
	log := logrus.WithField("file_path", path)
	if h.registry != nil {
		if err := h.registry.TouchFile(ctx, path); err != nil {
			log.WithError(err).Warn("Failed to record recent file")
		}
	}
	if h.mirror != nil {
		if err := h.mirror.Mirror(ctx, path, content); err != nil {
			log.WithError(err).Warn("Failed to mirror drawing")
		}
	}
}

func (h *Host) Load(ctx context.Context, req bridge.LoadRequest) bridge.Result {
	path := req.FilePath
	if path == "" {
		if h.dialogs == nil {
			return bridge.Err("no file dialog available")
		}
		chosen, err := h.dialogs.OpenFile(ctx, h.DefaultDirectory(), core.DocumentFilter)
		if errors.Is(err, core.ErrDialogCancelled) || (err == nil && chosen == "") {
			logrus.Info("Open dialog cancelled")
			return bridge.Cancelled("Load cancelled")
		}
		if err != nil {
			logrus.WithError(err).Error("Failed to choose file to open")
			return bridge.Fail(err)
		}
		path = chosen
	}

	log := logrus.WithField("file_path", path)
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && h.registry != nil {
			if ferr := h.registry.ForgetFile(ctx, path); ferr != nil {
				log.WithError(ferr).Warn("Failed to forget missing recent file")
			}
		}
		log.WithError(err).Warn("Failed to read drawing")
		return bridge.Fail(err)
	}

	drawing, err := core.ParseDrawing(content)
	if err != nil {
		log.WithError(err).Warn("File is not a valid drawing")
		return bridge.Fail(err)
	}

	if h.registry != nil {
		if err := h.registry.TouchFile(ctx, path); err != nil {
			log.WithError(err).Warn("Failed to record recent file")
		}
	}
	log.WithFields(logrus.Fields{
		"data_length": len(content),
		"elements":    drawing.ElementCount(),
	}).Info("Drawing loaded successfully")

	return bridge.OK(bridge.LoadOK{Data: drawing, FilePath: path})
}

func (h *Host) SaveThumbnail(ctx context.Context, req bridge.ThumbnailRequest) bridge.Result {
	if req.FilePath == "" {
		return bridge.Err("file path is required")
	}

	image, err := decodeThumbnail(req.ImageData)
	if err != nil {
		return bridge.Fail(fmt.Errorf("decode thumbnail: %w", err))
	}

	thumbPath := core.ThumbnailPath(req.FilePath)
	log := logrus.WithField("thumbnail_path", thumbPath)
	if err := os.WriteFile(thumbPath, image, 0o644); err != nil {
		log.WithError(err).Error("Failed to write thumbnail")
		return bridge.Fail(err)
	}
	log.WithField("data_length", len(image)).Info("Thumbnail saved successfully")

	return bridge.OK(bridge.ThumbnailOK{ThumbnailPath: thumbPath})
}

// decodeThumbnail accepts a PNG data URL or bare base64, padded or not and
// possibly wrapped across lines.
func decodeThumbnail(data string) ([]byte, error) {
	encoded := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.TrimPrefix(data, pngDataURLPrefix))
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
}

func (h *Host) Browse(ctx context.Context, req bridge.BrowseRequest) bridge.Result {
	dir := req.Directory
	if dir == "" {
		dir = h.home
	}
	if dir == "" {
		dir = "/"
	}

	files, err := ListDirectory(dir)
	if err != nil {
		logrus.WithError(err).WithField("directory", dir).Warn("Failed to browse directory")
		return bridge.Failure(bridge.CommandBrowse, err.Error())
	}
	return bridge.OK(bridge.BrowseOK{Files: files, CurrentPath: dir})
}

// ListDirectory returns the subdirectories and drawing documents of dir in
// name order.
func ListDirectory(dir string) ([]core.FileEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]core.FileEntry, 0, len(entries))
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		switch {
		case entry.IsDir():
			files = append(files, core.FileEntry{Name: entry.Name(), Path: full, IsDirectory: true})
		case core.IsDocument(entry.Name()):
			_, statErr := os.Stat(core.ThumbnailPath(full))
			files = append(files, core.FileEntry{Name: entry.Name(), Path: full, HasThumbnail: statErr == nil})
		}
	}

	return files, nil
}

// Recent lists recently opened or saved documents, newest first.
func (h *Host) Recent(ctx context.Context, limit int) ([]core.RecentFile, error) {
	if h.registry == nil {
		return []core.RecentFile{}, nil
	}
	return h.registry.ListRecent(ctx, limit)
}
