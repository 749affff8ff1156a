package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"excalidraw-desktop/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// RecentRegistry persists recently used documents across runs.
type RecentRegistry struct {
	db  *sql.DB
	now func() time.Time
}

func NewRecentRegistry(dataSourceName string) (*RecentRegistry, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	sts := `CREATE TABLE IF NOT EXISTS recent_files (
		path TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		last_opened INTEGER NOT NULL
	);`
	if _, err := db.Exec(sts); err != nil {
		db.Close()
		return nil, fmt.Errorf("create recent_files table: %w", err)
	}

	return &RecentRegistry{db: db, now: time.Now}, nil
}

func (s *RecentRegistry) TouchFile(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("file path is required")
	}
	log := logrus.WithField("file_path", path)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO recent_files (path, id, last_opened) VALUES (?, ?, ?) ON CONFLICT(path) DO UPDATE SET last_opened = excluded.last_opened",
		path, ulid.Make().String(), s.now().UnixMilli())
	if err != nil {
		log.WithError(err).Error("Failed to touch recent file")
		return err
	}

	log.Debug("Recent file touched")
	return nil
}

func (s *RecentRegistry) ForgetFile(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("file path is required")
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM recent_files WHERE path = ?", path); err != nil {
		logrus.WithError(err).WithField("file_path", path).Error("Failed to forget recent file")
		return err
	}
	return nil
}

// ListRecent returns up to limit files, newest first. A limit <= 0 returns all.
func (s *RecentRegistry) ListRecent(ctx context.Context, limit int) ([]core.RecentFile, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT path, last_opened FROM recent_files ORDER BY last_opened DESC, path ASC LIMIT ?",
		limit)
	if err != nil {
		logrus.WithError(err).Error("Failed to list recent files")
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("Failed to close recent file rows")
		}
	}()

	files := []core.RecentFile{}
	for rows.Next() {
		var f core.RecentFile
		if err := rows.Scan(&f.Path, &f.LastOpened); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *RecentRegistry) Close() error {
	return s.db.Close()
}
