package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"excalidraw-desktop/core"

	"github.com/sirupsen/logrus"
)

// RecentRegistry keeps recently used documents for the lifetime of the process.
type RecentRegistry struct {
	mu    sync.RWMutex
	files map[string]int64
	now   func() time.Time
}

func NewRecentRegistry() *RecentRegistry {
	return &RecentRegistry{
		files: make(map[string]int64),
		now:   time.Now,
	}
}

func (s *RecentRegistry) TouchFile(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("file path is required")
	}

	s.mu.Lock()
	s.files[path] = s.now().UnixMilli()
	s.mu.Unlock()

	logrus.WithField("file_path", path).Debug("Recent file touched")
	return nil
}

func (s *RecentRegistry) ForgetFile(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("file path is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.files, path)
	return nil
}

// ListRecent returns up to limit files, newest first. A limit <= 0 returns all.
func (s *RecentRegistry) ListRecent(ctx context.Context, limit int) ([]core.RecentFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]core.RecentFile, 0, len(s.files))
	for path, last := range s.files {
		files = append(files, core.RecentFile{Path: path, LastOpened: last})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].LastOpened == files[j].LastOpened {
			return files[i].Path < files[j].Path
		}
		return files[i].LastOpened > files[j].LastOpened
	})

	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}
