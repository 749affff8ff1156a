// Package state holds the UI process's application state: the file being
// edited and the drawing shown on the canvas.
package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"excalidraw-desktop/bridge"
	"excalidraw-desktop/core"

	"github.com/sirupsen/logrus"
)

// Snapshot is a copy of the state at one point in time.
type Snapshot struct {
	CurrentFile string
	Drawing     core.Drawing
}

func (s Snapshot) clone() Snapshot {
	s.Drawing = s.Drawing.Clone()
	return s
}

// Store is the single owner of the UI state. Pass it to the views that need
// it; there is no package-level instance.
type Store struct {
	mu        sync.RWMutex
	current   Snapshot
	listeners map[int]func(Snapshot)
	nextID    int
}

func NewStore() *Store {
	return &Store{listeners: make(map[int]func(Snapshot))}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// CurrentFile returns the path of the open document, if it has been saved or
// loaded.
func (s *Store) CurrentFile() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.CurrentFile, s.current.CurrentFile != ""
}

func (s *Store) Drawing() (core.Drawing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Drawing.Clone(), !s.current.Drawing.IsZero()
}

// CreateNew starts an unsaved drawing with the default view parameters.
func (s *Store) CreateNew() {
	s.set(Snapshot{Drawing: core.EmptyDrawing()})
}

// SetDrawing records the latest canvas contents.
func (s *Store) SetDrawing(d core.Drawing) {
	s.update(func(cur *Snapshot) {
		cur.Drawing = d.Clone()
	})
}

// ApplyLoad takes over the file and drawing of a successful load. Other
// results leave the state unchanged and report false.
func (s *Store) ApplyLoad(result bridge.Result) bool {
	loaded, ok := bridge.PayloadAs[bridge.LoadOK](result)
	if !ok {
		return false
	}

	drawing, err := sanitize(loaded.Data)
	if err != nil {
		logrus.WithError(err).WithField("file_path", loaded.FilePath).Warn("Failed to sanitize loaded drawing")
		drawing = loaded.Data.Clone()
	}
	s.set(Snapshot{CurrentFile: loaded.FilePath, Drawing: drawing})
	return true
}

// ApplySave records where a successful save wrote the drawing.
func (s *Store) ApplySave(result bridge.Result) bool {
	saved, ok := bridge.PayloadAs[bridge.SaveOK](result)
	if !ok {
		return false
	}
	s.update(func(cur *Snapshot) {
		cur.CurrentFile = saved.FilePath
	})
	return true
}

// Clear empties the state when returning to the file browser.
func (s *Store) Clear() {
	s.set(Snapshot{})
}

// Subscribe registers fn to be called after every change and returns a
// function removing it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) set(next Snapshot) {
	s.update(func(cur *Snapshot) {
		*cur = next
	})
}

func (s *Store) update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.current)
	snapshot := s.current
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot.clone())
	}
}

// sanitize resets appState.collaborators, which only means something inside
// a live session, keeping every other key in place.
func sanitize(d core.Drawing) (core.Drawing, error) {
	if d.IsZero() {
		return d, nil
	}
	out, err := rewriteObject(d, func(key string, value json.RawMessage) (json.RawMessage, error) {
		if key != "appState" || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			return value, nil
		}
		return rewriteObject(value, func(key string, value json.RawMessage) (json.RawMessage, error) {
			if key == "collaborators" {
				return json.RawMessage("{}"), nil
			}
			return value, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return core.Drawing(out), nil
}

// rewriteObject re-encodes a JSON object member by member, in order, passing
// each value through fn.
func rewriteObject(data []byte, fn func(key string, value json.RawMessage) (json.RawMessage, error)) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for first := true; dec.More(); first = false {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected an object key")
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		value, err = fn(key, value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}

		if !first {
			buf.WriteByte(',')
		}
		encodedKey, _ := json.Marshal(key)
		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
