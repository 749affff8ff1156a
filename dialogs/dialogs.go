// Package dialogs provides the core.Dialogs implementations the host can run
// with: native OS dialogs, or headless ones for servers and tests.
package dialogs

import (
	"context"
	"fmt"
	"sync"

	"excalidraw-desktop/core"
)

const (
	KindNative        = "native"
	KindAcceptDefault = "accept-default"
	KindNone          = "none"
)

// New returns the dialogs implementation named by kind.
func New(kind string) (core.Dialogs, error) {
	switch kind {
	case "", KindNative:
		return NewNative()
	case KindAcceptDefault:
		return AcceptDefault{}, nil
	case KindNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown dialogs kind %q", kind)
	}
}

// AcceptDefault answers every save dialog with its proposed path and cancels
// every open dialog.
type AcceptDefault struct{}

func (AcceptDefault) SaveFile(ctx context.Context, defaultPath string, filter core.FileFilter) (string, error) {
	return defaultPath, nil
}

func (AcceptDefault) OpenFile(ctx context.Context, startDir string, filter core.FileFilter) (string, error) {
	return "", core.ErrDialogCancelled
}

// None cancels every dialog.
type None struct{}

func (None) SaveFile(ctx context.Context, defaultPath string, filter core.FileFilter) (string, error) {
	return "", core.ErrDialogCancelled
}

func (None) OpenFile(ctx context.Context, startDir string, filter core.FileFilter) (string, error) {
	return "", core.ErrDialogCancelled
}

// Call records one dialog shown by Scripted.
type Call struct {
	Save bool
	Path string
}

// Scripted answers dialogs from a queue of paths. An empty answer, or an
// exhausted queue, counts as the user cancelling.
type Scripted struct {
	mu      sync.Mutex
	answers []string
	calls   []Call
}

func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

// Push queues more answers.
func (s *Scripted) Push(answers ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, answers...)
}

func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Scripted) SaveFile(ctx context.Context, defaultPath string, filter core.FileFilter) (string, error) {
	return s.next(Call{Save: true, Path: defaultPath})
}

func (s *Scripted) OpenFile(ctx context.Context, startDir string, filter core.FileFilter) (string, error) {
	return s.next(Call{Path: startDir})
}

func (s *Scripted) next(call Call) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	if len(s.answers) == 0 {
		return "", core.ErrDialogCancelled
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	if answer == "" {
		return "", core.ErrDialogCancelled
	}
	return answer, nil
}
