package dialogs

import (
	"context"
	"errors"
	"testing"

	"excalidraw-desktop/core"
)

func TestScripted(t *testing.T) {
	ctx := context.Background()
	s := NewScripted("/tmp/a.excalidraw", "")

	path, err := s.SaveFile(ctx, "/home/u/Documents/x.excalidraw", core.DocumentFilter)
	if err != nil {
		t.Fatalf("SaveFile() failed: %v", err)
	}
	if path != "/tmp/a.excalidraw" {
		t.Errorf("SaveFile() = %q", path)
	}

	if _, err := s.OpenFile(ctx, "/home/u", core.DocumentFilter); !errors.Is(err, core.ErrDialogCancelled) {
		t.Errorf("OpenFile() with empty answer error = %v, want ErrDialogCancelled", err)
	}
	if _, err := s.OpenFile(ctx, "/home/u", core.DocumentFilter); !errors.Is(err, core.ErrDialogCancelled) {
		t.Errorf("OpenFile() with exhausted queue error = %v, want ErrDialogCancelled", err)
	}

	s.Push("/tmp/b.excalidraw")
	if path, _ := s.OpenFile(ctx, "/srv", core.DocumentFilter); path != "/tmp/b.excalidraw" {
		t.Errorf("OpenFile() after Push() = %q", path)
	}

	calls := s.Calls()
	if len(calls) != 4 {
		t.Fatalf("Calls() returned %d calls, want 4", len(calls))
	}
	if !calls[0].Save || calls[0].Path != "/home/u/Documents/x.excalidraw" {
		t.Errorf("first call = %+v", calls[0])
	}
	if calls[3].Save || calls[3].Path != "/srv" {
		t.Errorf("last call = %+v", calls[3])
	}
}

func TestHeadless(t *testing.T) {
	ctx := context.Background()

	path, err := AcceptDefault{}.SaveFile(ctx, "/x/y.excalidraw", core.DocumentFilter)
	if err != nil || path != "/x/y.excalidraw" {
		t.Errorf("AcceptDefault.SaveFile() = %q, %v", path, err)
	}
	if _, err := (AcceptDefault{}).OpenFile(ctx, "/x", core.DocumentFilter); !errors.Is(err, core.ErrDialogCancelled) {
		t.Errorf("AcceptDefault.OpenFile() error = %v", err)
	}
	if _, err := (None{}).SaveFile(ctx, "/x/y.excalidraw", core.DocumentFilter); !errors.Is(err, core.ErrDialogCancelled) {
		t.Errorf("None.SaveFile() error = %v", err)
	}
}

func TestNew(t *testing.T) {
	for _, kind := range []string{KindAcceptDefault, KindNone} {
		if _, err := New(kind); err != nil {
			t.Errorf("New(%q) failed: %v", kind, err)
		}
	}
	if _, err := New("zenity"); err == nil {
		t.Error("New() should reject unknown kinds")
	}
}
