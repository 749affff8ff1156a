package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"excalidraw-desktop/bridge"
	"excalidraw-desktop/core"
	"excalidraw-desktop/dialogs"
	"excalidraw-desktop/handlers/files"

	"github.com/go-chi/chi/v5"
)

// Mock recent lister for testing
type mockLister struct {
	files []core.RecentFile
	err   error
	limit int
}

func (m *mockLister) Recent(ctx context.Context, limit int) ([]core.RecentFile, error) {
	m.limit = limit
	return m.files, m.err
}

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	home := t.TempDir()
	host := files.NewHost(dialogs.NewScripted(), files.WithHomeDirectory(home))

	r := chi.NewRouter()
	r.Post("/api/bridge/{command}", HandleInvoke(bridge.NewDispatcher(host)))
	r.Get("/api/thumbnail", HandleThumbnail())
	return r, home
}

func post(t *testing.T, h http.Handler, command, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/bridge/"+command, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return out
}

func TestHandleInvoke_SaveLoadBrowse(t *testing.T) {
	router, home := newTestRouter(t)
	target := filepath.Join(home, "plan")

	body, _ := json.Marshal(map[string]any{
		"filename": target,
		"data":     json.RawMessage(`{"elements":[{"id":"x"}],"appState":{"gridSize":20}}`),
	})
	rec := post(t, router, "save", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	saved := decode(t, rec)
	if saved["success"] != true || saved["filePath"] != target+".excalidraw" {
		t.Fatalf("save response = %v", saved)
	}

	loadBody, _ := json.Marshal(map[string]string{"filePath": target + ".excalidraw"})
	rec = post(t, router, "file:load", string(loadBody))
	loaded := decode(t, rec)
	if loaded["success"] != true {
		t.Fatalf("load response = %v", loaded)
	}
	data, _ := json.Marshal(loaded["data"])
	if !core.Drawing(data).Equal(core.Drawing(`{"elements":[{"id":"x"}],"appState":{"gridSize":20}}`)) {
		t.Errorf("loaded data = %s", data)
	}

	rec = post(t, router, "browse", "")
	listing := decode(t, rec)
	if listing["success"] != true || listing["currentPath"] != home {
		t.Fatalf("browse response = %v", listing)
	}
	entries := listing["files"].([]any)
	if len(entries) != 1 || entries[0].(map[string]any)["name"] != "plan.excalidraw" {
		t.Errorf("browse files = %v", entries)
	}
}

func TestHandleInvoke_FailuresAreData(t *testing.T) {
	router, home := newTestRouter(t)

	rec := post(t, router, "load", `{"filePath":"`+filepath.Join(home, "missing.excalidraw")+`"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	out := decode(t, rec)
	if out["success"] != false || !strings.Contains(out["error"].(string), "no such file") {
		t.Errorf("load failure = %v", out)
	}

	rec = post(t, router, "save", `{"filename":"x","data":{"elements":[]}}`)
	out = decode(t, rec)
	if out["success"] != false || out["error"] != "Save cancelled" || out["cancelled"] != true {
		t.Errorf("cancelled save = %v", out)
	}
}

func TestHandleInvoke_UnknownCommand(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := post(t, router, "delete", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	out := decode(t, rec)
	if out["success"] != false || out["error"] != "unknown command: delete" {
		t.Errorf("unknown command response = %v", out)
	}
}

func TestHandleInvoke_BodyTooLarge(t *testing.T) {
	router, _ := newTestRouter(t)

	big := bytes.Repeat([]byte("a"), MaxRequestBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/api/bridge/save", bytes.NewReader(big))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestHandleThumbnail(t *testing.T) {
	router, home := newTestRouter(t)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	if err := os.WriteFile(filepath.Join(home, "plan.png"), png, 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/thumbnail?path="+filepath.Join(home, "plan.excalidraw"), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), png) {
		t.Error("thumbnail body mismatch")
	}

	testCases := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"Missing thumbnail", filepath.Join(home, "other.excalidraw"), http.StatusNotFound},
		{"Not a document", filepath.Join(home, "plan.png"), http.StatusBadRequest},
		{"Empty", "", http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/thumbnail?path="+tc.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Errorf("Status code mismatch: got %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestHandleRecent(t *testing.T) {
	lister := &mockLister{files: []core.RecentFile{{Path: "/a.excalidraw", LastOpened: 2}}}
	handler := HandleRecent(lister)

	req := httptest.NewRequest(http.MethodGet, "/api/recent", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	var response RecentResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response.Files) != 1 || response.Files[0].Path != "/a.excalidraw" {
		t.Errorf("response = %+v", response)
	}
	if lister.limit != defaultRecentLimit {
		t.Errorf("limit = %d, want %d", lister.limit, defaultRecentLimit)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/recent?limit=5", nil)
	rec = httptest.NewRecorder()
	handler(rec, req)
	if lister.limit != 5 {
		t.Errorf("limit = %d, want 5", lister.limit)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/recent?limit=abc", nil)
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleRecent_Empty(t *testing.T) {
	handler := HandleRecent(&mockLister{})
	req := httptest.NewRequest(http.MethodGet, "/api/recent", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if strings.TrimSpace(rec.Body.String()) != `{"files":[]}` {
		t.Errorf("body = %s", rec.Body.String())
	}

	handler = HandleRecent(&mockLister{err: errors.New("database is locked")})
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/recent", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
