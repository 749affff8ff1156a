package websocket

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"excalidraw-desktop/bridge"
	"excalidraw-desktop/core"
	"excalidraw-desktop/dialogs"
	"excalidraw-desktop/handlers/files"
)

// namedAck has the shape of a Socket.IO ack under another type name.
type namedAck func([]any, error)

func decodeEnvelope(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, ok := v.(json.RawMessage)
	if !ok {
		t.Fatalf("envelope is %T, want json.RawMessage", v)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	return out
}

// Mock invoker for testing
type mockInvoker struct {
	mu       sync.Mutex
	names    []string
	payloads []string
}

func (m *mockInvoker) Invoke(ctx context.Context, name string, payload json.RawMessage) bridge.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	m.payloads = append(m.payloads, string(payload))
	if _, err := bridge.ParseCommand(name); err != nil {
		return bridge.Fail(err)
	}
	return bridge.OK(bridge.SaveOK{FilePath: "/tmp/a.excalidraw"})
}

// Mock socket for testing
type mockEmitter struct {
	events []string
	args   [][]any
}

func (m *mockEmitter) Emit(event string, args ...any) error {
	m.events = append(m.events, event)
	m.args = append(m.args, args)
	return nil
}

func TestExtractAck(t *testing.T) {
	var got []any
	testCases := []struct {
		name     string
		ack      any
		wantArgs int
	}{
		{"Socket.IO ack", func(args []any, err error) { got = args }, 1},
		{"Variadic", func(args ...any) { got = args }, 1},
		{"Named ack type", namedAck(func(args []any, err error) { got = args }), 1},
		{"Not a function", "payload", 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got = nil
			ack, args := extractAck([]any{"first", tc.ack})
			if len(args) != tc.wantArgs {
				t.Fatalf("extractAck() left %d args, want %d", len(args), tc.wantArgs)
			}
			if tc.wantArgs == 2 {
				if ack != nil {
					t.Error("extractAck() wrapped a non-function")
				}
				return
			}

			ack(json.RawMessage(`{"success":true}`))
			if len(got) != 1 {
				t.Fatalf("ack received %d args, want 1", len(got))
			}
			if envelope := decodeEnvelope(t, got[0]); envelope["success"] != true {
				t.Errorf("ack received %v", envelope)
			}
		})
	}

	if ack, args := extractAck(nil); ack != nil || len(args) != 0 {
		t.Error("extractAck(nil) should return nothing")
	}
}

func TestParseInvokeArgs(t *testing.T) {
	name, payload, err := parseInvokeArgs([]any{"file:browse", "/tmp"})
	if err != nil {
		t.Fatalf("parseInvokeArgs() failed: %v", err)
	}
	if name != "file:browse" || payload != "/tmp" {
		t.Errorf("parseInvokeArgs() = %q, %v", name, payload)
	}

	for _, args := range [][]any{nil, {42}, {""}} {
		if _, _, err := parseInvokeArgs(args); err == nil {
			t.Errorf("parseInvokeArgs(%v) should fail", args)
		}
	}
}

func TestServe_WithAck(t *testing.T) {
	invoker := &mockInvoker{}
	socket := &mockEmitter{}
	var raw json.RawMessage
	ack := func(e json.RawMessage) { raw = e }

	serve(invoker, socket, "file:save", "file:save", map[string]any{"filename": "a"}, ack)

	if len(invoker.names) != 1 || invoker.names[0] != "file:save" {
		t.Fatalf("Invoke() calls = %v", invoker.names)
	}
	if invoker.payloads[0] != `{"filename":"a"}` {
		t.Errorf("payload = %s", invoker.payloads[0])
	}
	if envelope := decodeEnvelope(t, raw); envelope["success"] != true || envelope["filePath"] != "/tmp/a.excalidraw" {
		t.Errorf("ack envelope = %v", envelope)
	}
	if len(socket.events) != 0 {
		t.Error("result emitted although an ack was given")
	}
}

func TestServe_WithoutAck(t *testing.T) {
	invoker := &mockInvoker{}
	socket := &mockEmitter{}

	serve(invoker, socket, invokeEvent, "file:delete", nil, nil)

	if len(socket.events) != 1 || socket.events[0] != "invoke-result" {
		t.Fatalf("emitted events = %v", socket.events)
	}
	envelope := decodeEnvelope(t, socket.args[0][0])
	if envelope["success"] != false || envelope["error"] != "unknown command: file:delete" {
		t.Errorf("emitted envelope = %v", envelope)
	}
	if invoker.payloads[0] != "null" {
		t.Errorf("payload = %s, want null", invoker.payloads[0])
	}
}

func TestResultPayload(t *testing.T) {
	raw, err := resultPayload(bridge.Failure(bridge.CommandBrowse, "denied"))
	if err != nil {
		t.Fatalf("resultPayload() failed: %v", err)
	}
	envelope := decodeEnvelope(t, raw)
	if envelope["success"] != false || envelope["error"] != "denied" || envelope["currentPath"] != "" {
		t.Errorf("envelope = %v", envelope)
	}
	if files, ok := envelope["files"].([]any); !ok || len(files) != 0 {
		t.Errorf("files = %v", envelope["files"])
	}
}

func TestRequestBody(t *testing.T) {
	testCases := []struct {
		name    string
		payload any
		want    string
	}{
		{"Encoded request", ` {"filename":"a","data":{"b":1,"a":2}} `, `{"filename":"a","data":{"b":1,"a":2}}`},
		{"Bare path", "/home/me/plan.excalidraw", `"/home/me/plan.excalidraw"`},
		{"Brace that is not JSON", "{draft", `"{draft"`},
		{"Decoded object", map[string]any{"directory": "/tmp"}, `{"directory":"/tmp"}`},
		{"Missing", nil, "null"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := requestBody(tc.payload)
			if err != nil {
				t.Fatalf("requestBody() failed: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("requestBody() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestServe_SaveLoadKeepsDrawing(t *testing.T) {
	const document = `{"type":"excalidraw","elements":[{"id":"a","seed":12345678901234567891,"x":10}],` +
		`"appState":{"zoom":{"value":1},"gridSize":20,"collaborators":{}}}`

	home := t.TempDir()
	host := files.NewHost(dialogs.NewScripted(), files.WithHomeDirectory(home))
	dispatcher := bridge.NewDispatcher(host)
	socket := &mockEmitter{}
	target := filepath.Join(home, "ordered.excalidraw")

	request, _ := json.Marshal(map[string]any{"filename": target, "data": json.RawMessage(document)})
	var saved json.RawMessage
	serve(dispatcher, socket, "file:save", "file:save", string(request), func(e json.RawMessage) { saved = e })
	if envelope := decodeEnvelope(t, saved); envelope["success"] != true {
		t.Fatalf("save envelope = %v", envelope)
	}

	var loaded json.RawMessage
	serve(dispatcher, socket, "file:load", "file:load", target, func(e json.RawMessage) { loaded = e })

	result, err := bridge.DecodeResult(bridge.CommandLoad, loaded)
	if err != nil {
		t.Fatalf("DecodeResult() failed: %v", err)
	}
	payload, ok := bridge.PayloadAs[bridge.LoadOK](result)
	if !ok {
		t.Fatalf("load result = %s", loaded)
	}
	if !payload.Data.Equal(core.Drawing(document)) {
		t.Errorf("drawing changed on the way through:\n got %s\nwant %s", payload.Data, document)
	}

	text := string(loaded)
	if !strings.Contains(text, "12345678901234567891") {
		t.Error("large integer lost precision")
	}
	if strings.Index(text, `"zoom"`) > strings.Index(text, `"gridSize"`) {
		t.Error("appState keys were reordered")
	}
	if len(socket.events) != 0 {
		t.Errorf("unexpected events %v", socket.events)
	}
}
