package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"excalidraw-desktop/core"
)

// Kind discriminates the variants of a Result.
type Kind int

const (
	KindOK Kind = iota
	KindErr
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindErr:
		return "error"
	case KindCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Payload is the command-specific body of a Result.
type Payload interface {
	wrap(head envelope) any
}

type (
	SaveOK struct {
		FilePath string `json:"filePath"`
	}

	LoadOK struct {
		Data     core.Drawing `json:"data"`
		FilePath string       `json:"filePath"`
	}

	ThumbnailOK struct {
		ThumbnailPath string `json:"thumbnailPath"`
	}

	BrowseOK struct {
		Files       []core.FileEntry `json:"files"`
		CurrentPath string           `json:"currentPath"`
	}
)

func (p SaveOK) wrap(head envelope) any {
	return struct {
		envelope
		SaveOK
	}{head, p}
}

func (p LoadOK) wrap(head envelope) any {
	return struct {
		envelope
		LoadOK
	}{head, p}
}

func (p ThumbnailOK) wrap(head envelope) any {
	return struct {
		envelope
		ThumbnailOK
	}{head, p}
}

func (p BrowseOK) wrap(head envelope) any {
	if p.Files == nil {
		p.Files = []core.FileEntry{}
	}
	return struct {
		envelope
		BrowseOK
	}{head, p}
}

type envelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// Result is the answer to every command: OK with a payload, Err with a
// message, or Cancelled when the user dismissed a dialog. It marshals to the
// uniform envelope {success, ...}.
type Result struct {
	kind    Kind
	message string
	payload Payload
}

func OK(p Payload) Result {
	return Result{kind: KindOK, payload: p}
}

func Err(message string) Result {
	if message == "" {
		message = "unknown error"
	}
	return Result{kind: KindErr, message: message}
}

// Fail converts err into an Err result carrying its text verbatim.
func Fail(err error) Result {
	if err == nil {
		return Err("")
	}
	return Err(err.Error())
}

func Cancelled(message string) Result {
	return Result{kind: KindCancelled, message: message}
}

// Failure builds the failure envelope for cmd. Browse failures keep the
// empty listing fields so clients can render them without a nil check.
func Failure(cmd Command, message string) Result {
	r := Err(message)
	if cmd == CommandBrowse {
		r = r.WithFallback(BrowseOK{Files: []core.FileEntry{}})
	}
	return r
}

// WithFallback attaches payload fields to a failure envelope.
func (r Result) WithFallback(p Payload) Result {
	if r.kind != KindOK {
		r.payload = p
	}
	return r
}

func (r Result) Kind() Kind { return r.kind }

func (r Result) Success() bool { return r.kind == KindOK }

func (r Result) IsCancelled() bool { return r.kind == KindCancelled }

func (r Result) Message() string { return r.message }

func (r Result) Payload() Payload { return r.payload }

// AsError returns nil for OK results and the failure message otherwise.
func (r Result) AsError() error {
	if r.kind == KindOK {
		return nil
	}
	return errors.New(r.message)
}

// PayloadAs returns the payload of an OK result as T.
func PayloadAs[T Payload](r Result) (T, bool) {
	var zero T
	if r.kind != KindOK {
		return zero, false
	}
	p, ok := r.payload.(T)
	return p, ok
}

func (r Result) MarshalJSON() ([]byte, error) {
	head := envelope{Success: r.kind == KindOK}
	if r.kind != KindOK {
		head.Error = r.message
		head.Cancelled = r.kind == KindCancelled
	}
	if r.payload == nil {
		return json.Marshal(head)
	}
	return json.Marshal(r.payload.wrap(head))
}

// DecodeResult parses an envelope produced for cmd.
func DecodeResult(cmd Command, data []byte) (Result, error) {
	var head struct {
		Success   *bool  `json:"success"`
		Error     string `json:"error"`
		Cancelled bool   `json:"cancelled"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Result{}, fmt.Errorf("decode %s envelope: %w", cmd.Channel(), err)
	}
	if head.Success == nil {
		return Result{}, fmt.Errorf("decode %s envelope: missing success field", cmd.Channel())
	}

	if !*head.Success {
		r := Err(head.Error)
		if head.Cancelled {
			r = Cancelled(head.Error)
		}
		if cmd == CommandBrowse {
			var fallback BrowseOK
			if err := json.Unmarshal(data, &fallback); err == nil {
				r = r.WithFallback(fallback)
			}
		}
		return r, nil
	}

	var (
		p   Payload
		err error
	)
	switch cmd {
	case CommandSave:
		var v SaveOK
		err = json.Unmarshal(data, &v)
		p = v
	case CommandLoad:
		var v LoadOK
		err = json.Unmarshal(data, &v)
		p = v
	case CommandSaveThumbnail:
		var v ThumbnailOK
		err = json.Unmarshal(data, &v)
		p = v
	case CommandBrowse:
		var v BrowseOK
		err = json.Unmarshal(data, &v)
		p = v
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
	if err != nil {
		return Result{}, fmt.Errorf("decode %s payload: %w", cmd.Channel(), err)
	}
	return OK(p), nil
}
