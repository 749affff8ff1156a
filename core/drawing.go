package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Drawing is a drawing document ({elements, appState}) kept as the raw JSON
// it arrived in. The host never interprets it beyond a shape check, so
// element order and key order survive every round trip.
type Drawing json.RawMessage

const emptyDrawing = `{"elements":[],"appState":{"viewBackgroundColor":"#ffffff","zoom":{"value":1},"scrollX":0,"scrollY":0,"gridSize":20,"gridMode":false,"collaborators":{}}}`

// EmptyDrawing returns the document used for a new drawing.
func EmptyDrawing() Drawing {
	return Drawing(emptyDrawing)
}

func (d Drawing) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

func (d *Drawing) UnmarshalJSON(data []byte) error {
	if d == nil {
		return errors.New("core.Drawing: UnmarshalJSON on nil pointer")
	}
	*d = append((*d)[0:0], data...)
	return nil
}

// IsZero reports whether the drawing is absent or JSON null.
func (d Drawing) IsZero() bool {
	trimmed := bytes.TrimSpace(d)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

// Indent renders the document with a constant two-space indentation.
func (d Drawing) Indent() ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, d, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Clone returns a copy that shares no memory with d.
func (d Drawing) Clone() Drawing {
	if d == nil {
		return nil
	}
	return Drawing(bytes.Clone(d))
}

// Equal compares two drawings ignoring insignificant whitespace.
func (d Drawing) Equal(other Drawing) bool {
	var a, b bytes.Buffer
	if err := json.Compact(&a, d); err != nil {
		return false
	}
	if err := json.Compact(&b, other); err != nil {
		return false
	}
	return bytes.Equal(a.Bytes(), b.Bytes())
}

// ElementCount returns the number of elements, or -1 when the document
// has no readable elements array.
func (d Drawing) ElementCount() int {
	var doc struct {
		Elements []json.RawMessage `json:"elements"`
	}
	if err := json.Unmarshal(d, &doc); err != nil || doc.Elements == nil {
		return -1
	}
	return len(doc.Elements)
}

// ParseDrawing parses file contents into a drawing and checks its shape.
func ParseDrawing(data []byte) (Drawing, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	d := Drawing(raw)
	if err := ValidateDrawing(d); err != nil {
		return nil, err
	}
	return d, nil
}

const drawingSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"elements": {"type": "array"},
		"appState": {"type": ["object", "null"]}
	}
}`

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

// ValidateDrawing checks that d is a JSON object whose elements, when
// present, is an array and whose appState, when present, is an object.
func ValidateDrawing(d Drawing) error {
	if d.IsZero() {
		return fmt.Errorf("%w: document is empty", ErrInvalidDrawing)
	}

	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(drawingSchema))
	})
	if schemaErr != nil {
		return fmt.Errorf("compile drawing schema: %w", schemaErr)
	}

	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(d))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDrawing, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidDrawing, strings.Join(problems, "; "))
	}
	return nil
}
