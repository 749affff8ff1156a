// Package bridge defines the request/response contract between the UI
// process and the host: a closed set of commands, their payloads, and the
// tagged Result every command answers with.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"excalidraw-desktop/core"
)

// Command is one of the four operations the host exposes. The set is closed;
// anything else is rejected with ErrUnknownCommand.
type Command int

const (
	CommandSave Command = iota + 1
	CommandLoad
	CommandSaveThumbnail
	CommandBrowse
)

const channelPrefix = "file:"

var ErrUnknownCommand = errors.New("unknown command")

var commandNames = map[Command]string{
	CommandSave:          "save",
	CommandLoad:          "load",
	CommandSaveThumbnail: "saveThumbnail",
	CommandBrowse:        "browse",
}

// Commands lists every command in a fixed order.
func Commands() []Command {
	return []Command{CommandSave, CommandLoad, CommandSaveThumbnail, CommandBrowse}
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Channel is the wire name of the command, e.g. "file:save".
func (c Command) Channel() string {
	return channelPrefix + c.String()
}

// ParseCommand accepts a bare command name ("save") or its channel form
// ("file:save").
func ParseCommand(name string) (Command, error) {
	bare := strings.TrimPrefix(name, channelPrefix)
	for cmd, cmdName := range commandNames {
		if cmdName == bare {
			return cmd, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

type (
	SaveRequest struct {
		Filename string       `json:"filename"`
		Data     core.Drawing `json:"data"`
	}

	// LoadRequest with an empty FilePath asks the host to prompt the user.
	LoadRequest struct {
		FilePath string `json:"filePath,omitempty"`
	}

	ThumbnailRequest struct {
		FilePath  string `json:"filePath"`
		ImageData string `json:"imageData"`
	}

	// BrowseRequest with an empty Directory lists the default root.
	BrowseRequest struct {
		Directory string `json:"directory,omitempty"`
	}
)

// UnmarshalJSON also accepts the bare path string older clients send.
func (r *LoadRequest) UnmarshalJSON(data []byte) error {
	path, isString, err := bareString(data)
	if err != nil {
		return err
	}
	if isString {
		r.FilePath = path
		return nil
	}
	type plain LoadRequest
	return json.Unmarshal(data, (*plain)(r))
}

// UnmarshalJSON also accepts the bare directory string older clients send.
func (r *BrowseRequest) UnmarshalJSON(data []byte) error {
	dir, isString, err := bareString(data)
	if err != nil {
		return err
	}
	if isString {
		r.Directory = dir
		return nil
	}
	type plain BrowseRequest
	return json.Unmarshal(data, (*plain)(r))
}

func bareString(data []byte) (string, bool, error) {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, `"`) {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", true, err
	}
	return s, true, nil
}
