// Package client is the UI-side wrapper around the bridge. Every call is one
// request/response against the host's HTTP transport.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"excalidraw-desktop/bridge"
	"excalidraw-desktop/core"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// ErrBridgeUnavailable means the host could not be reached. It is distinct
// from a failed command, which is reported as a Result.
var ErrBridgeUnavailable = errors.New("bridge unavailable")

const (
	EnvBridgeURL   = "EXCALIDRAW_BRIDGE_URL"
	EnvBridgeToken = "EXCALIDRAW_BRIDGE_TOKEN"
)

// Handle is what the host exposes to the UI process at startup.
type Handle struct {
	BaseURL string
	Token   string
}

func HandleFromEnv() Handle {
	return Handle{
		BaseURL: os.Getenv(EnvBridgeURL),
		Token:   os.Getenv(EnvBridgeToken),
	}
}

type Client struct {
	handle Handle
	resty  *resty.Client
}

func New(h Handle) *Client {
	r := resty.New().
		SetBaseURL(h.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "excalidraw-desktop-client/1.0")
	if h.Token != "" {
		r.SetAuthToken(h.Token)
	}
	return &Client{handle: h, resty: r}
}

func (c *Client) Save(ctx context.Context, filename string, data core.Drawing) (bridge.Result, error) {
	return c.call(ctx, bridge.CommandSave, bridge.SaveRequest{Filename: filename, Data: data})
}

// Load reads filePath, or prompts the user when filePath is empty.
func (c *Client) Load(ctx context.Context, filePath string) (bridge.Result, error) {
	return c.call(ctx, bridge.CommandLoad, bridge.LoadRequest{FilePath: filePath})
}

func (c *Client) SaveThumbnail(ctx context.Context, filePath, imageData string) (bridge.Result, error) {
	return c.call(ctx, bridge.CommandSaveThumbnail, bridge.ThumbnailRequest{FilePath: filePath, ImageData: imageData})
}

// Browse lists directory, or the host's default directory when it is empty.
func (c *Client) Browse(ctx context.Context, directory string) (bridge.Result, error) {
	return c.call(ctx, bridge.CommandBrowse, bridge.BrowseRequest{Directory: directory})
}

// SaveWithThumbnail saves the drawing and then its thumbnail next to the
// saved file. A failed thumbnail is logged and does not fail the save.
func (c *Client) SaveWithThumbnail(ctx context.Context, filename string, data core.Drawing, imageData string) (bridge.Result, error) {
	saved, err := c.Save(ctx, filename, data)
	if err != nil || !saved.Success() || imageData == "" {
		return saved, err
	}

	target, _ := bridge.PayloadAs[bridge.SaveOK](saved)
	thumb, err := c.SaveThumbnail(ctx, target.FilePath, imageData)
	if err != nil {
		logrus.WithError(err).WithField("file_path", target.FilePath).Warn("Failed to send thumbnail")
	} else if err := thumb.AsError(); err != nil {
		logrus.WithError(err).WithField("file_path", target.FilePath).Warn("Failed to save thumbnail")
	}
	return saved, nil
}

func (c *Client) call(ctx context.Context, cmd bridge.Command, req any) (bridge.Result, error) {
	if c == nil || c.handle.BaseURL == "" {
		return bridge.Result{}, ErrBridgeUnavailable
	}

	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(req).
		Post("/api/bridge/" + cmd.String())
	if err != nil {
		return bridge.Result{}, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}

	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() >= http.StatusInternalServerError {
		return bridge.Result{}, fmt.Errorf("%w: %s answered %s", ErrBridgeUnavailable, cmd.Channel(), resp.Status())
	}

	result, err := bridge.DecodeResult(cmd, resp.Body())
	if err != nil {
		return bridge.Result{}, fmt.Errorf("%w: %s answered %s", ErrBridgeUnavailable, cmd.Channel(), resp.Status())
	}
	return result, nil
}
