package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type (
	// Host executes commands on behalf of the UI process. Implementations
	// report every failure through the returned Result.
	Host interface {
		Save(ctx context.Context, req SaveRequest) Result
		Load(ctx context.Context, req LoadRequest) Result
		SaveThumbnail(ctx context.Context, req ThumbnailRequest) Result
		Browse(ctx context.Context, req BrowseRequest) Result
	}

	// Observer is told about every dispatched command.
	Observer interface {
		Observe(cmd Command, result Result, elapsed time.Duration)
	}

	Option func(*Dispatcher)
)

// Dispatcher is the boundary of the bridge: it decodes payloads, routes them
// to the Host and turns every fault, panics included, into a Result.
type Dispatcher struct {
	host     Host
	observer Observer
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

func NewDispatcher(host Host, opts ...Option) *Dispatcher {
	d := &Dispatcher{host: host}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Invoke dispatches a command by its wire name.
func (d *Dispatcher) Invoke(ctx context.Context, name string, payload json.RawMessage) Result {
	cmd, err := ParseCommand(name)
	if err != nil {
		logrus.WithField("command", name).Warn("Rejected unknown bridge command")
		return Fail(err)
	}
	return d.Dispatch(ctx, cmd, payload)
}

// Dispatch runs cmd with the given JSON payload. Once dispatched a call is
// not cancelled by its caller going away.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command, payload json.RawMessage) (result Result) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	log := logrus.WithFields(logrus.Fields{
		"request_id": ulid.Make().String(),
		"command":    cmd.Channel(),
	})
	log.Debug("Bridge call received")

	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("Bridge handler panicked")
			result = Failure(cmd, fmt.Sprintf("internal error: %v", rec))
		}

		elapsed := time.Since(start)
		if d.observer != nil {
			d.observer.Observe(cmd, result, elapsed)
		}

		entry := log.WithFields(logrus.Fields{
			"outcome":  result.Kind().String(),
			"duration": elapsed,
		})
		if result.Kind() == KindErr {
			entry.WithField("error", result.Message()).Warn("Bridge call failed")
		} else {
			entry.Info("Bridge call completed")
		}
	}()

	if d.host == nil {
		return Failure(cmd, "bridge host is not configured")
	}

	switch cmd {
	case CommandSave:
		var req SaveRequest
		if err := decodePayload(payload, &req); err != nil {
			return Failure(cmd, fmt.Sprintf("invalid %s request: %v", cmd, err))
		}
		return d.host.Save(ctx, req)
	case CommandLoad:
		var req LoadRequest
		if err := decodePayload(payload, &req); err != nil {
			return Failure(cmd, fmt.Sprintf("invalid %s request: %v", cmd, err))
		}
		return d.host.Load(ctx, req)
	case CommandSaveThumbnail:
		var req ThumbnailRequest
		if err := decodePayload(payload, &req); err != nil {
			return Failure(cmd, fmt.Sprintf("invalid %s request: %v", cmd, err))
		}
		return d.host.SaveThumbnail(ctx, req)
	case CommandBrowse:
		var req BrowseRequest
		if err := decodePayload(payload, &req); err != nil {
			return Failure(cmd, fmt.Sprintf("invalid %s request: %v", cmd, err))
		}
		return d.host.Browse(ctx, req)
	default:
		return Fail(fmt.Errorf("%w: %s", ErrUnknownCommand, cmd))
	}
}

func decodePayload(payload json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.Unmarshal(trimmed, v)
}
