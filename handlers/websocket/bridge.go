package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"excalidraw-desktop/bridge"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/engine.io/v2/utils"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

const invokeEvent = "invoke"

// MaxMessageBytes bounds one Socket.IO message.
const MaxMessageBytes = 50 << 20

type (
	Invoker interface {
		Invoke(ctx context.Context, name string, payload json.RawMessage) bridge.Result
	}

	ackInvoker func(envelope json.RawMessage)

	emitter interface {
		Emit(event string, args ...any) error
	}
)

// SetupSocketIO serves the bridge over Socket.IO. Each command listens on its
// channel ("file:save", ...) and answers through the client's ack callback,
// or with a "<channel>-result" event when the client sent none. The generic
// "invoke" event takes the command name as its first argument.
//
// The request may be sent as a JSON-encoded string, which reaches the host
// byte for byte. A request sent as an object has already been decoded by the
// Socket.IO parser, so its key order and large integers are not preserved.
func SetupSocketIO(invoker Invoker, origins []any) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(MaxMessageBytes)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      origins,
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		utils.Log().Printf("bridge client %v connected\n", socket.Id())

		for _, cmd := range bridge.Commands() {
			channel := cmd.Channel()
			//nolint:errcheck // Socket.IO event handlers do not return useful errors
			socket.On(channel, func(datas ...any) {
				ack, args := extractAck(datas)
				var payload any
				if len(args) > 0 {
					payload = args[0]
				}
				go serve(invoker, socket, channel, channel, payload, ack)
			})
		}

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On(invokeEvent, func(datas ...any) {
			ack, args := extractAck(datas)
			name, payload, err := parseInvokeArgs(args)
			if err != nil {
				respond(socket, ack, invokeEvent, bridge.Err(err.Error()))
				return
			}
			go serve(invoker, socket, invokeEvent, name, payload, ack)
		})

		socket.On("disconnect", func(datas ...any) {
			utils.Log().Printf("bridge client %v disconnected\n", socket.Id())
			socket.RemoveAllListeners("")
		})
	})

	return srv
}

func serve(invoker Invoker, socket emitter, event, name string, payload any, ack ackInvoker) {
	raw, err := requestBody(payload)
	if err != nil {
		respond(socket, ack, event, bridge.Err(fmt.Sprintf("invalid payload: %v", err)))
		return
	}
	respond(socket, ack, event, invoker.Invoke(context.Background(), name, raw))
}

// requestBody turns a Socket.IO argument into the request JSON. A string
// holding a JSON object is the encoded request itself; any other string is a
// bare path for load or browse.
func requestBody(payload any) (json.RawMessage, error) {
	if s, ok := payload.(string); ok {
		trimmed := strings.TrimSpace(s)
		if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
			return json.RawMessage(trimmed), nil
		}
	}
	return json.Marshal(payload)
}

func parseInvokeArgs(args []any) (name string, payload any, err error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("command is required")
	}
	name, ok := args[0].(string)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid command")
	}
	if len(args) > 1 {
		payload = args[1]
	}
	return name, payload, nil
}

func respond(socket emitter, ack ackInvoker, event string, result bridge.Result) {
	envelope, err := resultPayload(result)
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("Failed to encode bridge result")
		envelope, _ = json.Marshal(bridge.Err(err.Error()))
	}

	if ack != nil {
		ack(envelope)
		return
	}
	if err := socket.Emit(event+"-result", envelope); err != nil {
		logrus.WithError(err).WithField("event", event).Warn("Failed to emit bridge result")
	}
}

// resultPayload encodes a Result once. The Socket.IO encoder writes a
// json.RawMessage through unchanged, so drawings keep their bytes.
func resultPayload(result bridge.Result) (json.RawMessage, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func extractAck(datas []any) (ack ackInvoker, args []any) {
	if len(datas) == 0 {
		return nil, datas
	}

	ack = wrapAck(datas[len(datas)-1])
	if ack == nil {
		return nil, datas
	}
	return ack, datas[:len(datas)-1]
}

func wrapAck(candidate any) ackInvoker {
	switch fn := candidate.(type) {
	case nil:
		return nil
	case func([]any, error):
		return func(envelope json.RawMessage) { fn([]any{envelope}, nil) }
	case func(...any):
		return func(envelope json.RawMessage) { fn(envelope) }
	}

	value := reflect.ValueOf(candidate)
	if value.Kind() != reflect.Func {
		return nil
	}
	typ := value.Type()
	if typ.NumIn() == 0 {
		return func(json.RawMessage) { value.Call(nil) }
	}
	return func(envelope json.RawMessage) {
		args := make([]reflect.Value, typ.NumIn())
		for i := range args {
			args[i] = reflect.Zero(typ.In(i))
		}
		wrapped := []any{envelope}
		switch {
		case typ.IsVariadic() && reflect.TypeOf(wrapped).AssignableTo(typ.In(len(args)-1)):
			args[len(args)-1] = reflect.ValueOf(wrapped)
		case reflect.TypeOf(envelope).AssignableTo(typ.In(0)):
			args[0] = reflect.ValueOf(envelope)
		case reflect.TypeOf(wrapped).AssignableTo(typ.In(0)):
			args[0] = reflect.ValueOf(wrapped)
		}
		if typ.IsVariadic() {
			value.CallSlice(args)
			return
		}
		value.Call(args)
	}
}
