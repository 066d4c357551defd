package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedDestination = errors.New("malformed destination")
	ErrUnknownDestination   = errors.New("unknown destination")
	ErrMalformedPayload     = errors.New("malformed payload")
)

type ctxKey string

const destinationKey ctxKey = "destination"

// Message is a single inbound frame.
type Message struct {
	Destination string          `json:"destination"`
	Payload     json.RawMessage `json:"payload"`
}

// Route is the parsed form of "room/{roomId}/{command}".
type Route struct {
	RoomID  int64
	Command string
}

func ParseDestination(destination string) (Route, error) {
	parts := strings.Split(strings.Trim(destination, "/"), "/")
	if len(parts) != 3 || parts[0] != "room" || parts[2] == "" {
		return Route{}, fmt.Errorf("%w: %q", ErrMalformedDestination, destination)
	}

	roomID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || roomID <= 0 {
		return Route{}, fmt.Errorf("%w: bad room id %q", ErrMalformedDestination, parts[1])
	}

	return Route{RoomID: roomID, Command: parts[2]}, nil
}

type HandlerFunc func(ctx context.Context, route Route, payload json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

type WSRouter struct {
	routes      map[string]HandlerFunc
	middlewares []Middleware
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Use(mws ...Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

// Handle registers a handler whose payload is decoded once into T.
func Handle[T any](r *WSRouter, command string, handler func(ctx context.Context, roomID int64, input T) error) {
	r.routes[command] = func(ctx context.Context, route Route, payload json.RawMessage) error {
		var input T
		if len(payload) > 0 && string(payload) != "null" {
			if err := json.Unmarshal(payload, &input); err != nil {
				return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
			}
		}

		return handler(ctx, route.RoomID, input)
	}
}

func (r *WSRouter) Dispatch(ctx context.Context, msg Message) error {
	route, err := ParseDestination(msg.Destination)
	if err != nil {
		return err
	}

	handler, ok := r.routes[route.Command]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDestination, route.Command)
	}

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}

	ctx = context.WithValue(ctx, destinationKey, msg.Destination)
	return handler(ctx, route, msg.Payload)
}

type JSONReader interface {
	ReadJSON(v any) error
}

// ServeConn reads frames until the connection fails. Handler errors are
// passed to onError and do not stop the loop.
func (r *WSRouter) ServeConn(ctx context.Context, conn JSONReader, onError func(ctx context.Context, msg Message, err error)) error {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				onError(ctx, msg, fmt.Errorf("%w: %v", ErrMalformedPayload, err))
				continue
			}
			return err
		}

		if err := r.Dispatch(ctx, msg); err != nil {
			onError(ctx, msg, err)
		}
	}
}

func GetDestinationFromCtx(ctx context.Context) string {
	destination, _ := ctx.Value(destinationKey).(string)
	return destination
}
