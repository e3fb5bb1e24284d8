package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUnknownEvent   = errors.New("unknown_event")
	ErrNotJoined      = errors.New("not_joined")
	ErrAlreadyJoined  = errors.New("already_joined")
	errMalformedFrame = errors.New("malformed_frame")
)

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, c *Client, body json.RawMessage) error

// Router keeps a map[event]handler, a la gin.Engine.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
	validate *validator.Validate
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]rawHandler),
		validate: validator.New(),
	}
}

// Register binds an event to a strongly-typed handler. The body is decoded
// into Req and validated before h runs.
func Register[Req any](
	r *Router,
	event string,
	h func(ctx context.Context, c *Client, req Req) error,
) {
	if event == "" {
		panic("ws router: empty event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[event] = func(ctx context.Context, c *Client, body json.RawMessage) error {
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return fmt.Errorf("%w: %v", errMalformedFrame, err)
			}
		}
		if err := r.validate.Struct(req); err != nil {
			return err
		}
		return h(ctx, c, req)
	}
}

// dispatch is called by the connection's read loop.
func (r *Router) dispatch(ctx context.Context, c *Client, env Envelope) error {
	r.mu.RLock()
	h, ok := r.handlers[env.Event]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	return h(ctx, c, env.Body)
}
