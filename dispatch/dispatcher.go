// Package dispatch is the command boundary between a front-end (GUI bridge,
// CLI, stdio peer) and the playlist backend.
//
// Every invocation yields a Response: either the command's data or a typed
// Failure describing why it failed. Errors are never dropped and a panicking
// handler is reported as an internal failure instead of taking the process
// down.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"yucil/auth"
	httpx "yucil/http"
	"yucil/internal/logging"
	"yucil/storage"
	"yucil/youtube"
)

// Sentinel errors for dispatching.
var (
	ErrUnknownCommand = errors.New("dispatch: unknown command")
	ErrInvalidArgs    = errors.New("dispatch: invalid arguments")
	ErrDuplicate      = errors.New("dispatch: command already registered")
)

// Failure kinds added by the dispatcher on top of youtube.ErrorKind values.
const (
	KindUnknownCommand  = "unknown_command"
	KindInvalidArgument = "invalid_argument"
	KindInvalidRequest  = "invalid_request"
	KindNotFound        = "not_found"
	KindInternal        = "internal"
)

// Request is one command invocation.
type Request struct {
	ID      string          `json:"id,omitempty"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// Response carries either Data or Error.
type Response struct {
	ID      string   `json:"id,omitempty"`
	Command string   `json:"command"`
	OK      bool     `json:"ok"`
	Data    any      `json:"data,omitempty"`
	Error   *Failure `json:"error,omitempty"`

	// Err is the underlying error for in-process callers.
	Err error `json:"-"`
}

// Failure describes a failed command for display.
type Failure struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Status    int    `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Transient bool   `json:"transient"`
}

// Handler executes a command with its raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Dispatcher routes requests to registered handlers. It is safe for
// concurrent use.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// New creates an empty Dispatcher.
func New(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   logging.WithComponent(logger, "dispatch"),
	}
}

// Register adds a handler under name.
func (d *Dispatcher) Register(name string, h Handler) error {
	if name == "" || h == nil {
		return fmt.Errorf("%w: name and handler are required", ErrInvalidArgs)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	d.handlers[name] = h
	return nil
}

// Commands returns the registered command names in sorted order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Invoke runs req and always returns a Response.
func (d *Dispatcher) Invoke(ctx context.Context, req Request) (resp Response) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	resp = Response{ID: req.ID, Command: req.Command}
	logger := d.logger.With(slog.String("request_id", req.ID), slog.String("command", req.Command))

	d.mu.RLock()
	h, ok := d.handlers[req.Command]
	d.mu.RUnlock()
	if !ok {
		resp.Err = fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)
		resp.Error = FailureFrom(resp.Err)
		logger.Warn("unknown command")
		return resp
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("command panicked", slog.Any("panic", r))
			resp.OK = false
			resp.Data = nil
			resp.Err = fmt.Errorf("command panicked: %v", r)
			resp.Error = &Failure{Kind: KindInternal, Message: resp.Err.Error()}
		}
	}()

	data, err := h(ctx, req.Args)
	if err != nil {
		resp.Err = err
		resp.Error = FailureFrom(err)
		logger.Warn("command failed",
			slog.String("kind", resp.Error.Kind),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err),
		)
		return resp
	}

	resp.OK = true
	resp.Data = data
	logger.Debug("command completed", slog.Duration("elapsed", time.Since(start)))
	return resp
}

// FailureFrom converts err into a Failure.
func FailureFrom(err error) *Failure {
	if err == nil {
		return nil
	}

	f := &Failure{Message: err.Error(), Transient: youtube.IsTransient(err)}

	var (
		fetchErr *youtube.FetchError
		remote   *youtube.RemoteAPIError
	)
	switch {
	case errors.Is(err, ErrUnknownCommand):
		f.Kind = KindUnknownCommand
	case errors.Is(err, ErrInvalidArgs):
		f.Kind = KindInvalidArgument
	case errors.Is(err, storage.ErrNotFound):
		f.Kind = KindNotFound
	case errors.As(err, &fetchErr):
		f.Kind = string(fetchErr.Kind)
	case errors.Is(err, auth.ErrConfigMissing),
		errors.Is(err, auth.ErrAuthorizationFailed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, httpx.ErrRequestFailed):
		f.Kind = string(youtube.KindOf(err))
	default:
		f.Kind = KindInternal
		f.Transient = false
	}

	if errors.As(err, &remote) {
		f.Status = remote.StatusCode
		f.Reason = remote.Reason
	}
	return f
}

// decodeArgs unmarshals args into v, treating empty args as "{}".
func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return nil
}
