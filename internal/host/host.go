// Package host answers catalog commands received over the IPC socket.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/berrythewa/deskbridge/internal/command"
	"github.com/berrythewa/deskbridge/internal/gql"
	"github.com/berrythewa/deskbridge/internal/ipc"
	"github.com/berrythewa/deskbridge/internal/storage"
	"github.com/berrythewa/deskbridge/internal/types"
)

// ErrJournalDisabled is returned by the history commands when the host runs without a journal
var ErrJournalDisabled = errors.New("invocation journal is disabled")

// argError marks a missing or ill-typed argument
type argError struct {
	name   string
	reason string
}

func (e *argError) Error() string {
	return fmt.Sprintf("argument %q %s", e.name, e.reason)
}

// Executor runs GraphQL documents; *gql.Schema satisfies it
type Executor interface {
	Records(ctx context.Context, req gql.Request) ([]interface{}, error)
}

type handlerFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Options holds the collaborators of a Host
type Options struct {
	Schema  Executor
	Journal storage.JournalInterface // nil disables journalling
	Logger  *zap.Logger
	Now     func() time.Time
}

// Host dispatches requests to command handlers
type Host struct {
	schema   Executor
	journal  storage.JournalInterface
	logger   *zap.Logger
	now      func() time.Time
	handlers map[command.Name]handlerFunc
}

// New creates a Host
func New(opts Options) *Host {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &Host{
		schema:  opts.Schema,
		journal: opts.Journal,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	h.handlers = map[command.Name]handlerFunc{
		command.Greet:        h.greet,
		command.GraphQL:      h.graphql,
		command.History:      h.history,
		command.FlushHistory: h.flushHistory,
		command.Ping:         h.ping,
	}
	return h
}

// Handle is an ipc.Handler
func (h *Host) Handle(ctx context.Context, req *ipc.Request) *ipc.Response {
	start := h.now()
	resp := h.dispatch(ctx, req)
	resp.ID = req.ID

	elapsed := h.now().Sub(start)
	if resp.OK() {
		h.logger.Debug("Handled command",
			zap.String("command", req.Command),
			zap.String("id", req.ID),
			zap.Duration("elapsed", elapsed))
	} else {
		h.logger.Warn("Command failed",
			zap.String("command", req.Command),
			zap.String("id", req.ID),
			zap.String("code", resp.Code),
			zap.String("message", resp.Message))
	}

	h.record(req, resp, start, elapsed)
	return resp
}

func (h *Host) dispatch(ctx context.Context, req *ipc.Request) *ipc.Response {
	handler, ok := h.handlers[command.Name(req.Command)]
	if !ok {
		return ipc.NewErrorResponse(req.ID, ipc.CodeUnknownCommand,
			fmt.Sprintf("unknown command %q", req.Command))
	}
	if resp := contextResponse(ctx, req.ID); resp != nil {
		return resp
	}

	args := req.Args
	if args == nil {
		args = map[string]interface{}{}
	}

	data, err := handler(ctx, args)
	if resp := contextResponse(ctx, req.ID); resp != nil {
		return resp
	}
	if err != nil {
		var ae *argError
		switch {
		case errors.As(err, &ae):
			return ipc.NewErrorResponse(req.ID, ipc.CodeInvalidArguments, err.Error())
		case errors.Is(err, gql.ErrQuery), errors.Is(err, gql.ErrRootFields):
			return ipc.NewErrorResponse(req.ID, ipc.CodeGraphQLError, err.Error())
		default:
			return ipc.NewErrorResponse(req.ID, ipc.CodeHandlerError, err.Error())
		}
	}

	resp, err := ipc.NewOKResponse(req.ID, data)
	if err != nil {
		return ipc.NewErrorResponse(req.ID, ipc.CodeHandlerError,
			fmt.Sprintf("failed to encode result: %v", err))
	}
	return resp
}

func contextResponse(ctx context.Context, id string) *ipc.Response {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ipc.NewErrorResponse(id, ipc.CodeTimeout, "deadline exceeded")
	case errors.Is(ctx.Err(), context.Canceled):
		return ipc.NewErrorResponse(id, ipc.CodeCanceled, "request canceled")
	}
	return nil
}

// record journals the request. Failures are logged and never reach the caller.
func (h *Host) record(req *ipc.Request, resp *ipc.Response, at time.Time, elapsed time.Duration) {
	if h.journal == nil {
		return
	}

	rec := types.InvocationRecord{
		ID:       req.ID,
		Command:  req.Command,
		Status:   types.InvocationOK,
		At:       at,
		Duration: elapsed,
	}
	if !resp.OK() {
		rec.Status = types.InvocationFailed
		rec.Code = resp.Code
		rec.Message = resp.Message
	}
	if len(req.Args) > 0 {
		args, err := json.Marshal(req.Args)
		if err != nil {
			h.logger.Warn("Failed to encode arguments for journal", zap.String("id", req.ID), zap.Error(err))
		} else {
			rec.Args = args
		}
	}

	if err := h.journal.Append(rec); err != nil {
		h.logger.Error("Failed to journal invocation",
			zap.String("command", req.Command),
			zap.String("id", req.ID),
			zap.Error(err))
	}
}

func (h *Host) greet(_ context.Context, args map[string]interface{}) (interface{}, error) {
	name, err := stringArg(args, "name", true)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Hello, %s!", name), nil
}

func (h *Host) graphql(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query, err := stringArg(args, "query", true)
	if err != nil {
		return nil, err
	}
	variables, err := objectArg(args, "variables")
	if err != nil {
		return nil, err
	}
	operation, err := stringArg(args, "operationName", false)
	if err != nil {
		return nil, err
	}
	if h.schema == nil {
		return nil, errors.New("no GraphQL schema configured")
	}

	return h.schema.Records(ctx, gql.Request{
		Query:         query,
		Variables:     variables,
		OperationName: operation,
	})
}

func (h *Host) history(_ context.Context, args map[string]interface{}) (interface{}, error) {
	limit, err := intArg(args, "limit", 0)
	if err != nil {
		return nil, err
	}
	name, err := stringArg(args, "command", false)
	if err != nil {
		return nil, err
	}
	if h.journal == nil {
		return nil, ErrJournalDisabled
	}

	return h.journal.History(storage.HistoryOptions{
		Limit:   limit,
		Command: name,
		Reverse: true,
	})
}

func (h *Host) flushHistory(_ context.Context, args map[string]interface{}) (interface{}, error) {
	keep, err := intArg(args, "keep", -1)
	if err != nil {
		return nil, err
	}
	if h.journal == nil {
		return nil, ErrJournalDisabled
	}
	return h.journal.Flush(keep)
}

func (h *Host) ping(context.Context, map[string]interface{}) (interface{}, error) {
	return "pong", nil
}

func stringArg(args map[string]interface{}, name string, required bool) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		if required {
			return "", &argError{name: name, reason: "is required"}
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &argError{name: name, reason: "must be a string"}
	}
	return s, nil
}

// intArg accepts JSON numbers with no fractional part
func intArg(args map[string]interface{}, name string, def int) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || n < 0 || n > math.MaxInt32 {
			return 0, &argError{name: name, reason: "must be a non-negative integer"}
		}
		return int(n), nil
	case int:
		if n < 0 {
			return 0, &argError{name: name, reason: "must be a non-negative integer"}
		}
		return n, nil
	default:
		return 0, &argError{name: name, reason: "must be a number"}
	}
}

func objectArg(args map[string]interface{}, name string) (map[string]interface{}, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, &argError{name: name, reason: "must be an object"}
	}
	return m, nil
}
