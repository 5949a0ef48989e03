package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/berrythewa/deskbridge/internal/ipc"
	"github.com/berrythewa/deskbridge/internal/types"
)

// DefaultTimeout bounds an invocation when neither the caller nor the
// options set a deadline.
const DefaultTimeout = 10 * time.Second

// Transport carries one request to the host and returns its response.
// *ipc.Client satisfies it.
type Transport interface {
	Send(ctx context.Context, req *ipc.Request) (*ipc.Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *ipc.Request) (*ipc.Response, error)

func (f TransportFunc) Send(ctx context.Context, req *ipc.Request) (*ipc.Response, error) {
	return f(ctx, req)
}

// Record is one opaque element of a sequence-typed response.
type Record = json.RawMessage

// Options configures an Invoker.
type Options struct {
	Timeout time.Duration
	Logger  *zap.Logger
	NewID   func() string
}

// Invoker issues catalog commands over a Transport.
type Invoker struct {
	transport Transport
	timeout   time.Duration
	logger    *zap.Logger
	newID     func() string
}

// NewInvoker creates an Invoker that sends through transport.
func NewInvoker(transport Transport, opts Options) *Invoker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Invoker{
		transport: transport,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		newID:     opts.NewID,
	}
}

// Invoke sends the named command and returns its payload once it has been
// checked against the catalog shape. The payload is otherwise untouched.
func (i *Invoker) Invoke(ctx context.Context, name Name, args map[string]interface{}) (json.RawMessage, error) {
	spec, ok := Lookup(name)
	if !ok {
		return nil, invocationError(name, ErrUnknownCommand, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	req := &ipc.Request{
		ID:      i.newID(),
		Command: string(name),
		Args:    args,
	}
	if deadline, ok := ctx.Deadline(); ok {
		req.SetDeadline(deadline)
	}

	start := time.Now()
	resp, err := i.transport.Send(ctx, req)
	if err != nil {
		return nil, classifyTransportError(ctx, name, err)
	}
	if resp == nil {
		return nil, invocationError(name, ErrMalformedResponse, errors.New("empty response"))
	}
	if !resp.OK() {
		return nil, hostError(name, resp)
	}
	if err := checkShape(spec.Shape, resp.Data); err != nil {
		return nil, invocationError(name, ErrMalformedResponse, err)
	}

	i.logger.Debug("Command invoked",
		zap.String("command", string(name)),
		zap.String("id", req.ID),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Data, nil
}

// Greet asks the host to greet name.
func (i *Invoker) Greet(ctx context.Context, name string) (string, error) {
	data, err := i.Invoke(ctx, Greet, map[string]interface{}{"name": name})
	if err != nil {
		return "", err
	}
	return DecodeString(data)
}

// GraphQL runs query on the host and returns the records it produced.
func (i *Invoker) GraphQL(ctx context.Context, query string, variables map[string]interface{}) ([]Record, error) {
	args := map[string]interface{}{"query": query}
	if len(variables) > 0 {
		args["variables"] = variables
	}
	data, err := i.Invoke(ctx, GraphQL, args)
	if err != nil {
		return nil, err
	}
	return DecodeSequence(data)
}

// History lists journalled invocations, newest first. A zero limit asks
// for everything; an empty command matches all commands.
func (i *Invoker) History(ctx context.Context, limit int, command string) ([]types.InvocationRecord, error) {
	args := map[string]interface{}{}
	if limit > 0 {
		args["limit"] = limit
	}
	if command != "" {
		args["command"] = command
	}
	data, err := i.Invoke(ctx, History, args)
	if err != nil {
		return nil, err
	}
	var records []types.InvocationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, invocationError(History, ErrMalformedResponse, err)
	}
	return records, nil
}

// FlushHistory keeps only the newest keep journal records.
func (i *Invoker) FlushHistory(ctx context.Context, keep int) (types.FlushResult, error) {
	var result types.FlushResult
	data, err := i.Invoke(ctx, FlushHistory, map[string]interface{}{"keep": keep})
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, invocationError(FlushHistory, ErrMalformedResponse, err)
	}
	return result, nil
}

// Ping checks that the host answers.
func (i *Invoker) Ping(ctx context.Context) error {
	_, err := i.Invoke(ctx, Ping, nil)
	return err
}

// DecodeString decodes a string-shaped payload.
func DecodeString(data json.RawMessage) (string, error) {
	if err := checkShape(ShapeString, data); err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return s, nil
}

// DecodeSequence splits a sequence-shaped payload into its records.
// The result is never nil for a valid payload.
func DecodeSequence(data json.RawMessage) ([]Record, error) {
	if err := checkShape(ShapeSequence, data); err != nil {
		return nil, err
	}
	records := []Record{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return records, nil
}

// checkShape looks at the leading token so that null never passes for a
// string or a sequence.
func checkShape(shape Shape, data json.RawMessage) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("%w: missing payload", ErrMalformedResponse)
	}
	if !json.Valid(trimmed) {
		return fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}

	var want byte
	switch shape {
	case ShapeString:
		want = '"'
	case ShapeSequence:
		want = '['
	case ShapeObject:
		want = '{'
	default:
		return fmt.Errorf("%w: unsupported shape %v", ErrMalformedResponse, shape)
	}
	if trimmed[0] != want {
		return fmt.Errorf("%w: expected %v, got %s", ErrMalformedResponse, shape, describe(trimmed))
	}
	return nil
}

func describe(data []byte) string {
	switch data[0] {
	case 'n':
		return "null"
	case 't', 'f':
		return "boolean"
	case '"':
		return "string"
	case '[':
		return "sequence"
	case '{':
		return "object"
	default:
		return "number"
	}
}

func classifyTransportError(ctx context.Context, name Name, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return invocationError(name, ErrTimeout, err)
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		return invocationError(name, ErrCanceled, err)
	default:
		return invocationError(name, ErrTransport, err)
	}
}

func hostError(name Name, resp *ipc.Response) error {
	kind := ErrHost
	switch resp.Code {
	case ipc.CodeUnknownCommand:
		kind = ErrUnknownCommand
	case ipc.CodeTimeout:
		kind = ErrTimeout
	case ipc.CodeCanceled:
		kind = ErrCanceled
	}
	message := resp.Message
	if message == "" {
		message = "no message"
	}
	return &InvocationError{
		Command: name,
		Kind:    kind,
		Code:    resp.Code,
		Err:     errors.New(message),
	}
}
