package command

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure kind. Match them with errors.Is.
var (
	ErrUnknownCommand    = errors.New("unknown command")
	ErrTransport         = errors.New("transport failure")
	ErrHost              = errors.New("host rejected command")
	ErrMalformedResponse = errors.New("malformed response")
	ErrTimeout           = errors.New("invocation timed out")
	ErrCanceled          = errors.New("invocation canceled")
)

// InvocationError reports why a command did not produce a payload.
type InvocationError struct {
	Command Name
	Kind    error  // One of the sentinel errors above
	Code    string // Host error code, set when Kind is ErrHost
	Err     error
}

func (e *InvocationError) Error() string {
	switch {
	case e.Code != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v (%s): %v", e.Command, e.Kind, e.Code, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Command, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Command, e.Kind)
	}
}

func (e *InvocationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func invocationError(name Name, kind error, err error) *InvocationError {
	return &InvocationError{Command: name, Kind: kind, Err: err}
}

// Reason returns a short machine-friendly label for err, suitable for logs
// and for rendering a failed Display State.
func Reason(err error) string {
	var ie *InvocationError
	if errors.As(err, &ie) && ie.Code != "" {
		return ie.Code
	}
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownCommand):
		return "unknown_command"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrHost):
		return "host"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "unknown"
	}
}
