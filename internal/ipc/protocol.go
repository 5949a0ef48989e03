package ipc

import (
	"encoding/json"
	"time"
)

// Response status values
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Error codes carried in Response.Code
const (
	CodeInvalidRequest   = "invalid_request"
	CodeUnknownCommand   = "unknown_command"
	CodeInvalidArguments = "invalid_arguments"
	CodeHandlerError     = "handler_error"
	CodeGraphQLError     = "graphql_error"
	CodeTimeout          = "timeout"
	CodeCanceled         = "canceled"
)

// Request represents a command sent from a client to the host.
type Request struct {
	ID         string                 `json:"id"`                    // Correlates the response, set by the client
	Command    string                 `json:"command"`               // e.g. "greet", "graphql"
	Args       map[string]interface{} `json:"args,omitempty"`        // Command-specific arguments
	DeadlineMs int64                  `json:"deadline_ms,omitempty"` // Absolute deadline, unix milliseconds
}

// Deadline returns the request deadline, if one was sent.
func (r *Request) Deadline() (time.Time, bool) {
	if r.DeadlineMs <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(r.DeadlineMs), true
}

// SetDeadline stamps the absolute deadline onto the request.
func (r *Request) SetDeadline(t time.Time) {
	if t.IsZero() {
		r.DeadlineMs = 0
		return
	}
	r.DeadlineMs = t.UnixMilli()
}

// Response represents a reply from the host to the client.
type Response struct {
	ID      string          `json:"id,omitempty"`
	Status  string          `json:"status"`            // "ok" or "error"
	Code    string          `json:"code,omitempty"`    // Machine-readable error code
	Message string          `json:"message,omitempty"` // Human-readable error
	Data    json.RawMessage `json:"data,omitempty"`    // Command-specific payload
}

// OK reports whether the host handled the request successfully.
func (r *Response) OK() bool {
	return r.Status == StatusOK
}

// NewOKResponse marshals data into a successful response.
func NewOKResponse(id string, data interface{}) (*Response, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Response{ID: id, Status: StatusOK, Data: raw}, nil
}

// NewErrorResponse builds a failed response.
func NewErrorResponse(id, code, message string) *Response {
	return &Response{ID: id, Status: StatusError, Code: code, Message: message}
}
