package types

import (
	"encoding/json"
	"time"
)

// InvocationStatus is the outcome of one handled command
type InvocationStatus string

const (
	InvocationOK     InvocationStatus = "ok"
	InvocationFailed InvocationStatus = "error"
)

// InvocationRecord is one journalled command handled by the host
type InvocationRecord struct {
	ID         string           `json:"id"`
	Command    string           `json:"command"`
	Status     InvocationStatus `json:"status"`
	Code       string           `json:"code,omitempty"`
	Message    string           `json:"message,omitempty"`
	At         time.Time        `json:"at"`
	Duration   time.Duration    `json:"duration"`
	ArgsDigest string           `json:"args_digest,omitempty"`
	Args       json.RawMessage  `json:"args,omitempty"`
	Compressed bool             `json:"compressed,omitempty"`
}

// FlushResult reports how many journal records a flush removed
type FlushResult struct {
	Removed int `json:"removed"`
	Kept    int `json:"kept"`
}
