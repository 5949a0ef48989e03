package format

import (
	"github.com/berrythewa/deskbridge/internal/display"
	"github.com/berrythewa/deskbridge/internal/types"
)

// Options controls formatting behavior
type Options struct {
	UseColors bool
	UseIcons  bool
	MaxWidth  int  // Max width of a rendered value (0 = no limit)
	MaxLines  int  // Max lines of a rendered value (0 = no limit)
	Compact   bool // One line per record
}

// DefaultOptions returns options for an interactive terminal
func DefaultOptions() Options {
	return Options{
		UseColors: true,
		UseIcons:  true,
		MaxWidth:  100,
		MaxLines:  20,
	}
}

// PlainOptions returns options for pipes and log files
func PlainOptions() Options {
	return Options{MaxWidth: 0, MaxLines: 0}
}

// PhaseIcons maps display phases to markers
var PhaseIcons = map[display.Phase]string{
	display.Idle:      "○",
	display.Pending:   "…",
	display.Succeeded: "✔",
	display.Failed:    "✘",
}

// PhaseColors maps display phases to colors
var PhaseColors = map[display.Phase]string{
	display.Idle:      Gray,
	display.Pending:   Yellow,
	display.Succeeded: Green,
	display.Failed:    Red,
}

// StatusColors maps journalled outcomes to colors
var StatusColors = map[types.InvocationStatus]string{
	types.InvocationOK:     Green,
	types.InvocationFailed: BrightRed,
}
