package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/berrythewa/deskbridge/internal/command"
	"github.com/berrythewa/deskbridge/internal/display"
)

// FormatPhase renders a phase with its icon and color
func FormatPhase(phase display.Phase, opts Options) string {
	label := phase.String()
	if opts.UseIcons {
		if icon, ok := PhaseIcons[phase]; ok {
			label = icon + " " + label
		}
	}
	return ColorizeIf(label, PhaseColors[phase], opts.UseColors)
}

// FormatState renders a Display State: a header line with the phase and,
// on failure, the reason, followed by the value as render prints it.
func FormatState[T any](name string, s display.State[T], render func(T, Options) string, opts Options) string {
	header := BoldIf(name, opts.UseColors) + " " + FormatPhase(s.Phase, opts)
	if s.Phase == display.Failed {
		detail := s.Reason
		if s.Err != nil {
			detail = fmt.Sprintf("%s: %v", s.Reason, s.Err)
		}
		header += " " + ColorizeIf("("+TruncateText(detail, opts.MaxWidth)+")", Red, opts.UseColors)
	}
	if !s.Done() {
		return header
	}

	body := render(s.Value, opts)
	if opts.Compact {
		return header + " " + body
	}
	return header + "\n" + IndentText(body, "  ")
}

// RenderString prints a string-typed value. The empty default prints as "".
func RenderString(value string, opts Options) string {
	if value == "" {
		return DimIf(`""`, opts.UseColors)
	}
	return TruncateLines(value, opts.MaxLines)
}

// RenderRecords prints a sequence-typed value, one record per line in
// compact mode and indented JSON otherwise. The empty default prints as [].
func RenderRecords(records []command.Record, opts Options) string {
	if len(records) == 0 {
		return DimIf("[]", opts.UseColors)
	}

	parts := make([]string, 0, len(records))
	for _, record := range records {
		var buf bytes.Buffer
		var err error
		if opts.Compact {
			err = json.Compact(&buf, record)
		} else {
			err = json.Indent(&buf, record, "", "  ")
		}
		text := buf.String()
		if err != nil {
			text = string(record)
		}
		if opts.Compact {
			text = TruncateText(text, opts.MaxWidth)
		}
		parts = append(parts, text)
	}

	separator := "\n"
	if opts.Compact {
		separator = ", "
	}
	return TruncateLines(strings.Join(parts, separator), opts.MaxLines)
}
