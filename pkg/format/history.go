package format

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/berrythewa/deskbridge/internal/types"
)

// FormatInvocation renders one journal record on a single line
func FormatInvocation(rec types.InvocationRecord, opts Options) string {
	status := ColorizeIf(fmt.Sprintf("%-5s", rec.Status), StatusColors[rec.Status], opts.UseColors)
	line := fmt.Sprintf("%s  %s  %-14s %8s",
		DimIf(rec.At.Local().Format(time.DateTime), opts.UseColors),
		status,
		rec.Command,
		FormatDuration(rec.Duration))

	if rec.Status == types.InvocationFailed {
		detail := rec.Code
		if rec.Message != "" {
			detail += ": " + rec.Message
		}
		line += "  " + ColorizeIf(TruncateText(detail, opts.MaxWidth), Red, opts.UseColors)
	} else if !opts.Compact && len(rec.Args) > 0 {
		line += "  " + DimIf(TruncateText(string(rec.Args), opts.MaxWidth), opts.UseColors)
	}
	return line
}

// FormatHistory renders journal records, one per line
func FormatHistory(records []types.InvocationRecord, opts Options) string {
	if len(records) == 0 {
		return DimIf("No invocations recorded", opts.UseColors)
	}
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		lines = append(lines, FormatInvocation(rec, opts))
	}
	return strings.Join(lines, "\n")
}

// FormatHistoryStats summarises journal records
func FormatHistoryStats(records []types.InvocationRecord, opts Options) string {
	var parts []string
	parts = append(parts, ColorizeIf("Invocation statistics", BrightBlue, opts.UseColors), "")

	failed := 0
	var argBytes int64
	var total time.Duration
	byCommand := map[string]int{}
	var oldest, newest time.Time
	for _, rec := range records {
		if rec.Status == types.InvocationFailed {
			failed++
		}
		argBytes += int64(len(rec.Args))
		total += rec.Duration
		byCommand[rec.Command]++
		if oldest.IsZero() || rec.At.Before(oldest) {
			oldest = rec.At
		}
		if rec.At.After(newest) {
			newest = rec.At
		}
	}

	parts = append(parts,
		formatStatLine("Total invocations", fmt.Sprintf("%d", len(records)), opts),
		formatStatLine("Failed", fmt.Sprintf("%d", failed), opts),
		formatStatLine("Argument bytes", FormatSize(argBytes), opts))
	if len(records) > 0 {
		parts = append(parts,
			formatStatLine("Mean duration", FormatDuration(total/time.Duration(len(records))), opts),
			formatStatLine("Oldest", FormatRelativeTime(oldest), opts),
			formatStatLine("Newest", FormatRelativeTime(newest), opts))
	}

	if len(byCommand) > 0 {
		names := make([]string, 0, len(byCommand))
		for name := range byCommand {
			names = append(names, name)
		}
		sort.Strings(names)

		parts = append(parts, "", ColorizeIf("By command", BrightBlue, opts.UseColors))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("  %s: %d", name, byCommand[name]))
		}
	}

	return strings.Join(parts, "\n")
}

func formatStatLine(label, value string, opts Options) string {
	if opts.UseColors {
		return fmt.Sprintf("  %s%s:%s %s", BrightCyan, label, Reset, value)
	}
	return fmt.Sprintf("  %s: %s", label, value)
}
