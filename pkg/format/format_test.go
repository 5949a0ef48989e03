package format

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/berrythewa/deskbridge/internal/command"
	"github.com/berrythewa/deskbridge/internal/display"
	"github.com/berrythewa/deskbridge/internal/types"
)

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.0 KB", FormatSize(1024))
	assert.Equal(t, "1.5 MB", FormatSize(1536*1024))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "just now", relativeTo(now.Add(-10*time.Second), now))
	assert.Equal(t, "1 minute ago", relativeTo(now.Add(-time.Minute), now))
	assert.Equal(t, "5 hours ago", relativeTo(now.Add(-5*time.Hour), now))
	assert.Equal(t, "2 days ago", relativeTo(now.Add(-48*time.Hour), now))
	assert.Equal(t, "Feb 1, 2026", relativeTo(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), now))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", TruncateText("hello", 10))
	assert.Equal(t, "hel...", TruncateText("hello world", 6))
	assert.Equal(t, "a\nb\n... (2 more lines)", TruncateLines("a\nb\nc\nd", 2))
}

func TestFormatStateSucceeded(t *testing.T) {
	s := display.State[string]{Phase: display.Succeeded, Value: "Hello, World!"}

	out := FormatState("greeting", s, RenderString, PlainOptions())
	assert.Equal(t, "greeting succeeded\n  Hello, World!", out)
}

func TestFormatStateFailedShowsEmptyDefault(t *testing.T) {
	s := display.State[[]command.Record]{
		Phase:  display.Failed,
		Value:  []command.Record{},
		Reason: "transport",
		Err:    errors.New("connection refused"),
	}

	out := FormatState("records", s, RenderRecords, PlainOptions())
	assert.Equal(t, "records failed (transport: connection refused)\n  []", out)
}

func TestFormatStatePending(t *testing.T) {
	s := display.State[string]{Phase: display.Pending}
	assert.Equal(t, "greeting pending", FormatState("greeting", s, RenderString, PlainOptions()))
}

func TestRenderRecords(t *testing.T) {
	records := []command.Record{
		json.RawMessage(`{"id":1,"title":"x"}`),
		json.RawMessage(`"notes"`),
	}

	opts := PlainOptions()
	opts.Compact = true
	assert.Equal(t, `{"id":1,"title":"x"}, "notes"`, RenderRecords(records, opts))

	indented := RenderRecords(records, PlainOptions())
	assert.Contains(t, indented, "\"id\": 1")
	assert.True(t, strings.HasSuffix(indented, `"notes"`))
}

func TestColorsOnlyWhenEnabled(t *testing.T) {
	opts := DefaultOptions()
	assert.Contains(t, FormatPhase(display.Failed, opts), Red)
	assert.NotContains(t, FormatPhase(display.Failed, PlainOptions()), "\033")
}

func TestFormatHistory(t *testing.T) {
	at := time.Now().Add(-2 * time.Minute)
	records := []types.InvocationRecord{
		{ID: "1", Command: "greet", Status: types.InvocationOK, At: at, Duration: 2 * time.Millisecond,
			Args: json.RawMessage(`{"name":"World"}`)},
		{ID: "2", Command: "graphql", Status: types.InvocationFailed, At: at, Code: "graphql_error",
			Message: "project not found"},
	}

	out := FormatHistory(records, PlainOptions())
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "greet")
	assert.Contains(t, lines[0], `{"name":"World"}`)
	assert.Contains(t, lines[1], "graphql_error: project not found")

	assert.Equal(t, "No invocations recorded", FormatHistory(nil, PlainOptions()))

	stats := FormatHistoryStats(records, PlainOptions())
	assert.Contains(t, stats, "Total invocations: 2")
	assert.Contains(t, stats, "Failed: 1")
	assert.Contains(t, stats, "graphql: 1")
}
