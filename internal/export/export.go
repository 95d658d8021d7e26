// Package export serializes correlated debug sessions. Output is
// deterministic for a fixed session snapshot: events are already ordered by
// timestamp (system name breaking ties) and every format renders them in
// that order.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tracehub/internal/correlate"
)

// Format selects the export rendering.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatClaude   Format = "claude"
)

// ErrUnknownFormat is returned for formats outside the supported set.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatClaude:
		return FormatClaude, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Export renders a session in the given format.
func Export(session *correlate.Session, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return exportJSON(session)
	case FormatMarkdown:
		return []byte(exportMarkdown(session)), nil
	case FormatClaude:
		return []byte(exportClaude(session)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Filename derives the deterministic output name for a trace and format.
func Filename(traceID string, format Format) string {
	short := sanitize(strings.TrimPrefix(traceID, "trace_"))
	if len(short) > 24 {
		short = short[:24]
	}
	switch format {
	case FormatClaude:
		return fmt.Sprintf("debug-session-%s.claude.md", short)
	case FormatMarkdown:
		return fmt.Sprintf("debug-session-%s.md", short)
	default:
		return fmt.Sprintf("debug-session-%s.json", short)
	}
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}

func exportJSON(session *correlate.Session) ([]byte, error) {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return append(data, '\n'), nil
}

func exportMarkdown(session *correlate.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Debug Session %s\n\n", session.TraceID)
	fmt.Fprintf(&b, "- **User:** %s\n", session.UserID)
	fmt.Fprintf(&b, "- **Started:** %s\n", session.CreatedAt.UTC().Format("2006-01-02 15:04:05.000 UTC"))
	fmt.Fprintf(&b, "- **Duration:** %dms\n", session.DurationMs)
	fmt.Fprintf(&b, "- **Systems:** %s\n", strings.Join(session.Systems, ", "))
	fmt.Fprintf(&b, "- **Events:** %d (%d errors)\n\n", session.LogCount, session.ErrorCount)

	b.WriteString("## Timeline\n\n")
	for _, event := range session.Events {
		fmt.Fprintf(&b, "- `%s` **[%s/%s]** %s\n",
			event.Timestamp.UTC().Format("15:04:05.000"),
			event.System, event.Level, event.Message)
		if len(event.Context) > 0 {
			if ctx, err := json.Marshal(event.Context); err == nil {
				fmt.Fprintf(&b, "  - context: `%s`\n", ctx)
			}
		}
	}
	return b.String()
}

func exportClaude(session *correlate.Session) string {
	var b strings.Builder

	b.WriteString("I'm debugging an issue and need help analyzing these correlated logs.\n\n")
	fmt.Fprintf(&b, "Trace: %s\nUser: %s\nSystems involved: %s\nTotal events: %d, errors: %d, span: %dms\n\n",
		session.TraceID, session.UserID, strings.Join(session.Systems, ", "),
		session.LogCount, session.ErrorCount, session.DurationMs)

	b.WriteString("Log transcript (chronological):\n\n```\n")
	for _, event := range session.Events {
		fmt.Fprintf(&b, "%s [%s] %s: %s\n",
			event.Timestamp.UTC().Format("15:04:05.000"),
			event.System, event.Level, event.Message)
	}
	b.WriteString("```\n\n")
	b.WriteString("Please identify the failure point, the sequence of events leading to it, and suggest likely root causes.\n")
	return b.String()
}
