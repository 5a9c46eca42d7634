package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/docgate/docgate/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders submission attempts.
type Formatter interface {
	// FormatAttempt renders a single finished attempt. result is nil unless
	// the registry accepted the document.
	FormatAttempt(attempt core.Attempt, result *core.SubmissionResult) (string, error)
	FormatAttempts(attempts []core.Attempt) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

var attemptHeader = []string{"ID", "Doc ID", "Doc Type", "Products", "Outcome", "Status", "Duration", "Started"}

func attemptCells(attempt core.Attempt) []string {
	status := "-"
	if attempt.StatusCode != 0 {
		status = fmt.Sprintf("%d", attempt.StatusCode)
	}
	return []string{
		attempt.ID,
		orDash(attempt.DocID),
		orDash(attempt.DocType),
		fmt.Sprintf("%d", attempt.ProductCount),
		string(attempt.Outcome),
		status,
		attempt.Duration().Round(time.Millisecond).String(),
		attempt.StartedAt.UTC().Format(time.RFC3339),
	}
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
