package output

import (
	"fmt"
	"strings"

	"github.com/docgate/docgate/internal/core"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

// FormatAttempt renders one attempt as a two-column markdown table.
func (f *MarkdownFormatter) FormatAttempt(attempt core.Attempt, result *core.SubmissionResult) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Submission %s\n\n", escapeMarkdownCell(string(attempt.Outcome))))
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")

	cells := attemptCells(attempt)
	for i, name := range attemptHeader {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", name, escapeMarkdownCell(cells[i])))
	}
	if result != nil {
		sb.WriteString(fmt.Sprintf("| Endpoint | %s |\n", escapeMarkdownCell(result.Endpoint)))
	}
	if attempt.Message != "" && attempt.Outcome != core.OutcomeSubmitted {
		sb.WriteString(fmt.Sprintf("| Message | %s |\n", escapeMarkdownCell(attempt.Message)))
	}
	return sb.String(), nil
}

// FormatAttempts renders journal entries as a markdown table.
func (f *MarkdownFormatter) FormatAttempts(attempts []core.Attempt) (string, error) {
	if len(attempts) == 0 {
		return "_No recorded attempts._\n", nil
	}
	return newAttemptTable(attempts).RenderMarkdown(), nil
}

func escapeMarkdownCell(value string) string {
	replacer := strings.NewReplacer("|", "\\|", "\n", " ", "\r", " ")
	return replacer.Replace(value)
}
