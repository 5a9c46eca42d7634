package output

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/docgate/docgate/internal/core"
)

// TableFormatter renders results for terminals.
type TableFormatter struct{}

// FormatAttempt renders one attempt inside a box.
func (f *TableFormatter) FormatAttempt(attempt core.Attempt, result *core.SubmissionResult) (string, error) {
	lines := []string{"Submission " + string(attempt.Outcome), ""}
	cells := attemptCells(attempt)
	for i, name := range attemptHeader {
		lines = append(lines, fmt.Sprintf("%-9s %s", name+":", cells[i]))
	}
	if result != nil {
		lines = append(lines, fmt.Sprintf("%-9s %s", "Endpoint:", result.Endpoint))
		if body := strings.TrimSpace(string(result.Body)); body != "" {
			lines = append(lines, fmt.Sprintf("%-9s %s", "Response:", truncate(body, 120)))
		}
	}
	if attempt.Message != "" && attempt.Outcome != core.OutcomeSubmitted {
		lines = append(lines, fmt.Sprintf("%-9s %s", "Message:", truncate(attempt.Message, 120)))
	}
	return ascii.DrawBox(strings.Join(lines, "\n"), 0), nil
}

// FormatAttempts renders journal entries as an ASCII table.
func (f *TableFormatter) FormatAttempts(attempts []core.Attempt) (string, error) {
	if len(attempts) == 0 {
		return ascii.DrawBox("Attempts\n\n(no recorded attempts)", 0), nil
	}

	t := newAttemptTable(attempts)
	t.SetStyle(table.StyleRounded)
	return t.Render(), nil
}

func newAttemptTable(attempts []core.Attempt) table.Writer {
	t := table.NewWriter()

	header := make(table.Row, 0, len(attemptHeader))
	for _, name := range attemptHeader {
		header = append(header, name)
	}
	t.AppendHeader(header)

	counts := map[core.Outcome]int{}
	for _, attempt := range attempts {
		counts[attempt.Outcome]++
		cells := attemptCells(attempt)
		row := make(table.Row, 0, len(cells))
		for _, cell := range cells {
			row = append(row, cell)
		}
		t.AppendRow(row)
	}

	t.AppendFooter(table.Row{"", "", "", "", summarize(len(attempts), counts), "", "", ""})
	return t
}

func summarize(total int, counts map[core.Outcome]int) string {
	return fmt.Sprintf("%d/%d submitted", counts[core.OutcomeSubmitted], total)
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
