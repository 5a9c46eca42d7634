package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/docgate/docgate/internal/core"
	"github.com/docgate/docgate/internal/core/store"
	"github.com/docgate/docgate/internal/output"
)

var (
	attemptsListOutcome string
	attemptsListLimit   int

	attemptsPurgeAll     bool
	attemptsPurgeOutcome string
	attemptsPurgeBefore  string
	attemptsPurgeYes     bool
	attemptsPurgeDryRun  bool
)

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "Inspect and prune the submission attempt journal",
}

var attemptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded submission attempts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		outcome, err := parseOutcome(attemptsListOutcome)
		if err != nil {
			return err
		}
		if attemptsListLimit < 0 {
			return errors.New("--limit must not be negative")
		}

		db, err := openStore(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		attempts, err := db.ListAttempts(cmd.Context(), store.AttemptQuery{
			Outcome: outcome,
			Limit:   attemptsListLimit,
		})
		if err != nil {
			return err
		}

		outPath, err := resolveOutputPath(cmd, "attempts.list", format)
		if err != nil {
			return err
		}
		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		rendered, err := output.NewFormatter(format).FormatAttempts(attempts)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

var attemptsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete recorded submission attempts",
	Example: `  docgate attempts purge --outcome rate_limited --yes
  docgate attempts purge --before 720h --dry-run
  docgate attempts purge --all --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		if format == output.FormatMarkdown {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		outcome, err := parseOutcome(attemptsPurgeOutcome)
		if err != nil {
			return err
		}
		before, err := parseBefore(attemptsPurgeBefore, time.Now())
		if err != nil {
			return err
		}

		query := store.AttemptQuery{
			All:     attemptsPurgeAll,
			Outcome: outcome,
			Before:  before,
		}
		if err := query.Validate(); err != nil {
			return err
		}
		if !attemptsPurgeYes && !attemptsPurgeDryRun {
			return errors.New("purge requires --yes (or use --dry-run)")
		}

		db, err := openStore(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		matched, err := db.CountAttempts(cmd.Context(), query)
		if err != nil {
			return err
		}

		outPath, err := resolveOutputPath(cmd, "attempts.purge", format)
		if err != nil {
			return err
		}
		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		if attemptsPurgeDryRun {
			return writePurgeResult(format, sink.writer, matched, 0, true)
		}

		deleted, err := db.PurgeAttempts(cmd.Context(), query)
		if err != nil {
			return err
		}
		return writePurgeResult(format, sink.writer, matched, deleted, false)
	},
}

func writePurgeResult(format output.Format, w io.Writer, matched int, deleted int64, dryRun bool) error {
	result := map[string]any{
		"matched": matched,
		"deleted": deleted,
		"dry_run": dryRun,
	}

	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	if dryRun {
		_, err := fmt.Fprintf(w, "Would delete %d attempt(s)\n", matched)
		return err
	}
	_, err := fmt.Fprintf(w, "Deleted %d/%d attempt(s)\n", deleted, matched)
	return err
}

func parseOutcome(value string) (core.Outcome, error) {
	normalized := core.Outcome(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case "":
		return "", nil
	case core.OutcomeSubmitted, core.OutcomeRateLimited, core.OutcomeTransportError,
		core.OutcomeEncodingError, core.OutcomeFailed:
		return normalized, nil
	default:
		return "", fmt.Errorf("unknown outcome %q (want submitted|rate_limited|transport_error|encoding_error|failed)", value)
	}
}

// parseBefore accepts an RFC 3339 timestamp, a date (2006-01-02), or an age
// such as 72h that is subtracted from now.
func parseBefore(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	if day, err := time.Parse("2006-01-02", value); err == nil {
		return day, nil
	}
	age, err := time.ParseDuration(value)
	if err != nil || age <= 0 {
		return time.Time{}, fmt.Errorf("invalid --before %q: use RFC 3339, YYYY-MM-DD, or a positive duration like 72h", value)
	}
	return now.Add(-age), nil
}

func init() {
	attemptsListCmd.Flags().StringVar(&attemptsListOutcome, "outcome", "", "Only list attempts with this outcome")
	attemptsListCmd.Flags().IntVar(&attemptsListLimit, "limit", 50, "Maximum attempts to list (0 for all)")
	attemptsListCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json|markdown")
	attemptsListCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	attemptsListCmd.Flags().String("out-dir", "", "Write output to a directory")

	attemptsPurgeCmd.Flags().BoolVar(&attemptsPurgeAll, "all", false, "Delete every attempt")
	attemptsPurgeCmd.Flags().StringVar(&attemptsPurgeOutcome, "outcome", "", "Delete attempts with this outcome")
	attemptsPurgeCmd.Flags().StringVar(&attemptsPurgeBefore, "before", "", "Delete attempts started before a time or age")
	attemptsPurgeCmd.Flags().BoolVar(&attemptsPurgeYes, "yes", false, "Confirm destructive purge")
	attemptsPurgeCmd.Flags().BoolVar(&attemptsPurgeDryRun, "dry-run", false, "Show what would be deleted")
	attemptsPurgeCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
	attemptsPurgeCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	attemptsPurgeCmd.Flags().String("out-dir", "", "Write output to a directory")

	attemptsCmd.AddCommand(attemptsListCmd)
	attemptsCmd.AddCommand(attemptsPurgeCmd)
	rootCmd.AddCommand(attemptsCmd)
}
