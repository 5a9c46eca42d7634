package cmd

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docgate/docgate/internal/core"
	"github.com/docgate/docgate/internal/output"
)

func TestParseOutcome(t *testing.T) {
	outcome, err := parseOutcome("")
	require.NoError(t, err)
	require.Empty(t, outcome)

	outcome, err = parseOutcome(" Rate_Limited ")
	require.NoError(t, err)
	require.Equal(t, core.OutcomeRateLimited, outcome)

	_, err = parseOutcome("rejected")
	require.ErrorContains(t, err, "unknown outcome")
}

func TestParseBefore(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	ts, err := parseBefore("", now)
	require.NoError(t, err)
	require.True(t, ts.IsZero())

	ts, err = parseBefore("2026-03-01T08:30:00Z", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC), ts)

	ts, err = parseBefore("2026-02-01", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), ts)

	ts, err = parseBefore("72h", now)
	require.NoError(t, err)
	require.Equal(t, now.Add(-72*time.Hour), ts)

	for _, bad := range []string{"-1h", "0s", "yesterday"} {
		_, err := parseBefore(bad, now)
		require.Error(t, err, bad)
	}
}

func TestWritePurgeResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePurgeResult(output.FormatTable, &buf, 4, 0, true))
	require.Equal(t, "Would delete 4 attempt(s)\n", buf.String())

	buf.Reset()
	require.NoError(t, writePurgeResult(output.FormatTable, &buf, 4, 3, false))
	require.Equal(t, "Deleted 3/4 attempt(s)\n", buf.String())

	buf.Reset()
	require.NoError(t, writePurgeResult(output.FormatJSON, &buf, 2, 2, false))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, float64(2), decoded["matched"])
	require.Equal(t, float64(2), decoded["deleted"])
	require.Equal(t, false, decoded["dry_run"])
}
