package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildVersionReport(t *testing.T) {
	SetVersionInfo("0.4.0", "abc123", "2026-10-01")

	short := buildVersionReport("docgate", false)
	require.Equal(t, "0.4.0", short.Version)
	require.Empty(t, short.Commit)

	full := buildVersionReport("docgate", true)
	require.Equal(t, "abc123", full.Commit)
	require.NotEmpty(t, full.Go)
}
