package observability_test

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"go.uber.org/zap"

	"github.com/docgate/docgate/internal/observability"
)

func TestLoggers(t *testing.T) {
	t.Run("CLI logger", func(t *testing.T) {
		observability.InitCLILogger(true)
		if observability.CLILogger == nil {
			t.Fatal("CLI logger should not be nil after initialization")
		}
		observability.CLILogger.Debug("debug enabled", zap.String("test", "value"))
	})

	t.Run("Server logger takes precedence", func(t *testing.T) {
		original := observability.ServerLogger
		t.Cleanup(func() { observability.ServerLogger = original })

		observability.InitServerLogger("debug", "test", "registry.local")
		if observability.ServerLogger == nil {
			t.Fatal("server logger should not be nil after initialization")
		}
		if observability.Logger() != observability.ServerLogger {
			t.Fatal("expected Logger() to return the server logger")
		}
		observability.ServerLogger.Info("structured entry",
			zap.String("component", "test"),
			zap.Int("products", 2))
	})
}

func TestCrucibleVersionAvailable(t *testing.T) {
	version := crucible.GetVersion()
	if version.Gofulmen == "" {
		t.Error("gofulmen version should not be empty")
	}
}
