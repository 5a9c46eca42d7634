package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/docgate/docgate/internal/core"
	errwrap "github.com/docgate/docgate/internal/errors"
)

// ExitWithCode logs err with foundry exit metadata and exits with exitCode.
// logger may be nil for failures that happen before logging is set up.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		writeFailure(os.Stderr, msg, err, "")
		os.Exit(int(exitCode))
	}

	if logger == nil {
		writeFailure(os.Stderr, msg, err,
			fmt.Sprintf("Exit Code: %d (%s) - %s", info.Code, info.Name, info.Description))
		os.Exit(info.Code)
	}

	fields := append([]zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_category", info.Category),
	}, errorFields(err)...)
	logger.Error(msg, fields...)
	os.Exit(info.Code)
}

// ExitWithCodeStderr is ExitWithCode without a logger.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	ExitWithCode(nil, exitCode, msg, err)
}

func errorFields(err error) []zap.Field {
	var fields []zap.Field
	if envelope, ok := err.(*errors.ErrorEnvelope); ok {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("correlation_id", envelope.CorrelationID),
		)
		if envelope.Context != nil {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
		if original, ok := envelope.Original.(error); ok && original != nil {
			err = original
		}
	}
	return append(fields, zap.Error(err))
}

// writeFailure prints a one-line failure, then trailer when set.
func writeFailure(w io.Writer, msg string, err error, trailer string) {
	switch envelope, isEnvelope := err.(*errors.ErrorEnvelope); {
	case err == nil:
		_, _ = fmt.Fprintf(w, "FATAL: %s\n", msg)
	case isEnvelope:
		_, _ = fmt.Fprintf(w, "FATAL: %s [%s]: %s", msg, envelope.Code, envelope.Message)
		if envelope.CorrelationID != "" {
			_, _ = fmt.Fprintf(w, " (correlation: %s)", envelope.CorrelationID)
		}
		_, _ = fmt.Fprintln(w)
		if wrapped, ok := envelope.Context["wrapped_error"].(string); ok && wrapped != "" {
			_, _ = fmt.Fprintf(w, "Cause: %s\n", wrapped)
		}
	default:
		_, _ = fmt.Fprintf(w, "FATAL: %s: %v\n", msg, err)
	}
	if trailer != "" {
		_, _ = fmt.Fprintln(w, trailer)
	}
}

// ExitCodeFor maps a command error onto a foundry exit code. Envelopes are
// classified by code unless they carry the original error.
func ExitCodeFor(err error) foundry.ExitCode {
	if envelope, ok := err.(*errors.ErrorEnvelope); ok {
		if original, ok := envelope.Original.(error); ok && original != nil {
			return ExitCodeFor(original)
		}
		switch envelope.Code {
		case errwrap.CodeConfigInvalid:
			return foundry.ExitConfigInvalid
		case errwrap.CodeExternalService, errwrap.CodeTimeout:
			return foundry.ExitExternalServiceUnavailable
		default:
			return foundry.ExitFailure
		}
	}

	var (
		configErr    *core.ConfigurationError
		transportErr *core.TransportError
	)
	switch {
	case stderrors.As(err, &configErr):
		return foundry.ExitConfigInvalid
	case stderrors.As(err, &transportErr):
		return foundry.ExitExternalServiceUnavailable
	default:
		return foundry.ExitFailure
	}
}
