// Package dispatch runs document submissions for the CLI and HTTP server.
// It adds attempt ids, logging, telemetry and the attempt journal around the
// registry submitter, which itself stays free of side channels.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docgate/docgate/internal/core"
	"github.com/docgate/docgate/internal/core/registry"
	"github.com/docgate/docgate/internal/metrics"
)

// Submitter is the core submission operation.
type Submitter interface {
	Submit(ctx context.Context, doc core.Document, signature string) (*core.SubmissionResult, error)
}

// Journal stores attempt metadata.
type Journal interface {
	RecordAttempt(ctx context.Context, attempt *core.Attempt) error
}

// Receipt describes a finished dispatch.
type Receipt struct {
	Attempt core.Attempt
	Result  *core.SubmissionResult
}

// Dispatcher wraps a Submitter with bookkeeping.
type Dispatcher struct {
	Submitter Submitter
	Journal   Journal
	Logger    *logging.Logger
	Clock     func() time.Time
}

// Dispatch submits doc and records the attempt. The returned error is the
// submitter's error, unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, doc core.Document, signature string) (*Receipt, error) {
	if d == nil || d.Submitter == nil {
		return nil, errors.New("dispatcher is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attempt := core.Attempt{
		ID:           uuid.New().String(),
		DocID:        doc.DocID,
		DocType:      doc.DocType,
		ProductCount: len(doc.Products),
		StartedAt:    d.now(),
	}

	result, err := d.Submitter.Submit(ctx, doc, signature)
	attempt.FinishedAt = d.now()
	attempt.Outcome = core.OutcomeOf(err)
	attempt.StatusCode, attempt.Message = describe(result, err)

	metrics.RecordSubmission(string(attempt.Outcome))
	metrics.RecordAdmission(attempt.Outcome != core.OutcomeRateLimited)
	if attempt.Outcome != core.OutcomeRateLimited {
		metrics.RecordTransportDuration(attempt.Duration())
	}

	d.log(attempt, err)
	d.record(ctx, &attempt)

	return &Receipt{Attempt: attempt, Result: result}, err
}

func (d *Dispatcher) record(ctx context.Context, attempt *core.Attempt) {
	if d.Journal == nil {
		return
	}
	// The journal entry must land even if the caller's request was cancelled.
	if err := d.Journal.RecordAttempt(context.WithoutCancel(ctx), attempt); err != nil && d.Logger != nil {
		d.Logger.Warn("Failed to journal submission attempt",
			zap.String("attempt_id", attempt.ID),
			zap.Error(err))
	}
}

func (d *Dispatcher) log(attempt core.Attempt, err error) {
	if d.Logger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("attempt_id", attempt.ID),
		zap.String("doc_id", attempt.DocID),
		zap.String("doc_type", attempt.DocType),
		zap.Int("products", attempt.ProductCount),
		zap.String("outcome", string(attempt.Outcome)),
		zap.Duration("duration", attempt.Duration()),
	}
	if attempt.StatusCode != 0 {
		fields = append(fields, zap.Int("status_code", attempt.StatusCode))
	}

	switch attempt.Outcome {
	case core.OutcomeSubmitted:
		d.Logger.Info("Document submitted", fields...)
	case core.OutcomeRateLimited:
		d.Logger.Warn("Submission rejected by rate limiter", fields...)
	default:
		d.Logger.Error("Submission failed", append(fields, zap.Error(err))...)
	}
}

func (d *Dispatcher) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now().UTC()
}

func describe(result *core.SubmissionResult, err error) (int, string) {
	if err == nil {
		if result == nil {
			return 0, ""
		}
		return result.StatusCode, "accepted"
	}

	var statusErr *registry.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, err.Error()
	}
	return 0, err.Error()
}
