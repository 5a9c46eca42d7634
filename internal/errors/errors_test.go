package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docgate/docgate/internal/core"
	"github.com/docgate/docgate/internal/core/registry"
	"github.com/docgate/docgate/internal/server/middleware"
)

func TestFromSubmissionErrorCodes(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{name: "rate limited", err: core.ErrRateLimited, code: CodeRateLimited, status: http.StatusTooManyRequests},
		{name: "wrapped rate limited", err: fmt.Errorf("submit: %w", core.ErrRateLimited), code: CodeRateLimited, status: http.StatusTooManyRequests},
		{
			name:   "transport",
			err:    &core.TransportError{Endpoint: "/create", Err: &registry.StatusError{StatusCode: 503}},
			code:   CodeExternalService,
			status: http.StatusBadGateway,
		},
		{
			name:   "deadline",
			err:    &core.TransportError{Endpoint: "/create", Err: context.DeadlineExceeded},
			code:   CodeTimeout,
			status: http.StatusGatewayTimeout,
		},
		{name: "encoding", err: &core.EncodingError{Err: fmt.Errorf("bad value")}, code: CodeDataProcessing, status: http.StatusInternalServerError},
		{name: "config", err: &core.ConfigurationError{Field: "limit", Reason: "must be positive"}, code: CodeConfigInvalid, status: http.StatusInternalServerError},
		{name: "other", err: fmt.Errorf("boom"), code: CodeInternal, status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			envelope := FromSubmissionError(ctx, tc.err, time.Second)
			require.Equal(t, tc.code, envelope.Code)
			require.Equal(t, tc.status, HTTPStatusFromEnvelope(envelope))
			require.NotEmpty(t, envelope.CorrelationID)
		})
	}
}

func TestFromSubmissionErrorUpstreamStatus(t *testing.T) {
	err := &core.TransportError{Err: &registry.StatusError{StatusCode: 422}}
	envelope := FromSubmissionError(context.Background(), err, 0)

	details := ResponseDetails(envelope)
	require.EqualValues(t, 422, details["upstream_status"])
}

func TestRespondWithEnvelopeRateLimited(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", nil)
	req = req.WithContext(middleware.WithRequestID(req.Context(), "req-123"))
	rec := httptest.NewRecorder()

	RespondWithEnvelope(rec, req, FromSubmissionError(req.Context(), core.ErrRateLimited, 1500*time.Millisecond))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "2", rec.Header().Get("Retry-After"))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, CodeRateLimited, body.Error.Code)
	require.Equal(t, "req-123", body.Error.RequestID)
	require.EqualValues(t, 2, body.Error.Details["retry_after_seconds"])
}

func TestRespondWithErrorNormalizesPlainErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/limits", nil)
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, fmt.Errorf("unexpected"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Empty(t, rec.Header().Get("Retry-After"))

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, CodeInternal, body.Error.Code)
	require.Contains(t, body.Error.RequestID, "fallback-")
}

func TestRetryAfterSeconds(t *testing.T) {
	require.Equal(t, 1, RetryAfterSeconds(0))
	require.Equal(t, 1, RetryAfterSeconds(200*time.Millisecond))
	require.Equal(t, 1, RetryAfterSeconds(time.Second))
	require.Equal(t, 60, RetryAfterSeconds(59500*time.Millisecond))
}

func TestHTTPStatusFromCode(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, HTTPStatusFromCode(CodeInvalidInput))
	require.Equal(t, http.StatusNotFound, HTTPStatusFromCode(CodeNotFound))
	require.Equal(t, http.StatusTooManyRequests, HTTPStatusFromCode(CodeRateLimited))
	require.Equal(t, http.StatusServiceUnavailable, HTTPStatusFromCode(CodeUnavailable))
	require.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode("SOMETHING_ELSE"))
}
