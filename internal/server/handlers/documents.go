package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/docgate/docgate/internal/core"
	"github.com/docgate/docgate/internal/core/dispatch"
	apperrors "github.com/docgate/docgate/internal/errors"
	"github.com/docgate/docgate/internal/metrics"
)

const defaultMaxBodyBytes = 4 << 20

// Dispatcher submits a document and records the attempt.
type Dispatcher interface {
	Dispatch(ctx context.Context, doc core.Document, signature string) (*dispatch.Receipt, error)
}

// LimitReporter exposes the admission window without consuming a slot.
type LimitReporter interface {
	State() core.RateLimitState
	Wait() time.Duration
}

// DocumentHandler serves the submission API.
type DocumentHandler struct {
	Dispatcher   Dispatcher
	Limiter      LimitReporter
	MaxBodyBytes int64
}

// SubmitRequest is the body of POST /v1/documents.
type SubmitRequest struct {
	Document  *core.Document `json:"document"`
	Signature string         `json:"signature"`
}

// SubmitResponse is returned for a submission the registry accepted.
type SubmitResponse struct {
	AttemptID  string          `json:"attempt_id"`
	StatusCode int             `json:"status_code"`
	Endpoint   string          `json:"endpoint"`
	Response   json.RawMessage `json:"response,omitempty"`
}

// LimitsResponse describes the current admission window.
type LimitsResponse struct {
	Limit             int       `json:"limit"`
	Window            string    `json:"window"`
	RequestCount      int       `json:"request_count"`
	Remaining         int       `json:"remaining"`
	WindowStart       time.Time `json:"window_start"`
	ResetAt           time.Time `json:"reset_at"`
	RetryAfterSeconds int       `json:"retry_after_seconds,omitempty"`
}

// Submit handles POST /v1/documents.
func (h *DocumentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Dispatcher == nil {
		apperrors.RespondWithError(w, r, apperrors.NewUnavailableError("submission service not configured"))
		return
	}

	req, err := h.decode(w, r)
	if err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "invalid submission request"))
		return
	}

	receipt, err := h.Dispatcher.Dispatch(r.Context(), *req.Document, req.Signature)
	if err != nil {
		apperrors.RespondWithError(w, r, apperrors.FromSubmissionError(r.Context(), err, h.retryAfter()))
		return
	}

	response := SubmitResponse{}
	if receipt != nil {
		response.AttemptID = receipt.Attempt.ID
		if result := receipt.Result; result != nil {
			response.StatusCode = result.StatusCode
			response.Endpoint = result.Endpoint
			response.Response = registryBody(result.Body)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(response)
}

// Limits handles GET /v1/limits.
func (h *DocumentHandler) Limits(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Limiter == nil {
		apperrors.RespondWithError(w, r, apperrors.NewUnavailableError("rate limiter not configured"))
		return
	}

	state := h.Limiter.State()
	wait := h.Limiter.Wait()

	// An expired window still holds its old count until the next admission.
	count := state.RequestCount
	if !state.ResetAt.After(time.Now()) {
		count = 0
	}
	metrics.SetLimiterWindowCount(count)

	remaining := state.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	response := LimitsResponse{
		Limit:        state.Limit,
		Window:       state.Window.String(),
		RequestCount: count,
		Remaining:    remaining,
		WindowStart:  state.WindowStart.UTC(),
		ResetAt:      state.ResetAt.UTC(),
	}
	if wait > 0 {
		response.RetryAfterSeconds = apperrors.RetryAfterSeconds(wait)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

func (h *DocumentHandler) decode(w http.ResponseWriter, r *http.Request) (*SubmitRequest, error) {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	decoder.DisallowUnknownFields()

	var req SubmitRequest
	if err := decoder.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case stderrors.As(err, &maxErr):
			return nil, fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		case stderrors.Is(err, io.EOF):
			return nil, stderrors.New("request body is empty")
		default:
			return nil, fmt.Errorf("decode request body: %w", err)
		}
	}
	if decoder.More() {
		return nil, stderrors.New("request body must contain a single JSON object")
	}
	if req.Document == nil {
		return nil, stderrors.New("document is required")
	}
	return &req, nil
}

func (h *DocumentHandler) retryAfter() time.Duration {
	if h.Limiter == nil {
		return 0
	}
	return h.Limiter.Wait()
}

func registryBody(body []byte) json.RawMessage {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	quoted, err := json.Marshal(trimmed)
	if err != nil {
		return nil
	}
	return quoted
}
