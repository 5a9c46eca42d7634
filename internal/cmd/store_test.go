package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/core"
)

func TestNewGatewaySharesOneLimiter(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"value":"accepted"}`))
	}))
	t.Cleanup(upstream.Close)

	cfg := &config.Config{
		Registry: config.RegistryConfig{
			BaseURL:    upstream.URL,
			CreatePath: "/api/v3/lk/documents/create",
			Timeout:    5 * time.Second,
		},
		RateLimit: config.RateLimitConfig{Window: time.Hour, Limit: 1},
	}

	gw, err := newGateway(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	require.Nil(t, gw.journal)

	doc := core.Document{DocID: "doc-1", DocType: "LP_INTRODUCE_GOODS"}

	receipt, err := gw.dispatcher.Dispatch(context.Background(), doc, "sig")
	require.NoError(t, err)
	require.Equal(t, core.OutcomeSubmitted, receipt.Attempt.Outcome)

	receipt, err = gw.dispatcher.Dispatch(context.Background(), doc, "sig")
	require.ErrorIs(t, err, core.ErrRateLimited)
	require.Equal(t, core.OutcomeRateLimited, receipt.Attempt.Outcome)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, 1, gw.limiter.State().RequestCount)
}

func TestNewGatewayRejectsInvalidWindow(t *testing.T) {
	_, err := newGateway(context.Background(), &config.Config{
		Registry:  config.RegistryConfig{BaseURL: "http://registry.invalid"},
		RateLimit: config.RateLimitConfig{Window: 0, Limit: 5},
	})

	var configErr *core.ConfigurationError
	require.ErrorAs(t, err, &configErr)
}

func TestGatewayCloseNil(t *testing.T) {
	var gw *gateway
	require.NoError(t, gw.Close())
}
