package integration

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/core/dispatch"
	"github.com/docgate/docgate/internal/core/engine"
	"github.com/docgate/docgate/internal/core/registry"
	"github.com/docgate/docgate/internal/observability"
	"github.com/docgate/docgate/internal/server"
	"github.com/docgate/docgate/internal/server/handlers"
)

const documentBody = `{"document":{"docId":"doc-1","docType":"LP_INTRODUCE_GOODS","products":[{"uitCode":"010460"}]},"signature":"c2ln"}`

// cleanupMetrics tears down global telemetry state so each test starts clean.
// This matters in sandboxes where lingering exporters can block future binds.
func cleanupMetrics(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		if observability.PrometheusExporter != nil {
			_ = observability.PrometheusExporter.Stop()
			observability.PrometheusExporter = nil
		}
		observability.TelemetrySystem = nil
	})
}

// isPermissionError normalizes OS-specific permission errors (macOS/Linux/BSD)
// so we can gracefully skip when loopback sockets are blocked.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

// initMetricsOrSkip attempts to start the metrics exporter; if the environment
// forbids network binds we skip instead of failing the entire suite.
func initMetricsOrSkip(t *testing.T) {
	t.Helper()

	if err := observability.InitMetrics(0); err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping metrics tests due to sandbox permissions: %v", err)
		}
		require.NoError(t, err)
	}

	cleanupMetrics(t)
}

// listenOrSkip binds IPv4 loopback explicitly (avoiding IPv6-only defaults)
// and skips when the sandbox refuses to open sockets.
func listenOrSkip(t *testing.T) net.Listener {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping server setup: %v", err)
		}
		require.NoError(t, err)
	}
	return listener
}

// newGatewayServer starts a fake registry and a docgate server in front of it
// sharing a single limiter of the given size.
func newGatewayServer(t *testing.T, limit int, registryStatus int) (*httptest.Server, *http.Client) {
	t.Helper()

	upstream := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(registryStatus)
		_, _ = w.Write([]byte(`{"value":"ok"}`))
	}))
	_ = upstream.Listener.Close()
	upstream.Listener = listenOrSkip(t)
	upstream.Start()
	t.Cleanup(upstream.Close)

	limiter, err := engine.NewRateLimiter(time.Minute, limit)
	require.NoError(t, err)

	health := handlers.NewHealthManager("test")
	srv := server.New(config.ServerConfig{Host: "127.0.0.1"}, server.Dependencies{
		Dispatcher: &dispatch.Dispatcher{
			Submitter: &registry.Submitter{
				Limiter:   limiter,
				Transport: &registry.HTTPTransport{Client: upstream.Client(), BaseURL: upstream.URL},
			},
			Logger: observability.ServerLogger,
		},
		Limiter: limiter,
		Health:  health,
	})

	ts := &httptest.Server{
		Listener: listenOrSkip(t),
		Config:   &http.Server{Handler: srv.Handler()},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, ts.Client()
}

func postDocument(t *testing.T, client *http.Client, baseURL string) int {
	t.Helper()
	resp, err := client.Post(baseURL+"/v1/documents", "application/json", bytes.NewBufferString(documentBody))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())
	return resp.StatusCode
}

func scrapeMetrics(t *testing.T, client *http.Client, baseURL string) (string, *http.Response) {
	t.Helper()
	resp, err := client.Get(baseURL + "/metrics")
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	return string(body), resp
}

func TestMetricsEndpoint_SubmissionLoad(t *testing.T) {
	observability.InitCLILogger(false)
	observability.InitServerLogger("info", "test", "127.0.0.1")

	initMetricsOrSkip(t)

	const (
		limit       = 20
		numRequests = 50
		numWorkers  = 10
	)

	ts, client := newGatewayServer(t, limit, http.StatusOK)

	requestChan := make(chan int, numRequests)
	for i := 0; i < numRequests; i++ {
		requestChan <- i
	}
	close(requestChan)

	var (
		mu       sync.Mutex
		statuses = map[int]int{}
	)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for range requestChan {
				status := postDocument(t, client, ts.URL)
				mu.Lock()
				statuses[status]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	assert.Equal(t, limit, statuses[http.StatusCreated])
	assert.Equal(t, numRequests-limit, statuses[http.StatusTooManyRequests])

	metricsContent, resp := scrapeMetrics(t, client, ts.URL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, metricsContent, "http_requests_total", "Should have HTTP request metrics")
	assert.Contains(t, metricsContent, "http_request_duration_ms", "Should have duration metrics")
	assert.Contains(t, metricsContent, "submissions_total", "Should have submission outcome metrics")
	assert.Contains(t, metricsContent, "admissions_total", "Should have admission metrics")
	assert.True(t, elapsed < 5*time.Second, "Load test should complete in reasonable time")
	t.Logf("Load test completed: %d requests in %v (%.2f req/s)", numRequests, elapsed, float64(numRequests)/elapsed.Seconds())
}

func TestMetricsEndpoint_PrometheusFormat(t *testing.T) {
	observability.InitCLILogger(false)
	observability.InitServerLogger("info", "test", "127.0.0.1")

	initMetricsOrSkip(t)

	ts, client := newGatewayServer(t, 5, http.StatusOK)
	assert.Equal(t, http.StatusCreated, postDocument(t, client, ts.URL))

	metricsContent, resp := scrapeMetrics(t, client, ts.URL)
	contentType := resp.Header.Get("Content-Type")
	assert.True(t,
		contentType == "text/plain; version=0.0.4" ||
			contentType == "text/plain; version=0.0.4; charset=utf-8",
		"Expected Prometheus content type, got: %s", contentType)

	lines := strings.Split(strings.TrimSpace(metricsContent), "\n")
	hasValidMetrics := false
	metricLines := 0
	for _, line := range lines {
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		metricLines++
		if strings.Contains(line, "{") && len(strings.Fields(line)) >= 2 {
			hasValidMetrics = true
		}
	}
	assert.True(t, hasValidMetrics, "Should have valid Prometheus metric lines")
	assert.Greater(t, metricLines, 0, "Should have actual metric values")
}

func TestMetricsEndpoint_WithTelemetryDisabled(t *testing.T) {
	observability.InitCLILogger(false)
	observability.InitServerLogger("info", "test", "127.0.0.1")

	originalExporter := observability.PrometheusExporter
	originalTelemetry := observability.TelemetrySystem
	observability.PrometheusExporter = nil
	observability.TelemetrySystem = nil
	t.Cleanup(func() {
		observability.PrometheusExporter = originalExporter
		observability.TelemetrySystem = originalTelemetry
	})

	ts, client := newGatewayServer(t, 5, http.StatusOK)
	assert.Equal(t, http.StatusCreated, postDocument(t, client, ts.URL))

	_, resp := scrapeMetrics(t, client, ts.URL)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGateway_UpstreamFailureConsumesSlot(t *testing.T) {
	observability.InitCLILogger(false)
	observability.InitServerLogger("info", "test", "127.0.0.1")

	ts, client := newGatewayServer(t, 1, http.StatusServiceUnavailable)

	assert.Equal(t, http.StatusBadGateway, postDocument(t, client, ts.URL))
	assert.Equal(t, http.StatusTooManyRequests, postDocument(t, client, ts.URL))
}
