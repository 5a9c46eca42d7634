package metrics

import (
	"strconv"
	"time"

	"github.com/docgate/docgate/internal/observability"
)

// Submission metrics following Prometheus conventions
const (
	SubmissionsTotal       = "submissions_total"
	AdmissionsTotal        = "admissions_total"
	TransportDurationName  = "transport_duration_ms"
	LimiterWindowCountName = "limiter_window_count"
)

// RecordSubmission counts a finished submission attempt by outcome
func RecordSubmission(outcome string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			SubmissionsTotal,
			1,
			map[string]string{
				"outcome": outcome,
			},
		)
	}
}

// RecordAdmission counts a limiter decision
func RecordAdmission(admitted bool) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			AdmissionsTotal,
			1,
			map[string]string{
				"admitted": strconv.FormatBool(admitted),
			},
		)
	}
}

// RecordTransportDuration records how long an admitted submission took end to end
func RecordTransportDuration(duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			TransportDurationName,
			duration,
			nil,
		)
	}
}

// SetLimiterWindowCount publishes the admitted count of the current window
func SetLimiterWindowCount(count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			LimiterWindowCountName,
			float64(count),
			nil,
		)
	}
}
