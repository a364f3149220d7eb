package middleware

import (
	"net/http"
	"strings"
	"sync/atomic"
)

// MetricsCollector counts requests, errors and dialogue turns.
type MetricsCollector struct {
	requests atomic.Int64
	errors   atomic.Int64
	turns    atomic.Int64
	aborted  atomic.Int64
}

// Metrics is a point-in-time copy of the counters.
type Metrics struct {
	RequestCount int64 `json:"request_count"`
	ErrorCount   int64 `json:"error_count"`
	TurnCount    int64 `json:"turn_count"`
	FailedTurns  int64 `json:"failed_turn_count"`
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

func (mc *MetricsCollector) Snapshot() Metrics {
	return Metrics{
		RequestCount: mc.requests.Load(),
		ErrorCount:   mc.errors.Load(),
		TurnCount:    mc.turns.Load(),
		FailedTurns:  mc.aborted.Load(),
	}
}

// Middleware counts requests and 4xx/5xx responses. POSTs to /act and /turns
// are also counted as dialogue turns.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requests.Add(1)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status >= 400 {
			mc.errors.Add(1)
		}
		if isTurnRequest(r) {
			mc.turns.Add(1)
			if rec.status >= 400 {
				mc.aborted.Add(1)
			}
		}
	})
}

func isTurnRequest(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	return strings.HasSuffix(r.URL.Path, "/act") || strings.HasSuffix(r.URL.Path, "/turns")
}
