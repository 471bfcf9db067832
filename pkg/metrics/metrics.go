package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// Metrics holds request counters plus the access and upload outcome
// counters. Thread-safe via atomics and mutex.
type Metrics struct {
	TotalRequests     int64
	ActiveRequests    int64
	TotalErrors       int64
	TotalLatencyMs    int64
	MaxLatencyMs      int64
	FilesUploaded     int64
	FilesFailed       int64
	StartTime         time.Time
	EndpointCounts    map[string]int64
	EndpointLatencies map[string]int64 // total ms per endpoint
	StatusCodes       map[int]int64
	AccessOutcomes    map[string]int64
	mu                sync.Mutex
}

var (
	globalMetrics *Metrics
	once          sync.Once
)

func newMetrics() *Metrics {
	return &Metrics{
		StartTime:         time.Now(),
		EndpointCounts:    make(map[string]int64),
		EndpointLatencies: make(map[string]int64),
		StatusCodes:       make(map[int]int64),
		AccessOutcomes:    make(map[string]int64),
	}
}

// GetMetrics returns the singleton metrics instance
func GetMetrics() *Metrics {
	once.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

// RecordAccessOutcome counts one share or invitation decision, keyed by
// "granted" or the denial reason.
func (m *Metrics) RecordAccessOutcome(outcome string) {
	m.mu.Lock()
	m.AccessOutcomes[outcome]++
	m.mu.Unlock()
}

func (m *Metrics) RecordUploads(succeeded, failed int) {
	atomic.AddInt64(&m.FilesUploaded, int64(succeeded))
	atomic.AddInt64(&m.FilesFailed, int64(failed))
}

// MetricsMiddleware tracks request count, latency, active connections, and
// error rates. Endpoints are keyed by route pattern so share tokens never
// appear in the snapshot.
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m := GetMetrics()

			atomic.AddInt64(&m.ActiveRequests, 1)
			start := time.Now()

			err := next(c)

			latencyMs := time.Since(start).Milliseconds()
			atomic.AddInt64(&m.ActiveRequests, -1)
			atomic.AddInt64(&m.TotalRequests, 1)
			atomic.AddInt64(&m.TotalLatencyMs, latencyMs)

			for {
				current := atomic.LoadInt64(&m.MaxLatencyMs)
				if latencyMs <= current {
					break
				}
				if atomic.CompareAndSwapInt64(&m.MaxLatencyMs, current, latencyMs) {
					break
				}
			}

			statusCode := c.Response().Status
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			endpoint := fmt.Sprintf("%s %s", c.Request().Method, path)

			m.mu.Lock()
			m.EndpointCounts[endpoint]++
			m.EndpointLatencies[endpoint] += latencyMs
			m.StatusCodes[statusCode]++
			if statusCode >= 400 {
				atomic.AddInt64(&m.TotalErrors, 1)
			}
			m.mu.Unlock()

			return err
		}
	}
}

// MetricsSnapshot is a point-in-time snapshot of performance data
type MetricsSnapshot struct {
	TotalRequests  int64            `json:"total_requests"`
	ActiveRequests int64            `json:"active_requests"`
	TotalErrors    int64            `json:"total_errors"`
	ErrorRate      float64          `json:"error_rate_pct"`
	AvgLatencyMs   float64          `json:"avg_latency_ms"`
	MaxLatencyMs   int64            `json:"max_latency_ms"`
	RequestsPerSec float64          `json:"requests_per_sec"`
	UptimeSeconds  float64          `json:"uptime_seconds"`
	EndpointCounts map[string]int64 `json:"endpoint_counts"`
	EndpointAvgMs  map[string]int64 `json:"endpoint_avg_latency_ms"`
	StatusCodes    map[int]int64    `json:"status_codes"`
	AccessOutcomes map[string]int64 `json:"access_outcomes"`
	FilesUploaded  int64            `json:"files_uploaded"`
	FilesFailed    int64            `json:"files_failed"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	total := atomic.LoadInt64(&m.TotalRequests)
	errs := atomic.LoadInt64(&m.TotalErrors)
	totalLatency := atomic.LoadInt64(&m.TotalLatencyMs)

	m.mu.Lock()
	uptime := time.Since(m.StartTime).Seconds()
	endpointCounts := make(map[string]int64, len(m.EndpointCounts))
	endpointAvg := make(map[string]int64, len(m.EndpointLatencies))
	for k, v := range m.EndpointCounts {
		endpointCounts[k] = v
		if v > 0 {
			endpointAvg[k] = m.EndpointLatencies[k] / v
		}
	}
	statusCodes := make(map[int]int64, len(m.StatusCodes))
	for k, v := range m.StatusCodes {
		statusCodes[k] = v
	}
	outcomes := make(map[string]int64, len(m.AccessOutcomes))
	for k, v := range m.AccessOutcomes {
		outcomes[k] = v
	}
	m.mu.Unlock()

	s := MetricsSnapshot{
		TotalRequests:  total,
		ActiveRequests: atomic.LoadInt64(&m.ActiveRequests),
		TotalErrors:    errs,
		MaxLatencyMs:   atomic.LoadInt64(&m.MaxLatencyMs),
		UptimeSeconds:  uptime,
		EndpointCounts: endpointCounts,
		EndpointAvgMs:  endpointAvg,
		StatusCodes:    statusCodes,
		AccessOutcomes: outcomes,
		FilesUploaded:  atomic.LoadInt64(&m.FilesUploaded),
		FilesFailed:    atomic.LoadInt64(&m.FilesFailed),
	}
	if total > 0 {
		s.AvgLatencyMs = float64(totalLatency) / float64(total)
		s.ErrorRate = float64(errs) / float64(total) * 100
	}
	if uptime > 0 {
		s.RequestsPerSec = float64(total) / uptime
	}
	return s
}

// Reset zeroes every counter.
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.TotalRequests, 0)
	atomic.StoreInt64(&m.ActiveRequests, 0)
	atomic.StoreInt64(&m.TotalErrors, 0)
	atomic.StoreInt64(&m.TotalLatencyMs, 0)
	atomic.StoreInt64(&m.MaxLatencyMs, 0)
	atomic.StoreInt64(&m.FilesUploaded, 0)
	atomic.StoreInt64(&m.FilesFailed, 0)
	m.mu.Lock()
	m.EndpointCounts = make(map[string]int64)
	m.EndpointLatencies = make(map[string]int64)
	m.StatusCodes = make(map[int]int64)
	m.AccessOutcomes = make(map[string]int64)
	m.StartTime = time.Now()
	m.mu.Unlock()
}

// RegisterMetricsRoute adds the /metrics/requests endpoint
func RegisterMetricsRoute(e *echo.Echo) {
	e.GET("/metrics/requests", func(c echo.Context) error {
		return c.JSON(http.StatusOK, GetMetrics().Snapshot())
	})
}
