// Package metrics exposes Prometheus collectors for renders, tool runs and
// HTTP requests.
package metrics

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alnah/go-texsnap/internal/process"
)

const namespace = "texsnap"

var (
	RendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "total",
			Help:      "Total number of renders by outcome kind",
		},
		[]string{"kind"},
	)

	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "Render duration in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	RendersInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "in_flight",
			Help:      "Renders currently holding a worker slot",
		},
	)

	ToolRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "runs_total",
			Help:      "External tool invocations by tool and status",
		},
		[]string{"tool", "status"},
	)

	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "duration_seconds",
			Help:      "External tool run time in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
		},
		[]string{"tool"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// ObserveRender records one finished render.
func ObserveRender(kind string, d time.Duration) {
	RendersTotal.WithLabelValues(kind).Inc()
	RenderDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveHTTP records one finished HTTP request.
func ObserveHTTP(method, path string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// Tool run statuses.
const (
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusTimeout  = "timeout"
	StatusNotFound = "not_found"
)

// RunStatus maps a process.Runner error to a status label.
func RunStatus(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, process.ErrTimeout):
		return StatusTimeout
	case errors.Is(err, process.ErrNotFound):
		return StatusNotFound
	}
	return StatusFailed
}

// instrumentedRunner counts and times every command it runs.
type instrumentedRunner struct {
	next process.Runner
}

// InstrumentRunner wraps next so each command updates the tool collectors.
func InstrumentRunner(next process.Runner) process.Runner {
	return &instrumentedRunner{next: next}
}

func (r *instrumentedRunner) Run(ctx context.Context, cmd process.Command) (*process.Result, error) {
	tool := filepath.Base(cmd.Name)
	start := time.Now()
	res, err := r.next.Run(ctx, cmd)
	ToolRunsTotal.WithLabelValues(tool, RunStatus(err)).Inc()
	ToolDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
	return res, err
}
