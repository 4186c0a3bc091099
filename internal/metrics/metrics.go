package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Frame pipeline counters
	FramesProcessed atomic.Uint64
	FramesDiscarded atomic.Uint64
	SourceErrors    atomic.Uint64
	InferenceErrors atomic.Uint64

	// Monitoring aggregates mirrored for scraping
	WomenMonitored  atomic.Uint64
	SafetyAlerts    atomic.Uint64
	RiskZoneCells   atomic.Uint64
	ThreatLevelRank atomic.Uint64 // 0=SAFE .. 4=CRITICAL

	// Consumer tracking
	StreamClients atomic.Uint64
	EventClients  atomic.Uint64

	// Session and export bookkeeping
	SessionsStarted atomic.Uint64
	ExportsWritten  atomic.Uint64
	ExportErrors    atomic.Uint64

	// Latency tracking
	FrameLatencyMs atomic.Uint64 // Last full-pipeline frame latency in ms

	// Prometheus collectors
	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.registerPrometheusMetrics()

	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	gauges := []struct {
		name string
		help string
		load func() uint64
	}{
		{"watchher_frames_processed_total", "Total frames fully processed by the pipeline", m.FramesProcessed.Load},
		{"watchher_frames_discarded_total", "Total frames discarded after a processing failure", m.FramesDiscarded.Load},
		{"watchher_source_errors_total", "Total frame source read errors", m.SourceErrors.Load},
		{"watchher_inference_errors_total", "Total perception service failures", m.InferenceErrors.Load},
		{"watchher_women_monitored_total", "Cumulative protected-category detections", m.WomenMonitored.Load},
		{"watchher_safety_alerts_total", "Cumulative safety alerts", m.SafetyAlerts.Load},
		{"watchher_risk_zone_cells", "Cells currently present in the risk map", m.RiskZoneCells.Load},
		{"watchher_threat_level", "Current threat level rank (0=SAFE, 4=CRITICAL)", m.ThreatLevelRank.Load},
		{"watchher_stream_clients", "Connected MJPEG stream clients", m.StreamClients.Load},
		{"watchher_event_clients", "Connected SSE status clients", m.EventClients.Load},
		{"watchher_sessions_started_total", "Monitoring sessions started", m.SessionsStarted.Load},
		{"watchher_exports_written_total", "Export documents written", m.ExportsWritten.Load},
		{"watchher_export_errors_total", "Export write failures", m.ExportErrors.Load},
		{"watchher_frame_latency_ms", "Last frame pipeline latency in milliseconds", m.FrameLatencyMs.Load},
	}

	for _, g := range gauges {
		load := g.load
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(load()) },
		))
	}
}

// UpdateFrameLatency records the wall-clock cost of one pipeline iteration.
func (m *Metrics) UpdateFrameLatency(start time.Time) {
	m.FrameLatencyMs.Store(uint64(time.Since(start).Milliseconds()))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
