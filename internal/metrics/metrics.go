// Package metrics provides Prometheus instrumentation for the relay.
// It exposes counters for scan verdicts and detected threats, a scan
// latency histogram, and gauges for connection and room counts.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesTotal counts processed messages by scan verdict:
	// "safe", "threat_detected", "blocked", or "error".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptchat_messages_total",
		Help: "Total number of messages processed, by scan verdict",
	}, []string{"verdict"})

	// ThreatsTotal counts individual threat findings by category tag
	// (malicious_domain, suspicious_url, credential_harvesting).
	ThreatsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptchat_threats_total",
		Help: "Total number of threats detected, by threat type",
	}, []string{"type"})

	// ScanDuration records the end-to-end security scan latency.
	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cryptchat_scan_duration_seconds",
		Help:    "Security scan latency in seconds",
		Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})

	// ConnectionsTotal tracks the current number of live WebSocket
	// connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cryptchat_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks how many rooms exist in the store.
	ActiveRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cryptchat_active_rooms",
		Help: "Current number of chat rooms",
	})
)

func init() {
	prometheus.MustRegister(
		MessagesTotal,
		ThreatsTotal,
		ScanDuration,
		ConnectionsTotal,
		ActiveRooms,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
