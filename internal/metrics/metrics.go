package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_http_requests_total",
		Help: "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "pattern", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parley_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"pattern"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parley_ws_connections",
		Help: "Currently connected WebSocket clients.",
	})

	RealtimeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_realtime_events_total",
		Help: "Realtime events broadcast by type.",
	}, []string{"type"})

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parley_messages_sent_total",
		Help: "Messages accepted by the send endpoint.",
	})
)
