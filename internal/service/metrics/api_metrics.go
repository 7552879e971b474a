package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ChartRenderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regimedash",
			Subsystem: "chart",
			Name:      "render_seconds",
			Help:      "Latency of timeline chart rendering",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	ChartCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regimedash",
			Subsystem: "chart",
			Name:      "cache_lookups_total",
			Help:      "Rendered chart cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	WebsocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "regimedash",
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected websocket clients",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ChartRenderLatency, ChartCacheLookups, WebsocketClients)
	})
}
