package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	StoreFailures  *prometheus.CounterVec
	DegradedCounts *prometheus.CounterVec
	MarkRead       *prometheus.CounterVec
	PollRefreshes  *prometheus.CounterVec
	Ingested       *prometheus.CounterVec
	OpenStreams    prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		StoreFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifybell",
			Name:      "store_failures_total",
			Help:      "Notification store reads or writes that failed, by operation.",
		}, []string{"operation"}),
		DegradedCounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifybell",
			Name:      "unread_count_degraded_total",
			Help:      "Unread counts that fell back to zero after a store failure.",
		}, []string{"scope"}),
		MarkRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifybell",
			Name:      "mark_read_total",
			Help:      "Mark-read requests by outcome.",
		}, []string{"outcome"}),
		PollRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifybell",
			Name:      "poll_refreshes_total",
			Help:      "Unread-count refreshes; shared means the caller joined an in-flight fetch.",
		}, []string{"mode"}),
		Ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifybell",
			Name:      "events_ingested_total",
			Help:      "Producer events recorded, by kind.",
		}, []string{"kind"}),
		OpenStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "notifybell",
			Name:      "open_streams",
			Help:      "Unread-count streams currently open.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.StoreFailures,
		m.DegradedCounts,
		m.MarkRead,
		m.PollRefreshes,
		m.Ingested,
		m.OpenStreams,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
