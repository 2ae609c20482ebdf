package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// GetCounter tracks the number of Get operations.
	GetCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keep_get_total",
		Help: "Total number of Get operations",
	})
	// SetCounter tracks the number of Set operations.
	SetCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keep_set_total",
		Help: "Total number of Set operations",
	})
	// DeleteCounter tracks the number of Delete operations.
	DeleteCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keep_delete_total",
		Help: "Total number of deletions",
	})
	// EvictionCounter tracks the number of capacity evictions.
	EvictionCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keep_evictions_total",
		Help: "Total number of capacity evictions",
	})
	// WatcherGauge reports the number of active removal-event watchers.
	WatcherGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "keep_watchers",
		Help: "Current number of active watchers",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers keep core metrics on the provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(GetCounter, SetCounter, DeleteCounter, EvictionCounter, WatcherGauge)
}
