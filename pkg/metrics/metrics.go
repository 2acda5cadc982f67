// Package metrics exposes the Prometheus collectors this project reports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RegistrySearches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "osmium",
		Subsystem: "registry",
		Name:      "searches_total",
		Help:      "Number of registry search requests served.",
	})

	RegistryDownloads = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "osmium",
		Subsystem: "registry",
		Name:      "downloads_total",
		Help:      "Number of module releases downloaded.",
	})

	RegistryPublishes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "osmium",
		Subsystem: "registry",
		Name:      "publishes_total",
		Help:      "Number of module publish attempts, labelled by outcome.",
	}, []string{"outcome"})

	ModuleExecutions = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "osmium",
		Subsystem: "runtime",
		Name:      "module_execution_seconds",
		Help:      "Duration of a single module invocation against one seed.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})
)

// Register adds every collector in this package to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(RegistrySearches, RegistryDownloads, RegistryPublishes, ModuleExecutions)
}

// RecordPublish increments the publish counter for the given outcome
// ("success", "name_taken", "version_exists", "error").
func RecordPublish(outcome string) {
	RegistryPublishes.WithLabelValues(outcome).Inc()
}

// RecordExecution observes a module execution's wall-clock duration.
func RecordExecution(status string, d time.Duration) {
	ModuleExecutions.WithLabelValues(status).Observe(d.Seconds())
}
