package pagealloc

import "github.com/prometheus/client_golang/prometheus"

// metrics implements engine.Observer, exposing occupancy snapshots as
// Prometheus gauges. It observes; it never gates or alters a result.
type metrics struct {
	pagesAllocated prometheus.Gauge
	pagesFree      prometheus.Gauge
	arenaBytes     prometheus.Gauge
}

// newMetrics creates three gauges under namespace without registering
// them; the returned value is the engine.Observer that feeds them, and
// Collectors hands them out for registration.
func newMetrics(namespace string) *metrics {
	labels := prometheus.Labels{}
	return &metrics{
		pagesAllocated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "pages_allocated",
			Help:        "Number of pages currently marked allocated in the arena.",
			ConstLabels: labels,
		}),
		pagesFree: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "pages_free",
			Help:        "Number of pages currently marked free in the arena.",
			ConstLabels: labels,
		}),
		arenaBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "arena_bytes",
			Help:        "Total size of the arena's data region, in bytes.",
			ConstLabels: labels,
		}),
	}
}

// Observe implements engine.Observer.
func (m *metrics) Observe(pagesAllocated, pagesFree uint32, arenaBytes uint64) {
	m.pagesAllocated.Set(float64(pagesAllocated))
	m.pagesFree.Set(float64(pagesFree))
	m.arenaBytes.Set(float64(arenaBytes))
}

// Collectors returns the three gauges for registration with a
// prometheus.Registerer of the caller's choosing.
func (m *metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.pagesAllocated, m.pagesFree, m.arenaBytes}
}
