package vbuf

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the buffer's prometheus collectors. One Metrics value may
// be shared by several buffers; the counters aggregate.
type Metrics struct {
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Edits counts applied edits by kind (insert/delete).
	Edits *prometheus.CounterVec

	EditLogEntries  prometheus.Gauge
	ActiveIterators prometheus.Gauge
}

// NewMetrics creates and registers the buffer metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		CacheHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fathom_vbuf_cache_hits_total",
			Help: "Read-cache hits",
		}),
		CacheMisses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fathom_vbuf_cache_misses_total",
			Help: "Read-cache misses",
		}),
		Edits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "fathom_vbuf_edits_total",
			Help: "Edits applied to the buffer",
		}, []string{"kind"}),
		EditLogEntries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "fathom_vbuf_edit_log_entries",
			Help: "Edit records currently retained",
		}),
		ActiveIterators: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "fathom_vbuf_active_iterators",
			Help: "Live iterators registered with the buffer",
		}),
	}
}
