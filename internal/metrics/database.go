package metrics

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes of an event store call. Only OutcomeError and the context outcomes
// indicate a fault; the rest are answers the API turns into 4xx.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
	OutcomeCanceled = "canceled"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
)

var (
	// StoreDuration is the latency of event store calls, including the
	// advisory lock wait on writes.
	StoreDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "duration_seconds",
			Help:      "Event store call duration in seconds",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation"},
	)

	StoreCalls = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "calls_total",
			Help:      "Event store calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
)

// RecordStoreCall observes one event store call. Typical use:
//
//	start := time.Now()
//	defer func() { metrics.RecordStoreCall("insert_event", start, outcome(err)) }()
func RecordStoreCall(operation string, start time.Time, outcome string) {
	StoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	StoreCalls.WithLabelValues(operation, outcome).Inc()
}

// PoolCollector reads pgxpool statistics at scrape time, so the numbers are
// never staler than the scrape itself.
type PoolCollector struct {
	pool *pgxpool.Pool

	conns       *prometheus.Desc
	maxConns    *prometheus.Desc
	acquires    *prometheus.Desc
	acquireWait *prometheus.Desc
	destroyed   *prometheus.Desc
	newConns    *prometheus.Desc
}

func NewPoolCollector(pool *pgxpool.Pool) *PoolCollector {
	name := func(n string) string { return prometheus.BuildFQName(namespace, "db_pool", n) }
	return &PoolCollector{
		pool:        pool,
		conns:       prometheus.NewDesc(name("connections"), "Pool connections by state", []string{"state"}, nil),
		maxConns:    prometheus.NewDesc(name("max_connections"), "Configured pool size (DATABASE_MAX_CONNECTIONS)", nil, nil),
		acquires:    prometheus.NewDesc(name("acquires_total"), "Connection acquires by result", []string{"result"}, nil),
		acquireWait: prometheus.NewDesc(name("acquire_wait_seconds_total"), "Cumulative time spent acquiring connections", nil, nil),
		destroyed:   prometheus.NewDesc(name("destroyed_total"), "Connections closed by the pool by reason", []string{"reason"}, nil),
		newConns:    prometheus.NewDesc(name("opened_total"), "Connections opened by the pool", nil, nil),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.conns
	ch <- c.maxConns
	ch <- c.acquires
	ch <- c.acquireWait
	ch <- c.destroyed
	ch <- c.newConns
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	stat := c.pool.Stat()

	ch <- prometheus.MustNewConstMetric(c.conns, prometheus.GaugeValue, float64(stat.AcquiredConns()), "acquired")
	ch <- prometheus.MustNewConstMetric(c.conns, prometheus.GaugeValue, float64(stat.IdleConns()), "idle")
	ch <- prometheus.MustNewConstMetric(c.conns, prometheus.GaugeValue, float64(stat.ConstructingConns()), "constructing")
	ch <- prometheus.MustNewConstMetric(c.maxConns, prometheus.GaugeValue, float64(stat.MaxConns()))

	// EmptyAcquireCount is the subset of acquires that had to wait.
	waited := stat.EmptyAcquireCount()
	ch <- prometheus.MustNewConstMetric(c.acquires, prometheus.CounterValue, float64(stat.AcquireCount()-waited), "immediate")
	ch <- prometheus.MustNewConstMetric(c.acquires, prometheus.CounterValue, float64(waited), "waited")
	ch <- prometheus.MustNewConstMetric(c.acquires, prometheus.CounterValue, float64(stat.CanceledAcquireCount()), "canceled")
	ch <- prometheus.MustNewConstMetric(c.acquireWait, prometheus.CounterValue, stat.AcquireDuration().Seconds())

	ch <- prometheus.MustNewConstMetric(c.destroyed, prometheus.CounterValue, float64(stat.MaxLifetimeDestroyCount()), "max_lifetime")
	ch <- prometheus.MustNewConstMetric(c.destroyed, prometheus.CounterValue, float64(stat.MaxIdleDestroyCount()), "max_idle")
	ch <- prometheus.MustNewConstMetric(c.newConns, prometheus.CounterValue, float64(stat.NewConnsCount()))
}

// RegisterPool exposes pool statistics on Registry until the returned
// function is called.
func RegisterPool(pool *pgxpool.Pool) (func(), error) {
	collector := NewPoolCollector(pool)
	if err := Registry.Register(collector); err != nil {
		return nil, err
	}
	return func() { Registry.Unregister(collector) }, nil
}
