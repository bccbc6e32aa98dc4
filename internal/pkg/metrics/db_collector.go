package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dbPoolConnectionsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "db", "pool_connections"),
		"Number of database connections by state",
		[]string{"state"}, nil,
	)
	dbPoolAcquiresDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "db", "pool_acquires_total"),
		"Connections acquired from the pool",
		nil, nil,
	)
)

// DBPoolCollector reads pgxpool statistics at scrape time. It is registered
// only when pages are stored in PostgreSQL.
type DBPoolCollector struct {
	pool *pgxpool.Pool
}

// NewDBPoolCollector returns a collector for pool.
func NewDBPoolCollector(pool *pgxpool.Pool) *DBPoolCollector {
	return &DBPoolCollector{pool: pool}
}

// Describe implements prometheus.Collector.
func (c *DBPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- dbPoolConnectionsDesc
	ch <- dbPoolAcquiresDesc
}

// Collect implements prometheus.Collector.
func (c *DBPoolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.pool.Stat()

	for state, value := range map[string]int32{
		"in_use": stats.AcquiredConns(),
		"idle":   stats.IdleConns(),
		"max":    stats.MaxConns(),
	} {
		ch <- prometheus.MustNewConstMetric(dbPoolConnectionsDesc, prometheus.GaugeValue, float64(value), state)
	}
	ch <- prometheus.MustNewConstMetric(dbPoolAcquiresDesc, prometheus.CounterValue, float64(stats.AcquireCount()))
}
