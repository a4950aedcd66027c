package search

import (
	"sync/atomic"
	"time"
)

// SearchMetrics is a point-in-time snapshot of one search's counters,
// the MCTS analogue of risk-agent/searcher/metrics.go's MoveMetrics.
type SearchMetrics struct {
	StartTime      time.Time
	Duration       time.Duration
	Playouts       int64
	Collisions     int64
	NetworkBatches int64
	CacheHits      int64
	TreeReused     bool
}

// MetricsCollector accumulates per-search counters. Two
// implementations exist: a real atomic-counter one and a no-op,
// selected by Options.VerboseStats so a non-verbose search pays
// nothing for bookkeeping nobody reads (risk-agent/searcher/metrics.go).
type MetricsCollector interface {
	Start()
	AddPlayout()
	AddCollision()
	AddNetworkBatch()
	AddCacheHit()
	ReusedTree()
	Snapshot() SearchMetrics
}

type metricsCollector struct {
	startTime      time.Time
	playouts       atomic.Int64
	collisions     atomic.Int64
	networkBatches atomic.Int64
	cacheHits      atomic.Int64
	treeReused     atomic.Bool
}

func newMetricsCollector() MetricsCollector {
	return &metricsCollector{}
}

func (m *metricsCollector) Start()           { m.startTime = time.Now() }
func (m *metricsCollector) AddPlayout()      { m.playouts.Add(1) }
func (m *metricsCollector) AddCollision()    { m.collisions.Add(1) }
func (m *metricsCollector) AddNetworkBatch() { m.networkBatches.Add(1) }
func (m *metricsCollector) AddCacheHit()     { m.cacheHits.Add(1) }
func (m *metricsCollector) ReusedTree()      { m.treeReused.Store(true) }

func (m *metricsCollector) Snapshot() SearchMetrics {
	return SearchMetrics{
		StartTime:      m.startTime,
		Duration:       time.Since(m.startTime),
		Playouts:       m.playouts.Load(),
		Collisions:     m.collisions.Load(),
		NetworkBatches: m.networkBatches.Load(),
		CacheHits:      m.cacheHits.Load(),
		TreeReused:     m.treeReused.Load(),
	}
}

type noMetricsCollector struct{}

func newNoMetricsCollector() MetricsCollector { return &noMetricsCollector{} }

func (m *noMetricsCollector) Start()                   {}
func (m *noMetricsCollector) AddPlayout()              {}
func (m *noMetricsCollector) AddCollision()            {}
func (m *noMetricsCollector) AddNetworkBatch()         {}
func (m *noMetricsCollector) AddCacheHit()             {}
func (m *noMetricsCollector) ReusedTree()              {}
func (m *noMetricsCollector) Snapshot() SearchMetrics  { return SearchMetrics{} }
