package qbdt

import "sync/atomic"

/*
Metrics counts structural operations across every tree in the process.
The counters sit on the mutation hot path, so they are plain atomics rather
than a mutexed struct; Snapshot gives a consistent-enough copy for
inspection and tests.
*/
type Metrics struct {
	NodeClones    atomic.Int64
	PruneMerges   atomic.Int64
	ZeroPrunes    atomic.Int64
	PushDescents  atomic.Int64
	PopCollapses  atomic.Int64
	InsertSplices atomic.Int64
	Removals      atomic.Int64
	ParallelForks atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	NodeClones    int64
	PruneMerges   int64
	ZeroPrunes    int64
	PushDescents  int64
	PopCollapses  int64
	InsertSplices int64
	Removals      int64
	ParallelForks int64
}

var metrics = &Metrics{}

// Stats returns a snapshot of the process-wide operation counters.
func Stats() MetricsSnapshot {
	return MetricsSnapshot{
		NodeClones:    metrics.NodeClones.Load(),
		PruneMerges:   metrics.PruneMerges.Load(),
		ZeroPrunes:    metrics.ZeroPrunes.Load(),
		PushDescents:  metrics.PushDescents.Load(),
		PopCollapses:  metrics.PopCollapses.Load(),
		InsertSplices: metrics.InsertSplices.Load(),
		Removals:      metrics.Removals.Load(),
		ParallelForks: metrics.ParallelForks.Load(),
	}
}

// ResetStats zeroes the counters. Meant for tests and benchmarks.
func ResetStats() {
	metrics.NodeClones.Store(0)
	metrics.PruneMerges.Store(0)
	metrics.ZeroPrunes.Store(0)
	metrics.PushDescents.Store(0)
	metrics.PopCollapses.Store(0)
	metrics.InsertSplices.Store(0)
	metrics.Removals.Store(0)
	metrics.ParallelForks.Store(0)
}
