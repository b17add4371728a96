package app

import "time"

// Cycle outcomes reported to Metrics.
const (
	CycleResultCompleted = "completed"
	CycleResultSkipped   = "skipped"
	CycleResultFailed    = "failed"
)

// Metrics receives distribution counters. The prometheus implementation lives in infra/metrics.
type Metrics interface {
	CycleFinished(result string, elapsed time.Duration)
	DeliveryAttempted(ok bool)
	FlushFailed()
}

type nopMetrics struct{}

func (nopMetrics) CycleFinished(string, time.Duration) {}
func (nopMetrics) DeliveryAttempted(bool)              {}
func (nopMetrics) FlushFailed()                        {}
