package monitor

import (
	"sync/atomic"
)

type WorkloadStats struct {
	PredictCount  uint64
	TrainCount    uint64
	HighRiskCount uint64
	ExplainErrors uint64
}

func NewWorkloadStats() *WorkloadStats {
	return &WorkloadStats{}
}

func (ws *WorkloadStats) RecordPredict() {
	atomic.AddUint64(&ws.PredictCount, 1)
}

func (ws *WorkloadStats) RecordTrain() {
	atomic.AddUint64(&ws.TrainCount, 1)
}

func (ws *WorkloadStats) RecordHighRisk() {
	atomic.AddUint64(&ws.HighRiskCount, 1)
}

func (ws *WorkloadStats) RecordExplainError() {
	atomic.AddUint64(&ws.ExplainErrors, 1)
}

// HighRiskRatio returns the share of predictions classified as High.
func (ws *WorkloadStats) HighRiskRatio() float64 {
	predicts := atomic.LoadUint64(&ws.PredictCount)
	if predicts == 0 {
		return 0.0
	}
	high := atomic.LoadUint64(&ws.HighRiskCount)
	return float64(high) / float64(predicts)
}

// Snapshot returns a consistent-enough copy for the stats endpoint.
func (ws *WorkloadStats) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"predictions":    atomic.LoadUint64(&ws.PredictCount),
		"trainings":      atomic.LoadUint64(&ws.TrainCount),
		"high_risk":      atomic.LoadUint64(&ws.HighRiskCount),
		"explain_errors": atomic.LoadUint64(&ws.ExplainErrors),
	}
}
