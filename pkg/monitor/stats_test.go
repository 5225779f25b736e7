package monitor

import (
	"sync"
	"testing"
)

func TestWorkloadStats(t *testing.T) {
	ws := NewWorkloadStats()
	if ws.HighRiskRatio() != 0 {
		t.Errorf("empty ratio: %v", ws.HighRiskRatio())
	}

	ws.RecordPredict()
	ws.RecordPredict()
	ws.RecordHighRisk()
	ws.RecordTrain()
	ws.RecordExplainError()

	snap := ws.Snapshot()
	if snap["predictions"] != 2 || snap["trainings"] != 1 || snap["high_risk"] != 1 || snap["explain_errors"] != 1 {
		t.Errorf("snapshot: %v", snap)
	}
	if ws.HighRiskRatio() != 0.5 {
		t.Errorf("ratio: %v", ws.HighRiskRatio())
	}
}

func TestWorkloadStatsConcurrent(t *testing.T) {
	ws := NewWorkloadStats()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				ws.RecordPredict()
			}
		}()
	}
	wg.Wait()
	if got := ws.Snapshot()["predictions"]; got != 8000 {
		t.Errorf("predictions: %d", got)
	}
}
