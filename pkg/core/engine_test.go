package core

import (
	"errors"
	"testing"

	"riskcore/pkg/common"
	"riskcore/pkg/config"
	"riskcore/pkg/history"
	"riskcore/pkg/model"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Model.Seed = 42
	cfg.Model.TreeCount = 20
	cfg.Synth.Seed = 42
	cfg.Synth.BootSize = 600
	cfg.Storage.Path = t.TempDir()

	hist, err := history.Open(cfg.Storage.Path, cfg.Storage.HistoryCache, cfg.Storage.BatchSize)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	e := NewEngine(cfg, hist)
	t.Cleanup(e.Close)
	return e
}

func TestEngineBootAndPredict(t *testing.T) {
	e := testEngine(t)
	if e.Trained() {
		t.Fatal("engine must start untrained")
	}
	if err := e.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}
	if !e.Trained() {
		t.Fatal("engine must be trained after boot")
	}

	v := common.FeatureVector{common.CategoryAntibiotic, common.DosageHigh, 0.8, 50.0 / 150, 0, common.BPHigh, 3, 2}
	rec, err := e.Predict(v)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if rec.Seq != 1 {
		t.Errorf("first prediction seq: got %d", rec.Seq)
	}
	if !rec.Label.Valid() {
		t.Errorf("label out of range: %d", int(rec.Label))
	}
	if rec.Probability < 0 || rec.Probability > 1 {
		t.Errorf("probability out of range: %v", rec.Probability)
	}

	// Predictions land in history and stats.
	if got := e.History().Recent(10); len(got) != 1 {
		t.Errorf("history: got %d records", len(got))
	}
	snap := e.Stats().Snapshot()
	if snap["predictions"] != 1 {
		t.Errorf("stats predictions: %v", snap)
	}
	if snap["trainings"] != 1 {
		t.Errorf("stats trainings: %v", snap)
	}
}

func TestEnginePredictBeforeBoot(t *testing.T) {
	e := testEngine(t)
	v := make(common.FeatureVector, common.FeatureCount)
	if _, err := e.Predict(v); !errors.Is(err, model.ErrNotTrained) {
		t.Errorf("got %v, want ErrNotTrained", err)
	}
}

func TestEngineRetrain(t *testing.T) {
	e := testEngine(t)
	if err := e.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}
	if err := e.Retrain(300); err != nil {
		t.Fatalf("retrain: %v", err)
	}
	if snap := e.Stats().Snapshot(); snap["trainings"] != 2 {
		t.Errorf("trainings: %v", snap)
	}
	if err := e.Retrain(-5); err == nil {
		t.Error("negative corpus size must error")
	}
}

func TestEngineSensitivity(t *testing.T) {
	e := testEngine(t)
	if err := e.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}

	base := common.FeatureVector{common.CategoryStatin, common.DosageMedium, 0.5, 0.5, 0, common.BPNormal, 2, 1}
	points, err := e.Sensitivity(base, common.FeatAge, 5)
	if err != nil {
		t.Fatalf("sensitivity: %v", err)
	}
	if len(points) != 5 {
		t.Fatalf("got %d points, want 5", len(points))
	}
	dom := common.FeatureDomains[common.FeatAge]
	if points[0].Value != dom.Min || points[4].Value != dom.Max {
		t.Errorf("sweep endpoints: %v .. %v", points[0].Value, points[4].Value)
	}
	for i, pt := range points {
		if !pt.Label.Valid() || pt.Probability < 0 || pt.Probability > 1 {
			t.Errorf("point %d invalid: %+v", i, pt)
		}
	}

	// Sweeps are diagnostics, not served predictions.
	if got := e.History().Recent(10); len(got) != 0 {
		t.Errorf("sweep polluted history: %v", got)
	}

	if _, err := e.Sensitivity(base, 12, 5); err == nil {
		t.Error("feature index out of range must error")
	}
}

func TestEngineSensitivityRejectsBadVector(t *testing.T) {
	e := testEngine(t)
	if err := e.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}

	if _, err := e.Sensitivity(common.FeatureVector{1, 2}, 5, 3); !errors.Is(err, model.ErrInvalidFeatureVector) {
		t.Errorf("short vector: got %v, want ErrInvalidFeatureVector", err)
	}
	if _, err := e.Sensitivity(nil, 0, 3); !errors.Is(err, model.ErrInvalidFeatureVector) {
		t.Errorf("nil vector: got %v, want ErrInvalidFeatureVector", err)
	}
}

func TestEngineImportance(t *testing.T) {
	e := testEngine(t)
	if err := e.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}
	imp := e.Importance()
	if len(imp) != common.FeatureCount {
		t.Fatalf("got %d slots", len(imp))
	}
	sum := 0.0
	for _, v := range imp {
		sum += v
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("importance sum %v", sum)
	}
}
