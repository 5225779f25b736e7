// Package core wires the classifier, corpus generator, history store, and
// workload stats into the engine both servers share.
package core

import (
	"fmt"
	"log"
	"sync"
	"time"

	"riskcore/pkg/common"
	"riskcore/pkg/config"
	"riskcore/pkg/history"
	"riskcore/pkg/model"
	"riskcore/pkg/monitor"
	"riskcore/pkg/synth"
)

type Engine struct {
	conf    *config.Config
	forest  *model.Forest
	history *history.Store
	stats   *monitor.WorkloadStats

	// gen's rand source is not goroutine safe; genMu covers every use.
	genMu sync.Mutex
	gen   *synth.Generator

	// trainMu makes Train a stop-the-world replacement; reads stay lock-free.
	trainMu sync.Mutex
}

func NewEngine(cfg *config.Config, hist *history.Store) *Engine {
	modelSeed := cfg.Model.Seed
	if modelSeed == 0 {
		modelSeed = time.Now().UnixNano()
	}
	synthSeed := cfg.Synth.Seed
	if synthSeed == 0 {
		synthSeed = time.Now().UnixNano() + 1
	}

	return &Engine{
		conf:    cfg,
		forest:  model.NewForestWithSeed(cfg.Model.TreeCount, modelSeed),
		gen:     synth.NewGeneratorWithSeed(synthSeed),
		history: hist,
		stats:   monitor.NewWorkloadStats(),
	}
}

// Boot trains the forest on a fresh synthetic corpus and logs the held-out
// accuracy as a sanity signal.
func (e *Engine) Boot() error {
	features, labels, err := e.Generate(e.conf.Synth.BootSize)
	if err != nil {
		return err
	}
	trainF, trainL, testF, testL := synth.Split(features, labels, e.conf.Synth.TrainFraction)
	if err := e.Train(trainF, trainL); err != nil {
		return err
	}

	predicted := make([]common.RiskLabel, len(testF))
	for i, v := range testF {
		predicted[i], err = e.forest.Predict(v)
		if err != nil {
			return err
		}
	}
	log.Printf("[Engine] Boot: %d trees trained on %d synthetic examples, held-out accuracy %.3f",
		e.forest.TreeCount(), len(trainF), synth.Accuracy(testL, predicted))
	return nil
}

// Train replaces the forest wholesale. Failed training leaves the previous
// forest serving.
func (e *Engine) Train(features []common.FeatureVector, labels []common.RiskLabel) error {
	e.trainMu.Lock()
	defer e.trainMu.Unlock()

	if err := e.forest.Train(features, labels); err != nil {
		return err
	}
	e.stats.RecordTrain()
	return nil
}

// Retrain generates a fresh corpus of the given size and trains on all of it.
func (e *Engine) Retrain(count int) error {
	features, labels, err := e.Generate(count)
	if err != nil {
		return err
	}
	return e.Train(features, labels)
}

// Generate produces count synthetic (features, labels) pairs.
func (e *Engine) Generate(count int) ([]common.FeatureVector, []common.RiskLabel, error) {
	e.genMu.Lock()
	defer e.genMu.Unlock()
	return e.gen.Generate(count)
}

// Predict classifies one vector, records it in the history store, and
// returns the stored record.
func (e *Engine) Predict(features common.FeatureVector) (common.PredictionRecord, error) {
	label, prob, err := e.forest.PredictWithProbability(features)
	if err != nil {
		return common.PredictionRecord{}, err
	}

	e.stats.RecordPredict()
	if label == common.RiskHigh {
		e.stats.RecordHighRisk()
	}

	rec, err := e.history.Record(features, label, prob)
	if err != nil {
		return common.PredictionRecord{}, err
	}
	return rec, nil
}

// SweepPoint is one sample of a sensitivity curve.
type SweepPoint struct {
	Value       float64          `json:"value"`
	Label       common.RiskLabel `json:"label"`
	Probability float64          `json:"probability"`
}

// Sensitivity sweeps one feature slot across its encoded domain, holding the
// rest of the base vector fixed. Sweep queries are not recorded in history.
func (e *Engine) Sensitivity(base common.FeatureVector, feature, steps int) ([]SweepPoint, error) {
	if len(base) != common.FeatureCount {
		return nil, fmt.Errorf("%w: got %d values, want %d", model.ErrInvalidFeatureVector, len(base), common.FeatureCount)
	}
	if feature < 0 || feature >= common.FeatureCount {
		return nil, fmt.Errorf("core: feature index %d out of range [0,%d]", feature, common.FeatureCount-1)
	}
	if steps < 2 {
		steps = 2
	}

	dom := common.FeatureDomains[feature]
	points := make([]SweepPoint, 0, steps)
	probe := base.Clone()
	for i := 0; i < steps; i++ {
		probe[feature] = dom.Min + (dom.Max-dom.Min)*float64(i)/float64(steps-1)
		label, prob, err := e.forest.PredictWithProbability(probe)
		if err != nil {
			return nil, err
		}
		points = append(points, SweepPoint{Value: probe[feature], Label: label, Probability: prob})
	}
	return points, nil
}

// Importance returns the normalized feature-importance vector.
func (e *Engine) Importance() []float64 {
	return e.forest.FeatureImportance()
}

func (e *Engine) Trained() bool { return e.forest.Trained() }

func (e *Engine) Stats() *monitor.WorkloadStats { return e.stats }

func (e *Engine) History() *history.Store { return e.history }

func (e *Engine) Close() {
	e.history.Close()
}
