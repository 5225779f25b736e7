package model

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"riskcore/pkg/common"
)

// DefaultTreeCount is the ensemble size used when the config leaves it unset.
const DefaultTreeCount = 40

// forestState is the immutable result of one Train call. Train builds a
// complete new state and swaps it in, so concurrent readers never observe a
// half-built forest.
type forestState struct {
	trees      []*treeNode
	importance [common.FeatureCount]float64
}

// Forest 随机森林分类器：bootstrap 聚合 + 多数投票
type Forest struct {
	treeCount int
	seed      int64

	state atomic.Pointer[forestState]
}

// NewForest creates an untrained forest; treeCount <= 0 falls back to
// DefaultTreeCount. The seed feeds bootstrap sampling and per-node feature
// subsampling; Train must not run concurrently with itself, reads are
// lock-free.
func NewForest(treeCount int) *Forest {
	return NewForestWithSeed(treeCount, time.Now().UnixNano())
}

// NewForestWithSeed creates an untrained forest with a fixed seed; treeCount
// <= 0 falls back to DefaultTreeCount. Two forests with the same seed trained
// on identical data produce identical predictions.
func NewForestWithSeed(treeCount int, seed int64) *Forest {
	if treeCount <= 0 {
		treeCount = DefaultTreeCount
	}
	return &Forest{treeCount: treeCount, seed: seed}
}

// TreeCount returns the configured ensemble size.
func (f *Forest) TreeCount() int { return f.treeCount }

// Trained reports whether a Train call has completed.
func (f *Forest) Trained() bool { return f.state.Load() != nil }

// Train grows treeCount trees, each on its own bootstrap sample, then sums
// and normalizes the per-tree importance vectors. On success the previous
// forest is replaced wholesale; on failure it is left untouched.
func (f *Forest) Train(features []common.FeatureVector, labels []common.RiskLabel) error {
	if len(features) == 0 {
		return fmt.Errorf("%w: empty dataset", ErrInvalidTrainingData)
	}
	if len(features) != len(labels) {
		return fmt.Errorf("%w: %d feature vectors vs %d labels", ErrInvalidTrainingData, len(features), len(labels))
	}
	for i, v := range features {
		if len(v) != common.FeatureCount {
			return fmt.Errorf("%w: vector %d has %d values, want %d", ErrInvalidTrainingData, i, len(v), common.FeatureCount)
		}
	}
	for i, l := range labels {
		if !l.Valid() {
			return fmt.Errorf("%w: label %d out of range: %d", ErrInvalidTrainingData, i, int(l))
		}
	}

	n := len(features)
	trees := make([]*treeNode, f.treeCount)
	perTree := make([][common.FeatureCount]float64, f.treeCount)

	// One task per tree over a fixed worker pool. Each tree owns a private
	// RNG sub-stream (seed + tree index), so the result is independent of
	// scheduling order.
	workers := runtime.GOMAXPROCS(0)
	if workers > f.treeCount {
		workers = f.treeCount
	}
	tasks := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				rng := rand.New(rand.NewSource(f.seed + int64(t)))
				sample := make([]int, n)
				for j := 0; j < n; j++ {
					sample[j] = rng.Intn(n)
				}
				b := &treeBuilder{
					features:  features,
					labels:    labels,
					totalSize: n,
					rng:       rng,
				}
				trees[t] = b.build(sample, 0)
				perTree[t] = b.importance
			}
		}()
	}
	for t := 0; t < f.treeCount; t++ {
		tasks <- t
	}
	close(tasks)
	wg.Wait()

	st := &forestState{trees: trees}
	sum := 0.0
	for _, imp := range perTree {
		for j, v := range imp {
			st.importance[j] += v
			sum += v
		}
	}
	if sum > 0 {
		for j := range st.importance {
			st.importance[j] /= sum
		}
	}
	// sum == 0 (all-pure-root degenerate case) keeps the zero vector.

	f.state.Store(st)
	return nil
}

// Predict returns the majority label across all tree votes. Ties break
// toward the higher risk tier.
func (f *Forest) Predict(features common.FeatureVector) (common.RiskLabel, error) {
	st, err := f.snapshot(features)
	if err != nil {
		return 0, err
	}
	votes := st.countVotes(features)
	return majorityLabel(votes), nil
}

// PredictProbability returns the fraction of trees voting for the predicted
// label. This is an empirical confidence, not a calibrated posterior.
func (f *Forest) PredictProbability(features common.FeatureVector) (float64, error) {
	_, prob, err := f.PredictWithProbability(features)
	return prob, err
}

// PredictWithProbability returns the majority label and its vote fraction
// from a single snapshot, so the pair stays consistent even when a retrain
// lands between the two reads.
func (f *Forest) PredictWithProbability(features common.FeatureVector) (common.RiskLabel, float64, error) {
	st, err := f.snapshot(features)
	if err != nil {
		return 0, 0, err
	}
	votes := st.countVotes(features)
	label := majorityLabel(votes)
	return label, float64(votes[label]) / float64(len(st.trees)), nil
}

// FeatureImportance returns a copy of the normalized importance vector. It is
// the zero vector until the first Train completes.
func (f *Forest) FeatureImportance() []float64 {
	out := make([]float64, common.FeatureCount)
	st := f.state.Load()
	if st == nil {
		return out
	}
	copy(out, st.importance[:])
	return out
}

func (f *Forest) snapshot(features common.FeatureVector) (*forestState, error) {
	if len(features) != common.FeatureCount {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrInvalidFeatureVector, len(features), common.FeatureCount)
	}
	st := f.state.Load()
	if st == nil {
		return nil, ErrNotTrained
	}
	return st, nil
}

func (st *forestState) countVotes(features common.FeatureVector) [common.NumLabels]int {
	var votes [common.NumLabels]int
	for _, root := range st.trees {
		votes[root.vote(features)]++
	}
	return votes
}

// majorityLabel uses the same conservative tie-break as leaves: the higher
// tier wins on equal votes.
func majorityLabel(votes [common.NumLabels]int) common.RiskLabel {
	best := common.RiskLow
	for c := 1; c < common.NumLabels; c++ {
		if votes[c] >= votes[best] {
			best = common.RiskLabel(c)
		}
	}
	return best
}
