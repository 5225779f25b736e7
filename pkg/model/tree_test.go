package model

import (
	"math"
	"math/rand"
	"testing"

	"riskcore/pkg/common"
)

func TestGini(t *testing.T) {
	if g := gini([common.NumLabels]int{0, 0, 0}); g != 0 {
		t.Errorf("empty node: got %v, want 0", g)
	}
	if g := gini([common.NumLabels]int{10, 0, 0}); g != 0 {
		t.Errorf("pure node: got %v, want 0", g)
	}
	// Two equal classes: 1 - 2*(1/2)^2 = 0.5
	if g := gini([common.NumLabels]int{5, 5, 0}); math.Abs(g-0.5) > 1e-12 {
		t.Errorf("two-class node: got %v, want 0.5", g)
	}
	// Three equal classes: 1 - 3*(1/3)^2 = 2/3
	if g := gini([common.NumLabels]int{4, 4, 4}); math.Abs(g-2.0/3.0) > 1e-12 {
		t.Errorf("three-class node: got %v, want 2/3", g)
	}
}

func TestLeafTieBreaksHigh(t *testing.T) {
	leaf := newLeaf([common.NumLabels]int{3, 3, 0})
	if leaf.majority != common.RiskMedium {
		t.Errorf("Low/Medium tie: got %v, want Medium", leaf.majority)
	}
	leaf = newLeaf([common.NumLabels]int{2, 2, 2})
	if leaf.majority != common.RiskHigh {
		t.Errorf("three-way tie: got %v, want High", leaf.majority)
	}
	leaf = newLeaf([common.NumLabels]int{5, 1, 0})
	if leaf.majority != common.RiskLow {
		t.Errorf("clear majority: got %v, want Low", leaf.majority)
	}
}

func TestIsPure(t *testing.T) {
	if !isPure([common.NumLabels]int{7, 0, 0}) {
		t.Error("single-class node should be pure")
	}
	if !isPure([common.NumLabels]int{0, 0, 0}) {
		t.Error("empty node should count as pure")
	}
	if isPure([common.NumLabels]int{3, 1, 0}) {
		t.Error("mixed node should not be pure")
	}
}

func TestSampleFeaturesDistinct(t *testing.T) {
	b := &treeBuilder{rng: rand.New(rand.NewSource(1))}
	for trial := 0; trial < 50; trial++ {
		feats := b.sampleFeatures()
		if len(feats) != 3 { // round(sqrt(8))
			t.Fatalf("got %d features, want 3", len(feats))
		}
		seen := map[int]bool{}
		for _, f := range feats {
			if f < 0 || f >= common.FeatureCount {
				t.Fatalf("feature %d out of range", f)
			}
			if seen[f] {
				t.Fatalf("duplicate feature %d in sample %v", f, feats)
			}
			seen[f] = true
		}
	}
}

func TestBestSplitMidpoint(t *testing.T) {
	// One feature cleanly separates the two classes; the threshold must be
	// the midpoint between the closest values on either side.
	b := &treeBuilder{
		features: []common.FeatureVector{
			{0, 0, 0, 0, 0, 0, 1, 0},
			{0, 0, 0, 0, 0, 0, 2, 0},
			{0, 0, 0, 0, 0, 0, 8, 0},
			{0, 0, 0, 0, 0, 0, 9, 0},
		},
		labels:    []common.RiskLabel{common.RiskLow, common.RiskLow, common.RiskHigh, common.RiskHigh},
		totalSize: 4,
		rng:       rand.New(rand.NewSource(1)),
	}
	best, ok := b.bestSplit([]int{0, 1, 2, 3}, []int{common.FeatFrequency})
	if !ok {
		t.Fatal("expected a split")
	}
	if best.feature != common.FeatFrequency {
		t.Errorf("feature: got %d, want %d", best.feature, common.FeatFrequency)
	}
	if best.threshold != 5.0 { // (2+8)/2
		t.Errorf("threshold: got %v, want 5.0", best.threshold)
	}
	if math.Abs(best.decrease-0.5) > 1e-12 { // parent gini 0.5, children pure
		t.Errorf("decrease: got %v, want 0.5", best.decrease)
	}
}

func TestBestSplitConstantFeature(t *testing.T) {
	b := &treeBuilder{
		features: []common.FeatureVector{
			{1, 0, 0, 0, 0, 0, 1, 0},
			{1, 0, 0, 0, 0, 0, 1, 0},
			{1, 0, 0, 0, 0, 0, 1, 0},
		},
		labels:    []common.RiskLabel{common.RiskLow, common.RiskMedium, common.RiskHigh},
		totalSize: 3,
		rng:       rand.New(rand.NewSource(1)),
	}
	if _, ok := b.bestSplit([]int{0, 1, 2}, []int{common.FeatCategory, common.FeatFrequency}); ok {
		t.Error("constant features must yield no split candidate")
	}
}

func TestBuildSeparableTree(t *testing.T) {
	b := &treeBuilder{
		features: []common.FeatureVector{
			{0, 0, 0.3, 0.5, 0, 0, 1, 0},
			{0, 0, 0.3, 0.5, 0, 0, 2, 1},
			{5, 2, 0.9, 0.3, 0, 2, 9, 5},
			{5, 2, 0.9, 0.3, 0, 2, 8, 4},
		},
		labels:    []common.RiskLabel{common.RiskLow, common.RiskLow, common.RiskHigh, common.RiskHigh},
		totalSize: 4,
		rng:       rand.New(rand.NewSource(7)),
	}
	root := b.build([]int{0, 1, 2, 3}, 0)

	for i, v := range b.features {
		if got := root.vote(v); got != b.labels[i] {
			t.Errorf("sample %d: got %v, want %v", i, got, b.labels[i])
		}
	}

	total := 0.0
	for _, imp := range b.importance {
		if imp < 0 {
			t.Errorf("negative importance: %v", b.importance)
		}
		total += imp
	}
	if total <= 0 {
		t.Error("separable data must accumulate some importance")
	}
}
