package model

import (
	"math"
	"math/rand"
	"sort"

	"riskcore/pkg/common"
)

const (
	maxDepth        = 10
	minSamplesSplit = 2
)

// treeNode is either a leaf or a binary split. A sample goes left when its
// value at feature is <= threshold. Leaves keep the class counts they were
// built from.
type treeNode struct {
	isLeaf    bool
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode

	counts   [common.NumLabels]int
	majority common.RiskLabel
}

// vote routes a vector from the root to a leaf and returns its majority label.
func (n *treeNode) vote(v common.FeatureVector) common.RiskLabel {
	for !n.isLeaf {
		if v[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.majority
}

// treeBuilder grows one CART tree over a bootstrap sample. Every accepted
// split adds its impurity decrease, weighted by the node's share of the
// original training set, to importance.
type treeBuilder struct {
	features  []common.FeatureVector
	labels    []common.RiskLabel
	totalSize int
	rng       *rand.Rand

	importance [common.FeatureCount]float64
}

func (b *treeBuilder) build(idx []int, depth int) *treeNode {
	counts := b.countLabels(idx)
	if isPure(counts) || depth >= maxDepth || len(idx) < minSamplesSplit {
		return newLeaf(counts)
	}

	best, ok := b.bestSplit(idx, b.sampleFeatures())
	if !ok {
		return newLeaf(counts)
	}

	leftIdx, rightIdx := b.partition(idx, best.feature, best.threshold)
	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		// Cannot happen for midpoint thresholds, guarded anyway.
		return newLeaf(counts)
	}

	b.importance[best.feature] += best.decrease * float64(len(idx)) / float64(b.totalSize)

	return &treeNode{
		feature:   best.feature,
		threshold: best.threshold,
		left:      b.build(leftIdx, depth+1),
		right:     b.build(rightIdx, depth+1),
	}
}

// sampleFeatures draws round(sqrt(FeatureCount)) distinct feature indices
// without replacement (partial Fisher-Yates).
func (b *treeBuilder) sampleFeatures() []int {
	k := int(math.Round(math.Sqrt(float64(common.FeatureCount))))
	if k < 1 {
		k = 1
	}
	feats := make([]int, common.FeatureCount)
	for i := range feats {
		feats[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + b.rng.Intn(len(feats)-i)
		feats[i], feats[j] = feats[j], feats[i]
	}
	return feats[:k]
}

type splitCandidate struct {
	feature   int
	threshold float64
	decrease  float64
}

// bestSplit scans the sampled features for the (feature, threshold) pair with
// the largest Gini decrease. Candidate thresholds are midpoints between
// consecutive distinct sorted values; a feature with a single distinct value
// contributes no candidate. Ties break toward the lower feature index, then
// the lower threshold.
func (b *treeBuilder) bestSplit(idx []int, feats []int) (splitCandidate, bool) {
	parentCounts := b.countLabels(idx)
	parent := gini(parentCounts)
	total := float64(len(idx))

	best := splitCandidate{feature: -1, decrease: -1}

	type pair struct {
		v   float64
		lab common.RiskLabel
	}
	pairs := make([]pair, len(idx))

	for _, f := range feats {
		for i, ii := range idx {
			pairs[i] = pair{b.features[ii][f], b.labels[ii]}
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].v < pairs[j].v })

		var leftCounts [common.NumLabels]int
		for s := 1; s < len(pairs); s++ {
			leftCounts[pairs[s-1].lab]++
			if pairs[s].v == pairs[s-1].v {
				continue
			}
			thr := (pairs[s-1].v + pairs[s].v) / 2

			var rightCounts [common.NumLabels]int
			for c := range rightCounts {
				rightCounts[c] = parentCounts[c] - leftCounts[c]
			}
			weighted := float64(s)/total*gini(leftCounts) + float64(len(pairs)-s)/total*gini(rightCounts)
			dec := parent - weighted

			if dec > best.decrease ||
				(dec == best.decrease && (f < best.feature ||
					(f == best.feature && thr < best.threshold))) {
				best = splitCandidate{feature: f, threshold: thr, decrease: dec}
			}
		}
	}

	if best.feature < 0 {
		return best, false
	}
	return best, true
}

func (b *treeBuilder) partition(idx []int, feature int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, ii := range idx {
		if b.features[ii][feature] <= threshold {
			left = append(left, ii)
		} else {
			right = append(right, ii)
		}
	}
	return left, right
}

func (b *treeBuilder) countLabels(idx []int) [common.NumLabels]int {
	var counts [common.NumLabels]int
	for _, ii := range idx {
		counts[b.labels[ii]]++
	}
	return counts
}

// newLeaf builds a leaf; ties in the majority label break toward the higher
// risk tier (conservative clinical default).
func newLeaf(counts [common.NumLabels]int) *treeNode {
	majority := common.RiskLow
	for c := 1; c < common.NumLabels; c++ {
		if counts[c] >= counts[majority] {
			majority = common.RiskLabel(c)
		}
	}
	return &treeNode{isLeaf: true, counts: counts, majority: majority}
}

func isPure(counts [common.NumLabels]int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// gini 计算 1 - Σ p^2
func gini(counts [common.NumLabels]int) float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}
