// Package synth manufactures a labeled training corpus when no real clinical
// dataset is available. Labels come from a deterministic risk rule over the
// raw inputs plus zero-mean noise, thresholded into three roughly balanced
// tiers.
package synth

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"riskcore/pkg/common"
)

// ErrInvalidCount is returned by Generate for a negative count.
var ErrInvalidCount = errors.New("synth: count must be non-negative")

// Rule constants. Cutpoints were picked at the terciles of the noiseless
// score distribution over uniform inputs, so the three tiers stay roughly
// balanced for any reasonable corpus size.
const (
	cutLowMedium  = 2.9
	cutMediumHigh = 4.0
	noiseSigma    = 0.45
)

// categoryBaseline is the per-drug-category base risk. Antibiotics and
// antidepressants carry a higher baseline than painkillers/antihistamines.
var categoryBaseline = [common.NumCategories]float64{
	common.CategoryPainkiller:     0.0,
	common.CategoryAntibiotic:     0.8,
	common.CategoryAntihistamine:  0.1,
	common.CategoryAntidepressant: 0.8,
	common.CategoryBetaBlocker:    0.4,
	common.CategoryStatin:         0.3,
}

// Generator 合成样本生成器；rng 必须显式注入以保证可复现
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator with a time-derived seed.
func NewGenerator() *Generator {
	return NewGeneratorWithSeed(time.Now().UnixNano())
}

// NewGeneratorWithSeed creates a generator whose output is fully determined
// by seed.
func NewGeneratorWithSeed(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate returns count index-aligned (features, labels) pairs. count == 0
// yields two empty slices.
func (g *Generator) Generate(count int) ([]common.FeatureVector, []common.RiskLabel, error) {
	if count < 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}

	features := make([]common.FeatureVector, 0, count)
	labels := make([]common.RiskLabel, 0, count)

	for i := 0; i < count; i++ {
		category := g.rng.Intn(common.NumCategories)
		dosage := g.rng.Intn(3)
		age := 5 + g.rng.Float64()*95
		weight := 30 + g.rng.Float64()*120
		sex := g.rng.Intn(3)
		bp := g.rng.Intn(3)
		frequency := 1 + g.rng.Intn(10)
		lifestyle := g.rng.Intn(6)

		score := RiskScore(category, dosage, age, weight, bp, frequency, lifestyle)
		score += g.rng.NormFloat64() * noiseSigma

		label := common.RiskLow
		switch {
		case score >= cutMediumHigh:
			label = common.RiskHigh
		case score >= cutLowMedium:
			label = common.RiskMedium
		}

		// Age and weight are stored normalized to match the live encoding.
		features = append(features, common.FeatureVector{
			float64(category),
			float64(dosage),
			age / 100,
			weight / 150,
			float64(sex),
			float64(bp),
			float64(frequency),
			float64(lifestyle),
		})
		labels = append(labels, label)
	}

	return features, labels, nil
}

// RiskScore is the deterministic rule behind the synthetic labels, over raw
// (un-normalized) inputs.
func RiskScore(category, dosage int, age, weight float64, bp, frequency, lifestyle int) float64 {
	score := categoryBaseline[category]
	if age > 65 {
		score += 1.2
	}
	if weight < 55 {
		score += 0.8
	}
	score += 0.9 * float64(dosage)
	if bp >= common.BPElevated {
		term := 0.7
		if category == common.CategoryBetaBlocker {
			term = 1.4
		}
		score += term
	}
	score += 0.12 * float64(frequency)
	score += 0.15 * float64(lifestyle)
	return score
}
