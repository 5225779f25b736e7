package common

import (
	"fmt"
	"math"
	"time"
)

// RiskLabel 风险等级，按严重程度排序
type RiskLabel int

const (
	RiskLow RiskLabel = iota
	RiskMedium
	RiskHigh
)

func (l RiskLabel) String() string {
	switch l {
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	default:
		return fmt.Sprintf("RiskLabel(%d)", int(l))
	}
}

// Valid reports whether l is one of the three known tiers.
func (l RiskLabel) Valid() bool {
	return l >= RiskLow && l <= RiskHigh
}

// NumLabels is the number of risk tiers.
const NumLabels = 3

// FeatureCount is the fixed width of every feature vector.
const FeatureCount = 8

// Slot positions inside a FeatureVector.
const (
	FeatCategory  = iota // drug category index [0,5]
	FeatDosage           // dosage level index [0,2]
	FeatAge              // age / 100
	FeatWeight           // weight / 150
	FeatSex              // sex index [0,2]
	FeatBP               // blood-pressure status index [0,2]
	FeatFrequency        // doses per day [1,10]
	FeatLifestyle        // lifestyle factor count [0,5]
)

// Drug category indices (FeatCategory slot).
const (
	CategoryPainkiller = iota
	CategoryAntibiotic
	CategoryAntihistamine
	CategoryAntidepressant
	CategoryBetaBlocker
	CategoryStatin

	NumCategories = 6
)

// Dosage level indices (FeatDosage slot).
const (
	DosageLow = iota
	DosageMedium
	DosageHigh
)

// Blood-pressure status indices (FeatBP slot).
const (
	BPNormal = iota
	BPElevated
	BPHigh
)

// FeatureNames maps slot index to a stable name used by the API and CSV export.
var FeatureNames = [FeatureCount]string{
	"category", "dosage", "age", "weight", "sex", "bp", "frequency", "lifestyle",
}

// FeatureDomain is the valid range of one encoded slot.
type FeatureDomain struct {
	Min float64
	Max float64
}

// FeatureDomains describes the encoded domain of every slot. Age and weight
// are stored normalized (age/100, weight/150), so their ranges are fractions.
var FeatureDomains = [FeatureCount]FeatureDomain{
	{0, 5},      // category
	{0, 2},      // dosage
	{0.05, 1.0}, // age
	{0.2, 1.0},  // weight
	{0, 2},      // sex
	{0, 2},      // bp
	{1, 10},     // frequency
	{0, 5},      // lifestyle
}

// FeatureVector 是编码后的患者/用药画像，固定 8 个槽位
type FeatureVector []float64

// Valid reports whether the vector has exactly FeatureCount finite values.
func (v FeatureVector) Valid() bool {
	if len(v) != FeatureCount {
		return false
	}
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the vector.
func (v FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(v))
	copy(out, v)
	return out
}

// Example 是一条带标签的训练样本
type Example struct {
	Features FeatureVector
	Label    RiskLabel
}

// PredictionRecord is the unit stored in the history journal and backend.
type PredictionRecord struct {
	Seq         uint64
	Timestamp   time.Time
	Features    FeatureVector
	Label       RiskLabel
	Probability float64
}

// String 方便调试打印
func (r *PredictionRecord) String() string {
	return fmt.Sprintf("PredictionRecord{Seq: %d, Label: %s, Prob: %.3f}", r.Seq, r.Label, r.Probability)
}
