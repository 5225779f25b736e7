package synth

import "riskcore/pkg/common"

// Split divides an index-aligned corpus into a training head and a test tail.
// trainFraction is clamped to [0,1]; order is preserved (the generator's
// output is already i.i.d., so no shuffle is needed).
func Split(features []common.FeatureVector, labels []common.RiskLabel, trainFraction float64) (
	trainF []common.FeatureVector, trainL []common.RiskLabel,
	testF []common.FeatureVector, testL []common.RiskLabel,
) {
	if trainFraction < 0 {
		trainFraction = 0
	}
	if trainFraction > 1 {
		trainFraction = 1
	}
	cut := int(float64(len(features)) * trainFraction)
	return features[:cut], labels[:cut], features[cut:], labels[cut:]
}

// Accuracy returns the fraction of predictions matching the true labels.
func Accuracy(truth, predicted []common.RiskLabel) float64 {
	if len(truth) == 0 || len(truth) != len(predicted) {
		return 0
	}
	hits := 0
	for i := range truth {
		if truth[i] == predicted[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}
