package model

import "riskcore/pkg/common"

// Classifier is the contract the serving layers depend on.
type Classifier interface {
	Train(features []common.FeatureVector, labels []common.RiskLabel) error
	Predict(features common.FeatureVector) (common.RiskLabel, error)
	PredictProbability(features common.FeatureVector) (float64, error)
	FeatureImportance() []float64
}
