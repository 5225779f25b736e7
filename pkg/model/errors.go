package model

import "errors"

var (
	// ErrInvalidTrainingData is returned by Train for an empty dataset,
	// mismatched feature/label lengths, or a wrong-width feature vector.
	ErrInvalidTrainingData = errors.New("model: invalid training data")

	// ErrInvalidFeatureVector is returned by Predict/PredictProbability for a
	// wrong-width vector.
	ErrInvalidFeatureVector = errors.New("model: invalid feature vector")

	// ErrNotTrained is returned when inference is requested before any
	// successful Train.
	ErrNotTrained = errors.New("model: not trained")
)
