package ml

import (
	"errors"
	"fmt"
)

// Classifier is a fitted model that maps one feature row to a probability
// per class. Implementations are read-only after loading.
type Classifier interface {
	PredictProba(features []float64) ([]float64, error)
	Classes() []int
	NumFeatures() int
}

// Result is a single-row classification.
type Result struct {
	Label         int
	Index         int
	Probabilities []float64
}

// Confidence is the probability mass on the predicted class.
func (r Result) Confidence() float64 {
	if r.Index < 0 || r.Index >= len(r.Probabilities) {
		return 0
	}
	return r.Probabilities[r.Index]
}

// Classify runs the model on one row and picks the most probable class.
// Ties go to the lowest class index.
func Classify(model Classifier, features []float64) (Result, error) {
	if model == nil {
		return Result{}, errors.New("model not loaded")
	}
	if len(features) != model.NumFeatures() {
		return Result{}, fmt.Errorf("feature count mismatch: model expects %d, got %d", model.NumFeatures(), len(features))
	}
	proba, err := model.PredictProba(features)
	if err != nil {
		return Result{}, err
	}
	classes := model.Classes()
	if len(proba) != len(classes) {
		return Result{}, fmt.Errorf("model returned %d probabilities for %d classes", len(proba), len(classes))
	}
	best := 0
	for i := 1; i < len(proba); i++ {
		if proba[i] > proba[best] {
			best = i
		}
	}
	return Result{
		Label:         classes[best],
		Index:         best,
		Probabilities: proba,
	}, nil
}
