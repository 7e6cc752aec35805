package ml

import (
	"errors"
	"fmt"
)

// RandomForest averages the class probabilities of its trees.
type RandomForest struct {
	Trees       []*DecisionTree
	ClassLabels []int
	Features    int
}

func NewRandomForest(trees []*DecisionTree, classes []int, nFeatures int) (*RandomForest, error) {
	rf := &RandomForest{Trees: trees, ClassLabels: classes, Features: nFeatures}
	if err := rf.Validate(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *RandomForest) Validate() error {
	if len(rf.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	if len(rf.ClassLabels) < 2 {
		return fmt.Errorf("forest needs at least 2 classes, got %d", len(rf.ClassLabels))
	}
	if rf.Features <= 0 {
		return errors.New("forest feature count must be positive")
	}
	for i, tree := range rf.Trees {
		if tree == nil {
			return fmt.Errorf("tree %d is nil", i)
		}
		if err := tree.Validate(rf.Features, len(rf.ClassLabels)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (rf *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, errors.New("model not loaded")
	}
	if len(features) != rf.Features {
		return nil, fmt.Errorf("forest expects %d features, got %d", rf.Features, len(features))
	}
	sum := make([]float64, len(rf.ClassLabels))
	for i, tree := range rf.Trees {
		proba, err := tree.PredictProba(features)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		if len(proba) != len(sum) {
			return nil, fmt.Errorf("tree %d: got %d class weights, want %d", i, len(proba), len(sum))
		}
		for j, p := range proba {
			sum[j] += p
		}
	}
	n := float64(len(rf.Trees))
	for j := range sum {
		sum[j] /= n
	}
	return sum, nil
}

func (rf *RandomForest) Classes() []int {
	return rf.ClassLabels
}

func (rf *RandomForest) NumFeatures() int {
	return rf.Features
}

func (rf *RandomForest) NumEstimators() int {
	return len(rf.Trees)
}
