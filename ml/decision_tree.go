package ml

import (
	"errors"
	"fmt"
)

type DecisionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	IsLeaf     bool      `json:"is_leaf"`
	Value      []float64 `json:"value"`
}

// PredictProba walks the tree and returns the leaf's class weights
// normalized to sum to 1.
func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	return normalizeWeights(leaf.Value)
}

func (dt *DecisionTree) leaf(features []float64) (*TreeNode, error) {
	if len(dt.Nodes) == 0 {
		return nil, errors.New("tree has no nodes")
	}
	idx := 0
	// a well-formed tree never visits more nodes than it has
	for steps := 0; steps <= len(dt.Nodes); steps++ {
		node := &dt.Nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return nil, errors.New("feature index out of range")
		}
		// thresholds were fitted against float32 inputs
		if float64(float32(features[node.FeatureIdx])) <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.Nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
	return nil, errors.New("tree contains a cycle")
}

// Validate checks node references and leaf shapes once, at load time.
func (dt *DecisionTree) Validate(nFeatures, nClasses int) error {
	if len(dt.Nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range dt.Nodes {
		if node.IsLeaf {
			if len(node.Value) != nClasses {
				return fmt.Errorf("node %d: leaf has %d class weights, want %d", i, len(node.Value), nClasses)
			}
			if _, err := normalizeWeights(node.Value); err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= nFeatures {
			return fmt.Errorf("node %d: feature index %d out of range [0,%d)", i, node.FeatureIdx, nFeatures)
		}
		if node.LeftChild <= i || node.LeftChild >= len(dt.Nodes) {
			return fmt.Errorf("node %d: invalid left child %d", i, node.LeftChild)
		}
		if node.RightChild <= i || node.RightChild >= len(dt.Nodes) {
			return fmt.Errorf("node %d: invalid right child %d", i, node.RightChild)
		}
	}
	return nil
}

func normalizeWeights(values []float64) ([]float64, error) {
	total := 0.0
	for _, v := range values {
		if v < 0 {
			return nil, errors.New("negative class weight")
		}
		total += v
	}
	if total <= 0 {
		return nil, errors.New("leaf has no class weight")
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v / total
	}
	return out, nil
}
