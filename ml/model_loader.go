package ml

import (
	"errors"
	"fmt"
	"os"

	"github.com/bytedance/sonic"
)

type modelFile struct {
	ModelType string          `json:"model_type"`
	NFeatures int             `json:"n_features"`
	Classes   []int           `json:"classes"`
	Trees     []*DecisionTree `json:"trees"`
	Nodes     []TreeNode      `json:"nodes"`
}

// LoadModel reads an exported tree model. A single decision tree is
// served as a forest of one.
func LoadModel(path string) (*RandomForest, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file modelFile
	if err := sonic.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}

	var trees []*DecisionTree
	switch file.ModelType {
	case "random_forest":
		trees = file.Trees
	case "decision_tree":
		trees = []*DecisionTree{{Nodes: file.Nodes}}
	default:
		return nil, errors.New("unsupported model type")
	}

	model, err := NewRandomForest(trees, file.Classes, file.NFeatures)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return model, nil
}

func LoadVectorizer(path string) (*TfidfVectorizer, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultTfidfConfig()
	if err := sonic.Unmarshal(payload, &cfg); err != nil {
		return nil, fmt.Errorf("decode vectorizer %s: %w", path, err)
	}
	vec, err := NewTfidfVectorizer(cfg)
	if err != nil {
		return nil, fmt.Errorf("vectorizer %s: %w", path, err)
	}
	return vec, nil
}

// LoadStringList reads a JSON array of strings, such as a feature-name or
// keyword list.
func LoadStringList(path string) ([]string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []string
	if err := sonic.Unmarshal(payload, &list); err != nil {
		return nil, fmt.Errorf("decode list %s: %w", path, err)
	}
	return list, nil
}
