package main

import (
	"context"
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"

	"cyberml/detector"
	"cyberml/ml"
)

func spamService(t *testing.T) *detector.Service {
	t.Helper()
	leaf := func(v ...float64) ml.TreeNode {
		return ml.TreeNode{FeatureIdx: -1, LeftChild: -1, RightChild: -1, IsLeaf: true, Value: v}
	}
	stump := func(feature int, left, right []float64) *ml.DecisionTree {
		return &ml.DecisionTree{Nodes: []ml.TreeNode{
			{FeatureIdx: feature, Threshold: 0.5, LeftChild: 1, RightChild: 2},
			leaf(left...),
			leaf(right...),
		}}
	}

	malware, err := ml.NewRandomForest([]*ml.DecisionTree{stump(0, []float64{1, 0}, []float64{0, 1})}, []int{0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	cfg := ml.DefaultTfidfConfig()
	cfg.Vocabulary = map[string]int{"prize": 0}
	cfg.IDF = []float64{1}
	vectorizer, err := ml.NewTfidfVectorizer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	// column 7 is has_free
	spam, err := ml.NewRandomForest([]*ml.DecisionTree{stump(7, []float64{1, 0}, []float64{0, 1})}, []int{0, 1}, 9)
	if err != nil {
		t.Fatal(err)
	}
	artifacts, err := detector.NewArtifacts(malware, []string{"map_count"}, spam, vectorizer, []string{"free"})
	if err != nil {
		t.Fatal(err)
	}
	svc, err := detector.NewService(artifacts, detector.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestEvaluateSpam(t *testing.T) {
	data := strings.Join([]string{
		`{"email_text":"get your free prize today","label":1}`,
		`{"email_text":"meeting moved to thursday","label":0}`,
		`{"email_text":"free lunch in the kitchen","label":0}`,
		`{"email_text":"claim the prize you won","label":1}`,
		`{"email_text":"short","label":0}`,
		`{"email_text":"no label on this line"}`,
		``,
	}, "\n")

	rep, err := evaluate(context.Background(), spamService(t), detector.PipelineSpam, strings.NewReader(data), zap.NewNop())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if rep.Samples != 4 || rep.Skipped != 2 {
		t.Fatalf("unexpected counts: %+v", rep)
	}
	if math.Abs(rep.Accuracy-0.5) > 1e-9 || math.Abs(rep.Precision-0.5) > 1e-9 || math.Abs(rep.Recall-0.5) > 1e-9 {
		t.Fatalf("unexpected scores: %+v", rep)
	}
}
