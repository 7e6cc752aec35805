package detector

import (
	"encoding/json"
	"testing"

	"cyberml/ml"
)

func leaf(value ...float64) ml.TreeNode {
	return ml.TreeNode{FeatureIdx: -1, LeftChild: -1, RightChild: -1, IsLeaf: true, Value: value}
}

func stump(feature int, threshold float64, left, right []float64) *ml.DecisionTree {
	return &ml.DecisionTree{Nodes: []ml.TreeNode{
		{FeatureIdx: feature, Threshold: threshold, LeftChild: 1, RightChild: 2},
		leaf(left...),
		leaf(right...),
	}}
}

var testMalwareFeatures = []string{"task_size", "map_count", "millisecond"}

var testKeywords = []string{"free", "click"}

func testArtifacts(t *testing.T) *Artifacts {
	t.Helper()

	malwareModel, err := ml.NewRandomForest([]*ml.DecisionTree{
		stump(1, 100, []float64{8, 2}, []float64{1, 9}),
		stump(0, 5000, []float64{6, 4}, []float64{3, 7}),
	}, []int{0, 1}, len(testMalwareFeatures))
	if err != nil {
		t.Fatalf("malware model: %v", err)
	}

	cfg := ml.DefaultTfidfConfig()
	cfg.Vocabulary = map[string]int{"money": 0, "winner": 1}
	cfg.IDF = []float64{1, 1}
	vectorizer, err := ml.NewTfidfVectorizer(cfg)
	if err != nil {
		t.Fatalf("vectorizer: %v", err)
	}

	// column 7 is has_free
	spamModel, err := ml.NewRandomForest([]*ml.DecisionTree{
		stump(7, 0.5, []float64{9, 1}, []float64{2, 8}),
	}, []int{0, 1}, 7+len(testKeywords)+2)
	if err != nil {
		t.Fatalf("spam model: %v", err)
	}

	artifacts, err := NewArtifacts(malwareModel, testMalwareFeatures, spamModel, vectorizer, testKeywords)
	if err != nil {
		t.Fatalf("artifacts: %v", err)
	}
	return artifacts
}

func testService(t *testing.T, opts Options) *Service {
	t.Helper()
	svc, err := NewService(testArtifacts(t), opts)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc
}

// malwareBody builds a complete request body with every field set to
// value, then applies overrides.
func malwareBody(t *testing.T, value int64, overrides map[string]any) []byte {
	t.Helper()
	body := make(map[string]any, len(malwareFields))
	for _, name := range MalwareFieldNames() {
		body[name] = value
	}
	for k, v := range overrides {
		if v == nil {
			delete(body, k)
			continue
		}
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return payload
}

func decodeMalware(t *testing.T, body []byte) MalwareRecord {
	t.Helper()
	var record MalwareRecord
	if err := Decode(body, &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return record
}
