package detector

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"cyberml/ml"
)

const stumpJSON = `{"nodes": [
	{"feature_idx": 0, "threshold": 0.5, "left_child": 1, "right_child": 2},
	{"feature_idx": -1, "left_child": -1, "right_child": -1, "is_leaf": true, "value": [3, 1]},
	{"feature_idx": -1, "left_child": -1, "right_child": -1, "is_leaf": true, "value": [1, 3]}
]}`

func writeArtifacts(t *testing.T, spamFeatures int) ArtifactPaths {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"malware_rf_model.json": `{"model_type":"random_forest","n_features":2,"classes":[0,1],"trees":[` + stumpJSON + `]}`,
		"malware_features.json": `["map_count","task_size"]`,
		"spam_rf_model.json":    `{"model_type":"random_forest","n_features":` + strconv.Itoa(spamFeatures) + `,"classes":[0,1],"trees":[` + stumpJSON + `]}`,
		"spam_tfidf.json":       `{"vocabulary":{"free":0,"money":1,"prize":2},"idf":[1.2,1.5,2.0],"max_features":3000}`,
		"spam_keywords.json":    `["free","winner"]`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return ArtifactPaths{
		MalwareModel:    filepath.Join(dir, "malware_rf_model.json"),
		MalwareFeatures: filepath.Join(dir, "malware_features.json"),
		SpamModel:       filepath.Join(dir, "spam_rf_model.json"),
		SpamVectorizer:  filepath.Join(dir, "spam_tfidf.json"),
		SpamKeywords:    filepath.Join(dir, "spam_keywords.json"),
	}
}

func TestLoadArtifacts(t *testing.T) {
	paths := writeArtifacts(t, 7+2+3)
	artifacts, err := LoadArtifacts(context.Background(), paths, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifacts.SpamColumns() != 12 {
		t.Fatalf("expected 12 spam columns, got %d", artifacts.SpamColumns())
	}
	if len(artifacts.MalwareFeatures) != 2 || artifacts.MalwareFeatures[0] != "map_count" {
		t.Fatalf("unexpected feature list: %v", artifacts.MalwareFeatures)
	}
}

func TestLoadArtifactsMissingFile(t *testing.T) {
	paths := writeArtifacts(t, 12)
	if err := os.Remove(paths.SpamKeywords); err != nil {
		t.Fatal(err)
	}
	_, err := LoadArtifacts(context.Background(), paths, nil)
	if err == nil || !strings.Contains(err.Error(), "spam_keywords") {
		t.Fatalf("expected error naming the missing artifact, got %v", err)
	}
}

func TestLoadArtifactsRejectsColumnMismatch(t *testing.T) {
	paths := writeArtifacts(t, 11)
	if _, err := LoadArtifacts(context.Background(), paths, nil); err == nil {
		t.Fatal("expected schema error when spam model width disagrees with produced columns")
	}
}

func TestNewArtifactsSchemaChecks(t *testing.T) {
	a := testArtifacts(t)

	if _, err := NewArtifacts(a.MalwareModel, []string{"task_size", "map_count", "gpu_load"}, a.SpamModel, a.SpamVectorizer, a.SpamKeywords); err == nil {
		t.Fatal("expected error for feature the request schema cannot provide")
	}
	if _, err := NewArtifacts(a.MalwareModel, []string{"task_size", "map_count"}, a.SpamModel, a.SpamVectorizer, a.SpamKeywords); err == nil {
		t.Fatal("expected error for feature count mismatch")
	}

	multi, err := ml.NewRandomForest([]*ml.DecisionTree{
		{Nodes: []ml.TreeNode{leaf(1, 1, 1)}},
	}, []int{0, 1, 2}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewArtifacts(multi, a.MalwareFeatures, a.SpamModel, a.SpamVectorizer, a.SpamKeywords); err == nil {
		t.Fatal("expected error for non-binary model")
	}
}
