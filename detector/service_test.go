package detector

import (
	"context"
	"errors"
	"math"
	"testing"

	"cyberml/ml"
)

func assertWellFormed(t *testing.T, p Prediction, labels [2]string) {
	t.Helper()
	if len(p.Probabilities) != 2 {
		t.Fatalf("expected 2 probabilities, got %v", p.Probabilities)
	}
	neg, pos := p.Probabilities[labels[0]], p.Probabilities[labels[1]]
	if math.Abs(neg+pos-1) > 1e-9 {
		t.Fatalf("probabilities do not sum to 1: %v", p.Probabilities)
	}
	if p.Confidence != math.Max(neg, pos) {
		t.Fatalf("confidence %v is not the max probability %v", p.Confidence, p.Probabilities)
	}
	if p.Prediction != labels[0] && p.Prediction != labels[1] {
		t.Fatalf("unexpected label %q", p.Prediction)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", p.Confidence)
	}
}

func TestPredictMalwareAllZero(t *testing.T) {
	svc := testService(t, Options{})
	p, err := svc.PredictMalware(context.Background(), decodeMalware(t, malwareBody(t, 0, nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertWellFormed(t, p, MalwareLabels)
	if p.Prediction != "benign" || math.Abs(p.Confidence-0.7) > 1e-9 {
		t.Fatalf("unexpected prediction: %+v", p)
	}
	if p.Details["feature_count"] != len(testMalwareFeatures) || p.Details["model"] != "Random Forest" {
		t.Fatalf("unexpected details: %v", p.Details)
	}
}

func TestPredictMalwarePositive(t *testing.T) {
	svc := testService(t, Options{})
	record := decodeMalware(t, malwareBody(t, 0, map[string]any{"map_count": 500, "task_size": 10000}))
	p, err := svc.PredictMalware(context.Background(), record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertWellFormed(t, p, MalwareLabels)
	if p.Prediction != "malware" || math.Abs(p.Probabilities["malware"]-0.8) > 1e-9 {
		t.Fatalf("unexpected prediction: %+v", p)
	}
}

func TestPredictMalwareMissingFieldIsPipelineError(t *testing.T) {
	svc := testService(t, Options{})
	// bypasses validation, so alignment is the one to notice
	_, err := svc.PredictMalware(context.Background(), MalwareRecord{})
	if !IsKind(err, KindPipeline) {
		t.Fatalf("expected pipeline error, got %v", err)
	}
	var derr *Error
	if !errors.As(err, &derr) || derr.Detail() == "" {
		t.Fatalf("expected a detail message, got %v", err)
	}
}

func TestPredictSpam(t *testing.T) {
	svc := testService(t, Options{})

	p, err := svc.PredictSpam(context.Background(), SpamRecord{EmailText: "Get your FREE money now, winner!"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertWellFormed(t, p, SpamLabels)
	if p.Prediction != "spam" || math.Abs(p.Confidence-0.8) > 1e-9 {
		t.Fatalf("unexpected prediction: %+v", p)
	}
	if p.Details["word_count"] != 6 || p.Details["email_length"] != 32 {
		t.Fatalf("unexpected details: %v", p.Details)
	}

	p, err = svc.PredictSpam(context.Background(), SpamRecord{EmailText: "Meeting notes for tomorrow"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertWellFormed(t, p, SpamLabels)
	if p.Prediction != "ham" || math.Abs(p.Probabilities["ham"]-0.9) > 1e-9 {
		t.Fatalf("unexpected prediction: %+v", p)
	}
}

func TestPredictSpamCache(t *testing.T) {
	svc := testService(t, Options{SpamCacheSize: 4})
	record := SpamRecord{EmailText: "free tickets for everyone"}

	first, err := svc.PredictSpam(context.Background(), record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Cached {
		t.Fatal("first call must not be a cache hit")
	}
	second, err := svc.PredictSpam(context.Background(), record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Cached {
		t.Fatal("second call should be served from cache")
	}
	if second.Prediction != first.Prediction || second.Confidence != first.Confidence {
		t.Fatalf("cached result differs: %+v vs %+v", second, first)
	}
}

func TestPredictCancelledContext(t *testing.T) {
	svc := testService(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.PredictSpam(ctx, SpamRecord{EmailText: "free money for you"}); !IsKind(err, KindPipeline) {
		t.Fatalf("expected pipeline error, got %v", err)
	}
}

type failingModel struct{}

func (failingModel) PredictProba([]float64) ([]float64, error) { return nil, errors.New("boom") }
func (failingModel) Classes() []int                            { return []int{0, 1} }
func (failingModel) NumFeatures() int                          { return 3 }

func TestPredictMalwareInferenceFailure(t *testing.T) {
	a := testArtifacts(t)
	broken, err := NewArtifacts(failingModel{}, a.MalwareFeatures, a.SpamModel, a.SpamVectorizer, a.SpamKeywords)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc, err := NewService(broken, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = svc.PredictMalware(context.Background(), decodeMalware(t, malwareBody(t, 0, nil)))
	var derr *Error
	if !errors.As(err, &derr) || derr.Kind != KindPipeline || derr.Detail() != "boom" {
		t.Fatalf("expected pipeline error carrying the model message, got %v", err)
	}
}

func TestModelsInfo(t *testing.T) {
	a := testArtifacts(t)
	features := MalwareFieldNames()[:7]
	model, err := ml.NewRandomForest([]*ml.DecisionTree{stump(0, 1, []float64{1, 0}, []float64{0, 1})}, []int{0, 1}, len(features))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wide, err := NewArtifacts(model, features, a.SpamModel, a.SpamVectorizer, a.SpamKeywords)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc, err := NewService(wide, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info := svc.ModelsInfo()
	if info.Malware.Features != 7 || len(info.Malware.FeatureNames) != 6 || info.Malware.FeatureNames[5] != "..." {
		t.Fatalf("unexpected malware info: %+v", info.Malware)
	}
	if info.Spam.ManualFeatures != 7+len(testKeywords) || info.Spam.TfidfFeatures != 2 || info.Spam.Estimators != 1 {
		t.Fatalf("unexpected spam info: %+v", info.Spam)
	}
}
