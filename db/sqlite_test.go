package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndQueryPredictions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	records := []PredictionRecord{
		{RequestID: "a", Pipeline: "spam", Label: "ham", Confidence: 0.9, ProbNegative: 0.9, ProbPositive: 0.1, InputSize: 42, CreatedAt: base},
		{RequestID: "b", Pipeline: "malware", Label: "malware", Confidence: 0.7, ProbNegative: 0.3, ProbPositive: 0.7, InputSize: 31, CreatedAt: base.Add(time.Minute)},
		{RequestID: "c", Pipeline: "spam", Label: "spam", Confidence: 0.8, ProbNegative: 0.2, ProbPositive: 0.8, InputSize: 17, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range records {
		if err := store.SavePrediction(ctx, r); err != nil {
			t.Fatalf("save %s: %v", r.RequestID, err)
		}
	}

	got, err := store.RecentPredictions(ctx, 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].RequestID != "c" || got[1].RequestID != "b" {
		t.Fatalf("expected newest first, got %s then %s", got[0].RequestID, got[1].RequestID)
	}
	if got[1].Label != "malware" || got[1].ProbPositive != 0.7 || got[1].InputSize != 31 {
		t.Fatalf("unexpected record: %+v", got[1])
	}
}

func TestSavePredictionValidation(t *testing.T) {
	store := openTestStore(t)
	if err := store.SavePrediction(context.Background(), PredictionRecord{Pipeline: "spam"}); err == nil {
		t.Fatal("expected error for missing label")
	}
	if _, err := store.RecentPredictions(context.Background(), 0); err == nil {
		t.Fatal("expected error for non-positive limit")
	}

	var nilStore *Store
	if err := nilStore.SavePrediction(context.Background(), PredictionRecord{Pipeline: "spam", Label: "ham"}); err == nil {
		t.Fatal("expected error for nil store")
	}
}
