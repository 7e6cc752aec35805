// Package detector turns validated requests into model predictions for
// the malware and spam pipelines.
package detector

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"cyberml/ml"
)

const modelName = "Random Forest"

// Pipeline names, also used as metric and stream labels.
const (
	PipelineMalware = "malware"
	PipelineSpam    = "spam"
)

// Response labels indexed by class.
var (
	MalwareLabels = [2]string{"benign", "malware"}
	SpamLabels    = [2]string{"ham", "spam"}
)

// Prediction is the formatted outcome of one pipeline run.
type Prediction struct {
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Details       map[string]any     `json:"details,omitempty"`

	// Cached marks a spam result served from the memo cache.
	Cached bool `json:"-"`
}

type Options struct {
	// SpamCacheSize bounds the spam result cache; 0 disables it.
	SpamCacheSize int
}

// Service runs both pipelines against one immutable artifact set.
type Service struct {
	artifacts *Artifacts
	spamCache *lru.Cache[string, Prediction]
}

func NewService(artifacts *Artifacts, opts Options) (*Service, error) {
	if artifacts == nil {
		return nil, fmt.Errorf("artifacts are required")
	}
	s := &Service{artifacts: artifacts}
	if opts.SpamCacheSize > 0 {
		cache, err := lru.New[string, Prediction](opts.SpamCacheSize)
		if err != nil {
			return nil, err
		}
		s.spamCache = cache
	}
	return s, nil
}

func (s *Service) Artifacts() *Artifacts {
	return s.artifacts
}

// PredictMalware aligns the record to the fitted feature order and
// classifies it.
func (s *Service) PredictMalware(ctx context.Context, record MalwareRecord) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, Wrap(KindPipeline, "malware", "request cancelled", err)
	}
	row, err := AlignFeatures(record.Values(), s.artifacts.MalwareFeatures)
	if err != nil {
		return Prediction{}, Wrap(KindPipeline, "malware.align", "feature alignment failed", err)
	}
	result, err := ml.Classify(s.artifacts.MalwareModel, row)
	if err != nil {
		return Prediction{}, Wrap(KindPipeline, "malware.predict", "inference failed", err)
	}
	p := format(result, MalwareLabels)
	p.Details = map[string]any{
		"feature_count": len(s.artifacts.MalwareFeatures),
		"model":         modelName,
	}
	return p, nil
}

// PredictSpam extracts manual features, appends the vectorized text and
// classifies the combined row.
func (s *Service) PredictSpam(ctx context.Context, record SpamRecord) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, Wrap(KindPipeline, "spam", "request cancelled", err)
	}
	text := record.EmailText
	if s.spamCache != nil {
		if p, ok := s.spamCache.Get(text); ok {
			p.Cached = true
			return p, nil
		}
	}

	manual := ExtractSpamFeatures(text, s.artifacts.SpamKeywords)
	row := CombineSpamFeatures(manual, s.artifacts.SpamVectorizer.Transform(text))
	result, err := ml.Classify(s.artifacts.SpamModel, row)
	if err != nil {
		return Prediction{}, Wrap(KindPipeline, "spam.predict", "inference failed", err)
	}
	p := format(result, SpamLabels)
	p.Details = map[string]any{
		"email_length": len([]rune(text)),
		"word_count":   len(strings.Fields(text)),
		"model":        modelName,
	}
	if s.spamCache != nil {
		s.spamCache.Add(text, p)
	}
	return p, nil
}

// format maps class index 0 to the negative label and 1 to the positive
// one; models are checked at load to have exactly classes [0 1].
func format(result ml.Result, labels [2]string) Prediction {
	return Prediction{
		Prediction: labels[result.Index],
		Confidence: result.Confidence(),
		Probabilities: map[string]float64{
			labels[0]: result.Probabilities[0],
			labels[1]: result.Probabilities[1],
		},
	}
}
