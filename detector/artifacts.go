package detector

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cyberml/ml"
)

// ArtifactPaths locates the exported model files on disk.
type ArtifactPaths struct {
	MalwareModel    string
	MalwareFeatures string
	SpamModel       string
	SpamVectorizer  string
	SpamKeywords    string
}

// Artifacts is the process-wide model state. It is built once, checked
// against the request schemas, and never mutated afterwards, so any
// number of requests may read it concurrently.
type Artifacts struct {
	MalwareModel    ml.Classifier
	MalwareFeatures []string
	SpamModel       ml.Classifier
	SpamVectorizer  *ml.TfidfVectorizer
	SpamKeywords    []string
}

// NewArtifacts assembles already-loaded artifacts and enforces the
// column contracts between them.
func NewArtifacts(malwareModel ml.Classifier, malwareFeatures []string, spamModel ml.Classifier, vectorizer *ml.TfidfVectorizer, keywords []string) (*Artifacts, error) {
	a := &Artifacts{
		MalwareModel:    malwareModel,
		MalwareFeatures: slices.Clone(malwareFeatures),
		SpamModel:       spamModel,
		SpamVectorizer:  vectorizer,
		SpamKeywords:    slices.Clone(keywords),
	}
	if err := a.check(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Artifacts) check() error {
	if a.MalwareModel == nil || a.SpamModel == nil || a.SpamVectorizer == nil {
		return fmt.Errorf("model artifacts incomplete")
	}
	if err := CheckMalwareSchema(a.MalwareFeatures); err != nil {
		return err
	}
	if err := checkBinary("malware", a.MalwareModel); err != nil {
		return err
	}
	if err := checkBinary("spam", a.SpamModel); err != nil {
		return err
	}
	if n := a.MalwareModel.NumFeatures(); n != len(a.MalwareFeatures) {
		return fmt.Errorf("malware model expects %d features but feature list has %d", n, len(a.MalwareFeatures))
	}
	if n, want := a.SpamModel.NumFeatures(), a.SpamColumns(); n != want {
		return fmt.Errorf("spam model expects %d features but %d manual + %d vectorizer columns are produced",
			n, len(manualFeatureNames)+len(a.SpamKeywords), a.SpamVectorizer.Dimension())
	}
	return nil
}

// SpamColumns is the width of a combined spam row.
func (a *Artifacts) SpamColumns() int {
	return len(manualFeatureNames) + len(a.SpamKeywords) + a.SpamVectorizer.Dimension()
}

func checkBinary(name string, model ml.Classifier) error {
	if !slices.Equal(model.Classes(), []int{0, 1}) {
		return fmt.Errorf("%s model must have classes [0 1], got %v", name, model.Classes())
	}
	return nil
}

// LoadArtifacts reads all five artifacts concurrently. The first failure
// cancels the rest; there is no partial result.
func LoadArtifacts(ctx context.Context, paths ArtifactPaths, logger *zap.Logger) (*Artifacts, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		malwareModel    *ml.RandomForest
		malwareFeatures []string
		spamModel       *ml.RandomForest
		vectorizer      *ml.TfidfVectorizer
		keywords        []string
	)

	g, ctx := errgroup.WithContext(ctx)
	load := func(name, path string, fn func(string) error) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if path == "" {
				return fmt.Errorf("%s: no path configured", name)
			}
			if err := fn(path); err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			logger.Info("artifact loaded", zap.String("artifact", name), zap.String("path", path))
			return nil
		})
	}

	load("malware_model", paths.MalwareModel, func(p string) (err error) {
		malwareModel, err = ml.LoadModel(p)
		return err
	})
	load("malware_features", paths.MalwareFeatures, func(p string) (err error) {
		malwareFeatures, err = ml.LoadStringList(p)
		return err
	})
	load("spam_model", paths.SpamModel, func(p string) (err error) {
		spamModel, err = ml.LoadModel(p)
		return err
	})
	load("spam_vectorizer", paths.SpamVectorizer, func(p string) (err error) {
		vectorizer, err = ml.LoadVectorizer(p)
		return err
	})
	load("spam_keywords", paths.SpamKeywords, func(p string) (err error) {
		keywords, err = ml.LoadStringList(p)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	artifacts, err := NewArtifacts(malwareModel, malwareFeatures, spamModel, vectorizer, keywords)
	if err != nil {
		return nil, fmt.Errorf("artifact schema check: %w", err)
	}
	logger.Info("all models loaded",
		zap.Int("malware_features", len(artifacts.MalwareFeatures)),
		zap.Int("spam_columns", artifacts.SpamColumns()),
	)
	return artifacts, nil
}
