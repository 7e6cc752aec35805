package detector

type MalwareModelInfo struct {
	ModelType    string   `json:"model_type"`
	Features     int      `json:"features"`
	FeatureNames []string `json:"feature_names"`
	Estimators   int      `json:"n_estimators,omitempty"`
}

type SpamModelInfo struct {
	ModelType      string   `json:"model_type"`
	TfidfFeatures  int      `json:"tfidf_features"`
	ManualFeatures int      `json:"manual_features"`
	Keywords       []string `json:"keywords"`
	Estimators     int      `json:"n_estimators,omitempty"`
}

type ModelsInfo struct {
	Malware MalwareModelInfo `json:"malware"`
	Spam    SpamModelInfo    `json:"spam"`
}

type estimatorCounter interface {
	NumEstimators() int
}

// ModelsInfo summarizes the loaded artifacts. Only the first five malware
// feature names are listed.
func (s *Service) ModelsInfo() ModelsInfo {
	a := s.artifacts
	preview := a.MalwareFeatures
	if len(preview) > 5 {
		preview = append(append([]string{}, preview[:5]...), "...")
	}
	return ModelsInfo{
		Malware: MalwareModelInfo{
			ModelType:    modelName,
			Features:     len(a.MalwareFeatures),
			FeatureNames: preview,
			Estimators:   estimators(a.MalwareModel),
		},
		Spam: SpamModelInfo{
			ModelType:      modelName,
			TfidfFeatures:  a.SpamVectorizer.MaxFeatures(),
			ManualFeatures: len(manualFeatureNames) + len(a.SpamKeywords),
			Keywords:       a.SpamKeywords,
			Estimators:     estimators(a.SpamModel),
		},
	}
}

func estimators(model any) int {
	if c, ok := model.(estimatorCounter); ok {
		return c.NumEstimators()
	}
	return 0
}
