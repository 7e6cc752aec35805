package ml

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// wordToken matches runs of two or more Unicode word characters, the
// same tokens a default scikit-learn vectorizer produces.
var wordToken = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// TfidfConfig is the exported state of a fitted term-frequency vectorizer.
type TfidfConfig struct {
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	Lowercase   bool           `json:"lowercase"`
	NgramRange  [2]int         `json:"ngram_range"`
	SublinearTF bool           `json:"sublinear_tf"`
	UseIDF      bool           `json:"use_idf"`
	Norm        string         `json:"norm"`
	StopWords   []string       `json:"stop_words"`
	MaxFeatures int            `json:"max_features"`
}

// DefaultTfidfConfig mirrors the vectorizer defaults; exported files only
// need to carry what differs.
func DefaultTfidfConfig() TfidfConfig {
	return TfidfConfig{
		Lowercase:  true,
		NgramRange: [2]int{1, 1},
		UseIDF:     true,
		Norm:       "l2",
	}
}

type TfidfVectorizer struct {
	cfg       TfidfConfig
	stopWords map[string]struct{}
	dims      int
}

func NewTfidfVectorizer(cfg TfidfConfig) (*TfidfVectorizer, error) {
	if len(cfg.Vocabulary) == 0 {
		return nil, errors.New("vectorizer vocabulary is empty")
	}
	if cfg.NgramRange[0] < 1 || cfg.NgramRange[1] < cfg.NgramRange[0] {
		return nil, fmt.Errorf("invalid ngram range %v", cfg.NgramRange)
	}
	switch cfg.Norm {
	case "l1", "l2", "", "none":
	default:
		return nil, fmt.Errorf("unsupported norm %q", cfg.Norm)
	}

	dims := len(cfg.Vocabulary)
	for term, idx := range cfg.Vocabulary {
		if idx < 0 || idx >= dims {
			return nil, fmt.Errorf("vocabulary term %q has column %d outside [0,%d)", term, idx, dims)
		}
	}
	if cfg.UseIDF && len(cfg.IDF) != dims {
		return nil, fmt.Errorf("idf has %d weights for %d vocabulary terms", len(cfg.IDF), dims)
	}

	stop := make(map[string]struct{}, len(cfg.StopWords))
	for _, w := range cfg.StopWords {
		stop[w] = struct{}{}
	}
	return &TfidfVectorizer{cfg: cfg, stopWords: stop, dims: dims}, nil
}

// Dimension is the number of output columns.
func (v *TfidfVectorizer) Dimension() int {
	return v.dims
}

// MaxFeatures reports the vocabulary cap used at fit time, or the actual
// vocabulary size when no cap was set.
func (v *TfidfVectorizer) MaxFeatures() int {
	if v.cfg.MaxFeatures > 0 {
		return v.cfg.MaxFeatures
	}
	return v.dims
}

// Transform maps one document to a dense row of Dimension() columns.
func (v *TfidfVectorizer) Transform(text string) []float64 {
	doc := text
	if v.cfg.Lowercase {
		doc = Lower(doc)
	}

	tokens := wordToken.FindAllString(doc, -1)
	if len(v.stopWords) > 0 {
		kept := tokens[:0]
		for _, tok := range tokens {
			if _, ok := v.stopWords[tok]; !ok {
				kept = append(kept, tok)
			}
		}
		tokens = kept
	}

	counts := make(map[int]float64)
	for n := v.cfg.NgramRange[0]; n <= v.cfg.NgramRange[1]; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			term := tokens[i]
			if n > 1 {
				term = strings.Join(tokens[i:i+n], " ")
			}
			if idx, ok := v.cfg.Vocabulary[term]; ok {
				counts[idx]++
			}
		}
	}

	row := make([]float64, v.dims)
	for idx, tf := range counts {
		if v.cfg.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		if v.cfg.UseIDF {
			tf *= v.cfg.IDF[idx]
		}
		row[idx] = tf
	}
	normalize(row, v.cfg.Norm)
	return row
}

func normalize(row []float64, norm string) {
	var total float64
	switch norm {
	case "l2":
		for _, x := range row {
			total += x * x
		}
		total = math.Sqrt(total)
	case "l1":
		for _, x := range row {
			total += math.Abs(x)
		}
	default:
		return
	}
	if total == 0 {
		return
	}
	for i := range row {
		row[i] /= total
	}
}
