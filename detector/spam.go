package detector

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"cyberml/ml"
)

// SpamRecord is the body of a spam prediction request.
type SpamRecord struct {
	EmailText string `json:"email_text" validate:"required,min=10"`
}

// manualFeatureNames are the fixed leading columns of every spam row.
var manualFeatureNames = []string{
	"char_count",
	"word_count",
	"avg_word_length",
	"exclamation_count",
	"question_count",
	"dollar_count",
	"caps_count",
}

// FeatureRow is one named row of model input.
type FeatureRow struct {
	Names  []string
	Values []float64
}

// Get returns the value of a named column.
func (r FeatureRow) Get(name string) (float64, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Values[i], true
		}
	}
	return 0, false
}

// SpamFeatureNames lists the manual columns for a keyword list: the seven
// text statistics followed by one has_<keyword> flag per keyword.
func SpamFeatureNames(keywords []string) []string {
	names := make([]string, 0, len(manualFeatureNames)+len(keywords))
	names = append(names, manualFeatureNames...)
	for _, kw := range keywords {
		names = append(names, "has_"+kw)
	}
	return names
}

// ExtractSpamFeatures derives the manual feature row from raw text. It is
// total: every input yields len(manualFeatureNames)+len(keywords) columns.
func ExtractSpamFeatures(text string, keywords []string) FeatureRow {
	charCount := utf8.RuneCountInString(text)
	wordCount := len(strings.Fields(text))
	avgWordLength := 0.0
	if wordCount > 0 {
		avgWordLength = float64(charCount) / float64(wordCount)
	}

	capsCount := 0
	for _, r := range text {
		if unicode.IsUpper(r) {
			capsCount++
		}
	}

	values := make([]float64, 0, len(manualFeatureNames)+len(keywords))
	values = append(values,
		float64(charCount),
		float64(wordCount),
		avgWordLength,
		float64(strings.Count(text, "!")),
		float64(strings.Count(text, "?")),
		float64(strings.Count(text, "$")),
		float64(capsCount),
	)

	lowered := ml.Lower(text)
	for _, kw := range keywords {
		flag := 0.0
		if strings.Contains(lowered, ml.Lower(kw)) {
			flag = 1
		}
		values = append(values, flag)
	}

	return FeatureRow{Names: SpamFeatureNames(keywords), Values: values}
}

// CombineSpamFeatures appends the vectorizer columns after the manual
// ones. The classifier was fitted with manual features first.
func CombineSpamFeatures(manual FeatureRow, tfidf []float64) []float64 {
	row := make([]float64, 0, len(manual.Values)+len(tfidf))
	row = append(row, manual.Values...)
	return append(row, tfidf...)
}
