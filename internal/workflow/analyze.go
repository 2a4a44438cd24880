package workflow

import (
	"encoding/json"
	"strings"
	"time"

	"quill/api/internal/store"
)

const (
	defaultReadabilityScore = 50
	defaultQualityScore     = 50
	fallbackSummaryLength   = 200
)

// FallbackAnalysis is the deterministic analysis used when the model response
// cannot be parsed. It is computed cheaply from the raw body.
func FallbackAnalysis(body string) store.AIAnalysisResult {
	summary := body
	if runes := []rune(summary); len(runes) > fallbackSummaryLength {
		summary = string(runes[:fallbackSummaryLength]) + "..."
	}
	return store.AIAnalysisResult{
		Sentiment:        "neutral",
		Topics:           []string{},
		ReadabilityScore: defaultReadabilityScore,
		WordCount:        len(strings.Fields(body)),
		QualityScore:     defaultQualityScore,
		Summary:          summary,
		Strengths:        []string{},
		Weaknesses:       []string{},
		AnalyzedAt:       time.Now(),
	}
}

// ParseAnalysis overlays valid fields from the model's JSON onto the
// deterministic fallback. A completely unparsable response yields the
// fallback unchanged; individually missing or mistyped fields keep their
// fallback values. Scores are clamped to [0,100].
func ParseAnalysis(raw, body string) store.AIAnalysisResult {
	result := FallbackAnalysis(body)

	var wire map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return result
	}

	if sentiment, ok := decodeString(wire["sentiment"]); ok {
		switch sentiment {
		case "positive", "neutral", "negative":
			result.Sentiment = sentiment
		}
	}
	if topics, ok := decodeStringSlice(wire["topics"]); ok {
		result.Topics = topics
	}
	if score, ok := decodeFloat(wire["readabilityScore"]); ok {
		result.ReadabilityScore = clampScore(score)
	}
	if count, ok := decodeFloat(wire["wordCount"]); ok && count >= 0 {
		result.WordCount = int(count)
	}
	if score, ok := decodeFloat(wire["qualityScore"]); ok {
		result.QualityScore = clampScore(score)
	}
	if summary, ok := decodeString(wire["summary"]); ok && strings.TrimSpace(summary) != "" {
		result.Summary = summary
	}
	if strengths, ok := decodeStringSlice(wire["strengths"]); ok {
		result.Strengths = strengths
	}
	if weaknesses, ok := decodeStringSlice(wire["weaknesses"]); ok {
		result.Weaknesses = weaknesses
	}

	return result
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func decodeString(raw json.RawMessage) (string, bool) {
	if raw == nil {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

func decodeFloat(raw json.RawMessage) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false
	}
	return value, true
}

func decodeStringSlice(raw json.RawMessage) ([]string, bool) {
	if raw == nil {
		return nil, false
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false
	}
	if values == nil {
		values = []string{}
	}
	return values, true
}
