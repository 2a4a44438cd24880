package workflow

import (
	"testing"

	"quill/api/internal/store"
)

func analysisFixture() store.AIAnalysisResult {
	return store.AIAnalysisResult{
		Sentiment:        "positive",
		Topics:           []string{"go", "testing", "apis"},
		ReadabilityScore: 75,
		QualityScore:     85,
	}
}

func recommendationTypes(recommendations []store.Recommendation) []string {
	types := make([]string, 0, len(recommendations))
	for _, rec := range recommendations {
		types = append(types, rec.Type)
	}
	return types
}

func TestRecommendHighQualityPositive(t *testing.T) {
	recommendations := BuildRecommendations(analysisFixture())
	if len(recommendations) != 1 {
		t.Fatalf("expected only the publish entry, got %v", recommendationTypes(recommendations))
	}
	if recommendations[0].Type != "publish" || recommendations[0].Priority != "high" {
		t.Errorf("got %s/%s, want publish/high", recommendations[0].Type, recommendations[0].Priority)
	}
}

func TestRecommendHighQualityNonPositiveSentiment(t *testing.T) {
	analysis := analysisFixture()
	analysis.Sentiment = "neutral"
	recommendations := BuildRecommendations(analysis)
	if recommendations[0].Type != "publish" || recommendations[0].Priority != "medium" {
		t.Errorf("quality 85 with neutral sentiment should yield publish/medium, got %s/%s",
			recommendations[0].Type, recommendations[0].Priority)
	}
}

func TestRecommendLowQualityNeedsReview(t *testing.T) {
	analysis := analysisFixture()
	analysis.QualityScore = 40
	recommendations := BuildRecommendations(analysis)
	if recommendations[0].Type != "review" || recommendations[0].Priority != "high" {
		t.Errorf("got %s/%s, want review/high", recommendations[0].Type, recommendations[0].Priority)
	}
}

func TestRecommendWeaknessesAddImproveEntry(t *testing.T) {
	analysis := analysisFixture()
	analysis.Weaknesses = []string{"thin conclusion"}
	recommendations := BuildRecommendations(analysis)
	if len(recommendations) != 2 || recommendations[1].Type != "improve" {
		t.Fatalf("expected publish + improve, got %v", recommendationTypes(recommendations))
	}
	if recommendations[1].Priority != "medium" {
		t.Errorf("improve priority at quality 85 = %s, want medium", recommendations[1].Priority)
	}

	analysis.QualityScore = 55
	recommendations = BuildRecommendations(analysis)
	improve := recommendations[1]
	if improve.Type != "improve" || improve.Priority != "high" {
		t.Errorf("improve priority below quality 60 = %s/%s, want improve/high", improve.Type, improve.Priority)
	}
}

func TestRecommendLowReadabilityAndFewTopics(t *testing.T) {
	analysis := analysisFixture()
	analysis.ReadabilityScore = 45
	analysis.Topics = []string{"go"}
	recommendations := BuildRecommendations(analysis)

	types := recommendationTypes(recommendations)
	if len(types) != 3 || types[1] != "optimize" || types[2] != "optimize" {
		t.Fatalf("expected publish + two optimize entries, got %v", types)
	}
	if recommendations[1].Title != "Improve Readability" {
		t.Errorf("first optimize = %q", recommendations[1].Title)
	}
	if recommendations[2].Priority != "low" {
		t.Errorf("topic coverage priority = %s, want low", recommendations[2].Priority)
	}
}

func TestRecommendNoTopicsSkipsCoverageEntry(t *testing.T) {
	analysis := analysisFixture()
	analysis.Topics = []string{}
	recommendations := BuildRecommendations(analysis)
	for _, rec := range recommendations {
		if rec.Title == "Expand Topic Coverage" {
			t.Error("zero topics must not trigger the coverage entry")
		}
	}
}

func TestRecommendIsPureUpToIDs(t *testing.T) {
	first := BuildRecommendations(analysisFixture())
	second := BuildRecommendations(analysisFixture())
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Type != second[i].Type || first[i].Priority != second[i].Priority || first[i].Title != second[i].Title {
			t.Errorf("entry %d differs between identical inputs", i)
		}
	}
}
