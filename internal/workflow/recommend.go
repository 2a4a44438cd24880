package workflow

import (
	"strings"

	"quill/api/internal/store"
	"quill/api/internal/util"
)

// BuildRecommendations is a pure function of the analysis: the same input
// always yields the same set and priorities. Exactly one publish/review
// recommendation is produced; improve/optimize entries are additive.
func BuildRecommendations(analysis store.AIAnalysisResult) []store.Recommendation {
	recommendations := make([]store.Recommendation, 0, 4)

	switch {
	case analysis.QualityScore >= 80 && analysis.Sentiment == "positive":
		recommendations = append(recommendations, store.Recommendation{
			ID:          util.NewID("rec"),
			Type:        "publish",
			Title:       "Ready to Publish",
			Description: "Quality and sentiment scores indicate this content is ready for publication.",
			Priority:    "high",
			ActionableSteps: []string{
				"Do a final proofread",
				"Publish the content",
			},
		})
	case analysis.QualityScore >= 60:
		recommendations = append(recommendations, store.Recommendation{
			ID:          util.NewID("rec"),
			Type:        "publish",
			Title:       "Publish with Minor Edits",
			Description: "Content quality is acceptable; a light editing pass is recommended before publishing.",
			Priority:    "medium",
			ActionableSteps: []string{
				"Fix minor issues flagged in the analysis",
				"Publish after a quick review",
			},
		})
	default:
		recommendations = append(recommendations, store.Recommendation{
			ID:          util.NewID("rec"),
			Type:        "review",
			Title:       "Needs Review",
			Description: "Quality score is below the publishing threshold; a substantive review is required.",
			Priority:    "high",
			ActionableSteps: []string{
				"Review the weaknesses identified by the analysis",
				"Revise and resubmit the content",
			},
		})
	}

	if len(analysis.Weaknesses) > 0 {
		priority := "medium"
		if analysis.QualityScore < 60 {
			priority = "high"
		}
		recommendations = append(recommendations, store.Recommendation{
			ID:              util.NewID("rec"),
			Type:            "improve",
			Title:           "Address Content Weaknesses",
			Description:     "The analysis identified weaknesses: " + strings.Join(analysis.Weaknesses, "; "),
			Priority:        priority,
			ActionableSteps: append([]string{}, analysis.Weaknesses...),
		})
	}

	if analysis.ReadabilityScore < 60 {
		recommendations = append(recommendations, store.Recommendation{
			ID:          util.NewID("rec"),
			Type:        "optimize",
			Title:       "Improve Readability",
			Description: "Readability score is low; shorter sentences and simpler wording would help.",
			Priority:    "medium",
			ActionableSteps: []string{
				"Break up long sentences",
				"Replace jargon with plain language",
			},
		})
	}

	if len(analysis.Topics) > 0 && len(analysis.Topics) < 3 {
		recommendations = append(recommendations, store.Recommendation{
			ID:          util.NewID("rec"),
			Type:        "optimize",
			Title:       "Expand Topic Coverage",
			Description: "The content covers few topics; broadening coverage could improve reach.",
			Priority:    "low",
			ActionableSteps: []string{
				"Identify adjacent topics worth covering",
				"Add a section for each new topic",
			},
		})
	}

	return recommendations
}
