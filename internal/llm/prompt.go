package llm

import (
	"fmt"
	"strings"
)

// BuildAnalysisPrompt asks the model for a structured JSON assessment of the
// submitted body. The shape must match store.AIAnalysisResult.
func BuildAnalysisPrompt(title, body, language string) Prompt {
	var sb strings.Builder
	sb.WriteString("Analyze the following content and respond with a single JSON object, no prose.\n")
	sb.WriteString("Fields:\n")
	sb.WriteString("- sentiment: \"positive\", \"neutral\" or \"negative\"\n")
	sb.WriteString("- topics: array of up to 5 topic strings\n")
	sb.WriteString("- readabilityScore: number 0-100\n")
	sb.WriteString("- wordCount: number\n")
	sb.WriteString("- qualityScore: number 0-100\n")
	sb.WriteString("- summary: one or two sentences\n")
	sb.WriteString("- strengths: array of strings\n")
	sb.WriteString("- weaknesses: array of strings\n")

	user := fmt.Sprintf("Title: %s\nLanguage: %s\n\n%s", title, language, body)

	return Prompt{
		System: sb.String(),
		User:   user,
	}
}

// BuildImprovementPrompt asks for a rewrite of the body, steered by the prior
// analysis so the model addresses known weaknesses without losing strengths.
func BuildImprovementPrompt(title, body string, strengths, weaknesses []string) Prompt {
	var sb strings.Builder
	sb.WriteString("You are an editor. Rewrite the content to improve quality and readability.\n")
	sb.WriteString("Keep the author's voice and the original meaning. Output only the rewritten body.\n")
	if len(weaknesses) > 0 {
		sb.WriteString("Address these weaknesses:\n")
		for _, w := range weaknesses {
			sb.WriteString("- " + w + "\n")
		}
	}
	if len(strengths) > 0 {
		sb.WriteString("Preserve these strengths:\n")
		for _, st := range strengths {
			sb.WriteString("- " + st + "\n")
		}
	}

	user := fmt.Sprintf("Title: %s\n\n%s", title, body)

	return Prompt{
		System: sb.String(),
		User:   user,
	}
}

// StripFences removes a wrapping markdown code fence from a model response.
// Models frequently wrap JSON or rewritten text in ```...``` despite
// instructions not to.
func StripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop a language tag like "json" on the opening fence.
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		first := strings.TrimSpace(trimmed[:idx])
		if first != "" && !strings.ContainsAny(first, " \t{[") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
