package llm

import (
	"strings"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"ok": true}`, `{"ok": true}`},
		{"plain fence", "```\nA better body.\n```", "A better body."},
		{"json tag", "```json\n{\"qualityScore\": 80}\n```", `{"qualityScore": 80}`},
		{"tag with surrounding whitespace", "  ```json\n{}\n```  ", "{}"},
		{"payload on the fence line", "```{\"a\": 1}\n```", `{"a": 1}`},
		{"multiline body", "```\nline one\nline two\n```", "line one\nline two"},
		{"unterminated fence", "```json\n{\"a\": 1}", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildAnalysisPrompt(t *testing.T) {
	prompt := BuildAnalysisPrompt("My Title", "The body.", "en")
	for _, field := range []string{"sentiment", "topics", "readabilityScore", "wordCount", "qualityScore", "summary", "strengths", "weaknesses"} {
		if !strings.Contains(prompt.System, field) {
			t.Errorf("system prompt missing field %q", field)
		}
	}
	if !strings.Contains(prompt.User, "My Title") || !strings.Contains(prompt.User, "The body.") {
		t.Errorf("user prompt = %q", prompt.User)
	}
	if !strings.Contains(prompt.User, "en") {
		t.Error("user prompt must carry the language")
	}
}

func TestBuildImprovementPromptCarriesAnalysis(t *testing.T) {
	prompt := BuildImprovementPrompt("My Title", "The body.",
		[]string{"clear structure"}, []string{"weak conclusion"})
	if !strings.Contains(prompt.System, "weak conclusion") {
		t.Error("weaknesses must be listed")
	}
	if !strings.Contains(prompt.System, "clear structure") {
		t.Error("strengths must be listed")
	}

	bare := BuildImprovementPrompt("My Title", "The body.", nil, nil)
	if strings.Contains(bare.System, "weaknesses") || strings.Contains(bare.System, "strengths") {
		t.Error("empty analysis must not add sections")
	}
}
