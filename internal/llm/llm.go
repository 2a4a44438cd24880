// Package llm wraps the external completion API used by the analysis and
// improvement stages.
package llm

import "context"

// Client abstracts the completion API so stages can be tested with fakes.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Prompt is a single system+user exchange.
type Prompt struct {
	System string
	User   string
}

// Settings holds provider configuration.
type Settings struct {
	Model   string
	APIKey  string
	BaseURL string
}
