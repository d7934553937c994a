package generator

import "context"

// LLMClient is one logical call to the text-generation backend. It knows nothing
// about retries or fallback; FallbackSelector owns that.
type LLMClient interface {
	Complete(ctx context.Context, model string, prompt Prompt) (string, error)
}

// LLMSettings is the base configuration handed to concrete clients.
type LLMSettings struct {
	Provider string
	APIKey   string
	BaseURL  string
}

// ModelTiers holds the ordered model candidates per call site, cheapest first.
type ModelTiers struct {
	Planning []string
	Drafting []string
	Critique []string
	Repair   []string
	// Conservative is tried once a primary tier is exhausted.
	Conservative []string
}
