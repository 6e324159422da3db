package llm

import (
	"context"
	"fmt"

	"github.com/ppiankov/refcheck/internal/domain"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates a plain-language explanation of a validation
	// verdict with strict evidence mode
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization. The
// explainer never influences Status — it only narrates the evidence
// already collected for one ValidationResult.
type SummarizeRequest struct {
	// Reference is the original reference being explained.
	Reference domain.Reference

	// Result is the engine's finalised verdict for Reference.
	Result domain.ValidationResult

	// EvidenceURLs is the STRICT allowlist of URLs the LLM can cite.
	// This prevents hallucination - LLM cannot reference any URL not in this list
	EvidenceURLs []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	// Summary is the generated summary text
	Summary string

	// CitedURLs are the URLs the LLM actually cited (for verification)
	CitedURLs []string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictEvidence enforces URL allowlist (should always be true)
	StrictEvidence bool

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:       "", // Disabled by default
		Model:          "",
		Timeout:        30,
		StrictEvidence: true, // CRITICAL: Always enforce
		MaxTokens:      1000,
	}
}

// BuildPrompt constructs the default prompt for explaining a
// ValidationResult in strict evidence mode. The explainer describes
// the evidence the engine already gathered; it never re-derives or
// overrides Status.
func BuildPrompt(ref domain.Reference, result domain.ValidationResult, evidenceURLs []string) string {
	prompt := fmt.Sprintf(`You are explaining a reference-validation verdict. The verdict is already final - you NEVER assert or change it, you only narrate the evidence behind it.

CRITICAL RULES:
1. You MUST ONLY cite URLs from this allowed list:
%s

2. DO NOT infer, speculate, or cite external sources beyond this list.
3. If evidence is insufficient, state that explicitly rather than guessing.
4. Describe evidence, never assert ground truth. Use phrases like:
   - "%s reported a matching title with overlapping authors..."
   - "No backend returned a matching title..."
   - "The reported authors diverge from the reference's author list..."
5. Never claim the underlying paper does or does not exist - only describe what the backends returned.

Reference:
- Title: %s
- Authors: %v
- DOI: %s

Verdict: %s
- Source: %s
- Found authors: %v
- Failed backends: %v

Per-backend results:
`, joinURLs(evidenceURLs), result.Source, ref.Title, ref.Authors, ref.DOI, result.Status, result.Source, result.FoundAuthors, result.FailedDBs)

	for i, db := range result.DbResults {
		if i >= 5 {
			break
		}
		prompt += fmt.Sprintf("- %s: %s\n", db.Backend, db.Status)
	}

	prompt += "\nProvide a 3-4 sentence explanation focusing on what the evidence shows, not on certainty about the paper's existence."

	return prompt
}

// Helper functions

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "(No evidence URLs available)"
	}
	result := ""
	for i, url := range urls {
		if i >= 20 { // Limit to first 20 to avoid token bloat
			result += fmt.Sprintf("\n... and %d more URLs", len(urls)-20)
			break
		}
		result += fmt.Sprintf("\n- %s", url)
	}
	return result
}
