package llm

import (
	"fmt"

	"github.com/mnemora/mnemora/internal/domain"
)

const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// NewClient creates an LLM client based on the provider name. An empty
// provider returns a nil client, meaning consolidation falls back to the
// heuristic merge. baseURL overrides the API endpoint for OpenAI-compatible
// servers.
func NewClient(provider, apiKey, baseURL string) (domain.LLMClient, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIClient(apiKey, baseURL), nil
	case ProviderMock:
		return NewMockClient(), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (valid options: openai, mock)", provider)
	}
}
