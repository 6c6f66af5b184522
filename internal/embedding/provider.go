package embedding

import (
	"fmt"

	"github.com/mnemora/mnemora/internal/domain"
)

const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// NewClient creates an embedding client for the named provider. baseURL
// overrides the API endpoint for OpenAI-compatible servers; empty means the
// default.
func NewClient(provider, apiKey, baseURL string) (domain.EmbeddingClient, error) {
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
		return nil, fmt.Errorf("unknown embedding provider: %s", provider)
	}
}
