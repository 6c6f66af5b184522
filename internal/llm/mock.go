package llm

import (
	"context"
	"strings"
)

// MockClient is a configurable LLM client for testing.
// Set the response fields to control what each method returns.
type MockClient struct {
	CompleteResponse string
	CompleteError    error
	MergeResponse    string
	MergeError       error

	// Call tracking for assertions
	CompleteCalls []struct{ Prompt, SystemPrompt string }
	MergeCalls    [][]string
}

func NewMockClient() *MockClient {
	return &MockClient{
		CompleteResponse: "Mock completion",
	}
}

func (c *MockClient) Complete(_ context.Context, prompt, systemPrompt string) (string, error) {
	c.CompleteCalls = append(c.CompleteCalls, struct{ Prompt, SystemPrompt string }{prompt, systemPrompt})
	if c.CompleteError != nil {
		return "", c.CompleteError
	}
	return c.CompleteResponse, nil
}

func (c *MockClient) MergeMemories(_ context.Context, contents []string) (string, error) {
	c.MergeCalls = append(c.MergeCalls, contents)
	if c.MergeError != nil {
		return "", c.MergeError
	}
	if c.MergeResponse != "" {
		return c.MergeResponse, nil
	}
	return strings.Join(contents, "; "), nil
}

// Reset clears all recorded calls and resets responses to defaults.
func (c *MockClient) Reset() {
	c.CompleteResponse = "Mock completion"
	c.CompleteError = nil
	c.MergeResponse = ""
	c.MergeError = nil
	c.CompleteCalls = nil
	c.MergeCalls = nil
}
