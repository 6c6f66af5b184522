package embedding

import (
	"context"
	"crypto/sha256"
	"math"
)

const mockDimensions = 32

// MockClient produces deterministic pseudo-embeddings from a content hash.
// Identical texts always embed identically, which is all the recall pipeline
// needs in tests and keyless deployments.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Embed(_ context.Context, text string) ([]float32, error) {
	digest := sha256.Sum256([]byte(text))

	vec := make([]float32, mockDimensions)
	var norm float64
	for i := range vec {
		// Spread each byte onto [-1, 1].
		v := float64(digest[i])/127.5 - 1.0
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}
