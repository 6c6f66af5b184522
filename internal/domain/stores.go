package domain

import "context"

// EmbeddingClient converts text into a vector. Implementations return an
// error (or a nil vector) on failure; callers treat either as "skip semantic
// scoring for this item" rather than failing the recall.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LLMClient is the completion boundary. Only consolidation needs it; the
// graph and recall pipeline are correct without one.
type LLMClient interface {
	Complete(ctx context.Context, prompt, systemPrompt string) (string, error)
	// MergeMemories asks the model to fold several near-duplicate memory
	// contents into a single summary of at most ~100 characters.
	MergeMemories(ctx context.Context, contents []string) (string, error)
}

// GraphStore is the persistence boundary. The engine operates purely on the
// in-memory graph and exchanges whole snapshots at checkpoints; when those
// checkpoints happen is caller policy, not a store invariant.
type GraphStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Close() error
}
