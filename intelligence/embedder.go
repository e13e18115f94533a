package intelligence

import "context"

// Embedder turns text into a fixed-width embedding vector. llmclient
// implements this against the configured embedding model; tests supply a
// deterministic stub.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
