package service

import "context"

// Embedder turns text into embedding vectors. Implementations batch
// internally where the provider allows it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}
