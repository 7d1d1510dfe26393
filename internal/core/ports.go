package core

import "context"

// CorpusFetcher retrieves a repository's content as one corpus text.
type CorpusFetcher interface {
	FetchCorpus(ctx context.Context, owner, name string) (string, error)
}

// Embedder maps text to fixed-dimension vectors.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator invokes the text-generation service.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	GenerateTitle(ctx context.Context, basisContent string) (string, error)
}
