package core

import "context"

// EmbeddingProvider turns texts into fixed-dimension vectors. Implementations
// must return one vector per input text, in input order, each of exactly the
// dimension they were configured with.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// Name labels vectors for provenance (e.g. "gemini", "openai").
	Name() string
	// Dimensions reports the vector length this provider produces.
	Dimensions() int
}

// LLMProvider is a stateless text-completion capability.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
