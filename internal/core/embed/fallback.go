package embed

import (
	"context"
	"crypto/md5"

	"github.com/markdave123-py/Memora/internal/core"
)

// FallbackName is recorded as the embedding source on chunks that were
// embedded locally instead of by the configured provider.
const FallbackName = "fallback"

// FallbackProvider produces deterministic pseudo-embeddings from an md5
// digest of the text. The vectors carry no semantic meaning; they exist so
// ingestion can finish when the real provider is down, and so the same text
// always maps to the same vector.
type FallbackProvider struct {
	dim int
}

var _ core.EmbeddingProvider = (*FallbackProvider)(nil)

func NewFallbackProvider(dim int) *FallbackProvider {
	return &FallbackProvider{dim: dim}
}

func (f *FallbackProvider) Name() string { return FallbackName }

func (f *FallbackProvider) Dimensions() int { return f.dim }

func (f *FallbackProvider) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		digest := md5.Sum([]byte(text))
		vec := make([]float32, f.dim)
		for j := range vec {
			vec[j] = float32(digest[j%len(digest)]) / 255.0
		}
		out[i] = vec
	}
	return out, nil
}
