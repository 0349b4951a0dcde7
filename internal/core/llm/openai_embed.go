package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	oaioption "github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"github.com/markdave123-py/Memora/internal/core"
)

type OpenAIEmbedder struct {
	client    openai.Client
	modelName string
	dim       int
	limiter   *rate.Limiter
}

var _ core.EmbeddingProvider = (*OpenAIEmbedder)(nil)

func NewOpenAIEmbedder(apiKey, modelName string, dim int, limiter *rate.Limiter) *OpenAIEmbedder {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if modelName == "" {
		modelName = "text-embedding-3-small"
	}
	return &OpenAIEmbedder{
		client:    openai.NewClient(oaioption.WithAPIKey(apiKey)),
		modelName: modelName,
		dim:       dim,
		limiter:   limiter,
	}
}

func (o *OpenAIEmbedder) Name() string { return "openai" }

func (o *OpenAIEmbedder) Dimensions() int { return o.dim }

func (o *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(o.modelName),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}

	out := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}
