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

type OpenAILLM struct {
	client    openai.Client
	modelName string
	limiter   *rate.Limiter
}

var _ core.LLMProvider = (*OpenAILLM)(nil)

func NewOpenAILLM(apiKey, modelName string, limiter *rate.Limiter) *OpenAILLM {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	return &OpenAILLM{
		client:    openai.NewClient(oaioption.WithAPIKey(apiKey)),
		modelName: modelName,
		limiter:   limiter,
	}
}

func (o *OpenAILLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(o.modelName),
	})
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
