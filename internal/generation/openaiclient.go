package generation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"ragcore/internal/ragtype"
)

// pricing is an approximate per-1k-token USD cost table used to report
// cost_usd when the provider's usage payload does not carry pricing.
var pricing = map[string]struct{ in, out float64 }{
	"fast-model":     {0.00015, 0.0006},
	"standard-model": {0.0025, 0.01},
	"complex-model":  {0.01, 0.03},
}

// OpenAIClient implements LLMClient against the OpenAI chat completions API.
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient builds a client. apiKey falls back to OPENAI_API_KEY.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return &OpenAIClient{client: openai.NewClient(option.WithAPIKey(apiKey))}
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (ragtype.Generation, error) {
	if err := ctx.Err(); err != nil {
		return ragtype.Generation{}, &ragtype.CancelledError{Stage: ragtype.StageGeneration}
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.ModelID),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(buildUserPrompt(req.Context, req.Question)),
		},
	}
	if req.Limits.Temperature > 0 {
		params.Temperature = openai.Float(req.Limits.Temperature)
	}
	if req.Limits.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.Limits.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ragtype.Generation{}, &ragtype.CancelledError{Stage: ragtype.StageGeneration}
		}
		return ragtype.Generation{}, &ragtype.GenerationFailedError{Cause: err}
	}
	if len(completion.Choices) == 0 {
		return ragtype.Generation{}, &ragtype.GenerationFailedError{Cause: fmt.Errorf("no choices returned")}
	}

	choice := completion.Choices[0]
	tokensIn := int(completion.Usage.PromptTokens)
	tokensOut := int(completion.Usage.CompletionTokens)

	return ragtype.Generation{
		AnswerText:   choice.Message.Content,
		ModelID:      req.ModelID,
		TokensIn:     tokensIn,
		TokensOut:    tokensOut,
		CostUSD:      estimateCost(req.ModelID, tokensIn, tokensOut),
		FinishReason: string(choice.FinishReason),
	}, nil
}

func buildUserPrompt(context, question string) string {
	if context == "" {
		return question
	}
	return "Context:\n" + context + "\n\nQuestion:\n" + question
}

func estimateCost(modelID string, tokensIn, tokensOut int) float64 {
	p, ok := pricing[modelID]
	if !ok {
		return 0
	}
	return (float64(tokensIn)/1000)*p.in + (float64(tokensOut)/1000)*p.out
}
