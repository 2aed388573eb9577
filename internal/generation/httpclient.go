package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ragcore/internal/ragtype"
)

// HTTPClient implements LLMClient against any HTTP endpoint exposing a
// minimal {prompt, model, max_tokens, temperature} -> {text, usage} contract,
// for non-OpenAI-compatible model servers (self-hosted tiers, internal
// gateways).
type HTTPClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient builds a client with a bounded request timeout; the
// per-request deadline from RequestContext further bounds the call via ctx.
func NewHTTPClient(endpoint, apiKey string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type httpGenerateRequest struct {
	Model       string  `json:"model"`
	System      string  `json:"system"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type httpGenerateResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
	Usage        struct {
		PromptTokens     int     `json:"prompt_tokens"`
		CompletionTokens int     `json:"completion_tokens"`
		CostUSD          float64 `json:"cost_usd"`
	} `json:"usage"`
}

func (c *HTTPClient) Generate(ctx context.Context, req Request) (ragtype.Generation, error) {
	if err := ctx.Err(); err != nil {
		return ragtype.Generation{}, &ragtype.CancelledError{Stage: ragtype.StageGeneration}
	}

	body, err := json.Marshal(httpGenerateRequest{
		Model:       req.ModelID,
		System:      req.System,
		Prompt:      buildUserPrompt(req.Context, req.Question),
		MaxTokens:   req.Limits.MaxTokens,
		Temperature: req.Limits.Temperature,
	})
	if err != nil {
		return ragtype.Generation{}, &ragtype.GenerationFailedError{Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return ragtype.Generation{}, &ragtype.GenerationFailedError{Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ragtype.Generation{}, &ragtype.CancelledError{Stage: ragtype.StageGeneration}
		}
		return ragtype.Generation{}, &ragtype.GenerationFailedError{Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ragtype.Generation{}, &ragtype.GenerationFailedError{Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return ragtype.Generation{}, &ragtype.GenerationFailedError{Cause: fmt.Errorf("generation endpoint returned %d: %s", resp.StatusCode, string(respBody))}
	}

	var parsed httpGenerateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return ragtype.Generation{}, &ragtype.GenerationFailedError{Cause: err}
	}

	return ragtype.Generation{
		AnswerText:   parsed.Text,
		ModelID:      req.ModelID,
		TokensIn:     parsed.Usage.PromptTokens,
		TokensOut:    parsed.Usage.CompletionTokens,
		CostUSD:      parsed.Usage.CostUSD,
		FinishReason: parsed.FinishReason,
	}, nil
}
