// Package expansion produces paraphrases of a query to widen retrieval
// recall.
package expansion

import (
	"context"
	"strconv"
	"strings"

	"ragcore/internal/generation"
	"ragcore/internal/ragtype"
)

// QueryExpander produces n paraphrases of a query via an LLM.
type QueryExpander interface {
	Expand(ctx context.Context, text string, n int) ([]string, bool)
}

// LLMExpander is the default QueryExpander, backed by any generation.LLMClient.
type LLMExpander struct {
	client  generation.LLMClient
	modelID string
}

// NewLLMExpander builds an expander against the given model.
func NewLLMExpander(client generation.LLMClient, modelID string) *LLMExpander {
	return &LLMExpander{client: client, modelID: modelID}
}

const expansionSystemPrompt = "You rewrite a user's question into alternative phrasings that preserve its meaning. " +
	"Reply with exactly one paraphrase per line, no numbering, no commentary."

// Expand returns [original, *paraphrases]. The result is nonempty (original
// always present), deduplicated case-insensitively, and length ≤ 1+n. On
// timeout or error it degrades to [original] and reports skipped=true.
func (e *LLMExpander) Expand(ctx context.Context, text string, n int) ([]string, bool) {
	if n <= 0 {
		return []string{text}, false
	}

	req := generation.Request{
		System:   expansionSystemPrompt,
		Question: "Original question: " + text + "\nGenerate " + strconv.Itoa(n) + " paraphrases.",
		ModelID:  e.modelID,
		Limits:   generation.Limits{MaxTokens: 200, Temperature: 0.7},
	}

	gen, err := e.client.Generate(ctx, req)
	if err != nil {
		return []string{text}, true
	}

	variants := []string{text}
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(text)): true}

	for _, line := range strings.Split(gen.AnswerText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key := strings.ToLower(line)
		if seen[key] {
			continue
		}
		seen[key] = true
		variants = append(variants, line)
		if len(variants) >= 1+n {
			break
		}
	}

	return variants, false
}

// Plan builds a QueryPlan from the expansion result.
// Plan builds a QueryPlan from the original text and the raw result of
// Expand. Expand's result always carries the original text as its first
// element; Plan strips it so QueryPlan.AllQueries doesn't repeat it.
func Plan(original string, expanded []string, skipped bool) ragtype.QueryPlan {
	variants := expanded
	if len(variants) > 0 && variants[0] == original {
		variants = variants[1:]
	}
	return ragtype.QueryPlan{
		PrimaryText:   original,
		Variants:      variants,
		SkipExpansion: skipped,
	}
}
