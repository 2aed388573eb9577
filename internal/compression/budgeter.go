package compression

import "ragcore/internal/ragtype"

// TokenBudgeter greedily drops the lowest-scored remaining sentence across
// all chunks until the total token count fits within budget. Sentence order
// within any surviving chunk is preserved; a chunk that loses every sentence
// is dropped entirely.
type TokenBudgeter struct {
	promptOverheadTokens int
}

// NewTokenBudgeter builds a budgeter that reserves promptOverheadTokens for
// the system prompt before enforcing maxTokens against the context.
func NewTokenBudgeter(promptOverheadTokens int) *TokenBudgeter {
	return &TokenBudgeter{promptOverheadTokens: promptOverheadTokens}
}

// Enforce reduces chunks until total token usage fits within maxTokens minus
// the reserved prompt overhead.
func (b *TokenBudgeter) Enforce(chunks []ragtype.CompressedChunk, maxTokens int) ragtype.CompressedContext {
	budget := maxTokens - b.promptOverheadTokens
	if budget < 0 {
		budget = 0
	}

	working := make([][]ragtype.ScoredSentence, len(chunks))
	for i, c := range chunks {
		working[i] = append([]ragtype.ScoredSentence(nil), c.Sentences...)
	}

	total := totalTokens(working)
	dropped := 0

	for total > budget {
		ci, si := lowestScoring(working)
		if ci == -1 {
			break
		}
		total -= working[ci][si].Tokens
		working[ci] = append(working[ci][:si], working[ci][si+1:]...)
		dropped++
	}

	var ordered []ragtype.CompressedChunk
	for i, sentences := range working {
		if len(sentences) == 0 {
			continue
		}
		ordered = append(ordered, ragtype.CompressedChunk{Chunk: chunks[i].Chunk, Sentences: sentences})
	}

	return ragtype.CompressedContext{
		OrderedChunks:        ordered,
		DroppedSentenceCount: dropped,
		TotalTokens:          total,
	}
}

func totalTokens(chunks [][]ragtype.ScoredSentence) int {
	total := 0
	for _, sentences := range chunks {
		for _, s := range sentences {
			total += s.Tokens
		}
	}
	return total
}

// lowestScoring finds the lowest-scored remaining sentence across all
// chunks; ties break on the lowest (chunk, sentence) index for determinism.
func lowestScoring(chunks [][]ragtype.ScoredSentence) (chunkIdx, sentIdx int) {
	chunkIdx, sentIdx = -1, -1
	best := 0.0
	for ci, sentences := range chunks {
		for si, s := range sentences {
			if chunkIdx == -1 || s.Score < best {
				chunkIdx, sentIdx, best = ci, si, s.Score
			}
		}
	}
	return
}
