package compression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/ragtype"
)

func sentence(score float64, tokens, chunkIdx, sentIdx int) ragtype.ScoredSentence {
	return ragtype.ScoredSentence{Text: "x", Score: score, Tokens: tokens, ChunkIndex: chunkIdx, SentIndex: sentIdx}
}

func TestTokenBudgeter_FitsWithinBudgetWithoutDropping(t *testing.T) {
	b := NewTokenBudgeter(10)
	chunks := []ragtype.CompressedChunk{
		{Chunk: ragtype.Chunk{ChunkID: "c1"}, Sentences: []ragtype.ScoredSentence{sentence(1.0, 20, 0, 0)}},
	}

	ctx := b.Enforce(chunks, 100)

	assert.Equal(t, 0, ctx.DroppedSentenceCount)
	assert.Equal(t, 20, ctx.TotalTokens)
	require.Len(t, ctx.OrderedChunks, 1)
}

func TestTokenBudgeter_DropsLowestScoringSentenceFirst(t *testing.T) {
	b := NewTokenBudgeter(0)
	chunks := []ragtype.CompressedChunk{
		{Chunk: ragtype.Chunk{ChunkID: "c1"}, Sentences: []ragtype.ScoredSentence{
			sentence(0.9, 50, 0, 0),
			sentence(0.1, 50, 0, 1),
		}},
	}

	ctx := b.Enforce(chunks, 50)

	assert.Equal(t, 1, ctx.DroppedSentenceCount)
	require.Len(t, ctx.OrderedChunks, 1)
	require.Len(t, ctx.OrderedChunks[0].Sentences, 1)
	assert.InDelta(t, 0.9, ctx.OrderedChunks[0].Sentences[0].Score, 1e-9)
}

func TestTokenBudgeter_DropsChunkEntirelyWhenAllSentencesLost(t *testing.T) {
	b := NewTokenBudgeter(0)
	chunks := []ragtype.CompressedChunk{
		{Chunk: ragtype.Chunk{ChunkID: "c1"}, Sentences: []ragtype.ScoredSentence{sentence(0.5, 100, 0, 0)}},
	}

	ctx := b.Enforce(chunks, 0)

	assert.Equal(t, 1, ctx.DroppedSentenceCount)
	assert.Empty(t, ctx.OrderedChunks)
}
