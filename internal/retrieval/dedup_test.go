package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/ragtype"
)

func TestDeduper_CosineAuthoritativeWhenEmbeddingsPresent(t *testing.T) {
	d := NewDeduper(0.9)
	chunks := []ragtype.Chunk{
		{ChunkID: "c1", Score: 0.9, Embedding: []float32{1, 0, 0}},
		{ChunkID: "c2", Score: 0.8, Embedding: []float32{1, 0, 0}}, // identical vector, duplicate
		{ChunkID: "c3", Score: 0.7, Embedding: []float32{0, 1, 0}}, // orthogonal, distinct
	}

	result := d.Dedup(chunks)

	require.Len(t, result, 2)
	assert.Equal(t, "c1", result[0].ChunkID, "higher score wins when both are accepted first")
	assert.Equal(t, "c3", result[1].ChunkID)
}

func TestDeduper_TrigramFallbackWhenNoEmbeddings(t *testing.T) {
	d := NewDeduper(0.5)
	chunks := []ragtype.Chunk{
		{ChunkID: "c1", Score: 0.9, Text: "our refund policy covers thirty days"},
		{ChunkID: "c2", Score: 0.8, Text: "our refund policy covers thirty days"},
		{ChunkID: "c3", Score: 0.7, Text: "completely unrelated text about spacecraft engines"},
	}

	result := d.Dedup(chunks)

	require.Len(t, result, 2)
	ids := []string{result[0].ChunkID, result[1].ChunkID}
	assert.Contains(t, ids, "c1")
	assert.Contains(t, ids, "c3")
	assert.NotContains(t, ids, "c2")
}

func TestDeduper_TiesBreakOnChunkID(t *testing.T) {
	d := NewDeduper(0.99)
	chunks := []ragtype.Chunk{
		{ChunkID: "zeta", Score: 0.5, Text: "alpha"},
		{ChunkID: "alpha", Score: 0.5, Text: "beta"},
	}

	result := d.Dedup(chunks)
	require.Len(t, result, 2)
	assert.Equal(t, "alpha", result[0].ChunkID)
}
