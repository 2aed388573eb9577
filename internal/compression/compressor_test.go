package compression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/ragtype"
)

func TestCompressor_KeepsTopScoringSentencesInOriginalOrder(t *testing.T) {
	c := NewCompressor(2)
	chunks := []ragtype.Chunk{
		{ChunkID: "c1", Text: "Refunds are processed within seven days. Our support team answers within one hour. Weather today is sunny. Refund requests need an order number."},
	}

	result := c.Compress("refund days", chunks)

	require.Len(t, result, 1)
	assert.Len(t, result[0].Sentences, 2)
	assert.Less(t, result[0].Sentences[0].SentIndex, result[0].Sentences[1].SentIndex, "original order preserved")
}

func TestCompressor_DropsChunksWithNoSentences(t *testing.T) {
	c := NewCompressor(3)
	chunks := []ragtype.Chunk{{ChunkID: "c1", Text: ""}}

	result := c.Compress("q", chunks)
	assert.Empty(t, result)
}
