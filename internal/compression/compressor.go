package compression

import (
	"sort"

	"ragcore/internal/ragtype"
)

// Compressor splits each chunk into sentences, scores them against the query
// with BM25 using per-chunk statistics, and keeps the top
// sentences_per_chunk, preserving original sentence order.
type Compressor struct {
	sentencesPerChunk int
}

// NewCompressor builds a Compressor keeping at most n sentences per chunk.
func NewCompressor(sentencesPerChunk int) *Compressor {
	return &Compressor{sentencesPerChunk: sentencesPerChunk}
}

// Compress reduces each chunk to its top-scoring sentences.
func (c *Compressor) Compress(query string, chunks []ragtype.Chunk) []ragtype.CompressedChunk {
	result := make([]ragtype.CompressedChunk, 0, len(chunks))

	for chunkIdx, chunk := range chunks {
		sentences := splitSentences(chunk.Text)
		if len(sentences) == 0 {
			continue
		}

		scorer := newBM25Scorer(query, sentences)
		scored := make([]ragtype.ScoredSentence, len(sentences))
		for i, sentence := range sentences {
			scored[i] = ragtype.ScoredSentence{
				Text:       sentence,
				Score:      scorer.score(sentence),
				Tokens:     estimateTokens(sentence),
				ChunkIndex: chunkIdx,
				SentIndex:  i,
			}
		}

		byScore := make([]ragtype.ScoredSentence, len(scored))
		copy(byScore, scored)
		sort.SliceStable(byScore, func(i, j int) bool { return byScore[i].Score > byScore[j].Score })

		keep := c.sentencesPerChunk
		if keep > len(byScore) {
			keep = len(byScore)
		}
		kept := make(map[int]bool, keep)
		for i := 0; i < keep; i++ {
			kept[byScore[i].SentIndex] = true
		}

		var selected []ragtype.ScoredSentence
		for _, s := range scored {
			if kept[s.SentIndex] {
				selected = append(selected, s)
			}
		}

		result = append(result, ragtype.CompressedChunk{Chunk: chunk, Sentences: selected})
	}

	return result
}
