package compression

import "math"

// bm25 parameters, the standard defaults.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// bm25Scorer scores sentences against query terms using per-chunk document
// statistics (the chunk's sentences are the "documents" for IDF purposes),
// generalized from the teacher's term-overlap scoreSentenceRelevance
// (internal/rag/advanced.go) to full Okapi BM25.
type bm25Scorer struct {
	queryTerms []string
	avgDocLen  float64
	docFreq    map[string]int
	numDocs    int
}

// newBM25Scorer builds per-chunk statistics: document frequency of each term
// across the chunk's sentences, and average sentence length in tokens.
func newBM25Scorer(query string, sentences []string) *bm25Scorer {
	s := &bm25Scorer{
		queryTerms: tokenize(query),
		docFreq:    make(map[string]int),
		numDocs:    len(sentences),
	}

	totalLen := 0
	for _, sentence := range sentences {
		terms := tokenize(sentence)
		totalLen += len(terms)
		seen := make(map[string]bool)
		for _, t := range terms {
			if !seen[t] {
				s.docFreq[t]++
				seen[t] = true
			}
		}
	}
	if s.numDocs > 0 {
		s.avgDocLen = float64(totalLen) / float64(s.numDocs)
	}

	return s
}

// score computes the BM25 score of one sentence against the query terms.
func (s *bm25Scorer) score(sentence string) float64 {
	terms := tokenize(sentence)
	docLen := float64(len(terms))

	termFreq := make(map[string]int, len(terms))
	for _, t := range terms {
		termFreq[t]++
	}

	var score float64
	for _, qt := range s.queryTerms {
		tf := float64(termFreq[qt])
		if tf == 0 {
			continue
		}
		df := s.docFreq[qt]
		idf := math.Log(1 + (float64(s.numDocs)-float64(df)+0.5)/(float64(df)+0.5))

		denom := tf + bm25K1*(1-bm25B+bm25B*docLen/maxFloat(s.avgDocLen, 1))
		score += idf * (tf * (bm25K1 + 1)) / denom
	}
	return score
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
