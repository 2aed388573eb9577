package retrieval

import (
	"math"
	"sort"
	"strings"

	"ragcore/internal/ragtype"
)

// Deduper removes near-duplicate chunks. Embedding cosine similarity is
// authoritative when both chunks carry embeddings; otherwise a character
// trigram Jaccard proxy substitutes, generalized from the teacher's
// Levenshtein-distance `similarity` helper (internal/rag/advanced.go) to an
// O(n) set-based measure suitable for longer chunk text.
type Deduper struct {
	threshold float64
}

// NewDeduper builds a Deduper with the configured similarity threshold; pairs
// scoring at or above it are considered duplicates.
func NewDeduper(threshold float64) *Deduper {
	return &Deduper{threshold: threshold}
}

// Dedup greedily accepts chunks in descending score order, rejecting any
// chunk too similar to an already-accepted one. Ties in score break on the
// lexicographically lower chunk_id so the outcome is deterministic.
func (d *Deduper) Dedup(chunks []ragtype.Chunk) []ragtype.Chunk {
	ordered := make([]ragtype.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].ChunkID < ordered[j].ChunkID
	})

	var accepted []ragtype.Chunk
	for _, c := range ordered {
		duplicate := false
		for _, a := range accepted {
			if d.similarity(c, a) >= d.threshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			accepted = append(accepted, c)
		}
	}
	return accepted
}

func (d *Deduper) similarity(a, b ragtype.Chunk) float64 {
	if len(a.Embedding) > 0 && len(b.Embedding) > 0 {
		return cosineSimilarity(a.Embedding, b.Embedding)
	}
	return trigramJaccard(a.Text, b.Text)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// trigramJaccard computes the Jaccard index of the two strings' character
// trigram sets, case-folded.
func trigramJaccard(a, b string) float64 {
	ta := trigrams(strings.ToLower(a))
	tb := trigrams(strings.ToLower(b))
	if len(ta) == 0 || len(tb) == 0 {
		if a == b {
			return 1.0
		}
		return 0.0
	}

	intersection := 0
	for g := range ta {
		if tb[g] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func trigrams(s string) map[string]bool {
	runes := []rune(s)
	set := make(map[string]bool)
	if len(runes) < 3 {
		if len(runes) > 0 {
			set[string(runes)] = true
		}
		return set
	}
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = true
	}
	return set
}
