package retrieval

import (
	"sort"

	"ragcore/internal/ragtype"
)

// RankFuser combines per-query ranked chunk lists via Reciprocal Rank Fusion,
// grounded on the teacher's reciprocalRankFusion (internal/rag/hybrid.go),
// generalized from exactly two input lists (dense, sparse) to an arbitrary
// number of per-query-variant lists.
type RankFuser struct {
	k float64
}

// NewRankFuser builds a fuser with the RRF k constant (60 per the default
// fusion policy).
func NewRankFuser(k int) *RankFuser {
	return &RankFuser{k: float64(k)}
}

// Fuse scores every unique chunk (by chunk_id) as Σ 1/(k + rank_i) across the
// lists it appears in, and returns chunks sorted by fused score descending,
// ties broken by the highest original retrieval score.
func (f *RankFuser) Fuse(lists [][]ragtype.Chunk) []ragtype.Chunk {
	fused := make(map[string]float64)
	best := make(map[string]ragtype.Chunk)

	for _, list := range lists {
		for i, c := range list {
			rank := i + 1
			fused[c.ChunkID] += 1.0 / (f.k + float64(rank))
			if existing, ok := best[c.ChunkID]; !ok || c.Score > existing.Score {
				best[c.ChunkID] = c
			}
		}
	}

	result := make([]ragtype.Chunk, 0, len(fused))
	for _, c := range best {
		result = append(result, c)
	}

	sort.Slice(result, func(i, j int) bool {
		si, sj := fused[result[i].ChunkID], fused[result[j].ChunkID]
		if si != sj {
			return si > sj
		}
		return result[i].Score > result[j].Score
	})

	return result
}
