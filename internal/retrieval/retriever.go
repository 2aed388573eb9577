package retrieval

import (
	"context"
	"sync"

	"ragcore/internal/ragtype"
)

// Retriever fans a QueryPlan's variants out to the embedding service and
// vector store concurrently, bounded by maxParallel in-flight searches,
// generalized from the teacher's WaitGroup-plus-bounded-goroutine pattern for
// concurrent guardrail checks (no external concurrency library is used for
// this in the examples, so none is introduced here).
type Retriever struct {
	embedder    EmbeddingService
	store       VectorStore
	maxParallel int
	topK        int
}

// NewRetriever builds a Retriever bounded by maxParallel concurrent searches.
func NewRetriever(embedder EmbeddingService, store VectorStore, maxParallel, topK int) *Retriever {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Retriever{embedder: embedder, store: store, maxParallel: maxParallel, topK: topK}
}

// RetrieveAll embeds and searches for every query variant concurrently,
// respecting ctx cancellation, and returns the per-variant chunk lists in
// the same order as queries along with the raw per-query counts.
func (r *Retriever) RetrieveAll(ctx context.Context, tenantID string, queries []string) (ragtype.RetrievalResult, [][]ragtype.Chunk) {
	sem := make(chan struct{}, r.maxParallel)
	var wg sync.WaitGroup

	perQuery := make([][]ragtype.Chunk, len(queries))
	rawCounts := make(map[string]int, len(queries))
	queryErrors := make(map[string]string, len(queries))
	var countsMu sync.Mutex

	for i, q := range queries {
		select {
		case <-ctx.Done():
			break
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, query string) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				countsMu.Lock()
				queryErrors[query] = err.Error()
				countsMu.Unlock()
				return
			}

			embedding, err := r.embedder.Embed(ctx, query)
			if err != nil {
				countsMu.Lock()
				queryErrors[query] = "embed: " + err.Error()
				countsMu.Unlock()
				return
			}
			chunks, err := r.store.Search(ctx, embedding, tenantID, r.topK)
			if err != nil {
				countsMu.Lock()
				queryErrors[query] = "search: " + err.Error()
				countsMu.Unlock()
				return
			}
			perQuery[idx] = chunks

			countsMu.Lock()
			rawCounts[query] = len(chunks)
			countsMu.Unlock()
		}(i, q)
	}
	wg.Wait()

	var all []ragtype.Chunk
	for _, chunks := range perQuery {
		all = append(all, chunks...)
	}

	return ragtype.RetrievalResult{
		Chunks:    all,
		Empty:     len(all) == 0,
		RawCounts: rawCounts,
		Errors:    queryErrors,
	}, perQuery
}
