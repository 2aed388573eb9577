// Package router classifies a query into one of the five route kinds using
// only local computation (no LLM call).
package router

import (
	"context"
	"math"
	"sort"

	"ragcore/internal/config"
	"ragcore/internal/ragtype"
)

// EmbeddingService is the local embedding collaborator the router and the
// retrieval stage share.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Router classifies queries by max-sim against a pre-embedded utterance set
// per route, generalized from mean/per-dimension-max embedding aggregation
// to per-utterance max cosine similarity: mean-sim dilutes routes whose
// utterance sets span multiple phrasings, max-sim scores the best match.
type Router struct {
	threshold    float64
	defaultRoute ragtype.RouteKind
	utterances   map[ragtype.RouteKind][][]float32
}

// New embeds every configured utterance up front so Classify never blocks on
// the embedding service per request beyond the query itself.
func New(ctx context.Context, cfg config.RoutingConfig, embedder EmbeddingService) (*Router, error) {
	r := &Router{
		threshold:    cfg.Threshold,
		defaultRoute: cfg.DefaultRoute,
		utterances:   make(map[ragtype.RouteKind][][]float32, len(cfg.Utterances)),
	}
	for route, utterances := range cfg.Utterances {
		embs := make([][]float32, 0, len(utterances))
		for _, u := range utterances {
			e, err := embedder.Embed(ctx, u)
			if err != nil {
				return nil, err
			}
			embs = append(embs, e)
		}
		r.utterances[route] = embs
	}
	return r, nil
}

// Classify embeds the query once and returns the route with the highest
// max-sim score against any configured route's utterances. Ties break on the
// alphabetically smaller route name; below-threshold scores substitute the
// configured default route.
func (r *Router) Classify(ctx context.Context, embedder EmbeddingService, queryText string) (ragtype.RouteDecision, error) {
	queryEmbedding, err := embedder.Embed(ctx, queryText)
	if err != nil {
		return ragtype.RouteDecision{}, err
	}

	scores := make(map[ragtype.RouteKind]float64, len(r.utterances))
	routes := make([]ragtype.RouteKind, 0, len(r.utterances))
	for route, embs := range r.utterances {
		routes = append(routes, route)
		best := 0.0
		for _, e := range embs {
			if s := cosineSimilarity(queryEmbedding, e); s > best {
				best = s
			}
		}
		scores[route] = best
	}

	sort.Slice(routes, func(i, j int) bool {
		si, sj := scores[routes[i]], scores[routes[j]]
		if si != sj {
			return si > sj
		}
		return routes[i] < routes[j]
	})

	decision := ragtype.RouteDecision{Scores: scores}
	if len(routes) == 0 {
		decision.RouteKind = r.defaultRoute
		decision.Confidence = 0
		return decision, nil
	}

	top := routes[0]
	confidence := scores[top]
	if confidence < r.threshold {
		decision.RouteKind = r.defaultRoute
		decision.Confidence = confidence
		return decision, nil
	}

	decision.RouteKind = top
	decision.Confidence = confidence
	return decision, nil
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
