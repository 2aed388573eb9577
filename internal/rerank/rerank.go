// Package rerank implements the Reranker collaborator: reordering-only,
// never introducing new chunks.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"ragcore/internal/ragtype"
)

// Reranker reorders chunks by relevance to query; it never adds chunks.
type Reranker interface {
	Rerank(ctx context.Context, query string, chunks []ragtype.Chunk, topN int) ([]ragtype.Chunk, error)
}

// Passthrough is the identity Reranker: it truncates to topN without
// reordering. Used when no cross-encoder endpoint is configured.
type Passthrough struct{}

func (Passthrough) Rerank(_ context.Context, _ string, chunks []ragtype.Chunk, topN int) ([]ragtype.Chunk, error) {
	if topN < len(chunks) {
		return chunks[:topN], nil
	}
	return chunks, nil
}

// CrossEncoderConfig configures the HTTP cross-encoder reranker.
type CrossEncoderConfig struct {
	Model     string
	Endpoint  string
	APIKey    string
	Timeout   time.Duration
	BatchSize int
}

// DefaultCrossEncoderConfig mirrors the teacher's reranker defaults.
func DefaultCrossEncoderConfig() CrossEncoderConfig {
	return CrossEncoderConfig{
		Model:     "BAAI/bge-reranker-v2-m3",
		Timeout:   30 * time.Second,
		BatchSize: 32,
	}
}

// CrossEncoderReranker scores (query, chunk text) pairs against an HTTP
// cross-encoder endpoint, batched.
type CrossEncoderReranker struct {
	config     CrossEncoderConfig
	httpClient *http.Client
}

// NewCrossEncoderReranker builds a reranker bound to the given config.
func NewCrossEncoderReranker(cfg CrossEncoderConfig) *CrossEncoderReranker {
	return &CrossEncoderReranker{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, chunks []ragtype.Chunk, topN int) ([]ragtype.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	scores := make([]float64, len(chunks))
	for i := 0; i < len(chunks); i += r.config.BatchSize {
		end := i + r.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batchScores, err := r.scoreBatch(ctx, query, chunks[i:end])
		if err != nil {
			for j, c := range chunks[i:end] {
				scores[i+j] = c.Score
			}
			continue
		}
		copy(scores[i:end], batchScores)
	}

	reordered := make([]ragtype.Chunk, len(chunks))
	copy(reordered, chunks)
	for i := range reordered {
		reordered[i].Score = scores[i]
	}
	sort.SliceStable(reordered, func(i, j int) bool { return reordered[i].Score > reordered[j].Score })

	if topN < len(reordered) {
		reordered = reordered[:topN]
	}
	return reordered, nil
}

func (r *CrossEncoderReranker) scoreBatch(ctx context.Context, query string, chunks []ragtype.Chunk) ([]float64, error) {
	pairs := make([][2]string, len(chunks))
	for i, c := range chunks {
		pairs[i] = [2]string{query, c.Text}
	}

	body, err := json.Marshal(map[string]any{"model": r.config.Model, "pairs": pairs})
	if err != nil {
		return nil, fmt.Errorf("rerank: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rerank: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.config.APIKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank: endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}

	var decoded struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("rerank: decode response: %w", err)
	}
	return decoded.Scores, nil
}
