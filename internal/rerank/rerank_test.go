package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/ragtype"
)

func chunks(ids ...string) []ragtype.Chunk {
	out := make([]ragtype.Chunk, len(ids))
	for i, id := range ids {
		out[i] = ragtype.Chunk{ChunkID: id, Text: "text-" + id, Score: 0.5}
	}
	return out
}

func TestPassthrough_TruncatesToTopNWithoutReordering(t *testing.T) {
	p := Passthrough{}
	result, err := p.Rerank(context.Background(), "q", chunks("a", "b", "c"), 2)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "a", result[0].ChunkID)
	assert.Equal(t, "b", result[1].ChunkID)
}

func TestPassthrough_TopNGreaterThanLengthReturnsAll(t *testing.T) {
	p := Passthrough{}
	result, err := p.Rerank(context.Background(), "q", chunks("a", "b"), 10)
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestCrossEncoderReranker_ReordersByReturnedScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var decoded struct {
			Pairs [][2]string `json:"pairs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&decoded))
		scores := make([]float64, len(decoded.Pairs))
		for i, pair := range decoded.Pairs {
			if pair[1] == "text-b" {
				scores[i] = 0.9
			} else {
				scores[i] = 0.1
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"scores": scores})
	}))
	defer srv.Close()

	cfg := DefaultCrossEncoderConfig()
	cfg.Endpoint = srv.URL
	cfg.BatchSize = 32
	r := NewCrossEncoderReranker(cfg)

	result, err := r.Rerank(context.Background(), "q", chunks("a", "b"), 2)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "b", result[0].ChunkID)
	assert.Equal(t, "a", result[1].ChunkID)
}

func TestCrossEncoderReranker_FallsBackToOriginalScoreOnBatchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultCrossEncoderConfig()
	cfg.Endpoint = srv.URL
	r := NewCrossEncoderReranker(cfg)

	input := chunks("a", "b")
	result, err := r.Rerank(context.Background(), "q", input, 2)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, 0.5, result[0].Score)
}

func TestCrossEncoderReranker_EmptyChunksIsNoop(t *testing.T) {
	r := NewCrossEncoderReranker(DefaultCrossEncoderConfig())
	result, err := r.Rerank(context.Background(), "q", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, result)
}
