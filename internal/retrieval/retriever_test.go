package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/ragtype"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

type fakeStore struct {
	byQuery map[string][]ragtype.Chunk
	err     error
}

func (s fakeStore) Search(_ context.Context, _ []float32, _ string, _ int) ([]ragtype.Chunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	return nil, nil
}

type mappedStore struct {
	chunks []ragtype.Chunk
}

func (s mappedStore) Search(_ context.Context, _ []float32, _ string, topK int) ([]ragtype.Chunk, error) {
	out := s.chunks
	if topK < len(out) {
		out = out[:topK]
	}
	return out, nil
}

func TestRetriever_RetrieveAllAcrossVariants(t *testing.T) {
	store := mappedStore{chunks: []ragtype.Chunk{{ChunkID: "c1"}, {ChunkID: "c2"}}}
	r := NewRetriever(fakeEmbedder{}, store, 4, 8)

	result, perQuery := r.RetrieveAll(context.Background(), "acme", []string{"abc"})

	assert.False(t, result.Empty)
	require.Len(t, perQuery, 1)
	assert.Equal(t, 2, result.RawCounts["abc"])
}

func TestRetriever_AllEmptyMarksResultEmpty(t *testing.T) {
	r := NewRetriever(fakeEmbedder{}, fakeStore{}, 4, 8)

	result, perQuery := r.RetrieveAll(context.Background(), "acme", []string{"q1", "q2"})

	assert.True(t, result.Empty)
	require.Len(t, perQuery, 2)
	assert.Empty(t, perQuery[0])
	assert.Empty(t, perQuery[1])
}

func TestRetriever_SearchErrorsDontPanicAndYieldEmptyForThatQuery(t *testing.T) {
	r := NewRetriever(fakeEmbedder{}, fakeStore{err: errors.New("boom")}, 2, 8)

	result, _ := r.RetrieveAll(context.Background(), "acme", []string{"q1"})

	assert.True(t, result.Empty)
	require.Contains(t, result.Errors, "q1")
	assert.Contains(t, result.Errors["q1"], "boom")
}
