package generation

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

func TestHTTPClient_GenerateParsesSuccessfulResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req httpGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "fast-model", req.Model)
		assert.Contains(t, req.Prompt, "Context:")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(httpGenerateResponse{
			Text:         "the answer",
			FinishReason: "stop",
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	gen, err := c.Generate(context.Background(), Request{
		System:   "sys",
		Context:  "ctx",
		Question: "q",
		ModelID:  "fast-model",
		Limits:   Limits{MaxTokens: 100, Temperature: 0.1},
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", gen.AnswerText)
	assert.Equal(t, "stop", gen.FinishReason)
	assert.Equal(t, "fast-model", gen.ModelID)
}

func TestHTTPClient_GenerateReturnsGenerationFailedOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	_, err := c.Generate(context.Background(), Request{ModelID: "fast-model"})
	require.Error(t, err)

	var genErr *ragtype.GenerationFailedError
	assert.ErrorAs(t, err, &genErr)
}

func TestHTTPClient_GenerateReturnsCancelledWhenContextAlreadyDone(t *testing.T) {
	c := NewHTTPClient("http://unused.invalid", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Generate(ctx, Request{ModelID: "fast-model"})
	require.Error(t, err)

	var cancelledErr *ragtype.CancelledError
	assert.ErrorAs(t, err, &cancelledErr)
}

func TestHTTPClient_GenerateSetsAuthorizationHeaderWhenAPIKeySet(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(httpGenerateResponse{Text: "ok"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "secret-key")
	_, err := c.Generate(context.Background(), Request{ModelID: "fast-model"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-key", gotAuth)
}
