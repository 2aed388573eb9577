package expansion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/generation"
	"ragcore/internal/ragtype"
)

type fakeLLM struct {
	text string
	err  error
}

func (f fakeLLM) Generate(_ context.Context, _ generation.Request) (ragtype.Generation, error) {
	if f.err != nil {
		return ragtype.Generation{}, f.err
	}
	return ragtype.Generation{AnswerText: f.text}, nil
}

func TestLLMExpander_ReturnsOriginalWhenNIsZero(t *testing.T) {
	e := NewLLMExpander(fakeLLM{text: "unused"}, "model")
	variants, skipped := e.Expand(context.Background(), "original text", 0)
	assert.False(t, skipped)
	assert.Equal(t, []string{"original text"}, variants)
}

func TestLLMExpander_ParsesParaphrasesAndDedupes(t *testing.T) {
	e := NewLLMExpander(fakeLLM{text: "Original text\nHow long is retention\nhow long is retention\nAnother phrasing"}, "model")
	variants, skipped := e.Expand(context.Background(), "Original text", 2)
	require.False(t, skipped)
	assert.Equal(t, []string{"Original text", "How long is retention", "Another phrasing"}, variants)
}

func TestLLMExpander_DegradesOnError(t *testing.T) {
	e := NewLLMExpander(fakeLLM{err: errors.New("boom")}, "model")
	variants, skipped := e.Expand(context.Background(), "q", 2)
	assert.True(t, skipped)
	assert.Equal(t, []string{"q"}, variants)
}

func TestPlan_StripsOriginalFromVariants(t *testing.T) {
	plan := Plan("q", []string{"q", "alt1", "alt2"}, false)
	assert.Equal(t, "q", plan.PrimaryText)
	assert.Equal(t, []string{"alt1", "alt2"}, plan.Variants)
	assert.False(t, plan.SkipExpansion)
	assert.Equal(t, []string{"q", "alt1", "alt2"}, plan.AllQueries())
}
