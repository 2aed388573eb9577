package experiment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/clock"
	"ragcore/internal/config"
	"ragcore/internal/generation"
	"ragcore/internal/grounding"
	"ragcore/internal/idgen"
	"ragcore/internal/ragtype"
)

type syncTraceSink struct {
	mu     sync.Mutex
	traces []ragtype.FrozenTrace
	done   chan struct{}
}

func newSyncTraceSink() *syncTraceSink {
	return &syncTraceSink{done: make(chan struct{}, 8)}
}

func (s *syncTraceSink) WriteTrace(_ context.Context, t ragtype.FrozenTrace) error {
	s.mu.Lock()
	s.traces = append(s.traces, t)
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

type fakeShadowLLM struct{ answer string }

func (f fakeShadowLLM) Generate(_ context.Context, req generation.Request) (ragtype.Generation, error) {
	return ragtype.Generation{AnswerText: f.answer, ModelID: req.ModelID, CostUSD: 0.002}, nil
}

func TestShadowRunner_DisabledNeverForks(t *testing.T) {
	sink := newSyncTraceSink()
	r := NewShadowRunner(
		config.ShadowConfig{Enabled: false},
		fakeShadowLLM{answer: "x"},
		grounding.NewScorer(config.Default().Grounding),
		sink, nil, logrus.NewEntry(logrus.New()),
		clock.Fixed{At: time.Unix(0, 0)}, idgen.NewSequential("shadow"),
		"v1", "hash1",
	)

	r.MaybeFork(context.Background(), ShadowForkInput{UserID: "u1", Question: "q"})

	select {
	case <-sink.done:
		t.Fatal("disabled shadow runner must never write a trace")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestShadowRunner_ForksAndScoresWhenFullyEnabled(t *testing.T) {
	sink := newSyncTraceSink()
	r := NewShadowRunner(
		config.ShadowConfig{
			Enabled:           true,
			SampleRate:        1.0,
			BudgetUSD:         1.0,
			CircuitMultiplier: 3.0,
			MaxInflight:       2,
			CandidateModelID:  "candidate-model",
		},
		fakeShadowLLM{answer: "context mentions the answer"},
		grounding.NewScorer(config.Default().Grounding),
		sink, nil, logrus.NewEntry(logrus.New()),
		clock.Fixed{At: time.Unix(0, 0)}, idgen.NewSequential("shadow"),
		"v1", "hash1",
	)

	r.MaybeFork(context.Background(), ShadowForkInput{
		UserID:   "u1",
		Question: "q",
		Context:  "the context mentions the answer explicitly",
		CompressedCtx: []ragtype.CompressedChunk{{
			Chunk:     ragtype.Chunk{ChunkID: "c1"},
			Sentences: []ragtype.ScoredSentence{{Text: "the context mentions the answer explicitly"}},
		}},
	})

	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a shadow trace write within the timeout")
	}

	require.Len(t, sink.traces, 1)
	trace := sink.traces[0]
	assert.Equal(t, "shadow", trace.Variant)
	require.Len(t, trace.Spans, 2)
	assert.Equal(t, ragtype.StageGeneration, trace.Spans[0].Name)
	assert.Equal(t, ragtype.SpanOK, trace.Spans[0].Status)
	assert.Equal(t, ragtype.StageGrounding, trace.Spans[1].Name)
	assert.Greater(t, trace.Scores["grounding"], 0.0)
}
