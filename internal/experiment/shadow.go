package experiment

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"ragcore/internal/clock"
	"ragcore/internal/config"
	"ragcore/internal/generation"
	"ragcore/internal/grounding"
	"ragcore/internal/idgen"
	"ragcore/internal/ragtype"
	"ragcore/internal/telemetry"
)

// ShadowForkInput carries everything a shadow run needs to regenerate and
// re-ground an answer against a candidate model, without touching the
// primary response.
type ShadowForkInput struct {
	UserID         string
	SessionID      string
	TenantID       string
	Question       string
	System         string
	Context        string
	CompressedCtx  []ragtype.CompressedChunk
	PrimaryLatency time.Duration
}

// ShadowRunner forks an independent, best-effort re-run of generation and
// grounding against a candidate model. It gates every fork through four
// ordered checks (feature enabled, sample rate, budget, circuit breaker),
// bounds in-flight forks, and never lets a shadow failure reach the caller:
// generalized from the teacher's CircuitBreaker (internal/llm/circuit_breaker.go)
// and the bounded-pool shape of internal/background/worker_pool.go, tracking
// shadow spend process-locally with no cross-process sharing.
type ShadowRunner struct {
	cfg config.ShadowConfig

	llmClient generation.LLMClient
	scorer    *grounding.Scorer

	traceSink  telemetry.TraceSink
	metricSink telemetry.MetricSink
	log        *logrus.Entry

	clk   clock.Clock
	idGen idgen.IDGen

	pipelineVersion string
	configHash      string

	circuit *latencyCircuit

	spendMu sync.Mutex
	spentUSD float64

	inflight int32
}

// NewShadowRunner builds a ShadowRunner. metricSink may be nil, in which case
// shadow metrics are skipped; traceSink is always written to and must be set.
func NewShadowRunner(
	cfg config.ShadowConfig,
	llmClient generation.LLMClient,
	scorer *grounding.Scorer,
	traceSink telemetry.TraceSink,
	metricSink telemetry.MetricSink,
	log *logrus.Entry,
	clk clock.Clock,
	idGen idgen.IDGen,
	pipelineVersion, configHash string,
) *ShadowRunner {
	return &ShadowRunner{
		cfg:             cfg,
		llmClient:       llmClient,
		scorer:          scorer,
		traceSink:       traceSink,
		metricSink:      metricSink,
		log:             log,
		clk:             clk,
		idGen:           idGen,
		pipelineVersion: pipelineVersion,
		configHash:      configHash,
		circuit:         newLatencyCircuit(cfg.CircuitMultiplier),
	}
}

// MaybeFork evaluates the four gates and, if all pass, launches the shadow
// run in its own goroutine. It never blocks the caller and never returns an
// error: a skipped or failed shadow run is only ever observed through
// metrics and logs.
func (r *ShadowRunner) MaybeFork(parentCtx context.Context, in ShadowForkInput) {
	if !r.cfg.Enabled {
		return
	}
	if rand.Float64() >= r.cfg.SampleRate {
		return
	}
	if !r.withinBudget() {
		return
	}
	now := r.clk.Now()
	if !r.circuit.Allow(now) {
		return
	}
	if r.cfg.MaxInflight > 0 && atomic.LoadInt32(&r.inflight) >= int32(r.cfg.MaxInflight) {
		return
	}

	atomic.AddInt32(&r.inflight, 1)

	// The shadow run is detached from the parent request's lifecycle and
	// cancellation: it must outlive the primary response being returned.
	ctx := context.Background()
	_ = parentCtx

	go r.run(ctx, in, now)
}

func (r *ShadowRunner) withinBudget() bool {
	r.spendMu.Lock()
	defer r.spendMu.Unlock()
	return r.spentUSD < r.cfg.BudgetUSD
}

func (r *ShadowRunner) addSpend(usd float64) {
	r.spendMu.Lock()
	defer r.spendMu.Unlock()
	r.spentUSD += usd
}

func (r *ShadowRunner) run(ctx context.Context, in ShadowForkInput, started time.Time) {
	defer atomic.AddInt32(&r.inflight, -1)

	trace := ragtype.NewTrace(r.idGen.NewID(), in.UserID, in.SessionID, r.pipelineVersion, r.configHash)
	trace.Variant = "shadow"

	genSpan := ragtype.Span{Name: ragtype.StageGeneration, Start: r.clk.Now()}

	req := generation.Request{
		System:   in.System,
		Context:  in.Context,
		Question: in.Question,
		ModelID:  r.cfg.CandidateModelID,
		Limits:   generation.Limits{MaxTokens: 800, Temperature: 0.2},
	}

	gen, err := r.llmClient.Generate(ctx, req)

	genSpan.End = r.clk.Now()
	shadowLatency := genSpan.End.Sub(started)

	if err != nil {
		genSpan.Status = ragtype.SpanFailed
		genSpan.Reason = err.Error()
		trace.AddSpan(genSpan)
		r.finish(ctx, trace, err)
		return
	}
	genSpan.Status = ragtype.SpanOK
	trace.AddSpan(genSpan)
	r.addSpend(gen.CostUSD)

	groundSpan := ragtype.Span{Name: ragtype.StageGrounding, Start: r.clk.Now()}
	verdict := r.scorer.Score(in.CompressedCtx, gen.AnswerText)
	trace.SetScore("grounding", verdict.Score)
	groundSpan.End = r.clk.Now()
	groundSpan.Status = ragtype.SpanOK
	trace.AddSpan(groundSpan)

	trace.Totals = ragtype.Totals{LatencyMS: shadowLatency.Milliseconds(), CostUSD: gen.CostUSD}

	tooSlow := r.circuit.TooSlow(in.PrimaryLatency, shadowLatency)
	r.circuit.Record(tooSlow, r.clk.Now())

	r.finish(ctx, trace, nil)
}

func (r *ShadowRunner) finish(ctx context.Context, trace *ragtype.Trace, runErr error) {
	if runErr != nil {
		r.log.WithError(runErr).Warn("shadow run failed")
	}
	frozen := trace.Freeze()
	if err := r.traceSink.WriteTrace(ctx, frozen); err != nil {
		telemetry.LogSinkError(r.log, err)
	}
	if r.metricSink != nil {
		r.metricSink.Observe("request_duration_seconds", map[string]string{"stage": "shadow"}, float64(frozen.Totals.LatencyMS)/1000.0)
		r.metricSink.Set("shadow_budget_remaining_usd", map[string]string{}, r.cfg.BudgetUSD-r.remainingSpend())
	}
}

func (r *ShadowRunner) remainingSpend() float64 {
	r.spendMu.Lock()
	defer r.spendMu.Unlock()
	return r.spentUSD
}
