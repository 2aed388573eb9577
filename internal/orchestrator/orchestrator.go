// Package orchestrator wires every collaborator into the twelve-stage
// request graph and exposes the single Handle(Query) -> Response operation.
package orchestrator

import (
	"context"

	"github.com/sirupsen/logrus"

	"ragcore/internal/clock"
	"ragcore/internal/compression"
	"ragcore/internal/config"
	"ragcore/internal/experiment"
	"ragcore/internal/expansion"
	"ragcore/internal/generation"
	"ragcore/internal/grounding"
	"ragcore/internal/idgen"
	"ragcore/internal/ragtype"
	"ragcore/internal/rerank"
	"ragcore/internal/retrieval"
	"ragcore/internal/router"
	"ragcore/internal/security"
	"ragcore/internal/telemetry"
)

// EmbeddingService is the local embedding collaborator, structurally
// identical to router.EmbeddingService and retrieval.EmbeddingService; the
// orchestrator needs its own reference only because Router.Classify takes
// the embedder as a per-call argument.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ModelVariantFlag names the feature flag the orchestrator resolves once per
// request and stamps onto the Trace; absent from config it resolves to "".
const ModelVariantFlag = "model_variant"

// Orchestrator holds typed references to every collaborator. The composition
// root (buildApp in cmd/ragcore/build.go) builds the concrete adapters and injects them
// here; there is no service locator and no package-level global state.
type Orchestrator struct {
	cfg *config.Config

	embedder EmbeddingService

	injection *security.InjectionDetector
	pii       *security.PIIDetector

	router    *router.Router
	expander  expansion.QueryExpander
	retriever *retrieval.Retriever
	deduper   *retrieval.Deduper
	fuser     *retrieval.RankFuser
	reranker  rerank.Reranker

	compressor *compression.Compressor
	budgeter   *compression.TokenBudgeter

	llmClient  generation.LLMClient
	tierPolicy *generation.ModelTierPolicy

	scorer    *grounding.Scorer
	validator *grounding.SchemaValidator

	flagResolver    *experiment.FlagResolver
	shadowRunner    *experiment.ShadowRunner
	variantRecorder *experiment.VariantRecorder

	traceSink  telemetry.TraceSink
	metricSink telemetry.MetricSink
	auditSink  telemetry.AuditSink

	clk   clock.Clock
	idGen idgen.IDGen
	log   *logrus.Entry

	systemPrompt string
}

// Deps bundles every collaborator the Orchestrator needs.
type Deps struct {
	Config *config.Config

	Embedder EmbeddingService

	Injection *security.InjectionDetector
	PII       *security.PIIDetector

	Router    *router.Router
	Expander  expansion.QueryExpander
	Retriever *retrieval.Retriever
	Deduper   *retrieval.Deduper
	Fuser     *retrieval.RankFuser
	Reranker  rerank.Reranker

	Compressor *compression.Compressor
	Budgeter   *compression.TokenBudgeter

	LLMClient  generation.LLMClient
	TierPolicy *generation.ModelTierPolicy

	Scorer    *grounding.Scorer
	Validator *grounding.SchemaValidator

	FlagResolver    *experiment.FlagResolver
	ShadowRunner    *experiment.ShadowRunner
	VariantRecorder *experiment.VariantRecorder

	TraceSink  telemetry.TraceSink
	MetricSink telemetry.MetricSink
	AuditSink  telemetry.AuditSink

	Clock clock.Clock
	IDGen idgen.IDGen
	Log   *logrus.Entry

	SystemPrompt string
}

// New builds an Orchestrator from Deps.
func New(d Deps) *Orchestrator {
	return &Orchestrator{
		cfg:             d.Config,
		embedder:        d.Embedder,
		injection:       d.Injection,
		pii:             d.PII,
		router:          d.Router,
		expander:        d.Expander,
		retriever:       d.Retriever,
		deduper:         d.Deduper,
		fuser:           d.Fuser,
		reranker:        d.Reranker,
		compressor:      d.Compressor,
		budgeter:        d.Budgeter,
		llmClient:       d.LLMClient,
		tierPolicy:      d.TierPolicy,
		scorer:          d.Scorer,
		validator:       d.Validator,
		flagResolver:    d.FlagResolver,
		shadowRunner:    d.ShadowRunner,
		variantRecorder: d.VariantRecorder,
		traceSink:       d.TraceSink,
		metricSink:      d.MetricSink,
		auditSink:       d.AuditSink,
		clk:             d.Clock,
		idGen:           d.IDGen,
		log:             d.Log,
		systemPrompt:    d.SystemPrompt,
	}
}

// Handle runs the full request graph. It never returns an error: every
// failure maps to a Response with blocked or fallback set. Once the query has
// passed validation, the trace is flushed and metrics recorded exactly once
// regardless of where the request exits; an invalid query is rejected before
// any trace is opened, so it writes no trace and records no metrics.
func (o *Orchestrator) Handle(ctx context.Context, q ragtype.Query) (resp ragtype.Response) {
	start := o.clk.Now()

	if err := q.Validate(); err != nil {
		return ragtype.Response{
			TraceID:     o.idGen.NewID(),
			Blocked:     true,
			BlockReason: err.Error(),
			Metadata:    ragtype.ResponseMetadata{LatencyMS: o.clk.Now().Sub(start).Milliseconds()},
		}
	}

	traceID := o.idGen.NewID()
	deadline := o.clk.Now().Add(o.cfg.Generation.Timeout())
	rc := ragtype.NewRequestContext(ctx, traceID, &deadline)
	defer rc.Close()
	rc.ConfigSnapshotHash = o.cfg.Hash()

	variant := o.resolveVariant(rc.Context(), q)

	trace := ragtype.NewTrace(traceID, q.UserID, q.SessionID, o.cfg.PipelineVersion, rc.ConfigSnapshotHash)
	trace.Variant = variant

	var (
		totalCost   float64
		routeUsed   ragtype.RouteKind
		finalStatus = "ok"
	)

	defer func() {
		resp.TraceID = traceID
		resp.Metadata.LatencyMS = o.clk.Now().Sub(start).Milliseconds()
		trace.Totals = ragtype.Totals{LatencyMS: resp.Metadata.LatencyMS, CostUSD: totalCost}

		frozen := trace.Freeze()
		if err := o.traceSink.WriteTrace(ctx, frozen); err != nil {
			telemetry.LogSinkError(o.log, err)
		}
		o.recordFinalizeMetrics(frozen, routeUsed, finalStatus)
	}()

	now := o.clk.Now()
	trace.AddSpan(ragtype.Span{Name: ragtype.StageTraceOpen, Start: now, End: now, Status: ragtype.SpanOK})

	// --- 2. Input safety ---
	blocked, blockReason := o.runInputSafety(rc, trace, q)
	if blocked {
		finalStatus = "blocked"
		return ragtype.Response{Blocked: true, BlockReason: blockReason}
	}

	if rc.Cancelled() {
		finalStatus = "cancelled"
		return o.cancelledResponse(trace, ragtype.StageRouting)
	}

	// --- 3. Routing ---
	decision, ok := o.runRouting(rc, trace, q)
	if !ok {
		finalStatus = "error"
		return o.fallbackResponse("")
	}
	routeUsed = decision.RouteKind

	if rc.Cancelled() {
		finalStatus = "cancelled"
		return o.cancelledResponse(trace, ragtype.StageDispatch)
	}

	// --- 4. Dispatch ---
	switch dispatch := o.runDispatch(trace, decision); dispatch {
	case dispatchShortCircuit:
		finalStatus = "fallback"
		return o.fallbackResponse(decision.RouteKind)
	case dispatchDirect:
		o.skipRetrievalSpans(trace, "direct_route")
	case dispatchRAG:
		// proceed below
	}

	var compressedCtx ragtype.CompressedContext
	if decision.RouteKind != ragtype.RouteDirect {
		if rc.Cancelled() {
			finalStatus = "cancelled"
			return o.cancelledResponse(trace, ragtype.StageRetrieval)
		}

		var empty bool
		compressedCtx, empty = o.runRetrievalPipeline(rc, trace, q, decision)
		if empty {
			finalStatus = "fallback"
			return o.fallbackResponse(decision.RouteKind)
		}
	}

	if rc.Cancelled() {
		finalStatus = "cancelled"
		return o.cancelledResponse(trace, ragtype.StageGeneration)
	}

	// --- 10. Generation ---
	gen, modelID, tier, primaryLatency, genOK := o.runGeneration(rc, trace, q, decision, compressedCtx)
	if !genOK {
		finalStatus = "fallback"
		r := o.fallbackResponse(decision.RouteKind)
		r.Metadata.Model = modelID
		return r
	}
	totalCost += gen.CostUSD
	_ = tier

	if rc.Cancelled() {
		finalStatus = "cancelled"
		return o.cancelledResponse(trace, ragtype.StageGrounding)
	}

	// --- 11. Grounding ---
	verdict, answerText, fallback := o.runGrounding(trace, compressedCtx, gen)

	// --- 12. Output validation ---
	valid, _ := o.runOutputValidation(trace, decision.RouteKind, answerText)

	tokensUsed := gen.TokensIn + gen.TokensOut
	faithfulness := verdict.Score

	resp = ragtype.Response{
		Answer:  &answerText,
		Sources: buildSources(compressedCtx),
		Metadata: ragtype.ResponseMetadata{
			RouteUsed:         decision.RouteKind,
			FaithfulnessScore: &faithfulness,
			Model:             modelID,
			TokensUsed:        &tokensUsed,
			SchemaValid:       valid,
		},
		Fallback: fallback,
	}
	if fallback {
		finalStatus = "fallback"
	}

	contextText := buildContextText(compressedCtx)
	if o.shadowRunner != nil {
		o.shadowRunner.MaybeFork(ctx, experiment.ShadowForkInput{
			UserID:         q.UserID,
			SessionID:      q.SessionID,
			TenantID:       q.TenantID,
			Question:       q.Text,
			System:         o.systemPrompt,
			Context:        contextText,
			CompressedCtx:  compressedCtx.OrderedChunks,
			PrimaryLatency: primaryLatency,
		})
	}

	return resp
}

func (o *Orchestrator) resolveVariant(ctx context.Context, q ragtype.Query) string {
	if o.flagResolver == nil {
		return ""
	}
	variant := o.flagResolver.Resolve(ModelVariantFlag, q.UserID, q.TenantID)
	if variant == "" {
		return ""
	}
	if o.variantRecorder != nil {
		if err := o.variantRecorder.Record(ctx, q.UserID, q.TenantID, ModelVariantFlag, variant); err != nil {
			telemetry.LogSinkError(o.log, err)
		}
	}
	if o.metricSink != nil {
		o.metricSink.Inc("variant_assigned_total", map[string]string{"flag": ModelVariantFlag, "variant": variant}, 1)
	}
	return variant
}
