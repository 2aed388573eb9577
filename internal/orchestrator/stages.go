package orchestrator

import (
	"context"
	"time"

	"ragcore/internal/expansion"
	"ragcore/internal/generation"
	"ragcore/internal/ragtype"
	"ragcore/internal/telemetry"
)

// runInputSafety runs the InjectionDetector, then the PIIDetector. Injection
// flags always block; PII flags block only when config.safety.block_on_pii is
// set.
func (o *Orchestrator) runInputSafety(rc *ragtype.RequestContext, trace *ragtype.Trace, q ragtype.Query) (blocked bool, reason string) {
	span := ragtype.Span{Name: ragtype.StageInputSafety, Start: o.clk.Now()}

	verdict := o.injection.Detect(q.Text)
	if verdict.Flagged {
		span.End = o.clk.Now()
		span.Status = ragtype.SpanOK
		span.Attributes = map[string]any{
			"blocked":  true,
			"layer":    "L1",
			"pattern":  verdict.MatchedPattern,
			"category": string(verdict.Category),
		}
		trace.AddSpan(span)
		o.appendSafetyBlock(rc.Context(), q, "L1", string(verdict.Category))
		if o.metricSink != nil {
			o.metricSink.Inc("safety_blocked_total", map[string]string{"layer": "L1", "reason": string(verdict.Category)}, 1)
		}
		return true, "injection"
	}

	findings := o.pii.Detect(q.Text)
	if o.metricSink != nil {
		for _, f := range findings {
			o.metricSink.Inc("pii_detected_total", map[string]string{"type": string(f.Type)}, 1)
		}
	}

	if len(findings) > 0 && o.cfg.Safety.BlockOnPII {
		span.End = o.clk.Now()
		span.Status = ragtype.SpanOK
		span.Attributes = map[string]any{"blocked": true, "layer": "pii", "pii_count": len(findings)}
		trace.AddSpan(span)
		o.appendSafetyBlock(rc.Context(), q, "pii", "pii_policy")
		if o.metricSink != nil {
			o.metricSink.Inc("safety_blocked_total", map[string]string{"layer": "pii", "reason": "pii_policy"}, 1)
		}
		return true, "pii_policy_block"
	}

	span.End = o.clk.Now()
	span.Status = ragtype.SpanOK
	span.Attributes = map[string]any{"blocked": false, "pii_count": len(findings)}
	trace.AddSpan(span)
	return false, ""
}

func (o *Orchestrator) appendSafetyBlock(ctx context.Context, q ragtype.Query, layer, reason string) {
	if o.auditSink == nil {
		return
	}
	event := ragtype.AuditEvent{
		EventID:   o.idGen.NewID(),
		EventType: "safety_block",
		Timestamp: o.clk.Now(),
		Actor:     ragtype.Actor{Type: "user", ID: q.UserID},
		Resource:  ragtype.Resource{Type: "query", ID: q.SessionID},
		Action:    "block",
		TenantID:  q.TenantID,
		Details:   map[string]any{"layer": layer, "reason": reason},
	}
	if err := o.auditSink.Append(ctx, event); err != nil {
		telemetry.LogSinkError(o.log, err)
	}
}

// runRouting embeds the query once via Router.Classify and applies an
// explicit ForceRoute override from QueryOptions when present.
func (o *Orchestrator) runRouting(rc *ragtype.RequestContext, trace *ragtype.Trace, q ragtype.Query) (ragtype.RouteDecision, bool) {
	span := ragtype.Span{Name: ragtype.StageRouting, Start: o.clk.Now()}

	decision, err := o.router.Classify(rc.Context(), o.embedder, q.Text)
	if err != nil {
		span.End = o.clk.Now()
		span.Status = ragtype.SpanFailed
		span.Reason = err.Error()
		trace.AddSpan(span)
		return ragtype.RouteDecision{}, false
	}

	if q.Options.ForceRoute != "" {
		decision.RouteKind = q.Options.ForceRoute
	}

	span.End = o.clk.Now()
	span.Status = ragtype.SpanOK
	span.Attributes = map[string]any{"route": string(decision.RouteKind), "confidence": decision.Confidence, "scores": decision.Scores}
	trace.AddSpan(span)
	return decision, true
}

type dispatchResult int

const (
	dispatchRAG dispatchResult = iota
	dispatchDirect
	dispatchShortCircuit
)

// runDispatch handles the per-route branch: ESCALATE and the reserved
// SQL_STRUCTURED/API_LOOKUP routes short-circuit before retrieval or
// generation; DIRECT skips retrieval entirely; RAG proceeds through the full
// pipeline.
func (o *Orchestrator) runDispatch(trace *ragtype.Trace, decision ragtype.RouteDecision) dispatchResult {
	span := ragtype.Span{Name: ragtype.StageDispatch, Start: o.clk.Now()}

	switch decision.RouteKind {
	case ragtype.RouteEscalate:
		span.End = o.clk.Now()
		span.Status = ragtype.SpanOK
		span.Attributes = map[string]any{"action": "fallback", "route": string(decision.RouteKind)}
		trace.AddSpan(span)
		return dispatchShortCircuit
	case ragtype.RouteSQLStructured, ragtype.RouteAPILookup:
		err := &ragtype.NotImplementedRouteError{Route: decision.RouteKind}
		span.End = o.clk.Now()
		span.Status = ragtype.SpanFailed
		span.Reason = err.Error()
		trace.AddSpan(span)
		return dispatchShortCircuit
	case ragtype.RouteDirect:
		span.End = o.clk.Now()
		span.Status = ragtype.SpanOK
		span.Attributes = map[string]any{"action": "direct"}
		trace.AddSpan(span)
		return dispatchDirect
	default:
		span.End = o.clk.Now()
		span.Status = ragtype.SpanOK
		span.Attributes = map[string]any{"action": "rag"}
		trace.AddSpan(span)
		return dispatchRAG
	}
}

// skipRetrievalSpans records skipped spans for every stage the DIRECT route
// bypasses, each carrying the same reason.
func (o *Orchestrator) skipRetrievalSpans(trace *ragtype.Trace, reason string) {
	now := o.clk.Now()
	for _, name := range []ragtype.StageName{
		ragtype.StageQueryExpansion,
		ragtype.StageRetrieval,
		ragtype.StageDedupFuse,
		ragtype.StageRerank,
		ragtype.StageCompression,
	} {
		trace.AddSpan(ragtype.Span{Name: name, Start: now, End: now, Status: ragtype.SpanSkipped, Reason: reason})
	}
}

// runRetrievalPipeline runs expansion, retrieval, dedup+fuse, rerank, and
// compression in sequence. The second return value is true when retrieval
// yielded no chunks across every query variant, in which case the caller
// must return a terminal fallback Response.
func (o *Orchestrator) runRetrievalPipeline(rc *ragtype.RequestContext, trace *ragtype.Trace, q ragtype.Query, decision ragtype.RouteDecision) (ragtype.CompressedContext, bool) {
	plan := o.runExpansion(rc, trace, q, decision)

	retrSpan := ragtype.Span{Name: ragtype.StageRetrieval, Start: o.clk.Now()}
	result, perQuery := o.retriever.RetrieveAll(rc.Context(), q.TenantID, plan.AllQueries())
	retrSpan.End = o.clk.Now()
	retrSpan.Status = ragtype.SpanOK
	retrSpan.Attributes = map[string]any{"empty": result.Empty, "raw_counts": result.RawCounts}
	if len(result.Errors) > 0 {
		retrSpan.Attributes["query_errors"] = result.Errors
	}
	trace.AddSpan(retrSpan)

	if result.Empty {
		return ragtype.CompressedContext{}, true
	}

	fuseSpan := ragtype.Span{Name: ragtype.StageDedupFuse, Start: o.clk.Now()}
	fused := o.fuser.Fuse(perQuery)
	deduped := o.deduper.Dedup(fused)
	fuseSpan.End = o.clk.Now()
	fuseSpan.Status = ragtype.SpanOK
	fuseSpan.Attributes = map[string]any{"fused_count": len(fused), "deduped_count": len(deduped)}
	trace.AddSpan(fuseSpan)

	chunks := o.runRerank(rc, trace, q, deduped)

	compSpan := ragtype.Span{Name: ragtype.StageCompression, Start: o.clk.Now()}
	compressed := o.compressor.Compress(q.Text, chunks)
	ctx := o.budgeter.Enforce(compressed, o.cfg.Compression.MaxTokens)
	compSpan.End = o.clk.Now()
	compSpan.Status = ragtype.SpanOK
	compSpan.Attributes = map[string]any{"dropped_sentences": ctx.DroppedSentenceCount, "total_tokens": ctx.TotalTokens}
	trace.AddSpan(compSpan)

	return ctx, false
}

func (o *Orchestrator) runExpansion(rc *ragtype.RequestContext, trace *ragtype.Trace, q ragtype.Query, decision ragtype.RouteDecision) ragtype.QueryPlan {
	span := ragtype.Span{Name: ragtype.StageQueryExpansion, Start: o.clk.Now()}

	if decision.Confidence >= o.cfg.Expansion.SkipThreshold {
		span.End = o.clk.Now()
		span.Status = ragtype.SpanSkipped
		span.Reason = "high_confidence"
		trace.AddSpan(span)
		return ragtype.QueryPlan{PrimaryText: q.Text, SkipExpansion: true}
	}
	if !o.cfg.Expansion.Enabled || o.expander == nil {
		span.End = o.clk.Now()
		span.Status = ragtype.SpanSkipped
		span.Reason = "disabled"
		trace.AddSpan(span)
		return ragtype.QueryPlan{PrimaryText: q.Text, SkipExpansion: true}
	}

	expanded, skipped := o.expander.Expand(rc.Context(), q.Text, o.cfg.Expansion.Variants)
	plan := expansion.Plan(q.Text, expanded, skipped)

	span.End = o.clk.Now()
	span.Status = ragtype.SpanOK
	span.Attributes = map[string]any{"skipped": skipped, "variant_count": len(plan.Variants)}
	if skipped {
		span.Attributes["reason"] = "expander_error"
	}
	trace.AddSpan(span)
	return plan
}

func (o *Orchestrator) runRerank(rc *ragtype.RequestContext, trace *ragtype.Trace, q ragtype.Query, chunks []ragtype.Chunk) []ragtype.Chunk {
	span := ragtype.Span{Name: ragtype.StageRerank, Start: o.clk.Now()}

	reranked, err := o.reranker.Rerank(rc.Context(), q.Text, chunks, o.cfg.Rerank.TopN)
	if err != nil {
		topN := o.cfg.Rerank.TopN
		if topN > len(chunks) {
			topN = len(chunks)
		}
		span.End = o.clk.Now()
		span.Status = ragtype.SpanOK
		span.Attributes = map[string]any{"degraded": true, "reason": "rerank_error"}
		trace.AddSpan(span)
		return chunks[:topN]
	}

	span.End = o.clk.Now()
	span.Status = ragtype.SpanOK
	span.Attributes = map[string]any{"kept": len(reranked)}
	trace.AddSpan(span)
	return reranked
}

func (o *Orchestrator) runGeneration(rc *ragtype.RequestContext, trace *ragtype.Trace, q ragtype.Query, decision ragtype.RouteDecision, compressedCtx ragtype.CompressedContext) (ragtype.Generation, string, string, time.Duration, bool) {
	span := ragtype.Span{Name: ragtype.StageGeneration, Start: o.clk.Now()}

	contextText := buildContextText(compressedCtx)
	tier, modelID := o.tierPolicy.Decide(decision.RouteKind, compressedCtx.TotalTokens, len([]rune(q.Text)), generation.Flags{})

	maxTokens := o.cfg.Generation.MaxOutputTokens
	if q.Options.MaxTokens > 0 {
		maxTokens = q.Options.MaxTokens
	}
	temperature := o.cfg.Generation.Temperature
	if q.Options.Temperature > 0 {
		temperature = q.Options.Temperature
	}

	req := generation.Request{
		System:   o.systemPrompt,
		Context:  contextText,
		Question: q.Text,
		ModelID:  modelID,
		Limits:   generation.Limits{MaxTokens: maxTokens, Temperature: temperature},
	}

	genStart := o.clk.Now()
	gen, err := o.llmClient.Generate(rc.Context(), req)
	latency := o.clk.Now().Sub(genStart)

	if err != nil {
		span.End = o.clk.Now()
		span.Status = ragtype.SpanFailed
		span.Reason = err.Error()
		trace.AddSpan(span)
		if o.metricSink != nil {
			o.metricSink.Inc("llm_errors_total", map[string]string{"stage": "generation"}, 1)
		}
		return ragtype.Generation{}, modelID, string(tier), latency, false
	}

	span.End = o.clk.Now()
	span.Status = ragtype.SpanOK
	span.Attributes = map[string]any{"model": modelID, "tier": string(tier), "tokens_in": gen.TokensIn, "tokens_out": gen.TokensOut, "cost_usd": gen.CostUSD}
	trace.AddSpan(span)
	return gen, modelID, string(tier), latency, true
}

func (o *Orchestrator) runGrounding(trace *ragtype.Trace, compressedCtx ragtype.CompressedContext, gen ragtype.Generation) (ragtype.GroundingVerdict, string, bool) {
	span := ragtype.Span{Name: ragtype.StageGrounding, Start: o.clk.Now()}

	verdict := o.scorer.Score(compressedCtx.OrderedChunks, gen.AnswerText)
	trace.SetScore("grounding", verdict.Score)
	answerText, fallback := o.scorer.Apply(gen.AnswerText, verdict)

	span.End = o.clk.Now()
	span.Status = ragtype.SpanOK
	span.Attributes = map[string]any{"level": string(verdict.Level), "score": verdict.Score}
	trace.AddSpan(span)

	if o.metricSink != nil {
		o.metricSink.Inc("hallucination_verdict_total", map[string]string{"level": string(verdict.Level)}, 1)
		o.metricSink.Observe("tokens_in_total", nil, float64(gen.TokensIn))
		o.metricSink.Observe("tokens_out_total", nil, float64(gen.TokensOut))
		o.metricSink.Observe("llm_cost_usd", nil, gen.CostUSD)
	}

	return verdict, answerText, fallback
}

func (o *Orchestrator) runOutputValidation(trace *ragtype.Trace, route ragtype.RouteKind, answerText string) (bool, []string) {
	span := ragtype.Span{Name: ragtype.StageOutputValidation, Start: o.clk.Now()}

	valid, errs := o.validator.Validate(route, answerText)

	span.End = o.clk.Now()
	span.Status = ragtype.SpanOK
	span.Attributes = map[string]any{"valid": valid}
	if !valid {
		span.Attributes["errors"] = errs
	}
	trace.AddSpan(span)
	return valid, errs
}
