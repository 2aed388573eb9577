package orchestrator

import (
	"strings"

	"ragcore/internal/ragtype"
)

// fallbackResponse builds the terminal non-blocked response shape used
// whenever a stage fails in a way the pipeline cannot recover from locally
// (routing error, reserved route, empty retrieval, generation failure). route
// may be empty when the failure occurs before routing completes.
func (o *Orchestrator) fallbackResponse(route ragtype.RouteKind) ragtype.Response {
	answer := o.cfg.Grounding.FallbackText
	return ragtype.Response{
		Answer:   &answer,
		Fallback: true,
		Metadata: ragtype.ResponseMetadata{RouteUsed: route},
	}
}

// cancelledResponse builds the terminal Response for a request whose
// deadline or cancellation signal fired before stage could run, and records
// the terminal failed span for it.
func (o *Orchestrator) cancelledResponse(trace *ragtype.Trace, stage ragtype.StageName) ragtype.Response {
	err := &ragtype.CancelledError{Stage: string(stage)}
	now := o.clk.Now()
	trace.AddSpan(ragtype.Span{Name: stage, Start: now, End: now, Status: ragtype.SpanFailed, Reason: "cancelled",
		Attributes: map[string]any{"error": err.Error()}})

	answer := o.cfg.Grounding.FallbackText + " (request cancelled before completion)"
	return ragtype.Response{
		Answer:   &answer,
		Fallback: true,
	}
}

// buildSources maps the surviving compressed chunks to client-visible
// citations, in the order they appear in the compressed context.
func buildSources(ctx ragtype.CompressedContext) []ragtype.Source {
	sources := make([]ragtype.Source, 0, len(ctx.OrderedChunks))
	for _, c := range ctx.OrderedChunks {
		sources = append(sources, ragtype.Source{
			DocID:          c.Chunk.DocID,
			ChunkID:        c.Chunk.ChunkID,
			TextSnippet:    c.Text(),
			RelevanceScore: c.Chunk.Score,
		})
	}
	return sources
}

// buildContextText joins the surviving chunks' text into the single context
// block handed to the generation stage, one chunk per paragraph.
func buildContextText(ctx ragtype.CompressedContext) string {
	parts := make([]string, 0, len(ctx.OrderedChunks))
	for _, c := range ctx.OrderedChunks {
		parts = append(parts, c.Text())
	}
	return strings.Join(parts, "\n\n")
}

// recordFinalizeMetrics is the last thing Handle does for every request,
// success or failure: the counters and histograms consumers dashboard against.
func (o *Orchestrator) recordFinalizeMetrics(frozen ragtype.FrozenTrace, route ragtype.RouteKind, status string) {
	if o.metricSink == nil {
		return
	}
	o.metricSink.Inc("requests_total", map[string]string{"route": string(route), "status": status}, 1)
	o.metricSink.Observe("request_duration_seconds", map[string]string{"stage": "total"}, float64(frozen.Totals.LatencyMS)/1000.0)
}
