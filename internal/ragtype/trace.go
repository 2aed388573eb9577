package ragtype

import (
	"sync"
	"time"
)

// SpanStatus is the terminal state of a Span.
type SpanStatus string

const (
	SpanOK      SpanStatus = "ok"
	SpanSkipped SpanStatus = "skipped"
	SpanFailed  SpanStatus = "failed"
)

// StageName is drawn from the fixed stage vocabulary the orchestrator writes.
type StageName string

const (
	StageTraceOpen        StageName = "trace_open"
	StageInputSafety       StageName = "input_safety"
	StageRouting           StageName = "routing"
	StageDispatch          StageName = "dispatch"
	StageQueryExpansion    StageName = "query_expansion"
	StageRetrieval         StageName = "retrieval"
	StageDedupFuse         StageName = "dedup_fuse"
	StageRerank            StageName = "rerank"
	StageCompression       StageName = "compression"
	StageGeneration        StageName = "generation"
	StageGrounding         StageName = "grounding"
	StageOutputValidation  StageName = "output_validation"
	StageFinalize          StageName = "finalize"
	StageShadow            StageName = "shadow"
)

// Span is one stage's trace record within a Trace.
type Span struct {
	Name       StageName
	Start      time.Time
	End        time.Time
	Status     SpanStatus
	Reason     string // required when Status == SpanSkipped
	Attributes map[string]any
}

// Trace owns the lazily-appended, append-only span list for one request.
type Trace struct {
	TraceID         string
	Timestamp       time.Time
	UserID          string
	SessionID       string
	PipelineVersion string
	ConfigHash      string
	Variant         string

	mu      sync.Mutex
	spans   []Span
	scores  map[string]float64
	frozen  bool
	Totals  Totals
}

// Totals holds the request-level aggregate metrics recorded at finalize.
type Totals struct {
	LatencyMS int64
	CostUSD   float64
}

// NewTrace creates an open (unfrozen) Trace.
func NewTrace(traceID, userID, sessionID, pipelineVersion, configHash string) *Trace {
	return &Trace{
		TraceID:         traceID,
		Timestamp:       time.Now(),
		UserID:          userID,
		SessionID:       sessionID,
		PipelineVersion: pipelineVersion,
		ConfigHash:      configHash,
		scores:          make(map[string]float64),
	}
}

// AddSpan appends a span. Panics if the trace is already frozen — that would be
// a programming invariant violation, not a recoverable request error.
func (t *Trace) AddSpan(s Span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		panic("ragtype: AddSpan called on a frozen trace")
	}
	t.spans = append(t.spans, s)
}

// SetScore records a named scalar score on the trace.
func (t *Trace) SetScore(name string, value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scores[name] = value
}

// Freeze finalizes the trace; subsequent AddSpan calls panic. Returns a
// snapshot safe to hand to a TraceSink.
func (t *Trace) Freeze() FrozenTrace {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true

	spans := make([]Span, len(t.spans))
	copy(spans, t.spans)
	scores := make(map[string]float64, len(t.scores))
	for k, v := range t.scores {
		scores[k] = v
	}

	return FrozenTrace{
		TraceID:         t.TraceID,
		Timestamp:       t.Timestamp,
		UserID:          t.UserID,
		SessionID:       t.SessionID,
		PipelineVersion: t.PipelineVersion,
		ConfigHash:      t.ConfigHash,
		Variant:         t.Variant,
		Spans:           spans,
		Scores:          scores,
		Totals:          t.Totals,
	}
}

// FrozenTrace is the immutable snapshot handed to a TraceSink.
type FrozenTrace struct {
	TraceID         string
	Timestamp       time.Time
	UserID          string
	SessionID       string
	PipelineVersion string
	ConfigHash      string
	Variant         string
	Spans           []Span
	Scores          map[string]float64
	Totals          Totals
}
