package ragtype

import "fmt"

// Disposition is the static failure handling a stage declares for its errors.
type Disposition string

const (
	// DispositionTerminal means the orchestrator must stop the pipeline and
	// translate the error directly into a terminal Response.
	DispositionTerminal Disposition = "terminal"
	// DispositionDegrade means the stage recovers locally: record the reason
	// on the span and continue the pipeline without the stage's output.
	DispositionDegrade Disposition = "degrade"
	// DispositionPartial means some sub-units of the stage succeeded; continue
	// with the successful subset.
	DispositionPartial Disposition = "partial"
)

// StageError is the common shape every stage-level error implements.
type StageError interface {
	error
	Disposition() Disposition
}

// InvalidQueryError reports a Query invariant violation.
type InvalidQueryError struct{ Reason string }

func ErrInvalidQuery(reason string) *InvalidQueryError { return &InvalidQueryError{Reason: reason} }
func (e *InvalidQueryError) Error() string              { return "invalid query: " + e.Reason }
func (e *InvalidQueryError) Disposition() Disposition   { return DispositionTerminal }

// SafetyBlockError reports an injection or ML-guard positive.
type SafetyBlockError struct {
	Layer   string // "L1" (injection), "L2" (ML guard)
	Reason  string
	PatternID string
}

func (e *SafetyBlockError) Error() string {
	return fmt.Sprintf("safety block (%s): %s", e.Layer, e.Reason)
}
func (e *SafetyBlockError) Disposition() Disposition { return DispositionTerminal }

// NotImplementedRouteError reports a route the core cannot serve.
type NotImplementedRouteError struct{ Route RouteKind }

func (e *NotImplementedRouteError) Error() string {
	return fmt.Sprintf("route %s is reserved and not implemented", e.Route)
}
func (e *NotImplementedRouteError) Disposition() Disposition { return DispositionTerminal }

// DegradedStageError reports a non-fatal stage failure (rerank/expansion/validator).
type DegradedStageError struct {
	Stage  string
	Reason string
	Cause  error
}

func (e *DegradedStageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s degraded: %s: %v", e.Stage, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s degraded: %s", e.Stage, e.Reason)
}
func (e *DegradedStageError) Unwrap() error          { return e.Cause }
func (e *DegradedStageError) Disposition() Disposition { return DispositionDegrade }

// RetrievalEmptyError reports that every per-query search yielded nothing.
type RetrievalEmptyError struct{}

func (e *RetrievalEmptyError) Error() string          { return "retrieval produced no chunks after fusion and dedup" }
func (e *RetrievalEmptyError) Disposition() Disposition { return DispositionPartial }

// GenerationFailedError reports an LLM error or timeout.
type GenerationFailedError struct{ Cause error }

func (e *GenerationFailedError) Error() string          { return fmt.Sprintf("generation failed: %v", e.Cause) }
func (e *GenerationFailedError) Unwrap() error          { return e.Cause }
func (e *GenerationFailedError) Disposition() Disposition { return DispositionTerminal }

// GroundingFailError reports a FAIL-level grounding verdict.
type GroundingFailError struct{ Verdict GroundingVerdict }

func (e *GroundingFailError) Error() string {
	return fmt.Sprintf("grounding failed: score=%.3f level=%s", e.Verdict.Score, e.Verdict.Level)
}
func (e *GroundingFailError) Disposition() Disposition { return DispositionTerminal }

// CancelledError reports a deadline exceeded or cancellation signal fired.
type CancelledError struct{ Stage string }

func (e *CancelledError) Error() string          { return fmt.Sprintf("%s cancelled", e.Stage) }
func (e *CancelledError) Disposition() Disposition { return DispositionTerminal }

// SinkError reports a trace/audit/metric sink failure. Never terminal.
type SinkError struct {
	Sink  string
	Cause error
}

func (e *SinkError) Error() string          { return fmt.Sprintf("%s sink error: %v", e.Sink, e.Cause) }
func (e *SinkError) Unwrap() error          { return e.Cause }
func (e *SinkError) Disposition() Disposition { return DispositionDegrade }
