package ragtype

import (
	"context"
	"time"
)

// RequestContext is the per-request value every stage borrows. It is created
// by the orchestrator at request entry and never mutated by a stage.
type RequestContext struct {
	TraceID            string
	StartedAt          time.Time
	Deadline           *time.Time
	VariantName        string
	ConfigSnapshotHash string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRequestContext binds a standard context.Context (carrying cancellation)
// to a RequestContext value. When deadline is non-nil, the context handed to
// every stage call is derived via context.WithDeadline so external calls
// (embedding, retrieval, generation) are bounded by it, not just Cancelled().
func NewRequestContext(ctx context.Context, traceID string, deadline *time.Time) *RequestContext {
	rc := &RequestContext{
		TraceID:   traceID,
		StartedAt: time.Now(),
		Deadline:  deadline,
		ctx:       ctx,
	}
	if deadline != nil {
		rc.ctx, rc.cancel = context.WithDeadline(ctx, *deadline)
	}
	return rc
}

// Context returns the underlying context.Context for cancellation-aware calls.
func (r *RequestContext) Context() context.Context { return r.ctx }

// Close releases the resources held by the deadline-derived context. Safe to
// call even when no deadline was set.
func (r *RequestContext) Close() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Cancelled reports whether the request's cancellation signal has fired or its
// deadline has passed.
func (r *RequestContext) Cancelled() bool {
	select {
	case <-r.ctx.Done():
		return true
	default:
	}
	if r.Deadline != nil && time.Now().After(*r.Deadline) {
		return true
	}
	return false
}

// Elapsed returns the time since the request started.
func (r *RequestContext) Elapsed() time.Duration { return time.Since(r.StartedAt) }
