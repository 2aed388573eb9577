package experiment

import (
	"context"

	"ragcore/internal/clock"
	"ragcore/internal/idgen"
	"ragcore/internal/ragtype"
	"ragcore/internal/telemetry"
)

// VariantRecorder appends a variant_assignment audit event on every primary
// request, before the pipeline begins, so experiment analysis can join
// assignments back to outcomes even when the request later fails.
type VariantRecorder struct {
	sink  telemetry.AuditSink
	clk   clock.Clock
	idGen idgen.IDGen
}

// NewVariantRecorder builds a VariantRecorder.
func NewVariantRecorder(sink telemetry.AuditSink, clk clock.Clock, idGen idgen.IDGen) *VariantRecorder {
	return &VariantRecorder{sink: sink, clk: clk, idGen: idGen}
}

// Record appends the assignment. Sink errors are logged by the caller via
// telemetry.LogSinkError; they never block or fail the request.
func (r *VariantRecorder) Record(ctx context.Context, userID, tenantID, flag, variant string) error {
	event := ragtype.AuditEvent{
		EventID:   r.idGen.NewID(),
		EventType: "variant_assignment",
		Timestamp: r.clk.Now(),
		Actor:     ragtype.Actor{Type: "user", ID: userID},
		Resource:  ragtype.Resource{Type: "feature_flag", ID: flag},
		Action:    "assign",
		TenantID:  tenantID,
		Details: map[string]any{
			"flag":    flag,
			"variant": variant,
		},
	}
	return r.sink.Append(ctx, event)
}
