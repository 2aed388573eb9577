package ragtype

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestContext_CancelledWhenParentContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc := NewRequestContext(ctx, "t1", nil)
	defer rc.Close()

	assert.True(t, rc.Cancelled())
}

func TestRequestContext_NotCancelledByDefault(t *testing.T) {
	rc := NewRequestContext(context.Background(), "t1", nil)
	defer rc.Close()

	assert.False(t, rc.Cancelled())
}

func TestRequestContext_DeadlineIsPropagatedIntoContext(t *testing.T) {
	deadline := time.Now().Add(-time.Second) // already passed
	rc := NewRequestContext(context.Background(), "t1", &deadline)
	defer rc.Close()

	select {
	case <-rc.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("expected rc.Context() to be done once the deadline has passed")
	}
	assert.True(t, rc.Cancelled())
}

func TestRequestContext_CloseIsSafeWithoutDeadline(t *testing.T) {
	rc := NewRequestContext(context.Background(), "t1", nil)
	assert.NotPanics(t, func() { rc.Close() })
}
