package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/ragtype"
)

func unreachableRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	})
}

func TestRedisSink_WriteTraceFallsBackToLocalFileWhenRedisUnreachable(t *testing.T) {
	dir := t.TempDir()
	log := logrus.New()
	log.SetOutput(os.Stderr) // keep default; just need a valid entry
	sink := NewRedisSink(unreachableRedisClient(), logrus.NewEntry(log), dir)

	frozen := ragtype.FrozenTrace{TraceID: "t1", UserID: "u1"}
	err := sink.WriteTrace(context.Background(), frozen)
	require.NoError(t, err, "fallback write should succeed even though redis is unreachable")

	data, err := os.ReadFile(filepath.Join(dir, "traces.ndjson"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"TraceID":"t1"`)
}

func TestRedisSink_AppendFallsBackToLocalFile(t *testing.T) {
	dir := t.TempDir()
	sink := NewRedisSink(unreachableRedisClient(), logrus.NewEntry(logrus.New()), dir)

	event := ragtype.AuditEvent{EventID: "e1", EventType: "safety_block"}
	err := sink.Append(context.Background(), event)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "audit.ndjson"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"EventID":"e1"`)
}

func TestLogSinkError_NilErrorIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		LogSinkError(logrus.NewEntry(logrus.New()), nil)
	})
}
