package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"ragcore/internal/ragtype"
)

// TraceSink receives a FrozenTrace exactly once per request, at finalize.
type TraceSink interface {
	WriteTrace(ctx context.Context, t ragtype.FrozenTrace) error
}

// AuditSink appends AuditEvents. It must never support update or delete.
type AuditSink interface {
	Append(ctx context.Context, e ragtype.AuditEvent) error
}

// RedisSink backs both TraceSink and AuditSink with append-only Redis lists,
// falling back to a local newline-delimited-JSON file when Redis is
// unreachable so observation failures never become request failures.
type RedisSink struct {
	client       *redis.Client
	log          *logrus.Entry
	fallbackDir  string
	traceKey     string
	auditKey     string

	mu sync.Mutex
}

// NewRedisSink builds a sink. fallbackDir is created on first fallback write.
func NewRedisSink(client *redis.Client, log *logrus.Entry, fallbackDir string) *RedisSink {
	return &RedisSink{
		client:      client,
		log:         log,
		fallbackDir: fallbackDir,
		traceKey:    "ragcore:traces",
		auditKey:    "ragcore:audit",
	}
}

func (s *RedisSink) WriteTrace(ctx context.Context, t ragtype.FrozenTrace) error {
	b, err := json.Marshal(t)
	if err != nil {
		return &ragtype.SinkError{Sink: "trace", Cause: err}
	}
	if err := s.client.RPush(ctx, s.traceKey, b).Err(); err != nil {
		s.log.WithError(err).Warn("trace sink: redis unavailable, writing local fallback")
		return s.writeFallback("traces.ndjson", b)
	}
	return nil
}

func (s *RedisSink) Append(ctx context.Context, e ragtype.AuditEvent) error {
	b, err := json.Marshal(e)
	if err != nil {
		return &ragtype.SinkError{Sink: "audit", Cause: err}
	}
	if err := s.client.RPush(ctx, s.auditKey, b).Err(); err != nil {
		s.log.WithError(err).Warn("audit sink: redis unavailable, writing local fallback")
		return s.writeFallback("audit.ndjson", b)
	}
	return nil
}

func (s *RedisSink) writeFallback(name string, line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.fallbackDir, 0o755); err != nil {
		return &ragtype.SinkError{Sink: name, Cause: err}
	}
	path := filepath.Join(s.fallbackDir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &ragtype.SinkError{Sink: name, Cause: err}
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return &ragtype.SinkError{Sink: name, Cause: err}
	}
	return nil
}

// LogSinkError logs a trace/audit sink write failure instead of discarding
// it; callers continue the request, so sink errors are never terminal. A nil
// err is ignored.
func LogSinkError(log *logrus.Entry, err error) {
	if err == nil {
		return
	}
	log.WithError(err).Error(fmt.Sprintf("observation sink error: %v", err))
}
