package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"ragcore/internal/clock"
	"ragcore/internal/compression"
	"ragcore/internal/config"
	"ragcore/internal/embedding"
	"ragcore/internal/experiment"
	"ragcore/internal/expansion"
	"ragcore/internal/generation"
	"ragcore/internal/grounding"
	"ragcore/internal/idgen"
	"ragcore/internal/orchestrator"
	"ragcore/internal/ragtype"
	"ragcore/internal/rerank"
	"ragcore/internal/retrieval"
	"ragcore/internal/retrieval/qdrantstore"
	"ragcore/internal/router"
	"ragcore/internal/security"
	"ragcore/internal/telemetry"
)

// app bundles the wired orchestrator with the resources that need an orderly
// shutdown (the Qdrant connection and the OpenTelemetry tracer provider);
// the Redis client underlying the trace/audit sinks closes the same way.
type app struct {
	orch        *orchestrator.Orchestrator
	tracerProv  *sdktrace.TracerProvider
	qdrantStore *qdrantstore.Store
	redisClient *redis.Client
}

func (a *app) Close() {
	if a.tracerProv != nil {
		_ = a.tracerProv.Shutdown(context.Background())
	}
	if a.qdrantStore != nil {
		_ = a.qdrantStore.Close()
	}
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
}

// buildApp constructs every collaborator and wires it into an Orchestrator.
// It is the only place in the binary that knows concrete adapter types;
// everything downstream of it talks through the interfaces internal/*
// packages declare.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(envOr("RAGCORE_LOG_LEVEL", "info")); err == nil {
		log.SetLevel(lvl)
	}
	log.SetFormatter(&logrus.JSONFormatter{})
	entry := logrus.NewEntry(log)

	tracerProv, err := telemetry.NewTracerProvider(telemetry.DefaultTracerConfig())
	if err != nil {
		return nil, fmt.Errorf("building tracer provider: %w", err)
	}

	embedModel := envOr("RAGCORE_EMBED_MODEL", "text-embedding-3-small")
	embedDim := 1536
	embedder, err := embedding.NewOpenAIEmbedder(embedModel, embedDim)
	if err != nil {
		return nil, fmt.Errorf("building embedder: %w", err)
	}

	qdrantAddr := envOr("RAGCORE_QDRANT_ADDR", "localhost:6334")
	qdrantCollection := envOr("RAGCORE_QDRANT_COLLECTION", "ragcore_chunks")
	store, err := qdrantstore.New(qdrantAddr, qdrantCollection)
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	rtr, err := router.New(ctx, cfg.Routing, embedder)
	if err != nil {
		return nil, fmt.Errorf("building router: %w", err)
	}

	llmClient := buildLLMClient(cfg)
	expander := expansion.NewLLMExpander(llmClient, cfg.Generation.Tiers[config.TierFast])

	retriever := retrieval.NewRetriever(embedder, store, cfg.Retrieval.MaxParallel, cfg.Retrieval.TopK)
	deduper := retrieval.NewDeduper(cfg.Dedup.Threshold)
	fuser := retrieval.NewRankFuser(60)

	var reranker rerank.Reranker = rerank.Passthrough{}
	if endpoint := os.Getenv("RAGCORE_RERANK_ENDPOINT"); endpoint != "" {
		rcfg := rerank.DefaultCrossEncoderConfig()
		rcfg.Endpoint = endpoint
		rcfg.APIKey = os.Getenv("RAGCORE_RERANK_API_KEY")
		reranker = rerank.NewCrossEncoderReranker(rcfg)
	}

	compressor := compression.NewCompressor(cfg.Compression.SentencesPerChunk)
	budgeter := compression.NewTokenBudgeter(cfg.Compression.PromptOverheadTokens)
	tierPolicy := generation.NewModelTierPolicy(cfg.Generation.Tiers)

	scorer := grounding.NewScorer(cfg.Grounding)
	validator, err := grounding.NewSchemaValidator(map[ragtype.RouteKind][]byte{})
	if err != nil {
		return nil, fmt.Errorf("building schema validator: %w", err)
	}

	injection := security.NewInjectionDetector()
	pii := security.NewPIIDetector()

	flagResolver := experiment.NewFlagResolver(cfg.Flags)

	redisClient := redis.NewClient(&redis.Options{Addr: envOr("RAGCORE_REDIS_ADDR", "localhost:6379")})
	fallbackDir := envOr("RAGCORE_TRACE_FALLBACK_DIR", os.TempDir())
	traceSink := telemetry.NewRedisSink(redisClient, entry, fallbackDir)
	auditSink := telemetry.NewRedisSink(redisClient, entry, fallbackDir)
	metricSink := telemetry.NewPrometheusMetricSink(prometheus.DefaultRegisterer)

	clk := clock.System{}
	idGen := idgen.UUID{}

	shadowRunner := experiment.NewShadowRunner(
		cfg.Shadow, llmClient, scorer, traceSink, metricSink, entry, clk, idGen,
		cfg.PipelineVersion, cfg.Hash(),
	)
	variantRecorder := experiment.NewVariantRecorder(auditSink, clk, idGen)

	orch := orchestrator.New(orchestrator.Deps{
		Config:          cfg,
		Embedder:        embedder,
		Injection:       injection,
		PII:             pii,
		Router:          rtr,
		Expander:        expander,
		Retriever:       retriever,
		Deduper:         deduper,
		Fuser:           fuser,
		Reranker:        reranker,
		Compressor:      compressor,
		Budgeter:        budgeter,
		LLMClient:       llmClient,
		TierPolicy:      tierPolicy,
		Scorer:          scorer,
		Validator:       validator,
		FlagResolver:    flagResolver,
		ShadowRunner:    shadowRunner,
		VariantRecorder: variantRecorder,
		TraceSink:       traceSink,
		MetricSink:      metricSink,
		AuditSink:       auditSink,
		Clock:           clk,
		IDGen:           idGen,
		Log:             entry,
		SystemPrompt:    envOr("RAGCORE_SYSTEM_PROMPT", defaultSystemPrompt),
	})

	return &app{orch: orch, tracerProv: tracerProv, qdrantStore: store, redisClient: redisClient}, nil
}

// buildLLMClient picks the OpenAI SDK client unless an HTTP endpoint override
// is set, for self-hosted or internal-gateway model servers.
func buildLLMClient(cfg *config.Config) generation.LLMClient {
	if endpoint := os.Getenv("RAGCORE_GENERATION_ENDPOINT"); endpoint != "" {
		return generation.NewHTTPClient(endpoint, os.Getenv("RAGCORE_GENERATION_API_KEY"))
	}
	return generation.NewOpenAIClient(os.Getenv("OPENAI_API_KEY"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

const defaultSystemPrompt = "You are a support assistant. Answer only from the supplied context. " +
	"If the context does not contain the answer, say so plainly."
