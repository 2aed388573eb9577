// Package config loads the immutable configuration snapshot every stage reads
// thresholds from. It is built once at startup from a layered set of sources
// (a base YAML file, an optional .env overlay, then environment variables) and
// never mutated afterward; reload is process-restart only.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ragcore/internal/ragtype"
)

// Config is the full immutable snapshot every orchestrator stage reads from.
type Config struct {
	Routing     RoutingConfig     `yaml:"routing"`
	Expansion   ExpansionConfig   `yaml:"expansion"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Dedup       DedupConfig       `yaml:"dedup"`
	Rerank      RerankConfig      `yaml:"rerank"`
	Compression CompressionConfig `yaml:"compression"`
	Grounding   GroundingConfig   `yaml:"grounding"`
	Generation  GenerationConfig `yaml:"generation"`
	Safety      SafetyConfig      `yaml:"safety"`
	Shadow      ShadowConfig      `yaml:"shadow"`
	Flags       map[string]FlagConfig `yaml:"flags"`

	// PipelineVersion is stamped on every Trace for downstream evaluation.
	PipelineVersion string `yaml:"pipeline_version"`
}

type RoutingConfig struct {
	Threshold    float64 `yaml:"threshold"`
	DefaultRoute ragtype.RouteKind `yaml:"default_route"`
	// Utterances holds the pre-embedded utterance set per route kind.
	Utterances map[ragtype.RouteKind][]string `yaml:"utterances"`
}

type ExpansionConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Variants      int     `yaml:"variants"`
	SkipThreshold float64 `yaml:"skip_threshold"`
}

type RetrievalConfig struct {
	TopK        int `yaml:"top_k"`
	MaxParallel int `yaml:"max_parallel"`
}

type DedupConfig struct {
	Threshold float64 `yaml:"threshold"`
}

type RerankConfig struct {
	TopN int `yaml:"top_n"`
}

type CompressionConfig struct {
	SentencesPerChunk    int `yaml:"sentences_per_chunk"`
	MaxTokens            int `yaml:"max_tokens"`
	PromptOverheadTokens int `yaml:"prompt_overhead_tokens"`
}

type GroundingConfig struct {
	Aggregation    ragtype.AggregationMethod `yaml:"aggregation"`
	PassThreshold  float64                   `yaml:"pass_threshold"`
	WarnThreshold  float64                   `yaml:"warn_threshold"`
	FallbackText   string                    `yaml:"fallback_text"`
	DisclaimerText string                    `yaml:"disclaimer_text"`
}

type ModelTier string

const (
	TierFast     ModelTier = "FAST"
	TierStandard ModelTier = "STANDARD"
	TierComplex  ModelTier = "COMPLEX"
)

type GenerationConfig struct {
	Tiers          map[ModelTier]string `yaml:"tiers"`
	Temperature    float64              `yaml:"temperature"`
	MaxOutputTokens int                 `yaml:"max_output_tokens"`
	TimeoutMS      int                  `yaml:"timeout_ms"`
}

func (g GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutMS) * time.Millisecond
}

type SafetyConfig struct {
	L2Enabled  bool `yaml:"l2_enabled"`
	BlockOnPII bool `yaml:"block_on_pii"`
}

type ShadowConfig struct {
	Enabled          bool    `yaml:"enabled"`
	SampleRate       float64 `yaml:"sample_rate"`
	BudgetUSD        float64 `yaml:"budget_usd"`
	CircuitMultiplier float64 `yaml:"circuit_multiplier"`
	MaxInflight      int     `yaml:"max_inflight"`
	CandidateModelID string  `yaml:"candidate_model_id"`
}

type VariantWeight struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

type FlagConfig struct {
	Variants        []VariantWeight   `yaml:"variants"`
	UserOverrides   map[string]string `yaml:"user_overrides"`
	TenantOverrides map[string]string `yaml:"tenant_overrides"`
	Default         string            `yaml:"default"`
}

// Default returns a Config with the thresholds the spec names as defaults.
func Default() *Config {
	return &Config{
		PipelineVersion: "ragcore-1",
		Routing: RoutingConfig{
			Threshold:    0.55,
			DefaultRoute: ragtype.RouteRAG,
			Utterances:   map[ragtype.RouteKind][]string{},
		},
		Expansion: ExpansionConfig{
			Enabled:       true,
			Variants:      2,
			SkipThreshold: 0.92,
		},
		Retrieval: RetrievalConfig{
			TopK:        8,
			MaxParallel: 4,
		},
		Dedup: DedupConfig{Threshold: 0.95},
		Rerank: RerankConfig{TopN: 8},
		Compression: CompressionConfig{
			SentencesPerChunk:    4,
			MaxTokens:            2000,
			PromptOverheadTokens: 300,
		},
		Grounding: GroundingConfig{
			Aggregation:    ragtype.AggregationMax,
			PassThreshold:  0.75,
			WarnThreshold:  0.5,
			FallbackText:   "I don't have enough grounded information to answer that confidently. Please review the sources below.",
			DisclaimerText: "Note: this answer may be only partially supported by the retrieved sources.",
		},
		Generation: GenerationConfig{
			Tiers: map[ModelTier]string{
				TierFast:     "fast-model",
				TierStandard: "standard-model",
				TierComplex:  "complex-model",
			},
			Temperature:     0.2,
			MaxOutputTokens: 800,
			TimeoutMS:       20000,
		},
		Safety: SafetyConfig{L2Enabled: false, BlockOnPII: false},
		Shadow: ShadowConfig{
			Enabled:           false,
			SampleRate:        0.0,
			BudgetUSD:         0.0,
			CircuitMultiplier: 3.0,
			MaxInflight:       4,
		},
		Flags: map[string]FlagConfig{},
	}
}

// Load builds the immutable config snapshot: base YAML file (if present) →
// .env overlay (if present) → environment variable overrides.
func Load(yamlPath string) (*Config, error) {
	cfg := Default()

	if yamlPath != "" {
		if data, err := os.ReadFile(yamlPath); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	_ = godotenv.Load() // best-effort local dev overlay; absence is not an error

	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RAGCORE_ROUTING_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Routing.Threshold = f
		}
	}
	if v := os.Getenv("RAGCORE_RETRIEVAL_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.TopK = n
		}
	}
	if v := os.Getenv("RAGCORE_SHADOW_ENABLED"); v != "" {
		cfg.Shadow.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("RAGCORE_SHADOW_SAMPLE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Shadow.SampleRate = f
		}
	}
	if v := os.Getenv("RAGCORE_SHADOW_BUDGET_USD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Shadow.BudgetUSD = f
		}
	}
}

// Hash computes a stable content hash of the snapshot, stamped on every Trace
// and RequestContext so downstream evaluation tools can detect config drift.
func (c *Config) Hash() string {
	// Deterministic: json.Marshal emits struct fields in declaration order and
	// map keys sorted, so the output is stable; reload is restart-only.
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
