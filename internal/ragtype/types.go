// Package ragtype holds the domain-neutral value types shared by every stage
// of the orchestrator, so stage packages can depend on these without importing
// the orchestrator itself.
package ragtype

import "time"

// Query is an immutable request input.
type Query struct {
	Text      string
	UserID    string
	TenantID  string
	SessionID string
	Options   QueryOptions
}

// QueryOptions carries optional per-request overrides.
type QueryOptions struct {
	MaxTokens      int
	Temperature    float64
	IncludeSources bool
	ForceRoute     RouteKind
}

// Validate enforces the Query invariants from the spec.
func (q Query) Validate() error {
	switch {
	case q.Text == "":
		return ErrInvalidQuery("text must not be empty")
	case len([]rune(q.Text)) > 10000:
		return ErrInvalidQuery("text exceeds 10000 code points")
	case q.UserID == "":
		return ErrInvalidQuery("user_id must not be empty")
	case q.TenantID == "":
		return ErrInvalidQuery("tenant_id must not be empty")
	}
	return nil
}

// RouteKind enumerates the fixed set of route classifications.
type RouteKind string

const (
	RouteRAG           RouteKind = "RAG"
	RouteDirect        RouteKind = "DIRECT"
	RouteEscalate      RouteKind = "ESCALATE"
	RouteSQLStructured RouteKind = "SQL_STRUCTURED"
	RouteAPILookup     RouteKind = "API_LOOKUP"
)

// RouteDecision is the output of the Router stage.
type RouteDecision struct {
	RouteKind         RouteKind
	Confidence        float64
	Scores            map[RouteKind]float64
	MatchedUtterance  string
}

// QueryPlan is the output of the QueryExpander stage.
type QueryPlan struct {
	PrimaryText    string
	Variants       []string
	SkipExpansion  bool
}

// AllQueries returns the primary text followed by its variants, in order.
func (p QueryPlan) AllQueries() []string {
	out := make([]string, 0, 1+len(p.Variants))
	out = append(out, p.PrimaryText)
	out = append(out, p.Variants...)
	return out
}

// Chunk is a retrieved passage. user_id/doc_id/tenant_id/chunk_id are assumed
// nonempty; the retrieval stage relies on the ingest-time invariant.
type Chunk struct {
	VectorID  string
	DocID     string
	ChunkID   string
	TenantID  string
	UserID    string
	Text      string
	Score     float64
	Embedding []float32 // optional
}

// MetadataValid reports whether the ingest-time metadata invariant holds.
func (c Chunk) MetadataValid() bool {
	return c.UserID != "" && c.DocID != "" && c.TenantID != "" && c.ChunkID != ""
}

// RetrievalResult is the output of Retrieval + Dedup + Fuse.
type RetrievalResult struct {
	Chunks    []Chunk
	Empty     bool
	RawCounts map[string]int    // per-query raw hit counts, keyed by query text
	Errors    map[string]string // per-query embed/search failure reason, keyed by query text
}

// CompressedContext is the output of Compression + TokenBudgeting.
type CompressedContext struct {
	OrderedChunks        []CompressedChunk
	DroppedSentenceCount int
	TotalTokens          int
}

// CompressedChunk is a chunk reduced to its selected, budget-surviving sentences.
type CompressedChunk struct {
	Chunk     Chunk
	Sentences []ScoredSentence
}

// Text reassembles a compressed chunk's surviving sentences in original order.
func (c CompressedChunk) Text() string {
	out := ""
	for i, s := range c.Sentences {
		if i > 0 {
			out += " "
		}
		out += s.Text
	}
	return out
}

// ScoredSentence is one sentence with its BM25 relevance score and token cost.
type ScoredSentence struct {
	Text       string
	Score      float64
	Tokens     int
	ChunkIndex int // position of owning chunk within the compression batch
	SentIndex  int // original sentence order within its chunk
}

// Generation is the output of the LLMClient stage.
type Generation struct {
	AnswerText   string
	ModelID      string
	TokensIn     int
	TokensOut    int
	CostUSD      float64
	LatencyMS    int64
	FinishReason string
}

// GroundingLevel is the three-way grounding decision.
type GroundingLevel string

const (
	GroundingPass GroundingLevel = "PASS"
	GroundingWarn GroundingLevel = "WARN"
	GroundingFail GroundingLevel = "FAIL"
)

// AggregationMethod controls how per-chunk grounding scores are combined.
type AggregationMethod string

const (
	AggregationMax  AggregationMethod = "MAX"
	AggregationMean AggregationMethod = "MEAN"
	AggregationMin  AggregationMethod = "MIN"
)

// GroundingVerdict is the output of the GroundingScorer stage.
type GroundingVerdict struct {
	Score           float64
	Level           GroundingLevel
	PerChunkScores  []float64
	Aggregation     AggregationMethod
}

// Source is a client-visible citation into a retrieved chunk.
type Source struct {
	DocID           string
	ChunkID         string
	TextSnippet     string
	RelevanceScore  float64
	SourceURL       string
}

// ResponseMetadata is the bit-stable metadata block of a Response.
type ResponseMetadata struct {
	RouteUsed        RouteKind
	FaithfulnessScore *float64
	Model            string
	LatencyMS        int64
	TokensUsed       *int
	SchemaValid      bool
}

// Response is the single bit-stable output of Orchestrator.Handle.
type Response struct {
	Answer      *string
	TraceID     string
	Sources     []Source
	Metadata    ResponseMetadata
	Fallback    bool
	Blocked     bool
	BlockReason string
}

// Actor identifies who or what performed an audited action.
type Actor struct {
	Type string
	ID   string
}

// Resource identifies what an audited action acted upon.
type Resource struct {
	Type string
	ID   string
}

// AuditEvent is one append-only audit record.
type AuditEvent struct {
	EventID   string
	EventType string
	Timestamp time.Time
	Actor     Actor
	Resource  Resource
	Action    string
	TenantID  string
	Details   map[string]any
}
