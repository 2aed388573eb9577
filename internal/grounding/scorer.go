// Package grounding implements the GroundingScorer and OutputSchemaValidator
// stages.
package grounding

import (
	"math"
	"strings"

	"ragcore/internal/config"
	"ragcore/internal/ragtype"
)

// Scorer computes per-chunk grounding scores and aggregates them per the
// configured method. Pair order is always (context, answer); reversing it is
// a contract violation left to the caller to avoid.
type Scorer struct {
	aggregation    ragtype.AggregationMethod
	passThreshold  float64
	warnThreshold  float64
	fallbackText   string
	disclaimerText string
}

// NewScorer builds a Scorer from the grounding section of config.
func NewScorer(cfg config.GroundingConfig) *Scorer {
	return &Scorer{
		aggregation:    cfg.Aggregation,
		passThreshold:  cfg.PassThreshold,
		warnThreshold:  cfg.WarnThreshold,
		fallbackText:   cfg.FallbackText,
		disclaimerText: cfg.DisclaimerText,
	}
}

// Score computes a per-chunk lexical-overlap grounding score (term overlap
// between answer and chunk text, a local-CPU proxy for a trained NLI/
// hallucination model) and aggregates it per the configured method.
func (s *Scorer) Score(chunks []ragtype.CompressedChunk, answer string) ragtype.GroundingVerdict {
	answerTerms := termSet(answer)

	perChunk := make([]float64, len(chunks))
	for i, c := range chunks {
		perChunk[i] = overlapScore(answerTerms, termSet(c.Text()))
	}

	aggregated := aggregate(perChunk, s.aggregation)
	level := s.levelFor(aggregated)

	return ragtype.GroundingVerdict{
		Score:          aggregated,
		Level:          level,
		PerChunkScores: perChunk,
		Aggregation:    s.aggregation,
	}
}

func (s *Scorer) levelFor(score float64) ragtype.GroundingLevel {
	switch {
	case score >= s.passThreshold:
		return ragtype.GroundingPass
	case score >= s.warnThreshold:
		return ragtype.GroundingWarn
	default:
		return ragtype.GroundingFail
	}
}

// Apply implements the decision policy: PASS returns the answer unchanged,
// WARN prefixes a disclaimer, FAIL substitutes the fallback text and marks
// the response as a fallback.
func (s *Scorer) Apply(answer string, verdict ragtype.GroundingVerdict) (text string, fallback bool) {
	switch verdict.Level {
	case ragtype.GroundingPass:
		return answer, false
	case ragtype.GroundingWarn:
		return s.disclaimerText + " " + answer, false
	default:
		return s.fallbackText, true
	}
}

func aggregate(scores []float64, method ragtype.AggregationMethod) float64 {
	if len(scores) == 0 {
		return 0
	}
	switch method {
	case ragtype.AggregationMean:
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		return sum / float64(len(scores))
	case ragtype.AggregationMin:
		min := scores[0]
		for _, s := range scores[1:] {
			if s < min {
				min = s
			}
		}
		return min
	default: // MAX
		max := scores[0]
		for _, s := range scores[1:] {
			if s > max {
				max = s
			}
		}
		return max
	}
}

func termSet(text string) map[string]bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[strings.ToLower(f)] = true
	}
	return set
}

func overlapScore(answer, chunk map[string]bool) float64 {
	if len(answer) == 0 {
		return 0
	}
	matches := 0
	for term := range answer {
		if chunk[term] {
			matches++
		}
	}
	return math.Min(1.0, float64(matches)/float64(len(answer)))
}
