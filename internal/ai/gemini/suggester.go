package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/ai"
	"github.com/lavoro-tech/reranker/internal/logger"
)

const systemInstruction = `You maintain the canonical skill ontology of a CV and job matching pipeline.
Given one raw skill string and the current canonical vocabulary, pick the canonical skill the raw string should map to.
Strongly prefer an existing canonical skill; propose a new canonical name only when nothing in the vocabulary fits.
Respond with JSON only, no prose: {"canonical": "<name>", "confidence": <0..1>, "reason": "<one sentence>"}`

const promptTemplate = `Raw skill: {{SKILL}}

Canonical vocabulary:
{{CANONICAL_SKILLS}}

JSON Response:`

const defaultMaxLogLength = 200

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

// Suggester asks Gemini for canonical mappings of unmapped skills.
type Suggester struct {
	generator     contentGenerator
	minConfidence float64
	log           *zap.Logger
	maxLogLen     int
}

// NewSuggester wraps a generator. Suggestions below minConfidence are
// returned with an empty canonical name so callers treat them as "no match".
func NewSuggester(generator contentGenerator, log *zap.Logger, minConfidence float64, maxLogLength int) *Suggester {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Suggester{
		generator:     generator,
		minConfidence: minConfidence,
		log:           log,
		maxLogLen:     maxLogLength,
	}
}

// Suggest proposes a canonical name for one raw skill.
func (s *Suggester) Suggest(ctx context.Context, skill string, canonical []string) (*ai.Suggestion, error) {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return nil, fmt.Errorf("skill is required")
	}

	prompt := buildPrompt(skill, canonical)

	s.log.Debug("gemini suggestion request",
		zap.String("skill", skill),
		zap.Int("vocabulary_size", len(canonical)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, err
	}

	s.log.Debug("gemini suggestion response",
		zap.String("skill", skill),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, s.maxLogLen)),
	)

	suggestion, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if s.minConfidence > 0 && suggestion.Confidence < s.minConfidence {
		s.log.Debug("suggestion dropped by confidence threshold",
			zap.String("skill", skill),
			zap.String("canonical", suggestion.Canonical),
			zap.Float64("confidence", suggestion.Confidence),
			zap.Float64("threshold", s.minConfidence),
		)
		suggestion.Canonical = ""
	}

	suggestion.Raw = raw
	return suggestion, nil
}

func buildPrompt(skill string, canonical []string) string {
	vocabulary := "(empty)"
	if len(canonical) > 0 {
		vocabulary = "- " + strings.Join(canonical, "\n- ")
	}
	prompt := strings.ReplaceAll(promptTemplate, "{{SKILL}}", skill)
	return strings.ReplaceAll(prompt, "{{CANONICAL_SKILLS}}", vocabulary)
}

func parseResponse(raw string) (*ai.Suggestion, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	confidence := coerceFloat(data["confidence"])
	if math.IsNaN(confidence) {
		confidence = 0
	}

	return &ai.Suggestion{
		Canonical:  coerceString(data["canonical"]),
		Confidence: confidence,
		Reason:     coerceString(data["reason"]),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
