package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type stubGenerator struct {
	response   string
	err        error
	lastSystem string
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.lastSystem = system
	s.lastPrompt = message
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestSuggesterSuggest(t *testing.T) {
	stub := &stubGenerator{response: `{"canonical": "Kubernetes", "confidence": 0.92, "reason": "k8s is the common abbreviation"}`}
	suggester := NewSuggester(stub, zap.NewNop(), 0.5, 0)

	suggestion, err := suggester.Suggest(context.Background(), "k8s", []string{"Kubernetes", "Docker"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if suggestion.Canonical != "Kubernetes" {
		t.Fatalf("canonical = %q", suggestion.Canonical)
	}
	if suggestion.Confidence != 0.92 {
		t.Fatalf("confidence = %v", suggestion.Confidence)
	}
	if suggestion.Reason == "" {
		t.Fatal("expected reason to be populated")
	}
	if suggestion.Raw != stub.response {
		t.Fatal("raw response should be preserved")
	}

	if !strings.Contains(stub.lastPrompt, "Raw skill: k8s") {
		t.Fatalf("prompt missing skill: %s", stub.lastPrompt)
	}
	if !strings.Contains(stub.lastPrompt, "- Kubernetes") || !strings.Contains(stub.lastPrompt, "- Docker") {
		t.Fatalf("prompt missing vocabulary: %s", stub.lastPrompt)
	}
	if !strings.Contains(stub.lastSystem, "JSON only") {
		t.Fatalf("system instruction missing: %s", stub.lastSystem)
	}
}

func TestSuggesterAppliesConfidenceThreshold(t *testing.T) {
	stub := &stubGenerator{response: `{"canonical": "Terraform", "confidence": 0.3, "reason": "weak guess"}`}
	suggester := NewSuggester(stub, zap.NewNop(), 0.5, 0)

	suggestion, err := suggester.Suggest(context.Background(), "tf", []string{"Terraform"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if suggestion.Canonical != "" {
		t.Fatalf("canonical = %q, want cleared below threshold", suggestion.Canonical)
	}
	if suggestion.Confidence != 0.3 {
		t.Fatalf("confidence = %v, should survive the downgrade", suggestion.Confidence)
	}
}

func TestSuggesterEmptyVocabulary(t *testing.T) {
	stub := &stubGenerator{response: `{"canonical": "Rust", "confidence": 0.8, "reason": "new entry"}`}
	suggester := NewSuggester(stub, zap.NewNop(), 0, 0)

	if _, err := suggester.Suggest(context.Background(), "rust lang", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stub.lastPrompt, "(empty)") {
		t.Fatalf("prompt should mark an empty vocabulary: %s", stub.lastPrompt)
	}
}

func TestSuggesterRejectsEmptySkill(t *testing.T) {
	suggester := NewSuggester(&stubGenerator{}, zap.NewNop(), 0, 0)

	if _, err := suggester.Suggest(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty skill")
	}
}

func TestSuggesterPropagatesGeneratorError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("boom")}
	suggester := NewSuggester(stub, zap.NewNop(), 0, 0)

	if _, err := suggester.Suggest(context.Background(), "k8s", nil); err == nil {
		t.Fatal("expected generator error to propagate")
	}
}

func TestParseResponseHandlesCodeBlock(t *testing.T) {
	raw := "```json\n{\"canonical\": \"Docker\", \"confidence\": \"0.8\", \"reason\": \"container runtime\"}\n```"
	suggestion, err := parseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if suggestion.Canonical != "Docker" {
		t.Fatalf("canonical = %q", suggestion.Canonical)
	}
	if suggestion.Confidence != 0.8 {
		t.Fatalf("confidence = %v", suggestion.Confidence)
	}
}
