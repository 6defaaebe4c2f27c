package chat

import (
	"context"
	"strings"
	"testing"

	"pamubot/app/service/history"
)

func TestSynthesizerFastPath(t *testing.T) {
	fc := &fakeCompleter{textResponses: []string{"Nice to meet you!"}}

	turns := []history.Turn{
		{Role: history.RoleUser, Content: "hi"},
		{Role: history.RoleAssistant, Content: "Hello!"},
	}

	answer, err := NewSynthesizer(fc, "Pamudu").Synthesize(context.Background(), "who are you?", turns, nil)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if answer.Text != "Nice to meet you!" {
		t.Fatalf("unexpected answer %q", answer.Text)
	}
	if len(answer.Citations) != 0 {
		t.Fatalf("fast path must not carry citations, got %d", len(answer.Citations))
	}
	if fc.textCalls != 1 || fc.jsonCalls != 0 {
		t.Fatalf("expected plain completion only, got text=%d json=%d", fc.textCalls, fc.jsonCalls)
	}
	if !strings.Contains(fc.lastUserText, "--- CONVERSATION HISTORY ---") {
		t.Fatal("expected history section on the fast path")
	}
	if !strings.Contains(fc.lastUserText, "No new search results available.") {
		t.Fatal("expected empty-context marker on the fast path")
	}
}

func TestSynthesizerStructuredPath(t *testing.T) {
	fc := &fakeCompleter{jsonResponses: []string{`{
		"answer": "Pamudu is a software engineer focused on backend systems.",
		"citations": [{"source_type": "brain", "source_name": "bio.md", "url": ""}],
		"suggested_questions": ["What projects has Pamudu built?", "What languages does Pamudu use?", "Where does Pamudu write?"]
	}`}}

	results := []string{"--- BRAIN: bio.md ---\nSoftware engineer.\n"}

	answer, err := NewSynthesizer(fc, "Pamudu").Synthesize(context.Background(), "Who is Pamudu?", nil, results)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if fc.jsonCalls != 1 || fc.textCalls != 0 {
		t.Fatalf("expected json completion only, got text=%d json=%d", fc.textCalls, fc.jsonCalls)
	}
	if answer.Text != "Pamudu is a software engineer focused on backend systems." {
		t.Fatalf("unexpected answer %q", answer.Text)
	}
	if len(answer.Citations) != 1 || answer.Citations[0].SourceType != "brain" {
		t.Fatalf("unexpected citations %v", answer.Citations)
	}
	if len(answer.SuggestedQuestions) != 3 {
		t.Fatalf("expected 3 suggested questions, got %d", len(answer.SuggestedQuestions))
	}
	if !strings.Contains(fc.lastUserText, "--- BRAIN: bio.md ---") {
		t.Fatal("expected result blocks in synthesizer input")
	}
	if !strings.Contains(fc.lastSystem, "RESPONSE FORMAT:") {
		t.Fatal("expected structured format instruction in system prompt")
	}
}

func TestSynthesizerRejectsMalformedResponse(t *testing.T) {
	fc := &fakeCompleter{jsonResponses: []string{"not json at all"}}

	_, err := NewSynthesizer(fc, "Pamudu").Synthesize(context.Background(), "q", nil,
		[]string{"--- BRAIN: bio.md ---\nx\n"})
	if err == nil {
		t.Fatal("expected error for malformed synthesizer response")
	}
}

func TestSynthesizerRejectsEmptyAnswer(t *testing.T) {
	fc := &fakeCompleter{jsonResponses: []string{`{"answer": "  ", "citations": [], "suggested_questions": []}`}}

	_, err := NewSynthesizer(fc, "Pamudu").Synthesize(context.Background(), "q", nil,
		[]string{"--- BRAIN: bio.md ---\nx\n"})
	if err == nil {
		t.Fatal("expected error for empty answer")
	}
}
