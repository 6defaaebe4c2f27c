package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "embed"

	"pamubot/app/service/history"

	"github.com/tmc/langchaingo/prompts"
)

//go:embed synthesizer_prompt.txt
var synthesizerPromptTemplate string

const maxSynthesizeDuration = 60 * time.Second

const structuredFormatInstruction = `
RESPONSE FORMAT:
Respond with a single JSON object:
{
  "answer": "the main response text",
  "citations": [{"source_type": "...", "source_name": "...", "url": "..."}],
  "suggested_questions": ["...", "...", "..."]
}`

// Answer is the synthesizer's contribution to the turn.
type Answer struct {
	Text               string
	Citations          []Citation
	SuggestedQuestions []string
}

// Synthesizer turns accumulated result blocks into the final cited answer.
type Synthesizer struct {
	completer Completer
	prompt    prompts.PromptTemplate
	subject   string
}

func NewSynthesizer(completer Completer, subject string) *Synthesizer {
	return &Synthesizer{
		completer: completer,
		prompt: prompts.PromptTemplate{
			Template:       synthesizerPromptTemplate,
			InputVariables: []string{"subject"},
			TemplateFormat: prompts.TemplateFormatGoTemplate,
		},
		subject: subject,
	}
}

func (s *Synthesizer) Synthesize(ctx context.Context, query string, turns []history.Turn, results []string) (*Answer, error) {
	system, err := s.prompt.Format(map[string]any{"subject": s.subject})
	if err != nil {
		return nil, fmt.Errorf("failed to render synthesizer prompt: %w", err)
	}

	hasNewResults := len(results) > 0

	var builder strings.Builder
	builder.WriteString("User Query: ")
	builder.WriteString(query)
	builder.WriteString("\n\n")

	// History replaces context on the fast path; result blocks already carry
	// everything needed on the structured path.
	if !hasNewResults && len(turns) > 0 {
		builder.WriteString("--- CONVERSATION HISTORY ---\n")
		builder.WriteString(formatHistory(turns))
		builder.WriteString("\n\n")
	}

	builder.WriteString("--- RETRIEVED CONTEXT ---\n")
	if hasNewResults {
		builder.WriteString(strings.Join(results, "\n"))
	} else {
		builder.WriteString("No new search results available.")
	}

	ctx, cancel := context.WithTimeout(ctx, maxSynthesizeDuration)
	defer cancel()

	if !hasNewResults {
		text, err := s.completer.Complete(ctx, system, builder.String())
		if err != nil {
			return nil, fmt.Errorf("synthesizer completion failed: %w", err)
		}

		slog.Info("Generated simple response")

		return &Answer{Text: text}, nil
	}

	raw, err := s.completer.CompleteJSON(ctx, system+structuredFormatInstruction, builder.String())
	if err != nil {
		return nil, fmt.Errorf("synthesizer completion failed: %w", err)
	}

	var payload struct {
		Answer             string     `json:"answer"`
		Citations          []Citation `json:"citations"`
		SuggestedQuestions []string   `json:"suggested_questions"`
	}
	if err = json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse synthesizer response: %w", err)
	}

	if strings.TrimSpace(payload.Answer) == "" {
		return nil, fmt.Errorf("synthesizer returned an empty answer")
	}

	slog.Info("Generated structured response", "citations", len(payload.Citations))

	return &Answer{
		Text:               strings.TrimSpace(payload.Answer),
		Citations:          payload.Citations,
		SuggestedQuestions: payload.SuggestedQuestions,
	}, nil
}
