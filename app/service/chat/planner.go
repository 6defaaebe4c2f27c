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

//go:embed planner_prompt.txt
var plannerPromptTemplate string

const maxPlanDuration = 30 * time.Second

// Planner decides whether a turn needs external data and which tools to call.
type Planner struct {
	completer Completer
	prompt    prompts.PromptTemplate
	subject   string
	shortcuts []string
}

func NewPlanner(completer Completer, subject string, shortcuts []string) *Planner {
	return &Planner{
		completer: completer,
		prompt: prompts.PromptTemplate{
			Template:       plannerPromptTemplate,
			InputVariables: []string{"subject", "shortcuts"},
			TemplateFormat: prompts.TemplateFormatGoTemplate,
		},
		subject:   subject,
		shortcuts: shortcuts,
	}
}

func (p *Planner) Plan(ctx context.Context, query string, turns []history.Turn) (*Plan, error) {
	system, err := p.prompt.Format(map[string]any{
		"subject":   p.subject,
		"shortcuts": strings.Join(p.shortcuts, ", "),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render planner prompt: %w", err)
	}

	user := query
	if len(turns) > 0 {
		user = fmt.Sprintf("CONVERSATION HISTORY:\n%s\n\nCURRENT QUERY: %s",
			formatHistory(turns), query)
	}

	ctx, cancel := context.WithTimeout(ctx, maxPlanDuration)
	defer cancel()

	raw, err := p.completer.CompleteJSON(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("planner completion failed: %w", err)
	}

	plan, err := parsePlan(raw)
	if err != nil {
		return nil, err
	}

	slog.Info("Plan generated",
		"need_external_info", plan.NeedExternalInfo,
		"tool_calls", len(plan.ToolCalls))
	for _, tc := range plan.ToolCalls {
		slog.Info("Planned tool call", "tool", tc.Tool, "action", tc.Action)
	}

	return plan, nil
}

type planPayload struct {
	NeedExternalInfo bool              `json:"need_external_info"`
	ToolCalls        []toolCallPayload `json:"tool_calls"`
	Response         string            `json:"response"`
}

type toolCallPayload struct {
	Tool   string          `json:"tool"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

// parsePlan decodes the model output. Any malformed plan is a hard failure
// for the turn, there is no guessing here.
func parsePlan(raw string) (*Plan, error) {
	var payload planPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}

	plan := &Plan{
		NeedExternalInfo: payload.NeedExternalInfo,
		Response:         strings.TrimSpace(payload.Response),
	}

	if !payload.NeedExternalInfo {
		// Direct-answer path: tool calls are dropped even if the model
		// emitted some, and a response must be present.
		if plan.Response == "" {
			return nil, fmt.Errorf("plan has no tool calls and no response")
		}
		return plan, nil
	}

	if len(payload.ToolCalls) == 0 {
		return nil, fmt.Errorf("plan needs external info but has no tool calls")
	}

	plan.ToolCalls = make([]ToolCall, 0, len(payload.ToolCalls))
	for _, tc := range payload.ToolCalls {
		call := ToolCall{
			Tool:   ToolName(tc.Tool),
			Action: tc.Action,
		}

		if len(tc.Params) > 0 {
			var err error
			if call.Tool == ToolEmail {
				err = json.Unmarshal(tc.Params, &call.Email)
			} else {
				err = json.Unmarshal(tc.Params, &call.Search)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to parse params for %s.%s: %w", tc.Tool, tc.Action, err)
			}
		}

		plan.ToolCalls = append(plan.ToolCalls, call)
	}

	return plan, nil
}
