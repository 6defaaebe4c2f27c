package chat

import (
	"context"
	"fmt"
	"strings"

	"pamubot/app/client/brain"
	"pamubot/app/client/github"
	"pamubot/app/client/llm"
	"pamubot/app/client/mailer"
	"pamubot/app/client/medium"
	"pamubot/app/client/youtube"
	"pamubot/app/config"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

// Graph is the planner -> (conditional) -> executor -> synthesizer state
// machine. One linear pass per user turn, no cycles, no retries.
type Graph struct {
	planner     *Planner
	executor    *Executor
	synthesizer *Synthesizer
}

func New(di *do.Injector) (*Graph, error) {
	cfg := do.MustInvoke[*config.Config](di)
	brainClient := do.MustInvoke[*brain.Client](di)

	plannerLLM := llm.NewClient(cfg.OpenAI.Planner)
	synthesizerLLM := llm.NewClient(cfg.OpenAI.Synthesizer)

	executor := NewExecutor(
		brainClient,
		do.MustInvoke[*medium.Client](di),
		do.MustInvoke[*youtube.Client](di),
		do.MustInvoke[*github.Client](di),
		do.MustInvoke[*mailer.Client](di),
	)

	return NewGraph(
		NewPlanner(plannerLLM, cfg.Subject.Name, brainClient.ShortcutKeys()),
		executor,
		NewSynthesizer(synthesizerLLM, cfg.Subject.Name),
	), nil
}

func NewGraph(planner *Planner, executor *Executor, synthesizer *Synthesizer) *Graph {
	return &Graph{
		planner:     planner,
		executor:    executor,
		synthesizer: synthesizer,
	}
}

// Invoke runs the whole graph once and returns the terminal state.
func (g *Graph) Invoke(ctx context.Context, st *State) (*State, error) {
	return g.run(ctx, st, nil)
}

// Stream drives the same single-pass computation while surfacing one status
// event per node boundary, then a terminal result or error event. The
// channel is closed after the terminal event.
func (g *Graph) Stream(ctx context.Context, st *State) <-chan Event {
	ch := make(chan Event, 8)

	go func() {
		defer close(ch)

		emit := func(ev Event) {
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		}

		out, err := g.run(ctx, st, emit)
		if err != nil {
			emit(Event{Type: EventError, Message: err.Error()})
			return
		}

		emit(Event{
			Type:               EventResult,
			Answer:             out.FinalAnswer,
			Citations:          out.Citations,
			SuggestedQuestions: out.SuggestedQuestions,
		})
	}()

	return ch
}

func (g *Graph) run(ctx context.Context, st *State, emit func(Event)) (*State, error) {
	status := func(node, message string) {
		if emit != nil {
			emit(Event{Type: EventStatus, Node: node, Message: message})
		}
	}

	status("start", "Analyzing request...")

	plan, err := g.planner.Plan(ctx, st.Query, st.History)
	if err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}

	if plan.NeedExternalInfo {
		st.Plan = plan.ToolCalls
		status("planner", fmt.Sprintf("Using tools: %s...", strings.Join(toolLabels(st.Plan), ", ")))
	} else {
		st.FinalAnswer = plan.Response
		status("planner", "Thinking...")
	}

	if shouldSearch(st) {
		blocks := g.executor.Execute(ctx, st.Plan, st.Results)
		st.Results = append(st.Results, blocks...)

		status("executor", fmt.Sprintf("Analyzed %d search results.", len(blocks)))
		status("synthesizer", "Drafting response...")
	}

	// The planner's direct answer makes the synthesizer a pass-through.
	if st.FinalAnswer == "" {
		answer, err := g.synthesizer.Synthesize(ctx, st.Query, st.History, st.Results)
		if err != nil {
			return nil, fmt.Errorf("synthesizer: %w", err)
		}

		st.FinalAnswer = answer.Text
		st.Citations = answer.Citations
		st.SuggestedQuestions = answer.SuggestedQuestions
	}

	return st, nil
}

// shouldSearch is the graph's only branch point.
func shouldSearch(st *State) bool {
	return len(st.Plan) > 0
}

func toolLabels(calls []ToolCall) []string {
	labels := pie.Map(calls, func(tc ToolCall) string {
		switch tc.Tool {
		case ToolBrain:
			return "Brain"
		case ToolMedium:
			return "Medium"
		case ToolYoutube:
			return "YouTube"
		case ToolGithub:
			return "GitHub"
		case ToolEmail:
			return "Email"
		default:
			return string(tc.Tool)
		}
	})

	return pie.Unique(labels)
}
