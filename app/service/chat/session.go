package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pamubot/app/service/history"
)

// Session holds one conversation's history across turns. History is
// append-only and never trimmed: every turn replays the full conversation.
type Session struct {
	graph *Graph

	mu    sync.RWMutex
	turns []history.Turn
}

func NewSession(graph *Graph) *Session {
	return &Session{graph: graph}
}

// NewSessionWithHistory seeds a session from previously persisted turns.
func NewSessionWithHistory(graph *Graph, turns []history.Turn) *Session {
	s := NewSession(graph)
	s.turns = append(s.turns, turns...)

	return s
}

// Chat runs the whole graph once for the message, commits the exchange to
// history and returns the result.
func (s *Session) Chat(ctx context.Context, message string) (*Result, error) {
	slog.Info("Processing message", "length", len(message))

	out, err := s.graph.Invoke(ctx, s.newState(message))
	if err != nil {
		return nil, err
	}

	answer := out.FinalAnswer
	if answer == "" {
		answer = "No response generated."
	}

	s.commit(message, answer)

	slog.Info("Message complete", "turns", s.TurnCount())

	return &Result{
		Answer:             answer,
		Citations:          out.Citations,
		SuggestedQuestions: out.SuggestedQuestions,
		TurnCount:          s.TurnCount(),
	}, nil
}

// ChatStream surfaces the graph's step events. History is committed only
// after the terminal result event, so an aborted stream never corrupts it.
func (s *Session) ChatStream(ctx context.Context, message string) <-chan Event {
	out := make(chan Event, 8)

	go func() {
		defer close(out)

		slog.Info("Processing message stream", "length", len(message))

		for ev := range s.graph.Stream(ctx, s.newState(message)) {
			if ev.Type == EventResult {
				answer := ev.Answer
				if answer == "" {
					answer = "No response generated."
					ev.Answer = answer
				}

				s.commit(message, answer)
				ev.TurnCount = s.TurnCount()
			}

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = nil

	slog.Info("History cleared")
}

func (s *Session) History() []history.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := make([]history.Turn, len(s.turns))
	copy(turns, s.turns)

	return turns
}

// TurnCount is the number of completed exchanges.
func (s *Session) TurnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.turns) / 2
}

func (s *Session) newState(message string) *State {
	return &State{
		Query:   message,
		History: s.History(),
	}
}

func (s *Session) commit(userMsg, assistantMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.turns = append(s.turns,
		history.Turn{Role: history.RoleUser, Content: userMsg, Timestamp: now},
		history.Turn{Role: history.RoleAssistant, Content: assistantMsg, Timestamp: now},
	)
}
