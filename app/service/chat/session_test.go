package chat

import (
	"context"
	"strings"
	"testing"

	"pamubot/app/service/history"
)

func directAnswerJSON(text string) string {
	return `{"need_external_info": false, "tool_calls": [], "response": "` + text + `"}`
}

func TestSessionAccumulatesHistory(t *testing.T) {
	plannerFC := &fakeCompleter{jsonResponses: []string{
		directAnswerJSON("First answer."),
		directAnswerJSON("Second answer."),
	}}
	graph, _, _ := newTestGraph(plannerFC, &fakeCompleter{})

	session := NewSession(graph)

	result, err := session.Chat(context.Background(), "first question")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if result.TurnCount != 1 {
		t.Fatalf("expected turn count 1, got %d", result.TurnCount)
	}

	result, err = session.Chat(context.Background(), "second question")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if result.TurnCount != 2 {
		t.Fatalf("expected turn count 2, got %d", result.TurnCount)
	}

	turns := session.History()
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	if turns[0].Role != history.RoleUser || turns[0].Content != "first question" {
		t.Fatalf("unexpected first turn %+v", turns[0])
	}
	if turns[3].Role != history.RoleAssistant || turns[3].Content != "Second answer." {
		t.Fatalf("unexpected last turn %+v", turns[3])
	}
}

func TestSessionErrorLeavesHistoryUntouched(t *testing.T) {
	plannerFC := &fakeCompleter{jsonResponses: []string{"garbage"}}
	graph, _, _ := newTestGraph(plannerFC, &fakeCompleter{})

	session := NewSession(graph)

	if _, err := session.Chat(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}

	if len(session.History()) != 0 {
		t.Fatal("failed turn must not be committed")
	}
}

func TestSessionSeededHistoryReachesPlanner(t *testing.T) {
	plannerFC := &fakeCompleter{jsonResponses: []string{directAnswerJSON("ok")}}
	graph, _, _ := newTestGraph(plannerFC, &fakeCompleter{})

	seed := []history.Turn{
		{Role: history.RoleUser, Content: "earlier question"},
		{Role: history.RoleAssistant, Content: "earlier answer"},
	}
	session := NewSessionWithHistory(graph, seed)

	result, err := session.Chat(context.Background(), "follow-up")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if result.TurnCount != 2 {
		t.Fatalf("expected turn count 2 with seeded history, got %d", result.TurnCount)
	}
	if !strings.Contains(plannerFC.lastUserText, "earlier answer") {
		t.Fatal("expected seeded history in planner input")
	}
}

func TestSessionChatStreamCommitsOnResult(t *testing.T) {
	plannerFC := &fakeCompleter{jsonResponses: []string{directAnswerJSON("streamed answer")}}
	graph, _, _ := newTestGraph(plannerFC, &fakeCompleter{})

	session := NewSession(graph)

	var result *Event
	for ev := range session.ChatStream(context.Background(), "hi") {
		if ev.Type == EventResult {
			result = &ev
		}
	}

	if result == nil {
		t.Fatal("expected a terminal result event")
	}
	if result.Answer != "streamed answer" {
		t.Fatalf("unexpected answer %q", result.Answer)
	}
	if result.TurnCount != 1 {
		t.Fatalf("expected turn count 1 on the result event, got %d", result.TurnCount)
	}
	if len(session.History()) != 2 {
		t.Fatalf("expected committed exchange, got %d turns", len(session.History()))
	}
}

func TestSessionChatStreamErrorSkipsCommit(t *testing.T) {
	plannerFC := &fakeCompleter{jsonResponses: []string{"garbage"}}
	graph, _, _ := newTestGraph(plannerFC, &fakeCompleter{})

	session := NewSession(graph)

	sawError := false
	for ev := range session.ChatStream(context.Background(), "hi") {
		if ev.Type == EventError {
			sawError = true
		}
	}

	if !sawError {
		t.Fatal("expected an error event")
	}
	if len(session.History()) != 0 {
		t.Fatal("failed stream must not be committed")
	}
}

func TestSessionClearHistory(t *testing.T) {
	plannerFC := &fakeCompleter{jsonResponses: []string{directAnswerJSON("ok")}}
	graph, _, _ := newTestGraph(plannerFC, &fakeCompleter{})

	session := NewSession(graph)

	if _, err := session.Chat(context.Background(), "hi"); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	session.ClearHistory()

	if len(session.History()) != 0 || session.TurnCount() != 0 {
		t.Fatal("expected empty history after clear")
	}
}
