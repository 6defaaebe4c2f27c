package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"pamubot/app/config"
	"pamubot/app/service/chat"
	"pamubot/app/service/history"
)

type stubCompleter struct {
	jsonResponses []string
}

func (s *stubCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	return "", errors.New("unexpected plain completion")
}

func (s *stubCompleter) CompleteJSON(_ context.Context, _, _ string) (string, error) {
	if len(s.jsonResponses) == 0 {
		return "", errors.New("no scripted response")
	}

	response := s.jsonResponses[0]
	s.jsonResponses = s.jsonResponses[1:]

	return response, nil
}

func newTestServer(planned ...string) *Server {
	planner := chat.NewPlanner(&stubCompleter{jsonResponses: planned}, "Pamudu", nil)
	graph := chat.NewGraph(
		planner,
		chat.NewExecutor(nil, nil, nil, nil, nil),
		chat.NewSynthesizer(&stubCompleter{}, "Pamudu"),
	)

	return newServer(&config.Config{}, history.NewMemoryStore(), graph)
}

func directPlanJSON(text string) string {
	return `{"need_external_info": false, "tool_calls": [], "response": "` + text + `"}`
}

func doJSON(t *testing.T, s *Server, method, target string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, target, err)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	resp.Body.Close()

	return resp, data
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer()

	resp, body := doJSON(t, s, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var parsed map[string]string
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if parsed["status"] != "running" {
		t.Fatalf("unexpected health payload %s", body)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(
		directPlanJSON("First answer."),
		directPlanJSON("Second answer."),
	)

	resp, body := doJSON(t, s, http.MethodPost, "/sessions", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if created.SessionID == "" {
		t.Fatal("expected non-empty session id")
	}

	resp, body = doJSON(t, s, http.MethodPost, "/chat", chatRequest{
		SessionID: created.SessionID,
		Message:   "hello",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var turn chatResponse
	if err := json.Unmarshal(body, &turn); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if turn.Answer != "First answer." {
		t.Fatalf("unexpected answer %q", turn.Answer)
	}
	if turn.TurnCount != 1 {
		t.Fatalf("expected turn count 1, got %d", turn.TurnCount)
	}

	resp, body = doJSON(t, s, http.MethodPost, "/chat", chatRequest{
		SessionID: created.SessionID,
		Message:   "and again",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &turn); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if turn.TurnCount != 2 {
		t.Fatalf("expected turn count 2, got %d", turn.TurnCount)
	}

	resp, body = doJSON(t, s, http.MethodGet, "/sessions/"+created.SessionID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var loaded sessionResponse
	if err := json.Unmarshal(body, &loaded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(loaded.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(loaded.Messages))
	}
	if loaded.Messages[0].Role != "user" || loaded.Messages[0].Content != "hello" {
		t.Fatalf("unexpected first message %+v", loaded.Messages[0])
	}
	if loaded.Messages[1].Role != "assistant" || loaded.Messages[1].Content != "First answer." {
		t.Fatalf("unexpected second message %+v", loaded.Messages[1])
	}
	if loaded.TurnCount != 2 {
		t.Fatalf("expected turn count 2, got %d", loaded.TurnCount)
	}

	resp, _ = doJSON(t, s, http.MethodDelete, "/sessions/"+created.SessionID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, s, http.MethodGet, "/sessions/"+created.SessionID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestHandleChatUnknownSession(t *testing.T) {
	s := newTestServer(directPlanJSON("unused"))

	resp, _ := doJSON(t, s, http.MethodPost, "/chat", chatRequest{
		SessionID: "missing",
		Message:   "hello",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHandleChatValidation(t *testing.T) {
	s := newTestServer()

	resp, _ := doJSON(t, s, http.MethodPost, "/chat", chatRequest{Message: "no session"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without session_id, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, s, http.MethodPost, "/chat", chatRequest{SessionID: "abc"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without message, got %d", resp.StatusCode)
	}
}

func TestHandleChatPlannerFailure(t *testing.T) {
	s := newTestServer("garbage")

	resp, body := doJSON(t, s, http.MethodPost, "/sessions", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	resp, _ = doJSON(t, s, http.MethodPost, "/chat", chatRequest{
		SessionID: created.SessionID,
		Message:   "hello",
	})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 on planner failure, got %d", resp.StatusCode)
	}

	resp, body = doJSON(t, s, http.MethodGet, "/sessions/"+created.SessionID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var loaded sessionResponse
	if err := json.Unmarshal(body, &loaded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(loaded.Messages) != 0 {
		t.Fatalf("failed turn must not be persisted, got %d messages", len(loaded.Messages))
	}
}
