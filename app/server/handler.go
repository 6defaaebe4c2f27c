package server

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"pamubot/app/service/chat"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const streamTurnTimeout = 5 * time.Minute

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	chat.Result
}

type sessionResponse struct {
	SessionID string         `json:"session_id"`
	Messages  []messageModel `json:"messages"`
	TurnCount int            `json:"turn_count"`
}

type messageModel struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "pamubot",
		"status":  "running",
	})
}

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	sessionID, err := s.store.CreateSession(c.Context())
	if err != nil {
		slog.Error("Session creation failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create session")
	}

	slog.Info("Session created", "session_id", sessionID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session_id": sessionID,
	})
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	turns, err := s.store.Load(c.Context(), sessionID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	messages := make([]messageModel, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, messageModel{
			Role:      string(turn.Role),
			Content:   turn.Content,
			Timestamp: turn.Timestamp,
		})
	}

	return c.JSON(sessionResponse{
		SessionID: sessionID,
		Messages:  messages,
		TurnCount: len(turns) / 2,
	})
}

func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	if err := s.store.DeleteSession(c.Context(), sessionID); err != nil {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	slog.Info("Session deleted", "session_id", sessionID)

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" || req.Message == "" {
		return fiber.NewError(fiber.StatusBadRequest, "session_id and message are required")
	}

	turns, err := s.store.Load(c.Context(), req.SessionID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	session := chat.NewSessionWithHistory(s.graph, turns)

	result, err := session.Chat(c.Context(), req.Message)
	if err != nil {
		slog.Error("Turn failed", "session_id", req.SessionID, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	if err = s.store.AppendTurn(c.Context(), req.SessionID, req.Message, result.Answer); err != nil {
		slog.Error("Failed to persist turn", "session_id", req.SessionID, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to persist turn")
	}

	return c.JSON(chatResponse{
		SessionID: req.SessionID,
		Result:    *result,
	})
}

// handleChatStream drives the same turn as handleChat but emits one SSE data
// line per graph event. The turn is persisted only after the terminal result
// event.
func (s *Server) handleChatStream(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" || req.Message == "" {
		return fiber.NewError(fiber.StatusBadRequest, "session_id and message are required")
	}

	turns, err := s.store.Load(c.Context(), req.SessionID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	session := chat.NewSessionWithHistory(s.graph, turns)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithTimeout(context.Background(), streamTurnTimeout)
		defer cancel()

		var finalAnswer string

		for ev := range session.ChatStream(ctx, req.Message) {
			if ev.Type == chat.EventResult {
				finalAnswer = ev.Answer
			}

			if err := writeEvent(w, ev); err != nil {
				slog.Warn("Stream client gone", "session_id", req.SessionID, "error", err)
				return
			}
		}

		if finalAnswer == "" {
			return
		}

		if err := s.store.AppendTurn(ctx, req.SessionID, req.Message, finalAnswer); err != nil {
			slog.Error("Failed to persist streamed turn", "session_id", req.SessionID, "error", err)
			_ = writeEvent(w, chat.Event{
				Type:    chat.EventError,
				Message: "failed to persist turn",
			})
		}
	}))

	return nil
}

func writeEvent(w *bufio.Writer, ev chat.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	if _, err = w.WriteString("data: " + string(data) + "\n\n"); err != nil {
		return err
	}

	return w.Flush()
}
