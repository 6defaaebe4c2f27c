package history

import (
	"context"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single recorded message. Turns are immutable once stored and
// their order is significant.
type Turn struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// Store persists per-session conversation history. AppendTurn records a
// completed user/assistant exchange as two consecutive turns.
type Store interface {
	CreateSession(ctx context.Context) (string, error)
	Load(ctx context.Context, sessionID string) ([]Turn, error)
	AppendTurn(ctx context.Context, sessionID, userMsg, assistantMsg string) error
	Clear(ctx context.Context, sessionID string) error
	DeleteSession(ctx context.Context, sessionID string) error
}
