package sessionModel

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StateActive        State = "active"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoChain         = errors.New("no documents have been processed for this session")
)

type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Chain binds a session to the index written by its last successful Process.
type Chain struct {
	IndexId    string    `json:"index_id"`
	Collection string    `json:"collection"`
	Documents  []string  `json:"documents"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type Session struct {
	Id        string    `json:"id"`
	Chain     *Chain    `json:"chain,omitempty"`
	History   []Turn    `json:"history"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s Session) State() State {
	switch {
	case s.Chain == nil:
		return StateUninitialized
	case len(s.History) == 0:
		return StateReady
	default:
		return StateActive
	}
}

// Exchange builds the two turns of one question/answer cycle.
func Exchange(question string, answer string) []Turn {
	return []Turn{
		{Role: RoleUser, Content: question},
		{Role: RoleAssistant, Content: answer},
	}
}

// ValidateHistory checks that turns alternate user/assistant starting with user.
func ValidateHistory(history []Turn) error {
	if len(history)%2 != 0 {
		return fmt.Errorf("history has odd length %d", len(history))
	}
	for i, turn := range history {
		want := RoleUser
		if i%2 == 1 {
			want = RoleAssistant
		}
		if turn.Role != want {
			return fmt.Errorf("turn %d has role %s, want %s", i, turn.Role, want)
		}
	}
	return nil
}

type SessionStore interface {
	CreateSession(ctx context.Context, id string) (Session, error)
	GetSession(ctx context.Context, id string) (Session, bool)
	ValidateSessionId(ctx context.Context, id string) bool
	// ActivateChain replaces the chain wholesale and clears the history.
	ActivateChain(ctx context.Context, id string, chain Chain) error
	// AppendExchange appends the user and assistant turns of one cycle atomically.
	AppendExchange(ctx context.Context, id string, question string, answer string) error
	GetHistory(ctx context.Context, id string) ([]Turn, error)
}
