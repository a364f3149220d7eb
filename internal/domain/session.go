package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionSnapshot is the durable, round-trippable view of a dialogue
// manager. The per-turn observation buffer is never part of it.
type SessionSnapshot struct {
	State  json.RawMessage `json:"state"`
	Policy json.RawMessage `json:"policy"`
	TurnID int             `json:"turn_id"`
}

// Session is a persisted dialogue session.
type Session struct {
	ID          uuid.UUID       `json:"id"`
	PolicyName  string          `json:"policy_name"`
	Snapshot    SessionSnapshot `json:"snapshot"`
	TurnID      int             `json:"turn_id"`
	EpisodeDone bool            `json:"episode_done"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TurnRecord logs one completed turn together with the state features the
// policy decided on.
type TurnRecord struct {
	ID              uuid.UUID `json:"id"`
	SessionID       uuid.UUID `json:"session_id"`
	TurnID          int       `json:"turn_id"`
	Features        []float32 `json:"features,omitempty"`
	SystemActs      []Act     `json:"system_acts"`
	SystemUtterance string    `json:"system_utterance"`
	Reward          float64   `json:"reward"`
	EpisodeDone     bool      `json:"episode_done"`
	CreatedAt       time.Time `json:"created_at"`
}

type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type TurnStore interface {
	Append(ctx context.Context, t *TurnRecord) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]TurnRecord, error)
}
