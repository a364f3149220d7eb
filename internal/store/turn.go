package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/imadial/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// DefaultTurnLimit bounds ListBySession when no limit is given.
const DefaultTurnLimit = 100

type TurnStore struct {
	db *pgxpool.Pool
}

func NewTurnStore(db *pgxpool.Pool) *TurnStore {
	return &TurnStore{db: db}
}

func (s *TurnStore) Append(ctx context.Context, t *domain.TurnRecord) error {
	actsJSON, err := json.Marshal(t.SystemActs)
	if err != nil {
		return fmt.Errorf("marshal system_acts: %w", err)
	}
	features := pgvector.NewVector(t.Features)

	err = s.db.QueryRow(ctx,
		`INSERT INTO dialogue_turns (session_id, turn_id, features, system_acts, system_utterance, reward, episode_done)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		t.SessionID, t.TurnID, features, actsJSON, t.SystemUtterance, t.Reward, t.EpisodeDone,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		// Foreign key violation: the session is gone.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// ListBySession returns the most recent turns of a session in insertion
// order. Turn ids restart after a reset, so the order comes from seq.
func (s *TurnStore) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.TurnRecord, error) {
	if limit <= 0 {
		limit = DefaultTurnLimit
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, session_id, turn_id, features, system_acts, system_utterance, reward, episode_done, created_at
		 FROM (
		     SELECT * FROM dialogue_turns WHERE session_id = $1
		     ORDER BY seq DESC LIMIT $2
		 ) recent
		 ORDER BY seq ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.TurnRecord
	for rows.Next() {
		var t domain.TurnRecord
		var features pgvector.Vector
		var actsJSON []byte
		if err := rows.Scan(&t.ID, &t.SessionID, &t.TurnID, &features, &actsJSON, &t.SystemUtterance, &t.Reward, &t.EpisodeDone, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Features = features.Slice()
		if err := json.Unmarshal(actsJSON, &t.SystemActs); err != nil {
			return nil, fmt.Errorf("unmarshal system_acts: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
