package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/imadial/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionStore struct {
	db *pgxpool.Pool
}

func NewSessionStore(db *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, sess *domain.Session) error {
	snapshotJSON, err := json.Marshal(sess.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	err = s.db.QueryRow(ctx,
		`INSERT INTO dialogue_sessions (id, policy_name, snapshot, turn_id, episode_done)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		sess.ID, sess.PolicyName, snapshotJSON, sess.TurnID, sess.EpisodeDone,
	).Scan(&sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *SessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	sess := &domain.Session{}
	var snapshotJSON []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, policy_name, snapshot, turn_id, episode_done, created_at, updated_at
		 FROM dialogue_sessions WHERE id = $1`,
		id,
	).Scan(&sess.ID, &sess.PolicyName, &snapshotJSON, &sess.TurnID, &sess.EpisodeDone, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(snapshotJSON, &sess.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) Update(ctx context.Context, sess *domain.Session) error {
	snapshotJSON, err := json.Marshal(sess.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	err = s.db.QueryRow(ctx,
		`UPDATE dialogue_sessions
		 SET snapshot = $2, turn_id = $3, episode_done = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		sess.ID, snapshotJSON, sess.TurnID, sess.EpisodeDone,
	).Scan(&sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM dialogue_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
