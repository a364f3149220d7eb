package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Harshitk-cp/imadial/internal/domain"
	"github.com/Harshitk-cp/imadial/internal/manager"
	"github.com/Harshitk-cp/imadial/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	// DefaultCacheSize bounds the number of live managers kept in memory.
	DefaultCacheSize = 1024
	// DefaultObserveTTL is how long a buffered observation protects its
	// manager from eviction.
	DefaultObserveTTL = 30 * time.Minute
)

// ManagerFactory builds fresh, not yet reset managers.
type ManagerFactory interface {
	New() (*manager.Manager, error)
	PolicyName() string
}

type liveSession struct {
	mu       sync.Mutex
	mgr      *manager.Manager
	lastUsed time.Time
	// dead is set under SessionService.mu once the entry leaves the cache.
	dead bool
}

// SessionService owns the live dialogue managers and keeps their snapshots
// in a SessionStore. Calls on one session are serialized; distinct sessions
// proceed in parallel.
type SessionService struct {
	sessions  domain.SessionStore
	turns     domain.TurnStore
	factory   ManagerFactory
	logger     *zap.Logger
	cacheSize  int
	observeTTL time.Duration
	now        func() time.Time

	mu   sync.Mutex
	live map[uuid.UUID]*liveSession
}

func NewSessionService(ss domain.SessionStore, ts domain.TurnStore, factory ManagerFactory, logger *zap.Logger) *SessionService {
	return &SessionService{
		sessions:  ss,
		turns:     ts,
		factory:   factory,
		logger:    logger,
		cacheSize:  DefaultCacheSize,
		observeTTL: DefaultObserveTTL,
		now:        time.Now,
		live:       make(map[uuid.UUID]*liveSession),
	}
}

// SetCacheSize changes how many live managers are kept. Values below one
// keep the default.
func (s *SessionService) SetCacheSize(n int) {
	if n > 0 {
		s.cacheSize = n
	}
}

// SetObserveTTL changes how long a manager holding an unacted observation is
// kept over the cache size. Values below one keep the default.
func (s *SessionService) SetObserveTTL(d time.Duration) {
	if d > 0 {
		s.observeTTL = d
	}
}

// Create starts a new session with a freshly reset manager.
func (s *SessionService) Create(ctx context.Context) (*domain.Session, error) {
	mgr, err := s.factory.New()
	if err != nil {
		return nil, fmt.Errorf("build manager: %w", err)
	}
	mgr.Reset()

	snap, err := mgr.Snapshot()
	if err != nil {
		return nil, err
	}
	sess := &domain.Session{
		ID:         uuid.New(),
		PolicyName: s.factory.PolicyName(),
		Snapshot:   snap,
		TurnID:     mgr.TurnID(),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.live[sess.ID] = &liveSession{mgr: mgr, lastUsed: s.now()}
	s.evictLocked(sess.ID)
	s.mu.Unlock()

	s.logger.Info("session created", zap.String("session_id", sess.ID.String()), zap.String("policy", sess.PolicyName))
	return sess, nil
}

func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// Observe buffers a partial observation for the next Act. The buffer lives
// only in the cached manager and is not persisted.
func (s *SessionService) Observe(ctx context.Context, id uuid.UUID, obs domain.Observation) error {
	ls, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer ls.mu.Unlock()
	return ls.mgr.Observe(obs)
}

// Act completes the turn on the buffered observation.
func (s *SessionService) Act(ctx context.Context, id uuid.UUID) (*domain.Response, error) {
	ls, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer ls.mu.Unlock()
	return s.act(ctx, id, ls)
}

// Turn observes and acts in one call.
func (s *SessionService) Turn(ctx context.Context, id uuid.UUID, obs domain.Observation) (*domain.Response, error) {
	ls, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer ls.mu.Unlock()
	if err := ls.mgr.Observe(obs); err != nil {
		return nil, err
	}
	return s.act(ctx, id, ls)
}

// act runs under ls.mu. A failed turn drops the cached manager, so the next
// call restores the last persisted snapshot.
func (s *SessionService) act(ctx context.Context, id uuid.UUID, ls *liveSession) (*domain.Response, error) {
	before := ls.mgr.Reward()
	resp, err := ls.mgr.Act(ctx)
	if err != nil {
		s.drop(id)
		s.logger.Warn("turn failed", zap.String("session_id", id.String()), zap.Error(err))
		return nil, err
	}

	sess, err := s.persist(ctx, id, ls.mgr, resp.EpisodeDone)
	if err != nil {
		s.drop(id)
		return nil, err
	}

	features := ls.mgr.State().FeatureVector()
	rec := &domain.TurnRecord{
		SessionID:       id,
		TurnID:          sess.TurnID - 1,
		Features:        toFloat32(features),
		SystemActs:      resp.SystemActs,
		SystemUtterance: resp.SystemUtterance,
		Reward:          ls.mgr.Reward() - before,
		EpisodeDone:     resp.EpisodeDone,
	}
	if err := s.turns.Append(ctx, rec); err != nil {
		s.logger.Warn("failed to record turn", zap.String("session_id", id.String()), zap.Error(err))
	}

	s.logger.Debug("turn completed",
		zap.String("session_id", id.String()),
		zap.Int("turn_id", rec.TurnID),
		zap.Int("system_acts", len(resp.SystemActs)),
		zap.Bool("episode_done", resp.EpisodeDone),
	)
	return &resp, nil
}

// Reset starts the session over.
func (s *SessionService) Reset(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	ls, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer ls.mu.Unlock()
	ls.mgr.Reset()
	return s.persist(ctx, id, ls.mgr, false)
}

// Reward returns the accumulated policy reward of a session.
func (s *SessionService) Reward(ctx context.Context, id uuid.UUID) (float64, error) {
	ls, err := s.acquire(ctx, id)
	if err != nil {
		return 0, err
	}
	defer ls.mu.Unlock()
	return ls.mgr.Reward(), nil
}

func (s *SessionService) Turns(ctx context.Context, id uuid.UUID, limit int) ([]domain.TurnRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	turns, err := s.turns.ListBySession(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	if turns == nil {
		turns = []domain.TurnRecord{}
	}
	return turns, nil
}

func (s *SessionService) Delete(ctx context.Context, id uuid.UUID) error {
	s.drop(id)
	if err := s.sessions.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	s.logger.Info("session deleted", zap.String("session_id", id.String()))
	return nil
}

func (s *SessionService) persist(ctx context.Context, id uuid.UUID, mgr *manager.Manager, done bool) (*domain.Session, error) {
	snap, err := mgr.Snapshot()
	if err != nil {
		return nil, err
	}
	sess := &domain.Session{
		ID:          id,
		PolicyName:  s.factory.PolicyName(),
		Snapshot:    snap,
		TurnID:      mgr.TurnID(),
		EpisodeDone: done,
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// acquire returns the live session locked. A cache miss restores the
// manager from the stored snapshot.
func (s *SessionService) acquire(ctx context.Context, id uuid.UUID) (*liveSession, error) {
	for {
		ls, err := s.lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		ls.mu.Lock()

		// The entry may have been evicted or dropped while unlocked.
		s.mu.Lock()
		if !ls.dead && s.live[id] == ls {
			ls.lastUsed = s.now()
			s.mu.Unlock()
			return ls, nil
		}
		s.mu.Unlock()
		ls.mu.Unlock()
	}
}

func (s *SessionService) lookup(ctx context.Context, id uuid.UUID) (*liveSession, error) {
	s.mu.Lock()
	ls, ok := s.live[id]
	s.mu.Unlock()
	if ok {
		return ls, nil
	}

	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	mgr, err := s.factory.New()
	if err != nil {
		return nil, fmt.Errorf("build manager: %w", err)
	}
	if err := mgr.Restore(sess.Snapshot); err != nil {
		return nil, fmt.Errorf("restore session %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.live[id]; ok {
		return existing, nil
	}
	ls = &liveSession{mgr: mgr, lastUsed: s.now()}
	s.live[id] = ls
	s.evictLocked(id)
	return ls, nil
}

func (s *SessionService) drop(id uuid.UUID) {
	s.mu.Lock()
	if ls, ok := s.live[id]; ok {
		ls.dead = true
		delete(s.live, id)
	}
	s.mu.Unlock()
}

// evictLocked removes least recently used managers above the cache size.
// Managers in use are kept, as is keep. A manager holding a buffered
// observation is kept until it has been unused for the observe TTL; its
// observation is then lost.
func (s *SessionService) evictLocked(keep uuid.UUID) {
	staleBefore := s.now().Add(-s.observeTTL)
	for len(s.live) > s.cacheSize {
		var oldestID uuid.UUID
		var oldest *liveSession
		for id, ls := range s.live {
			if id == keep || !ls.mu.TryLock() {
				continue
			}
			evictable := ls.mgr.Observation().Empty() || ls.lastUsed.Before(staleBefore)
			ls.mu.Unlock()
			if !evictable {
				continue
			}
			if oldest == nil || ls.lastUsed.Before(oldest.lastUsed) {
				oldestID, oldest = id, ls
			}
		}
		if oldest == nil {
			return
		}
		oldest.dead = true
		delete(s.live, oldestID)
		s.logger.Debug("session evicted", zap.String("session_id", oldestID.String()))
	}
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
