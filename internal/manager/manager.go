package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/imadial/internal/domain"
	"github.com/Harshitk-cp/imadial/internal/nlg"
	"github.com/Harshitk-cp/imadial/internal/policy"
	"github.com/Harshitk-cp/imadial/internal/state"
	"go.uber.org/zap"
)

var (
	ErrNotStarted        = errors.New("dialogue manager has not been reset")
	ErrTurnAborted       = errors.New("previous turn failed; reset the session")
	ErrIllegalTransition = errors.New("illegal call in current turn phase")
)

// Manager runs the turn cycle around one dialogue state and one policy. It
// is owned by a single session and is not safe for concurrent use.
type Manager struct {
	state    *state.DialogueState
	policy   policy.Policy
	renderer *nlg.Renderer
	logger   *zap.Logger

	observation domain.Observation
	turnID      int
	phase       Phase
}

func New(st *state.DialogueState, p policy.Policy, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		state:    st,
		policy:   p,
		renderer: nlg.NewRenderer(),
		logger:   logger,
		phase:    PhaseUninitialized,
	}
}

func (m *Manager) LoadPolicy(p policy.Policy) {
	m.policy = p
}

func (m *Manager) State() *state.DialogueState { return m.state }

func (m *Manager) Policy() policy.Policy { return m.policy }

func (m *Manager) Phase() Phase { return m.phase }

func (m *Manager) TurnID() int { return m.turnID }

// Observation returns the buffered, not yet acted on observation.
func (m *Manager) Observation() domain.Observation { return m.observation }

// Reset starts a new session.
func (m *Manager) Reset() {
	m.observation = domain.Observation{}
	m.state.Reset()
	m.policy.Reset()
	m.turnID = 1
	m.phase = PhaseIdle
}

// Flush drops buffered input and all slot hypotheses, keeping the turn ids.
func (m *Manager) Flush() {
	m.observation = domain.Observation{}
	m.state.Flush()
	if m.phase == PhaseObserving {
		m.phase = PhaseIdle
	}
}

// Observe merges a partial observation into the turn buffer. Supplied keys
// overwrite buffered ones.
func (m *Manager) Observe(obs domain.Observation) error {
	if err := m.checkInput(); err != nil {
		return err
	}
	m.observation.Merge(obs)
	m.phase = PhaseObserving
	return nil
}

// Act runs one turn: fold the buffered acts into the state, ask the policy
// for the next act, attach the mask companion act and render. The buffer is
// cleared after a completed turn.
//
// A failing stage aborts the turn without rolling back beliefs already
// folded; the manager then refuses input until Reset or Restore.
func (m *Manager) Act(ctx context.Context) (domain.Response, error) {
	if err := m.checkInput(); err != nil {
		return domain.Response{}, err
	}
	if m.phase == PhaseIdle {
		m.logger.Debug("act without observation", zap.Int("turn_id", m.turnID))
	}

	resp, err := m.runTurn(ctx)
	if err != nil {
		m.logger.Warn("turn aborted",
			zap.String("phase", m.phase.String()),
			zap.Int("turn_id", m.turnID),
			zap.Error(err),
		)
		m.phase = PhaseAborted
		return domain.Response{}, err
	}

	m.observation = domain.Observation{}
	m.phase = PhaseIdle
	return resp, nil
}

func (m *Manager) runTurn(ctx context.Context) (domain.Response, error) {
	m.phase = PhaseUpdating
	if err := m.stateUpdate(); err != nil {
		return domain.Response{}, fmt.Errorf("state update: %w", err)
	}

	m.phase = PhaseDeciding
	act, err := m.policy.NextAction(ctx, m.state)
	if err != nil {
		return domain.Response{}, fmt.Errorf("next action: %w", err)
	}

	m.phase = PhaseRendering
	resp, err := m.postPolicy([]domain.Act{act})
	if err != nil {
		return domain.Response{}, fmt.Errorf("post policy: %w", err)
	}

	m.logger.Debug("turn completed",
		zap.Int("turn_id", m.turnID),
		zap.String("dialogue_act", string(act.DialogueAct)),
		zap.Bool("episode_done", resp.EpisodeDone),
	)
	return resp, nil
}

// stateUpdate folds image-edit engine, user and vision engine acts in that
// order, notes whether the image-edit engine reported back and advances both
// turn ids.
func (m *Manager) stateUpdate() error {
	for _, act := range m.observation.OrderedActs() {
		if err := m.state.Update(act.DialogueAct, act.Intent, act.Slots, m.turnID); err != nil {
			return err
		}
	}
	if acts := m.observation.ImageEditEngineActs; acts != nil && len(*acts) > 0 {
		m.state.MarkImageEditEngine(m.turnID)
	}
	m.turnID++
	m.state.AdvanceTurn()
	return nil
}

func (m *Manager) postPolicy(acts []domain.Act) (domain.Response, error) {
	primary := acts[0]
	switch primary.DialogueAct {
	case domain.SysConfirm:
		m.state.SetConfirmSlots(primary.Slots)
	case domain.SysQuery, domain.SysExecute:
		// no state change
	}

	acts = append(acts, m.maskCompanion())

	utt, err := m.renderer.Render(acts, m.state)
	if err != nil {
		return domain.Response{}, err
	}
	return domain.Response{
		SystemActs:      acts,
		SystemUtterance: utt,
		EpisodeDone:     m.observation.Done(),
	}, nil
}

// maskCompanion reports the best mask hypothesis to the image-edit engine,
// or names the mask slot without a value when it is below threshold.
func (m *Manager) maskCompanion() domain.Act {
	mask := m.state.MustSlot(domain.SlotObjectMask)
	slot := domain.EmptySlotAction(domain.SlotObjectMask)
	if mask.MaxConfidence() >= domain.MaskConfidenceThreshold {
		v, c := mask.MaxConfidenceValue()
		slot = domain.NewSlotAction(domain.SlotObjectMask, v, c)
	}
	return domain.Act{
		DialogueAct: domain.SysInform,
		Slots:       []domain.SlotAction{slot},
	}
}

// Reward sums the policy's reward history.
func (m *Manager) Reward() float64 {
	return policy.TotalReward(m.policy)
}

func (m *Manager) Snapshot() (domain.SessionSnapshot, error) {
	st, err := json.Marshal(m.state)
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("marshal state: %w", err)
	}
	p, err := m.policy.Snapshot()
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("snapshot policy: %w", err)
	}
	return domain.SessionSnapshot{State: st, Policy: p, TurnID: m.turnID}, nil
}

// Restore loads a snapshot and leaves the manager Idle with an empty buffer.
func (m *Manager) Restore(snap domain.SessionSnapshot) error {
	if err := json.Unmarshal(snap.State, m.state); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	if err := m.policy.Restore(snap.Policy); err != nil {
		return fmt.Errorf("restore policy: %w", err)
	}
	m.turnID = snap.TurnID
	m.observation = domain.Observation{}
	m.phase = PhaseIdle
	return nil
}

func (m *Manager) checkInput() error {
	switch {
	case m.phase == PhaseUninitialized:
		return ErrNotStarted
	case m.phase == PhaseAborted:
		return ErrTurnAborted
	case !m.phase.acceptsInput():
		return fmt.Errorf("%w: %s", ErrIllegalTransition, m.phase)
	}
	return nil
}
