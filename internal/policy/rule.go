package policy

import (
	"context"
	"encoding/json"

	"github.com/Harshitk-cp/imadial/internal/domain"
	"github.com/Harshitk-cp/imadial/internal/ontology"
	"github.com/Harshitk-cp/imadial/internal/state"
	"go.uber.org/zap"
)

const RuleName = "rule"

const (
	DefaultRuleMinConfidence = 0.5
	DefaultRuleTurnPenalty   = -1.0
	DefaultRuleSuccessReward = 20.0
)

// RulePolicy is the hand-written image-edit dialogue flow: greet, gather
// intent and object, ground the object in a mask through the vision engine,
// confirm the mask, gather attribute and value, execute, and say goodbye once
// the image-edit engine has reported back after the execute.
type RulePolicy struct {
	mapper        *ActionMapper
	ontology      *ontology.Ontology
	logger        *zap.Logger
	minConfidence float64
	turnPenalty   float64
	successReward float64

	greeted bool
	// executedAt is the state turn of the first execute, zero before it.
	executedAt int
	rewards    []float64
}

func NewRulePolicy(cfg ontology.PolicyConfig, mapper *ActionMapper, o *ontology.Ontology, _ *state.DialogueState, logger *zap.Logger) (Policy, error) {
	return &RulePolicy{
		mapper:        mapper,
		ontology:      o,
		logger:        logger,
		minConfidence: paramFloat(cfg.Params, "min_confidence", DefaultRuleMinConfidence),
		turnPenalty:   paramFloat(cfg.Params, "turn_penalty", DefaultRuleTurnPenalty),
		successReward: paramFloat(cfg.Params, "success_reward", DefaultRuleSuccessReward),
		rewards:       []float64{},
	}, nil
}

func (p *RulePolicy) NextAction(ctx context.Context, st *state.DialogueState) (domain.Act, error) {
	if err := ctx.Err(); err != nil {
		return domain.Act{}, err
	}

	act, slot := p.decide(st)
	i, err := p.mapper.Index(act, slot)
	if err != nil {
		return domain.Act{}, err
	}
	out, err := p.mapper.Build(i, st)
	if err != nil {
		return domain.Act{}, err
	}

	reward := p.turnPenalty
	switch act {
	case domain.SysGreeting:
		p.greeted = true
	case domain.SysExecute:
		// The success reward is paid once; repeated executes while waiting
		// for the image-edit engine only cost the turn penalty.
		if p.executedAt == 0 {
			p.executedAt = st.TurnID()
			reward += p.successReward
		}
	}
	p.rewards = append(p.rewards, reward)

	p.logger.Debug("rule policy decided",
		zap.String("dialogue_act", string(act)),
		zap.String("slot", slot),
		zap.Int("turn_id", st.TurnID()),
	)
	return out, nil
}

func (p *RulePolicy) decide(st *state.DialogueState) (domain.DialogueAct, string) {
	if !p.greeted {
		if _, err := p.mapper.Index(domain.SysGreeting, ""); err == nil {
			return domain.SysGreeting, ""
		}
	}
	if p.executedAt > 0 && st.ImageEditEngineTurn() >= p.executedAt {
		return domain.SysBye, ""
	}
	if p.ontology.HasSlot(domain.SlotIntent) && !p.known(st, domain.SlotIntent) {
		return domain.SysRequest, domain.SlotIntent
	}
	if !p.known(st, domain.SlotObject) {
		return domain.SysRequest, domain.SlotObject
	}
	mask := st.MustSlot(domain.SlotObjectMask)
	if mask.Len() == 0 || mask.MaxConfidence() < p.minConfidence {
		return domain.SysQuery, domain.SlotObject
	}
	if mask.MaxConfidence() < 1.0 {
		return domain.SysConfirm, domain.SlotObjectMask
	}
	if p.ontology.HasSlot(domain.SlotAttribute) && !p.known(st, domain.SlotAttribute) {
		return domain.SysRequest, domain.SlotAttribute
	}
	if p.ontology.HasSlot(domain.SlotAdjustValue) && !p.known(st, domain.SlotAdjustValue) {
		return domain.SysRequest, domain.SlotAdjustValue
	}
	return domain.SysExecute, ""
}

func (p *RulePolicy) known(st *state.DialogueState, slot string) bool {
	b, ok := st.Slot(slot)
	return ok && b.Len() > 0 && b.MaxConfidence() >= p.minConfidence
}

func (p *RulePolicy) Reset() {
	p.greeted = false
	p.executedAt = 0
	p.rewards = []float64{}
}

func (p *RulePolicy) Rewards() []float64 {
	out := make([]float64, len(p.rewards))
	copy(out, p.rewards)
	return out
}

type ruleSnapshot struct {
	Greeted    bool      `json:"greeted"`
	ExecutedAt int       `json:"executed_at"`
	Rewards    []float64 `json:"rewards"`
}

func (p *RulePolicy) Snapshot() (json.RawMessage, error) {
	return json.Marshal(ruleSnapshot{Greeted: p.greeted, ExecutedAt: p.executedAt, Rewards: p.Rewards()})
}

func (p *RulePolicy) Restore(data json.RawMessage) error {
	var v ruleSnapshot
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.greeted = v.Greeted
	p.executedAt = v.ExecutedAt
	p.rewards = append([]float64{}, v.Rewards...)
	return nil
}

func paramFloat(params map[string]any, key string, def float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}
