package policy

import (
	"errors"
	"fmt"

	"github.com/Harshitk-cp/imadial/internal/domain"
	"github.com/Harshitk-cp/imadial/internal/ontology"
	"github.com/Harshitk-cp/imadial/internal/state"
)

var (
	ErrActionOutOfRange   = errors.New("action index out of range")
	ErrActionUnavailable  = errors.New("action not in action space")
	ErrActionSlotUnknown  = errors.New("action slot not declared in ontology")
	ErrActionSlotRequired = errors.New("action requires a slot")
)

// ActionMapper defines the discrete action space of a policy and turns an
// action index into a concrete system act.
type ActionMapper struct {
	actions []ontology.ActionSpec
	index   map[ontology.ActionSpec]int
}

// NewActionMapper validates specs against the ontology. Request, confirm and
// query actions must name a slot; execute and inform may omit it.
func NewActionMapper(specs []ontology.ActionSpec, o *ontology.Ontology) (*ActionMapper, error) {
	m := &ActionMapper{
		actions: make([]ontology.ActionSpec, 0, len(specs)),
		index:   make(map[ontology.ActionSpec]int, len(specs)),
	}
	for i, a := range specs {
		switch a.DialogueAct {
		case domain.SysRequest, domain.SysConfirm, domain.SysQuery:
			if a.Slot == "" {
				return nil, fmt.Errorf("%w: #%d %s", ErrActionSlotRequired, i, a.DialogueAct)
			}
		}
		if a.Slot != "" && !o.HasSlot(a.Slot) {
			return nil, fmt.Errorf("%w: #%d %s", ErrActionSlotUnknown, i, a.Slot)
		}
		if _, dup := m.index[a]; dup {
			continue
		}
		m.index[a] = len(m.actions)
		m.actions = append(m.actions, a)
	}
	return m, nil
}

// Size is the cardinality of the action space.
func (m *ActionMapper) Size() int { return len(m.actions) }

func (m *ActionMapper) Action(i int) (ontology.ActionSpec, error) {
	if i < 0 || i >= len(m.actions) {
		return ontology.ActionSpec{}, fmt.Errorf("%w: %d", ErrActionOutOfRange, i)
	}
	return m.actions[i], nil
}

// Index finds the action for a dialogue act and slot.
func (m *ActionMapper) Index(act domain.DialogueAct, slot string) (int, error) {
	i, ok := m.index[ontology.ActionSpec{DialogueAct: act, Slot: slot}]
	if !ok {
		return -1, fmt.Errorf("%w: %s %s", ErrActionUnavailable, act, slot)
	}
	return i, nil
}

// Build materializes action i against the current beliefs.
func (m *ActionMapper) Build(i int, st *state.DialogueState) (domain.Act, error) {
	a, err := m.Action(i)
	if err != nil {
		return domain.Act{}, err
	}
	act := domain.Act{DialogueAct: a.DialogueAct, Slots: []domain.SlotAction{}}
	switch a.DialogueAct {
	case domain.SysGreeting, domain.SysBye:
	case domain.SysRequest:
		act.Slots = append(act.Slots, domain.EmptySlotAction(a.Slot))
	case domain.SysExecute:
		if a.Slot != "" {
			act.Slots = append(act.Slots, bestSlot(st, a.Slot))
			break
		}
		for _, name := range st.Ontology().SlotNames() {
			if b, ok := st.Slot(name); ok && b.Len() > 0 {
				act.Slots = append(act.Slots, bestSlot(st, name))
			}
		}
	default:
		if a.Slot != "" {
			act.Slots = append(act.Slots, bestSlot(st, a.Slot))
		}
	}
	return act, nil
}

func bestSlot(st *state.DialogueState, name string) domain.SlotAction {
	b := st.MustSlot(name)
	if b.Len() == 0 {
		return domain.EmptySlotAction(name)
	}
	v, c := b.MaxConfidenceValue()
	return domain.NewSlotAction(name, v, c)
}
