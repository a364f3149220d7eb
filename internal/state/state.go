package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/imadial/internal/domain"
	"github.com/Harshitk-cp/imadial/internal/ontology"
	"go.uber.org/zap"
)

var (
	ErrInvalidConfidence = errors.New("slot confidence must be within [0, 1]")
	ErrUnknownSlot       = errors.New("slot is not declared in the ontology")
)

// DefaultConfidence is assumed for descriptors that carry a value but no
// confidence.
const DefaultConfidence = 1.0

// DialogueState tracks one belief per ontology slot, the confirm slots the
// system last asked about and the turn counter.
type DialogueState struct {
	ontology  *ontology.Ontology
	beliefs   map[string]*SlotBelief
	sysIntent domain.SysIntent
	turnID    int
	// engineTurn is the last turn that carried an image-edit engine act.
	engineTurn int
	logger     *zap.Logger
}

func New(o *ontology.Ontology, logger *zap.Logger) *DialogueState {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DialogueState{ontology: o, logger: logger}
	s.Reset()
	return s
}

func (s *DialogueState) Ontology() *ontology.Ontology { return s.ontology }

// Reset reinitializes every belief, the retained intent and the turn counter.
func (s *DialogueState) Reset() {
	s.beliefs = make(map[string]*SlotBelief, len(s.ontology.Slots))
	for _, spec := range s.ontology.Slots {
		s.beliefs[spec.Name] = NewSlotBelief(spec.Name)
	}
	s.sysIntent = domain.NewSysIntent()
	s.turnID = 1
	s.engineTurn = 0
}

// Flush drops all hypotheses but keeps the schema and the turn counter.
func (s *DialogueState) Flush() {
	for _, b := range s.beliefs {
		b.Clear()
	}
	s.sysIntent.Clear()
}

// Update folds one act into the beliefs. Descriptors without a value are
// ignored, as are slots the ontology does not declare. An affirm raises the
// retained confirm slots to full confidence; a negate removes them.
//
// Update is not transactional: when it fails partway, beliefs written before
// the failing descriptor stay written.
func (s *DialogueState) Update(act domain.DialogueAct, intent string, slots []domain.SlotAction, turnID int) error {
	if intent != "" {
		if b, ok := s.beliefs[domain.SlotIntent]; ok {
			b.Observe([]Hypothesis{{Value: intent, Confidence: DefaultConfidence}}, turnID)
		}
	}

	grouped := make(map[string][]Hypothesis)
	var order []string
	for _, sa := range slots {
		if !sa.HasValue() {
			continue
		}
		if _, ok := s.beliefs[sa.Slot]; !ok {
			s.logger.Debug("ignoring slot not in ontology", zap.String("slot", sa.Slot))
			continue
		}
		conf := sa.ConfidenceOr(DefaultConfidence)
		if conf < 0 || conf > 1 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidConfidence, sa.Slot, conf)
		}
		if _, ok := grouped[sa.Slot]; !ok {
			order = append(order, sa.Slot)
		}
		grouped[sa.Slot] = append(grouped[sa.Slot], Hypothesis{Value: sa.Value, Confidence: conf})
	}
	for _, name := range order {
		s.beliefs[name].Observe(grouped[name], turnID)
	}

	switch act {
	case domain.UserAffirm:
		for _, c := range s.sysIntent.Confirm {
			if b, ok := s.beliefs[c.Slot]; ok && c.HasValue() {
				if !b.SetConfidence(c.Value, 1.0, turnID) {
					b.Update(c.Value, 1.0, turnID)
				}
			}
		}
	case domain.UserNegate:
		for _, c := range s.sysIntent.Confirm {
			if b, ok := s.beliefs[c.Slot]; ok && c.HasValue() {
				b.Remove(c.Value)
			}
		}
	}
	return nil
}

// Slot returns the belief for name.
func (s *DialogueState) Slot(name string) (*SlotBelief, bool) {
	b, ok := s.beliefs[name]
	return b, ok
}

// MustSlot returns the belief for name or an empty detached belief when the
// ontology does not declare it.
func (s *DialogueState) MustSlot(name string) *SlotBelief {
	if b, ok := s.beliefs[name]; ok {
		return b
	}
	return NewSlotBelief(name)
}

// BestValue returns the most confident value of a slot, if any.
func (s *DialogueState) BestValue(slot string) (any, bool) {
	b, ok := s.beliefs[slot]
	if !ok || b.Len() == 0 {
		return nil, false
	}
	return b.MaxValue(), true
}

func (s *DialogueState) TurnID() int { return s.turnID }

func (s *DialogueState) SetTurnID(id int) { s.turnID = id }

func (s *DialogueState) AdvanceTurn() { s.turnID++ }

// MarkImageEditEngine records that the image-edit engine reported back in
// turnID.
func (s *DialogueState) MarkImageEditEngine(turnID int) {
	if turnID > s.engineTurn {
		s.engineTurn = turnID
	}
}

// ImageEditEngineTurn returns the last turn with an image-edit engine act, or
// zero if there was none.
func (s *DialogueState) ImageEditEngineTurn() int { return s.engineTurn }

// SysIntent returns a copy of the retained system intent.
func (s *DialogueState) SysIntent() domain.SysIntent { return s.sysIntent.Copy() }

func (s *DialogueState) SetSysIntent(i domain.SysIntent) { s.sysIntent = i.Copy() }

// SetConfirmSlots records the slots of the last system confirm.
func (s *DialogueState) SetConfirmSlots(slots []domain.SlotAction) {
	s.sysIntent.Confirm = domain.SysIntent{Confirm: slots}.Copy().Confirm
}

// FeatureSize is the fixed length of FeatureVector for this ontology.
func (s *DialogueState) FeatureSize() int {
	return 2*len(s.ontology.Slots) + 1
}

// FeatureVector projects the state onto a fixed-length vector: for each slot
// in declaration order its max confidence and whether it holds any
// hypothesis, followed by whether a confirm is pending.
func (s *DialogueState) FeatureVector() []float64 {
	out := make([]float64, 0, s.FeatureSize())
	for _, spec := range s.ontology.Slots {
		b := s.beliefs[spec.Name]
		filled := 0.0
		if b.Len() > 0 {
			filled = 1
		}
		out = append(out, b.MaxConfidence(), filled)
	}
	pending := 0.0
	if len(s.sysIntent.Confirm) > 0 {
		pending = 1
	}
	return append(out, pending)
}

type stateJSON struct {
	TurnID     int              `json:"turn_id"`
	EngineTurn int              `json:"imageeditengine_turn,omitempty"`
	Beliefs    []beliefJSON     `json:"beliefs"`
	SysIntent  domain.SysIntent `json:"sysintent"`
}

func (s *DialogueState) MarshalJSON() ([]byte, error) {
	v := stateJSON{TurnID: s.turnID, EngineTurn: s.engineTurn, SysIntent: s.sysIntent.Copy()}
	for _, spec := range s.ontology.Slots {
		v.Beliefs = append(v.Beliefs, s.beliefs[spec.Name].snapshot())
	}
	return json.Marshal(v)
}

// UnmarshalJSON restores a snapshot produced by MarshalJSON into a state
// built from the same ontology. Slots missing from the snapshot come back
// empty.
func (s *DialogueState) UnmarshalJSON(data []byte) error {
	var v stateJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	for _, bj := range v.Beliefs {
		if _, ok := s.beliefs[bj.Slot]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSlot, bj.Slot)
		}
	}
	s.Reset()
	for _, bj := range v.Beliefs {
		s.beliefs[bj.Slot].restore(bj)
	}
	s.sysIntent = v.SysIntent.Copy()
	s.turnID = v.TurnID
	s.engineTurn = v.EngineTurn
	return nil
}
