package state

import (
	"sort"

	"github.com/Harshitk-cp/imadial/internal/domain"
)

// Hypothesis is one candidate value of a slot with its confidence.
type Hypothesis struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	TurnID     int     `json:"turn_id"`
}

// SlotBelief holds the candidate values tracked for one ontology slot.
// Confidences are independent and need not sum to one.
type SlotBelief struct {
	name   string
	hyps   map[string]Hypothesis
	turnID int
}

func NewSlotBelief(name string) *SlotBelief {
	return &SlotBelief{name: name, hyps: make(map[string]Hypothesis)}
}

func (b *SlotBelief) Name() string { return b.name }

// TurnID is the turn of the most recent write.
func (b *SlotBelief) TurnID() int { return b.turnID }

func (b *SlotBelief) Len() int { return len(b.hyps) }

// Observe folds one act's hypotheses for this slot. Hypotheses written by an
// earlier act of the same turn are replaced, so the last act of a turn wins.
func (b *SlotBelief) Observe(hyps []Hypothesis, turnID int) {
	if turnID == b.turnID {
		for k, h := range b.hyps {
			if h.TurnID == turnID {
				delete(b.hyps, k)
			}
		}
	}
	for _, h := range hyps {
		b.set(h.Value, h.Confidence, turnID)
	}
	b.turnID = turnID
}

// Update writes a single hypothesis without replacing other same-turn ones.
func (b *SlotBelief) Update(value any, confidence float64, turnID int) {
	b.set(value, confidence, turnID)
	b.turnID = turnID
}

// SetConfidence changes the confidence of an existing hypothesis. It reports
// whether the value was present.
func (b *SlotBelief) SetConfidence(value any, confidence float64, turnID int) bool {
	k := domain.ValueKey(value)
	if _, ok := b.hyps[k]; !ok {
		return false
	}
	b.set(value, confidence, turnID)
	b.turnID = turnID
	return true
}

func (b *SlotBelief) Remove(value any) bool {
	k := domain.ValueKey(value)
	if _, ok := b.hyps[k]; !ok {
		return false
	}
	delete(b.hyps, k)
	return true
}

func (b *SlotBelief) Clear() {
	b.hyps = make(map[string]Hypothesis)
	b.turnID = 0
}

// MaxConfidenceValue returns the most confident value. Ties go to the most
// recent turn, then to the smallest value key. It returns (nil, 0) when the
// belief is empty.
func (b *SlotBelief) MaxConfidenceValue() (any, float64) {
	hyps := b.Hypotheses()
	if len(hyps) == 0 {
		return nil, 0
	}
	return hyps[0].Value, hyps[0].Confidence
}

func (b *SlotBelief) MaxConfidence() float64 {
	_, c := b.MaxConfidenceValue()
	return c
}

func (b *SlotBelief) MaxValue() any {
	v, _ := b.MaxConfidenceValue()
	return v
}

// Hypotheses returns a copy ordered from most to least confident.
func (b *SlotBelief) Hypotheses() []Hypothesis {
	out := make([]Hypothesis, 0, len(b.hyps))
	for _, h := range b.hyps {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].TurnID != out[j].TurnID {
			return out[i].TurnID > out[j].TurnID
		}
		return domain.ValueKey(out[i].Value) < domain.ValueKey(out[j].Value)
	})
	return out
}

func (b *SlotBelief) set(value any, confidence float64, turnID int) {
	value = domain.NormalizeValue(value)
	b.hyps[domain.ValueKey(value)] = Hypothesis{Value: value, Confidence: confidence, TurnID: turnID}
}

type beliefJSON struct {
	Slot       string       `json:"slot"`
	TurnID     int          `json:"turn_id"`
	Hypotheses []Hypothesis `json:"hypotheses"`
}

func (b *SlotBelief) snapshot() beliefJSON {
	return beliefJSON{Slot: b.name, TurnID: b.turnID, Hypotheses: b.Hypotheses()}
}

func (b *SlotBelief) restore(v beliefJSON) {
	b.hyps = make(map[string]Hypothesis, len(v.Hypotheses))
	for _, h := range v.Hypotheses {
		b.set(h.Value, h.Confidence, h.TurnID)
	}
	b.turnID = v.TurnID
}
