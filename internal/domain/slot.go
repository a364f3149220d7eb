package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// SlotAction describes one slot in a dialogue act. Value and Confidence are
// optional; a descriptor with neither only names the slot.
type SlotAction struct {
	Slot       string   `json:"slot"`
	Value      any      `json:"value,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func NewSlotAction(slot string, value any, confidence float64) SlotAction {
	c := confidence
	return SlotAction{Slot: slot, Value: NormalizeValue(value), Confidence: &c}
}

// EmptySlotAction names a slot without a value.
func EmptySlotAction(slot string) SlotAction {
	return SlotAction{Slot: slot}
}

func (s SlotAction) HasValue() bool {
	return s.Value != nil
}

// ConfidenceOr returns the descriptor confidence or def when it is absent.
func (s SlotAction) ConfidenceOr(def float64) float64 {
	if s.Confidence == nil {
		return def
	}
	return *s.Confidence
}

func (s *SlotAction) UnmarshalJSON(data []byte) error {
	type raw SlotAction
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	r.Value = NormalizeValue(r.Value)
	*s = SlotAction(r)
	return nil
}

func (s SlotAction) equal(o SlotAction) bool {
	if s.Slot != o.Slot || ValueKey(s.Value) != ValueKey(o.Value) {
		return false
	}
	if (s.Confidence == nil) != (o.Confidence == nil) {
		return false
	}
	return s.Confidence == nil || *s.Confidence == *o.Confidence
}

// NormalizeValue maps every Go numeric kind to float64 so that values built in
// code compare equal to values decoded from JSON.
func NormalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	}
	return v
}

// ValueKey renders a normalized value as a map key that keeps value kinds
// apart: the string "20" and the number 20 get different keys, and so do ""
// and a missing value.
func ValueKey(v any) string {
	switch n := NormalizeValue(v).(type) {
	case nil:
		return "nil"
	case string:
		return "s:" + n
	case float64:
		return "n:" + strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		return "b:" + strconv.FormatBool(n)
	default:
		return "j:" + ValueString(n)
	}
}

// ValueString renders a value for display. Missing values render as "".
func ValueString(v any) string {
	switch n := NormalizeValue(v).(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(n)
	default:
		b, err := json.Marshal(n)
		if err != nil {
			return fmt.Sprint(n)
		}
		return string(b)
	}
}

func copySlots(slots []SlotAction) []SlotAction {
	out := make([]SlotAction, len(slots))
	for i, s := range slots {
		out[i] = s
		if s.Confidence != nil {
			c := *s.Confidence
			out[i].Confidence = &c
		}
	}
	return out
}
