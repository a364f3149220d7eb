package domain

import (
	"encoding/json"
	"sort"
)

// SysIntent groups the slot actions a system turn intends to confirm,
// request, query and execute. The zero value is an empty intent.
type SysIntent struct {
	Confirm []SlotAction
	Request []SlotAction
	Query   []SlotAction
	Execute []SlotAction
}

func NewSysIntent() SysIntent {
	return SysIntent{
		Confirm: []SlotAction{},
		Request: []SlotAction{},
		Query:   []SlotAction{},
		Execute: []SlotAction{},
	}
}

// Add returns the category-wise concatenation of i and other. Order is kept
// and duplicates are not removed.
func (i SysIntent) Add(other SysIntent) SysIntent {
	return SysIntent{
		Confirm: concatSlots(i.Confirm, other.Confirm),
		Request: concatSlots(i.Request, other.Request),
		Query:   concatSlots(i.Query, other.Query),
		Execute: concatSlots(i.Execute, other.Execute),
	}
}

// Extend appends other to i in place.
func (i *SysIntent) Extend(other SysIntent) {
	i.Confirm = append(i.Confirm, copySlots(other.Confirm)...)
	i.Request = append(i.Request, copySlots(other.Request)...)
	i.Query = append(i.Query, copySlots(other.Query)...)
	i.Execute = append(i.Execute, copySlots(other.Execute)...)
}

// Equal compares each category as an order-independent collection: both
// sides are sorted by slot name, with value and confidence as tie-breakers,
// and then compared element-wise.
func (i SysIntent) Equal(other SysIntent) bool {
	return slotsEqualBy(i.Confirm, other.Confirm, bySlotValueConf) &&
		slotsEqualBy(i.Request, other.Request, bySlotValueConf) &&
		slotsEqualBy(i.Query, other.Query, bySlotValueConf) &&
		slotsEqualBy(i.Execute, other.Execute, bySlotValueConf)
}

// EqualBySlotName sorts each category by slot name only, keeping the
// relative order of same-named descriptors, before comparing element-wise.
// Two categories holding the same-named descriptors in a different order are
// therefore unequal here but equal under Equal.
func (i SysIntent) EqualBySlotName(other SysIntent) bool {
	return slotsEqualBy(i.Confirm, other.Confirm, bySlot) &&
		slotsEqualBy(i.Request, other.Request, bySlot) &&
		slotsEqualBy(i.Query, other.Query, bySlot) &&
		slotsEqualBy(i.Execute, other.Execute, bySlot)
}

func (i SysIntent) Empty() bool {
	return len(i.Confirm) == 0 && len(i.Request) == 0 && len(i.Query) == 0 && len(i.Execute) == 0
}

// Executable reports whether only execute slots remain. An empty intent is
// not executable.
func (i SysIntent) Executable() bool {
	return len(i.Confirm) == 0 && len(i.Request) == 0 && len(i.Query) == 0 && len(i.Execute) != 0
}

func (i *SysIntent) Clear() {
	i.Confirm = i.Confirm[:0]
	i.Request = i.Request[:0]
	i.Query = i.Query[:0]
	i.Execute = i.Execute[:0]
}

// Copy deep-copies every category.
func (i SysIntent) Copy() SysIntent {
	return SysIntent{
		Confirm: copySlots(i.Confirm),
		Request: copySlots(i.Request),
		Query:   copySlots(i.Query),
		Execute: copySlots(i.Execute),
	}
}

type sysIntentJSON struct {
	Confirm []SlotAction `json:"confirm"`
	Request []SlotAction `json:"request"`
	Query   []SlotAction `json:"query"`
	Execute []SlotAction `json:"execute"`
}

func (i SysIntent) MarshalJSON() ([]byte, error) {
	c := i.Copy()
	return json.Marshal(sysIntentJSON{
		Confirm: c.Confirm,
		Request: c.Request,
		Query:   c.Query,
		Execute: c.Execute,
	})
}

// UnmarshalJSON decodes the four category keys. Missing keys decode as empty
// categories.
func (i *SysIntent) UnmarshalJSON(data []byte) error {
	var v sysIntentJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*i = SysIntent{
		Confirm: copySlots(v.Confirm),
		Request: copySlots(v.Request),
		Query:   copySlots(v.Query),
		Execute: copySlots(v.Execute),
	}
	return nil
}

func concatSlots(a, b []SlotAction) []SlotAction {
	out := make([]SlotAction, 0, len(a)+len(b))
	out = append(out, copySlots(a)...)
	return append(out, copySlots(b)...)
}

type slotLess func(a, b SlotAction) bool

func bySlot(a, b SlotAction) bool {
	return a.Slot < b.Slot
}

func bySlotValueConf(a, b SlotAction) bool {
	if a.Slot != b.Slot {
		return a.Slot < b.Slot
	}
	if ka, kb := ValueKey(a.Value), ValueKey(b.Value); ka != kb {
		return ka < kb
	}
	return a.ConfidenceOr(-1) < b.ConfidenceOr(-1)
}

func slotsEqualBy(a, b []SlotAction, less slotLess) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := copySlots(a), copySlots(b)
	sort.SliceStable(sa, func(x, y int) bool { return less(sa[x], sa[y]) })
	sort.SliceStable(sb, func(x, y int) bool { return less(sb[x], sb[y]) })
	for k := range sa {
		if !sa[k].equal(sb[k]) {
			return false
		}
	}
	return true
}
