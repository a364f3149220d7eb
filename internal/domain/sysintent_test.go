package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIntent() SysIntent {
	return SysIntent{
		Confirm: []SlotAction{NewSlotAction(SlotObjectMask, "mask1", 0.9)},
		Request: []SlotAction{EmptySlotAction(SlotAttribute), EmptySlotAction(SlotAdjustValue)},
		Query:   []SlotAction{NewSlotAction(SlotObject, "the man", 1.0)},
		Execute: []SlotAction{},
	}
}

func TestSysIntent_AddEmptyIsIdentity(t *testing.T) {
	i := sampleIntent()
	assert.True(t, i.Add(NewSysIntent()).Equal(i))
	assert.True(t, NewSysIntent().Add(i).Equal(i))
}

func TestSysIntent_AddConcatenates(t *testing.T) {
	a := SysIntent{Request: []SlotAction{EmptySlotAction(SlotObject)}}
	b := SysIntent{Request: []SlotAction{EmptySlotAction(SlotObject)}, Execute: []SlotAction{NewSlotAction(SlotAttribute, "hue", 1)}}

	sum := a.Add(b)
	assert.Len(t, sum.Request, 2, "duplicates are kept")
	assert.Len(t, sum.Execute, 1)
	assert.Len(t, a.Request, 1, "operands are not modified")
}

func TestSysIntent_ExtendInPlace(t *testing.T) {
	i := NewSysIntent()
	i.Extend(SysIntent{Confirm: []SlotAction{NewSlotAction(SlotObjectMask, "m", 0.5)}})
	i.Extend(SysIntent{Confirm: []SlotAction{NewSlotAction(SlotObjectMask, "n", 0.4)}})
	require.Len(t, i.Confirm, 2)
	assert.Equal(t, "m", i.Confirm[0].Value)
	assert.Equal(t, "n", i.Confirm[1].Value)
}

func TestSysIntent_EqualIgnoresOrder(t *testing.T) {
	a := SysIntent{Request: []SlotAction{
		NewSlotAction(SlotObject, "a", 0.5),
		NewSlotAction(SlotAttribute, "hue", 1),
		NewSlotAction(SlotObject, "b", 0.7),
	}}
	b := SysIntent{Request: []SlotAction{
		NewSlotAction(SlotObject, "b", 0.7),
		NewSlotAction(SlotObject, "a", 0.5),
		NewSlotAction(SlotAttribute, "hue", 1),
	}}

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.False(t, a.EqualBySlotName(b), "same-named descriptors keep their relative order")

	c := SysIntent{Request: []SlotAction{
		NewSlotAction(SlotAttribute, "hue", 1),
		NewSlotAction(SlotObject, "a", 0.5),
		NewSlotAction(SlotObject, "b", 0.7),
	}}
	assert.True(t, a.EqualBySlotName(c))
}

func TestSysIntent_EqualDetectsDifferences(t *testing.T) {
	tests := []struct {
		name  string
		other SysIntent
	}{
		{"different value", SysIntent{Confirm: []SlotAction{NewSlotAction(SlotObjectMask, "mask2", 0.9)}}},
		{"different confidence", SysIntent{Confirm: []SlotAction{NewSlotAction(SlotObjectMask, "mask1", 0.8)}}},
		{"missing confidence", SysIntent{Confirm: []SlotAction{{Slot: SlotObjectMask, Value: "mask1"}}}},
		{"other category", SysIntent{Request: []SlotAction{NewSlotAction(SlotObjectMask, "mask1", 0.9)}}},
		{"extra descriptor", SysIntent{Confirm: []SlotAction{NewSlotAction(SlotObjectMask, "mask1", 0.9), EmptySlotAction(SlotObject)}}},
	}
	base := SysIntent{Confirm: []SlotAction{NewSlotAction(SlotObjectMask, "mask1", 0.9)}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, base.Equal(tt.other))
		})
	}
}

func TestSysIntent_EqualNumericKinds(t *testing.T) {
	a := SysIntent{Execute: []SlotAction{NewSlotAction(SlotAdjustValue, 20, 1)}}
	b := SysIntent{Execute: []SlotAction{NewSlotAction(SlotAdjustValue, 20.0, 1)}}
	assert.True(t, a.Equal(b))
}

func TestSysIntent_Executable(t *testing.T) {
	assert.False(t, NewSysIntent().Executable())
	assert.False(t, SysIntent{}.Executable())

	exec := SysIntent{Execute: []SlotAction{NewSlotAction(SlotAttribute, "brightness", 1)}}
	assert.True(t, exec.Executable())

	exec.Request = []SlotAction{EmptySlotAction(SlotAdjustValue)}
	assert.False(t, exec.Executable())
}

func TestSysIntent_Clear(t *testing.T) {
	i := sampleIntent()
	i.Clear()
	assert.True(t, i.Empty())
	assert.True(t, i.Equal(NewSysIntent()))
}

func TestSysIntent_CopyIsDeep(t *testing.T) {
	i := sampleIntent()
	c := i.Copy()

	*c.Confirm[0].Confidence = 0.1
	c.Request[0].Slot = "changed"
	c.Query = append(c.Query, EmptySlotAction(SlotObjectMask))

	assert.Equal(t, 0.9, *i.Confirm[0].Confidence)
	assert.Equal(t, SlotAttribute, i.Request[0].Slot)
	assert.Len(t, i.Query, 1)
}

func TestSysIntent_JSONRoundTrip(t *testing.T) {
	i := sampleIntent()
	data, err := json.Marshal(i)
	require.NoError(t, err)

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &keys))
	assert.ElementsMatch(t, []string{"confirm", "request", "query", "execute"}, mapKeys(keys))

	var back SysIntent
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equal(i))
}

func TestSysIntent_UnmarshalMissingKeys(t *testing.T) {
	var i SysIntent
	require.NoError(t, json.Unmarshal([]byte(`{"request":[{"slot":"object"}]}`), &i))
	assert.Len(t, i.Request, 1)
	assert.NotNil(t, i.Execute)
	assert.Empty(t, i.Execute)
	assert.False(t, i.Executable())
}

func mapKeys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
