package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotBelief_Empty(t *testing.T) {
	b := NewSlotBelief("object")
	v, c := b.MaxConfidenceValue()
	assert.Nil(t, v)
	assert.Equal(t, 0.0, c)
	assert.Empty(t, b.Hypotheses())
}

func TestSlotBelief_TieBreaks(t *testing.T) {
	b := NewSlotBelief("object")
	b.Update("b", 0.5, 1)
	b.Update("a", 0.5, 1)
	assert.Equal(t, "a", b.MaxValue(), "equal turn falls back to value order")

	b.Update("c", 0.5, 2)
	assert.Equal(t, "c", b.MaxValue(), "most recent turn wins a confidence tie")
}

func TestSlotBelief_NumericValuesShareKey(t *testing.T) {
	b := NewSlotBelief("adjust_value")
	b.Update(20, 0.4, 1)
	b.Update(20.0, 0.8, 2)
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 0.8, b.MaxConfidence())
}

func TestSlotBelief_StringAndNumberStayApart(t *testing.T) {
	b := NewSlotBelief("adjust_value")
	b.Observe([]Hypothesis{{Value: "20", Confidence: 0.4}, {Value: 20, Confidence: 0.8}}, 1)
	require.Equal(t, 2, b.Len())
	assert.Equal(t, 20.0, b.MaxValue())
	assert.True(t, b.Remove("20"))
	assert.Equal(t, 1, b.Len())
}

func TestSlotBelief_SetConfidenceAndRemove(t *testing.T) {
	b := NewSlotBelief("object")
	assert.False(t, b.SetConfidence("x", 1, 1))
	b.Update("x", 0.2, 1)
	assert.True(t, b.SetConfidence("x", 1, 2))
	assert.Equal(t, 1.0, b.MaxConfidence())

	assert.True(t, b.Remove("x"))
	assert.False(t, b.Remove("x"))
	assert.Equal(t, 0, b.Len())
}

func TestSlotBelief_ObserveKeepsEarlierTurns(t *testing.T) {
	b := NewSlotBelief("object")
	b.Observe([]Hypothesis{{Value: "old", Confidence: 0.9}}, 1)
	b.Observe([]Hypothesis{{Value: "first", Confidence: 0.3}}, 2)
	b.Observe([]Hypothesis{{Value: "second", Confidence: 0.4}}, 2)

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, "old", b.MaxValue())
}
