package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acts(a ...Act) *[]Act { return &a }

func TestObservation_MergeOverwritesSuppliedKeys(t *testing.T) {
	var buf Observation
	buf.Merge(Observation{UserActs: acts(Act{DialogueAct: UserInform, Intent: "adjust"})})
	buf.Merge(Observation{VisionEngineActs: acts(Act{DialogueAct: UserInform, Slots: []SlotAction{NewSlotAction(SlotObjectMask, "m1", 0.9)}})})

	require.NotNil(t, buf.UserActs)
	require.NotNil(t, buf.VisionEngineActs)
	assert.Nil(t, buf.ImageEditEngineActs)

	buf.Merge(Observation{UserActs: acts(Act{DialogueAct: UserAffirm})})
	require.Len(t, *buf.UserActs, 1)
	assert.Equal(t, UserAffirm, (*buf.UserActs)[0].DialogueAct)
	assert.Len(t, *buf.VisionEngineActs, 1, "unsupplied keys are kept")
}

func TestObservation_MergeCopies(t *testing.T) {
	src := []Act{{DialogueAct: UserInform, Slots: []SlotAction{NewSlotAction(SlotObject, "dog", 0.8)}}}
	var buf Observation
	buf.Merge(Observation{UserActs: &src})

	src[0].Slots[0].Value = "cat"
	assert.Equal(t, "dog", (*buf.UserActs)[0].Slots[0].Value)
}

func TestObservation_OrderedActs(t *testing.T) {
	obs := Observation{
		UserActs:            acts(Act{DialogueAct: UserInform, Intent: "user"}),
		ImageEditEngineActs: acts(Act{DialogueAct: UserInform, Intent: "engine"}),
		VisionEngineActs:    acts(Act{DialogueAct: UserInform, Intent: "vision"}),
	}
	got := obs.OrderedActs()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"engine", "user", "vision"}, []string{got[0].Intent, got[1].Intent, got[2].Intent})
}

func TestObservation_DoneAndEmpty(t *testing.T) {
	var obs Observation
	assert.True(t, obs.Empty())
	assert.False(t, obs.Done())

	done := true
	obs.Merge(Observation{EpisodeDone: &done})
	assert.False(t, obs.Empty())
	assert.True(t, obs.Done())
}

func TestObservation_Validate(t *testing.T) {
	ok := Observation{UserActs: acts(Act{DialogueAct: UserNegate})}
	assert.NoError(t, ok.Validate())

	bad := Observation{VisionEngineActs: acts(Act{DialogueAct: SysExecute})}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidDialogueAct)
}

func TestObservation_JSON(t *testing.T) {
	body := `{"user_acts":[{"dialogue_act":"inform","intent":"adjust","slots":[{"slot":"adjust_value","value":20,"confidence":0.7}]}],"episode_done":false}`
	var obs Observation
	require.NoError(t, json.Unmarshal([]byte(body), &obs))

	require.NotNil(t, obs.UserActs)
	assert.Nil(t, obs.VisionEngineActs)
	require.NotNil(t, obs.EpisodeDone)
	assert.False(t, obs.Done())

	sa := (*obs.UserActs)[0].Slots[0]
	assert.Equal(t, 20.0, sa.Value)
	assert.Equal(t, 0.7, sa.ConfidenceOr(1))
}

func TestSlotAction_ConfidenceOr(t *testing.T) {
	assert.Equal(t, 1.0, EmptySlotAction(SlotObject).ConfidenceOr(1))
	assert.False(t, EmptySlotAction(SlotObject).HasValue())
	assert.Equal(t, 0.3, NewSlotAction(SlotObject, "x", 0.3).ConfidenceOr(1))
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "20", ValueString(20))
	assert.Equal(t, "-15.5", ValueString(float32(-15.5)))
	assert.Equal(t, "true", ValueString(true))
	assert.Equal(t, "the man", ValueString("the man"))
	assert.Equal(t, "", ValueString(nil))
}

func TestValueKey_KeepsKindsApart(t *testing.T) {
	assert.Equal(t, ValueKey(20), ValueKey(20.0))
	assert.NotEqual(t, ValueKey("20"), ValueKey(20))
	assert.NotEqual(t, ValueKey(""), ValueKey(nil))
	assert.NotEqual(t, ValueKey("true"), ValueKey(true))
}

func TestEqual_DistinguishesValueKinds(t *testing.T) {
	str := SysIntent{Confirm: []SlotAction{NewSlotAction(SlotAdjustValue, "20", 1)}}
	num := SysIntent{Confirm: []SlotAction{NewSlotAction(SlotAdjustValue, 20, 1)}}
	assert.False(t, str.Equal(num))

	empty := SysIntent{Request: []SlotAction{{Slot: SlotObject, Value: ""}}}
	missing := SysIntent{Request: []SlotAction{EmptySlotAction(SlotObject)}}
	assert.False(t, empty.Equal(missing))
	assert.True(t, missing.Equal(SysIntent{Request: []SlotAction{EmptySlotAction(SlotObject)}}))
}
