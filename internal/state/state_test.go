package state

import (
	"encoding/json"
	"testing"

	"github.com/Harshitk-cp/imadial/internal/domain"
	"github.com/Harshitk-cp/imadial/internal/ontology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testOntology() *ontology.Ontology {
	return &ontology.Ontology{Slots: []ontology.SlotSpec{
		{Name: domain.SlotIntent},
		{Name: domain.SlotObject},
		{Name: domain.SlotObjectMask},
		{Name: domain.SlotAttribute},
		{Name: domain.SlotAdjustValue, Numeric: true},
	}}
}

func newTestState() *DialogueState {
	return New(testOntology(), zap.NewNop())
}

func sa(slot string, value any, conf float64) domain.SlotAction {
	return domain.NewSlotAction(slot, value, conf)
}

func TestNew_OneBeliefPerSlot(t *testing.T) {
	st := newTestState()
	for _, name := range testOntology().SlotNames() {
		b, ok := st.Slot(name)
		require.True(t, ok, name)
		assert.Equal(t, 0, b.Len())
	}
	_, ok := st.Slot("color")
	assert.False(t, ok)
	assert.Equal(t, 1, st.TurnID())
	assert.True(t, st.SysIntent().Empty())
}

func TestUpdate_LastWriteWinsWithinTurn(t *testing.T) {
	st := newTestState()

	require.NoError(t, st.Update(domain.UserInform, "", []domain.SlotAction{sa(domain.SlotObjectMask, "engine", 0.6)}, 1))
	require.NoError(t, st.Update(domain.UserInform, "", []domain.SlotAction{sa(domain.SlotObjectMask, "vision", 0.4)}, 1))

	mask := st.MustSlot(domain.SlotObjectMask)
	assert.Equal(t, 1, mask.Len(), "earlier same-turn hypothesis is replaced")
	v, c := mask.MaxConfidenceValue()
	assert.Equal(t, "vision", v)
	assert.Equal(t, 0.4, c)
}

func TestUpdate_AccumulatesAcrossTurns(t *testing.T) {
	st := newTestState()

	require.NoError(t, st.Update(domain.UserInform, "", []domain.SlotAction{sa(domain.SlotObject, "the man", 0.7)}, 1))
	require.NoError(t, st.Update(domain.UserInform, "", []domain.SlotAction{sa(domain.SlotObject, "the dog", 0.9)}, 2))

	obj := st.MustSlot(domain.SlotObject)
	assert.Equal(t, 2, obj.Len())
	assert.Equal(t, "the dog", obj.MaxValue())
	assert.Equal(t, 2, obj.TurnID())
}

func TestUpdate_MultipleDescriptorsInOneAct(t *testing.T) {
	st := newTestState()
	require.NoError(t, st.Update(domain.UserInform, "", []domain.SlotAction{
		sa(domain.SlotObjectMask, "m1", 0.3),
		sa(domain.SlotObjectMask, "m2", 0.8),
	}, 1))

	mask := st.MustSlot(domain.SlotObjectMask)
	assert.Equal(t, 2, mask.Len())
	assert.Equal(t, "m2", mask.MaxValue())
}

func TestUpdate_IntentAndDefaults(t *testing.T) {
	st := newTestState()
	require.NoError(t, st.Update(domain.UserInform, "adjust", []domain.SlotAction{
		{Slot: domain.SlotAdjustValue, Value: 20.0},
		domain.EmptySlotAction(domain.SlotAttribute),
		sa("color", "red", 1),
	}, 1))

	v, ok := st.BestValue(domain.SlotIntent)
	require.True(t, ok)
	assert.Equal(t, "adjust", v)

	adj := st.MustSlot(domain.SlotAdjustValue)
	assert.Equal(t, DefaultConfidence, adj.MaxConfidence())

	_, ok = st.BestValue(domain.SlotAttribute)
	assert.False(t, ok, "value-less descriptors are ignored")
}

func TestUpdate_InvalidConfidence(t *testing.T) {
	st := newTestState()
	err := st.Update(domain.UserInform, "", []domain.SlotAction{sa(domain.SlotObject, "x", 1.5)}, 1)
	assert.ErrorIs(t, err, ErrInvalidConfidence)
}

func TestUpdate_AffirmAndNegate(t *testing.T) {
	st := newTestState()
	require.NoError(t, st.Update(domain.UserInform, "", []domain.SlotAction{sa(domain.SlotObjectMask, "m1", 0.9)}, 1))
	st.SetConfirmSlots([]domain.SlotAction{sa(domain.SlotObjectMask, "m1", 0.9)})

	require.NoError(t, st.Update(domain.UserAffirm, "", nil, 2))
	assert.Equal(t, 1.0, st.MustSlot(domain.SlotObjectMask).MaxConfidence())

	require.NoError(t, st.Update(domain.UserNegate, "", nil, 3))
	assert.Equal(t, 0, st.MustSlot(domain.SlotObjectMask).Len())
}

func TestUpdate_AffirmAddsMissingValue(t *testing.T) {
	st := newTestState()
	st.SetConfirmSlots([]domain.SlotAction{sa(domain.SlotObject, "the cat", 0.4)})

	require.NoError(t, st.Update(domain.UserAffirm, "", nil, 1))
	v, c := st.MustSlot(domain.SlotObject).MaxConfidenceValue()
	assert.Equal(t, "the cat", v)
	assert.Equal(t, 1.0, c)
}

func TestFlushAndReset(t *testing.T) {
	st := newTestState()
	require.NoError(t, st.Update(domain.UserInform, "adjust", []domain.SlotAction{sa(domain.SlotObject, "x", 1)}, 1))
	st.SetConfirmSlots([]domain.SlotAction{sa(domain.SlotObject, "x", 1)})
	st.AdvanceTurn()
	st.AdvanceTurn()

	st.Flush()
	assert.Equal(t, 0, st.MustSlot(domain.SlotObject).Len())
	assert.True(t, st.SysIntent().Empty())
	assert.Equal(t, 3, st.TurnID(), "flush keeps the turn counter")
	assert.Len(t, st.FeatureVector(), st.FeatureSize())

	st.AdvanceTurn()
	st.Reset()
	assert.Equal(t, 1, st.TurnID())
}

func TestMarkImageEditEngine(t *testing.T) {
	st := newTestState()
	assert.Equal(t, 0, st.ImageEditEngineTurn())

	st.MarkImageEditEngine(3)
	st.MarkImageEditEngine(2)
	assert.Equal(t, 3, st.ImageEditEngineTurn(), "only moves forward")

	st.Flush()
	assert.Equal(t, 3, st.ImageEditEngineTurn())
	st.Reset()
	assert.Equal(t, 0, st.ImageEditEngineTurn())
}

func TestFeatureVector(t *testing.T) {
	st := newTestState()
	assert.Equal(t, 11, st.FeatureSize())
	assert.Equal(t, make([]float64, 11), st.FeatureVector())

	require.NoError(t, st.Update(domain.UserInform, "", []domain.SlotAction{sa(domain.SlotObjectMask, "m1", 0.9)}, 1))
	st.SetConfirmSlots([]domain.SlotAction{sa(domain.SlotObjectMask, "m1", 0.9)})

	fv := st.FeatureVector()
	require.Len(t, fv, 11)
	assert.Equal(t, 0.9, fv[4])
	assert.Equal(t, 1.0, fv[5])
	assert.Equal(t, 1.0, fv[10])
}

func TestSysIntent_IsCopied(t *testing.T) {
	st := newTestState()
	st.SetConfirmSlots([]domain.SlotAction{sa(domain.SlotObjectMask, "m1", 0.9)})

	si := st.SysIntent()
	si.Confirm[0].Value = "changed"
	assert.Equal(t, "m1", st.SysIntent().Confirm[0].Value)
}

func TestSnapshotRoundTrip(t *testing.T) {
	st := newTestState()
	require.NoError(t, st.Update(domain.UserInform, "adjust", []domain.SlotAction{
		sa(domain.SlotObject, "the man", 0.8),
		sa(domain.SlotAdjustValue, 20, 0.6),
	}, 1))
	st.SetConfirmSlots([]domain.SlotAction{sa(domain.SlotObjectMask, "m1", 0.9)})
	st.MarkImageEditEngine(1)
	st.AdvanceTurn()

	data, err := json.Marshal(st)
	require.NoError(t, err)

	restored := newTestState()
	require.NoError(t, json.Unmarshal(data, restored))

	assert.Equal(t, st.TurnID(), restored.TurnID())
	assert.Equal(t, 1, restored.ImageEditEngineTurn())
	assert.Equal(t, st.FeatureVector(), restored.FeatureVector())
	assert.True(t, st.SysIntent().Equal(restored.SysIntent()))
	for _, name := range testOntology().SlotNames() {
		assert.Equal(t, st.MustSlot(name).Hypotheses(), restored.MustSlot(name).Hypotheses(), name)
	}
}

func TestSnapshot_UnknownSlot(t *testing.T) {
	st := newTestState()
	err := json.Unmarshal([]byte(`{"turn_id":2,"beliefs":[{"slot":"color","turn_id":1,"hypotheses":[]}]}`), st)
	assert.ErrorIs(t, err, ErrUnknownSlot)
}
