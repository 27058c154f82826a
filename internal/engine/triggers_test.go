package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
	"github.com/rayNotGlorious/flight-with-actions/internal/state"
)

func newTestTriggerEvaluator(t *testing.T) (*TriggerEvaluator, *state.SharedState, *fakeCommander) {
	t.Helper()
	s := state.New()
	s.ReplaceMappings([]model.NodeMapping{{TextId: "valve1", BoardId: "sam-01", Channel: 1, SensorType: model.SensorValve}})
	cmd := &fakeCommander{}
	h := NewDeviceHandler(s, cmd, zerolog.Nop())
	e := New(s, h, zerolog.Nop())
	e.pollInterval = time.Millisecond
	te := NewTriggerEvaluator(s, e, time.Millisecond, zerolog.Nop())
	return te, s, cmd
}

func TestTick_TruthyConditionRunsScript(t *testing.T) {
	te, s, cmd := newTestTriggerEvaluator(t)
	s.SetSensor("PT3", model.Measurement{Value: 600})
	s.UpsertTrigger(model.Trigger{
		Name:      "overpressure",
		Condition: `Sensor.read("PT3") > 500`,
		Script:    `Valve("valve1").close()`,
		Active:    true,
	})

	te.tick()

	require.Len(t, cmd.sent, 1)
	v, ok := s.Valve("valve1")
	require.True(t, ok)
	assert.Equal(t, model.ValveClosed, v.Commanded)
}

func TestTick_FalsyConditionDoesNotRun(t *testing.T) {
	te, s, cmd := newTestTriggerEvaluator(t)
	s.SetSensor("PT3", model.Measurement{Value: 10})
	s.UpsertTrigger(model.Trigger{
		Name:      "overpressure",
		Condition: `Sensor.read("PT3") > 500`,
		Script:    `Valve("valve1").close()`,
		Active:    true,
	})

	te.tick()

	assert.Empty(t, cmd.sent)
}

func TestTick_InactiveTriggerIsSkipped(t *testing.T) {
	te, s, cmd := newTestTriggerEvaluator(t)
	s.UpsertTrigger(model.Trigger{
		Name:      "overpressure",
		Condition: `true`,
		Script:    `Valve("valve1").close()`,
		Active:    false,
	})

	te.tick()

	assert.Empty(t, cmd.sent)
}

func TestTick_ConditionErrorDeactivatesTrigger(t *testing.T) {
	te, s, cmd := newTestTriggerEvaluator(t)
	s.UpsertTrigger(model.Trigger{
		Name:      "broken",
		Condition: `this is not valid javascript (`,
		Script:    `Valve("valve1").close()`,
		Active:    true,
	})

	te.tick()

	assert.Empty(t, cmd.sent)
	triggers := s.Triggers()
	require.Len(t, triggers, 1)
	assert.False(t, triggers[0].Active)
}

func TestTick_ScriptErrorDeactivatesTrigger(t *testing.T) {
	te, s, cmd := newTestTriggerEvaluator(t)
	s.UpsertTrigger(model.Trigger{
		Name:      "broken-script",
		Condition: `true`,
		Script:    `throw new Error("boom")`,
		Active:    true,
	})

	te.tick()

	assert.Empty(t, cmd.sent)
	triggers := s.Triggers()
	require.Len(t, triggers, 1)
	assert.False(t, triggers[0].Active)
}

func TestEvalCondition_ReadsValveState(t *testing.T) {
	te, s, _ := newTestTriggerEvaluator(t)
	s.SetValveActual("valve1", model.ValveOpen)

	truthy, err := te.evalCondition(`Valve("valve1").is_open()`)
	require.NoError(t, err)
	assert.True(t, truthy)
}
