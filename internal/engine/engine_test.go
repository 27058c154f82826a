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

func newTestEngine(t *testing.T) (*Engine, *state.SharedState, *fakeCommander) {
	t.Helper()
	s := state.New()
	s.ReplaceMappings([]model.NodeMapping{{TextId: "valve1", BoardId: "sam-01", Channel: 1, SensorType: model.SensorValve}})
	cmd := &fakeCommander{}
	h := NewDeviceHandler(s, cmd, zerolog.Nop())
	e := New(s, h, zerolog.Nop())
	e.pollInterval = time.Millisecond
	return e, s, cmd
}

func TestRunSequence_ValveOpenSetsCommanded(t *testing.T) {
	e, s, cmd := newTestEngine(t)
	handle := s.RegisterSequence("seq1")

	err := e.RunSequence("seq1", handle, `Valve("valve1").open()`)
	require.NoError(t, err)

	require.Len(t, cmd.sent, 1)
	v, ok := s.Valve("valve1")
	require.True(t, ok)
	assert.Equal(t, model.ValveOpen, v.Commanded)
}

func TestRunSequence_SensorReadReturnsCurrentValue(t *testing.T) {
	e, s, _ := newTestEngine(t)
	s.SetSensor("PT3", model.Measurement{Value: 123})
	handle := s.RegisterSequence("seq1")

	// script error surfaces if the read is wrong, via a thrown exception.
	err := e.RunSequence("seq1", handle, `if (Sensor.read("PT3") !== 123) { throw new Error("bad read") }`)
	assert.NoError(t, err)
}

func TestRunSequence_CancelledBeforeValveOpen_NeverActuates(t *testing.T) {
	e, s, cmd := newTestEngine(t)
	handle := s.RegisterSequence("seq1")

	done := make(chan error, 1)
	go func() {
		done <- e.RunSequence("seq1", handle, `wait_for(10*s); Valve("valve1").open()`)
	}()

	// give the sequence time to enter wait_for, then cancel it.
	time.Sleep(5 * time.Millisecond)
	s.CancelSequence("seq1")

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sequence did not observe cancellation")
	}

	assert.Empty(t, cmd.sent, "valve1 must never receive an actuate command once cancelled")
}

func TestRunSequence_WaitUntilRespectsTimeout(t *testing.T) {
	e, s, _ := newTestEngine(t)
	handle := s.RegisterSequence("seq1")
	start := time.Now()
	err := e.RunSequence("seq1", handle, `wait_until(function() { return false }, 0.005, 0.02)`)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRunSequence_AbortClosesEveryValve(t *testing.T) {
	e, s, cmd := newTestEngine(t)
	s.SetValveActual("valve1", model.ValveOpen)
	handle := s.RegisterSequence("abort")

	err := e.RunSequence("abort", handle, `abort()`)
	require.NoError(t, err)

	require.Len(t, cmd.sent, 1)
	v, ok := s.Valve("valve1")
	require.True(t, ok)
	assert.Equal(t, model.ValveClosed, v.Commanded)
}

func TestRunSequence_ScriptExceptionReturnsError(t *testing.T) {
	e, s, _ := newTestEngine(t)
	handle := s.RegisterSequence("seq1")
	err := e.RunSequence("seq1", handle, `throw new Error("boom")`)
	assert.Error(t, err)
}
