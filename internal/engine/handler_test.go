package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
	"github.com/rayNotGlorious/flight-with-actions/internal/state"
	"github.com/rayNotGlorious/flight-with-actions/internal/wire"
)

type fakeCommander struct {
	sent []struct {
		board model.BoardId
		msg   any
	}
	err error
}

func (f *fakeCommander) Send(board model.BoardId, msg any) error {
	f.sent = append(f.sent, struct {
		board model.BoardId
		msg   any
	}{board, msg})
	return f.err
}

func TestDeviceHandler_ActuateOpen_NormallyClosed(t *testing.T) {
	s := state.New()
	s.ReplaceMappings([]model.NodeMapping{{TextId: "valve1", BoardId: "sam-01", Channel: 4, SensorType: model.SensorValve}})
	cmd := &fakeCommander{}
	h := NewDeviceHandler(s, cmd, zerolog.Nop())

	h.Actuate("valve1", model.ValveOpen)

	require.Len(t, cmd.sent, 1)
	assert.Equal(t, model.BoardId("sam-01"), cmd.sent[0].board)
	assert.Equal(t, wire.ActuateValve{Channel: 4, Powered: true}, cmd.sent[0].msg)

	v, ok := s.Valve("valve1")
	require.True(t, ok)
	assert.Equal(t, model.ValveOpen, v.Commanded)
}

func TestDeviceHandler_ActuateClose_NotNormallyClosed(t *testing.T) {
	s := state.New()
	nc := false
	s.ReplaceMappings([]model.NodeMapping{{TextId: "valve1", BoardId: "sam-01", Channel: 4, SensorType: model.SensorValve, NormallyClosed: &nc}})
	cmd := &fakeCommander{}
	h := NewDeviceHandler(s, cmd, zerolog.Nop())

	h.Actuate("valve1", model.ValveClosed)

	require.Len(t, cmd.sent, 1)
	assert.Equal(t, wire.ActuateValve{Channel: 4, Powered: true}, cmd.sent[0].msg)
}

func TestDeviceHandler_MissingMappingIsNoOp(t *testing.T) {
	s := state.New()
	cmd := &fakeCommander{}
	h := NewDeviceHandler(s, cmd, zerolog.Nop())

	h.Actuate("nonexistent", model.ValveOpen)

	assert.Empty(t, cmd.sent)
	_, ok := s.Valve("nonexistent")
	assert.False(t, ok)
}

func TestDeviceHandler_ReadSensor_DefaultsToZero(t *testing.T) {
	s := state.New()
	h := NewDeviceHandler(s, &fakeCommander{}, zerolog.Nop())
	assert.Equal(t, 0.0, h.ReadSensor("PT3"))

	s.SetSensor("PT3", model.Measurement{Value: 42})
	assert.Equal(t, 42.0, h.ReadSensor("PT3"))
}
