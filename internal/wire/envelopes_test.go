package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
)

func TestDataMessageRoundTrip(t *testing.T) {
	cases := []any{
		Identity{Board: "sam-01"},
		Sam{Board: "sam-01", Points: []DataPoint{{Channel: 2, ChannelType: model.ChannelCurrentLoop, Value: 2.4}}},
		Bms{Board: "bms-01"},
		FlightHeartbeat{},
	}
	for _, c := range cases {
		b, err := EncodeDataMessage(c)
		require.NoError(t, err)
		got, err := DecodeDataMessage(b)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestControlMessageRoundTrip(t *testing.T) {
	msg := Mappings{List: []model.NodeMapping{{TextId: "PT3", BoardId: "sam-01", Channel: 2}}}
	b, err := EncodeControlMessage(msg)
	require.NoError(t, err)
	got, err := DecodeControlMessage(b)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestSamControlMessageRoundTrip(t *testing.T) {
	msg := ActuateValve{Channel: 3, Powered: true}
	b, err := EncodeSamControlMessage(msg)
	require.NoError(t, err)
	got, err := DecodeSamControlMessage(b)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestVehicleStateRoundTrip(t *testing.T) {
	vs := model.NewVehicleState()
	vs.SensorReadings["PT3"] = model.Measurement{Value: 500, Unit: model.UnitPsi}
	vs.ValveStates["valve1"] = model.CompositeValveState{Commanded: model.ValveOpen, Actual: model.ValveOpen}

	b, err := EncodeVehicleState(vs)
	require.NoError(t, err)
	got, err := DecodeVehicleState(b)
	require.NoError(t, err)
	assert.Equal(t, vs, got)
}
