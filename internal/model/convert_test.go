package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestConvertReading_Pt(t *testing.T) {
	m := NodeMapping{
		TextId:      "PT3",
		SensorType:  SensorPt,
		ChannelType: ChannelCurrentLoop,
		Min:         f(0),
		Max:         f(1000),
	}
	got, ok := ConvertReading(m, ChannelCurrentLoop, 2.4)
	require.True(t, ok)
	assert.InDelta(t, 500.0, got.Value, 1e-9)
	assert.Equal(t, UnitPsi, got.Unit)
}

func TestConvertReading_PtUncalibrated(t *testing.T) {
	m := NodeMapping{SensorType: SensorPt, ChannelType: ChannelCurrentLoop}
	got, ok := ConvertReading(m, ChannelCurrentLoop, 3.3)
	require.True(t, ok)
	assert.Equal(t, Measurement{Value: 3.3, Unit: UnitVolts}, got)
}

func TestConvertReading_LoadCell(t *testing.T) {
	m := NodeMapping{SensorType: SensorLoadCell, ChannelType: ChannelDifferentialSignal, Min: f(0), Max: f(3000)}
	got, ok := ConvertReading(m, ChannelDifferentialSignal, 0.0)
	require.True(t, ok)
	assert.Equal(t, UnitPounds, got.Unit)
	assert.InDelta(t, (3000.0-0.0)/0.03*(0.0+0.015)+0.0, got.Value, 1e-9)
}

func TestConvertReading_RailVoltageCurrent(t *testing.T) {
	v, ok := ConvertReading(NodeMapping{SensorType: SensorRailVoltage}, ChannelRailVoltage, 28.0)
	require.True(t, ok)
	assert.Equal(t, Measurement{28.0, UnitVolts}, v)

	a, ok := ConvertReading(NodeMapping{SensorType: SensorRailCurrent}, ChannelRailCurrent, 1.5)
	require.True(t, ok)
	assert.Equal(t, Measurement{1.5, UnitAmps}, a)
}

func TestConvertReading_RtdTc(t *testing.T) {
	for _, st := range []SensorType{SensorRtd, SensorTc} {
		ctForSensor := map[SensorType]ChannelType{SensorRtd: ChannelRtd, SensorTc: ChannelTc}[st]
		got, ok := ConvertReading(NodeMapping{SensorType: st}, ctForSensor, 300.0)
		require.True(t, ok)
		assert.Equal(t, Measurement{300.0, UnitKelvin}, got)
	}
}

func TestConvertReading_ValveFollowsDataPointChannelType(t *testing.T) {
	// a single valve mapping's ChannelType field is a secondary detail;
	// the unit must follow the incoming data point, since the same valve
	// reports both voltage and current samples over its lifetime.
	m := NodeMapping{SensorType: SensorValve, ChannelType: ChannelValveVoltage}

	voltage, ok := ConvertReading(m, ChannelValveVoltage, 24.0)
	require.True(t, ok)
	assert.Equal(t, Measurement{24.0, UnitVolts}, voltage)

	current, ok := ConvertReading(m, ChannelValveCurrent, 0.8)
	require.True(t, ok)
	assert.Equal(t, Measurement{0.8, UnitAmps}, current)
}

func TestEstimateValveState_NormallyClosed(t *testing.T) {
	threshold := 0.5
	assert.Equal(t, ValveClosed, EstimateValveState(0, 0.0, &threshold, true))
	assert.Equal(t, ValveOpen, EstimateValveState(24, 0.8, &threshold, true))
}

func TestEstimateValveState_NotNormallyClosed(t *testing.T) {
	threshold := 0.5
	assert.Equal(t, ValveOpen, EstimateValveState(0, 0.0, &threshold, false))
	assert.Equal(t, ValveClosed, EstimateValveState(24, 0.8, &threshold, false))
}

func TestEstimateValveState_NoThresholdIsFault(t *testing.T) {
	assert.Equal(t, ValveFault, EstimateValveState(24, 1.0, nil, true))
}

func TestEstimateValveState_DisconnectedAndFaultPassThroughSwap(t *testing.T) {
	threshold := 0.5
	// current under threshold, voltage high -> disconnected, regardless of polarity
	assert.Equal(t, ValveDisconnected, EstimateValveState(24, 0.0, &threshold, true))
	assert.Equal(t, ValveDisconnected, EstimateValveState(24, 0.0, &threshold, false))
	// current over threshold, voltage low -> fault, regardless of polarity
	assert.Equal(t, ValveFault, EstimateValveState(10, 1.0, &threshold, true))
	assert.Equal(t, ValveFault, EstimateValveState(10, 1.0, &threshold, false))
}
