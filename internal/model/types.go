// Package model holds the data types shared across the flight computer:
// the board/channel identifiers, the operator-supplied mappings, the unit
// system, and the vehicle state the rest of the system reads and writes.
package model

// BoardId is the short opaque identifier a board announces itself with
// during the Identity handshake (e.g. "sam-01", "flight-01"). It is unique
// per board and stable for the lifetime of a session.
type BoardId string

// ChannelType is the physical signal class a board channel carries.
type ChannelType int

const (
	ChannelUnknown ChannelType = iota
	ChannelCurrentLoop
	ChannelDifferentialSignal
	ChannelValveVoltage
	ChannelValveCurrent
	ChannelRtd
	ChannelTc
	ChannelRailVoltage
	ChannelRailCurrent
)

func (c ChannelType) String() string {
	switch c {
	case ChannelCurrentLoop:
		return "current_loop"
	case ChannelDifferentialSignal:
		return "differential_signal"
	case ChannelValveVoltage:
		return "valve_voltage"
	case ChannelValveCurrent:
		return "valve_current"
	case ChannelRtd:
		return "rtd"
	case ChannelTc:
		return "tc"
	case ChannelRailVoltage:
		return "rail_voltage"
	case ChannelRailCurrent:
		return "rail_current"
	default:
		return "unknown"
	}
}

// SensorType is the logical reading a NodeMapping produces.
type SensorType int

const (
	SensorUnknown SensorType = iota
	SensorPt
	SensorLoadCell
	SensorRtd
	SensorTc
	SensorRailVoltage
	SensorRailCurrent
	SensorValve
)

func (s SensorType) String() string {
	switch s {
	case SensorPt:
		return "pt"
	case SensorLoadCell:
		return "load_cell"
	case SensorRtd:
		return "rtd"
	case SensorTc:
		return "tc"
	case SensorRailVoltage:
		return "rail_voltage"
	case SensorRailCurrent:
		return "rail_current"
	case SensorValve:
		return "valve"
	default:
		return "unknown"
	}
}

// Accepts reports whether a data point carrying ChannelType ct is one this
// SensorType knows how to interpret. See spec §3/§4.3's conversion table.
func (s SensorType) Accepts(ct ChannelType) bool {
	switch s {
	case SensorPt:
		return ct == ChannelCurrentLoop
	case SensorLoadCell:
		return ct == ChannelDifferentialSignal
	case SensorRtd:
		return ct == ChannelRtd
	case SensorTc:
		return ct == ChannelTc
	case SensorRailVoltage:
		return ct == ChannelRailVoltage
	case SensorRailCurrent:
		return ct == ChannelRailCurrent
	case SensorValve:
		return ct == ChannelValveVoltage || ct == ChannelValveCurrent
	default:
		return false
	}
}

// Unit is the physical unit a Measurement is expressed in.
type Unit int

const (
	UnitUnitless Unit = iota
	UnitVolts
	UnitAmps
	UnitKelvin
	UnitPsi
	UnitPounds
)

func (u Unit) String() string {
	switch u {
	case UnitVolts:
		return "V"
	case UnitAmps:
		return "A"
	case UnitKelvin:
		return "K"
	case UnitPsi:
		return "psi"
	case UnitPounds:
		return "lb"
	default:
		return ""
	}
}

// Measurement is a single scalar reading with its unit attached.
type Measurement struct {
	Value float64
	Unit  Unit
}

// ValveState is the estimated or commanded state of a valve.
type ValveState int

const (
	ValveUndetermined ValveState = iota
	ValveOpen
	ValveClosed
	ValveDisconnected
	ValveFault
)

func (v ValveState) String() string {
	switch v {
	case ValveOpen:
		return "open"
	case ValveClosed:
		return "closed"
	case ValveDisconnected:
		return "disconnected"
	case ValveFault:
		return "fault"
	default:
		return "undetermined"
	}
}

// CompositeValveState tracks operator intent (Commanded) alongside the
// estimator's read of reality (Actual).
type CompositeValveState struct {
	Commanded ValveState
	Actual    ValveState
}

// NodeMapping binds a logical text_id to a physical board channel and its
// calibration. Optional fields are pointers so "unset" is distinguishable
// from the zero value, matching the Rust source's Option<T> fields.
type NodeMapping struct {
	TextId           string
	BoardId          BoardId
	Channel          int
	ChannelType      ChannelType
	SensorType       SensorType
	Min              *float64
	Max              *float64
	CalibratedOffset *float64
	PoweredThreshold *float64
	NormallyClosed   *bool
}

// Matches reports whether this mapping describes the physical signal named
// by (board, channel) and accepts the given channel type.
func (m NodeMapping) Matches(board BoardId, channel int, ct ChannelType) bool {
	return m.BoardId == board && m.Channel == channel && m.SensorType.Accepts(ct)
}

// NormallyClosedOrDefault returns the mapping's NormallyClosed flag,
// defaulting to true when unset (original_source/src/handler.rs).
func (m NodeMapping) NormallyClosedOrDefault() bool {
	if m.NormallyClosed == nil {
		return true
	}
	return *m.NormallyClosed
}

// VehicleState is the authoritative view of the vehicle: every sensor
// reading by logical name, and every valve's composite state by name.
type VehicleState struct {
	SensorReadings map[string]Measurement
	ValveStates    map[string]CompositeValveState
}

// NewVehicleState returns an empty, ready-to-use VehicleState.
func NewVehicleState() VehicleState {
	return VehicleState{
		SensorReadings: make(map[string]Measurement),
		ValveStates:    make(map[string]CompositeValveState),
	}
}

// Clone returns a deep copy, safe to hand to a reader outside any lock.
func (v VehicleState) Clone() VehicleState {
	out := NewVehicleState()
	for k, val := range v.SensorReadings {
		out.SensorReadings[k] = val
	}
	for k, val := range v.ValveStates {
		out.ValveStates[k] = val
	}
	return out
}

// Trigger is an operator-installed condition/script pair, evaluated on a
// periodic tick while Active.
type Trigger struct {
	Name      string
	Condition string
	Script    string
	Active    bool
}

// Sequence is an operator script executed on a dedicated goroutine.
type Sequence struct {
	Name   string
	Script string
}
