// Package wire defines the tagged-union envelopes exchanged with boards
// (UDP) and the control server (TCP), and the codec used to (de)serialize
// them. See spec §6 and §5 (SPEC_FULL) for the protocol definition.
package wire

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
)

func init() {
	gob.Register(Identity{})
	gob.Register(Sam{})
	gob.Register(Bms{})
	gob.Register(FlightHeartbeat{})
	gob.Register(Mappings{})
	gob.Register(SequenceMsg{})
	gob.Register(TriggerMsg{})
	gob.Register(ActuateValve{})
}

// DataPoint is one raw channel sample reported by a board in a Sam message.
type DataPoint struct {
	Channel     int
	ChannelType model.ChannelType
	Value       float64
}

// DataMessage, the tagged union boards send to the FC, is modelled as the
// four variant types Identity, Sam, Bms and FlightHeartbeat; Decode
// returns one of them behind an interface, and callers dispatch on it via
// a type switch.
type (
	Identity        struct{ Board model.BoardId }
	Sam             struct {
		Board  model.BoardId
		Points []DataPoint
	}
	Bms             struct{ Board model.BoardId }
	FlightHeartbeat struct{}
)

// FlightControlMessage is the tagged union the operator sends over the
// server link.
type (
	Mappings    struct{ List []model.NodeMapping }
	SequenceMsg struct{ Sequence model.Sequence }
	TriggerMsg  struct{ Trigger model.Trigger }
)

// SamControlMessage is the tagged union the FC sends to a board.
type ActuateValve struct {
	Channel int
	Powered bool
}

// EncodeDataMessage serializes a board→FC datagram variant.
func EncodeDataMessage(v any) ([]byte, error) {
	return encodeAny(v)
}

// DecodeDataMessage deserializes a board→FC datagram into its variant
// value (one of Identity, Sam, Bms, FlightHeartbeat).
func DecodeDataMessage(b []byte) (any, error) {
	return decodeAny(b)
}

// EncodeControlMessage serializes an operator→FC control message variant.
func EncodeControlMessage(v any) ([]byte, error) {
	return encodeAny(v)
}

// DecodeControlMessage deserializes an operator→FC control message into
// its variant value (one of Mappings, SequenceMsg, TriggerMsg).
func DecodeControlMessage(b []byte) (any, error) {
	return decodeAny(b)
}

// EncodeSamControlMessage serializes an FC→board control message.
func EncodeSamControlMessage(v any) ([]byte, error) {
	return encodeAny(v)
}

// DecodeSamControlMessage deserializes an FC→board control message.
func DecodeSamControlMessage(b []byte) (any, error) {
	return decodeAny(b)
}

// EncodeVehicleState serializes a telemetry snapshot.
func EncodeVehicleState(v model.VehicleState) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("wire: encode vehicle state: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeVehicleState deserializes a telemetry snapshot.
func DecodeVehicleState(b []byte) (model.VehicleState, error) {
	var v model.VehicleState
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
		return model.VehicleState{}, fmt.Errorf("wire: decode vehicle state: %w", err)
	}
	return v, nil
}

func encodeAny(v any) ([]byte, error) {
	var buf bytes.Buffer
	// v's concrete type must have been gob.Register'd so the tag travels
	// with the bytes and Decode can reconstruct it behind the interface.
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeAny(b []byte) (any, error) {
	var v any
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
		return nil, fmt.Errorf("wire: decode: %w", err)
	}
	return v, nil
}
