package engine

import (
	"github.com/rs/zerolog"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
	"github.com/rayNotGlorious/flight-with-actions/internal/state"
	"github.com/rayNotGlorious/flight-with-actions/internal/wire"
)

// Commander is the subset of switchboard.Commander the device handler
// needs; declared here to avoid an import cycle between engine and
// switchboard (engine is the consumer, switchboard the provider).
type Commander interface {
	Send(board model.BoardId, msg any) error
}

// DeviceHandler is the single chokepoint every Valve(name).open()/close()
// call routes through (spec §4.7). It resolves the named valve's mapping,
// computes electrical polarity, asks the Commander to actuate, and
// records operator intent in SharedState.
type DeviceHandler struct {
	state     *state.SharedState
	commander Commander
	log       zerolog.Logger
}

// NewDeviceHandler builds a DeviceHandler bound to the given state and
// commander.
func NewDeviceHandler(s *state.SharedState, commander Commander, log zerolog.Logger) *DeviceHandler {
	return &DeviceHandler{state: s, commander: commander, log: log}
}

// findMapping returns the NodeMapping describing the named valve, i.e.
// whose SensorType is Valve and whose TextId matches.
func (h *DeviceHandler) findMapping(name string) (model.NodeMapping, bool) {
	for _, m := range h.state.Mappings() {
		if m.TextId == name && m.SensorType == model.SensorValve {
			return m, true
		}
	}
	return model.NodeMapping{}, false
}

// Actuate drives the named valve to want (Open or Closed), per spec
// §4.7's device handler steps: resolve mapping, compute polarity, send
// ActuateValve, record commanded intent. A missing mapping is logged and
// treated as a no-op, per spec §7.
func (h *DeviceHandler) Actuate(name string, want model.ValveState) {
	mapping, ok := h.findMapping(name)
	if !ok {
		h.log.Warn().Str("valve", name).Msg("actuate: no mapping for valve, no-op")
		return
	}

	closed := want == model.ValveClosed
	powered := closed != mapping.NormallyClosedOrDefault()

	if err := h.commander.Send(mapping.BoardId, wire.ActuateValve{Channel: mapping.Channel, Powered: powered}); err != nil {
		h.log.Warn().Err(err).Str("valve", name).Msg("actuate: command send failed")
		return
	}
	h.state.SetValveCommanded(name, want)
}

// ReadSensor returns the current value of a named sensor, or 0.0 if it
// has never been observed (spec §4.7's Sensor.read).
func (h *DeviceHandler) ReadSensor(name string) float64 {
	m, ok := h.state.Sensor(name)
	if !ok {
		return 0.0
	}
	return m.Value
}

// IsOpen/IsClosed answer a sequence's Valve(name).is_open()/is_closed()
// against the Actual (electrically estimated) state, since that's the
// only ground truth available; an unmapped or never-observed valve reads
// as neither.
func (h *DeviceHandler) IsOpen(name string) bool {
	v, ok := h.state.Valve(name)
	return ok && v.Actual == model.ValveOpen
}

func (h *DeviceHandler) IsClosed(name string) bool {
	v, ok := h.state.Valve(name)
	return ok && v.Actual == model.ValveClosed
}
