// Package state implements the flight computer's SharedState container
// (spec §4.1): the single, process-wide home for VehicleState, the
// mapping list, the server address, triggers and active sequences. Every
// field is guarded independently; no method blocks on I/O or calls back
// into another component while holding a lock.
package state

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
)

// SequenceHandle is the Go stand-in for the Rust source's thread identity:
// an opaque, monotonically increasing token minted when a sequence is
// registered. The engine checks IsActive(handle) at every capability
// call-in to detect cancellation.
type SequenceHandle int64

// SharedState is the authoritative, concurrency-safe container described
// by spec §3's SharedState and §4.1.
type SharedState struct {
	vehicleMu sync.RWMutex
	vehicle   model.VehicleState

	mappingsMu sync.RWMutex
	mappings   []model.NodeMapping

	serverMu sync.RWMutex
	server   *net.TCPAddr

	triggersMu sync.RWMutex
	triggers   map[string]model.Trigger

	sequencesMu sync.RWMutex
	sequences   map[string]SequenceHandle

	nextHandle atomic.Int64
}

// New returns an empty, ready-to-use SharedState.
func New() *SharedState {
	return &SharedState{
		vehicle:   model.NewVehicleState(),
		triggers:  make(map[string]model.Trigger),
		sequences: make(map[string]SequenceHandle),
	}
}

// --- VehicleState ---

// Sensor returns the current reading for name, if any.
func (s *SharedState) Sensor(name string) (model.Measurement, bool) {
	s.vehicleMu.RLock()
	defer s.vehicleMu.RUnlock()
	m, ok := s.vehicle.SensorReadings[name]
	return m, ok
}

// SetSensor last-writer-wins updates the reading for name.
func (s *SharedState) SetSensor(name string, m model.Measurement) {
	s.vehicleMu.Lock()
	defer s.vehicleMu.Unlock()
	s.vehicle.SensorReadings[name] = m
}

// Valve returns the composite state for a named valve, if any.
func (s *SharedState) Valve(name string) (model.CompositeValveState, bool) {
	s.vehicleMu.RLock()
	defer s.vehicleMu.RUnlock()
	v, ok := s.vehicle.ValveStates[name]
	return v, ok
}

// SetValveActual updates the estimator-derived Actual field, creating the
// entry with Commanded=Undetermined on first sight (spec §4.3).
func (s *SharedState) SetValveActual(name string, actual model.ValveState) {
	s.vehicleMu.Lock()
	defer s.vehicleMu.Unlock()
	v := s.vehicle.ValveStates[name]
	v.Actual = actual
	s.vehicle.ValveStates[name] = v
}

// SetValveCommanded updates operator intent, e.g. from the device handler
// after it sends an ActuateValve command.
func (s *SharedState) SetValveCommanded(name string, commanded model.ValveState) {
	s.vehicleMu.Lock()
	defer s.vehicleMu.Unlock()
	v := s.vehicle.ValveStates[name]
	v.Commanded = commanded
	s.vehicle.ValveStates[name] = v
}

// VehicleSnapshot returns a deep copy of the current VehicleState, safe to
// serialize or inspect outside any lock (used by the forwarder).
func (s *SharedState) VehicleSnapshot() model.VehicleState {
	s.vehicleMu.RLock()
	defer s.vehicleMu.RUnlock()
	return s.vehicle.Clone()
}

// --- Mappings ---

// Mappings returns a copy of the current mapping list.
func (s *SharedState) Mappings() []model.NodeMapping {
	s.mappingsMu.RLock()
	defer s.mappingsMu.RUnlock()
	out := make([]model.NodeMapping, len(s.mappings))
	copy(out, s.mappings)
	return out
}

// ReplaceMappings atomically swaps the mapping list. Any single ingest
// call observes either entirely the old list or entirely the new one,
// satisfying the mapping-replacement-atomicity invariant.
func (s *SharedState) ReplaceMappings(list []model.NodeMapping) {
	cp := make([]model.NodeMapping, len(list))
	copy(cp, list)
	s.mappingsMu.Lock()
	defer s.mappingsMu.Unlock()
	s.mappings = cp
}

// --- Server address ---

// ServerAddr returns the control server's address, if discovered.
func (s *SharedState) ServerAddr() (*net.TCPAddr, bool) {
	s.serverMu.RLock()
	defer s.serverMu.RUnlock()
	return s.server, s.server != nil
}

// SetServerAddr records the control server's address after discovery.
func (s *SharedState) SetServerAddr(addr *net.TCPAddr) {
	s.serverMu.Lock()
	defer s.serverMu.Unlock()
	s.server = addr
}

// ClearServerAddr forgets the control server's address, e.g. on disconnect.
func (s *SharedState) ClearServerAddr() {
	s.SetServerAddr(nil)
}

// --- Triggers ---

// UpsertTrigger installs t, replacing any existing trigger of the same
// name.
func (s *SharedState) UpsertTrigger(t model.Trigger) {
	s.triggersMu.Lock()
	defer s.triggersMu.Unlock()
	s.triggers[t.Name] = t
}

// DeactivateTrigger marks a trigger inactive, e.g. after a script error.
func (s *SharedState) DeactivateTrigger(name string) {
	s.triggersMu.Lock()
	defer s.triggersMu.Unlock()
	if t, ok := s.triggers[name]; ok {
		t.Active = false
		s.triggers[name] = t
	}
}

// Triggers returns a copy of every installed trigger.
func (s *SharedState) Triggers() []model.Trigger {
	s.triggersMu.RLock()
	defer s.triggersMu.RUnlock()
	out := make([]model.Trigger, 0, len(s.triggers))
	for _, t := range s.triggers {
		out = append(out, t)
	}
	return out
}

// --- Sequences ---

// RegisterSequence records name as an active sequence and mints a fresh
// handle for it, replacing (and implicitly cancelling, from the engine's
// perspective) any prior registration under the same name.
func (s *SharedState) RegisterSequence(name string) SequenceHandle {
	h := SequenceHandle(s.nextHandle.Add(1))
	s.sequencesMu.Lock()
	defer s.sequencesMu.Unlock()
	s.sequences[name] = h
	return h
}

// CancelSequence removes name from the active set. Returns false if it
// wasn't active.
func (s *SharedState) CancelSequence(name string) bool {
	s.sequencesMu.Lock()
	defer s.sequencesMu.Unlock()
	if _, ok := s.sequences[name]; !ok {
		return false
	}
	delete(s.sequences, name)
	return true
}

// IsActive reports whether handle is still the live registration for its
// sequence name. The engine calls this at every capability call-in; a
// false result means the sequence has been cancelled (or superseded) and
// must abort.
func (s *SharedState) IsActive(name string, handle SequenceHandle) bool {
	s.sequencesMu.RLock()
	defer s.sequencesMu.RUnlock()
	return s.sequences[name] == handle
}

// ClearSequences removes every active sequence (used by abort) and
// returns the names that were cleared, for logging.
func (s *SharedState) ClearSequences() []string {
	s.sequencesMu.Lock()
	defer s.sequencesMu.Unlock()
	names := make([]string, 0, len(s.sequences))
	for name := range s.sequences {
		names = append(names, name)
	}
	s.sequences = make(map[string]SequenceHandle)
	return names
}
