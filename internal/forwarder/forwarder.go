// Package forwarder implements the telemetry forwarder (C8, spec §4.8): a
// periodic snapshot-and-send of the vehicle state to the control server,
// with no retry or backpressure — the next tick supersedes whatever the
// last one failed to deliver.
package forwarder

import (
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/rayNotGlorious/flight-with-actions/internal/state"
	"github.com/rayNotGlorious/flight-with-actions/internal/wire"
)

// Forwarder owns the UDP socket used to send telemetry snapshots to the
// control server's TELEMETRY_PORT. Only the IP of the server address
// discovered by C9 (spec §4.9) is used; telemetryPort is the destination
// port for each send, whatever port the stored address carries.
type Forwarder struct {
	conn          *net.UDPConn
	state         *state.SharedState
	period        time.Duration
	telemetryPort int
	log           zerolog.Logger
}

// New builds a Forwarder. conn should be an unconnected UDP socket; New
// does not take ownership of closing it.
func New(conn *net.UDPConn, s *state.SharedState, period time.Duration, telemetryPort int, log zerolog.Logger) *Forwarder {
	return &Forwarder{conn: conn, state: s, period: period, telemetryPort: telemetryPort, log: log}
}

// Run sends a telemetry snapshot every period, for as long as a server
// address is known, until stop is closed. A tick with no known server
// address is silently skipped (spec §4.8: discovery precedes forwarding).
func (f *Forwarder) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(f.period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			f.tick()
		}
	}
}

func (f *Forwarder) tick() {
	peer, ok := f.state.ServerAddr()
	if !ok {
		return
	}

	snapshot := f.state.VehicleSnapshot()
	payload, err := wire.EncodeVehicleState(snapshot)
	if err != nil {
		f.log.Error().Err(err).Msg("forwarder: encode vehicle state failed")
		return
	}

	addr := &net.UDPAddr{IP: peer.IP, Port: f.telemetryPort}
	if _, err := f.conn.WriteToUDP(payload, addr); err != nil {
		f.log.Warn().Err(err).Msg("forwarder: send failed, next tick supersedes")
	}
}
