package switchboard

import (
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
	"github.com/rayNotGlorious/flight-with-actions/internal/state"
	"github.com/rayNotGlorious/flight-with-actions/internal/telemetry"
)

// Options configures a Switchboard. The caller sets every field; Abort
// must be non-nil, since liveness and heartbeat call it without a check.
type Options struct {
	IngressPort int
	CommandPort int
	FCBoardId   model.BoardId

	HeartbeatPeriod time.Duration
	TimeTilDeath    time.Duration
	LivenessTick    time.Duration

	CommandBufferSize int

	Abort func()
	Log   zerolog.Logger
}

// Switchboard bundles the board-facing components (C2-C6) behind a single
// owner of the UDP socket shared by the listener, heartbeat and commander.
// The forwarder sends telemetry from a separate socket owned by fc.
type Switchboard struct {
	conn *net.UDPConn
	book *addressBook

	listener  *Listener
	ingest    *Ingest
	liveness  *Liveness
	heartbeat *Heartbeat
	commander *Commander

	stop chan struct{}
}

// New binds the board-ingress UDP socket and wires the switchboard's
// components together. A bind failure is an init failure per spec §7.
func New(opts Options, s *state.SharedState) (*Switchboard, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: opts.IngressPort})
	if err != nil {
		return nil, fmt.Errorf("switchboard: bind ingress port %d: %w", opts.IngressPort, err)
	}

	book := newAddressBook()
	heardCh := make(chan boardHeard, 256)
	ingestCh := make(chan ingestBatch, 256)

	listener := newListener(conn, opts.FCBoardId, book, telemetry.Component(opts.Log, "switchboard.listener"), ingestCh, heardCh)
	ingest := newIngest(s, ingestCh, telemetry.Component(opts.Log, "switchboard.ingest"))
	liveness := newLiveness(heardCh, opts.TimeTilDeath, opts.LivenessTick, opts.Abort, telemetry.Component(opts.Log, "switchboard.liveness"))
	heartbeat := newHeartbeat(conn, book, liveness, opts.HeartbeatPeriod, opts.CommandPort, opts.Abort, telemetry.Component(opts.Log, "switchboard.heartbeat"))
	commander := newCommander(conn, book, opts.CommandPort, opts.CommandBufferSize, telemetry.Component(opts.Log, "switchboard.commander"))

	return &Switchboard{
		conn:      conn,
		book:      book,
		listener:  listener,
		ingest:    ingest,
		liveness:  liveness,
		heartbeat: heartbeat,
		commander: commander,
		stop:      make(chan struct{}),
	}, nil
}

// Start spawns the switchboard's long-lived goroutines (spec §5's fixed
// thread roster: listener, liveness, heartbeat). Ingest runs inline on
// its own goroutine too, since it is driven by the listener's channel
// rather than a ticker.
func (sb *Switchboard) Start() {
	go sb.listener.Run()
	go sb.ingest.Run(sb.stop)
	go sb.liveness.Run(sb.stop)
	go sb.heartbeat.Run(sb.stop)
}

// Close tears down the shared socket and stops every goroutine started by
// Start.
func (sb *Switchboard) Close() error {
	close(sb.stop)
	return sb.conn.Close()
}

// Commander exposes C6's single operation to other components (the
// engine's device handler, primarily).
func (sb *Switchboard) Commander() *Commander { return sb.commander }

// LocalAddr returns the board-ingress socket's bound address, useful when
// IngressPort was 0 (kernel-assigned, e.g. in tests).
func (sb *Switchboard) LocalAddr() net.Addr { return sb.conn.LocalAddr() }

// ResetAbortLatch re-arms liveness's single-abort guard once an in-flight
// abort sequence has completed.
func (sb *Switchboard) ResetAbortLatch() { sb.liveness.ResetAbortLatch() }
