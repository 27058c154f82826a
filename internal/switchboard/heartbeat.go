package switchboard

import (
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/rayNotGlorious/flight-with-actions/internal/wire"
)

// Heartbeat periodically sends a FlightHeartbeat datagram to every
// currently-live board (spec §4.5). A send failure is fatal: it invokes
// abort, per spec §7's error table.
type Heartbeat struct {
	conn        *net.UDPConn
	book        *addressBook
	liveness    *Liveness
	period      time.Duration
	commandPort int
	abort       func()
	log         zerolog.Logger
}

func newHeartbeat(conn *net.UDPConn, book *addressBook, liveness *Liveness, period time.Duration, commandPort int, abort func(), log zerolog.Logger) *Heartbeat {
	return &Heartbeat{
		conn:        conn,
		book:        book,
		liveness:    liveness,
		period:      period,
		commandPort: commandPort,
		abort:       abort,
		log:         log,
	}
}

// Run sends heartbeats on a fixed cadence until stop is closed.
func (h *Heartbeat) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(h.period)
	defer ticker.Stop()

	payload, err := wire.EncodeDataMessage(wire.FlightHeartbeat{})
	if err != nil {
		// unreachable for a zero-field struct, but fail loudly rather
		// than silently never heartbeating.
		h.log.Error().Err(err).Msg("failed to encode heartbeat payload")
		return
	}

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.tick(payload)
		}
	}
}

func (h *Heartbeat) tick(payload []byte) {
	for _, board := range h.book.Snapshot() {
		if !h.liveness.IsAlive(board) {
			continue
		}
		addr, ok := h.book.Lookup(board)
		if !ok {
			continue
		}
		cmdAddr := &net.UDPAddr{IP: addr.IP, Port: h.commandPort}
		if _, err := h.conn.WriteToUDP(payload, cmdAddr); err != nil {
			h.log.Error().Err(err).Str("board", string(board)).Msg("heartbeat send failed, triggering abort")
			h.abort()
			return
		}
	}
}
