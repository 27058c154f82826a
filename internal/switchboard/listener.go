// Package switchboard implements the board-facing half of the flight
// computer: the UDP listener and handshake (C2), the sensor ingest and
// unit-conversion pipeline (C3), per-board liveness tracking (C4), the
// heartbeat (C5) and the command dispatcher (C6). See spec §4.2-§4.6.
package switchboard

import (
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"

	catrate "github.com/joeycumines/go-catrate"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
	"github.com/rayNotGlorious/flight-with-actions/internal/wire"
)

// boardHeard is posted to the liveness tracker for every Identity, Sam or
// Bms datagram received from a board.
type boardHeard struct {
	board     model.BoardId
	at        time.Time
	handshake bool
}

// Listener owns the shared board-ingress UDP socket and performs the
// Identity handshake and variant demultiplexing (spec §4.2).
type Listener struct {
	conn    *net.UDPConn
	fcBoard model.BoardId
	book    *addressBook
	log     zerolog.Logger

	ingestCh  chan<- ingestBatch
	heardCh   chan<- boardHeard
	noisy     *catrate.Limiter
}

func newListener(conn *net.UDPConn, fcBoard model.BoardId, book *addressBook, log zerolog.Logger, ingestCh chan<- ingestBatch, heardCh chan<- boardHeard) *Listener {
	return &Listener{
		conn:     conn,
		fcBoard:  fcBoard,
		book:     book,
		log:      log,
		ingestCh: ingestCh,
		heardCh:  heardCh,
		noisy:    catrate.NewLimiter(map[time.Duration]int{time.Second: 1}),
	}
}

// Run reads datagrams until the socket is closed. It never returns an
// error: receive failures back off briefly and resume, per spec §4.2/§7.
func (l *Listener) Run() {
	buf := make([]byte, 64*1024)
	backoff := time.Millisecond
	const maxBackoff = 500 * time.Millisecond

	for {
		n, peer, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.log.Warn().Err(err).Msg("board socket receive failed, backing off")
			time.Sleep(backoff)
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Millisecond

		msg, err := wire.DecodeDataMessage(buf[:n])
		if err != nil {
			if _, ok := l.noisy.Allow(peer.String()); ok {
				l.log.Warn().Err(err).Stringer("peer", peer).Msg("dropping corrupt board datagram")
			}
			continue
		}

		l.dispatch(msg, peer)
	}
}

func (l *Listener) dispatch(msg any, peer *net.UDPAddr) {
	now := time.Now()
	switch v := msg.(type) {
	case wire.Identity:
		l.handleIdentity(v.Board, peer)
		l.heard(v.Board, now, true)
	case wire.Sam:
		l.heard(v.Board, now, false)
		l.ingestCh <- ingestBatch{board: v.Board, points: v.Points}
	case wire.Bms:
		l.heard(v.Board, now, false)
	case wire.FlightHeartbeat:
		// boards never send this variant to the FC; ignore defensively.
	default:
		l.log.Warn().Msg("dropping board datagram of unknown variant")
	}
}

// handleIdentity performs the handshake of spec §4.2: record the peer
// address, reply in kind, and (via heard, called by dispatch) start the
// board's liveness timer. A second Identity from an already-known peer is
// idempotent: the address book keeps its first entry, and the peer still
// gets one Identity reply per frame.
func (l *Listener) handleIdentity(board model.BoardId, peer *net.UDPAddr) {
	if l.book.Known(board) {
		l.log.Debug().Str("board", string(board)).Msg("re-handshake from already-known board, ignoring address update")
	} else {
		l.book.Set(board, peer)
	}

	reply, err := wire.EncodeDataMessage(wire.Identity{Board: l.fcBoard})
	if err != nil {
		l.log.Error().Err(err).Msg("failed to encode identity reply")
		return
	}
	if _, err := l.conn.WriteToUDP(reply, peer); err != nil {
		l.log.Warn().Err(err).Str("board", string(board)).Msg("failed to send identity reply")
	}
}

func (l *Listener) heard(board model.BoardId, at time.Time, handshake bool) {
	l.heardCh <- boardHeard{board: board, at: at, handshake: handshake}
}
