package switchboard

import (
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
	"github.com/rayNotGlorious/flight-with-actions/internal/wire"
)

// ErrBoardUnknown is returned by Commander.Send when no Identity
// handshake has been completed for the target board.
var ErrBoardUnknown = errors.New("switchboard: board unknown")

// Commander serializes and delivers control messages to a specific board
// (spec §4.6). A missing board or a serialization failure is returned to
// the caller, never treated as fatal.
type Commander struct {
	conn        *net.UDPConn
	book        *addressBook
	commandPort int
	bufferSize  int
	log         zerolog.Logger
}

func newCommander(conn *net.UDPConn, book *addressBook, commandPort, bufferSize int, log zerolog.Logger) *Commander {
	return &Commander{conn: conn, book: book, commandPort: commandPort, bufferSize: bufferSize, log: log}
}

// Send serializes msg and delivers it to board's command port. The
// caller decides policy on error; nothing here is logged as fatal.
func (c *Commander) Send(board model.BoardId, msg any) error {
	addr, ok := c.book.Lookup(board)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBoardUnknown, board)
	}

	buf, err := wire.EncodeSamControlMessage(msg)
	if err != nil {
		return fmt.Errorf("switchboard: encode command for %s: %w", board, err)
	}
	if len(buf) > c.bufferSize {
		return fmt.Errorf("switchboard: command for %s exceeds buffer size (%d > %d)", board, len(buf), c.bufferSize)
	}

	cmdAddr := &net.UDPAddr{IP: addr.IP, Port: c.commandPort}
	if _, err := c.conn.WriteToUDP(buf, cmdAddr); err != nil {
		c.log.Warn().Err(err).Str("board", string(board)).Msg("command send failed")
		return fmt.Errorf("switchboard: send command to %s: %w", board, err)
	}
	return nil
}
