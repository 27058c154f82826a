// Package fc implements the flight computer's program state machine (C9,
// spec §4.9) and the server-link framed reader (C10, spec §4.10).
package fc

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/rayNotGlorious/flight-with-actions/internal/wire"
)

// ReadControlMessage reads one length-prefixed frame from conn and decodes
// it as an operator→FC control message (one of wire.Mappings,
// wire.SequenceMsg, wire.TriggerMsg). The frame is a 4-byte big-endian
// length prefix followed by that many gob-encoded bytes; frames over
// maxFrame are rejected without being fully read into memory.
func ReadControlMessage(conn net.Conn, maxFrame int) (any, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return nil, err
	}

	frameLen := binary.BigEndian.Uint32(lenBuf[:])
	if int(frameLen) > maxFrame {
		return nil, fmt.Errorf("fc: control frame of %d bytes exceeds max %d", frameLen, maxFrame)
	}

	buf := make([]byte, frameLen)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, fmt.Errorf("fc: read control frame: %w", err)
	}

	msg, err := wire.DecodeControlMessage(buf)
	if err != nil {
		return nil, fmt.Errorf("fc: decode control frame: %w", err)
	}
	return msg, nil
}

// WriteControlMessage is the receiver's write-side counterpart, used by
// tests and by any future operator-facing acknowledgement: it frames v the
// same way ReadControlMessage expects to read it.
func WriteControlMessage(conn net.Conn, v any) error {
	b, err := wire.EncodeControlMessage(v)
	if err != nil {
		return fmt.Errorf("fc: encode control message: %w", err)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := conn.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("fc: write control frame length: %w", err)
	}
	if _, err := conn.Write(b); err != nil {
		return fmt.Errorf("fc: write control frame body: %w", err)
	}
	return nil
}
