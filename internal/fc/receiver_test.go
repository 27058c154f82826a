package fc

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
	"github.com/rayNotGlorious/flight-with-actions/internal/wire"
)

func TestReadControlMessage_RoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	want := wire.SequenceMsg{Sequence: model.Sequence{Name: "seq1", Script: "wait_for(1*s)"}}
	go func() {
		_ = WriteControlMessage(clientConn, want)
	}()

	got, err := ReadControlMessage(serverConn, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadControlMessage_RejectsOversizedFrame(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	big := wire.Mappings{List: make([]model.NodeMapping, 100)}
	go func() {
		_ = WriteControlMessage(clientConn, big)
	}()

	_, err := ReadControlMessage(serverConn, 8)
	require.Error(t, err)
}
