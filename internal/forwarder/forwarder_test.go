package forwarder

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
	"github.com/rayNotGlorious/flight-with-actions/internal/state"
	"github.com/rayNotGlorious/flight-with-actions/internal/wire"
)

func TestForwarder_SendsSnapshotOnlyWhenServerKnown(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer serverConn.Close()

	senderConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer senderConn.Close()

	s := state.New()
	telemetryPort := serverConn.LocalAddr().(*net.UDPAddr).Port
	f := New(senderConn, s, 5*time.Millisecond, telemetryPort, zerolog.Nop())

	stop := make(chan struct{})
	go f.Run(stop)
	defer close(stop)

	// no server address known yet: nothing should arrive.
	require.NoError(t, serverConn.SetReadDeadline(time.Now().Add(30*time.Millisecond)))
	buf := make([]byte, 4096)
	_, _, err = serverConn.ReadFromUDP(buf)
	require.Error(t, err, "expected no telemetry before server discovery")

	s.SetSensor("PT3", model.Measurement{Value: 500, Unit: model.UnitPsi})
	s.SetServerAddr(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: telemetryPort})

	require.NoError(t, serverConn.SetReadDeadline(time.Now().Add(time.Second)))
	n, _, err := serverConn.ReadFromUDP(buf)
	require.NoError(t, err)

	got, err := wire.DecodeVehicleState(buf[:n])
	require.NoError(t, err)
	require.Equal(t, 500.0, got.SensorReadings["PT3"].Value)
}
