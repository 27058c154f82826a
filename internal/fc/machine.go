package fc

import (
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/rayNotGlorious/flight-with-actions/internal/engine"
	"github.com/rayNotGlorious/flight-with-actions/internal/forwarder"
	"github.com/rayNotGlorious/flight-with-actions/internal/model"
	"github.com/rayNotGlorious/flight-with-actions/internal/state"
	"github.com/rayNotGlorious/flight-with-actions/internal/switchboard"
	"github.com/rayNotGlorious/flight-with-actions/internal/telemetry"
	"github.com/rayNotGlorious/flight-with-actions/internal/wire"
)

func forwarderFor(fc *FC, log zerolog.Logger) *forwarder.Forwarder {
	return forwarder.New(fc.fwdConn, fc.state, fc.cfg.ForwarderPeriod, fc.cfg.TelemetryPort, log)
}

// ProgramState is the flight computer's program state (spec.md §4.9 /
// SPEC_FULL.md §13): an interface with one struct per state, each
// carrying only the data its transitions need, driven by `st =
// st.run(fc)` until nil.
type ProgramState interface {
	run(fc *FC) ProgramState
}

// initState builds SharedState and every long-lived component (C2-C6,
// the trigger evaluator), then installs the device handler. A bind
// failure here is the one true init failure (spec.md §7).
type initState struct{}

func (initState) run(fc *FC) ProgramState {
	fc.state = state.New()

	opts := switchboard.Options{
		IngressPort:       fc.cfg.BoardIngressPort,
		CommandPort:       fc.cfg.BoardCommandPort,
		FCBoardId:         model.BoardId(fc.cfg.FCBoardId),
		HeartbeatPeriod:   fc.cfg.HeartbeatPeriod,
		TimeTilDeath:      fc.cfg.TimeTilDeath,
		LivenessTick:      fc.cfg.LivenessTick,
		CommandBufferSize: fc.cfg.CommandBufferSize,
		Abort:             fc.requestAbort,
		Log:               fc.log,
	}

	sb, err := switchboard.New(opts, fc.state)
	if err != nil {
		fc.initErr = err
		return nil
	}
	sb.Start()
	fc.sb = sb

	handlerLog := telemetry.Component(fc.log, "engine.handler")
	handler := engine.NewDeviceHandler(fc.state, sb.Commander(), handlerLog)

	engineLog := telemetry.Component(fc.log, "engine")
	fc.eng = engine.New(fc.state, handler, engineLog)

	triggersLog := telemetry.Component(fc.log, "engine.triggers")
	triggers := engine.NewTriggerEvaluator(fc.state, fc.eng, fc.cfg.TriggerPeriod, triggersLog)
	go triggers.Run(fc.stop)

	return serverDiscoveryState{}
}

// serverDiscoveryState dials each configured hostname in turn; the first
// to accept records the peer (at TELEMETRY_PORT, not the dialed
// SERVO_PORT) and starts the forwarder. Exhaustion retries from the top
// after a short sleep rather than transitioning anywhere else.
type serverDiscoveryState struct{}

func (serverDiscoveryState) run(fc *FC) ProgramState {
	log := telemetry.Component(fc.log, "fc.discovery")

	if fc.abortRequested() {
		return abortState{}
	}

	for _, host := range fc.cfg.ServerHostnames {
		addr := net.JoinHostPort(host, strconv.Itoa(fc.cfg.ServoPort))
		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err != nil {
			log.Warn().Err(err).Str("host", host).Msg("server discovery: dial failed")
			continue
		}

		peer, ok := conn.RemoteAddr().(*net.TCPAddr)
		if !ok {
			_ = conn.Close()
			continue
		}
		fc.state.SetServerAddr(&net.TCPAddr{IP: peer.IP, Port: fc.cfg.TelemetryPort})

		if fc.fwdConn == nil {
			fwdConn, err := net.ListenUDP("udp", &net.UDPAddr{})
			if err != nil {
				log.Error().Err(err).Msg("server discovery: forwarder socket failed")
				_ = conn.Close()
				continue
			}
			fc.fwdConn = fwdConn
		}
		fwdLog := telemetry.Component(fc.log, "forwarder")
		fwd := forwarderFor(fc, fwdLog)
		go fwd.Run(fc.stop)

		log.Info().Str("host", host).Msg("server discovered")
		return waitForOperatorState{conn: conn}
	}

	log.Warn().Msg("server discovery exhausted, retrying")
	time.Sleep(discoveryBackoff)
	return serverDiscoveryState{}
}

// waitForOperatorState reads and dispatches control messages from the
// server link until disconnected or an abort is requested. It wakes
// periodically (rather than blocking indefinitely on Read) so a queued
// abort is never stuck behind operator silence.
type waitForOperatorState struct {
	conn net.Conn
}

func (s waitForOperatorState) run(fc *FC) ProgramState {
	log := telemetry.Component(fc.log, "fc.operator")

	for {
		if fc.abortRequested() {
			_ = s.conn.Close()
			return abortState{}
		}

		_ = s.conn.SetReadDeadline(time.Now().Add(readPollInterval))
		msg, err := ReadControlMessage(s.conn, fc.cfg.MaxControlFrame)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				log.Info().Msg("server link closed")
			} else {
				log.Warn().Err(err).Msg("server link read failed")
			}
			_ = s.conn.Close()
			return serverDiscoveryState{}
		}

		switch m := msg.(type) {
		case wire.Mappings:
			fc.state.ReplaceMappings(m.List)
			log.Info().Int("count", len(m.List)).Msg("mappings replaced")
		case wire.TriggerMsg:
			fc.state.UpsertTrigger(m.Trigger)
			log.Info().Str("trigger", m.Trigger.Name).Msg("trigger installed")
		case wire.SequenceMsg:
			return runSequenceState{seq: m.Sequence, conn: s.conn}
		default:
			log.Warn().Msg("unrecognized control message, ignoring")
		}
	}
}

// runSequenceState launches seq. A non-nil conn means this is an operator
// sequence: it runs on its own goroutine and the state machine returns
// immediately to waiting for the next message. A nil conn means this is
// the abort sequence: every active sequence is cancelled first, then the
// abort script runs synchronously on this goroutine before returning to
// discovery.
type runSequenceState struct {
	seq  model.Sequence
	conn net.Conn
}

func (s runSequenceState) run(fc *FC) ProgramState {
	log := fc.log.With().Str("sequence", s.seq.Name).Logger()

	if s.conn != nil {
		handle := fc.state.RegisterSequence(s.seq.Name)
		go func() {
			if err := fc.eng.RunSequence(s.seq.Name, handle, s.seq.Script); err != nil {
				log.Error().Err(err).Msg("sequence failed")
			}
		}()
		return waitForOperatorState{conn: s.conn}
	}

	cleared := fc.state.ClearSequences()
	log.Warn().Strs("cancelled", cleared).Msg("abort: cancelling in-flight sequences")

	handle := fc.state.RegisterSequence(s.seq.Name)
	if err := fc.eng.RunSequence(s.seq.Name, handle, s.seq.Script); err != nil {
		log.Error().Err(err).Msg("abort sequence failed")
	}
	fc.sb.ResetAbortLatch()

	return serverDiscoveryState{}
}

// abortState is the trivial transition into the distinguished abort
// sequence (spec.md §4.9).
type abortState struct{}

func (abortState) run(fc *FC) ProgramState {
	return runSequenceState{seq: model.Sequence{Name: "abort", Script: "abort()"}, conn: nil}
}
