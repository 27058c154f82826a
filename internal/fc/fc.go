package fc

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/rayNotGlorious/flight-with-actions/internal/config"
	"github.com/rayNotGlorious/flight-with-actions/internal/engine"
	"github.com/rayNotGlorious/flight-with-actions/internal/state"
	"github.com/rayNotGlorious/flight-with-actions/internal/switchboard"
)

// ErrInitFailed wraps the underlying error when initState fails to bind
// the board-ingress socket (spec.md §7's one true init failure).
var ErrInitFailed = errors.New("fc: initialization failed")

const (
	dialTimeout      = 2 * time.Second
	discoveryBackoff = time.Second
	readPollInterval = 200 * time.Millisecond
)

// FC is the flight computer process: the shared state plus every
// component the program state machine (C9) drives. Its exported surface
// is New, Run and Close; everything else is state for the ProgramState
// chain.
type FC struct {
	cfg config.Config
	log zerolog.Logger

	state *state.SharedState
	sb    *switchboard.Switchboard
	eng   *engine.Engine

	fwdConn *net.UDPConn

	stop    chan struct{}
	abortCh chan struct{}

	initErr error
}

// New builds an FC ready to Run. It performs no I/O.
func New(cfg config.Config, log zerolog.Logger) *FC {
	return &FC{
		cfg:     cfg,
		log:     log,
		stop:    make(chan struct{}),
		abortCh: make(chan struct{}, 1),
	}
}

// Run drives the program state machine (spec.md §4.9) until it halts,
// which only happens on an init failure; a healthy process loops through
// discovery/operator/sequence states until killed. Callers (main) should
// retry Run on ErrInitFailed up to config.InitRetries times.
func (fc *FC) Run() error {
	var st ProgramState = initState{}
	for st != nil {
		st = st.run(fc)
	}
	if fc.initErr != nil {
		return fmt.Errorf("%w: %v", ErrInitFailed, fc.initErr)
	}
	return nil
}

// Close tears down every long-lived goroutine and socket FC owns. Safe to
// call after Run returns with an init failure, or not at all if the
// process is simply killed.
func (fc *FC) Close() {
	close(fc.stop)
	if fc.sb != nil {
		_ = fc.sb.Close()
	}
	if fc.fwdConn != nil {
		_ = fc.fwdConn.Close()
	}
}

// requestAbort is the Abort hook handed to the switchboard's liveness and
// heartbeat components (spec §7: board death or a heartbeat send failure
// is fatal and must trigger the abort sequence). The channel has capacity
// 1 and the send is non-blocking, so at most one abort is ever queued
// regardless of how many components call this concurrently — the
// single-abort-in-flight invariant.
func (fc *FC) requestAbort() {
	select {
	case fc.abortCh <- struct{}{}:
	default:
	}
}

func (fc *FC) abortRequested() bool {
	select {
	case <-fc.abortCh:
		return true
	default:
		return false
	}
}
