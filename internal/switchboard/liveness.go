package switchboard

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
)

// Liveness tracks per-board last-heard timestamps and declares a board
// dead once it exceeds TimeTilDeath since last heard (spec §4.4). A dead
// board stays dead until its next Identity handshake, never from a bare
// Sam/Bms (spec §8's liveness-monotonicity invariant; Open Question (b)
// is resolved as "no silent rejoin", see DESIGN.md).
type Liveness struct {
	mu           sync.Mutex
	lastHeard    map[model.BoardId]time.Time
	dead         map[model.BoardId]bool
	timeTilDeath time.Duration
	tick         time.Duration
	log          zerolog.Logger

	heardCh <-chan boardHeard
	abort   func()

	aborted bool
}

func newLiveness(heardCh <-chan boardHeard, timeTilDeath, tick time.Duration, abort func(), log zerolog.Logger) *Liveness {
	return &Liveness{
		lastHeard:    make(map[model.BoardId]time.Time),
		dead:         make(map[model.BoardId]bool),
		timeTilDeath: timeTilDeath,
		tick:         tick,
		log:          log,
		heardCh:      heardCh,
		abort:        abort,
	}
}

// Run drains heard events and checks deadlines on a fixed tick until
// stop is closed.
func (lv *Liveness) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(lv.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case ev := <-lv.heardCh:
			lv.onHeard(ev)
		case <-ticker.C:
			lv.checkDeadlines()
		}
	}
}

func (lv *Liveness) onHeard(ev boardHeard) {
	lv.mu.Lock()
	defer lv.mu.Unlock()

	if lv.dead[ev.board] && !ev.handshake {
		// a dead board must re-handshake before it can be heard from
		// again; silently drop the stale refresh.
		return
	}
	if ev.handshake {
		delete(lv.dead, ev.board)
	}
	lv.lastHeard[ev.board] = ev.at
}

func (lv *Liveness) checkDeadlines() {
	lv.mu.Lock()
	now := time.Now()
	var firstDeath model.BoardId
	newlyDead := false
	for board, last := range lv.lastHeard {
		if lv.dead[board] {
			continue
		}
		if now.Sub(last) > lv.timeTilDeath {
			lv.dead[board] = true
			if !newlyDead {
				newlyDead = true
				firstDeath = board
			}
			lv.log.Error().Str("board", string(board)).Msg("board missed its liveness deadline")
		}
	}
	shouldAbort := newlyDead && !lv.aborted
	if shouldAbort {
		lv.aborted = true
	}
	lv.mu.Unlock()

	if shouldAbort {
		lv.log.Error().Str("board", string(firstDeath)).Msg("first board death this session, triggering abort")
		lv.abort()
	}
}

// IsAlive reports whether board is currently considered live. Used by the
// heartbeat to build its send list.
func (lv *Liveness) IsAlive(board model.BoardId) bool {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	_, heard := lv.lastHeard[board]
	return heard && !lv.dead[board]
}

// ResetAbortLatch allows a subsequent death to trigger another abort. The
// program state machine calls this once the in-flight abort sequence has
// completed, per spec §7's "single-abort" policy (re-entry blocked until
// completion).
func (lv *Liveness) ResetAbortLatch() {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	lv.aborted = false
}
