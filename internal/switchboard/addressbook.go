package switchboard

import (
	"net"
	"sync"

	"github.com/rayNotGlorious/flight-with-actions/internal/model"
)

// addressBook is the read-mostly BoardId -> peer UDP address map shared by
// the listener, heartbeat and commander (spec §5).
type addressBook struct {
	mu   sync.RWMutex
	byId map[model.BoardId]*net.UDPAddr
}

func newAddressBook() *addressBook {
	return &addressBook{byId: make(map[model.BoardId]*net.UDPAddr)}
}

// Lookup returns the known peer address for a board, if any.
func (a *addressBook) Lookup(board model.BoardId) (*net.UDPAddr, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	addr, ok := a.byId[board]
	return addr, ok
}

// Known reports whether board has ever completed the Identity handshake.
func (a *addressBook) Known(board model.BoardId) bool {
	_, ok := a.Lookup(board)
	return ok
}

// Set records (or overwrites) the peer address for a board.
func (a *addressBook) Set(board model.BoardId, addr *net.UDPAddr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byId[board] = addr
}

// Snapshot returns every known board id, for iteration by the heartbeat.
func (a *addressBook) Snapshot() []model.BoardId {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.BoardId, 0, len(a.byId))
	for id := range a.byId {
		out = append(out, id)
	}
	return out
}
