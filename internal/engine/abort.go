package engine

import "sync"

// abortSignal is a small thread-safe cancellation flag, adapted from the
// W3C AbortController/AbortSignal shape: a single Abort() call latches the
// signal, and any number of goroutines can cheaply poll Aborted(). The
// sequence engine checks one of these at every capability call-in (spec
// §4.7); a true result means the sequence's registration has been
// superseded or cleared and the script must stop.
type abortSignal struct {
	mu      sync.RWMutex
	aborted bool
	reason  string
}

func newAbortSignal() *abortSignal {
	return &abortSignal{}
}

// Abort latches the signal. Subsequent Aborted() calls return true.
func (s *abortSignal) Abort(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
	s.reason = reason
}

// Aborted reports whether Abort has been called.
func (s *abortSignal) Aborted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aborted
}

// Reason returns the reason passed to Abort, if any.
func (s *abortSignal) Reason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// abortException is panicked across a capability call-in when the
// sequence has been cancelled; it is recovered at the top of Run, the Go
// idiomatic equivalent of the original implementation's PyErr-raising
// abort exception (original_source/src/handler.rs).
type abortException struct{ reason string }

func (e *abortException) Error() string { return "sequence aborted: " + e.reason }
