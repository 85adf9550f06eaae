package peernode

import "sync"

// State is one of the peer's four lifecycle states (spec.md §3).
type State int

const (
	StateIdle State = iota
	StateMining
	StateWaitingForChain
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateMining:
		return "MINING"
	case StateWaitingForChain:
		return "WAITING_FOR_CHAIN"
	case StateShuttingDown:
		return "SHUTTING_DOWN"
	default:
		return "UNKNOWN"
	}
}

// stateHolder guards the peer state variable behind its own mutex, per
// spec.md §5's named state_lock. Lock ordering throughout this package
// is state_lock -> chainLock -> txnLock; this type is never held while
// acquiring either of the others.
type stateHolder struct {
	mu sync.Mutex
	v  State
}

func (h *stateHolder) set(s State) {
	h.mu.Lock()
	h.v = s
	h.mu.Unlock()
}

func (h *stateHolder) get() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.v
}
