package service

// Guard serializes every point-mutating background operation: flush
// batches, ledger repair passes and bulk admin deletions. Exactly one
// holder at a time, process-wide. Acquisition never blocks; callers
// that fail to enter back off and retry (workers) or report busy
// (admin requests).
type Guard struct {
	sem chan struct{}
}

func NewGuard() *Guard {
	return &Guard{sem: make(chan struct{}, 1)}
}

// TryEnter acquires the guard without waiting. Returns false if it is
// already held.
func (g *Guard) TryEnter() bool {
	select {
	case g.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Exit releases the guard. Must be called exactly once per successful
// TryEnter, in a deferred block.
func (g *Guard) Exit() {
	<-g.sem
}
