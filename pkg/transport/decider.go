package transport

import (
	"sync"
)

// Decider accumulates votes on whether a read error should tear down
// the connection. Voters are registered once during handler
// construction; a decision passes only when every voter agrees to
// deviate from the default.
//
// This mirrors how a handler, its driver glue and host integration can
// each veto a disconnect (e.g. the host knows the remote session is
// merely suspended).
type Decider struct {
	defaultDecision bool

	mu     sync.RWMutex
	voters []func(err error) bool
}

// NewDecider creates a decider with the given default decision, kept
// whenever any voter dissents.
func NewDecider(defaultDecision bool) *Decider {
	return &Decider{defaultDecision: defaultDecision}
}

// Register adds a voter. Voters run in registration order.
func (d *Decider) Register(voter func(err error) bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.voters = append(d.voters, voter)
}

// Decide returns the non-default decision only when every registered
// voter votes for it; any single dissent keeps the default. Unanimity
// among zero voters holds vacuously, so with nobody registered the
// non-default decision passes and a dead peer tears the connection
// down instead of leaving it dangling.
func (d *Decider) Decide(err error) bool {
	d.mu.RLock()
	voters := d.voters
	d.mu.RUnlock()

	for _, voter := range voters {
		if voter(err) == d.defaultDecision {
			return d.defaultDecision
		}
	}
	return !d.defaultDecision
}
