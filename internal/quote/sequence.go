package quote

import "sync/atomic"

// SequenceGuard assigns strictly increasing attempt numbers and decides
// whether a completed attempt is still authoritative.
//
// The latest number advances when an attempt is issued, never when one
// completes, so completion order has no influence on which result wins.
// Each coordinator owns its own guard; sequence spaces are never shared.
type SequenceGuard struct {
	latest atomic.Uint64
}

// NewSequenceGuard returns a guard whose first issued number is 1.
func NewSequenceGuard() *SequenceGuard {
	return &SequenceGuard{}
}

// Issue returns a number greater than every number issued before and
// records it as the latest. Safe for concurrent use.
func (g *SequenceGuard) Issue() uint64 {
	return g.latest.Add(1)
}

// IsAuthoritative reports whether seq is the latest issued number.
func (g *SequenceGuard) IsAuthoritative(seq uint64) bool {
	return seq != 0 && seq == g.latest.Load()
}

// Latest returns the most recently issued number, 0 before the first Issue.
func (g *SequenceGuard) Latest() uint64 {
	return g.latest.Load()
}
