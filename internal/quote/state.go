package quote

import (
	"time"

	"git.home.luguber.info/inful/pricewatch/internal/pricing"
)

// Status names the coordinator's position in its state machine.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending_debounce"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Settled reports whether s is a terminal state for the current configuration.
func (s Status) Settled() bool {
	return s == StatusSuccess || s == StatusError
}

// State is the externally observable coordinator state.
//
// IsLoading is raised when an attempt is issued or a debounced change is
// pending, and lowered only by the authoritative completion or the Idle
// reset. Result and Error are never both set.
type State struct {
	Status         Status             `json:"status"`
	Result         *pricing.Breakdown `json:"result,omitempty"`
	FormattedTotal string             `json:"formatted_total"`
	IsLoading      bool               `json:"is_loading"`
	Error          *Failure           `json:"error,omitempty"`

	// Sequence is the attempt that produced Result or Error.
	Sequence uint64 `json:"sequence,omitempty"`
	// Revision increases on every observable change.
	Revision  uint64    `json:"revision"`
	UpdatedAt time.Time `json:"updated_at"`
}

func idleState(emptyTotal string) State {
	return State{Status: StatusIdle, FormattedTotal: emptyTotal}
}

// clone returns a copy that shares nothing mutable with s.
func (s State) clone() State {
	out := s
	if s.Result != nil {
		bd := s.Result.Clone()
		out.Result = &bd
	}
	if s.Error != nil {
		f := *s.Error
		out.Error = &f
	}
	return out
}

// Trigger records why an attempt was issued.
type Trigger string

const (
	TriggerChange   Trigger = "change"
	TriggerDebounce Trigger = "debounce"
	TriggerRefetch  Trigger = "refetch"
)

// Attempt is one issued pricing computation. It is never mutated after creation.
type Attempt struct {
	Sequence      uint64
	Trigger       Trigger
	Configuration pricing.Configuration
	IssuedAt      time.Time
}
