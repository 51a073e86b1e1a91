package quote

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/pricewatch/internal/events"
	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/logfields"
	"git.home.luguber.info/inful/pricewatch/internal/metrics"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
)

// Mode selects how configuration changes turn into attempts.
type Mode string

const (
	// ModeImmediate issues an attempt for every change.
	ModeImmediate Mode = "immediate"
	// ModeDebounced waits for a quiet period before issuing.
	ModeDebounced Mode = "debounced"
)

// DefaultDelay is the debounce quiet period used when Options.Delay is zero.
const DefaultDelay = 300 * time.Millisecond

// Options configures a Coordinator. The zero value is an immediate
// coordinator with no metrics, no bus and the default logger.
type Options struct {
	Mode Mode
	// Delay is the debounce quiet period (ModeDebounced only).
	Delay time.Duration
	// MaxWait bounds how long a continuous burst can postpone a trigger.
	MaxWait time.Duration
	// KeepSupersededCalls leaves the context of superseded in-flight calls
	// alive. By default it is canceled; either way their completion is discarded.
	KeepSupersededCalls bool
	// AttemptTimeout bounds each remote call. Zero means no timeout.
	AttemptTimeout time.Duration
	// EmptyTotal is the formatted total while idle. Defaults to pricing.EmptyTotal.
	EmptyTotal string
	SessionID  string

	Logger   *slog.Logger
	Recorder metrics.Recorder
	Bus      *events.Bus
}

// Coordinator keeps the price state of one configuration+product session
// consistent with the most recent intent.
//
// All state transitions happen under one mutex: issuing an attempt (guard
// issue plus raising IsLoading) and validating-then-committing a completion
// can never interleave.
type Coordinator struct {
	calc     pricing.Calculator
	product  pricing.Product
	opts     Options
	guard    *SequenceGuard
	debounce *DebounceScheduler[pricing.Configuration]
	logger   *slog.Logger
	recorder metrics.Recorder
	notify   *notifier

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	state          State
	current        *pricing.Configuration
	intent         uint64
	inflightCancel context.CancelFunc
	changed        chan struct{}
	closed         bool
}

// New returns an idle coordinator pricing product through calc.
func New(calc pricing.Calculator, product pricing.Product, opts Options) (*Coordinator, error) {
	if calc == nil {
		return nil, ferrors.ValidationError("calculator is required").Build()
	}
	switch opts.Mode {
	case "":
		opts.Mode = ModeImmediate
	case ModeImmediate, ModeDebounced:
	default:
		return nil, ferrors.ValidationError("unknown coordinator mode").
			WithContext("mode", string(opts.Mode)).
			Build()
	}
	if opts.Delay < 0 || opts.MaxWait < 0 || opts.AttemptTimeout < 0 {
		return nil, ferrors.ValidationError("durations must not be negative").
			WithContext("delay", opts.Delay.String()).
			WithContext("max_wait", opts.MaxWait.String()).
			WithContext("attempt_timeout", opts.AttemptTimeout.String()).
			Build()
	}
	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}
	if opts.EmptyTotal == "" {
		opts.EmptyTotal = pricing.EmptyTotal
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}

	logger := opts.Logger.With(logfields.SessionID(opts.SessionID), logfields.ProductID(product.ID))
	ctx, cancel := context.WithCancel(context.Background())

	c := &Coordinator{
		calc:     calc,
		product:  product,
		opts:     opts,
		guard:    NewSequenceGuard(),
		debounce: NewDebounceScheduler[pricing.Configuration](opts.MaxWait),
		logger:   logger,
		recorder: opts.Recorder,
		notify:   newNotifier(opts.Bus, logger),
		ctx:      ctx,
		cancel:   cancel,
		state:    idleState(opts.EmptyTotal),
		changed:  make(chan struct{}),
	}
	c.state.UpdatedAt = time.Now()
	return c, nil
}

// SessionID identifies this coordination session in logs, events and the journal.
func (c *Coordinator) SessionID() string { return c.opts.SessionID }

// Mode reports the configured mode.
func (c *Coordinator) Mode() Mode { return c.opts.Mode }

// Product returns the product this session prices.
func (c *Coordinator) Product() pricing.Product { return c.product }

// State returns a copy of the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Configuration returns a copy of the latest configuration snapshot, or nil when idle.
func (c *Coordinator) Configuration() *pricing.Configuration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	cp := c.current.Clone()
	return &cp
}

// OnConfigurationChange records a new configuration snapshot.
//
// A nil cfg returns the coordinator to Idle synchronously: result, total,
// loading and error are cleared, a pending debounce trigger is canceled and
// any in-flight attempt is superseded. Otherwise the snapshot is copied and
// an attempt is issued now (ModeImmediate) or after the quiet period
// (ModeDebounced).
func (c *Coordinator) OnConfigurationChange(cfg *pricing.Configuration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCoordinatorClosed
	}
	c.intent++

	if cfg == nil {
		c.current = nil
		c.debounce.Cancel()
		c.supersedeLocked()
		c.setStateLocked(idleState(c.opts.EmptyTotal))
		c.logger.Debug("Configuration cleared", logfields.Status(string(StatusIdle)))
		return nil
	}

	snapshot := cfg.Clone()
	c.current = &snapshot

	if c.opts.Mode == ModeImmediate {
		c.issueLocked(snapshot.Clone(), TriggerChange)
		return nil
	}

	// A pending change is newer intent than whatever is in flight. Loading
	// stays raised until the attempt for this change settles.
	c.supersedeLocked()
	intent := c.intent
	if c.debounce.Schedule(snapshot.Clone(), c.opts.Delay, func(s pricing.Configuration) {
		c.fireDebounced(intent, s)
	}) {
		c.recorder.IncDebounceCoalesced()
	}

	st := c.state
	st.Status = StatusPending
	st.IsLoading = true
	c.setStateLocked(st)
	c.logger.Debug("Configuration change debounced",
		logfields.Delay(c.opts.Delay),
		logfields.Digest(pricing.Digest(snapshot)))
	return nil
}

// Refetch issues a fresh attempt for the current configuration, bypassing
// the debounce delay. It is a no-op while idle.
func (c *Coordinator) Refetch() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCoordinatorClosed
	}
	if c.current == nil {
		return nil
	}
	// A pending trigger would only repeat this snapshot.
	c.intent++
	c.debounce.Cancel()
	c.issueLocked(c.current.Clone(), TriggerRefetch)
	return nil
}

// Wait blocks until cond holds for the current state, ctx ends or the
// coordinator is closed.
func (c *Coordinator) Wait(ctx context.Context, cond func(State) bool) (State, error) {
	for {
		c.mu.Lock()
		st := c.state.clone()
		changed := c.changed
		closed := c.closed
		c.mu.Unlock()

		if cond(st) {
			return st, nil
		}
		if closed {
			return st, ErrCoordinatorClosed
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-changed:
		}
	}
}

// Close ends the session: the pending debounce trigger is canceled, in-flight
// calls have their context canceled and their completions are ignored.
// Lifecycle events raised before Close are delivered before it returns,
// waiting at most DrainTimeout for slow subscribers. Close is idempotent.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.debounce.Stop()
	c.inflightCancel = nil
	close(c.changed)
	c.mu.Unlock()

	c.cancel()
	c.notify.close()
	c.logger.Debug("Coordinator closed", logfields.Latest(c.guard.Latest()))
	return nil
}

func (c *Coordinator) fireDebounced(intent uint64, snapshot pricing.Configuration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The timer may have fired just before a newer change, an idle reset, a
	// refetch or Close took the lock.
	if c.closed || intent != c.intent {
		return
	}
	c.issueLocked(snapshot, TriggerDebounce)
}

// issueLocked starts a new authoritative attempt for snapshot. Issuing
// retires whatever attempt was in flight.
func (c *Coordinator) issueLocked(snapshot pricing.Configuration, trigger Trigger) {
	c.releaseInflightLocked()

	seq := c.guard.Issue()
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.opts.AttemptTimeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, c.opts.AttemptTimeout)
	} else {
		ctx, cancel = context.WithCancel(c.ctx)
	}
	c.inflightCancel = cancel

	attempt := Attempt{
		Sequence:      seq,
		Trigger:       trigger,
		Configuration: snapshot,
		IssuedAt:      time.Now(),
	}

	st := c.state
	st.Status = StatusLoading
	st.IsLoading = true
	c.setStateLocked(st)

	digest := pricing.Digest(snapshot)
	c.notify.enqueue(AttemptIssued{
		SessionID:    c.opts.SessionID,
		Sequence:     seq,
		Trigger:      trigger,
		ProductID:    c.product.ID,
		ConfigDigest: digest,
		IssuedAt:     attempt.IssuedAt,
	})
	c.recorder.IncAttemptIssued(string(trigger))
	c.recorder.AddInFlight(1)
	c.logger.Debug("Price attempt issued",
		logfields.Sequence(seq),
		logfields.Trigger(string(trigger)),
		logfields.Digest(digest))

	go c.run(ctx, cancel, attempt)
}

// supersedeLocked makes the in-flight attempt, if any, non-authoritative
// without issuing a replacement.
func (c *Coordinator) supersedeLocked() {
	if c.inflightCancel != nil {
		c.guard.Issue()
	}
	c.releaseInflightLocked()
}

// releaseInflightLocked forgets the in-flight call, canceling its context
// unless superseded calls are kept.
func (c *Coordinator) releaseInflightLocked() {
	if c.inflightCancel != nil {
		if !c.opts.KeepSupersededCalls {
			c.inflightCancel()
		}
		c.inflightCancel = nil
	}
}

func (c *Coordinator) run(ctx context.Context, cancel context.CancelFunc, attempt Attempt) {
	defer cancel()
	res, err := c.calc.CalculatePrice(ctx, attempt.Configuration, c.product)
	c.settle(attempt, res, err, time.Since(attempt.IssuedAt))
}

// settle applies a completion if, and only if, its attempt is still the
// latest issued one. A stale completion changes nothing, IsLoading included.
func (c *Coordinator) settle(attempt Attempt, res pricing.Result, err error, elapsed time.Duration) {
	c.recorder.AddInFlight(-1)

	c.mu.Lock()
	outcome := metrics.OutcomeDiscarded
	if !c.closed && c.guard.IsAuthoritative(attempt.Sequence) {
		st := c.state
		st.IsLoading = false
		st.Sequence = attempt.Sequence
		if err != nil {
			outcome = metrics.OutcomeFailed
			st.Status = StatusError
			st.Result = nil
			st.FormattedTotal = c.opts.EmptyTotal
			st.Error = newFailure(err)
		} else {
			outcome = metrics.OutcomeCommitted
			bd := res.Breakdown.Clone()
			st.Status = StatusSuccess
			st.Result = &bd
			st.FormattedTotal = res.FormattedTotal
			st.Error = nil
		}
		c.inflightCancel = nil
		c.setStateLocked(st)
	}

	settled := AttemptSettled{
		SessionID: c.opts.SessionID,
		Sequence:  attempt.Sequence,
		Trigger:   attempt.Trigger,
		Outcome:   outcome,
		Duration:  elapsed,
		RequestID: res.RequestID,
		SettledAt: time.Now(),
	}
	if err != nil {
		settled.Err = err.Error()
	}
	c.notify.enqueue(settled)
	latest := c.guard.Latest()
	c.mu.Unlock()

	c.recorder.IncAttemptSettled(outcome)
	c.recorder.ObserveAttemptDuration(outcome, elapsed)

	attrs := []any{
		logfields.Sequence(attempt.Sequence),
		logfields.Latest(latest),
		logfields.Outcome(string(outcome)),
		logfields.Duration(elapsed),
	}
	switch {
	case outcome == metrics.OutcomeFailed:
		c.logger.Warn("Price calculation failed", append(attrs, logfields.Error(err))...)
	case outcome == metrics.OutcomeDiscarded && err != nil:
		c.logger.Debug("Discarded stale price failure", append(attrs, logfields.Error(err))...)
	case outcome == metrics.OutcomeDiscarded:
		c.logger.Debug("Discarded stale price result", attrs...)
	default:
		c.logger.Debug("Price committed", append(attrs, logfields.RequestID(res.RequestID))...)
	}
}

// setStateLocked publishes st as the next revision and wakes waiters.
func (c *Coordinator) setStateLocked(st State) {
	st.Revision = c.state.Revision + 1
	st.UpdatedAt = time.Now()
	c.state = st

	close(c.changed)
	c.changed = make(chan struct{})

	c.notify.enqueue(StateChanged{SessionID: c.opts.SessionID, State: st.clone()})
}
