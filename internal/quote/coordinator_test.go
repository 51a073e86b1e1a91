package quote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pricewatch/internal/events"
	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/metrics"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
)

type calcReply struct {
	res pricing.Result
	err error
}

type calcCall struct {
	ctx   context.Context
	cfg   pricing.Configuration
	reply chan calcReply
}

func (c *calcCall) succeed(total string) {
	c.reply <- calcReply{res: pricing.Result{
		Breakdown:      pricing.Breakdown{Currency: "USD", Total: 1},
		FormattedTotal: total,
		RequestID:      "remote-" + total,
	}}
}

func (c *calcCall) fail(err error) {
	c.reply <- calcReply{err: err}
}

// fakeCalculator hands every call to the test, which decides when and how
// it completes.
type fakeCalculator struct {
	calls chan *calcCall
}

func newFakeCalculator() *fakeCalculator {
	return &fakeCalculator{calls: make(chan *calcCall, 32)}
}

func (f *fakeCalculator) CalculatePrice(ctx context.Context, cfg pricing.Configuration, _ pricing.Product) (pricing.Result, error) {
	call := &calcCall{ctx: ctx, cfg: cfg, reply: make(chan calcReply, 1)}
	f.calls <- call
	select {
	case r := <-call.reply:
		return r.res, r.err
	case <-ctx.Done():
		// A test may still reply after cancellation; prefer that reply.
		select {
		case r := <-call.reply:
			return r.res, r.err
		default:
			return pricing.Result{}, ctx.Err()
		}
	}
}

func (f *fakeCalculator) next(t *testing.T) *calcCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for remote call")
		return nil
	}
}

func (f *fakeCalculator) requireNoCall(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case call := <-f.calls:
		t.Fatalf("unexpected remote call with %+v", call.cfg)
	case <-time.After(within):
		// ok
	}
}

type harness struct {
	calc    *fakeCalculator
	coord   *Coordinator
	settled <-chan AttemptSettled
	issued  <-chan AttemptIssued
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	bus := events.NewBus()
	settled, unsubSettled := events.Subscribe[AttemptSettled](bus, 32)
	issued, unsubIssued := events.Subscribe[AttemptIssued](bus, 32)

	calc := newFakeCalculator()
	opts.Bus = bus
	coord, err := New(calc, pricing.Product{ID: "desk", Currency: "USD"}, opts)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, coord.Close())
		unsubSettled()
		unsubIssued()
		bus.Close()
	})
	return &harness{calc: calc, coord: coord, settled: settled, issued: issued}
}

func (h *harness) nextSettled(t *testing.T) AttemptSettled {
	t.Helper()
	select {
	case evt := <-h.settled:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for attempt settlement")
		return AttemptSettled{}
	}
}

func (h *harness) nextIssued(t *testing.T) AttemptIssued {
	t.Helper()
	select {
	case evt := <-h.issued:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for attempt issue")
		return AttemptIssued{}
	}
}

func (h *harness) waitFor(t *testing.T, cond func(State) bool) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	st, err := h.coord.Wait(ctx, cond)
	require.NoError(t, err, "last state: %+v", st)
	return st
}

func cfgWithQuantity(q int) *pricing.Configuration {
	return &pricing.Configuration{
		ProductID:  "desk",
		Selections: map[string]string{"size": "large"},
		AddOns:     []string{"drawer"},
		Quantity:   q,
	}
}

func isSettled(st State) bool { return st.Status.Settled() }

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, pricing.Product{}, Options{})
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	_, err = New(newFakeCalculator(), pricing.Product{}, Options{Mode: "eventual"})
	require.Error(t, err)

	_, err = New(newFakeCalculator(), pricing.Product{}, Options{Delay: -time.Second})
	require.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(newFakeCalculator(), pricing.Product{ID: "desk"}, Options{})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.Equal(t, ModeImmediate, c.Mode())
	require.NotEmpty(t, c.SessionID())
	require.Equal(t, "desk", c.Product().ID)
	require.Nil(t, c.Configuration())

	st := c.State()
	require.Equal(t, StatusIdle, st.Status)
	require.Equal(t, pricing.EmptyTotal, st.FormattedTotal)
	require.False(t, st.IsLoading)
	require.Nil(t, st.Result)
	require.Nil(t, st.Error)
}

func TestCoordinator_NewestWinsUnderReordering(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeImmediate, KeepSupersededCalls: true})

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(1)))
	a := h.calc.next(t)
	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(2)))
	b := h.calc.next(t)
	require.Equal(t, 1, a.cfg.Quantity)
	require.Equal(t, 2, b.cfg.Quantity)

	b.succeed("$20.00")
	st := h.waitFor(t, isSettled)
	require.Equal(t, StatusSuccess, st.Status)
	require.Equal(t, "$20.00", st.FormattedTotal)
	require.False(t, st.IsLoading)
	committed := h.nextSettled(t)
	require.Equal(t, metrics.OutcomeCommitted, committed.Outcome)

	a.succeed("$10.00")
	discarded := h.nextSettled(t)
	require.Equal(t, metrics.OutcomeDiscarded, discarded.Outcome)
	require.Less(t, discarded.Sequence, committed.Sequence)

	st = h.coord.State()
	require.Equal(t, "$20.00", st.FormattedTotal)
	require.Equal(t, committed.Sequence, st.Sequence)
}

func TestCoordinator_StaleCompletionDoesNotLowerLoading(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeImmediate, KeepSupersededCalls: true})

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(1)))
	a := h.calc.next(t)
	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(2)))
	b := h.calc.next(t)

	before := h.coord.State()
	a.succeed("$10.00")
	require.Equal(t, metrics.OutcomeDiscarded, h.nextSettled(t).Outcome)

	st := h.coord.State()
	require.True(t, st.IsLoading)
	require.Equal(t, StatusLoading, st.Status)
	require.Equal(t, before.Revision, st.Revision, "stale completion must not produce a revision")
	require.Nil(t, st.Result)

	b.succeed("$20.00")
	st = h.waitFor(t, isSettled)
	require.Equal(t, "$20.00", st.FormattedTotal)
}

func TestCoordinator_StaleFailureIsSwallowed(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeImmediate, KeepSupersededCalls: true})

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(1)))
	a := h.calc.next(t)
	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(2)))
	b := h.calc.next(t)

	b.succeed("$20.00")
	h.waitFor(t, isSettled)
	h.nextSettled(t)

	a.fail(errors.New("remote exploded"))
	evt := h.nextSettled(t)
	require.Equal(t, metrics.OutcomeDiscarded, evt.Outcome)
	require.Equal(t, "remote exploded", evt.Err)

	st := h.coord.State()
	require.Equal(t, StatusSuccess, st.Status)
	require.Nil(t, st.Error)
}

func TestCoordinator_AuthoritativeFailure(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeImmediate})

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(1)))
	h.calc.next(t).succeed("$10.00")
	h.waitFor(t, isSettled)

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(2)))
	h.calc.next(t).fail(ferrors.NetworkError("pricing service unreachable").Build())

	st := h.waitFor(t, func(s State) bool { return s.Status == StatusError })
	require.False(t, st.IsLoading)
	require.Nil(t, st.Result)
	require.Equal(t, pricing.EmptyTotal, st.FormattedTotal)
	require.NotNil(t, st.Error)
	require.Equal(t, CodePriceCalculationFailed, st.Error.Code)
	require.Equal(t, "pricing service unreachable", st.Error.Message)
	require.True(t, st.Error.Retryable)
	require.ErrorIs(t, st.Error, ErrPriceCalculationFailed)
}

func TestCoordinator_SuccessClearsPreviousError(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeImmediate})

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(1)))
	h.calc.next(t).fail(errors.New("boom"))
	h.waitFor(t, func(s State) bool { return s.Status == StatusError })

	require.NoError(t, h.coord.Refetch())
	st := h.coord.State()
	require.True(t, st.IsLoading)
	require.NotNil(t, st.Error, "error stays visible while the retry is in flight")

	h.calc.next(t).succeed("$10.00")
	st = h.waitFor(t, func(s State) bool { return s.Status == StatusSuccess })
	require.Nil(t, st.Error)
	require.NotNil(t, st.Result)
}

func TestCoordinator_DebounceCoalescesBurst(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeDebounced, Delay: 40 * time.Millisecond})

	for q := 1; q <= 5; q++ {
		require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(q)))
		time.Sleep(5 * time.Millisecond)
	}

	st := h.coord.State()
	require.Equal(t, StatusPending, st.Status)
	require.True(t, st.IsLoading)

	call := h.calc.next(t)
	require.Equal(t, 5, call.cfg.Quantity)
	require.True(t, h.coord.State().IsLoading)
	h.calc.requireNoCall(t, 100*time.Millisecond)

	issued := h.nextIssued(t)
	require.Equal(t, TriggerDebounce, issued.Trigger)
	require.Equal(t, pricing.Digest(*cfgWithQuantity(5)), issued.ConfigDigest)

	call.succeed("$50.00")
	st = h.waitFor(t, isSettled)
	require.Equal(t, "$50.00", st.FormattedTotal)
}

func TestCoordinator_DebounceSnapshotIntegrity(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeDebounced, Delay: 30 * time.Millisecond})

	x := cfgWithQuantity(1)
	require.NoError(t, h.coord.OnConfigurationChange(x))
	y := cfgWithQuantity(2)
	require.NoError(t, h.coord.OnConfigurationChange(y))

	// Mutating the caller's value after the change must not reach the remote.
	y.Quantity = 99
	y.Selections["size"] = "small"
	y.AddOns[0] = "lamp"

	call := h.calc.next(t)
	require.Equal(t, 2, call.cfg.Quantity)
	require.Equal(t, "large", call.cfg.Selections["size"])
	require.Equal(t, []string{"drawer"}, call.cfg.AddOns)
	h.calc.requireNoCall(t, 80*time.Millisecond)
}

func TestCoordinator_ImmediateSnapshotIsCopied(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeImmediate})

	cfg := cfgWithQuantity(3)
	require.NoError(t, h.coord.OnConfigurationChange(cfg))
	cfg.Selections["size"] = "small"

	call := h.calc.next(t)
	require.Equal(t, "large", call.cfg.Selections["size"])
	require.Equal(t, "large", h.coord.Configuration().Selections["size"])
}

func TestCoordinator_IdleResetIsSynchronous(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeImmediate, KeepSupersededCalls: true})

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(1)))
	h.calc.next(t).succeed("$10.00")
	h.waitFor(t, isSettled)
	h.nextSettled(t)

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(2)))
	pending := h.calc.next(t)

	require.NoError(t, h.coord.OnConfigurationChange(nil))
	st := h.coord.State()
	require.Equal(t, StatusIdle, st.Status)
	require.Equal(t, pricing.EmptyTotal, st.FormattedTotal)
	require.False(t, st.IsLoading)
	require.Nil(t, st.Result)
	require.Nil(t, st.Error)
	require.Nil(t, h.coord.Configuration())

	pending.succeed("$20.00")
	require.Equal(t, metrics.OutcomeDiscarded, h.nextSettled(t).Outcome)

	st = h.coord.State()
	require.Equal(t, StatusIdle, st.Status)
	require.Equal(t, pricing.EmptyTotal, st.FormattedTotal)
}

func TestCoordinator_IdleResetCancelsPendingDebounce(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeDebounced, Delay: 30 * time.Millisecond})

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(1)))
	require.NoError(t, h.coord.OnConfigurationChange(nil))

	h.calc.requireNoCall(t, 100*time.Millisecond)
	require.Equal(t, StatusIdle, h.coord.State().Status)
}

func TestCoordinator_CustomEmptyTotal(t *testing.T) {
	h := newHarness(t, Options{EmptyTotal: "0,00 €"})
	require.Equal(t, "0,00 €", h.coord.State().FormattedTotal)

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(1)))
	h.calc.next(t).fail(errors.New("nope"))
	st := h.waitFor(t, isSettled)
	require.Equal(t, "0,00 €", st.FormattedTotal)
}

func TestCoordinator_CloseCancelsPendingTimer(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	calc := newFakeCalculator()
	c, err := New(calc, pricing.Product{ID: "desk"}, Options{Mode: ModeDebounced, Delay: 30 * time.Millisecond, Bus: bus})
	require.NoError(t, err)

	require.NoError(t, c.OnConfigurationChange(cfgWithQuantity(1)))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "close is idempotent")

	calc.requireNoCall(t, 100*time.Millisecond)
	require.ErrorIs(t, c.OnConfigurationChange(cfgWithQuantity(2)), ErrCoordinatorClosed)
	require.ErrorIs(t, c.Refetch(), ErrCoordinatorClosed)

	_, err = c.Wait(t.Context(), func(State) bool { return false })
	require.ErrorIs(t, err, ErrCoordinatorClosed)
}

func TestCoordinator_CloseIgnoresInFlightCompletion(t *testing.T) {
	calc := newFakeCalculator()
	c, err := New(calc, pricing.Product{ID: "desk"}, Options{})
	require.NoError(t, err)

	require.NoError(t, c.OnConfigurationChange(cfgWithQuantity(1)))
	call := calc.next(t)
	before := c.State()
	require.NoError(t, c.Close())

	select {
	case <-call.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("in-flight context not canceled on close")
	}
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, before.Revision, c.State().Revision)
}

func TestCoordinator_RefetchSupersedes(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeImmediate, KeepSupersededCalls: true})

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(1)))
	h.calc.next(t).succeed("$10.00")
	h.waitFor(t, isSettled)
	h.nextSettled(t)

	require.NoError(t, h.coord.Refetch())
	r1 := h.calc.next(t)
	require.NoError(t, h.coord.Refetch())
	r2 := h.calc.next(t)
	require.Equal(t, 1, r2.cfg.Quantity)

	r2.fail(errors.New("remote down"))
	st := h.waitFor(t, func(s State) bool { return s.Status == StatusError })
	require.Nil(t, st.Result)
	h.nextSettled(t)

	r1.succeed("$11.00")
	require.Equal(t, metrics.OutcomeDiscarded, h.nextSettled(t).Outcome)
	st = h.coord.State()
	require.Equal(t, StatusError, st.Status)
	require.Nil(t, st.Result)
}

func TestCoordinator_RefetchWhileIdleIsNoop(t *testing.T) {
	h := newHarness(t, Options{})
	require.NoError(t, h.coord.Refetch())
	h.calc.requireNoCall(t, 50*time.Millisecond)
	require.Equal(t, StatusIdle, h.coord.State().Status)
}

func TestCoordinator_RefetchBypassesPendingDebounce(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeDebounced, Delay: 60 * time.Millisecond})

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(4)))
	require.NoError(t, h.coord.Refetch())

	call := h.calc.next(t)
	require.Equal(t, 4, call.cfg.Quantity)
	require.Equal(t, TriggerRefetch, h.nextIssued(t).Trigger)
	h.calc.requireNoCall(t, 120*time.Millisecond)
}

func TestCoordinator_DebouncedChangeSupersedesInFlight(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeDebounced, Delay: 20 * time.Millisecond, KeepSupersededCalls: true})

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(1)))
	first := h.calc.next(t)
	require.Equal(t, 1, first.cfg.Quantity)
	require.True(t, h.coord.State().IsLoading)

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(2)))
	st := h.coord.State()
	require.Equal(t, StatusPending, st.Status)
	require.True(t, st.IsLoading, "loading must stay raised while a change is pending")

	first.succeed("$10.00")
	require.Equal(t, metrics.OutcomeDiscarded, h.nextSettled(t).Outcome)
	mid := h.coord.State()
	require.True(t, mid.IsLoading)
	require.Nil(t, mid.Result)

	second := h.calc.next(t)
	require.Equal(t, 2, second.cfg.Quantity)
	require.True(t, h.coord.State().IsLoading)

	second.succeed("$20.00")
	st = h.waitFor(t, isSettled)
	require.Equal(t, "$20.00", st.FormattedTotal)
	require.False(t, st.IsLoading)
}

func TestCoordinator_LoadingNeverDropsBeforeAuthoritativeCompletion(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	states, unsubscribe := events.Subscribe[StateChanged](bus, 64)
	defer unsubscribe()

	calc := newFakeCalculator()
	c, err := New(calc, pricing.Product{ID: "desk"}, Options{
		Mode:                ModeDebounced,
		Delay:               20 * time.Millisecond,
		KeepSupersededCalls: true,
		Bus:                 bus,
	})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.OnConfigurationChange(cfgWithQuantity(1)))
	first := calc.next(t)
	require.NoError(t, c.OnConfigurationChange(cfgWithQuantity(2)))
	first.succeed("$10.00")
	calc.next(t).succeed("$20.00")

	for {
		select {
		case evt := <-states:
			if evt.State.Status.Settled() {
				require.Equal(t, "$20.00", evt.State.FormattedTotal)
				require.False(t, evt.State.IsLoading)
				return
			}
			require.True(t, evt.State.IsLoading, "revision %d (%s) lowered loading early", evt.State.Revision, evt.State.Status)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for the committed state")
		}
	}
}

func TestCoordinator_DebouncedPendingKeepsPreviousResult(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeDebounced, Delay: 20 * time.Millisecond})

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(1)))
	h.calc.next(t).succeed("$10.00")
	h.waitFor(t, isSettled)

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(2)))
	st := h.coord.State()
	require.Equal(t, StatusPending, st.Status)
	require.True(t, st.IsLoading)
	require.Equal(t, "$10.00", st.FormattedTotal)
	require.NotNil(t, st.Result)

	h.calc.next(t).succeed("$20.00")
	st = h.waitFor(t, func(s State) bool { return s.Status == StatusSuccess && s.FormattedTotal == "$20.00" })
	require.False(t, st.IsLoading)
}

func TestCoordinator_ChangeAfterFireKeepsFiredSnapshot(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeDebounced, Delay: 20 * time.Millisecond, KeepSupersededCalls: true})

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(2)))
	fired := h.calc.next(t)
	require.Equal(t, 2, fired.cfg.Quantity)

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(3)))
	require.Equal(t, 2, fired.cfg.Quantity, "a later change must not reach the fired call")

	next := h.calc.next(t)
	require.Equal(t, 3, next.cfg.Quantity)
	require.Equal(t, 2, fired.cfg.Quantity)

	first := h.nextIssued(t)
	second := h.nextIssued(t)
	require.Equal(t, pricing.Digest(*cfgWithQuantity(2)), first.ConfigDigest)
	require.Equal(t, pricing.Digest(*cfgWithQuantity(3)), second.ConfigDigest)
	require.Greater(t, second.Sequence, first.Sequence)

	fired.succeed("$20.00")
	require.Equal(t, metrics.OutcomeDiscarded, h.nextSettled(t).Outcome)
	next.succeed("$30.00")
	st := h.waitFor(t, isSettled)
	require.Equal(t, "$30.00", st.FormattedTotal)
}

func TestCoordinator_SupersededContextIsCanceled(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeImmediate})

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(1)))
	first := h.calc.next(t)
	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(2)))
	second := h.calc.next(t)

	select {
	case <-first.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("superseded call context not canceled")
	}
	require.NoError(t, second.ctx.Err())
	require.Equal(t, metrics.OutcomeDiscarded, h.nextSettled(t).Outcome)
	require.True(t, h.coord.State().IsLoading)
}

func TestCoordinator_AttemptTimeoutFails(t *testing.T) {
	h := newHarness(t, Options{Mode: ModeImmediate, AttemptTimeout: 30 * time.Millisecond})

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(1)))
	h.calc.next(t)

	st := h.waitFor(t, func(s State) bool { return s.Status == StatusError })
	require.Equal(t, "price calculation timed out", st.Error.Message)
	require.True(t, st.Error.Retryable)
}

func TestCoordinator_WaitHonoursContext(t *testing.T) {
	h := newHarness(t, Options{})
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := h.coord.Wait(ctx, func(State) bool { return false })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCoordinator_RevisionIncreases(t *testing.T) {
	h := newHarness(t, Options{})
	r0 := h.coord.State().Revision

	require.NoError(t, h.coord.OnConfigurationChange(cfgWithQuantity(1)))
	r1 := h.coord.State().Revision
	require.Greater(t, r1, r0)

	h.calc.next(t).succeed("$1.00")
	st := h.waitFor(t, isSettled)
	require.Greater(t, st.Revision, r1)
	require.False(t, st.UpdatedAt.IsZero())
}
