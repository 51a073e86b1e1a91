package journal

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/pricewatch/internal/events"
	"git.home.luguber.info/inful/pricewatch/internal/logfields"
	"git.home.luguber.info/inful/pricewatch/internal/quote"
)

// Recorder writes coordinator lifecycle events from a bus into a Store.
type Recorder struct {
	store  *Store
	events <-chan quote.LifecycleEvent
	unsub  func()
	logger *slog.Logger
}

// NewRecorder subscribes to bus immediately, so no event published after
// it returns is missed even before Run starts.
func NewRecorder(store *Store, bus *events.Bus, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	ch, unsub := events.Subscribe[quote.LifecycleEvent](bus, 64)
	return &Recorder{store: store, events: ch, unsub: unsub, logger: logger}
}

// Run records events until ctx is canceled or the bus is closed. Events
// already buffered when ctx ends are still written.
func (r *Recorder) Run(ctx context.Context) error {
	defer r.unsub()
	for {
		select {
		case evt, ok := <-r.events:
			if !ok {
				return nil
			}
			r.record(ctx, evt)
		case <-ctx.Done():
			r.drain()
			return nil
		}
	}
}

func (r *Recorder) drain() {
	ctx := context.Background()
	for {
		select {
		case evt, ok := <-r.events:
			if !ok {
				return
			}
			r.record(ctx, evt)
		default:
			return
		}
	}
}

func (r *Recorder) record(ctx context.Context, evt quote.LifecycleEvent) {
	var err error
	switch e := evt.(type) {
	case quote.AttemptIssued:
		err = r.store.RecordIssued(ctx, Entry{
			SessionID:    e.SessionID,
			Sequence:     e.Sequence,
			Trigger:      string(e.Trigger),
			ProductID:    e.ProductID,
			ConfigDigest: e.ConfigDigest,
			IssuedAt:     e.IssuedAt,
		})
	case quote.AttemptSettled:
		err = r.store.RecordSettled(ctx, Entry{
			SessionID: e.SessionID,
			Sequence:  e.Sequence,
			Trigger:   string(e.Trigger),
			SettledAt: e.SettledAt,
			Outcome:   string(e.Outcome),
			Duration:  e.Duration,
			RequestID: e.RequestID,
			Error:     e.Err,
		})
	default:
		// State changes are not journaled.
		return
	}
	if err != nil {
		r.logger.Warn("Failed to journal attempt", logfields.SessionID(evt.Session()), logfields.Error(err))
	}
}
