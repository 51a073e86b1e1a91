package quote

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/pricewatch/internal/events"
	"git.home.luguber.info/inful/pricewatch/internal/logfields"
	"git.home.luguber.info/inful/pricewatch/internal/metrics"
)

// LifecycleEvent is implemented by every event a Coordinator publishes.
// Subscribe to it on the bus to receive all of them in order.
type LifecycleEvent interface {
	Session() string
}

// AttemptIssued is published when an attempt is handed to the calculator.
type AttemptIssued struct {
	SessionID    string
	Sequence     uint64
	Trigger      Trigger
	ProductID    string
	ConfigDigest string
	IssuedAt     time.Time
}

// AttemptSettled is published when an attempt's completion was processed,
// whether it was committed or discarded.
type AttemptSettled struct {
	SessionID string
	Sequence  uint64
	Trigger   Trigger
	Outcome   metrics.OutcomeLabel
	Duration  time.Duration
	RequestID string
	Err       string
	SettledAt time.Time
}

// StateChanged carries every new State revision.
type StateChanged struct {
	SessionID string
	State     State
}

func (e AttemptIssued) Session() string  { return e.SessionID }
func (e AttemptSettled) Session() string { return e.SessionID }
func (e StateChanged) Session() string   { return e.SessionID }

// DrainTimeout bounds how long Close keeps delivering queued events to
// subscribers that stopped reading.
const DrainTimeout = 5 * time.Second

// notifier forwards events to the bus in enqueue order from a single
// goroutine. enqueue never blocks, so the coordinator can call it while
// holding its lock. After stop, the queue is drained before done closes.
type notifier struct {
	bus          *events.Bus
	logger       *slog.Logger
	drainTimeout time.Duration

	mu    sync.Mutex
	queue []LifecycleEvent
	wake  chan struct{}
	done  chan struct{}

	stopped context.Context
	stop    context.CancelFunc
}

func newNotifier(bus *events.Bus, logger *slog.Logger) *notifier {
	n := &notifier{
		bus:          bus,
		logger:       logger,
		drainTimeout: DrainTimeout,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	n.stopped, n.stop = context.WithCancel(context.Background())
	if bus == nil {
		close(n.done)
		return n
	}
	go n.run()
	return n
}

func (n *notifier) enqueue(evt LifecycleEvent) {
	if n.bus == nil {
		return
	}
	n.mu.Lock()
	n.queue = append(n.queue, evt)
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// close stops the notifier once everything queued so far is delivered.
func (n *notifier) close() {
	n.stop()
	<-n.done
}

func (n *notifier) take() []LifecycleEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	batch := n.queue
	n.queue = nil
	return batch
}

func (n *notifier) run() {
	defer close(n.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	context.AfterFunc(n.stopped, func() {
		time.AfterFunc(n.drainTimeout, cancel)
	})

	for {
		batch := n.take()
		if len(batch) == 0 {
			select {
			case <-n.stopped.Done():
				return
			case <-n.wake:
				continue
			}
		}
		for i, evt := range batch {
			if err := n.bus.Publish(ctx, evt); err != nil {
				if ctx.Err() != nil {
					n.logger.Warn("Dropped undelivered lifecycle events",
						slog.Int("dropped", len(batch)-i+len(n.take())))
					return
				}
				n.logger.Debug("Dropped lifecycle event", logfields.Error(err))
			}
		}
	}
}
