// Package events provides a small typed in-process bus used to fan out
// coordinator lifecycle events to observers (journal, CLI printers, status
// streams). It is not durable; internal/journal is the durable record.
package events

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
)

// ErrBusClosed is returned by Publish after Close.
var ErrBusClosed = ferrors.RuntimeError("event bus is closed").Build()

// Bus delivers published values to subscribers registered for their type.
//
// Publish blocks until every blocking subscriber accepted the event or the
// context is canceled. DropOldest subscribers never block it. Close closes
// all subscription channels.
type Bus struct {
	mu        sync.RWMutex
	subs      map[reflect.Type]map[uint64]*subscriber
	nextID    atomic.Uint64
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

type subscriber struct {
	deliver func(ctx context.Context, evt any) error
	close   func()
}

// Option configures a subscription.
type Option func(*subscription)

type subscription struct {
	dropOldest bool
}

// DropOldest makes a full subscription discard its oldest buffered event to
// make room for the new one. The subscriber sees the latest events and
// publishers are never held up by it. Dropped events are counted by
// Bus.Dropped.
func DropOldest() Option {
	return func(s *subscription) { s.dropOldest = true }
}

// NewBus returns an empty, open bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[reflect.Type]map[uint64]*subscriber)}
}

// Dropped reports how many events DropOldest subscriptions discarded.
func (b *Bus) Dropped() uint64 {
	if b == nil {
		return 0
	}
	return b.dropped.Load()
}

// Subscribe registers a subscription for events of type T and returns the
// receive channel plus an unsubscribe func.
//
// If T is an interface, every published event implementing T is delivered.
// For a concrete T, only exact type matches are delivered. A DropOldest
// subscription always gets a buffer of at least one.
func Subscribe[T any](b *Bus, buffer int, opts ...Option) (<-chan T, func()) {
	var cfg subscription
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.dropOldest && buffer < 1 {
		buffer = 1
	}

	eventType := reflect.TypeFor[T]()
	ch := make(chan T, buffer)

	// quit releases a blocked delivery so close never races a send.
	var (
		mu       sync.Mutex
		done     bool
		quit     = make(chan struct{})
		quitOnce sync.Once
	)
	closeCh := func() {
		quitOnce.Do(func() { close(quit) })
		mu.Lock()
		defer mu.Unlock()
		if !done {
			done = true
			close(ch)
		}
	}

	if b.closed.Load() {
		closeCh()
		return ch, func() {}
	}

	id := b.nextID.Add(1)
	sub := &subscriber{
		deliver: func(ctx context.Context, evt any) error {
			v, ok := evt.(T)
			if !ok {
				return ferrors.InternalError("event type mismatch").
					WithContext("expected", eventType.String()).
					WithContext("actual", reflect.TypeOf(evt).String()).
					Build()
			}

			mu.Lock()
			defer mu.Unlock()
			if done {
				return nil
			}
			if cfg.dropOldest {
				for {
					select {
					case ch <- v:
						return nil
					default:
					}
					select {
					case <-ch:
						b.dropped.Add(1)
					default:
					}
				}
			}
			select {
			case ch <- v:
				return nil
			case <-quit:
				return nil
			case <-ctx.Done():
				return ferrors.WrapError(ctx.Err(), ferrors.CategoryRuntime, "event publish canceled").
					WithContext("event_type", eventType.String()).
					Build()
			}
		},
		close: closeCh,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		closeCh()
		return ch, func() {}
	}
	if b.subs[eventType] == nil {
		b.subs[eventType] = make(map[uint64]*subscriber)
	}
	b.subs[eventType][id] = sub

	var unsubOnce sync.Once
	return ch, func() {
		unsubOnce.Do(func() {
			b.mu.Lock()
			if typeSubs, ok := b.subs[eventType]; ok {
				delete(typeSubs, id)
				if len(typeSubs) == 0 {
					delete(b.subs, eventType)
				}
			}
			b.mu.Unlock()
			closeCh()
		})
	}
}

// SubscriberCount returns the number of active subscribers for events of type T.
func SubscriberCount[T any](b *Bus) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[reflect.TypeFor[T]()])
}

// Publish delivers evt to all matching subscribers.
func (b *Bus) Publish(ctx context.Context, evt any) error {
	if evt == nil {
		return ferrors.ValidationError("event cannot be nil").Build()
	}
	if ctx == nil {
		return ferrors.ValidationError("context cannot be nil").Build()
	}
	if b.closed.Load() {
		return ErrBusClosed
	}

	evtType := reflect.TypeOf(evt)

	b.mu.RLock()
	var targets []*subscriber
	for subType, typeSubs := range b.subs {
		if subType != evtType && (subType.Kind() != reflect.Interface || !evtType.Implements(subType)) {
			continue
		}
		for _, s := range typeSubs {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if err := s.deliver(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the bus and all subscription channels. It is idempotent.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.closed.Store(true)

		b.mu.Lock()
		var toClose []*subscriber
		for _, typeSubs := range b.subs {
			for _, s := range typeSubs {
				toClose = append(toClose, s)
			}
		}
		b.subs = make(map[reflect.Type]map[uint64]*subscriber)
		b.mu.Unlock()

		for _, s := range toClose {
			s.close()
		}
	})
}
