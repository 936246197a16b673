// Package navigation broadcasts classified navigation failures to whatever
// is presenting them and routes the recovery action the user picks.
package navigation

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"flockcore/pkg/domain"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Event is one dispatched navigation failure.
type Event struct {
	Seq uint64
	At  time.Time
	Err domain.NavigationError
}

// Dispatcher fans navigation errors out to subscribers. Dispatch never
// blocks: a subscriber with a full buffer misses the event.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   map[string]chan Event
	closed bool

	buffer  int
	seq     atomic.Uint64
	dropped atomic.Uint64
	log     *zap.Logger
	now     func() time.Time
}

// DispatcherOption customises a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithBuffer sets the per-subscriber buffer size.
func WithBuffer(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.buffer = n
		}
	}
}

// WithLogger sets the logger used for drop reports.
func WithLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// NewDispatcher returns an open dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		subs:   make(map[string]chan Event),
		buffer: DefaultBuffer,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.Named("navigation")
	return d
}

// Subscribe registers a listener. The cancel func closes the channel and is
// idempotent. Subscribing to a closed dispatcher yields a closed channel.
func (d *Dispatcher) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, d.buffer)
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := uuid.NewString()
	d.subs[id] = ch
	d.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			if sub, ok := d.subs[id]; ok {
				delete(d.subs, id)
				close(sub)
			}
		})
	}
}

// Dispatch delivers err to every subscriber with room and reports how many
// received it. Nil errors and dispatches after Close are ignored.
func (d *Dispatcher) Dispatch(err domain.NavigationError) int {
	if err == nil {
		return 0
	}
	ev := Event{Seq: d.seq.Add(1), At: d.now(), Err: err}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return 0
	}
	delivered := 0
	for id, sub := range d.subs {
		select {
		case sub <- ev:
			delivered++
		default:
			d.dropped.Add(1)
			d.log.Warn("navigation event dropped", zap.String("subscriber", id), zap.String("kind", err.Kind()))
		}
	}
	return delivered
}

// Dropped reports deliveries skipped because a subscriber buffer was full.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Subscribers returns the number of live subscriptions.
func (d *Dispatcher) Subscribers() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// Close closes every subscriber channel. It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for id, sub := range d.subs {
		close(sub)
		delete(d.subs, id)
	}
}
