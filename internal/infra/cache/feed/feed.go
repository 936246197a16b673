// Package feed fans cache mutations out to subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses the event and the drop is
// counted.
package feed

import (
	"sync"
	"sync/atomic"

	"flockcore/pkg/domain"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

// Feed is a broadcast stream of cache events.
type Feed struct {
	mu      sync.RWMutex
	subs    map[uint64]chan domain.CacheEvent
	nextID  uint64
	closed  bool
	buffer  int
	dropped atomic.Uint64
}

// New returns a feed whose subscriber channels hold buffer events.
func New(buffer int) *Feed {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Feed{subs: make(map[uint64]chan domain.CacheEvent), buffer: buffer}
}

// Subscribe registers a subscriber. The returned cancel func closes the
// channel and is safe to call more than once.
func (f *Feed) Subscribe() (<-chan domain.CacheEvent, func()) {
	ch := make(chan domain.CacheEvent, f.buffer)
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if sub, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers ev to every subscriber with buffer space.
func (f *Feed) Publish(ev domain.CacheEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sub := range f.subs {
		select {
		case sub <- ev:
		default:
			f.dropped.Add(1)
		}
	}
}

// Dropped reports how many deliveries were skipped because of full buffers.
func (f *Feed) Dropped() uint64 { return f.dropped.Load() }

// Subscribers returns the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Close closes every subscriber channel; later subscriptions receive a closed channel.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, sub := range f.subs {
		close(sub)
		delete(f.subs, id)
	}
}
