package stream

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/coastwatch/internal/models"
)

const DefaultBuffer = 64

// Broadcaster fans newly stored hazard records out to live subscribers.
// Delivery is best effort: a subscriber whose buffer is full misses the
// record.
type Broadcaster struct {
	subscribers map[uint64]chan models.HazardRecord
	nextID      atomic.Uint64
	buffer      int
	onDrop      func()
	mu          sync.RWMutex
}

func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{
		subscribers: make(map[uint64]chan models.HazardRecord),
		buffer:      buffer,
	}
}

// OnDrop registers a hook called whenever a record is skipped for a slow
// subscriber. Set it before the first Broadcast.
func (b *Broadcaster) OnDrop(fn func()) {
	b.onDrop = fn
}

func (b *Broadcaster) Subscribe() (uint64, <-chan models.HazardRecord) {
	id := b.nextID.Add(1)
	ch := make(chan models.HazardRecord, b.buffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Broadcast(r models.HazardRecord) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- r:
		default:
			if b.onDrop != nil {
				b.onDrop()
			}
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels so their readers exit.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
