package workers

import (
	"log/slog"
	"sync"
)

// Broadcaster owns the set of connected live-update channels, one per open
// event stream. It provides best-effort fan-out with no delivery guarantee:
// a subscriber that cannot keep up misses a frame and catches up on the
// next one, because every frame is the full current list.
//
// Broadcaster is safe for concurrent use by multiple goroutines.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan []byte
	bufferSize  int
	log         *slog.Logger
}

func NewBroadcaster(bufferSize int, log *slog.Logger) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]chan []byte),
		bufferSize:  bufferSize,
		log:         log,
	}
}

// Subscribe registers a new output channel under the given id.
func (b *Broadcaster) Subscribe(id string) <-chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan []byte, b.bufferSize)
	b.subscribers[id] = ch
	return ch
}

// Unsubscribe removes and closes the channel. Removing an already-removed
// id is a no-op, transport teardown paths may race on it.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[id]
	if !ok {
		return
	}
	delete(b.subscribers, id)
	close(ch)
}

// Broadcast pushes the payload to every subscriber, dropping the frame for
// channels with a full buffer.
func (b *Broadcaster) Broadcast(payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- payload:
		default:
			b.log.Debug("Subscriber lagging, frame dropped", "subscriber", id)
		}
	}
}

func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Drain closes every channel, used on shutdown.
func (b *Broadcaster) Drain() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
