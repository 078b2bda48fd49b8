package application

import (
	"sync"

	"github.com/echopad/echopad/internal/domain/model"
)

// TranscriptEvent announces a record's terminal transition so observers can
// react without polling the store.
type TranscriptEvent struct {
	ID            string
	Status        model.TranscriptStatus
	QuotaExceeded bool
}

// subscriberBuffer bounds how far a subscriber may fall behind before events
// are dropped for it. The store remains the source of truth; events are a
// hint, not a delivery guarantee.
const subscriberBuffer = 16

// Notifier is a small in-process pub/sub for transcript transitions. Publish
// never blocks: a subscriber that has fallen behind misses events rather
// than stalling an upload's completion path.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan TranscriptEvent
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan TranscriptEvent)}
}

// Subscribe registers a new observer. The returned cancel function removes
// the subscription and closes the channel; it is safe to call more than once.
func (n *Notifier) Subscribe() (<-chan TranscriptEvent, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++

	ch := make(chan TranscriptEvent, subscriberBuffer)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Publish delivers the event to every subscriber with room in its buffer.
func (n *Notifier) Publish(evt TranscriptEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
