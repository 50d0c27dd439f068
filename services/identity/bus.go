package identity

import (
	"sync"

	"courtwise/models"
)

// Bus fans identity events out to the subscribers of a session key. Publish
// never blocks; each subscriber receives its events in publish order.
type Bus struct {
	mu     sync.Mutex
	subs   map[string]map[*mailbox]struct{}
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[*mailbox]struct{})}
}

// Subscribe registers a new subscriber for key.
func (b *Bus) Subscribe(key string) (<-chan models.IdentityEvent, func()) {
	mb := newMailbox()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		mb.close()
		return mb.out, func() {}
	}
	if b.subs[key] == nil {
		b.subs[key] = make(map[*mailbox]struct{})
	}
	b.subs[key][mb] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if set := b.subs[key]; set != nil {
				delete(set, mb)
				if len(set) == 0 {
					delete(b.subs, key)
				}
			}
			b.mu.Unlock()
			mb.close()
		})
	}
	return mb.out, cancel
}

// Publish queues event for every current subscriber of key.
func (b *Bus) Publish(key string, event models.IdentityEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for mb := range b.subs[key] {
		mb.push(event)
	}
}

// Subscribers reports how many streams are open for key.
func (b *Bus) Subscribers(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[key])
}

// Close ends every stream.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]map[*mailbox]struct{})
	b.closed = true
	b.mu.Unlock()

	for _, set := range subs {
		for mb := range set {
			mb.close()
		}
	}
}

// mailbox is an unbounded queue drained into out by its own goroutine.
type mailbox struct {
	mu     sync.Mutex
	queue  []models.IdentityEvent
	notify chan struct{}
	done   chan struct{}
	out    chan models.IdentityEvent
	once   sync.Once
}

func newMailbox() *mailbox {
	mb := &mailbox{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan models.IdentityEvent),
	}
	go mb.pump()
	return mb
}

func (mb *mailbox) push(event models.IdentityEvent) {
	mb.mu.Lock()
	mb.queue = append(mb.queue, event)
	mb.mu.Unlock()
	select {
	case mb.notify <- struct{}{}:
	default:
	}
}

func (mb *mailbox) close() {
	mb.once.Do(func() { close(mb.done) })
}

func (mb *mailbox) pump() {
	defer close(mb.out)
	for {
		select {
		case <-mb.done:
			return
		case <-mb.notify:
		}
		for {
			mb.mu.Lock()
			if len(mb.queue) == 0 {
				mb.mu.Unlock()
				break
			}
			event := mb.queue[0]
			mb.queue = mb.queue[1:]
			mb.mu.Unlock()

			select {
			case mb.out <- event:
			case <-mb.done:
				return
			}
		}
	}
}
