package identity

import "sync"

// subscriberBuffer bounds how far a subscriber may fall behind before
// Publish blocks on it.
const subscriberBuffer = 16

type subscriber[E any] struct {
	ch   chan E
	done chan struct{}
}

// broadcaster fans events out to subscribers in publish order.
type broadcaster[E any] struct {
	mu   sync.Mutex
	subs map[*subscriber[E]]struct{}
}

func (b *broadcaster[E]) subscribe() (<-chan E, func()) {
	s := &subscriber[E]{ch: make(chan E, subscriberBuffer), done: make(chan struct{})}
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[*subscriber[E]]struct{})
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, s)
			b.mu.Unlock()
			close(s.done)
		})
	}
}

// publish delivers ev to every live subscriber. It never drops an event for
// a subscriber that is still subscribed.
func (b *broadcaster[E]) publish(ev E) {
	b.mu.Lock()
	subs := make([]*subscriber[E], 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- ev:
		case <-s.done:
		}
	}
}
