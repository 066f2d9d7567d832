package mapsync

import "sync"

// PinBus is an in-process PinSource. The zero value is ready to use. Publish delivers a move to every
// subscriber synchronously, in subscription order.
type PinBus struct {
	mu     sync.Mutex
	nextID int
	order  []int
	subs   map[int]func(PinMove)
}

// NewPinBus returns an empty bus.
func NewPinBus() *PinBus {
	return &PinBus{subs: make(map[int]func(PinMove))}
}

// SubscribePin implements PinSource.
func (b *PinBus) SubscribePin(fn func(PinMove)) Subscription {
	if fn == nil {
		return SubscriptionFunc(nil)
	}
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[int]func(PinMove))
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, existing := range b.order {
				if existing == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	})
}

// Publish broadcasts a pin move carrying both coordinates.
func (b *PinBus) Publish(lat, lng float64) {
	b.mu.Lock()
	handlers := make([]func(PinMove), 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.Unlock()

	move := PinMove{Latitude: lat, Longitude: lng}
	for _, fn := range handlers {
		fn(move)
	}
}

// Subscribers reports the number of active subscriptions.
func (b *PinBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
