package sync

import (
	"sync"

	"github.com/google/uuid"
)

// subscriptionBuffer bounds each subscriber channel. Delivery of
// intermediate values is not guaranteed: a slow subscriber misses
// updates rather than blocking the publisher.
const subscriptionBuffer = 16

// Subscription is one subscriber's handle. The subscriber owns its
// cancellation: Cancel detaches and closes C.
type Subscription[T any] struct {
	C      <-chan T
	id     uuid.UUID
	cancel func()
}

func (s *Subscription[T]) Cancel() {
	s.cancel()
}

// Publisher is a broadcast channel for one mutable field group.
type Publisher[T any] struct {
	mu   sync.Mutex
	subs map[uuid.UUID]chan T
}

func NewPublisher[T any]() *Publisher[T] {
	return &Publisher[T]{subs: make(map[uuid.UUID]chan T)}
}

func (p *Publisher[T]) Subscribe() *Subscription[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := uuid.New()
	ch := make(chan T, subscriptionBuffer)
	p.subs[id] = ch

	return &Subscription[T]{
		C:  ch,
		id: id,
		cancel: func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if sub, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(sub)
			}
		},
	}
}

// Publish delivers the value to every subscriber, dropping it for
// subscribers whose buffer is full.
func (p *Publisher[T]) Publish(value T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ch := range p.subs {
		select {
		case ch <- value:
		default:
		}
	}
}
