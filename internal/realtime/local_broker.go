package realtime

import (
	"context"
	"sync"
)

// LocalBroker delivers events to handlers in the same process. Used in dev mode and tests.
type LocalBroker struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]func(Event)
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{handlers: make(map[int]func(Event))}
}

func (b *LocalBroker) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
	return nil
}

func (b *LocalBroker) Subscribe(_ context.Context, handler func(Event)) (func(), error) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}, nil
}

func (b *LocalBroker) Close() error {
	b.mu.Lock()
	b.handlers = make(map[int]func(Event))
	b.mu.Unlock()
	return nil
}
