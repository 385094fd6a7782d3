package realtime

import "context"

// Broker moves events between server instances. Every instance subscribes and delivers to its own clients.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe registers handler for every event published by any instance. The returned func stops the subscription.
	Subscribe(ctx context.Context, handler func(Event)) (func(), error)
	Close() error
}
