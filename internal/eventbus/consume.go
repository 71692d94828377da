package eventbus

import "context"

// Consume subscribes to bus and calls fn for each event on its own goroutine
// until ctx is canceled or the bus closes. The returned channel is closed
// once the subscription is released.
func Consume[T any](ctx context.Context, bus EventBus[T], fn func(T)) <-chan struct{} {
	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				fn(ev)
			}
		}
	}()
	return done
}
