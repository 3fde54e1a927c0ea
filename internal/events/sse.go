package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges kelindar/event callback-based subscriptions
// to channels. SSE handlers run a select loop over one channel, so bus
// events have to be funneled into it without ever blocking a publisher.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			// Slow consumer, drop rather than block the publisher.
		}
	})
}
