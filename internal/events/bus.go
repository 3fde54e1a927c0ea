package events

import (
	"github.com/kelindar/event"
)

// Bus is the daemon-wide broadcast channel, a thin wrapper around a
// kelindar/event dispatcher.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish delivers ev to every subscriber of its concrete type.
//
// kelindar/event routes on the static type parameter, so the dynamic
// Event has to be switched back to its concrete type here. A new event
// type needs a case in both switches.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case DeviceDiscoveryEvent:
		event.Publish(b.dispatcher, e)
	case CameraStateEvent:
		event.Publish(b.dispatcher, e)
	case CaptureStatsEvent:
		event.Publish(b.dispatcher, e)
	case TransferFaultEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	case UpdateProgressEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type of its parameter and
// returns the unsubscribe function. Unknown handler signatures get a
// no-op unsubscribe.
//
// Usage: unsub := bus.Subscribe(func(e CameraStateEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(DeviceDiscoveryEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CameraStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureStatsEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TransferFaultEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(UpdateProgressEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
