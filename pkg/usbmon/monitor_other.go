//go:build !linux

package usbmon

import (
	"context"
	"errors"
)

var errUnsupported = errors.New("usbmon: uevent monitoring requires linux")

// Monitor is a stub on platforms without kernel uevents; consumers
// fall back to polled enumeration.
type Monitor struct{}

func NewMonitor() (*Monitor, error) {
	return nil, errUnsupported
}

func (m *Monitor) AddSubsystemFilter(subsystem string) {}

func (m *Monitor) Close() error { return nil }

func (m *Monitor) Run(ctx context.Context, events chan<- Event) error {
	close(events)
	return errUnsupported
}
