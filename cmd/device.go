package cmd

import (
	"fmt"

	"github.com/smazurov/camnode/pkg/evk"
	"github.com/smazurov/camnode/pkg/evk/evksim"
	"github.com/smazurov/camnode/pkg/evk/evkusb"
)

// newEnumerator returns the transport enumerator for the CLI commands:
// the real USB one, or a single simulated board when simulate is set.
// The returned closer releases the USB context and is a no-op for the
// simulator.
func newEnumerator(simulate bool) (evk.Enumerator, func() error) {
	if simulate {
		return evksim.NewEnumerator(evksim.New()), func() error { return nil }
	}
	usb := evkusb.NewEnumerator()
	return usb, usb.Close
}

// selectDevice enumerates and picks the board matching serial or path.
// With both empty it requires exactly one attached board so a bare
// command never grabs an arbitrary device on multi-board hosts.
func selectDevice(enum evk.Enumerator, serial, path string) (*evk.Device, error) {
	devices, err := enum.Enumerate()
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no devices found")
	}
	if serial == "" && path == "" {
		if len(devices) > 1 {
			return nil, fmt.Errorf("%d devices attached, select one with --serial or --device", len(devices))
		}
		return devices[0], nil
	}
	for _, dev := range devices {
		if serial != "" && dev.Serial == serial {
			return dev, nil
		}
		if path != "" && dev.Path == path {
			return dev, nil
		}
	}
	if serial != "" {
		return nil, fmt.Errorf("no device with serial %q", serial)
	}
	return nil, fmt.Errorf("no device at %q", path)
}
