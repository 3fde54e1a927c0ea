// Package evkusb is the libusb-backed transport for EVK bridge
// boards, built on gousb. The Enumerator owns the USB context;
// transports opened through its entries share it.
package evkusb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"

	"github.com/smazurov/camnode/pkg/evk"
)

// ProductID names one bridge identity and the USB generation the
// board is built for.
type ProductID struct {
	Vendor  gousb.ID
	Product gousb.ID
	USBType uint16
}

// DefaultProducts covers the Cypress FX-series bridge identities the
// EVK line ships with.
var DefaultProducts = []ProductID{
	{Vendor: 0x04b4, Product: 0x00f3, USBType: evk.USBType3},
	{Vendor: 0x04b4, Product: 0x00f1, USBType: evk.USBType2},
}

// Enumerator discovers attached bridge boards.
type Enumerator struct {
	ctx      *gousb.Context
	products []ProductID
}

// NewEnumerator opens a USB context scanning for the given products,
// DefaultProducts when none are named. Close it when done.
func NewEnumerator(products ...ProductID) *Enumerator {
	if len(products) == 0 {
		products = append([]ProductID(nil), DefaultProducts...)
	}
	return &Enumerator{ctx: gousb.NewContext(), products: products}
}

func (e *Enumerator) Close() error {
	return e.ctx.Close()
}

// Enumerate walks the bus and returns an entry per matching board.
// Devices are not opened; serial numbers stay empty until Open.
func (e *Enumerator) Enumerate() ([]*evk.Device, error) {
	var devices []*evk.Device
	_, err := e.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if p, ok := e.match(desc); ok {
			devices = append(devices, e.entry(desc, p))
		}
		// Collect descriptors only; opening happens per device later.
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("walk usb bus: %w", err)
	}
	return devices, nil
}

func (e *Enumerator) match(desc *gousb.DeviceDesc) (ProductID, bool) {
	for _, p := range e.products {
		if desc.Vendor == p.Vendor && desc.Product == p.Product {
			return p, true
		}
	}
	return ProductID{}, false
}

func (e *Enumerator) entry(desc *gousb.DeviceDesc, p ProductID) *evk.Device {
	info := evk.TransportInfo{
		VendorID:  uint16(desc.Vendor),
		ProductID: uint16(desc.Product),
		Path:      busPath(desc),
		USBType:   claimedType(p, desc.Speed),
		Speed:     mapSpeed(desc.Speed),
	}
	d := *desc
	return evk.NewDevice(info, func() (evk.Transport, error) {
		return newTransport(e.ctx, &d, info), nil
	})
}

// claimedType downgrades a USB 3 board enumerated behind a slower
// link to the 3-on-2 marker so CheckUSBType can flag it.
func claimedType(p ProductID, speed gousb.Speed) uint16 {
	if p.USBType == evk.USBType3 && mapSpeed(speed) < evk.SpeedSuper {
		return evk.USBType3on2
	}
	return p.USBType
}

// busPath renders the kernel-style bus position, e.g. "3-1.4.2".
func busPath(desc *gousb.DeviceDesc) string {
	if len(desc.Path) == 0 {
		return fmt.Sprintf("%d-0", desc.Bus)
	}
	parts := make([]string, len(desc.Path))
	for i, p := range desc.Path {
		parts[i] = strconv.Itoa(p)
	}
	return fmt.Sprintf("%d-%s", desc.Bus, strings.Join(parts, "."))
}

func mapSpeed(s gousb.Speed) evk.USBSpeed {
	switch s {
	case gousb.SpeedLow:
		return evk.SpeedLow
	case gousb.SpeedFull:
		return evk.SpeedFull
	case gousb.SpeedHigh:
		return evk.SpeedHigh
	case gousb.SpeedSuper:
		return evk.SpeedSuper
	default:
		if int(s) > int(gousb.SpeedSuper) {
			return evk.SpeedSuperPlus
		}
		return evk.SpeedUnknown
	}
}
