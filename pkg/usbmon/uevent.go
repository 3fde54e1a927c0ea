// Package usbmon watches kernel uevents for USB attach and detach
// without cgo or a udev dependency, by listening on the
// NETLINK_KOBJECT_UEVENT broadcast group.
package usbmon

import (
	"bytes"
	"strconv"
	"strings"
)

// Action values of kernel uevents.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
	ActionBind   = "bind"
	ActionUnbind = "unbind"
)

// Event is one kernel device event with the USB identity fields
// pre-parsed when the kernel supplied them.
type Event struct {
	Action    string // "add", "remove", ...
	KObj      string // kernel object path: /devices/pci0000:00/...
	Subsystem string
	DevPath   string // device node, e.g. "bus/usb/003/011"
	BusNum    int
	DevNum    int
	VendorID  uint16
	ProductID uint16
	Env       map[string]string // every variable from the event
}

// IsUSBDevice reports whether the event describes a whole USB device
// rather than one of its interfaces.
func (e *Event) IsUSBDevice() bool {
	return e.Subsystem == "usb" && e.Env["DEVTYPE"] == "usb_device"
}

// Matches reports whether the event carries the given USB identity.
func (e *Event) Matches(vendor, product uint16) bool {
	return e.VendorID == vendor && e.ProductID == product
}

// ParseUEvent decodes an "ACTION@KOBJ\0KEY=VALUE\0..." datagram,
// tolerating the binary header libudev-relayed events prepend.
// Returns nil for messages that are not uevents.
func ParseUEvent(data []byte) *Event {
	if len(data) == 0 {
		return nil
	}

	if bytes.HasPrefix(data, []byte("libudev")) {
		// The real uevent follows the header; resync on the
		// action@path pattern.
		for i := 0; i < len(data)-1; i++ {
			if data[i] == 0 {
				rest := data[i+1:]
				if idx := bytes.IndexByte(rest, '@'); idx > 0 && idx < 20 {
					data = rest
					break
				}
			}
		}
	}

	parts := bytes.Split(data, []byte{0})
	if len(parts) < 1 || len(parts[0]) == 0 {
		return nil
	}

	header := string(parts[0])
	atIdx := strings.Index(header, "@")
	if atIdx < 1 {
		return nil
	}

	event := &Event{
		Action: header[:atIdx],
		KObj:   header[atIdx+1:],
		Env:    make(map[string]string),
	}

	for _, part := range parts[1:] {
		if len(part) == 0 {
			continue
		}
		kv := string(part)
		eqIdx := strings.Index(kv, "=")
		if eqIdx < 1 {
			continue
		}
		key := kv[:eqIdx]
		value := kv[eqIdx+1:]
		event.Env[key] = value

		switch key {
		case "SUBSYSTEM":
			event.Subsystem = value
		case "DEVNAME":
			event.DevPath = value
		case "BUSNUM":
			event.BusNum = parseDecimal(value)
		case "DEVNUM":
			event.DevNum = parseDecimal(value)
		case "PRODUCT":
			event.VendorID, event.ProductID = parseProduct(value)
		}
	}

	return event
}

func parseDecimal(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// parseProduct splits the kernel's "vid/pid/bcdDevice" triple, which
// uses unpadded lowercase hex.
func parseProduct(s string) (vendor, product uint16) {
	fields := strings.SplitN(s, "/", 3)
	if len(fields) < 2 {
		return 0, 0
	}
	v, err := strconv.ParseUint(fields[0], 16, 16)
	if err != nil {
		return 0, 0
	}
	p, err := strconv.ParseUint(fields[1], 16, 16)
	if err != nil {
		return 0, 0
	}
	return uint16(v), uint16(p)
}
