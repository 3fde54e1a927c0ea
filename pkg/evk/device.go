package evk

import (
	"errors"
	"fmt"
	"sync"
)

// Device identifies one attached camera board before it is opened.
// Entries come from a transport backend's enumerator and carry the
// constructor for their own transport.
type Device struct {
	VendorID  uint16
	ProductID uint16
	Serial    string
	// Path is the stable bus position (bus-port chain), the identity
	// that survives re-enumeration when serials are absent.
	Path    string
	USBType uint16
	Speed   USBSpeed

	opener func() (Transport, error)
}

// NewDevice builds an enumeration entry whose transport is produced
// by open. Transport backends use this to publish their devices.
func NewDevice(info TransportInfo, open func() (Transport, error)) *Device {
	return &Device{
		VendorID:  info.VendorID,
		ProductID: info.ProductID,
		Serial:    info.Serial,
		Path:      info.Path,
		USBType:   info.USBType,
		Speed:     info.Speed,
		opener:    open,
	}
}

func (d *Device) String() string {
	if d == nil {
		return "<nil device>"
	}
	if d.Serial != "" {
		return fmt.Sprintf("%04x:%04x %s", d.VendorID, d.ProductID, d.Serial)
	}
	return fmt.Sprintf("%04x:%04x @%s", d.VendorID, d.ProductID, d.Path)
}

func (d *Device) open() (Transport, error) {
	if d.opener == nil {
		return nil, errors.New("device has no transport constructor")
	}
	return d.opener()
}

// IsSameDevice reports whether two enumeration entries refer to the
// same physical device. Bus position is authoritative when both sides
// have one; otherwise the vendor, product and serial triple decides.
func (d *Device) IsSameDevice(other *Device) bool {
	if d == nil || other == nil {
		return false
	}
	if d.Path != "" && other.Path != "" {
		return d.Path == other.Path
	}
	return d.VendorID == other.VendorID &&
		d.ProductID == other.ProductID &&
		d.Serial == other.Serial
}

// Enumerator lists currently attached devices. The USB backend
// provides the real one; simulators provide their own.
type Enumerator interface {
	Enumerate() ([]*Device, error)
}

// DeviceEventCallback receives connect and disconnect notices from a
// DeviceList refresh. code is EventDeviceConnect,
// EventUnknownDeviceConnect or EventDeviceDisconnect.
type DeviceEventCallback func(code EventCode, dev *Device)

// DeviceList tracks attached devices across refreshes and reports
// arrivals and departures to a single registered callback.
type DeviceList struct {
	mu      sync.Mutex
	enum    Enumerator
	devices []*Device

	cbMu sync.RWMutex
	cb   DeviceEventCallback
}

// NewDeviceList wraps an enumerator. The list is empty until the
// first Refresh.
func NewDeviceList(enum Enumerator) *DeviceList {
	return &DeviceList{enum: enum}
}

// Devices returns the entries seen by the last Refresh.
func (l *DeviceList) Devices() []*Device {
	l.mu.Lock()
	defer l.mu.Unlock()
	devices := make([]*Device, len(l.devices))
	copy(devices, l.devices)
	return devices
}

// Len reports the number of devices seen by the last Refresh.
func (l *DeviceList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.devices)
}

// Refresh re-enumerates and diffs against the previous snapshot,
// invoking the callback once per arrival and departure. Boards whose
// USB generation could not be determined arrive as
// EventUnknownDeviceConnect.
func (l *DeviceList) Refresh() error {
	current, err := l.enum.Enumerate()
	if err != nil {
		return wrapErr("refresh devices", CodeUnknownError, err)
	}

	l.mu.Lock()
	previous := l.devices
	l.devices = current
	l.mu.Unlock()

	cb := l.callback()
	if cb == nil {
		return nil
	}
	for _, dev := range current {
		if findDevice(previous, dev) == nil {
			code := EventDeviceConnect
			if dev.USBType == 0 {
				code = EventUnknownDeviceConnect
			}
			cb(code, dev)
		}
	}
	for _, dev := range previous {
		if findDevice(current, dev) == nil {
			cb(EventDeviceDisconnect, dev)
		}
	}
	return nil
}

// Find returns the tracked entry matching dev, nil when it is gone.
func (l *DeviceList) Find(dev *Device) *Device {
	l.mu.Lock()
	defer l.mu.Unlock()
	return findDevice(l.devices, dev)
}

func findDevice(devices []*Device, dev *Device) *Device {
	for _, d := range devices {
		if d.IsSameDevice(dev) {
			return d
		}
	}
	return nil
}

// RegisterEventCallback installs the connect/disconnect callback.
// Like camera callbacks, only one may be registered at a time.
func (l *DeviceList) RegisterEventCallback(cb DeviceEventCallback) error {
	if cb == nil {
		return opErr("register device callback", CodeInvalidArgument)
	}
	l.cbMu.Lock()
	defer l.cbMu.Unlock()
	if l.cb != nil {
		return opErr("register device callback", CodeRegisterMultipleCallback)
	}
	l.cb = cb
	return nil
}

// ClearEventCallback removes the connect/disconnect callback.
func (l *DeviceList) ClearEventCallback() {
	l.cbMu.Lock()
	l.cb = nil
	l.cbMu.Unlock()
}

func (l *DeviceList) callback() DeviceEventCallback {
	l.cbMu.RLock()
	defer l.cbMu.RUnlock()
	return l.cb
}
