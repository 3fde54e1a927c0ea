package usbmon

import (
	"bytes"
	"testing"
)

func TestParseUEventKernelDatagram(t *testing.T) {
	data := []byte("add@/devices/pci0000:00/0000:00:14.0/usb3/3-1\x00" +
		"ACTION=add\x00" +
		"DEVPATH=/devices/pci0000:00/0000:00:14.0/usb3/3-1\x00" +
		"SUBSYSTEM=usb\x00" +
		"DEVNAME=bus/usb/003/011\x00" +
		"DEVTYPE=usb_device\x00" +
		"PRODUCT=f055/1/100\x00" +
		"BUSNUM=003\x00" +
		"DEVNUM=011\x00" +
		"SEQNUM=4711\x00")

	ev := ParseUEvent(data)
	if ev == nil {
		t.Fatal("ParseUEvent returned nil for a well-formed datagram")
	}
	if ev.Action != ActionAdd {
		t.Errorf("Action = %q, want %q", ev.Action, ActionAdd)
	}
	if want := "/devices/pci0000:00/0000:00:14.0/usb3/3-1"; ev.KObj != want {
		t.Errorf("KObj = %q, want %q", ev.KObj, want)
	}
	if ev.Subsystem != "usb" {
		t.Errorf("Subsystem = %q, want usb", ev.Subsystem)
	}
	if want := "bus/usb/003/011"; ev.DevPath != want {
		t.Errorf("DevPath = %q, want %q", ev.DevPath, want)
	}
	if ev.BusNum != 3 || ev.DevNum != 11 {
		t.Errorf("bus/dev = %d/%d, want 3/11", ev.BusNum, ev.DevNum)
	}
	if ev.VendorID != 0xf055 || ev.ProductID != 0x0001 {
		t.Errorf("identity = %04x:%04x, want f055:0001", ev.VendorID, ev.ProductID)
	}
	if !ev.IsUSBDevice() {
		t.Error("IsUSBDevice = false for a usb_device event")
	}
	if !ev.Matches(0xf055, 0x0001) {
		t.Error("Matches rejected the event's own identity")
	}
	if ev.Matches(0xf055, 0x0002) {
		t.Error("Matches accepted a different product")
	}
	if got := ev.Env["SEQNUM"]; got != "4711" {
		t.Errorf("Env[SEQNUM] = %q, want 4711", got)
	}
}

func TestParseUEventResyncsPastLibudevHeader(t *testing.T) {
	var data []byte
	data = append(data, []byte("libudev\x00")...)
	data = append(data, bytes.Repeat([]byte{0xAA}, 24)...)
	data = append(data, 0)
	data = append(data, []byte("remove@/devices/usb3/3-1\x00"+
		"SUBSYSTEM=usb\x00"+
		"DEVTYPE=usb_device\x00")...)

	ev := ParseUEvent(data)
	if ev == nil {
		t.Fatal("ParseUEvent returned nil for a libudev-framed datagram")
	}
	if ev.Action != ActionRemove {
		t.Errorf("Action = %q, want %q", ev.Action, ActionRemove)
	}
	if want := "/devices/usb3/3-1"; ev.KObj != want {
		t.Errorf("KObj = %q, want %q", ev.KObj, want)
	}
	if !ev.IsUSBDevice() {
		t.Error("IsUSBDevice = false after resync")
	}
}

func TestParseUEventRejectsNonEvents(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"no separator", []byte("binary junk\x00KEY=VALUE\x00")},
		{"separator first", []byte("@/devices/usb3/3-1\x00")},
		{"libudev without payload", append([]byte("libudev\x00"), bytes.Repeat([]byte{0xAA}, 16)...)},
	}
	for _, tc := range cases {
		if ev := ParseUEvent(tc.data); ev != nil {
			t.Errorf("%s: got %+v, want nil", tc.name, ev)
		}
	}
}

func TestParseUEventSkipsMalformedVariables(t *testing.T) {
	data := []byte("change@/devices/usb3/3-1\x00" +
		"NOEQUALS\x00" +
		"=orphan\x00" +
		"\x00" +
		"SUBSYSTEM=usb\x00")

	ev := ParseUEvent(data)
	if ev == nil {
		t.Fatal("ParseUEvent returned nil")
	}
	if ev.Subsystem != "usb" {
		t.Errorf("Subsystem = %q, want usb", ev.Subsystem)
	}
	if len(ev.Env) != 1 {
		t.Errorf("Env = %v, want only SUBSYSTEM", ev.Env)
	}
}

func TestIsUSBDeviceDistinguishesInterfaces(t *testing.T) {
	iface := ParseUEvent([]byte("add@/devices/usb3/3-1/3-1:1.0\x00" +
		"SUBSYSTEM=usb\x00" +
		"DEVTYPE=usb_interface\x00"))
	if iface == nil {
		t.Fatal("ParseUEvent returned nil")
	}
	if iface.IsUSBDevice() {
		t.Error("IsUSBDevice = true for a usb_interface event")
	}

	hid := ParseUEvent([]byte("add@/devices/usb3/3-1/input5\x00" +
		"SUBSYSTEM=input\x00"))
	if hid == nil {
		t.Fatal("ParseUEvent returned nil")
	}
	if hid.IsUSBDevice() {
		t.Error("IsUSBDevice = true for an input subsystem event")
	}
}

func TestParseProduct(t *testing.T) {
	cases := []struct {
		in      string
		vendor  uint16
		product uint16
	}{
		{"f055/1/100", 0xf055, 0x0001},
		{"46d/c52b/1201", 0x046d, 0xc52b},
		{"f055", 0, 0},
		{"zz/1/1", 0, 0},
		{"12345/1/1", 0, 0},
	}
	for _, tc := range cases {
		v, p := parseProduct(tc.in)
		if v != tc.vendor || p != tc.product {
			t.Errorf("parseProduct(%q) = %04x:%04x, want %04x:%04x",
				tc.in, v, p, tc.vendor, tc.product)
		}
	}
}
