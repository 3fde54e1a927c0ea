package evksim

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/smazurov/camnode/pkg/evk"
)

func simConfig() evk.CameraConfig {
	return evk.CameraConfig{
		Name:     "sim 8x8",
		Width:    8,
		Height:   8,
		BitWidth: 8,
		Format:   evk.NewPixelFormat(evk.FormatModeRaw, evk.BayerRG),
		I2CMode:  evk.I2CMode16_16,
		I2CAddr:  0x34,
	}
}

// openSimCamera opens a camera on sim through the enumeration path and
// stages a manual config so Init works.
func openSimCamera(t *testing.T, sim *Simulator) *evk.Camera {
	t.Helper()
	cam, err := evk.Open(evk.OpenParam{Device: sim.Entry(), BufferCount: 3})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if cam.State() != evk.StateClosed {
			cam.Close()
		}
	})
	if err := cam.SetConfig(simConfig()); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	return cam
}

func TestSimulatorBacksFullLifecycle(t *testing.T) {
	sim := New(WithFrameInterval(time.Millisecond))
	cam := openSimCamera(t, sim)

	if got := cam.USBTypeNumber(); got != int(evk.USBType3) {
		t.Errorf("USB type %d, want %d", got, evk.USBType3)
	}
	if err := cam.CheckUSBType(); err != nil {
		t.Errorf("CheckUSBType on a SuperSpeed sim: %v", err)
	}
	if err := cam.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := cam.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	frame, err := cam.Capture(evk.DefaultCaptureTimeout)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if frame.Size != 64 || len(frame.Data) != 64 {
		t.Errorf("frame size %d (%d bytes), want 64", frame.Size, len(frame.Data))
	}
	if frame.Format.Width != 8 || frame.Format.Height != 8 {
		t.Errorf("frame geometry %dx%d, want 8x8", frame.Format.Width, frame.Format.Height)
	}
	if err := cam.FreeImage(frame); err != nil {
		t.Errorf("FreeImage: %v", err)
	}
	if err := cam.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := cam.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestFramesCarryOrderedPattern(t *testing.T) {
	sim := New(WithFrameInterval(time.Millisecond))
	cam := openSimCamera(t, sim)
	if err := cam.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := cam.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer cam.Stop()

	var lastPayload uint32
	var lastSeq uint32
	for i := 0; i < 4; i++ {
		frame, err := cam.Capture(evk.DefaultCaptureTimeout)
		if err != nil {
			t.Fatalf("Capture %d: %v", i, err)
		}
		payload := FrameSeq(frame.Data)
		if i > 0 {
			if payload <= lastPayload {
				t.Errorf("payload seq went %d -> %d, want increasing", lastPayload, payload)
			}
			if frame.Seq <= lastSeq {
				t.Errorf("frame seq went %d -> %d, want increasing", lastSeq, frame.Seq)
			}
		}
		if got, want := frame.Data[5], byte(5+int(payload)); got != want {
			t.Errorf("gradient byte %#02x, want %#02x", got, want)
		}
		lastPayload = payload
		lastSeq = frame.Seq
		if err := cam.FreeImage(frame); err != nil {
			t.Fatalf("FreeImage %d: %v", i, err)
		}
	}
}

func TestRegisterFileRoundTrip(t *testing.T) {
	sim := New(WithRegister(evk.I2CMode16_16, 0x34, 0x0100, 0xBEEF))
	cam := openSimCamera(t, sim)

	val, err := cam.ReadSensorReg(0x0100)
	if err != nil {
		t.Fatalf("ReadSensorReg: %v", err)
	}
	if val != 0xBEEF {
		t.Errorf("preloaded register = %#04x, want 0xBEEF", val)
	}

	if err := cam.WriteSensorReg(0x0200, 0x1234); err != nil {
		t.Fatalf("WriteSensorReg: %v", err)
	}
	if got, ok := sim.Reg(evk.I2CMode16_16, 0x34, 0x0200); !ok || got != 0x1234 {
		t.Errorf("register file holds %#04x (present %v), want 0x1234", got, ok)
	}

	// A different width personality addresses a separate register.
	if err := cam.WriteReg(evk.I2CMode8_8, 0x20, 0x10, 0xAB); err != nil {
		t.Fatalf("WriteReg 8_8: %v", err)
	}
	if got, ok := sim.Reg(evk.I2CMode8_8, 0x20, 0x10); !ok || got != 0xAB {
		t.Errorf("8_8 register = %#02x (present %v), want 0xAB", got, ok)
	}
	if _, ok := sim.Reg(evk.I2CMode16_16, 0x20, 0x10); ok {
		t.Error("8_8 write leaked into the 16_16 register space")
	}
}

func TestUserdataSurvivesReopen(t *testing.T) {
	sim := New()
	cam := openSimCamera(t, sim)

	payload := []byte("calibration v2")
	if err := cam.WriteUserData(32, payload); err != nil {
		t.Fatalf("WriteUserData: %v", err)
	}
	if got := sim.Userdata()[32 : 32+len(payload)]; !bytes.Equal(got, payload) {
		t.Errorf("userdata window = %q, want %q", got, payload)
	}
	if err := cam.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cam2 := openSimCamera(t, sim)
	back := make([]byte, len(payload))
	if err := cam2.ReadUserData(32, back); err != nil {
		t.Fatalf("ReadUserData after reopen: %v", err)
	}
	if !bytes.Equal(back, payload) {
		t.Errorf("read back %q, want %q", back, payload)
	}
}

func TestInjectedFaultRaisesEvent(t *testing.T) {
	sim := New(WithFrameInterval(time.Millisecond))
	cam := openSimCamera(t, sim)
	if err := cam.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	faults := make(chan evk.Event, 8)
	err := cam.RegisterEventCallback(func(ev evk.Event) {
		if ev.Code.IsTransferFault() {
			select {
			case faults <- ev:
			default:
			}
		}
	})
	if err != nil {
		t.Fatalf("RegisterEventCallback: %v", err)
	}
	if err := cam.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer cam.Stop()

	sim.InjectFault(evk.EventTransferTimeout)

	select {
	case ev := <-faults:
		if ev.Code != evk.EventTransferTimeout {
			t.Errorf("fault event %v, want %v", ev.Code, evk.EventTransferTimeout)
		}
	case <-time.After(time.Second):
		t.Fatal("no fault event within 1s")
	}

	// Capture keeps running past the fault.
	frame, err := cam.Capture(evk.DefaultCaptureTimeout)
	if err != nil {
		t.Fatalf("Capture after fault: %v", err)
	}
	cam.FreeImage(frame)

	if faults := cam.Stats().Faults; faults == 0 {
		t.Error("stats recorded no faults")
	}
}

func TestForcedCaptureKeepsShortFrame(t *testing.T) {
	sim := New(WithFrameInterval(time.Millisecond))
	cam := openSimCamera(t, sim)
	if err := cam.SetForceCapture(true); err != nil {
		t.Fatalf("SetForceCapture: %v", err)
	}
	if err := cam.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := cam.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer cam.Stop()

	sim.InjectFault(evk.EventTransferLengthError)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("no short frame within 2s")
		}
		frame, err := cam.Capture(evk.DefaultCaptureTimeout)
		if err != nil {
			t.Fatalf("Capture: %v", err)
		}
		size := frame.Size
		short := size != frame.ExpectedSize
		if short && (size != 32 || len(frame.Data) != 32) {
			t.Errorf("short frame size %d (%d bytes), want 32", size, len(frame.Data))
		}
		if err := cam.FreeImage(frame); err != nil {
			t.Fatalf("FreeImage: %v", err)
		}
		if short {
			break
		}
	}
	if faults := cam.Stats().Faults; faults == 0 {
		t.Error("stats recorded no faults")
	}
}

func TestVendorHandlerFallback(t *testing.T) {
	sim := New(WithVendorHandler(func(req evk.VendorRequest, data []byte) (int, error) {
		if req.Command == 0xE0 && len(data) > 0 {
			data[0] = 0x5A
			return 1, nil
		}
		return 0, fmt.Errorf("unhandled command %#02x", req.Command)
	}))
	cam := openSimCamera(t, sim)

	out := make([]byte, 1)
	n, err := cam.SendVRCommand(0xE0, evk.VRDeviceToHost, 0, 0, out)
	if err != nil {
		t.Fatalf("SendVRCommand: %v", err)
	}
	if n != 1 || out[0] != 0x5A {
		t.Errorf("vendor reply %d bytes %#02x, want 1 byte 0x5A", n, out[0])
	}

	plain := openSimCamera(t, New())
	if _, err := plain.SendVRCommand(0xEE, evk.VRDeviceToHost, 0, 0, out); evk.CodeOf(err) != evk.CodeVRCommandError {
		t.Errorf("unmodeled command: code %v, want VRCommandError", evk.CodeOf(err))
	}
}

func TestEnumeratorRefreshDiff(t *testing.T) {
	first := New()
	enum := NewEnumerator(first)
	list := evk.NewDeviceList(enum)

	type notice struct {
		code   evk.EventCode
		serial string
	}
	var notices []notice
	err := list.RegisterEventCallback(func(code evk.EventCode, dev *evk.Device) {
		notices = append(notices, notice{code, dev.Serial})
	})
	if err != nil {
		t.Fatalf("RegisterEventCallback: %v", err)
	}

	if err := list.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if list.Len() != 1 {
		t.Fatalf("devices = %d, want 1", list.Len())
	}

	second := New(WithInfo(evk.TransportInfo{
		VendorID:  0xf055,
		ProductID: 0x0002,
		Serial:    "SIM0002",
		Path:      "sim-2",
		USBType:   evk.USBType3,
		Speed:     evk.SpeedSuper,
	}))
	enum.Attach(second)
	// No USB generation in the descriptor marks the arrival unknown.
	mystery := New(WithInfo(evk.TransportInfo{
		VendorID:  0xf055,
		ProductID: 0x0003,
		Serial:    "SIM0003",
		Path:      "sim-3",
		Speed:     evk.SpeedHigh,
	}))
	enum.Attach(mystery)
	if err := list.Refresh(); err != nil {
		t.Fatalf("Refresh after attach: %v", err)
	}
	if list.Len() != 3 {
		t.Fatalf("devices = %d, want 3", list.Len())
	}

	enum.Detach(first)
	if err := list.Refresh(); err != nil {
		t.Fatalf("Refresh after detach: %v", err)
	}
	if list.Len() != 2 {
		t.Fatalf("devices = %d, want 2", list.Len())
	}

	want := []notice{
		{evk.EventDeviceConnect, "SIM0001"},
		{evk.EventDeviceConnect, "SIM0002"},
		{evk.EventUnknownDeviceConnect, "SIM0003"},
		{evk.EventDeviceDisconnect, "SIM0001"},
	}
	if len(notices) != len(want) {
		t.Fatalf("got %d notices %v, want %d", len(notices), notices, len(want))
	}
	for i, n := range notices {
		if n != want[i] {
			t.Errorf("notice %d = %v/%q, want %v/%q", i, n.code, n.serial, want[i].code, want[i].serial)
		}
	}
}
