package evkusb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/gousb"

	"github.com/smazurov/camnode/pkg/evk"
)

const (
	// epStream is the bulk IN endpoint the bridge streams frames on.
	epStream = 1

	// Bridge transfer engine control requests.
	vrStreamStart uint8 = 0xD8
	vrStreamStop  uint8 = 0xD9
)

// Transport drives one bridge board over libusb. The USB context is
// borrowed from the Enumerator that produced the entry.
type Transport struct {
	ctx  *gousb.Context
	desc *gousb.DeviceDesc

	mu     sync.Mutex
	info   evk.TransportInfo
	dev    *gousb.Device
	intf   *gousb.Interface
	done   func()
	stream *gousb.ReadStream
}

func newTransport(ctx *gousb.Context, desc *gousb.DeviceDesc, info evk.TransportInfo) *Transport {
	return &Transport{ctx: ctx, desc: desc, info: info}
}

// Open claims the device at the bus position captured during
// enumeration and fills in the serial number.
func (t *Transport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev != nil {
		return errors.New("transport already open")
	}
	devs, err := t.ctx.OpenDevices(func(d *gousb.DeviceDesc) bool {
		return d.Bus == t.desc.Bus && d.Address == t.desc.Address
	})
	if len(devs) == 0 {
		if err != nil {
			return fmt.Errorf("open usb device: %w", err)
		}
		return errors.New("device is gone")
	}
	dev := devs[0]
	for _, extra := range devs[1:] {
		extra.Close()
	}
	// Kernel drivers occasionally claim vendor-class boards; detach
	// failures only matter on platforms without that problem.
	dev.SetAutoDetach(true)
	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		return fmt.Errorf("claim interface: %w", err)
	}
	if serial, serr := dev.SerialNumber(); serr == nil {
		t.info.Serial = serial
	}
	t.dev, t.intf, t.done = dev, intf, done
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	stream := t.stream
	t.stream = nil
	t.mu.Unlock()
	if stream != nil {
		stream.Close()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev == nil {
		return nil
	}
	if t.done != nil {
		t.done()
	}
	err := t.dev.Close()
	t.dev, t.intf, t.done = nil, nil, nil
	return err
}

func (t *Transport) Info() evk.TransportInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.info
}

// StartStream arms the bridge transfer engine and allocates the bulk
// transfer ring.
func (t *Transport) StartStream(cfg evk.StreamConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev == nil {
		return errors.New("transport not open")
	}
	if t.stream != nil {
		return errors.New("stream already started")
	}
	arm := evk.VendorRequest{
		Command:   vrStreamStart,
		Direction: evk.VRHostToDevice,
		Value:     uint16(cfg.MemType),
	}
	if _, err := t.control(arm, nil); err != nil {
		return fmt.Errorf("arm transfer engine: %w", err)
	}
	ep, err := t.intf.InEndpoint(epStream)
	if err != nil {
		return fmt.Errorf("stream endpoint: %w", err)
	}
	stream, err := ep.NewStream(cfg.TransferSize, cfg.TransferCount)
	if err != nil {
		return fmt.Errorf("allocate transfer ring: %w", err)
	}
	t.stream = stream
	return nil
}

// StopStream tears the ring down first so a blocked ReadFrame
// returns, then disarms the bridge engine.
func (t *Transport) StopStream() error {
	t.mu.Lock()
	stream := t.stream
	t.stream = nil
	t.mu.Unlock()
	if stream == nil {
		return nil
	}
	err := stream.Close()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev != nil {
		disarm := evk.VendorRequest{Command: vrStreamStop, Direction: evk.VRHostToDevice}
		if _, derr := t.control(disarm, nil); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}

// ReadFrame assembles one frame from the transfer ring. Transfer
// faults are attached to the result rather than returned as errors so
// partial frames survive for force capture.
func (t *Transport) ReadFrame(ctx context.Context, buf []byte) (evk.FrameInfo, error) {
	t.mu.Lock()
	stream := t.stream
	t.mu.Unlock()
	if stream == nil {
		return evk.FrameInfo{}, errors.New("stream not started")
	}
	filled := 0
	for filled < len(buf) {
		if err := ctx.Err(); err != nil {
			return evk.FrameInfo{}, err
		}
		n, err := stream.Read(buf[filled:])
		filled += n
		if err != nil {
			if ctx.Err() != nil {
				return evk.FrameInfo{}, ctx.Err()
			}
			if fault := classifyFault(err); fault != nil {
				return evk.FrameInfo{Size: filled, Fault: fault}, nil
			}
			return evk.FrameInfo{}, fmt.Errorf("stream read: %w", err)
		}
	}
	return evk.FrameInfo{Size: filled}, nil
}

func classifyFault(err error) *evk.TransferFault {
	var status gousb.TransferStatus
	if !errors.As(err, &status) {
		return nil
	}
	switch status {
	case gousb.TransferTimedOut:
		return &evk.TransferFault{Event: evk.EventTransferTimeout, Err: err}
	case gousb.TransferOverflow:
		return &evk.TransferFault{Event: evk.EventTransferLengthError, Err: err}
	case gousb.TransferError, gousb.TransferStall:
		return &evk.TransferFault{Event: evk.EventTransferError, Err: err}
	default:
		return nil
	}
}

// VendorRequest performs one control transfer on the default control
// endpoint.
func (t *Transport) VendorRequest(req evk.VendorRequest, data []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev == nil {
		return 0, errors.New("transport not open")
	}
	return t.control(req, data)
}

func (t *Transport) control(req evk.VendorRequest, data []byte) (int, error) {
	rType := uint8(gousb.ControlVendor | gousb.ControlDevice)
	if req.Direction == evk.VRDeviceToHost {
		rType |= uint8(gousb.ControlIn)
	} else {
		rType |= uint8(gousb.ControlOut)
	}
	n, err := t.dev.Control(rType, req.Command, req.Value, req.Index, data)
	if err != nil {
		return n, fmt.Errorf("vendor request %#02x: %w", req.Command, err)
	}
	return n, nil
}
