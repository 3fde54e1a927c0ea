// Package evksim provides an in-process Transport: synthetic frames
// at a configurable rate, a register file speaking the vendor request
// protocol, persistent userdata and injectable transfer faults. It
// backs the test suite and the daemon's demo mode.
package evksim

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smazurov/camnode/pkg/evk"
)

var (
	errNotOpen      = errors.New("simulator not open")
	errNotStreaming = errors.New("simulator not streaming")
	errStopped      = errors.New("stream stopped")
)

type regKey struct {
	mode evk.I2CMode
	chip uint32
	reg  uint32
}

// Simulator implements evk.Transport without hardware.
type Simulator struct {
	mu        sync.Mutex
	info      evk.TransportInfo
	interval  time.Duration
	vrHandler func(req evk.VendorRequest, data []byte) (int, error)

	opened    bool
	streaming bool
	stopped   chan struct{}
	regs      map[regKey]uint32
	userdata  [evk.UserdataSize]byte
	faults    []evk.EventCode
	seq       uint32
	epoch     time.Time
}

// Option adjusts a Simulator at construction.
type Option func(*Simulator)

// WithFrameInterval sets the synthetic frame period. Default 33 ms.
func WithFrameInterval(d time.Duration) Option {
	return func(s *Simulator) { s.interval = d }
}

// WithInfo replaces the simulated device identity.
func WithInfo(info evk.TransportInfo) Option {
	return func(s *Simulator) { s.info = info }
}

// WithRegister preloads one sensor register.
func WithRegister(mode evk.I2CMode, chip, reg, val uint32) Option {
	return func(s *Simulator) { s.regs[regKey{mode, chip, reg}] = val }
}

// WithVendorHandler installs a fallback for vendor request commands
// the simulator does not model itself.
func WithVendorHandler(fn func(req evk.VendorRequest, data []byte) (int, error)) Option {
	return func(s *Simulator) { s.vrHandler = fn }
}

// New builds a simulator presenting as a SuperSpeed USB 3 board. The
// default identity uses the community vendor ID reserved for virtual
// devices.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		info: evk.TransportInfo{
			VendorID:  0xf055,
			ProductID: 0x0001,
			Serial:    "SIM0001",
			Path:      "sim-1",
			USBType:   evk.USBType3,
			Speed:     evk.SpeedSuper,
		},
		interval: 33 * time.Millisecond,
		regs:     make(map[regKey]uint32),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Entry wraps the simulator as an enumeration entry so it can be
// opened like a discovered device.
func (s *Simulator) Entry() *evk.Device {
	return evk.NewDevice(s.info, func() (evk.Transport, error) { return s, nil })
}

func (s *Simulator) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return errors.New("simulator already open")
	}
	s.opened = true
	return nil
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streaming {
		close(s.stopped)
		s.streaming = false
	}
	s.opened = false
	return nil
}

func (s *Simulator) Info() evk.TransportInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

func (s *Simulator) StartStream(cfg evk.StreamConfig) error {
	if cfg.TransferCount <= 0 || cfg.TransferSize <= 0 {
		return fmt.Errorf("bad transfer geometry %dx%d", cfg.TransferCount, cfg.TransferSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return errNotOpen
	}
	if s.streaming {
		return errors.New("simulator already streaming")
	}
	s.streaming = true
	s.stopped = make(chan struct{})
	s.epoch = time.Now()
	return nil
}

func (s *Simulator) StopStream() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.streaming {
		return nil
	}
	close(s.stopped)
	s.streaming = false
	return nil
}

// InjectFault queues a transfer fault for an upcoming frame. Length
// faults deliver a half-filled frame; the others deliver nothing.
func (s *Simulator) InjectFault(code evk.EventCode) {
	s.mu.Lock()
	s.faults = append(s.faults, code)
	s.mu.Unlock()
}

// ReadFrame produces the next synthetic frame after the configured
// interval. Frames carry a recognizable header (sequence number) so
// tests can assert ordering.
func (s *Simulator) ReadFrame(ctx context.Context, buf []byte) (evk.FrameInfo, error) {
	s.mu.Lock()
	if !s.streaming {
		s.mu.Unlock()
		return evk.FrameInfo{}, errNotStreaming
	}
	stopped := s.stopped
	seq := s.seq
	s.seq++
	var fault evk.EventCode
	if len(s.faults) > 0 {
		fault = s.faults[0]
		s.faults = s.faults[1:]
	}
	interval := s.interval
	epoch := s.epoch
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return evk.FrameInfo{}, ctx.Err()
	case <-stopped:
		return evk.FrameInfo{}, errStopped
	case <-time.After(interval):
	}

	fillPattern(buf, seq)
	info := evk.FrameInfo{
		Size:      len(buf),
		Timestamp: uint64(time.Since(epoch).Nanoseconds() / 100),
	}
	switch fault {
	case 0:
	case evk.EventTransferLengthError:
		info.Size = len(buf) / 2
		info.Fault = &evk.TransferFault{Event: fault}
	default:
		info.Size = 0
		info.Fault = &evk.TransferFault{Event: fault}
	}
	return info, nil
}

// fillPattern writes the frame sequence number into the first four
// bytes and a rolling gradient after it.
func fillPattern(buf []byte, seq uint32) {
	if len(buf) >= 4 {
		binary.BigEndian.PutUint32(buf, seq)
	}
	for i := 4; i < len(buf); i++ {
		buf[i] = byte(i + int(seq))
	}
}

// FrameSeq decodes the sequence number fillPattern stamped into a
// frame payload.
func FrameSeq(data []byte) uint32 {
	if len(data) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(data)
}

// VendorRequest models the bridge firmware's control plane: the I2C
// register file and the userdata window. Unknown commands go to the
// configured fallback handler.
func (s *Simulator) VendorRequest(req evk.VendorRequest, data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return 0, errNotOpen
	}
	switch req.Command {
	case evk.VRCmdI2CRead, evk.VRCmdI2CWrite:
		return s.i2c(req, data)
	case evk.VRCmdUserdataRead:
		addr, n := int(req.Value), int(req.Index)
		if addr+n > len(s.userdata) || n > len(data) {
			return 0, fmt.Errorf("userdata read out of range: %d+%d", addr, n)
		}
		copy(data[:n], s.userdata[addr:addr+n])
		return n, nil
	case evk.VRCmdUserdataWrite:
		addr, n := int(req.Value), int(req.Index)
		if addr+n > len(s.userdata) || n > len(data) {
			return 0, fmt.Errorf("userdata write out of range: %d+%d", addr, n)
		}
		copy(s.userdata[addr:addr+n], data[:n])
		return n, nil
	}
	if s.vrHandler != nil {
		return s.vrHandler(req, data)
	}
	return 0, fmt.Errorf("unsupported vendor request %#02x", req.Command)
}

func (s *Simulator) i2c(req evk.VendorRequest, data []byte) (int, error) {
	key := regKey{
		mode: evk.I2CMode(req.Value >> 8),
		chip: uint32(req.Value & 0xff),
		reg:  uint32(req.Index),
	}
	width := (key.mode.DataBits() + 7) / 8
	if len(data) < width {
		return 0, fmt.Errorf("i2c payload %d bytes, need %d", len(data), width)
	}
	if req.Command == evk.VRCmdI2CWrite {
		var val uint32
		for _, b := range data[:width] {
			val = val<<8 | uint32(b)
		}
		s.regs[key] = val
		return width, nil
	}
	val := s.regs[key]
	for i := width - 1; i >= 0; i-- {
		data[i] = byte(val)
		val >>= 8
	}
	return width, nil
}

// Reg exposes the register file for assertions.
func (s *Simulator) Reg(mode evk.I2CMode, chip, reg uint32) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.regs[regKey{mode, chip, reg}]
	return val, ok
}

// Userdata returns a copy of the persistent window.
func (s *Simulator) Userdata() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.userdata))
	copy(out, s.userdata[:])
	return out
}
