// Package evk is a host-side SDK for EVK-class USB camera evaluation
// kits: device enumeration, camera lifecycle, the frame exchange
// between the capture engine and callers, sensor register access and
// board I/O.
//
// A camera moves through Closed -> Opened -> Initialized -> Started
// <-> Stopped -> Closed. Frames are exchanged through a queue pair: a
// producer goroutine fills buffers from the transport and queues them;
// callers take them with Capture (or a registered callback) and give
// the buffers back with FreeImage.
package evk

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const defaultBufferCount = 4

var errNoConfiguration = errors.New("no configuration loaded or set")

// OpenParam carries everything Open needs to bind a camera.
type OpenParam struct {
	// ConfigFile is the camera description file, text or binary.
	ConfigFile string
	// ExtConfigFile overlays extra registers and controls onto the
	// main description.
	ExtConfigFile string
	// BinConfig forces the binary decoder regardless of content
	// sniffing.
	BinConfig bool
	// MemType selects the board-side staging memory. Defaults to DMA.
	MemType MemType
	// Device selects which attached device to open. Optional when
	// Transport is set directly.
	Device *Device
	// Transport overrides device-based transport construction,
	// mainly for simulated devices and tests.
	Transport Transport
	// Logger receives SDK diagnostics. Defaults to a console logger
	// honoring EVK_LOG_LEVEL.
	Logger *slog.Logger
	// BufferCount overrides the frame arena depth.
	BufferCount int
}

// DefaultOpenParam returns the parameter defaults, matching a plain
// DMA-backed open.
func DefaultOpenParam() OpenParam {
	return OpenParam{MemType: MemTypeDMA}
}

// Camera is one opened device. All methods are safe for concurrent
// use; blocking capture calls wake promptly when Stop runs.
type Camera struct {
	mu sync.Mutex

	state State
	tr    Transport
	dev   *Device
	log   *slog.Logger

	cfg        CameraConfig
	cfgLoaded  bool
	cfgManual  bool
	binLoaded  bool
	modes      []Mode
	activeMode int

	controls []Control

	memType       MemType
	transferCount int
	transferSize  int
	autoTransfer  bool
	bufferCount   int

	timeSource   atomic.Int32
	forceCapture atomic.Bool

	cbMu      sync.RWMutex
	captureCB CaptureCallback
	eventCB   EventCallback

	sess  *session
	stats *captureStats
}

// session is the per-Start capture state. Its fields are immutable
// after creation so the worker goroutines never need the camera
// mutex.
type session struct {
	queue        *frameQueue
	arena        *bufferArena
	events       chan Event
	cancel       context.CancelFunc
	captureDone  sync.WaitGroup
	eventDone    sync.WaitGroup
	expectedSize uint32
	format       FrameFormat
	stats        *captureStats
}

// Open binds a camera to a device (or an explicit transport), loads
// the description file if given and leaves the camera in Opened.
func Open(param OpenParam) (*Camera, error) {
	tr := param.Transport
	if tr == nil {
		if param.Device == nil {
			return nil, opErr("open", CodeInvalidArgument)
		}
		var err error
		tr, err = param.Device.open()
		if err != nil {
			return nil, wrapErr("open", CodeUnknownDeviceType, err)
		}
	}
	logger := param.Logger
	if logger == nil {
		logger = defaultLogger()
	}

	switch param.MemType {
	case 0, MemTypeDMA, MemTypeRAM:
	default:
		return nil, opErr("open", CodeInvalidArgument)
	}
	if param.BufferCount < 0 {
		return nil, opErr("open", CodeInvalidArgument)
	}

	if err := tr.Open(); err != nil {
		return nil, wrapErr("open", CodeOpenCameraFailed, err)
	}

	c := &Camera{
		state:        StateOpened,
		tr:           tr,
		dev:          param.Device,
		log:          logger,
		memType:      param.MemType,
		autoTransfer: true,
		bufferCount:  param.BufferCount,
		stats:        newCaptureStats(),
	}
	if c.memType == 0 {
		c.memType = MemTypeDMA
	}
	if c.bufferCount == 0 {
		c.bufferCount = defaultBufferCount
	}

	if param.ConfigFile != "" {
		file, err := loadDescription(param)
		if err != nil {
			tr.Close()
			return nil, err
		}
		c.modes = file.Modes
		c.cfg = file.Modes[0].Config
		c.cfgLoaded = true
		c.binLoaded = file.Binary
	}
	c.log.Debug("camera opened",
		"device", tr.Info().Serial,
		"config", param.ConfigFile,
		"mem", c.memType)
	return c, nil
}

func loadDescription(param OpenParam) (*ConfigFile, error) {
	var file *ConfigFile
	var err error
	if param.BinConfig {
		data, rerr := os.ReadFile(param.ConfigFile)
		if rerr != nil {
			return nil, wrapErr("load config", CodeReadConfigFileFailed, rerr)
		}
		file, err = ParseBinaryConfig(data)
	} else {
		file, err = LoadConfigFile(param.ConfigFile)
	}
	if err != nil {
		return nil, err
	}
	if len(file.Modes) == 0 {
		return nil, opErr("load config", CodeConfigFileEmpty)
	}
	if param.ExtConfigFile != "" {
		ext, eerr := LoadConfigFile(param.ExtConfigFile)
		if eerr != nil {
			return nil, eerr
		}
		file = mergeConfig(file, ext)
	}
	return file, nil
}

// Init programs the sensor with the active mode's register sequence
// and registers its controls. Requires a loaded or manually set
// configuration.
func (c *Camera) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpened {
		return opErr("init", CodeStateError)
	}
	if !c.cfgLoaded && !c.cfgManual {
		return wrapErr("init", CodeInitCameraFailed, errNoConfiguration)
	}
	if len(c.modes) > 0 {
		mode := c.modes[c.activeMode]
		if err := applyModeOn(c.tr, mode); err != nil {
			return wrapErr("init", CodeInitCameraFailed, err)
		}
		c.replaceControlsLocked(mode.Controls)
	}
	c.state = StateInitialized
	c.log.Info("camera initialized",
		"name", c.cfg.Name,
		"width", c.cfg.Width,
		"height", c.cfg.Height,
		"format", c.cfg.Format.String())
	return nil
}

// applyModeOn programs the sensor with a mode's register sequence
// using the mode's own I2C personality.
func applyModeOn(tr Transport, mode Mode) error {
	cfg := mode.Config
	for _, op := range mode.Registers {
		if err := writeRegOn(tr, cfg.I2CMode, uint32(cfg.I2CAddr), op.Addr, op.Value); err != nil {
			return err
		}
		if op.Delay > 0 {
			time.Sleep(op.Delay)
		}
	}
	return nil
}

// Start allocates the session arena, starts the transport stream and
// launches the producer and event goroutines.
func (c *Camera) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInitialized && c.state != StateStopped {
		return opErr("start", CodeStateError)
	}
	expected := c.cfg.ExpectedSize()
	if expected == 0 {
		return opErr("start", CodeStateError)
	}
	count, size := c.transferConfigLocked()
	err := c.tr.StartStream(StreamConfig{
		TransferCount: count,
		TransferSize:  size,
		MemType:       c.memType,
	})
	if err != nil {
		return wrapErr("start", CodeUnknownError, err)
	}

	c.stats = newCaptureStats()
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		queue:        newFrameQueue(),
		arena:        newBufferArena(c.bufferCount, int(expected)),
		events:       make(chan Event, eventQueueDepth),
		cancel:       cancel,
		expectedSize: expected,
		format:       c.cfg.FrameFormat(),
		stats:        c.stats,
	}
	c.sess = s
	s.captureDone.Add(1)
	go c.captureLoop(ctx, s)
	s.eventDone.Add(1)
	go c.eventLoop(s)
	c.state = StateStarted
	c.log.Info("capture started",
		"transfers", count,
		"transfer_size", size,
		"mem", c.memType,
		"buffers", c.bufferCount)
	return nil
}

// Stop is the cancellation primitive: it poisons the queue pair so
// every pending wait returns immediately, unblocks the transport read
// and joins both worker goroutines before declaring the camera
// stopped.
func (c *Camera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked()
}

func (c *Camera) stopLocked() error {
	if c.state != StateStarted {
		return opErr("stop", CodeStateError)
	}
	s := c.sess
	s.cancel()
	s.queue.close()
	s.arena.close()
	if err := c.tr.StopStream(); err != nil {
		c.log.Warn("transport stream stop failed", "error", err)
	}
	s.captureDone.Wait()
	s.postEvent(Event{Code: EventExit})
	close(s.events)
	s.eventDone.Wait()
	c.state = StateStopped
	c.log.Info("capture stopped", "frames", c.stats.snapshot().Frames)
	return nil
}

// Close releases the device. A running session is stopped first; the
// handle is unusable afterwards.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return opErr("close", CodeStateError)
	}
	if c.state == StateStarted {
		if err := c.stopLocked(); err != nil {
			return err
		}
	}
	if err := c.tr.Close(); err != nil {
		c.log.Warn("transport close failed", "error", err)
	}
	c.sess = nil
	c.state = StateClosed
	c.log.Debug("camera closed")
	return nil
}

// State reports the camera's lifecycle position.
func (c *Camera) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Device returns the device entry the camera was opened from, nil for
// transport-direct opens.
func (c *Camera) Device() *Device {
	return c.dev
}

// Config returns the active camera configuration.
func (c *Camera) Config() CameraConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SetConfig installs a manual configuration in place of a description
// file. Only legal before Init.
func (c *Camera) SetConfig(cfg CameraConfig) error {
	if err := cfg.validate(); err != nil {
		return wrapErr("set config", CodeConfigFormatError, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpened {
		return opErr("set config", CodeStateError)
	}
	c.cfg = cfg
	c.cfgManual = true
	return nil
}

// ConfigLoaded reports whether a description file was loaded at Open.
func (c *Camera) ConfigLoaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfgLoaded
}

// BinConfigLoaded reports whether the loaded description was binary,
// the precondition for SwitchMode.
func (c *Camera) BinConfigLoaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binLoaded
}

// SetTimeSource switches the clock domain used to stamp frames and
// announces the change with a SyncTime event when a session is live.
func (c *Camera) SetTimeSource(ts TimeSource) error {
	if ts != TimeSourceSystem && ts != TimeSourceFirmware {
		return opErr("set time source", CodeInvalidArgument)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return opErr("set time source", CodeStateError)
	}
	c.timeSource.Store(int32(ts))
	if c.state == StateStarted && c.sess != nil {
		c.sess.postEvent(Event{Code: EventSyncTime})
	}
	return nil
}

// TimeSource reports the active frame timestamp clock domain.
func (c *Camera) TimeSource() TimeSource {
	return TimeSource(c.timeSource.Load())
}

// Stats returns a snapshot of the current (or last) capture session.
func (c *Camera) Stats() Stats {
	c.mu.Lock()
	stats := c.stats
	s := c.sess
	state := c.state
	c.mu.Unlock()

	snap := stats.snapshot()
	if s != nil && state == StateStarted {
		snap.Queued = s.queue.len()
	}
	return snap
}

// CaptureFPS reports frames per second over the last completed rate
// window.
func (c *Camera) CaptureFPS() int {
	return c.Stats().FPS
}

// Bandwidth reports capture throughput in bytes per second over the
// last completed rate window.
func (c *Camera) Bandwidth() int {
	return c.Stats().Bandwidth
}

// USBTypeNumber reports the interface generation the board claims
// (USBType1..USBType3on2), 0 when closed.
func (c *Camera) USBTypeNumber() int {
	tr, err := c.transport("usb type")
	if err != nil {
		return 0
	}
	return int(tr.Info().USBType)
}

// USBType is the display form of USBTypeNumber.
func (c *Camera) USBType() string {
	tr, err := c.transport("usb type")
	if err != nil {
		return USBTypeName(0)
	}
	return USBTypeName(tr.Info().USBType)
}

// Speed reports the negotiated link speed.
func (c *Camera) Speed() USBSpeed {
	tr, err := c.transport("usb speed")
	if err != nil {
		return SpeedUnknown
	}
	return tr.Info().Speed
}

// CheckUSBType verifies the board's claimed interface generation
// against the negotiated link: a USB 3 board behind a slower link
// fails with the USB type mismatch, since transfers will underrun at
// full frame rates.
func (c *Camera) CheckUSBType() error {
	tr, err := c.transport("check usb type")
	if err != nil {
		return err
	}
	info := tr.Info()
	switch info.USBType {
	case USBType1, USBType2:
		return nil
	case USBType3:
		if info.Speed < SpeedSuper {
			return opErr("check usb type", CodeUSBTypeMismatch)
		}
		return nil
	case USBType3on2:
		return opErr("check usb type", CodeUSBTypeMismatch)
	default:
		return opErr("check usb type", CodeUnknownUSBType)
	}
}
