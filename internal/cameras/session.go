package cameras

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/camnode/internal/api/models"
	"github.com/smazurov/camnode/internal/config"
	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/pkg/evk"
)

// Session is one opened camera bound to a device. It wraps the SDK
// camera with the daemon-side identity (UUID, profile) and publishes
// state transitions and transfer faults on the event bus.
type Session struct {
	id         string
	deviceID   string
	profile    string
	configFile string

	camera *evk.Camera
	bus    *events.Bus
	logger *slog.Logger

	mu        sync.Mutex // serializes grabs and lifecycle transitions
	startedAt time.Time

	watcher     *config.Watcher[*evk.ConfigFile]
	stopWatcher func()
}

// ID returns the session identifier assigned at open.
func (s *Session) ID() string { return s.id }

// DeviceID returns the stable device key the session holds.
func (s *Session) DeviceID() string { return s.deviceID }

// Camera exposes the underlying SDK camera for register and control
// passthrough. The camera's own locking makes this safe alongside
// session operations.
func (s *Session) Camera() *evk.Camera { return s.camera }

// State returns the camera lifecycle state.
func (s *Session) State() evk.State { return s.camera.State() }

// Info builds the API view of the session.
func (s *Session) Info() models.CameraInfo {
	info := models.CameraInfo{
		CameraID:   s.id,
		DeviceID:   s.deviceID,
		State:      s.camera.State().String(),
		ConfigFile: s.configFile,
		Profile:    s.profile,
		USBType:    s.camera.USBType(),
	}
	if mode, ok := s.camera.ActiveMode(); ok {
		mi := modeInfo(mode, true)
		info.Mode = &mi
	}
	s.mu.Lock()
	info.StartTime = s.startedAt
	s.mu.Unlock()
	return info
}

// Snapshot returns the capture counters plus uptime for the stats API
// and the metrics pump.
func (s *Session) Snapshot() models.StatsData {
	st := s.camera.Stats()
	data := models.StatsData{
		CameraID:    s.id,
		State:       s.camera.State().String(),
		Frames:      st.Frames,
		Bytes:       st.Bytes,
		Drops:       st.Drops,
		Faults:      st.Faults,
		Outstanding: st.Outstanding,
		Queued:      st.Queued,
		FPS:         st.FPS,
		Bandwidth:   st.Bandwidth,
	}
	s.mu.Lock()
	if !s.startedAt.IsZero() {
		data.StartTime = s.startedAt
		data.Uptime = time.Since(s.startedAt)
	}
	s.mu.Unlock()
	return data
}

// Init brings the sensor up.
func (s *Session) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.camera.Init(); err != nil {
		return err
	}
	s.publishState()
	return nil
}

// Start begins streaming frames.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.camera.Start(); err != nil {
		return err
	}
	s.startedAt = time.Now()
	s.publishState()
	return nil
}

// Stop halts streaming. Pending captures on the camera wake with a
// state error.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.camera.Stop(); err != nil {
		return err
	}
	s.publishState()
	return nil
}

// Grab captures one fresh frame and returns a private copy of its
// payload. The queue is drained first so the result reflects the
// sensor now rather than the oldest backlog entry. The context
// deadline caps the wait when it is sooner than timeout.
func (s *Session) Grab(ctx context.Context, timeout time.Duration) (*GrabResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if err := s.camera.ClearBuffer(); err != nil {
		return nil, err
	}
	frame, err := s.camera.Capture(timeout)
	if err != nil {
		return nil, err
	}

	data := make([]byte, len(frame.Data))
	copy(data, frame.Data)
	result := &GrabResult{
		Seq:       frame.Seq,
		Timestamp: frame.Timestamp,
		Format:    s.camera.Config().FrameFormat(),
		Data:      data,
	}
	if freeErr := s.camera.FreeImage(frame); freeErr != nil {
		s.logger.Warn("Failed to return grabbed frame", "camera_id", s.id, "error", freeErr)
	}
	return result, nil
}

// GrabResult is one captured frame detached from the camera's buffer
// arena. Data is owned by the caller. Timestamp is the raw stamp in
// whatever time source the camera is configured for.
type GrabResult struct {
	Seq       uint32
	Timestamp uint64
	Format    evk.FrameFormat
	Data      []byte
}

// close tears the session down. The manager removes it from the
// registry before calling this.
func (s *Session) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopWatcher != nil {
		s.stopWatcher()
		s.stopWatcher = nil
	}
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Debug("Config watcher stop failed", "camera_id", s.id, "error", err)
		}
		s.watcher = nil
	}

	err := s.camera.Close()
	s.publishState()
	return err
}

// publishState emits the current lifecycle state. Callers hold s.mu.
func (s *Session) publishState() {
	state := s.camera.State()
	s.bus.Publish(events.CameraStateEvent{
		CameraID:  s.id,
		DeviceID:  s.deviceID,
		State:     state.String(),
		Capturing: state == evk.StateStarted,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCameraEvent re-publishes SDK events on the bus. Runs on the
// camera's event goroutine, so it must not block.
func (s *Session) handleCameraEvent(ev evk.Event) {
	if !ev.Code.IsTransferFault() {
		return
	}
	errText := ""
	if ev.Err != nil {
		errText = ev.Err.Error()
	}
	s.logger.Warn("Transfer fault",
		"camera_id", s.id,
		"kind", ev.Code.String(),
		"seq", ev.Seq,
		"error", errText)
	s.bus.Publish(events.TransferFaultEvent{
		CameraID:  s.id,
		DeviceID:  s.deviceID,
		Kind:      ev.Code.String(),
		Seq:       ev.Seq,
		Error:     errText,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// watchConfig hot-reloads the camera description file. Only controls
// are re-applied live; structural fields (resolution, format) need a
// close and re-open.
func (s *Session) watchConfig(path string) {
	watcher := config.NewConfigWatcher(path, evk.LoadConfigFile, s.logger)
	s.stopWatcher = watcher.OnReload(s.applyReloadedConfig)
	if err := watcher.Start(); err != nil {
		s.logger.Warn("Config file watching unavailable", "path", path, "error", err)
		s.stopWatcher()
		s.stopWatcher = nil
		return
	}
	s.watcher = watcher
}

func (s *Session) applyReloadedConfig(cf *evk.ConfigFile) {
	active, ok := s.camera.ActiveMode()
	if !ok {
		return
	}
	for _, mode := range cf.Modes {
		if mode.ID != active.ID {
			continue
		}
		if err := s.camera.RegisterCtrls(mode.Controls); err != nil {
			s.logger.Warn("Failed to re-apply controls after reload",
				"camera_id", s.id, "error", err)
			return
		}
		s.logger.Info("Controls re-applied from changed description file",
			"camera_id", s.id, "controls", len(mode.Controls))
		return
	}
}

func modeInfo(mode evk.Mode, active bool) models.ModeInfo {
	return models.ModeInfo{
		ModeID:   mode.ID,
		Name:     mode.Config.Name,
		Width:    mode.Config.Width,
		Height:   mode.Config.Height,
		BitWidth: mode.Config.BitWidth,
		Format:   mode.Config.Format.String(),
		Active:   active,
	}
}
