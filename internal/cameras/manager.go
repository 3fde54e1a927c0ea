// Package cameras tracks every opened camera session in the daemon.
// The manager owns the device list, hands out UUID session IDs, and
// re-publishes camera lifecycle events on the shared bus. Auto-open
// rules come from the profile store: a matching profile can open,
// initialize and start a board the moment it is plugged in.
package cameras

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/smazurov/camnode/internal/api/models"
	"github.com/smazurov/camnode/internal/config"
	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/pkg/evk"
)

var (
	// ErrCameraNotFound means no session carries the requested ID.
	ErrCameraNotFound = errors.New("camera not found")
	// ErrDeviceNotFound means the device key matched nothing attached.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrDeviceBusy means another session already holds the device.
	ErrDeviceBusy = errors.New("device already open")
)

// Options configures a Manager.
type Options struct {
	// Enumerator discovers attachable devices. Required.
	Enumerator evk.Enumerator
	// Bus receives discovery, state and fault events. Required.
	Bus *events.Bus
	// Profiles drives auto-open on hotplug. Optional.
	Profiles *config.ProfileStore
	// ConfigDir anchors relative camera description paths.
	ConfigDir string
	// AutoOpen enables profile-driven opening of arriving devices.
	AutoOpen bool
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Manager is the camera session registry.
type Manager struct {
	list      *evk.DeviceList
	bus       *events.Bus
	profiles  *config.ProfileStore
	configDir string
	autoOpen  bool
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session // by session ID
	byDevice map[string]*Session // by device key
}

// NewManager builds the registry and wires device arrival handling
// onto the enumerator's device list. Call Refresh (or WatchHotplug)
// to populate it.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		list:      evk.NewDeviceList(opts.Enumerator),
		bus:       opts.Bus,
		profiles:  opts.Profiles,
		configDir: opts.ConfigDir,
		autoOpen:  opts.AutoOpen,
		logger:    logger,
		sessions:  make(map[string]*Session),
		byDevice:  make(map[string]*Session),
	}
	// The device list invokes this once per arrival and departure
	// found by Refresh.
	if err := m.list.RegisterEventCallback(m.handleDeviceEvent); err != nil {
		logger.Error("Failed to register device callback", "error", err)
	}
	return m
}

// Refresh re-enumerates attached devices, firing discovery events for
// the diff against the previous snapshot.
func (m *Manager) Refresh() error {
	return m.list.Refresh()
}

// Devices returns the attached devices, flagging the ones held by a
// session. The slice is sorted by device key for stable output.
func (m *Manager) Devices() []models.DeviceInfo {
	devices := m.list.Devices()
	infos := make([]models.DeviceInfo, 0, len(devices))

	m.mu.RLock()
	for _, dev := range devices {
		info := deviceInfo(dev)
		if session := m.byDevice[dev.Path]; session != nil {
			info.Open = true
			info.CameraID = session.ID()
		}
		infos = append(infos, info)
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].DeviceID < infos[j].DeviceID })
	return infos
}

// OpenParams describes an open request.
type OpenParams struct {
	// DeviceID is the stable device key from the device list.
	DeviceID string
	// ConfigFile is the camera description file, resolved against
	// ConfigDir when relative. Optional; the camera opens
	// unconfigured without it.
	ConfigFile string
	// BufferCount overrides the frame arena depth, 0 for default.
	BufferCount int
	// Init brings the sensor up right after opening.
	Init bool
	// Profile records which auto-open profile produced the session.
	Profile string
}

// Open claims the device and registers a new session for it.
func (m *Manager) Open(params OpenParams) (*Session, error) {
	dev := m.findDevice(params.DeviceID)
	if dev == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, params.DeviceID)
	}

	m.mu.Lock()
	if holder, ok := m.byDevice[dev.Path]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s held by camera %s", ErrDeviceBusy, dev.Path, holder.ID())
	}
	// Reserve the key while the USB open runs unlocked.
	m.byDevice[dev.Path] = nil
	m.mu.Unlock()

	session, err := m.openSession(dev, params)

	m.mu.Lock()
	if err != nil {
		delete(m.byDevice, dev.Path)
		m.mu.Unlock()
		return nil, err
	}
	m.byDevice[dev.Path] = session
	m.sessions[session.id] = session
	m.mu.Unlock()

	m.logger.Info("Camera opened",
		"camera_id", session.id,
		"device_id", session.deviceID,
		"config_file", params.ConfigFile,
		"profile", params.Profile)

	session.mu.Lock()
	session.publishState()
	session.mu.Unlock()

	if params.Init {
		if initErr := session.Init(); initErr != nil {
			m.logger.Error("Init after open failed", "camera_id", session.id, "error", initErr)
			_ = m.Close(session.id)
			return nil, initErr
		}
	}
	return session, nil
}

func (m *Manager) openSession(dev *evk.Device, params OpenParams) (*Session, error) {
	param := evk.DefaultOpenParam()
	param.Device = dev
	param.BufferCount = params.BufferCount
	param.Logger = m.logger
	if params.ConfigFile != "" {
		param.ConfigFile = m.resolveConfigPath(params.ConfigFile)
	}

	camera, err := evk.Open(param)
	if err != nil {
		return nil, err
	}

	session := &Session{
		id:         uuid.NewString(),
		deviceID:   dev.Path,
		profile:    params.Profile,
		configFile: params.ConfigFile,
		camera:     camera,
		bus:        m.bus,
		logger:     m.logger,
	}
	if err := camera.RegisterEventCallback(session.handleCameraEvent); err != nil {
		m.logger.Warn("Camera event callback rejected", "camera_id", session.id, "error", err)
	}
	if param.ConfigFile != "" {
		session.watchConfig(param.ConfigFile)
	}
	return session, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(cameraID string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[cameraID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCameraNotFound, cameraID)
	}
	return session, nil
}

// List returns every session sorted by ID.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].id < sessions[j].id })
	return sessions
}

// Snapshots returns the stats of every session. The metrics pump
// polls this.
func (m *Manager) Snapshots() []models.StatsData {
	sessions := m.List()
	snapshots := make([]models.StatsData, 0, len(sessions))
	for _, s := range sessions {
		snapshots = append(snapshots, s.Snapshot())
	}
	return snapshots
}

// Close tears down the session and releases its device.
func (m *Manager) Close(cameraID string) error {
	m.mu.Lock()
	session, ok := m.sessions[cameraID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCameraNotFound, cameraID)
	}
	delete(m.sessions, cameraID)
	delete(m.byDevice, session.deviceID)
	m.mu.Unlock()

	err := session.close()
	m.logger.Info("Camera closed", "camera_id", cameraID, "device_id", session.deviceID)
	return err
}

// CloseAll closes every session, used at daemon shutdown. Errors are
// logged, not returned; shutdown continues regardless.
func (m *Manager) CloseAll() {
	for _, session := range m.List() {
		if err := m.Close(session.id); err != nil {
			m.logger.Error("Close during shutdown failed", "camera_id", session.id, "error", err)
		}
	}
}

func (m *Manager) findDevice(deviceID string) *evk.Device {
	for _, dev := range m.list.Devices() {
		if dev.Path == deviceID {
			return dev
		}
	}
	return nil
}

func (m *Manager) resolveConfigPath(path string) string {
	if filepath.IsAbs(path) || m.configDir == "" {
		return path
	}
	return filepath.Join(m.configDir, path)
}

func deviceInfo(dev *evk.Device) models.DeviceInfo {
	return models.DeviceInfo{
		DeviceID:  dev.Path,
		VendorID:  fmt.Sprintf("%04x", dev.VendorID),
		ProductID: fmt.Sprintf("%04x", dev.ProductID),
		Serial:    dev.Serial,
		USBType:   evk.USBTypeName(dev.USBType),
		Speed:     dev.Speed.String(),
	}
}
