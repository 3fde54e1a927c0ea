package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/camnode/internal/events"
)

// Manager subscribes to camera state events and drives the system LED
// from the aggregate capture state: solid while any camera is
// delivering frames, heartbeat while the daemon is idle.
type Manager struct {
	controller  Controller
	eventBus    *events.Bus
	unsubscribe func()
	stopChan    chan struct{}
	logger      *slog.Logger
	capturing   map[string]bool // cameraID -> capturing
	capturingMu sync.RWMutex
}

// NewManager creates a new LED manager that reacts to camera state changes.
func NewManager(controller Controller, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		eventBus:   eventBus,
		stopChan:   make(chan struct{}),
		logger:     logger,
		capturing:  make(map[string]bool),
	}
}

// Start begins listening for camera state change events.
func (m *Manager) Start() {
	m.unsubscribe = m.eventBus.Subscribe(func(e events.CameraStateEvent) {
		m.handleEvent(e)
	})
	m.updateSystemLED()
	m.logger.Info("LED manager started")
}

// Stop stops the LED manager and unsubscribes from events.
func (m *Manager) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	close(m.stopChan)
	if err := m.controller.Set("system", false, PatternNone); err != nil {
		m.logger.Debug("Failed to clear system LED", "error", err)
	}
	m.logger.Info("LED manager stopped")
}

// handleEvent processes a single camera state change event.
func (m *Manager) handleEvent(event events.CameraStateEvent) {
	cameraID := event.GetCameraID()

	m.capturingMu.Lock()
	if event.State == "closed" {
		delete(m.capturing, cameraID)
	} else {
		m.capturing[cameraID] = event.IsCapturing()
	}
	m.capturingMu.Unlock()

	m.logger.Debug("Camera state changed",
		"camera_id", cameraID,
		"state", event.State,
		"capturing", event.IsCapturing())

	m.updateSystemLED()
}

// updateSystemLED sets the system LED pattern from the aggregate state.
func (m *Manager) updateSystemLED() {
	m.capturingMu.RLock()
	anyCapturing := false
	for _, capturing := range m.capturing {
		if capturing {
			anyCapturing = true
			break
		}
	}
	m.capturingMu.RUnlock()

	if anyCapturing {
		if err := m.controller.Set("system", true, PatternSolid); err != nil {
			m.logger.Warn("Failed to set system LED to solid", "error", err)
		}
		m.logger.Debug("Capture active, system LED set to solid")
		return
	}

	if err := m.controller.Set("system", true, PatternHeartbeat); err != nil {
		m.logger.Warn("Failed to set system LED to heartbeat", "error", err)
	}
	m.logger.Debug("No capture active, system LED set to heartbeat")
}

// GetController returns the underlying LED controller for direct access.
func (m *Manager) GetController() Controller {
	return m.controller
}
