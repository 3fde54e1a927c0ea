package led

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/camnode/internal/events"
)

// Mock controller for testing
type mockController struct {
	mu       sync.Mutex
	setCalls []setCall
}

type setCall struct {
	ledType string
	enabled bool
	pattern string
}

func (m *mockController) Set(ledType string, enabled bool, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls = append(m.setCalls, setCall{ledType, enabled, pattern})
	return nil
}

func (m *mockController) Available() []string {
	return []string{"system", "user"}
}

func (m *mockController) Patterns() []string {
	return []string{"solid", "blink", "heartbeat"}
}

func (m *mockController) lastCall() (setCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.setCalls) == 0 {
		return setCall{}, false
	}
	return m.setCalls[len(m.setCalls)-1], true
}

func stateEvent(cameraID, state string, capturing bool) events.CameraStateEvent {
	return events.CameraStateEvent{
		CameraID:  cameraID,
		DeviceID:  "1-2",
		State:     state,
		Capturing: capturing,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func TestManager_CaptureActive(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)
	mgr.Start()
	defer mgr.Stop()

	eventBus.Publish(stateEvent("cam1", "initialized", false))
	eventBus.Publish(stateEvent("cam1", "started", true))

	// Give the bus time to dispatch
	time.Sleep(50 * time.Millisecond)

	last, ok := ctrl.lastCall()
	if !ok {
		t.Fatal("No LED control calls made")
	}
	if last.pattern != "solid" {
		t.Errorf("Expected solid pattern while capturing, got %q", last.pattern)
	}
	if !last.enabled {
		t.Error("Expected LED enabled while capturing")
	}
}

func TestManager_CaptureStopped(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)
	mgr.Start()
	defer mgr.Stop()

	eventBus.Publish(stateEvent("cam1", "started", true))
	eventBus.Publish(stateEvent("cam2", "started", true))
	eventBus.Publish(stateEvent("cam1", "stopped", false))
	eventBus.Publish(stateEvent("cam2", "stopped", false))

	time.Sleep(50 * time.Millisecond)

	last, ok := ctrl.lastCall()
	if !ok {
		t.Fatal("No LED control calls made")
	}
	if last.pattern != "heartbeat" {
		t.Errorf("Expected heartbeat pattern when nothing captures, got %q", last.pattern)
	}
}

func TestManager_CameraClosedForgotten(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)
	mgr.Start()
	defer mgr.Stop()

	eventBus.Publish(stateEvent("cam1", "started", true))
	eventBus.Publish(stateEvent("cam1", "closed", false))

	time.Sleep(50 * time.Millisecond)

	mgr.capturingMu.RLock()
	_, tracked := mgr.capturing["cam1"]
	mgr.capturingMu.RUnlock()
	if tracked {
		t.Error("Closed camera still tracked")
	}

	last, ok := ctrl.lastCall()
	if !ok {
		t.Fatal("No LED control calls made")
	}
	if last.pattern != "heartbeat" {
		t.Errorf("Expected heartbeat pattern after close, got %q", last.pattern)
	}
}

func TestManager_GetController(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)

	if got := mgr.GetController(); got != ctrl {
		t.Error("GetController() did not return the original controller")
	}
}
