package events

import "github.com/smazurov/camnode/internal/api/models"

// Event type constants for kelindar/event.
const (
	TypeDeviceDiscovery uint32 = iota + 1
	TypeCameraState
	TypeCaptureStats
	TypeTransferFault
	TypeLogEntry
	TypeUpdateProgress
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// DeviceDiscoveryEvent represents device hotplug events.
type DeviceDiscoveryEvent struct {
	models.DeviceInfo
	Action    string `json:"action" example:"added" doc:"Action type: added, removed, changed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceDiscoveryEvent.
func (e DeviceDiscoveryEvent) Type() uint32 { return TypeDeviceDiscovery }

// CameraStateEvent represents a camera session lifecycle transition.
// Used for LED control and other reactive subsystems.
type CameraStateEvent struct {
	CameraID  string `json:"camera_id" example:"7b1d6f2e-9c41-4a5a-8f0d-3e2b1c9d7a55" doc:"Camera session identifier"`
	DeviceID  string `json:"device_id" example:"1-3.2" doc:"Stable device identifier"`
	State     string `json:"state" example:"started" doc:"New lifecycle state"`
	Capturing bool   `json:"capturing" example:"true" doc:"Whether frames are flowing"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CameraStateEvent.
func (e CameraStateEvent) Type() uint32 { return TypeCameraState }

// GetCameraID implements the CameraStateChange interface for LED manager.
func (e CameraStateEvent) GetCameraID() string {
	return e.CameraID
}

// IsCapturing implements the CameraStateChange interface for LED manager.
func (e CameraStateEvent) IsCapturing() bool {
	return e.Capturing
}

// CaptureStatsEvent carries the periodic capture statistics snapshot of
// one camera session.
type CaptureStatsEvent struct {
	EventType   string `json:"type" example:"capture_stats"`
	CameraID    string `json:"camera_id"`
	Frames      uint64 `json:"frames"`
	Bytes       uint64 `json:"bytes"`
	Drops       uint64 `json:"drops"`
	Faults      uint64 `json:"faults"`
	Outstanding int    `json:"outstanding"`
	Queued      int    `json:"queued"`
	FPS         int    `json:"fps"`
	Bandwidth   int    `json:"bandwidth"`
}

// Type returns the event type identifier for CaptureStatsEvent.
func (e CaptureStatsEvent) Type() uint32 { return TypeCaptureStats }

// TransferFaultEvent is published when a capture session reports a
// transfer error, timeout or length mismatch.
type TransferFaultEvent struct {
	CameraID  string `json:"camera_id" doc:"Camera session identifier"`
	DeviceID  string `json:"device_id" doc:"Stable device identifier"`
	Kind      string `json:"kind" example:"transfer timeout" doc:"Fault classification"`
	Seq       uint32 `json:"seq" example:"1843" doc:"Frame sequence the fault refers to"`
	Error     string `json:"error,omitempty" doc:"Detailed error description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for TransferFaultEvent.
func (e TransferFaultEvent) Type() uint32 { return TypeTransferFault }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"camera" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// UpdateProgressEvent tracks self-update state transitions.
type UpdateProgressEvent struct {
	State         string `json:"state" example:"downloading" doc:"Update state"`
	TargetVersion string `json:"target_version,omitempty" example:"1.1.0" doc:"Version being updated to"`
	Progress      int    `json:"progress" example:"45" doc:"Progress percentage (0-100)"`
	Error         string `json:"error,omitempty" doc:"Error message if the update failed"`
	Timestamp     string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for UpdateProgressEvent.
func (e UpdateProgressEvent) Type() uint32 { return TypeUpdateProgress }
