package metrics

import (
	"github.com/smazurov/camnode/internal/api/models"
	"github.com/smazurov/camnode/internal/events"
)

// SSEExporter republishes snapshots as capture_stats events on the
// bus, where the SSE endpoint picks them up for connected clients.
type SSEExporter struct {
	bus *events.Bus
}

// NewSSEExporter builds the bus-backed exporter.
func NewSSEExporter(bus *events.Bus) *SSEExporter {
	return &SSEExporter{bus: bus}
}

// Name returns the exporter name.
func (e *SSEExporter) Name() string { return "sse" }

// Export publishes one event per camera snapshot. Idle batches (no
// open cameras) publish nothing.
func (e *SSEExporter) Export(samples []models.StatsData) error {
	for _, s := range samples {
		e.bus.Publish(events.CaptureStatsEvent{
			EventType:   "capture_stats",
			CameraID:    s.CameraID,
			Frames:      s.Frames,
			Bytes:       s.Bytes,
			Drops:       s.Drops,
			Faults:      s.Faults,
			Outstanding: s.Outstanding,
			Queued:      s.Queued,
			FPS:         s.FPS,
			Bandwidth:   s.Bandwidth,
		})
	}
	return nil
}

// Close is a no-op; the bus outlives the exporter.
func (e *SSEExporter) Close() error { return nil }
