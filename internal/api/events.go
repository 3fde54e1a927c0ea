package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/pkg/evk"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time event stream for device changes, camera state, capture statistics, transfer faults and update progress",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"device-discovery": events.DeviceDiscoveryEvent{},
		"camera-state":     events.CameraStateEvent{},
		"capture-stats":    events.CaptureStatsEvent{},
		"transfer-fault":   events.TransferFaultEvent{},
		"update-progress":  events.UpdateProgressEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Subscribe before the snapshot so transitions racing the
		// handshake are not lost, only possibly duplicated.
		eventCh := make(chan any, 10)
		unsubscribers := []func(){
			events.SubscribeToChannel[events.DeviceDiscoveryEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CameraStateEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CaptureStatsEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.TransferFaultEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.UpdateProgressEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Initial snapshot: one state event per open camera so a fresh
		// client does not wait for the next transition.
		if s.cameras != nil {
			now := time.Now().UTC().Format(time.RFC3339)
			for _, session := range s.cameras.List() {
				state := session.State()
				snapshot := events.CameraStateEvent{
					CameraID:  session.ID(),
					DeviceID:  session.DeviceID(),
					State:     state.String(),
					Capturing: state == evk.StateStarted,
					Timestamp: now,
				}
				if err := send.Data(snapshot); err != nil {
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
