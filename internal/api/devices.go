package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camnode/internal/api/models"
)

// registerDeviceRoutes registers device discovery endpoints.
func (s *Server) registerDeviceRoutes() {
	// List attached devices
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "Get all attached camera devices with their USB identity and session status",
		Tags:        []string{"devices"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.DeviceResponse, error) {
		devices := s.cameras.Devices()
		return &models.DeviceResponse{
			Body: models.DeviceData{
				Devices: devices,
				Count:   len(devices),
			},
		}, nil
	})

	// Re-enumerate the bus
	huma.Register(s.api, huma.Operation{
		OperationID: "refresh-devices",
		Method:      http.MethodPost,
		Path:        "/api/devices/refresh",
		Summary:     "Refresh Devices",
		Description: "Re-enumerate the USB bus and return the reconciled device list",
		Tags:        []string{"devices"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.DeviceResponse, error) {
		if err := s.cameras.Refresh(); err != nil {
			return nil, huma.Error500InternalServerError("device enumeration failed", err)
		}

		devices := s.cameras.Devices()
		return &models.DeviceResponse{
			Body: models.DeviceData{
				Devices: devices,
				Count:   len(devices),
			},
		}, nil
	})
}
