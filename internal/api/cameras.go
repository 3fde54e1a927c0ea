package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camnode/internal/api/models"
	"github.com/smazurov/camnode/internal/cameras"
	"github.com/smazurov/camnode/pkg/evk"
)

// CameraIDInput is the path parameter shared by per-camera endpoints.
type CameraIDInput struct {
	CameraID string `path:"camera_id" example:"7b1d6f2e-9c41-4a5a-8f0d-3e2b1c9d7a55" doc:"Camera session identifier"`
}

// registerCameraRoutes registers camera session lifecycle endpoints.
func (s *Server) registerCameraRoutes() {
	// List open camera sessions
	huma.Register(s.api, huma.Operation{
		OperationID: "list-cameras",
		Method:      http.MethodGet,
		Path:        "/api/cameras",
		Summary:     "List Cameras",
		Description: "Get all open camera sessions",
		Tags:        []string{"cameras"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.CameraListResponse, error) {
		sessions := s.cameras.List()
		infos := make([]models.CameraInfo, len(sessions))
		for i, session := range sessions {
			infos[i] = session.Info()
		}
		return &models.CameraListResponse{
			Body: models.CameraListData{
				Cameras: infos,
				Count:   len(infos),
			},
		}, nil
	})

	// Open a device as a new camera session
	huma.Register(s.api, huma.Operation{
		OperationID: "open-camera",
		Method:      http.MethodPost,
		Path:        "/api/cameras",
		Summary:     "Open Camera",
		Description: "Open a device as a new camera session, optionally loading a description file and initializing the sensor",
		Tags:        []string{"cameras"},
		Errors:      []int{400, 401, 404, 409, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.OpenCameraRequest) (*models.CameraResponse, error) {
		session, err := s.cameras.Open(cameras.OpenParams{
			DeviceID:    input.Body.DeviceID,
			ConfigFile:  input.Body.ConfigFile,
			BufferCount: input.Body.BufferCount,
			Init:        input.Body.Init,
		})
		if err != nil {
			return nil, s.mapCameraError(err)
		}
		return &models.CameraResponse{Body: session.Info()}, nil
	})

	// Get one camera session
	huma.Register(s.api, huma.Operation{
		OperationID: "get-camera",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{camera_id}",
		Summary:     "Get Camera",
		Description: "Get state and configuration of a camera session",
		Tags:        []string{"cameras"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *CameraIDInput) (*models.CameraResponse, error) {
		session, err := s.cameras.Get(input.CameraID)
		if err != nil {
			return nil, s.mapCameraError(err)
		}
		return &models.CameraResponse{Body: session.Info()}, nil
	})

	// Close a camera session
	huma.Register(s.api, huma.Operation{
		OperationID: "close-camera",
		Method:      http.MethodDelete,
		Path:        "/api/cameras/{camera_id}",
		Summary:     "Close Camera",
		Description: "Close a camera session and release its device",
		Tags:        []string{"cameras"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *CameraIDInput) (*models.CameraActionResponse, error) {
		if err := s.cameras.Close(input.CameraID); err != nil {
			return nil, s.mapCameraError(err)
		}
		return &models.CameraActionResponse{
			Body: models.CameraActionData{
				CameraID: input.CameraID,
				State:    evk.StateClosed.String(),
				Message:  "camera closed",
			},
		}, nil
	})

	// Lifecycle verbs
	s.registerCameraAction("init-camera", "init", "Init Camera",
		"Upload the sensor configuration and allocate frame buffers",
		func(session *cameras.Session) error { return session.Init() })
	s.registerCameraAction("start-camera", "start", "Start Capture",
		"Start streaming frames into the capture queue",
		func(session *cameras.Session) error { return session.Start() })
	s.registerCameraAction("stop-camera", "stop", "Stop Capture",
		"Stop streaming and flush the capture queue",
		func(session *cameras.Session) error { return session.Stop() })

	// Capture statistics
	huma.Register(s.api, huma.Operation{
		OperationID: "get-camera-stats",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{camera_id}/stats",
		Summary:     "Camera Statistics",
		Description: "Get capture counters, rates and buffer occupancy of a camera session",
		Tags:        []string{"cameras"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *CameraIDInput) (*models.StatsResponse, error) {
		session, err := s.cameras.Get(input.CameraID)
		if err != nil {
			return nil, s.mapCameraError(err)
		}
		return &models.StatsResponse{Body: session.Snapshot()}, nil
	})

	// Sensor modes
	huma.Register(s.api, huma.Operation{
		OperationID: "list-camera-modes",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{camera_id}/modes",
		Summary:     "List Modes",
		Description: "Get the sensor modes carried by the camera description file",
		Tags:        []string{"cameras"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *CameraIDInput) (*models.ModesResponse, error) {
		session, err := s.cameras.Get(input.CameraID)
		if err != nil {
			return nil, s.mapCameraError(err)
		}

		active, hasActive := session.Camera().ActiveMode()
		modes := session.Camera().ListModes()
		infos := make([]models.ModeInfo, len(modes))
		for i, mode := range modes {
			infos[i] = models.ModeInfo{
				ModeID:   mode.ID,
				Name:     mode.Config.Name,
				Width:    mode.Config.Width,
				Height:   mode.Config.Height,
				BitWidth: mode.Config.BitWidth,
				Format:   mode.Config.Format.String(),
				Active:   hasActive && mode.ID == active.ID,
			}
		}
		return &models.ModesResponse{
			Body: models.ModesData{
				Modes: infos,
				Count: len(infos),
			},
		}, nil
	})

	// Switch mode
	huma.Register(s.api, huma.Operation{
		OperationID: "switch-camera-mode",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{camera_id}/modes/{mode_id}",
		Summary:     "Switch Mode",
		Description: "Switch the sensor to another mode. The camera must be initialized or stopped.",
		Tags:        []string{"cameras"},
		Errors:      []int{400, 401, 404, 409, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *struct {
		CameraIDInput
		ModeID uint32 `path:"mode_id" example:"0" doc:"Mode identifier from the description file"`
	}) (*models.CameraActionResponse, error) {
		session, err := s.cameras.Get(input.CameraID)
		if err != nil {
			return nil, s.mapCameraError(err)
		}
		if err := session.Camera().SwitchMode(input.ModeID); err != nil {
			return nil, s.mapCameraError(err)
		}
		return &models.CameraActionResponse{
			Body: models.CameraActionData{
				CameraID: input.CameraID,
				State:    session.State().String(),
				Message:  "mode switched",
			},
		}, nil
	})
}

// registerCameraAction registers one lifecycle verb endpoint.
func (s *Server) registerCameraAction(operationID, verb, summary, description string, action func(*cameras.Session) error) {
	huma.Register(s.api, huma.Operation{
		OperationID: operationID,
		Method:      http.MethodPost,
		Path:        "/api/cameras/{camera_id}/" + verb,
		Summary:     summary,
		Description: description,
		Tags:        []string{"cameras"},
		Errors:      []int{401, 404, 409, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *CameraIDInput) (*models.CameraActionResponse, error) {
		session, err := s.cameras.Get(input.CameraID)
		if err != nil {
			return nil, s.mapCameraError(err)
		}
		if err := action(session); err != nil {
			return nil, s.mapCameraError(err)
		}
		return &models.CameraActionResponse{
			Body: models.CameraActionData{
				CameraID: input.CameraID,
				State:    session.State().String(),
				Message:  "camera " + verb + " ok",
			},
		}, nil
	})
}

// mapCameraError converts manager and SDK errors to HTTP status errors.
func (s *Server) mapCameraError(err error) error {
	switch {
	case errors.Is(err, cameras.ErrCameraNotFound):
		return huma.Error404NotFound("camera not found", err)
	case errors.Is(err, cameras.ErrDeviceNotFound):
		return huma.Error404NotFound("device not found", err)
	case errors.Is(err, cameras.ErrDeviceBusy):
		return huma.Error409Conflict("device already open", err)
	}

	switch evk.CodeOf(err) {
	case evk.CodeStateError:
		return huma.Error409Conflict("operation not allowed in current state", err)
	case evk.CodeInvalidArgument, evk.CodeUserdataAddrError, evk.CodeUserdataLenError:
		return huma.Error400BadRequest("invalid argument", err)
	case evk.CodeCaptureTimeout:
		return huma.Error504GatewayTimeout("capture timed out", err)
	case evk.CodeReadConfigFileFailed, evk.CodeConfigFileEmpty, evk.CodeConfigFormatError, evk.CodeControlFormatError:
		return huma.Error400BadRequest("camera description file rejected", err)
	default:
		return huma.Error500InternalServerError("internal server error", err)
	}
}
