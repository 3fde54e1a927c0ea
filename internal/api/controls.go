package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camnode/internal/api/models"
)

// registerControlRoutes registers sensor control endpoints.
func (s *Server) registerControlRoutes() {
	// List controls
	huma.Register(s.api, huma.Operation{
		OperationID: "list-camera-controls",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{camera_id}/controls",
		Summary:     "List Controls",
		Description: "Get the controls registered on a camera with their ranges and defaults",
		Tags:        []string{"controls"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *CameraIDInput) (*models.ControlsResponse, error) {
		session, err := s.cameras.Get(input.CameraID)
		if err != nil {
			return nil, s.mapCameraError(err)
		}

		controls := session.Camera().ListCtrls()
		infos := make([]models.ControlInfo, len(controls))
		for i, ctrl := range controls {
			infos[i] = models.ControlInfo{
				Name:    ctrl.Name,
				Func:    ctrl.Func,
				Min:     ctrl.Min,
				Max:     ctrl.Max,
				Step:    ctrl.Step,
				Default: ctrl.Default,
				Reg:     fmt.Sprintf("0x%04x", ctrl.Reg),
			}
		}
		return &models.ControlsResponse{
			Body: models.ControlsData{
				Controls: infos,
				Count:    len(infos),
			},
		}, nil
	})

	// Set a control value
	huma.Register(s.api, huma.Operation{
		OperationID: "set-camera-control",
		Method:      http.MethodPut,
		Path:        "/api/cameras/{camera_id}/controls/{func}",
		Summary:     "Set Control",
		Description: "Write a control value. Values outside the control's range or off its step grid are rejected.",
		Tags:        []string{"controls"},
		Errors:      []int{400, 401, 404, 409, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *struct {
		CameraIDInput
		Func string `path:"func" example:"setExposure" doc:"Control identifier"`
		Body models.SetControlRequestData
	}) (*models.SetControlResponse, error) {
		session, err := s.cameras.Get(input.CameraID)
		if err != nil {
			return nil, s.mapCameraError(err)
		}
		if err := session.Camera().SetCtrl(input.Func, input.Body.Value); err != nil {
			return nil, s.mapCameraError(err)
		}
		return &models.SetControlResponse{
			Body: models.SetControlData{
				Func:  input.Func,
				Value: input.Body.Value,
			},
		}, nil
	})
}
