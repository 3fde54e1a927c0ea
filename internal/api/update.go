package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camnode/internal/api/models"
	"github.com/smazurov/camnode/internal/updater"
)

// registerUpdateRoutes exposes the self-update workflow. When the updater
// is disabled (dev build, unwritable binary) the same paths are still
// registered but answer 503 so clients can surface the reason.
func (s *Server) registerUpdateRoutes() {
	svc := s.options.UpdateService
	if svc == nil {
		return
	}
	if !svc.IsEnabled() {
		s.registerUpdateStubs(svc.DisabledReason())
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-update-status",
		Method:      http.MethodGet,
		Path:        "/api/update/status",
		Summary:     "Get Update Status",
		Description: "Report the updater state machine, download progress and backup availability",
		Tags:        []string{"update"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateStatusResponse, error) {
		return &models.UpdateStatusResponse{Body: updateStatusBody(svc.GetStatus(ctx))}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "check-updates",
		Method:      http.MethodGet,
		Path:        "/api/update/check",
		Summary:     "Check for Updates",
		Description: "Query the release feed for a newer daemon binary without downloading it",
		Tags:        []string{"update"},
		Errors:      []int{401, 409, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateCheckResponse, error) {
		info, err := svc.CheckForUpdate(ctx)
		if err != nil {
			return nil, updateHTTPError(err)
		}
		return &models.UpdateCheckResponse{Body: updateCheckBody(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "apply-update",
		Method:      http.MethodPost,
		Path:        "/api/update/apply",
		Summary:     "Apply Update",
		Description: "Download the latest release, back up the running binary, swap it in and restart",
		Tags:        []string{"update"},
		Errors:      []int{400, 401, 409, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateApplyResponse, error) {
		if err := svc.ApplyUpdate(ctx); err != nil {
			return nil, updateHTTPError(err)
		}
		return &models.UpdateApplyResponse{
			Body: models.UpdateMessageBody{Message: "Update applied, restarting..."},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "rollback-update",
		Method:      http.MethodPost,
		Path:        "/api/update/rollback",
		Summary:     "Rollback Update",
		Description: "Restore the backed up binary from before the last update and restart",
		Tags:        []string{"update"},
		Errors:      []int{400, 401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateRollbackResponse, error) {
		if err := svc.Rollback(ctx); err != nil {
			return nil, updateHTTPError(err)
		}
		return &models.UpdateRollbackResponse{
			Body: models.UpdateMessageBody{Message: "Rollback complete, restarting..."},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "restart-service",
		Method:      http.MethodPost,
		Path:        "/api/update/restart",
		Summary:     "Restart Service",
		Description: "Exit cleanly and let the process supervisor bring the daemon back up",
		Tags:        []string{"update"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.RestartResponse, error) {
		if err := svc.Restart(ctx); err != nil {
			return nil, huma.Error500InternalServerError(err.Error())
		}
		return &models.RestartResponse{
			Body: models.UpdateMessageBody{Message: "Restarting..."},
		}, nil
	})
}

// registerUpdateStubs keeps the update paths present in the OpenAPI schema
// while the updater is disabled, each answering 503 with the reason.
func (s *Server) registerUpdateStubs(reason string) {
	stub := func(_ context.Context, _ *struct{}) (*struct{}, error) {
		return nil, huma.Error503ServiceUnavailable("Update service disabled: " + reason)
	}

	routes := []struct {
		id      string
		method  string
		path    string
		summary string
	}{
		{"check-updates", http.MethodGet, "/api/update/check", "Check for Updates"},
		{"get-update-status", http.MethodGet, "/api/update/status", "Get Update Status"},
		{"apply-update", http.MethodPost, "/api/update/apply", "Apply Update"},
		{"rollback-update", http.MethodPost, "/api/update/rollback", "Rollback Update"},
	}
	for _, r := range routes {
		huma.Register(s.api, huma.Operation{
			OperationID: r.id,
			Method:      r.method,
			Path:        r.path,
			Summary:     r.summary,
			Description: r.summary + " (disabled)",
			Tags:        []string{"update"},
			Errors:      []int{503},
			Security:    withAuth(),
		}, stub)
	}
}

func updateCheckBody(info *updater.UpdateInfo) models.UpdateCheckData {
	return models.UpdateCheckData{
		CurrentVersion:  info.CurrentVersion,
		LatestVersion:   info.LatestVersion,
		ReleaseNotes:    info.ReleaseNotes,
		ReleaseURL:      info.ReleaseURL,
		PublishedAt:     info.PublishedAt,
		AssetSize:       info.AssetSize,
		UpdateAvailable: info.UpdateAvailable,
	}
}

func updateStatusBody(st *updater.Status) models.UpdateStatusData {
	return models.UpdateStatusData{
		State:           string(st.State),
		CurrentVersion:  st.CurrentVersion,
		TargetVersion:   st.TargetVersion,
		Progress:        st.Progress,
		Error:           st.Error,
		LastChecked:     st.LastChecked,
		BackupAvailable: st.BackupAvailable,
		BackupVersion:   st.BackupVersion,
	}
}

// updateHTTPError translates updater error codes into HTTP status errors.
func updateHTTPError(err error) error {
	var uerr *updater.Error
	if !errors.As(err, &uerr) {
		return huma.Error500InternalServerError(err.Error())
	}
	switch uerr.Code {
	case updater.ErrCodeInvalidState:
		return huma.Error409Conflict(uerr.Message)
	case updater.ErrCodeNoUpdate:
		return huma.Error400BadRequest(uerr.Message)
	case updater.ErrCodeNotFound, updater.ErrCodeNoBackup:
		return huma.Error404NotFound(uerr.Message)
	case updater.ErrCodeDisabled:
		return huma.Error503ServiceUnavailable(uerr.Message)
	default:
		return huma.Error500InternalServerError(uerr.Message)
	}
}
