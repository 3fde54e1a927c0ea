package models

import "time"

// UpdateCheckData describes the newest published release relative to
// the running binary.
type UpdateCheckData struct {
	CurrentVersion  string    `json:"current_version" example:"1.0.0" doc:"Currently installed version"`
	LatestVersion   string    `json:"latest_version" example:"1.1.0" doc:"Latest available version"`
	ReleaseNotes    string    `json:"release_notes" doc:"Markdown release notes"`
	ReleaseURL      string    `json:"release_url" doc:"URL to the release page"`
	PublishedAt     time.Time `json:"published_at" doc:"When the release was published"`
	AssetSize       int       `json:"asset_size" example:"5242880" doc:"Size of the update in bytes"`
	UpdateAvailable bool      `json:"update_available" example:"true" doc:"Whether an update is available"`
}

// UpdateCheckResponse wraps UpdateCheckData for API responses.
type UpdateCheckResponse struct {
	Body UpdateCheckData
}

// UpdateStatusData is a point-in-time snapshot of the updater state
// machine, including download progress and backup availability.
type UpdateStatusData struct {
	State           string     `json:"state" example:"idle" doc:"Current update state"`
	CurrentVersion  string     `json:"current_version" example:"1.0.0" doc:"Current version"`
	TargetVersion   string     `json:"target_version,omitempty" example:"1.1.0" doc:"Version being updated to"`
	Progress        int        `json:"progress,omitempty" example:"45" doc:"Progress percentage (0-100)"`
	Error           string     `json:"error,omitempty" doc:"Error message if in error state"`
	LastChecked     *time.Time `json:"last_checked,omitempty" doc:"When updates were last checked"`
	BackupAvailable bool       `json:"backup_available" example:"true" doc:"Whether a backup is available"`
	BackupVersion   string     `json:"backup_version,omitempty" example:"1.0.0" doc:"Version of the backup"`
}

// UpdateStatusResponse wraps UpdateStatusData for API responses.
type UpdateStatusResponse struct {
	Body UpdateStatusData
}

// UpdateMessageBody is the shared body of the apply, rollback, and
// restart acknowledgements.
type UpdateMessageBody struct {
	Message string `json:"message" example:"Restarting..." doc:"Status message"`
}

// UpdateApplyResponse acknowledges a started update.
type UpdateApplyResponse struct {
	Body UpdateMessageBody
}

// UpdateRollbackResponse acknowledges a started rollback.
type UpdateRollbackResponse struct {
	Body UpdateMessageBody
}

// RestartResponse acknowledges a requested restart.
type RestartResponse struct {
	Body UpdateMessageBody
}
