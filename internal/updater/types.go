package updater

import (
	"context"
	"time"

	"github.com/smazurov/camnode/internal/events"
)

// State is one step of the update lifecycle. Transitions are
// idle -> checking -> available -> downloading -> applying ->
// restarting, with error and rolled_back as off-ramps.
type State string

const (
	StateIdle        State = "idle"
	StateChecking    State = "checking"
	StateAvailable   State = "available"
	StateDownloading State = "downloading"
	StateApplying    State = "applying"
	StateRestarting  State = "restarting"
	StateError       State = "error"
	StateRolledBack  State = "rolled_back"
)

// Service is the self-update surface exposed to the API layer.
type Service interface {
	// CheckForUpdate compares the running version against the newest
	// release without downloading anything.
	CheckForUpdate(ctx context.Context) (*UpdateInfo, error)

	// ApplyUpdate downloads the release found by CheckForUpdate,
	// swaps the binary, and schedules a restart.
	ApplyUpdate(ctx context.Context) error

	// Rollback reinstates the backed-up binary and schedules a restart.
	Rollback(ctx context.Context) error

	// Restart schedules a restart without touching the binary.
	Restart(ctx context.Context) error

	// GetStatus snapshots the updater state machine.
	GetStatus(ctx context.Context) *Status

	// IsEnabled is false when the startup permission probe failed.
	IsEnabled() bool

	// DisabledReason explains a false IsEnabled, empty otherwise.
	DisabledReason() string

	// IsRestartPending reports whether this service triggered the
	// shutdown in progress.
	IsRestartPending() bool
}

// UpdateInfo is the outcome of a version check.
type UpdateInfo struct {
	CurrentVersion  string    `json:"current_version"`
	LatestVersion   string    `json:"latest_version"`
	ReleaseNotes    string    `json:"release_notes"`
	ReleaseURL      string    `json:"release_url"`
	PublishedAt     time.Time `json:"published_at"`
	AssetSize       int       `json:"asset_size"`
	UpdateAvailable bool      `json:"update_available"`
}

// Status is a snapshot of the updater state machine.
type Status struct {
	State           State      `json:"state"`
	CurrentVersion  string     `json:"current_version"`
	TargetVersion   string     `json:"target_version,omitempty"`
	Progress        int        `json:"progress,omitempty"`
	Error           string     `json:"error,omitempty"`
	LastChecked     *time.Time `json:"last_checked,omitempty"`
	BackupAvailable bool       `json:"backup_available"`
	BackupVersion   string     `json:"backup_version,omitempty"`
}

// Options configures NewService.
type Options struct {
	Repository string      // GitHub repo slug, "owner/name"
	Prerelease bool        // consider prereleases when checking
	Bus        *events.Bus // progress events are published here when set
}
