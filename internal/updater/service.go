// Package updater keeps the daemon binary current from GitHub
// releases. It holds one rollback generation on disk and relies on the
// process supervisor (systemd) to bring the new binary up after the
// swap.
package updater

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/creativeprojects/go-selfupdate"

	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/internal/logging"
	"github.com/smazurov/camnode/internal/version"
)

// restartDelay gives the HTTP response time to reach the client before
// the process signals itself.
const restartDelay = 500 * time.Millisecond

type service struct {
	repo    selfupdate.Repository
	updater *selfupdate.Updater
	backup  *backupManager
	bus     *events.Bus
	logger  *slog.Logger

	mu            sync.RWMutex
	state         State
	latestRelease *selfupdate.Release
	lastChecked   *time.Time
	lastError     error

	enabled        bool
	disabledReason string
	restartPending bool
}

// NewService builds the updater. When the binary's directory is not
// writable the service comes up disabled instead of failing, so the
// daemon still runs on read-only installs.
func NewService(opts *Options) (Service, error) {
	logger := logging.GetLogger("updater")

	if reason := probeWritable(); reason != "" {
		logger.Warn("Update service disabled", "reason", reason)
		return &service{
			state:          StateIdle,
			disabledReason: reason,
			bus:            opts.Bus,
			logger:         logger,
		}, nil
	}

	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("create GitHub source: %w", err)
	}
	up, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: opts.Prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("create updater: %w", err)
	}

	backup, err := newBackupManager(logger)
	if err != nil {
		logger.Warn("Backups unavailable, rollback disabled", "error", err)
	}

	return &service{
		repo:    selfupdate.ParseSlug(opts.Repository),
		updater: up,
		backup:  backup,
		bus:     opts.Bus,
		state:   StateIdle,
		enabled: true,
		logger:  logger,
	}, nil
}

// probeWritable checks that the running binary can be replaced.
// Returns an empty string on success, the reason otherwise.
func probeWritable() string {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Sprintf("cannot resolve executable path: %v", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Sprintf("cannot resolve executable symlinks: %v", err)
	}

	dir := filepath.Dir(exe)
	f, err := os.CreateTemp(dir, ".camnode-update-*")
	if err != nil {
		return fmt.Sprintf("no write permission in %s: %v", dir, err)
	}
	f.Close()
	os.Remove(f.Name())
	return ""
}

func (s *service) IsEnabled() bool { return s.enabled }

func (s *service) DisabledReason() string { return s.disabledReason }

// CheckForUpdate asks GitHub for the newest release and compares it
// against the linked-in version. A "dev" build always counts as
// outdated so from-source builds can pull the first real release.
func (s *service) CheckForUpdate(ctx context.Context) (*UpdateInfo, error) {
	if !s.enabled {
		return nil, newError(ErrCodeDisabled, s.disabledReason, nil)
	}
	if !s.transitionTo(StateChecking, StateIdle, StateAvailable, StateError) {
		return nil, newError(ErrCodeInvalidState,
			fmt.Sprintf("cannot check for updates in state %s", s.getState()), nil)
	}

	current := version.Version
	release, found, err := s.updater.DetectLatest(ctx, s.repo)
	if err != nil {
		s.setError(err)
		return nil, newError(ErrCodeCheckFailed, "failed to check for updates", err)
	}

	now := time.Now()
	s.mu.Lock()
	s.lastChecked = &now
	s.mu.Unlock()

	if !found {
		s.setError(fmt.Errorf("repository not found or has no releases"))
		return nil, newError(ErrCodeNotFound, "repository not found or has no releases", nil)
	}

	if current != "dev" && !release.GreaterThan(current) {
		s.transitionTo(StateIdle)
		return &UpdateInfo{
			CurrentVersion: current,
			LatestVersion:  release.Version(),
		}, nil
	}

	s.mu.Lock()
	s.latestRelease = release
	s.mu.Unlock()
	s.transitionTo(StateAvailable)

	return &UpdateInfo{
		CurrentVersion:  current,
		LatestVersion:   release.Version(),
		ReleaseNotes:    release.ReleaseNotes,
		ReleaseURL:      release.URL,
		PublishedAt:     release.PublishedAt,
		AssetSize:       release.AssetByteSize,
		UpdateAvailable: true,
	}, nil
}

// ApplyUpdate backs up the running binary, downloads the release found
// by CheckForUpdate over it, and schedules a restart. A failed swap
// rolls back automatically.
func (s *service) ApplyUpdate(ctx context.Context) error {
	if !s.enabled {
		return newError(ErrCodeDisabled, s.disabledReason, nil)
	}

	// Called without a prior check: run one implicitly.
	if s.getState() == StateIdle {
		info, err := s.CheckForUpdate(ctx)
		if err != nil {
			return err
		}
		if !info.UpdateAvailable {
			return newError(ErrCodeNoUpdate, "no update available", nil)
		}
	}

	if !s.transitionTo(StateDownloading, StateAvailable) {
		return newError(ErrCodeInvalidState,
			fmt.Sprintf("cannot apply update in state %s", s.getState()), nil)
	}

	if s.backup != nil {
		if err := s.backup.createBackup(); err != nil {
			s.setError(err)
			return newError(ErrCodeBackupFailed, "failed to create backup", err)
		}
	}

	s.transitionTo(StateApplying)

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		s.setError(err)
		s.attemptRollback()
		return newError(ErrCodeApplyFailed, "failed to get executable path", err)
	}

	s.mu.RLock()
	release := s.latestRelease
	s.mu.RUnlock()

	if err := s.updater.UpdateTo(ctx, release, exe); err != nil {
		s.setError(err)
		s.attemptRollback()
		return newError(ErrCodeApplyFailed, "failed to apply update", err)
	}

	s.transitionTo(StateRestarting)
	s.logger.Info("Update applied, scheduling restart", "version", release.Version())
	s.scheduleRestart()
	return nil
}

// Rollback reinstates the backed-up binary and schedules a restart.
func (s *service) Rollback(_ context.Context) error {
	if !s.enabled {
		return newError(ErrCodeDisabled, s.disabledReason, nil)
	}
	if s.backup == nil || !s.backup.hasBackup() {
		return newError(ErrCodeNoBackup, "no backup available for rollback", nil)
	}
	if err := s.backup.restore(); err != nil {
		return newError(ErrCodeRollbackFailed, "failed to restore backup", err)
	}

	s.transitionTo(StateRolledBack)
	s.logger.Info("Rollback complete, scheduling restart")
	s.scheduleRestart()
	return nil
}

// Restart schedules a restart without touching the binary.
func (s *service) Restart(_ context.Context) error {
	s.logger.Info("Restart requested")
	s.scheduleRestart()
	return nil
}

func (s *service) GetStatus(_ context.Context) *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &Status{
		State:          s.state,
		CurrentVersion: version.Version,
		LastChecked:    s.lastChecked,
	}
	if s.latestRelease != nil {
		status.TargetVersion = s.latestRelease.Version()
	}
	if s.lastError != nil {
		status.Error = s.lastError.Error()
	}
	if s.backup != nil {
		status.BackupAvailable = s.backup.hasBackup()
		status.BackupVersion = s.backup.backupVersion()
	}
	return status
}

// transitionTo moves the state machine to next. With from states
// given, the move only happens when the current state is one of them.
// Any successful transition clears the last error.
func (s *service) transitionTo(next State, from ...State) bool {
	s.mu.Lock()
	if len(from) > 0 && !slices.Contains(from, s.state) {
		s.mu.Unlock()
		return false
	}
	s.logger.Debug("State transition", "from", s.state, "to", next)
	s.state = next
	s.lastError = nil
	target := ""
	if s.latestRelease != nil {
		target = s.latestRelease.Version()
	}
	s.mu.Unlock()

	s.publishProgress(next, target, "")
	return true
}

func (s *service) getState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *service) setError(err error) {
	s.mu.Lock()
	s.lastError = err
	s.state = StateError
	target := ""
	if s.latestRelease != nil {
		target = s.latestRelease.Version()
	}
	s.mu.Unlock()

	s.publishProgress(StateError, target, err.Error())
}

// publishProgress mirrors state transitions onto the event bus so SSE
// clients can follow an update without polling the status endpoint.
func (s *service) publishProgress(state State, target, errText string) {
	if s.bus == nil {
		return
	}
	progress := 0
	if state == StateRestarting || state == StateRolledBack {
		progress = 100
	}
	s.bus.Publish(events.UpdateProgressEvent{
		State:         string(state),
		TargetVersion: target,
		Progress:      progress,
		Error:         errText,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}

// attemptRollback restores the backup after a failed swap. Best
// effort, the binary on disk may already be damaged.
func (s *service) attemptRollback() {
	if s.backup == nil || !s.backup.hasBackup() {
		s.logger.Error("No backup available for automatic rollback")
		return
	}
	if err := s.backup.restore(); err != nil {
		s.logger.Error("Automatic rollback failed", "error", err)
		return
	}
	s.transitionTo(StateRolledBack)
	s.logger.Info("Automatic rollback complete")
}

// scheduleRestart sends SIGTERM to the own process after restartDelay.
// systemd's Restart= policy starts the replacement binary.
func (s *service) scheduleRestart() {
	s.mu.Lock()
	s.restartPending = true
	s.mu.Unlock()

	go func() {
		time.Sleep(restartDelay)
		s.logger.Info("Sending SIGTERM to trigger restart")
		if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
			s.logger.Error("Failed to signal own process", "error", err)
		}
	}()
}

func (s *service) IsRestartPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restartPending
}
