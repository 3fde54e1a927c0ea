package updater

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/creativeprojects/go-selfupdate"

	"github.com/smazurov/camnode/internal/version"
)

const (
	backupFilename     = "camnode.backup"
	backupInfoFilename = "backup.json"
)

// backupInfo is the metadata sidecar stored next to the backup binary.
type backupInfo struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	ExecPath  string    `json:"exec_path"`
}

// backupManager keeps exactly one previous binary under
// ~/.cache/camnode/backup so a bad update can be rolled back.
type backupManager struct {
	mu     sync.RWMutex
	dir    string
	info   *backupInfo
	logger *slog.Logger
}

func newBackupManager(logger *slog.Logger) (*backupManager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".cache", "camnode", "backup")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	m := &backupManager{dir: dir, logger: logger}
	m.info = m.loadInfo()
	return m, nil
}

// loadInfo reads the metadata sidecar left by a previous run. Returns
// nil when there is no usable backup.
func (m *backupManager) loadInfo() *backupInfo {
	data, err := os.ReadFile(filepath.Join(m.dir, backupInfoFilename))
	if err != nil {
		return nil
	}
	var info backupInfo
	if err := json.Unmarshal(data, &info); err != nil {
		m.logger.Warn("Ignoring unreadable backup metadata", "error", err)
		return nil
	}
	if _, err := os.Stat(filepath.Join(m.dir, backupFilename)); err != nil {
		m.logger.Warn("Backup metadata present but binary missing", "dir", m.dir)
		return nil
	}
	m.logger.Info("Found existing backup", "version", info.Version)
	return &info
}

func (m *backupManager) createBackup() error {
	execPath, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	backupPath := filepath.Join(m.dir, backupFilename)
	if err := copyFile(backupPath, execPath, 0o755); err != nil {
		return err
	}

	info := backupInfo{
		Version:   version.Version,
		CreatedAt: time.Now(),
		ExecPath:  execPath,
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode backup metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, backupInfoFilename), data, 0o644); err != nil {
		return fmt.Errorf("write backup metadata: %w", err)
	}

	m.mu.Lock()
	m.info = &info
	m.mu.Unlock()

	m.logger.Info("Backup created", "version", info.Version, "path", backupPath)
	return nil
}

// restore puts the backed-up binary back at its original path. The
// copy goes to a sibling temp file first and is renamed into place,
// because the running executable cannot be opened for writing.
func (m *backupManager) restore() error {
	m.mu.RLock()
	info := m.info
	m.mu.RUnlock()
	if info == nil {
		return fmt.Errorf("no backup available")
	}

	staging := info.ExecPath + ".rollback"
	if err := copyFile(staging, filepath.Join(m.dir, backupFilename), 0o755); err != nil {
		return err
	}
	if err := os.Rename(staging, info.ExecPath); err != nil {
		os.Remove(staging)
		return fmt.Errorf("replace executable: %w", err)
	}

	m.logger.Info("Backup restored", "version", info.Version)
	return nil
}

func (m *backupManager) hasBackup() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.info != nil
}

func (m *backupManager) backupVersion() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.info == nil {
		return ""
	}
	return m.info.Version
}

// copyFile copies src to dst, truncating dst if it already exists.
func copyFile(dst, src string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}
