package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// CameraProfile describes how the daemon brings up a camera that matches
// a USB product: which description file to load, which mode to select,
// which control values to apply, and whether capture starts on attach.
type CameraProfile struct {
	ID   string `toml:"id" json:"id"`
	Name string `toml:"name" json:"name"`
	// Match is the USB product selector, "vid:pid" in hex ("04b4:00f1")
	// or "*" for any device.
	Match  string `toml:"match" json:"match"`
	Serial string `toml:"serial,omitempty" json:"serial,omitempty"`

	// Camera bring-up
	ConfigFile string           `toml:"config_file" json:"config_file"`
	Mode       uint32           `toml:"mode,omitempty" json:"mode,omitempty"`
	Controls   map[string]int64 `toml:"controls,omitempty" json:"controls,omitempty"`
	AutoStart  bool             `toml:"auto_start" json:"auto_start"`

	// Metadata
	CreatedAt time.Time `toml:"created_at" json:"created_at"`
	UpdatedAt time.Time `toml:"updated_at" json:"updated_at"`
}

// Matches reports whether this profile selects the given device.
// A serial-carrying profile additionally requires an exact serial match.
func (p CameraProfile) Matches(vendorID, productID uint16, serial string) bool {
	if p.Serial != "" && p.Serial != serial {
		return false
	}
	if p.Match == "*" {
		return true
	}
	vid, pid, err := parseMatch(p.Match)
	if err != nil {
		return false
	}
	return vid == vendorID && pid == productID
}

// parseMatch splits a "vid:pid" hex selector.
func parseMatch(match string) (uint16, uint16, error) {
	vidStr, pidStr, ok := strings.Cut(match, ":")
	if !ok {
		return 0, 0, fmt.Errorf("match %q is not vid:pid", match)
	}
	vid, err := strconv.ParseUint(vidStr, 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("bad vendor id in match %q: %w", match, err)
	}
	pid, err := strconv.ParseUint(pidStr, 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("bad product id in match %q: %w", match, err)
	}
	return uint16(vid), uint16(pid), nil
}

// profilesFile is the on-disk layout of the profile registry.
type profilesFile struct {
	Version  int                      `toml:"version" json:"version"`
	Profiles map[string]CameraProfile `toml:"profiles" json:"profiles"`
}

// ProfileStore is the persisted registry of camera profiles. The camera
// manager consults it on hotplug to decide whether an attached device is
// auto-opened and with what description file.
type ProfileStore struct {
	mu         sync.RWMutex
	configPath string
	config     *profilesFile
}

// NewProfileStore creates a profile store backed by the given TOML file.
func NewProfileStore(configPath string) *ProfileStore {
	if configPath == "" {
		configPath = "profiles.toml"
	}

	return &ProfileStore{
		configPath: configPath,
		config: &profilesFile{
			Version:  1,
			Profiles: make(map[string]CameraProfile),
		},
	}
}

// Load loads the profile registry from file. A missing file leaves the
// registry empty.
func (ps *ProfileStore) Load() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, err := os.Stat(ps.configPath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(ps.configPath)
	if err != nil {
		return fmt.Errorf("failed to read profiles: %w", err)
	}

	if err := toml.Unmarshal(data, ps.config); err != nil {
		return fmt.Errorf("failed to parse profiles: %w", err)
	}

	if ps.config.Profiles == nil {
		ps.config.Profiles = make(map[string]CameraProfile)
	}
	if ps.config.Version == 0 {
		ps.config.Version = 1
	}

	return nil
}

// saveLocked writes the registry to file. Caller holds ps.mu.
func (ps *ProfileStore) saveLocked() error {
	dir := filepath.Dir(ps.configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create profiles directory: %w", err)
	}

	data, err := toml.Marshal(ps.config)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	if err := os.WriteFile(ps.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}

	return nil
}

// Add adds a new profile and persists the registry.
func (ps *ProfileStore) Add(profile CameraProfile) error {
	if profile.ID == "" {
		return fmt.Errorf("profile ID cannot be empty")
	}
	if profile.Name == "" {
		profile.Name = profile.ID
	}
	if profile.Match == "" {
		return fmt.Errorf("profile match cannot be empty")
	}
	if profile.Match != "*" {
		if _, _, err := parseMatch(profile.Match); err != nil {
			return err
		}
	}
	if profile.ConfigFile == "" {
		return fmt.Errorf("profile config file cannot be empty")
	}

	now := time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.config.Profiles[profile.ID] = profile
	return ps.saveLocked()
}

// Update replaces an existing profile, preserving its ID and creation
// time, and persists the registry.
func (ps *ProfileStore) Update(id string, updates CameraProfile) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	existing, exists := ps.config.Profiles[id]
	if !exists {
		return fmt.Errorf("profile %s not found", id)
	}

	updates.ID = existing.ID
	updates.CreatedAt = existing.CreatedAt
	updates.UpdatedAt = time.Now()

	if updates.Name == "" {
		updates.Name = existing.Name
	}
	if updates.Match == "" {
		updates.Match = existing.Match
	}
	if updates.ConfigFile == "" {
		updates.ConfigFile = existing.ConfigFile
	}

	ps.config.Profiles[id] = updates
	return ps.saveLocked()
}

// Remove deletes a profile and persists the registry.
func (ps *ProfileStore) Remove(id string) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.config.Profiles[id]; !exists {
		return fmt.Errorf("profile %s not found", id)
	}

	delete(ps.config.Profiles, id)
	return ps.saveLocked()
}

// Get retrieves a profile by ID.
func (ps *ProfileStore) Get(id string) (CameraProfile, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	profile, exists := ps.config.Profiles[id]
	return profile, exists
}

// All returns a copy of every profile.
func (ps *ProfileStore) All() map[string]CameraProfile {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	profiles := make(map[string]CameraProfile, len(ps.config.Profiles))
	for id, profile := range ps.config.Profiles {
		profiles[id] = profile
	}
	return profiles
}

// FindMatch returns the profile selecting the given device. Exact
// vid:pid profiles win over wildcards; serial-pinned profiles win over
// both.
func (ps *ProfileStore) FindMatch(vendorID, productID uint16, serial string) (CameraProfile, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var wildcard CameraProfile
	var exact CameraProfile
	foundWildcard := false
	foundExact := false

	for _, profile := range ps.config.Profiles {
		if !profile.Matches(vendorID, productID, serial) {
			continue
		}
		if profile.Serial != "" {
			return profile, true
		}
		if profile.Match == "*" {
			if !foundWildcard {
				wildcard = profile
				foundWildcard = true
			}
			continue
		}
		if !foundExact {
			exact = profile
			foundExact = true
		}
	}

	if foundExact {
		return exact, true
	}
	if foundWildcard {
		return wildcard, true
	}
	return CameraProfile{}, false
}

// SetAutoStart flips a profile's auto-start flag and persists the
// registry.
func (ps *ProfileStore) SetAutoStart(id string, autoStart bool) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	profile, exists := ps.config.Profiles[id]
	if !exists {
		return fmt.Errorf("profile %s not found", id)
	}

	profile.AutoStart = autoStart
	profile.UpdatedAt = time.Now()
	ps.config.Profiles[id] = profile
	return ps.saveLocked()
}
