package config

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *ProfileStore {
	t.Helper()
	return NewProfileStore(filepath.Join(t.TempDir(), "profiles.toml"))
}

func TestProfileStoreAddAndGet(t *testing.T) {
	store := newTestStore(t)

	err := store.Add(CameraProfile{
		ID:         "bench",
		Match:      "04b4:00f1",
		ConfigFile: "configs/imx678.toml",
		Mode:       1,
		Controls:   map[string]int64{"exposure": 1200},
		AutoStart:  true,
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	profile, ok := store.Get("bench")
	if !ok {
		t.Fatal("profile not found after Add")
	}
	if profile.Name != "bench" {
		t.Errorf("Name = %q, want ID as default name", profile.Name)
	}
	if profile.CreatedAt.IsZero() || profile.UpdatedAt.IsZero() {
		t.Error("timestamps not set on Add")
	}
	if profile.Controls["exposure"] != 1200 {
		t.Errorf("Controls[exposure] = %d, want 1200", profile.Controls["exposure"])
	}
}

func TestProfileStoreValidation(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name    string
		profile CameraProfile
	}{
		{"empty ID", CameraProfile{Match: "04b4:00f1", ConfigFile: "a.toml"}},
		{"empty match", CameraProfile{ID: "p", ConfigFile: "a.toml"}},
		{"bad match", CameraProfile{ID: "p", Match: "nonsense", ConfigFile: "a.toml"}},
		{"match out of range", CameraProfile{ID: "p", Match: "12345:00f1", ConfigFile: "a.toml"}},
		{"empty config file", CameraProfile{ID: "p", Match: "04b4:00f1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Add(tt.profile); err == nil {
				t.Errorf("Add(%+v) should fail", tt.profile)
			}
		})
	}
}

func TestProfileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")

	store := NewProfileStore(path)
	if err := store.Add(CameraProfile{
		ID:         "lab",
		Match:      "04b4:00f3",
		ConfigFile: "configs/lab.bin",
		AutoStart:  true,
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// A fresh store reads the same registry back
	reloaded := NewProfileStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	profile, ok := reloaded.Get("lab")
	if !ok {
		t.Fatal("profile missing after reload")
	}
	if profile.Match != "04b4:00f3" || profile.ConfigFile != "configs/lab.bin" || !profile.AutoStart {
		t.Errorf("reloaded profile mismatch: %+v", profile)
	}
}

func TestProfileStoreLoadMissingFile(t *testing.T) {
	store := NewProfileStore(filepath.Join(t.TempDir(), "absent.toml"))
	if err := store.Load(); err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if len(store.All()) != 0 {
		t.Errorf("expected empty registry, got %v", store.All())
	}
}

func TestProfileStoreLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	if err := os.WriteFile(path, []byte("[profiles\nbroken"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewProfileStore(path)
	if err := store.Load(); err == nil {
		t.Fatal("Load should fail for invalid TOML")
	}
}

func TestProfileStoreUpdatePreservesIdentity(t *testing.T) {
	store := newTestStore(t)

	if err := store.Add(CameraProfile{
		ID:         "cam",
		Name:       "original",
		Match:      "04b4:00f1",
		ConfigFile: "a.toml",
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	before, _ := store.Get("cam")

	if err := store.Update("cam", CameraProfile{Mode: 2}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	after, _ := store.Get("cam")
	if after.ID != "cam" || after.Name != "original" {
		t.Errorf("Update lost identity: %+v", after)
	}
	if after.Match != "04b4:00f1" || after.ConfigFile != "a.toml" {
		t.Errorf("Update lost match/config: %+v", after)
	}
	if after.Mode != 2 {
		t.Errorf("Mode = %d, want 2", after.Mode)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Error("Update changed CreatedAt")
	}

	if err := store.Update("ghost", CameraProfile{}); err == nil {
		t.Error("Update of unknown profile should fail")
	}
}

func TestProfileStoreRemove(t *testing.T) {
	store := newTestStore(t)

	if err := store.Add(CameraProfile{ID: "cam", Match: "*", ConfigFile: "a.toml"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Remove("cam"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := store.Get("cam"); ok {
		t.Error("profile still present after Remove")
	}
	if err := store.Remove("cam"); err == nil {
		t.Error("second Remove should fail")
	}
}

func TestProfileMatches(t *testing.T) {
	tests := []struct {
		name    string
		profile CameraProfile
		vid     uint16
		pid     uint16
		serial  string
		want    bool
	}{
		{"exact match", CameraProfile{Match: "04b4:00f1"}, 0x04b4, 0x00f1, "", true},
		{"wrong pid", CameraProfile{Match: "04b4:00f1"}, 0x04b4, 0x00f3, "", false},
		{"wildcard", CameraProfile{Match: "*"}, 0x1234, 0x5678, "", true},
		{"serial pinned hit", CameraProfile{Match: "*", Serial: "SN42"}, 0x04b4, 0x00f1, "SN42", true},
		{"serial pinned miss", CameraProfile{Match: "*", Serial: "SN42"}, 0x04b4, 0x00f1, "SN99", false},
		{"garbage match", CameraProfile{Match: "xx"}, 0x04b4, 0x00f1, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.Matches(tt.vid, tt.pid, tt.serial); got != tt.want {
				t.Errorf("Matches(%04x, %04x, %q) = %v, want %v", tt.vid, tt.pid, tt.serial, got, tt.want)
			}
		})
	}
}

func TestProfileStoreFindMatchPrecedence(t *testing.T) {
	store := newTestStore(t)

	profiles := []CameraProfile{
		{ID: "any", Match: "*", ConfigFile: "any.toml"},
		{ID: "exact", Match: "04b4:00f1", ConfigFile: "exact.toml"},
		{ID: "pinned", Match: "04b4:00f1", Serial: "SN42", ConfigFile: "pinned.toml"},
	}
	for _, p := range profiles {
		if err := store.Add(p); err != nil {
			t.Fatalf("Add(%s) failed: %v", p.ID, err)
		}
	}

	// Serial-pinned beats exact beats wildcard
	if p, ok := store.FindMatch(0x04b4, 0x00f1, "SN42"); !ok || p.ID != "pinned" {
		t.Errorf("FindMatch with serial = %v %v, want pinned", p.ID, ok)
	}
	if p, ok := store.FindMatch(0x04b4, 0x00f1, "OTHER"); !ok || p.ID != "exact" {
		t.Errorf("FindMatch exact = %v %v, want exact", p.ID, ok)
	}
	if p, ok := store.FindMatch(0xdead, 0xbeef, ""); !ok || p.ID != "any" {
		t.Errorf("FindMatch wildcard = %v %v, want any", p.ID, ok)
	}
}

func TestProfileStoreFindMatchNoProfiles(t *testing.T) {
	store := newTestStore(t)
	if _, ok := store.FindMatch(0x04b4, 0x00f1, ""); ok {
		t.Error("FindMatch on empty store should miss")
	}
}

func TestProfileStoreSetAutoStart(t *testing.T) {
	store := newTestStore(t)

	if err := store.Add(CameraProfile{ID: "cam", Match: "*", ConfigFile: "a.toml", AutoStart: true}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := store.SetAutoStart("cam", false); err != nil {
		t.Fatalf("SetAutoStart failed: %v", err)
	}
	if p, _ := store.Get("cam"); p.AutoStart {
		t.Error("AutoStart still set after SetAutoStart(false)")
	}

	if err := store.SetAutoStart("ghost", true); err == nil {
		t.Error("SetAutoStart of unknown profile should fail")
	}
}
