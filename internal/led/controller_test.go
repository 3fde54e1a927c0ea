package led

import (
	"slices"
	"strings"
	"testing"
)

func TestTriggerFor(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{PatternSolid, "none"},
		{PatternBlink, "heartbeat"},
		{PatternHeartbeat, "heartbeat"},
		{"mmc0", "mmc0"},
	}
	for _, tt := range tests {
		if got := triggerFor(tt.pattern); got != tt.want {
			t.Errorf("triggerFor(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestNoopAcceptsEverything(t *testing.T) {
	ctrl := newNoop(nil)

	if err := ctrl.Set("system", true, PatternSolid); err != nil {
		t.Errorf("Set() on noop returned %v", err)
	}
	if err := ctrl.Set("bogus", false, ""); err != nil {
		t.Errorf("Set() on noop with unknown role returned %v", err)
	}
	if roles := ctrl.Available(); len(roles) != 0 {
		t.Errorf("Available() = %v, want none", roles)
	}
	if patterns := ctrl.Patterns(); len(patterns) != 0 {
		t.Errorf("Patterns() = %v, want none", patterns)
	}
}

func TestSysfsAvailable(t *testing.T) {
	ctrl := newSysfs(map[string]string{"user": "usr_led", "system": "sys_led"})

	roles := ctrl.Available()
	slices.Sort(roles)
	if want := []string{"system", "user"}; !slices.Equal(roles, want) {
		t.Errorf("Available() = %v, want %v", roles, want)
	}

	if roles := newSysfs(nil).Available(); len(roles) != 0 {
		t.Errorf("Available() on empty table = %v, want none", roles)
	}
}

func TestSysfsPatterns(t *testing.T) {
	patterns := newSysfs(map[string]string{"system": "sys_led"}).Patterns()
	for _, want := range []string{PatternSolid, PatternBlink, PatternHeartbeat} {
		if !slices.Contains(patterns, want) {
			t.Errorf("Patterns() = %v, missing %q", patterns, want)
		}
	}
}

func TestSysfsSetUnknownRole(t *testing.T) {
	ctrl := newSysfs(map[string]string{"system": "sys_led"})

	err := ctrl.Set("underglow", true, PatternSolid)
	if err == nil {
		t.Fatal("Set() with unknown role did not fail")
	}
	if !strings.Contains(err.Error(), "underglow") {
		t.Errorf("Set() error %q does not name the role", err)
	}
}
