package led

import (
	"fmt"
	"os"
	"path/filepath"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs drives LEDs through /sys/class/leds/<name>/{trigger,brightness}.
type sysfs struct {
	leds map[string]string // role -> kernel LED name
}

func newSysfs(leds map[string]string) *sysfs {
	return &sysfs{leds: leds}
}

// triggerFor maps a portable pattern to the kernel trigger written to
// the LED's trigger file. Solid means manual control, so the trigger
// is released to "none" and brightness does the rest.
func triggerFor(pattern string) string {
	switch pattern {
	case PatternSolid:
		return "none"
	case PatternBlink, PatternHeartbeat:
		return "heartbeat"
	default:
		return pattern
	}
}

func (s *sysfs) Set(name string, enabled bool, pattern string) error {
	kernelName, ok := s.leds[name]
	if !ok {
		return fmt.Errorf("no %q LED on this board", name)
	}
	dir := filepath.Join(sysfsLEDPath, kernelName)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("LED %q not present at %s", name, dir)
	}

	if pattern != "" {
		if err := writeAttr(dir, "trigger", triggerFor(pattern)); err != nil {
			return fmt.Errorf("set trigger for %q: %w", name, err)
		}
	}

	brightness := "0"
	if enabled {
		brightness = "1"
	}
	if err := writeAttr(dir, "brightness", brightness); err != nil {
		return fmt.Errorf("set brightness for %q: %w", name, err)
	}
	return nil
}

func writeAttr(dir, attr, value string) error {
	return os.WriteFile(filepath.Join(dir, attr), []byte(value), 0o644)
}

func (s *sysfs) Available() []string {
	roles := make([]string, 0, len(s.leds))
	for role := range s.leds {
		roles = append(roles, role)
	}
	return roles
}

func (s *sysfs) Patterns() []string {
	return []string{PatternSolid, PatternBlink, PatternHeartbeat}
}
