// Package led drives board activity LEDs over the Linux sysfs LED
// class. The daemon uses the system LED as a capture indicator:
// heartbeat while idle, solid while any camera streams.
package led

// LED patterns understood by every controller. Unknown strings pass
// through to the kernel trigger untranslated.
const (
	PatternSolid     = "solid"
	PatternBlink     = "blink"
	PatternHeartbeat = "heartbeat"
	PatternNone      = "none"
)

// Controller is one board's set of addressable LEDs. Boards differ in
// which LEDs exist and what the kernel names them; the name argument
// is the board-independent role ("system", "user").
type Controller interface {
	// Set switches the named LED on or off and applies a pattern.
	// An empty pattern leaves the current trigger untouched.
	Set(name string, enabled bool, pattern string) error

	// Available lists the LED roles this board exposes.
	Available() []string

	// Patterns lists the patterns Set translates for this board.
	Patterns() []string
}
