package led

import (
	"testing"
)

func TestNewNeverNil(t *testing.T) {
	ctrl := New(nil)
	if ctrl == nil {
		t.Fatal("New() returned nil controller")
	}

	// Whatever the host is, the controller has to be callable.
	if ctrl.Available() == nil {
		t.Error("Available() returned nil slice")
	}
	if ctrl.Patterns() == nil {
		t.Error("Patterns() returned nil slice")
	}
}

func TestBoardTableHasSystemLED(t *testing.T) {
	// The manager drives the "system" role for capture indication, so
	// every supported board must map it.
	for _, board := range boardLEDs {
		if _, ok := board.leds["system"]; !ok {
			t.Errorf("board %q has no system LED", board.model)
		}
	}
}

func TestDetectBoard(t *testing.T) {
	model := detectBoard()
	if model == "" {
		t.Error("detectBoard() returned empty model")
	}
	if model == "unknown" {
		t.Log("no device-tree model on this host")
	}
}
