package evk

import (
	"os"
	"path/filepath"
	"testing"
)

func openBinaryCamera(t *testing.T) (*Camera, *stubTransport) {
	t.Helper()
	blob, err := MarshalBinaryConfig(twoModeDescription())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "cam.evkb")
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		t.Fatal(err)
	}
	tr := newStubTransport()
	cam, err := Open(OpenParam{Transport: tr, ConfigFile: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if cam.State() != StateClosed {
			cam.Close()
		}
	})
	return cam, tr
}

func TestListModes(t *testing.T) {
	cam, _ := openBinaryCamera(t)
	if !cam.BinConfigLoaded() {
		t.Fatal("binary description not flagged")
	}
	modes := cam.ListModes()
	if len(modes) != 2 || modes[0].ID != 0 || modes[1].ID != 1 {
		t.Fatalf("ListModes = %+v", modes)
	}
	active, ok := cam.ActiveMode()
	if !ok || active.ID != 0 {
		t.Errorf("ActiveMode = (%+v, %v), want mode 0", active, ok)
	}
}

func TestSwitchMode(t *testing.T) {
	cam, tr := openBinaryCamera(t)
	if err := cam.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	tr.takeRequests()

	if err := cam.SwitchMode(1); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if cam.Config().Width != 1920 {
		t.Errorf("config width = %d, want 1920 after switch", cam.Config().Width)
	}
	active, _ := cam.ActiveMode()
	if active.ID != 1 {
		t.Errorf("active mode = %d, want 1", active.ID)
	}
	// Mode 1 carries a single register write.
	if reqs := tr.takeRequests(); len(reqs) != 1 {
		t.Errorf("switch issued %d requests, want 1", len(reqs))
	}

	if err := cam.SwitchMode(9); CodeOf(err) != CodeInvalidArgument {
		t.Errorf("unknown mode: code %v, want InvalidArgument", CodeOf(err))
	}
}

func TestSwitchModeGuards(t *testing.T) {
	t.Run("before init", func(t *testing.T) {
		cam, _ := openBinaryCamera(t)
		if err := cam.SwitchMode(1); CodeOf(err) != CodeStateError {
			t.Errorf("code %v, want StateError", CodeOf(err))
		}
	})
	t.Run("while started", func(t *testing.T) {
		cam, _ := openBinaryCamera(t)
		if err := cam.Init(); err != nil {
			t.Fatal(err)
		}
		if err := cam.Start(); err != nil {
			t.Fatal(err)
		}
		if err := cam.SwitchMode(1); CodeOf(err) != CodeStateError {
			t.Errorf("code %v, want StateError", CodeOf(err))
		}
	})
	t.Run("text description", func(t *testing.T) {
		cam, _ := openTestCamera(t)
		if err := cam.Init(); err != nil {
			t.Fatal(err)
		}
		if err := cam.SwitchMode(0); CodeOf(err) != CodeStateError {
			t.Errorf("code %v, want StateError", CodeOf(err))
		}
	})
}

func TestSwitchModeAfterStop(t *testing.T) {
	cam, _ := openBinaryCamera(t)
	if err := cam.Init(); err != nil {
		t.Fatal(err)
	}
	if err := cam.Start(); err != nil {
		t.Fatal(err)
	}
	if err := cam.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := cam.SwitchMode(1); err != nil {
		t.Fatalf("switch after stop: %v", err)
	}
	// The next Start sizes buffers for the new mode.
	if err := cam.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	frame, err := cam.Capture(DefaultCaptureTimeout)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if frame.ExpectedSize != 1920*1080*2 {
		t.Errorf("frame expected size = %d, want %d", frame.ExpectedSize, 1920*1080*2)
	}
	cam.FreeImage(frame)
}
