package evk

import (
	"os"
	"path/filepath"
	"testing"
)

func exposureCtrl() Control {
	return Control{Name: "Exposure", Func: "exposure", Min: 0, Max: 1000, Step: 4, Default: 100, Reg: 0x015A}
}

func TestControlCheckValue(t *testing.T) {
	c := exposureCtrl()
	if err := c.checkValue(100); err != nil {
		t.Errorf("on-grid value rejected: %v", err)
	}
	if err := c.checkValue(-4); err == nil {
		t.Error("below min accepted")
	}
	if err := c.checkValue(1004); err == nil {
		t.Error("above max accepted")
	}
	if err := c.checkValue(101); err == nil {
		t.Error("off-grid value accepted")
	}
}

func TestRegisterCtrls(t *testing.T) {
	cam, _ := openTestCamera(t)

	if err := cam.RegisterCtrls([]Control{exposureCtrl()}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := cam.ListCtrls(); len(got) != 1 || got[0].Func != "exposure" {
		t.Errorf("ListCtrls = %+v", got)
	}

	// Same Func replaces, different Func appends.
	tweaked := exposureCtrl()
	tweaked.Max = 2000
	gain := Control{Name: "Gain", Func: "gain", Min: 0, Max: 48, Step: 1, Reg: 0x0157}
	if err := cam.RegisterCtrls([]Control{tweaked, gain}); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	got := cam.ListCtrls()
	if len(got) != 2 {
		t.Fatalf("ListCtrls = %+v, want 2 entries", got)
	}
	for _, c := range got {
		if c.Func == "exposure" && c.Max != 2000 {
			t.Errorf("exposure not replaced: %+v", c)
		}
	}

	bad := Control{Func: "broken", Min: 10, Max: 0, Step: 1}
	if err := cam.RegisterCtrls([]Control{bad}); CodeOf(err) != CodeControlFormatError {
		t.Errorf("invalid control: code %v, want ControlFormatError", CodeOf(err))
	}

	if err := cam.ClearCtrls(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := cam.ListCtrls(); len(got) != 0 {
		t.Errorf("ListCtrls after clear = %+v", got)
	}
}

func TestSetCtrl(t *testing.T) {
	cam, tr := openTestCamera(t)
	if err := cam.RegisterCtrls([]Control{exposureCtrl()}); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Opened is too early: the sensor is not programmed yet.
	if err := cam.SetCtrl("exposure", 100); CodeOf(err) != CodeStateError {
		t.Errorf("SetCtrl in Opened: code %v, want StateError", CodeOf(err))
	}

	if err := cam.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	tr.takeRequests()

	if err := cam.SetCtrl("exposure", 200); err != nil {
		t.Fatalf("SetCtrl: %v", err)
	}
	reqs := tr.takeRequests()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests, want 1", len(reqs))
	}
	if reqs[0].Command != VRCmdI2CWrite || reqs[0].Index != 0x015A {
		t.Errorf("control write = %+v", reqs[0])
	}

	if err := cam.SetCtrl("exposure", 3); CodeOf(err) != CodeInvalidArgument {
		t.Errorf("off-grid value: got %v, want InvalidArgument", err)
	}
	if err := cam.SetCtrl("focus", 1); CodeOf(err) != CodeInvalidArgument {
		t.Errorf("unknown control: code %v, want InvalidArgument", CodeOf(err))
	}
}

func TestInitInstallsModeControls(t *testing.T) {
	tr := newStubTransport()
	path := filepath.Join(t.TempDir(), "cam.toml")
	if err := os.WriteFile(path, []byte(sampleTextConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	cam, err := Open(OpenParam{Transport: tr, ConfigFile: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cam.Close()

	if len(cam.ListCtrls()) != 0 {
		t.Error("controls installed before init")
	}
	if err := cam.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	got := cam.ListCtrls()
	if len(got) != 1 || got[0].Func != "exposure" {
		t.Errorf("controls after init = %+v", got)
	}

	// Init programmed the two description registers.
	var writes int
	for _, req := range tr.takeRequests() {
		if req.Command == VRCmdI2CWrite {
			writes++
		}
	}
	if writes != 2 {
		t.Errorf("init issued %d register writes, want 2", writes)
	}
}
