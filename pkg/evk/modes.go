package evk

import "fmt"

// ListModes returns the modes carried by the loaded description file.
// The returned slice is the caller's; the register and control slices
// inside are shared and must be treated as read-only.
func (c *Camera) ListModes() []Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	modes := make([]Mode, len(c.modes))
	copy(modes, c.modes)
	return modes
}

// ActiveMode reports the mode the camera is currently programmed
// with, false when no description file is loaded.
func (c *Camera) ActiveMode() (Mode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.modes) == 0 {
		return Mode{}, false
	}
	return c.modes[c.activeMode], true
}

// SwitchMode reprograms the camera to another mode of a binary
// description. Only binary descriptions carry multiple addressable
// modes, and the session must not be running.
func (c *Camera) SwitchMode(id uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInitialized && c.state != StateStopped {
		return opErr("switch mode", CodeStateError)
	}
	if !c.binLoaded {
		return opErr("switch mode", CodeStateError)
	}
	idx := -1
	for i := range c.modes {
		if c.modes[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return wrapErr("switch mode", CodeInvalidArgument, fmt.Errorf("no mode %d", id))
	}
	mode := c.modes[idx]
	if err := applyModeOn(c.tr, mode); err != nil {
		return wrapErr("switch mode", CodeInitCameraFailed, err)
	}
	c.activeMode = idx
	c.cfg = mode.Config
	c.replaceControlsLocked(mode.Controls)
	c.log.Info("mode switched",
		"mode", id,
		"width", mode.Config.Width,
		"height", mode.Config.Height)
	return nil
}
