package evk

import "fmt"

// Control describes one named, range-checked camera tunable backed by
// a sensor register.
type Control struct {
	// Name is the display label, e.g. "Exposure".
	Name string
	// Func is the stable identifier SetCtrl addresses, e.g.
	// "setExposure".
	Func    string
	Min     int64
	Max     int64
	Step    int64
	Default int64
	// Reg is the sensor register the control value is written to.
	Reg uint32
}

func (c Control) validate() error {
	if c.Func == "" {
		return fmt.Errorf("control %q has no function name", c.Name)
	}
	if c.Max < c.Min {
		return fmt.Errorf("control %q range [%d, %d] inverted", c.Func, c.Min, c.Max)
	}
	if c.Step <= 0 {
		return fmt.Errorf("control %q step %d must be positive", c.Func, c.Step)
	}
	if c.Default < c.Min || c.Default > c.Max {
		return fmt.Errorf("control %q default %d outside [%d, %d]", c.Func, c.Default, c.Min, c.Max)
	}
	return nil
}

// checkValue validates val against the control's range and step grid.
func (c Control) checkValue(val int64) error {
	if val < c.Min || val > c.Max {
		return fmt.Errorf("control %q value %d outside [%d, %d]", c.Func, val, c.Min, c.Max)
	}
	if c.Step > 1 && (val-c.Min)%c.Step != 0 {
		return fmt.Errorf("control %q value %d off the step grid (%d)", c.Func, val, c.Step)
	}
	return nil
}

// RegisterCtrls adds controls to the camera, replacing any that share
// a Func name. Controls loaded from the description file are
// registered automatically during Init.
func (c *Camera) RegisterCtrls(controls []Control) error {
	for _, ctrl := range controls {
		if err := ctrl.validate(); err != nil {
			return wrapErr("register controls", CodeControlFormatError, err)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return opErr("register controls", CodeStateError)
	}
	c.replaceControlsLocked(controls)
	return nil
}

func (c *Camera) replaceControlsLocked(controls []Control) {
	for _, ctrl := range controls {
		replaced := false
		for i, existing := range c.controls {
			if existing.Func == ctrl.Func {
				c.controls[i] = ctrl
				replaced = true
				break
			}
		}
		if !replaced {
			c.controls = append(c.controls, ctrl)
		}
	}
}

// ListCtrls returns a copy of the registered controls.
func (c *Camera) ListCtrls() []Control {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Control(nil), c.controls...)
}

// ClearCtrls drops every registered control.
func (c *Camera) ClearCtrls() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return opErr("clear controls", CodeStateError)
	}
	c.controls = nil
	return nil
}

// SetCtrl validates val against the named control and writes it to the
// control's sensor register. The camera must be initialized so the I2C
// personality is known.
func (c *Camera) SetCtrl(fn string, val int64) error {
	c.mu.Lock()
	if c.state != StateInitialized && c.state != StateStarted && c.state != StateStopped {
		c.mu.Unlock()
		return opErr("set control", CodeStateError)
	}
	var ctrl *Control
	for i := range c.controls {
		if c.controls[i].Func == fn {
			ctrl = &c.controls[i]
			break
		}
	}
	if ctrl == nil {
		c.mu.Unlock()
		return wrapErr("set control", CodeInvalidArgument, fmt.Errorf("unknown control %q", fn))
	}
	found := *ctrl
	cfg := c.cfg
	c.mu.Unlock()

	if err := found.checkValue(val); err != nil {
		return wrapErr("set control", CodeInvalidArgument, err)
	}
	if err := c.writeReg(cfg.I2CMode, uint32(cfg.I2CAddr), found.Reg, uint32(val)); err != nil {
		return err
	}
	c.log.Debug("control set", "func", fn, "value", val, "reg", fmt.Sprintf("%#x", found.Reg))
	return nil
}
