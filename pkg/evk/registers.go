package evk

import (
	"encoding/binary"
	"fmt"
)

// Register and board I/O. Everything here is a synchronous
// request/response over the transport's vendor-request plane; transfer
// streaming is unaffected and may run concurrently.

// transport returns the transport if the camera is at least opened.
func (c *Camera) transport(op string) (Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed || c.tr == nil {
		return nil, opErr(op, CodeStateError)
	}
	return c.tr, nil
}

// ReadReg reads a sensor register through an explicit I2C width mode.
// All five address/data width combinations are reachable through the
// mode argument.
func (c *Camera) ReadReg(mode I2CMode, chip, reg uint32) (uint32, error) {
	tr, err := c.transport("read reg")
	if err != nil {
		return 0, err
	}
	return readRegOn(tr, mode, chip, reg)
}

// WriteReg writes a sensor register through an explicit I2C width
// mode.
func (c *Camera) WriteReg(mode I2CMode, chip, reg, val uint32) error {
	tr, err := c.transport("write reg")
	if err != nil {
		return err
	}
	return writeRegOn(tr, mode, chip, reg, val)
}

// ReadSensorReg reads through the I2C mode and chip address of the
// active configuration.
func (c *Camera) ReadSensorReg(reg uint32) (uint32, error) {
	c.mu.Lock()
	cfg := c.cfg
	configured := c.cfgLoaded || c.cfgManual
	c.mu.Unlock()
	if !configured {
		return 0, opErr("read sensor reg", CodeStateError)
	}
	return c.ReadReg(cfg.I2CMode, uint32(cfg.I2CAddr), reg)
}

// WriteSensorReg writes through the I2C mode and chip address of the
// active configuration.
func (c *Camera) WriteSensorReg(reg, val uint32) error {
	c.mu.Lock()
	cfg := c.cfg
	configured := c.cfgLoaded || c.cfgManual
	c.mu.Unlock()
	if !configured {
		return opErr("write sensor reg", CodeStateError)
	}
	return c.writeReg(cfg.I2CMode, uint32(cfg.I2CAddr), reg, val)
}

func (c *Camera) writeReg(mode I2CMode, chip, reg, val uint32) error {
	tr, err := c.transport("write reg")
	if err != nil {
		return err
	}
	return writeRegOn(tr, mode, chip, reg, val)
}

// I2C payloads travel big-endian, matching the register ordering on
// the sensor bus.
func readRegOn(tr Transport, mode I2CMode, chip, reg uint32) (uint32, error) {
	if chip > 0xFF || reg > maxRegAddr(mode) {
		return 0, opErr("read reg", CodeInvalidArgument)
	}
	buf := make([]byte, mode.DataBits()/8)
	req := VendorRequest{
		Command:   VRCmdI2CRead,
		Direction: VRDeviceToHost,
		Value:     uint16(mode)<<8 | uint16(chip),
		Index:     uint16(reg),
	}
	n, err := tr.VendorRequest(req, buf)
	if err != nil {
		return 0, wrapErr("read reg", CodeVRCommandError, err)
	}
	if n != len(buf) {
		return 0, wrapErr("read reg", CodeVRCommandError,
			fmt.Errorf("short read: %d of %d bytes", n, len(buf)))
	}
	return regFromBytes(buf), nil
}

func writeRegOn(tr Transport, mode I2CMode, chip, reg, val uint32) error {
	if chip > 0xFF || reg > maxRegAddr(mode) || val > maxRegValue(mode) {
		return opErr("write reg", CodeInvalidArgument)
	}
	buf := regToBytes(mode, val)
	req := VendorRequest{
		Command:   VRCmdI2CWrite,
		Direction: VRHostToDevice,
		Value:     uint16(mode)<<8 | uint16(chip),
		Index:     uint16(reg),
	}
	if _, err := tr.VendorRequest(req, buf); err != nil {
		return wrapErr("write reg", CodeVRCommandError, err)
	}
	return nil
}

func maxRegAddr(mode I2CMode) uint32 {
	if mode.AddrBits() == 8 {
		return 0xFF
	}
	return 0xFFFF
}

func maxRegValue(mode I2CMode) uint32 {
	switch mode.DataBits() {
	case 8:
		return 0xFF
	case 16:
		return 0xFFFF
	default:
		return 0xFFFFFFFF
	}
}

func regFromBytes(buf []byte) uint32 {
	switch len(buf) {
	case 1:
		return uint32(buf[0])
	case 2:
		return uint32(binary.BigEndian.Uint16(buf))
	default:
		return binary.BigEndian.Uint32(buf)
	}
}

func regToBytes(mode I2CMode, val uint32) []byte {
	switch mode.DataBits() {
	case 8:
		return []byte{byte(val)}
	case 16:
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(val))
		return buf
	default:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, val)
		return buf
	}
}

// SendVRCommand performs a raw vendor request against the bridge
// firmware and returns the byte count moved.
func (c *Camera) SendVRCommand(command uint8, direction VRDirection, value, index uint16, data []byte) (int, error) {
	tr, err := c.transport("vr command")
	if err != nil {
		return 0, err
	}
	n, err := tr.VendorRequest(VendorRequest{
		Command:   command,
		Direction: direction,
		Value:     value,
		Index:     index,
	}, data)
	if err != nil {
		return n, wrapErr("vr command", CodeVRCommandError, err)
	}
	return n, nil
}

// ReadBoardConfig reads a board configuration block; command selects
// the firmware-defined block.
func (c *Camera) ReadBoardConfig(command uint8, value, index uint16, data []byte) error {
	_, err := c.SendVRCommand(command, VRDeviceToHost, value, index, data)
	return err
}

// WriteBoardConfig writes a board configuration block.
func (c *Camera) WriteBoardConfig(command uint8, value, index uint16, data []byte) error {
	_, err := c.SendVRCommand(command, VRHostToDevice, value, index, data)
	return err
}

// checkUserdataRange validates a userdata window access.
func checkUserdataRange(op string, addr uint32, n int) error {
	if addr >= UserdataSize {
		return opErr(op, CodeUserdataAddrError)
	}
	if n <= 0 || int(addr)+n > UserdataSize {
		return opErr(op, CodeUserdataLenError)
	}
	return nil
}

// ReadUserData reads len(data) bytes of the board's persistent
// userdata window starting at addr.
func (c *Camera) ReadUserData(addr uint32, data []byte) error {
	if err := checkUserdataRange("read userdata", addr, len(data)); err != nil {
		return err
	}
	tr, err := c.transport("read userdata")
	if err != nil {
		return err
	}
	req := VendorRequest{
		Command:   VRCmdUserdataRead,
		Direction: VRDeviceToHost,
		Value:     uint16(addr),
		Index:     uint16(len(data)),
	}
	if _, err := tr.VendorRequest(req, data); err != nil {
		return wrapErr("read userdata", CodeVRCommandError, err)
	}
	return nil
}

// WriteUserData writes data into the board's persistent userdata
// window starting at addr.
func (c *Camera) WriteUserData(addr uint32, data []byte) error {
	if err := checkUserdataRange("write userdata", addr, len(data)); err != nil {
		return err
	}
	tr, err := c.transport("write userdata")
	if err != nil {
		return err
	}
	req := VendorRequest{
		Command:   VRCmdUserdataWrite,
		Direction: VRHostToDevice,
		Value:     uint16(addr),
		Index:     uint16(len(data)),
	}
	if _, err := tr.VendorRequest(req, data); err != nil {
		return wrapErr("write userdata", CodeVRCommandError, err)
	}
	return nil
}
