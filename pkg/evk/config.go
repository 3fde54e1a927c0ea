package evk

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// I2CMode selects the register-address and data widths used for sensor
// I2C transactions.
type I2CMode uint8

const (
	I2CMode8_8   I2CMode = 0 // 8-bit address, 8-bit data
	I2CMode8_16  I2CMode = 1 // 8-bit address, 16-bit data
	I2CMode16_8  I2CMode = 2 // 16-bit address, 8-bit data
	I2CMode16_16 I2CMode = 3 // 16-bit address, 16-bit data
	I2CMode16_32 I2CMode = 4 // 16-bit address, 32-bit data
)

func (m I2CMode) String() string {
	switch m {
	case I2CMode8_8:
		return "8_8"
	case I2CMode8_16:
		return "8_16"
	case I2CMode16_8:
		return "16_8"
	case I2CMode16_16:
		return "16_16"
	case I2CMode16_32:
		return "16_32"
	default:
		return fmt.Sprintf("i2c(%d)", uint8(m))
	}
}

// AddrBits returns the register address width of the mode.
func (m I2CMode) AddrBits() int {
	if m <= I2CMode8_16 {
		return 8
	}
	return 16
}

// DataBits returns the data width of the mode.
func (m I2CMode) DataBits() int {
	switch m {
	case I2CMode8_8, I2CMode16_8:
		return 8
	case I2CMode8_16, I2CMode16_16:
		return 16
	default:
		return 32
	}
}

// ParseI2CMode accepts the "8_8".."16_32" spelling used in config
// files.
func ParseI2CMode(s string) (I2CMode, error) {
	switch strings.TrimSpace(s) {
	case "8_8":
		return I2CMode8_8, nil
	case "8_16":
		return I2CMode8_16, nil
	case "16_8":
		return I2CMode16_8, nil
	case "16_16":
		return I2CMode16_16, nil
	case "16_32":
		return I2CMode16_32, nil
	}
	return 0, fmt.Errorf("unknown i2c mode %q", s)
}

// TimeSource is the clock domain used to stamp frames.
type TimeSource uint8

const (
	// TimeSourceSystem stamps frames with host Unix time in
	// milliseconds.
	TimeSourceSystem TimeSource = 0
	// TimeSourceFirmware stamps frames with the device clock in
	// 100 ns ticks.
	TimeSourceFirmware TimeSource = 1
)

func (t TimeSource) String() string {
	switch t {
	case TimeSourceSystem:
		return "system"
	case TimeSourceFirmware:
		return "firmware"
	default:
		return fmt.Sprintf("timesource(%d)", uint8(t))
	}
}

// CameraConfig is the sensor-facing value set a camera needs before
// Init: geometry, pixel format and the I2C personality of the sensor.
type CameraConfig struct {
	Name     string
	Width    uint32
	Height   uint32
	BitWidth uint8
	Format   PixelFormat
	I2CMode  I2CMode
	I2CAddr  uint16
}

// ExpectedSize returns the frame payload size implied by the config.
// Frames failing this size at free time are rejected.
func (c CameraConfig) ExpectedSize() uint32 {
	bpp := (uint32(c.BitWidth) + 7) / 8
	return c.Width * c.Height * bpp
}

// FrameFormat projects the config into a frame descriptor.
func (c CameraConfig) FrameFormat() FrameFormat {
	return FrameFormat{
		Width:    c.Width,
		Height:   c.Height,
		BitWidth: c.BitWidth,
		Format:   c.Format,
	}
}

func (c CameraConfig) validate() error {
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("zero frame geometry %dx%d", c.Width, c.Height)
	}
	if c.BitWidth == 0 || c.BitWidth > 32 {
		return fmt.Errorf("bit width %d out of range", c.BitWidth)
	}
	if c.I2CMode > I2CMode16_32 {
		return fmt.Errorf("unknown i2c mode %d", c.I2CMode)
	}
	return nil
}

// RegOp is one entry of a mode's register init sequence.
type RegOp struct {
	Addr  uint32
	Value uint32
	// Delay is sensor settle time applied after the write.
	Delay time.Duration
}

// Mode groups a camera configuration with the register sequence and
// controls that realize it. Binary description files carry several
// modes for SwitchMode; text files carry exactly one with ID 0.
type Mode struct {
	ID        uint32
	Config    CameraConfig
	Registers []RegOp
	Controls  []Control
}

// ConfigFile is a parsed camera description file.
type ConfigFile struct {
	Modes []Mode
	// Binary records the on-disk flavour; mode switching requires it.
	Binary bool
}

// ParsePixelFormat accepts "mode" or "mode/bayer" spellings, e.g.
// "raw/bg", "raw/bggr", "mono", "jpg".
func ParsePixelFormat(s string) (PixelFormat, error) {
	modePart, bayerPart, _ := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "/")
	var mode FormatMode
	found := false
	for m, name := range formatModeNames {
		if name == modePart {
			mode, found = m, true
			break
		}
	}
	if !found {
		return 0, fmt.Errorf("unknown pixel format %q", s)
	}
	bayer := BayerRG
	if bayerPart != "" {
		// Four-letter spellings ("bggr") collapse to the leading pair.
		if len(bayerPart) == 4 {
			bayerPart = bayerPart[:2]
		}
		switch bayerPart {
		case "rg":
			bayer = BayerRG
		case "gr":
			bayer = BayerGR
		case "gb":
			bayer = BayerGB
		case "bg":
			bayer = BayerBG
		default:
			return 0, fmt.Errorf("unknown bayer order %q", s)
		}
	}
	return NewPixelFormat(mode, bayer), nil
}

// Text description file schema.
type tomlConfig struct {
	Camera    tomlCamera     `toml:"camera"`
	Registers []tomlRegister `toml:"register"`
	Controls  []tomlControl  `toml:"control"`
}

type tomlCamera struct {
	Name     string `toml:"name"`
	Width    uint32 `toml:"width"`
	Height   uint32 `toml:"height"`
	BitWidth uint8  `toml:"bit_width"`
	Format   string `toml:"format"`
	I2CMode  string `toml:"i2c_mode"`
	I2CAddr  int64  `toml:"i2c_addr"`
}

type tomlRegister struct {
	Addr    int64 `toml:"addr"`
	Value   int64 `toml:"value"`
	DelayMS int64 `toml:"delay_ms"`
}

type tomlControl struct {
	Name    string `toml:"name"`
	Func    string `toml:"func"`
	Min     int64  `toml:"min"`
	Max     int64  `toml:"max"`
	Step    int64  `toml:"step"`
	Default int64  `toml:"default"`
	Reg     int64  `toml:"reg"`
}

// LoadConfigFile reads and parses a camera description file, sniffing
// the binary magic to pick the decoder.
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapErr("load config", CodeReadConfigFileFailed, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, opErr("load config", CodeConfigFileEmpty)
	}
	if bytes.HasPrefix(data, binMagic[:]) {
		return ParseBinaryConfig(data)
	}
	return ParseTextConfig(data)
}

// ParseTextConfig decodes the TOML camera description format.
func ParseTextConfig(data []byte) (*ConfigFile, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, opErr("parse config", CodeConfigFileEmpty)
	}
	var raw tomlConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, wrapErr("parse config", CodeConfigFormatError, err)
	}

	cfg := CameraConfig{
		Name:     raw.Camera.Name,
		Width:    raw.Camera.Width,
		Height:   raw.Camera.Height,
		BitWidth: raw.Camera.BitWidth,
	}
	if raw.Camera.Format != "" {
		format, err := ParsePixelFormat(raw.Camera.Format)
		if err != nil {
			return nil, wrapErr("parse config", CodeConfigFormatError, err)
		}
		cfg.Format = format
	}
	if raw.Camera.I2CMode != "" {
		mode, err := ParseI2CMode(raw.Camera.I2CMode)
		if err != nil {
			return nil, wrapErr("parse config", CodeConfigFormatError, err)
		}
		cfg.I2CMode = mode
	}
	if raw.Camera.I2CAddr < 0 || raw.Camera.I2CAddr > 0xFFFF {
		return nil, wrapErr("parse config", CodeConfigFormatError,
			fmt.Errorf("i2c address %#x out of range", raw.Camera.I2CAddr))
	}
	cfg.I2CAddr = uint16(raw.Camera.I2CAddr)
	if err := cfg.validate(); err != nil {
		return nil, wrapErr("parse config", CodeConfigFormatError, err)
	}

	mode := Mode{Config: cfg}
	for _, r := range raw.Registers {
		if r.Addr < 0 || r.Addr > 0xFFFFFFFF || r.Value < 0 || r.Value > 0xFFFFFFFF || r.DelayMS < 0 {
			return nil, wrapErr("parse config", CodeConfigFormatError,
				fmt.Errorf("register entry %#x out of range", r.Addr))
		}
		mode.Registers = append(mode.Registers, RegOp{
			Addr:  uint32(r.Addr),
			Value: uint32(r.Value),
			Delay: time.Duration(r.DelayMS) * time.Millisecond,
		})
	}
	for _, c := range raw.Controls {
		ctrl := Control{
			Name:    c.Name,
			Func:    c.Func,
			Min:     c.Min,
			Max:     c.Max,
			Step:    c.Step,
			Default: c.Default,
		}
		if c.Reg < 0 || c.Reg > 0xFFFFFFFF {
			return nil, wrapErr("parse config", CodeControlFormatError,
				fmt.Errorf("control %q register out of range", c.Func))
		}
		ctrl.Reg = uint32(c.Reg)
		if err := ctrl.validate(); err != nil {
			return nil, wrapErr("parse config", CodeControlFormatError, err)
		}
		mode.Controls = append(mode.Controls, ctrl)
	}
	return &ConfigFile{Modes: []Mode{mode}}, nil
}

// mergeConfig overlays ext onto base: camera fields overlay when set,
// registers append, controls replace by Func. Only the first mode of
// each file participates; extension files refine a single mode.
func mergeConfig(base, ext *ConfigFile) *ConfigFile {
	if base == nil || len(base.Modes) == 0 {
		return ext
	}
	if ext == nil || len(ext.Modes) == 0 {
		return base
	}
	merged := *base
	merged.Modes = append([]Mode(nil), base.Modes...)
	m := &merged.Modes[0]
	e := ext.Modes[0]

	if e.Config.Name != "" {
		m.Config.Name = e.Config.Name
	}
	if e.Config.Width != 0 {
		m.Config.Width = e.Config.Width
	}
	if e.Config.Height != 0 {
		m.Config.Height = e.Config.Height
	}
	if e.Config.BitWidth != 0 {
		m.Config.BitWidth = e.Config.BitWidth
	}
	if e.Config.Format != 0 {
		m.Config.Format = e.Config.Format
	}
	if e.Config.I2CMode != 0 {
		m.Config.I2CMode = e.Config.I2CMode
	}
	if e.Config.I2CAddr != 0 {
		m.Config.I2CAddr = e.Config.I2CAddr
	}
	m.Registers = append(append([]RegOp(nil), m.Registers...), e.Registers...)

	controls := append([]Control(nil), m.Controls...)
	for _, ec := range e.Controls {
		replaced := false
		for i, mc := range controls {
			if mc.Func == ec.Func {
				controls[i] = ec
				replaced = true
				break
			}
		}
		if !replaced {
			controls = append(controls, ec)
		}
	}
	m.Controls = controls
	return &merged
}
