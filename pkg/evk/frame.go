package evk

import "fmt"

// FormatMode is the pixel interpretation of a frame, stored in the high
// byte of PixelFormat.
type FormatMode uint8

const (
	FormatModeRaw   FormatMode = 0
	FormatModeRGB   FormatMode = 1
	FormatModeYUV   FormatMode = 2
	FormatModeJPG   FormatMode = 3
	FormatModeMono  FormatMode = 4
	FormatModeRawD  FormatMode = 5
	FormatModeMonoD FormatMode = 6
	// FormatModeTOF is accepted from old firmware but no longer
	// produced by current boards.
	FormatModeTOF   FormatMode = 7
	FormatModeStats FormatMode = 8
	FormatModeRGBIR FormatMode = 9
)

var formatModeNames = map[FormatMode]string{
	FormatModeRaw:   "raw",
	FormatModeRGB:   "rgb",
	FormatModeYUV:   "yuv",
	FormatModeJPG:   "jpg",
	FormatModeMono:  "mono",
	FormatModeRawD:  "raw_d",
	FormatModeMonoD: "mono_d",
	FormatModeTOF:   "tof",
	FormatModeStats: "stats",
	FormatModeRGBIR: "rgb_ir",
}

func (m FormatMode) String() string {
	if name, ok := formatModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// BayerOrder is the colour filter layout of a raw frame, stored in the
// low byte of PixelFormat.
type BayerOrder uint8

const (
	BayerRG BayerOrder = iota
	BayerGR
	BayerGB
	BayerBG
)

func (b BayerOrder) String() string {
	switch b {
	case BayerRG:
		return "rg"
	case BayerGR:
		return "gr"
	case BayerGB:
		return "gb"
	case BayerBG:
		return "bg"
	default:
		return fmt.Sprintf("bayer(%d)", uint8(b))
	}
}

// PixelFormat packs a FormatMode in the high byte and a BayerOrder in
// the low byte, matching the device's frame descriptor encoding.
type PixelFormat uint16

func NewPixelFormat(mode FormatMode, bayer BayerOrder) PixelFormat {
	return PixelFormat(uint16(mode)<<8 | uint16(bayer))
}

func (f PixelFormat) Mode() FormatMode  { return FormatMode(f >> 8) }
func (f PixelFormat) Bayer() BayerOrder { return BayerOrder(f & 0xFF) }

func (f PixelFormat) String() string {
	mode := f.Mode()
	switch mode {
	case FormatModeRaw, FormatModeRawD:
		return mode.String() + "/" + f.Bayer().String()
	default:
		return mode.String()
	}
}

// FrameFormat describes the geometry and encoding of a frame.
type FrameFormat struct {
	Width    uint32
	Height   uint32
	BitWidth uint8
	Format   PixelFormat
}

// BytesPerPixel is the storage width of one pixel; sub-byte depths are
// delivered one pixel per byte group, so 10 and 12 bit modes occupy
// two bytes.
func (f FrameFormat) BytesPerPixel() int {
	return (int(f.BitWidth) + 7) / 8
}

// Size returns the payload byte count implied by the format.
func (f FrameFormat) Size() int {
	return int(f.Width) * int(f.Height) * f.BytesPerPixel()
}

// Frame is one captured image buffer plus metadata.
//
// While a frame sits in the output queue its buffer belongs to the
// capture engine. Capture hands ownership to the caller; FreeImage
// hands it back. In callback mode the callback only borrows the frame
// and the buffer returns to the engine when the callback returns. Data
// aliases the session's buffer arena and must not be retained after
// the hand-back.
type Frame struct {
	// Seq is producer-assigned and increases by one per delivered
	// frame within a capture session.
	Seq uint32
	// Timestamp is in milliseconds for TimeSourceSystem and in 100 ns
	// ticks for TimeSourceFirmware.
	Timestamp uint64
	// AllocSize is the capacity of the underlying arena buffer.
	AllocSize uint32
	// ExpectedSize is derived from the camera configuration at the
	// start of the session.
	ExpectedSize uint32
	// Size is the byte count the device actually filled. It differs
	// from ExpectedSize only for variable-length modes and for faulted
	// frames delivered under force capture.
	Size   uint32
	Data   []byte
	Format FrameFormat

	// slot is the arena slot index plus one; zero marks a frame that
	// did not come from a live session arena.
	slot int
}
