package evk

import (
	"context"
	"fmt"
)

// USBSpeed is the negotiated link speed of a device.
type USBSpeed int

const (
	SpeedUnknown USBSpeed = iota
	SpeedLow
	SpeedFull
	SpeedHigh
	SpeedSuper
	SpeedSuperPlus
)

func (s USBSpeed) String() string {
	switch s {
	case SpeedLow:
		return "low (1.5 Mbit/s)"
	case SpeedFull:
		return "full (12 Mbit/s)"
	case SpeedHigh:
		return "high (480 Mbit/s)"
	case SpeedSuper:
		return "super (5 Gbit/s)"
	case SpeedSuperPlus:
		return "super+ (10 Gbit/s)"
	default:
		return "unknown"
	}
}

// USB interface generations reported by device descriptors.
const (
	USBType1 uint16 = 1
	USBType2 uint16 = 2
	USBType3 uint16 = 3
	// USBType3on2 marks a USB 3 board enumerated behind a USB 2 link.
	USBType3on2 uint16 = 4
)

// USBTypeName returns the display form of a USB interface generation.
func USBTypeName(t uint16) string {
	switch t {
	case USBType1:
		return "USB1.0"
	case USBType2:
		return "USB2.0"
	case USBType3:
		return "USB3.0"
	case USBType3on2:
		return "USB3.0 (USB2.0 link)"
	default:
		return fmt.Sprintf("USB?(%d)", t)
	}
}

// MemType selects where the transfer engine stages frame data on the
// bridge board.
type MemType uint8

const (
	MemTypeDMA MemType = 1
	MemTypeRAM MemType = 2
)

func (m MemType) String() string {
	switch m {
	case MemTypeDMA:
		return "dma"
	case MemTypeRAM:
		return "ram"
	default:
		return fmt.Sprintf("mem(%d)", uint8(m))
	}
}

// VRDirection is the data direction of a vendor request.
type VRDirection uint8

const (
	VRHostToDevice VRDirection = 0x00
	VRDeviceToHost VRDirection = 0x80
)

// Vendor request commands understood by the bridge firmware. I2C
// requests encode the width mode in the high byte of Value and the
// chip address in the low byte; Index carries the register address.
const (
	VRCmdI2CRead       uint8 = 0xD0
	VRCmdI2CWrite      uint8 = 0xD1
	VRCmdUserdataRead  uint8 = 0xD4
	VRCmdUserdataWrite uint8 = 0xD5
)

// UserdataSize is the byte size of the board's persistent userdata
// window addressed by ReadUserData and WriteUserData.
const UserdataSize = 1024

// VendorRequest is one USB control-plane command.
type VendorRequest struct {
	Command   uint8
	Direction VRDirection
	Value     uint16
	Index     uint16
}

// StreamConfig parameterizes the bulk transfer engine for a capture
// session.
type StreamConfig struct {
	// TransferCount is the number of USB transfers kept in flight.
	TransferCount int
	// TransferSize is the byte size of each transfer.
	TransferSize int
	MemType      MemType
}

// TransferFault classifies an asynchronous transfer failure attached
// to one frame read.
type TransferFault struct {
	// Event is one of EventTransferError, EventTransferTimeout or
	// EventTransferLengthError.
	Event EventCode
	Err   error
}

func (f *TransferFault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Event, f.Err)
	}
	return f.Event.String()
}

func (f *TransferFault) Unwrap() error { return f.Err }

// FrameInfo describes one frame read from the transport.
type FrameInfo struct {
	// Size is the number of bytes written into the caller's buffer.
	Size int
	// Timestamp is the device clock sample for the frame in 100 ns
	// ticks, zero when the transport has no clock of its own.
	Timestamp uint64
	// Fault carries the transfer-level failure for this frame, if
	// any. Data may still be partially present.
	Fault *TransferFault
}

// TransportInfo identifies the device behind a transport.
type TransportInfo struct {
	VendorID  uint16
	ProductID uint16
	Serial    string
	Path      string
	// USBType is the interface generation the board reports
	// (USBType1..USBType3on2).
	USBType uint16
	// Speed is the negotiated link speed.
	Speed USBSpeed
}

// Transport moves frames and control requests between the SDK and one
// physical or simulated device. Implementations must tolerate
// StopStream and VendorRequest running concurrently with a blocked
// ReadFrame; StopStream must unblock it.
type Transport interface {
	Open() error
	Close() error
	Info() TransportInfo
	StartStream(cfg StreamConfig) error
	StopStream() error
	// ReadFrame blocks until the device completes one frame, fills buf
	// and describes the result. It returns the context error once ctx
	// is cancelled.
	ReadFrame(ctx context.Context, buf []byte) (FrameInfo, error)
	// VendorRequest performs one control transfer and returns the byte
	// count moved.
	VendorRequest(req VendorRequest, data []byte) (int, error)
}
