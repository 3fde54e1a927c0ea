package evk

import (
	"errors"
	"fmt"
)

// Code identifies an SDK failure class. The numeric values are part of
// the device protocol surface and stay stable across releases.
type Code uint16

const (
	CodeSuccess         Code = 0x0000
	CodeEmpty           Code = 0x0010
	CodeInvalidArgument Code = 0x0011
	CodeNotSameDevice   Code = 0x0012

	CodeReadConfigFileFailed Code = 0x0101
	CodeConfigFileEmpty      Code = 0x0102
	CodeConfigFormatError    Code = 0x0103
	CodeControlFormatError   Code = 0x0104

	CodeOpenCameraFailed  Code = 0x0201
	CodeUnknownUSBType    Code = 0x0202
	CodeUnknownDeviceType Code = 0x0203

	CodeInitCameraFailed     Code = 0x0301
	CodeMemoryAllocateFailed Code = 0x0302

	CodeUSBTypeMismatch Code = 0x0401

	CodeCaptureTimeout        Code = 0x0601
	CodeCaptureMethodConflict Code = 0x0602

	CodeFreeEmptyBuffer Code = 0x0701
	// CodeFreeUnknowBuffer keeps the historical spelling of the wire
	// protocol's error table.
	CodeFreeUnknowBuffer Code = 0x0702

	CodeRegisterMultipleCallback Code = 0x0801

	CodeStateError Code = 0x8001

	CodeNotSupported Code = 0xF001

	CodeVRCommandError    Code = 0xFF03
	CodeUserdataAddrError Code = 0xFF61
	CodeUserdataLenError  Code = 0xFF62

	CodeUnknownError Code = 0xFFFF
)

var codeNames = map[Code]string{
	CodeSuccess:                  "Success",
	CodeEmpty:                    "Empty",
	CodeInvalidArgument:          "Invalid argument",
	CodeNotSameDevice:            "Not the same device",
	CodeReadConfigFileFailed:     "Failed to read configuration file",
	CodeConfigFileEmpty:          "Configuration file is empty",
	CodeConfigFormatError:        "Camera configuration format error",
	CodeControlFormatError:       "Camera control format error",
	CodeOpenCameraFailed:         "Failed to open camera",
	CodeUnknownUSBType:           "Unknown USB type",
	CodeUnknownDeviceType:        "Unknown device type",
	CodeInitCameraFailed:         "Failed to initialize camera",
	CodeMemoryAllocateFailed:     "Failed to allocate memory",
	CodeUSBTypeMismatch:          "USB type mismatch",
	CodeCaptureTimeout:           "Capture timeout",
	CodeCaptureMethodConflict:    "Capture method conflict",
	CodeFreeEmptyBuffer:          "Free empty buffer",
	CodeFreeUnknowBuffer:         "Free unknown buffer",
	CodeRegisterMultipleCallback: "Register multiple callback",
	CodeStateError:               "Camera state error",
	CodeNotSupported:             "Not supported",
	CodeVRCommandError:           "Vendor command error",
	CodeUserdataAddrError:        "Userdata address error",
	CodeUserdataLenError:         "Userdata length error",
	CodeUnknownError:             "Unknown error",
}

// String returns the stable display name for the code. Unlisted values
// render as the raw hex so logs never lose information.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(0x%04X)", uint16(c))
}

// Error is returned by every synchronous SDK operation that fails.
// Asynchronous device faults never surface here; they are delivered as
// events on the event callback.
type Error struct {
	Code Code
	Op   string // operation that failed, e.g. "capture"
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("evk: %s: %s: %v", e.Op, e.Code, e.Err)
	case e.Op != "":
		return fmt.Sprintf("evk: %s: %s", e.Op, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("evk: %s: %v", e.Code, e.Err)
	default:
		return "evk: " + e.Code.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so
// errors.Is(err, evk.ErrCaptureTimeout) works regardless of Op or
// wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for the codes callers commonly branch on.
var (
	ErrCaptureTimeout        = &Error{Code: CodeCaptureTimeout}
	ErrCaptureMethodConflict = &Error{Code: CodeCaptureMethodConflict}
	ErrFreeEmptyBuffer       = &Error{Code: CodeFreeEmptyBuffer}
	ErrFreeUnknowBuffer      = &Error{Code: CodeFreeUnknowBuffer}
	ErrMultipleCallback      = &Error{Code: CodeRegisterMultipleCallback}
	ErrState                 = &Error{Code: CodeStateError}
	ErrNotSupported          = &Error{Code: CodeNotSupported}
	ErrUSBTypeMismatch       = &Error{Code: CodeUSBTypeMismatch}
)

// CodeOf extracts the failure code from err. A nil err reports
// CodeSuccess; an error without a code reports CodeUnknownError.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknownError
}

func opErr(op string, code Code) *Error {
	return &Error{Code: code, Op: op}
}

func wrapErr(op string, code Code, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}
