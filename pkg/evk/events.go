package evk

import "fmt"

// EventCode identifies an asynchronous camera event. Transfer faults
// and device arrivals are only ever reported through events, never as
// return values of the synchronous API.
type EventCode uint32

const (
	EventNone       EventCode = 0x00
	EventFrameStart EventCode = 0x01
	EventFrameEnd   EventCode = 0x02
	EventExit       EventCode = 0x03
	EventSyncTime   EventCode = 0x04

	EventTransferError       EventCode = 0x0100
	EventTransferTimeout     EventCode = 0x0101
	EventTransferLengthError EventCode = 0x0102

	EventDeviceConnect        EventCode = 0x0200
	EventUnknownDeviceConnect EventCode = 0x0201
	EventDeviceDisconnect     EventCode = 0x0202
)

var eventNames = map[EventCode]string{
	EventNone:                 "none",
	EventFrameStart:           "frame_start",
	EventFrameEnd:             "frame_end",
	EventExit:                 "exit",
	EventSyncTime:             "sync_time",
	EventTransferError:        "transfer_error",
	EventTransferTimeout:      "transfer_timeout",
	EventTransferLengthError:  "transfer_length_error",
	EventDeviceConnect:        "device_connect",
	EventUnknownDeviceConnect: "unknown_device_connect",
	EventDeviceDisconnect:     "device_disconnect",
}

func (c EventCode) String() string {
	if name, ok := eventNames[c]; ok {
		return name
	}
	return fmt.Sprintf("event(0x%04X)", uint32(c))
}

// IsTransferFault reports whether the code describes a failed or
// incomplete USB transfer.
func (c EventCode) IsTransferFault() bool {
	return c >= EventTransferError && c <= EventTransferLengthError
}

// Event is one asynchronous notification, delivered in order on the
// camera's event goroutine.
type Event struct {
	Code EventCode
	// Seq is the frame sequence the event refers to, for frame and
	// transfer events.
	Seq uint32
	// Err is the cause for transfer faults, nil otherwise.
	Err error
}

// EventCallback receives asynchronous camera events. It runs on the
// camera's event goroutine; a slow callback delays later events but
// never blocks capture itself.
type EventCallback func(Event)

// CaptureCallback receives every completed frame when registered. The
// frame is only valid until the callback returns; its buffer then goes
// back to the capture engine.
type CaptureCallback func(Frame)
