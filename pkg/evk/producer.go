package evk

import (
	"context"
	"time"
)

const (
	eventQueueDepth = 64

	// starvedBackoff paces the producer while every buffer is checked
	// out and the queue is empty.
	starvedBackoff = 2 * time.Millisecond
	// faultBackoff paces retries after a transport read error so a
	// wedged link does not spin the loop.
	faultBackoff = 5 * time.Millisecond
)

// postEvent never blocks: event consumers falling behind must not
// stall capture, so excess events are shed.
func (s *session) postEvent(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

// captureLoop is the producer: it pulls a free buffer, reads one frame
// from the transport into it and hands the result to the consumer side
// (queue or callback). It takes no camera locks besides the callback
// registry, so Stop can hold the camera mutex through the whole
// teardown.
func (c *Camera) captureLoop(ctx context.Context, s *session) {
	defer s.captureDone.Done()
	var seq uint32
	for ctx.Err() == nil {
		slot, buf, ok := s.arena.acquire()
		if !ok {
			// Free list is dry. Recycle the oldest queued frame so the
			// newest data wins; if callers hold everything, idle until
			// a buffer comes back.
			old, recycled := s.queue.popOldest()
			if !recycled {
				select {
				case <-ctx.Done():
					return
				case <-time.After(starvedBackoff):
				}
				continue
			}
			slot = old.slot - 1
			buf = s.arena.buffer(slot)
			s.stats.recordDrop()
		}

		s.postEvent(Event{Code: EventFrameStart, Seq: seq})
		info, err := c.tr.ReadFrame(ctx, buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.stats.recordFault()
			s.postEvent(Event{Code: EventTransferError, Seq: seq, Err: err})
			s.arena.giveBack(slot)
			select {
			case <-ctx.Done():
				return
			case <-time.After(faultBackoff):
			}
			continue
		}

		fault := info.Fault
		if fault == nil && info.Size != len(buf) {
			fault = &TransferFault{Event: EventTransferLengthError}
		}
		if fault != nil {
			s.stats.recordFault()
			s.postEvent(Event{Code: fault.Event, Seq: seq, Err: fault.Err})
			if !c.forceCapture.Load() || info.Size <= 0 {
				s.arena.giveBack(slot)
				continue
			}
		}
		if info.Size <= 0 || info.Size > len(buf) {
			s.arena.giveBack(slot)
			continue
		}

		frame := Frame{
			Seq:          seq,
			Timestamp:    c.stamp(info),
			AllocSize:    uint32(len(buf)),
			ExpectedSize: s.expectedSize,
			Size:         uint32(info.Size),
			Data:         buf[:info.Size],
			Format:       s.format,
			slot:         slot + 1,
		}
		seq++

		if cb := c.captureCallback(); cb != nil {
			// Push delivery: the callback borrows the buffer for the
			// duration of the call.
			s.stats.recordFrame(info.Size)
			cb(frame)
			s.arena.giveBack(slot)
		} else if s.queue.push(frame) {
			s.stats.recordFrame(info.Size)
		} else {
			// Queue poisoned mid-delivery: the session is stopping.
			return
		}
		s.postEvent(Event{Code: EventFrameEnd, Seq: frame.Seq})
	}
}

// eventLoop drains the session event channel, forwarding to the
// registered callback. It exits when Stop closes the channel after
// posting Exit.
func (c *Camera) eventLoop(s *session) {
	defer s.eventDone.Done()
	for ev := range s.events {
		if cb := c.eventCallback(); cb != nil {
			cb(ev)
		}
		if ev.Code.IsTransferFault() {
			c.log.Debug("transfer fault",
				"event", ev.Code, "seq", ev.Seq, "error", ev.Err)
		} else {
			c.log.Log(context.Background(), LevelTrace,
				"camera event", "event", ev.Code, "seq", ev.Seq)
		}
	}
}

// stamp converts the transport clock sample into the configured frame
// timestamp domain: firmware ticks (100 ns) when the board supplies
// them, host milliseconds otherwise.
func (c *Camera) stamp(info FrameInfo) uint64 {
	if TimeSource(c.timeSource.Load()) == TimeSourceFirmware {
		if info.Timestamp != 0 {
			return info.Timestamp
		}
		return uint64(time.Now().UnixNano() / 100)
	}
	return uint64(time.Now().UnixMilli())
}
