package evk

import "time"

// DefaultCaptureTimeout is the wait bound applications conventionally
// pass to Capture and WaitCapture.
const DefaultCaptureTimeout = 1500 * time.Millisecond

// session returns the live capture session, or the state error for
// callers arriving before Start or after Close.
func (c *Camera) session(op string) (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || (c.state != StateStarted && c.state != StateStopped) {
		return nil, opErr(op, CodeStateError)
	}
	return c.sess, nil
}

// WaitCapture blocks until a frame is available, leaving it queued.
// timeout < 0 waits indefinitely, 0 polls. The bool reports
// availability; expiry is not an error. Conflicts with a registered
// capture callback.
func (c *Camera) WaitCapture(timeout time.Duration) (bool, error) {
	s, err := c.session("wait capture")
	if err != nil {
		return false, err
	}
	if c.HasCaptureCallback() {
		return false, opErr("wait capture", CodeCaptureMethodConflict)
	}
	switch werr := s.queue.wait(timeout); werr {
	case nil:
		return true, nil
	case errQueueTimeout:
		return false, nil
	default:
		return false, opErr("wait capture", CodeStateError)
	}
}

// Capture dequeues the oldest frame, transferring buffer ownership to
// the caller until FreeImage. Conflicts with a registered capture
// callback.
func (c *Camera) Capture(timeout time.Duration) (Frame, error) {
	s, err := c.session("capture")
	if err != nil {
		return Frame{}, err
	}
	if c.HasCaptureCallback() {
		return Frame{}, opErr("capture", CodeCaptureMethodConflict)
	}
	f, perr := s.queue.pop(timeout)
	switch perr {
	case nil:
	case errQueueTimeout:
		return Frame{}, opErr("capture", CodeCaptureTimeout)
	default:
		return Frame{}, opErr("capture", CodeStateError)
	}
	s.stats.checkedOut(1)
	return f, nil
}

// FreeImage returns a captured frame's buffer to the free list so the
// producer can reuse it. Buffers that do not belong to the live
// session are dropped with a warning rather than poisoning the arena.
func (c *Camera) FreeImage(f Frame) error {
	if len(f.Data) == 0 {
		return opErr("free image", CodeFreeEmptyBuffer)
	}
	c.mu.Lock()
	s := c.sess
	expected := c.cfg.ExpectedSize()
	c.mu.Unlock()
	if s == nil {
		return opErr("free image", CodeStateError)
	}
	if f.AllocSize != expected {
		c.log.Warn("dropping buffer with stale size",
			"alloc", f.AllocSize, "expected", expected)
		return opErr("free image", CodeFreeUnknowBuffer)
	}
	if err := s.arena.release(f.slot-1, f.Data); err != nil {
		c.log.Warn("dropping unknown buffer", "seq", f.Seq)
		return opErr("free image", CodeFreeUnknowBuffer)
	}
	s.stats.checkedOut(-1)
	return nil
}

// AvailableCount reports frames waiting in the output queue.
func (c *Camera) AvailableCount() int {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s == nil {
		return 0
	}
	return s.queue.len()
}

// ClearBuffer flushes all queued frames back to the free list.
// Frames already handed out by Capture are unaffected.
func (c *Camera) ClearBuffer() error {
	s, err := c.session("clear buffer")
	if err != nil {
		return err
	}
	for _, f := range s.queue.takeAll() {
		s.arena.giveBack(f.slot - 1)
	}
	return nil
}

// RegisterCaptureCallback switches the camera to push delivery: the
// producer invokes cb for every frame and reclaims the buffer when cb
// returns, so the frame's data must not be retained. Only one
// callback may be registered; Capture and WaitCapture are rejected
// while one is set.
func (c *Camera) RegisterCaptureCallback(cb CaptureCallback) error {
	if cb == nil {
		return opErr("register capture callback", CodeInvalidArgument)
	}
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	if c.captureCB != nil {
		return opErr("register capture callback", CodeRegisterMultipleCallback)
	}
	c.captureCB = cb
	return nil
}

// ClearCaptureCallback reverts to pull delivery.
func (c *Camera) ClearCaptureCallback() {
	c.cbMu.Lock()
	c.captureCB = nil
	c.cbMu.Unlock()
}

// HasCaptureCallback reports whether push delivery is active.
func (c *Camera) HasCaptureCallback() bool {
	c.cbMu.RLock()
	defer c.cbMu.RUnlock()
	return c.captureCB != nil
}

func (c *Camera) captureCallback() CaptureCallback {
	c.cbMu.RLock()
	defer c.cbMu.RUnlock()
	return c.captureCB
}

// RegisterEventCallback delivers capture-engine events (frame
// markers, transfer faults, device notices) to cb on the event
// goroutine. Only one callback may be registered.
func (c *Camera) RegisterEventCallback(cb EventCallback) error {
	if cb == nil {
		return opErr("register event callback", CodeInvalidArgument)
	}
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	if c.eventCB != nil {
		return opErr("register event callback", CodeRegisterMultipleCallback)
	}
	c.eventCB = cb
	return nil
}

// ClearEventCallback stops event delivery.
func (c *Camera) ClearEventCallback() {
	c.cbMu.Lock()
	c.eventCB = nil
	c.cbMu.Unlock()
}

// HasEventCallback reports whether an event callback is registered.
func (c *Camera) HasEventCallback() bool {
	c.cbMu.RLock()
	defer c.cbMu.RUnlock()
	return c.eventCB != nil
}

func (c *Camera) eventCallback() EventCallback {
	c.cbMu.RLock()
	defer c.cbMu.RUnlock()
	return c.eventCB
}
