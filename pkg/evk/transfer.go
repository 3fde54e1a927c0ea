package evk

// Transfer engine configuration. These reshape the USB streaming
// pipeline, so the setters are only legal while no session is running:
// Initialized or Stopped, never Started.

const (
	maxTransferSize  = 512 * 1024
	minTransferCount = 2
	maxTransferCount = 16
)

func (c *Camera) guardTransferLocked(op string) error {
	if c.state != StateInitialized && c.state != StateStopped {
		return opErr(op, CodeStateError)
	}
	return nil
}

// SetTransferConfig pins the USB transfer geometry for the next
// Start, disabling automatic derivation.
func (c *Camera) SetTransferConfig(count, size int) error {
	if count <= 0 || size <= 0 {
		return opErr("set transfer config", CodeInvalidArgument)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardTransferLocked("set transfer config"); err != nil {
		return err
	}
	c.transferCount = count
	c.transferSize = size
	c.autoTransfer = false
	return nil
}

// SetAutoTransferConfig re-enables (or disables) deriving the
// transfer geometry from the frame size at Start.
func (c *Camera) SetAutoTransferConfig(auto bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardTransferLocked("set auto transfer config"); err != nil {
		return err
	}
	c.autoTransfer = auto
	return nil
}

// AutoTransferConfig reports whether Start derives the transfer
// geometry automatically.
func (c *Camera) AutoTransferConfig() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoTransfer
}

// TransferConfig reports the geometry the next Start will use.
func (c *Camera) TransferConfig() (count, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transferConfigLocked()
}

func (c *Camera) transferConfigLocked() (count, size int) {
	if !c.autoTransfer && c.transferCount > 0 && c.transferSize > 0 {
		return c.transferCount, c.transferSize
	}
	return deriveTransfer(c.cfg.ExpectedSize())
}

// deriveTransfer picks transfer geometry for a frame size: 512 KiB
// transfers (or the whole frame when smaller) with enough in flight
// to cover one frame plus headroom.
func deriveTransfer(expected uint32) (count, size int) {
	size = int(expected)
	if size == 0 || size > maxTransferSize {
		size = maxTransferSize
	}
	count = int((int64(expected)+int64(size)-1)/int64(size)) + 1
	if count < minTransferCount {
		count = minTransferCount
	}
	if count > maxTransferCount {
		count = maxTransferCount
	}
	return count, size
}

// SetMemType selects the board-side staging memory for the next
// Start.
func (c *Camera) SetMemType(m MemType) error {
	if m != MemTypeDMA && m != MemTypeRAM {
		return opErr("set mem type", CodeInvalidArgument)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardTransferLocked("set mem type"); err != nil {
		return err
	}
	c.memType = m
	return nil
}

// MemType reports the configured board-side staging memory.
func (c *Camera) MemType() MemType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memType
}

// SetForceCapture controls delivery of frames that arrive with a
// transfer fault: when on, short-but-nonempty frames are delivered
// (with their fault event still posted) instead of dropped. Takes
// effect immediately, including mid-session.
func (c *Camera) SetForceCapture(force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return opErr("set force capture", CodeStateError)
	}
	c.forceCapture.Store(force)
	return nil
}

// ForceCapture reports whether faulted frames are delivered.
func (c *Camera) ForceCapture() bool {
	return c.forceCapture.Load()
}
