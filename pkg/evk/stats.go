package evk

import (
	"sync"
	"time"
)

// Stats is a point-in-time view of a capture session.
type Stats struct {
	// Frames and Bytes count everything delivered since Start.
	Frames uint64
	Bytes  uint64
	// Drops counts frames recycled because no free buffer was
	// available.
	Drops uint64
	// Faults counts transfer errors, timeouts and length mismatches.
	Faults uint64
	// Outstanding is the number of buffers currently held by callers.
	Outstanding int
	// Queued is the output queue depth.
	Queued int
	// FPS and Bandwidth are rates over the last completed window.
	FPS       int
	Bandwidth int // bytes per second
}

// captureStats folds producer activity into counters and one-second
// rate windows. It has its own lock so the producer never touches the
// camera mutex.
type captureStats struct {
	mu sync.Mutex

	frames      uint64
	bytes       uint64
	drops       uint64
	faults      uint64
	outstanding int

	winStart  time.Time
	winFrames int
	winBytes  int
	fps       int
	bandwidth int

	now func() time.Time
}

func newCaptureStats() *captureStats {
	return &captureStats{now: time.Now}
}

func (s *captureStats) recordFrame(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	s.bytes += uint64(n)

	now := s.now()
	if s.winStart.IsZero() {
		s.winStart = now
	}
	if elapsed := now.Sub(s.winStart); elapsed >= time.Second {
		secs := elapsed.Seconds()
		s.fps = int(float64(s.winFrames)/secs + 0.5)
		s.bandwidth = int(float64(s.winBytes)/secs + 0.5)
		s.winFrames = 0
		s.winBytes = 0
		s.winStart = now
	}
	s.winFrames++
	s.winBytes += n
}

func (s *captureStats) recordDrop() {
	s.mu.Lock()
	s.drops++
	s.mu.Unlock()
}

func (s *captureStats) recordFault() {
	s.mu.Lock()
	s.faults++
	s.mu.Unlock()
}

func (s *captureStats) checkedOut(delta int) {
	s.mu.Lock()
	s.outstanding += delta
	if s.outstanding < 0 {
		s.outstanding = 0
	}
	s.mu.Unlock()
}

func (s *captureStats) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Frames:      s.frames,
		Bytes:       s.bytes,
		Drops:       s.drops,
		Faults:      s.faults,
		Outstanding: s.outstanding,
		FPS:         s.fps,
		Bandwidth:   s.bandwidth,
	}
}
