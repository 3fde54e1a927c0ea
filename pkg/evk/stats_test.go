package evk

import (
	"testing"
	"time"
)

func TestCaptureStatsCounters(t *testing.T) {
	s := newCaptureStats()
	s.recordFrame(100)
	s.recordFrame(100)
	s.recordDrop()
	s.recordFault()
	s.checkedOut(1)
	s.checkedOut(1)
	s.checkedOut(-1)

	snap := s.snapshot()
	if snap.Frames != 2 || snap.Bytes != 200 {
		t.Errorf("frames/bytes = %d/%d, want 2/200", snap.Frames, snap.Bytes)
	}
	if snap.Drops != 1 || snap.Faults != 1 {
		t.Errorf("drops/faults = %d/%d, want 1/1", snap.Drops, snap.Faults)
	}
	if snap.Outstanding != 1 {
		t.Errorf("outstanding = %d, want 1", snap.Outstanding)
	}
}

func TestCaptureStatsOutstandingFloor(t *testing.T) {
	s := newCaptureStats()
	s.checkedOut(-5)
	if got := s.snapshot().Outstanding; got != 0 {
		t.Errorf("outstanding = %d, want floor at 0", got)
	}
}

func TestCaptureStatsRateWindow(t *testing.T) {
	s := newCaptureStats()
	clock := time.Unix(1000, 0)
	s.now = func() time.Time { return clock }

	// 30 frames of 1000 bytes inside the first second.
	for i := 0; i < 30; i++ {
		s.recordFrame(1000)
		clock = clock.Add(33 * time.Millisecond)
	}
	// The window has not closed yet, so rates are still zero.
	if snap := s.snapshot(); snap.FPS != 0 {
		t.Errorf("fps before window close = %d", snap.FPS)
	}

	// Crossing the one-second boundary folds the window into rates.
	clock = time.Unix(1001, 100e6)
	s.recordFrame(1000)

	snap := s.snapshot()
	if snap.FPS < 25 || snap.FPS > 32 {
		t.Errorf("fps = %d, want ~30", snap.FPS)
	}
	if snap.Bandwidth < 25000 || snap.Bandwidth > 32000 {
		t.Errorf("bandwidth = %d, want ~30000", snap.Bandwidth)
	}
}
