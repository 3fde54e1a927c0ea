package evk

import (
	"errors"
	"sync"
	"time"
)

var (
	errQueueClosed  = errors.New("queue closed")
	errQueueTimeout = errors.New("queue timeout")
)

// frameQueue is the output side of the exchange: a FIFO of filled
// frames. close poisons the queue so every pending and future wait
// returns immediately, which is how Stop unblocks stuck consumers.
type frameQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frames []Frame
	closed bool
}

func newFrameQueue() *frameQueue {
	q := &frameQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends f and wakes waiters. Reports false once the queue is
// closed; the caller still owns the buffer then.
func (q *frameQueue) push(f Frame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.frames = append(q.frames, f)
	q.cond.Broadcast()
	return true
}

// waitLocked blocks until a frame is queued, the timeout elapses or
// the queue closes. timeout < 0 waits forever, 0 polls. Callers hold
// q.mu.
func (q *frameQueue) waitLocked(timeout time.Duration) error {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for len(q.frames) == 0 {
		if q.closed {
			return errQueueClosed
		}
		if timeout == 0 {
			return errQueueTimeout
		}
		if timeout > 0 {
			remain := time.Until(deadline)
			if remain <= 0 {
				return errQueueTimeout
			}
			// Cond has no deadline wait; a timer broadcast stands in
			// for one. Spurious wakeups re-enter the loop.
			t := time.AfterFunc(remain, q.cond.Broadcast)
			q.cond.Wait()
			t.Stop()
		} else {
			q.cond.Wait()
		}
	}
	return nil
}

// wait is the peek form: it blocks like pop but leaves the frame
// queued.
func (q *frameQueue) wait(timeout time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waitLocked(timeout)
}

// pop removes and returns the oldest frame.
func (q *frameQueue) pop(timeout time.Duration) (Frame, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.waitLocked(timeout); err != nil {
		return Frame{}, err
	}
	return q.removeHead(), nil
}

// popOldest removes the head frame without waiting, for producer
// recycling when the free list runs dry.
func (q *frameQueue) popOldest() (Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.frames) == 0 {
		return Frame{}, false
	}
	return q.removeHead(), true
}

func (q *frameQueue) removeHead() Frame {
	f := q.frames[0]
	q.frames[0] = Frame{}
	q.frames = q.frames[1:]
	if len(q.frames) == 0 {
		q.frames = nil
	}
	return f
}

func (q *frameQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// takeAll empties the queue and returns the removed frames, oldest
// first.
func (q *frameQueue) takeAll() []Frame {
	q.mu.Lock()
	defer q.mu.Unlock()
	frames := q.frames
	q.frames = nil
	return frames
}

func (q *frameQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.frames = nil
	q.cond.Broadcast()
	q.mu.Unlock()
}

// bufferArena owns a session's frame buffers. Slots are either
// available to the producer or checked out (being filled, queued, or
// held by a caller). The arena never grows: a buffer that is not
// returned permanently shrinks the working set, which is exactly the
// leak FreeImage exists to prevent.
type bufferArena struct {
	mu     sync.Mutex
	bufs   [][]byte
	out    []bool // checked out per slot
	free   []int
	closed bool
}

func newBufferArena(count, size int) *bufferArena {
	a := &bufferArena{
		bufs: make([][]byte, count),
		out:  make([]bool, count),
		free: make([]int, 0, count),
	}
	for i := range a.bufs {
		a.bufs[i] = make([]byte, size)
		a.free = append(a.free, i)
	}
	return a
}

// acquire hands the producer a free slot to fill. ok is false when
// every slot is checked out or the arena is closed.
func (a *bufferArena) acquire() (slot int, buf []byte, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || len(a.free) == 0 {
		return 0, nil, false
	}
	slot = a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	a.out[slot] = true
	return slot, a.bufs[slot], true
}

// release returns a checked-out slot whose buffer identity matches
// data. It fails for foreign buffers, out-of-range slots and double
// frees.
func (a *bufferArena) release(slot int, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		// The session is over; the arena memory is gone with it.
		return nil
	}
	if slot < 0 || slot >= len(a.bufs) || !a.out[slot] {
		return errUnknownSlot
	}
	if len(data) == 0 || &a.bufs[slot][0] != &data[0] {
		return errUnknownSlot
	}
	a.out[slot] = false
	a.free = append(a.free, slot)
	return nil
}

// giveBack is the producer-side return path for a slot it acquired but
// did not deliver. No identity ceremony: the producer is trusted.
func (a *bufferArena) giveBack(slot int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || slot < 0 || slot >= len(a.bufs) || !a.out[slot] {
		return
	}
	a.out[slot] = false
	a.free = append(a.free, slot)
}

// buffer returns the full backing slice of a slot the producer
// already holds, for refilling a recycled frame.
func (a *bufferArena) buffer(slot int) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	if slot < 0 || slot >= len(a.bufs) {
		return nil
	}
	return a.bufs[slot]
}

// freeCount reports the number of slots available to the producer.
func (a *bufferArena) freeCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.free)
}

func (a *bufferArena) size() int { return len(a.bufs) }

func (a *bufferArena) close() {
	a.mu.Lock()
	a.closed = true
	a.free = nil
	a.mu.Unlock()
}

var errUnknownSlot = errors.New("buffer does not belong to the arena")
