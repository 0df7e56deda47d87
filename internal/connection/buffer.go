package connection

import "sync"

// frameBuffer is an unbounded FIFO of received frames. The socket read loop
// pushes without ever blocking, so a slow consumer cannot make the venue
// drop us; the ring doubles when it reaches 70% full.
type frameBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ring   []TimestampedMessage
	head   int
	tail   int
	count  int
	closed bool

	peak     int
	totalIn  int64
	totalOut int64
	resizes  int
}

func newFrameBuffer(initialCapacity int) *frameBuffer {
	if initialCapacity < 2 {
		initialCapacity = 2
	}
	b := &frameBuffer{ring: make([]TimestampedMessage, initialCapacity)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// push appends msg. It returns false once the buffer is closed.
func (b *frameBuffer) push(msg TimestampedMessage) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	if (b.count+1)*10 >= len(b.ring)*7 {
		b.grow()
	}

	b.ring[b.tail] = msg
	b.tail = (b.tail + 1) % len(b.ring)
	b.count++
	b.totalIn++
	if b.count > b.peak {
		b.peak = b.count
	}

	b.cond.Signal()
	return true
}

// pop blocks until a frame is available. After close it drains the
// remaining frames, then returns false.
func (b *frameBuffer) pop() (TimestampedMessage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}
	if b.count == 0 {
		return TimestampedMessage{}, false
	}

	msg := b.ring[b.head]
	b.ring[b.head] = TimestampedMessage{}
	b.head = (b.head + 1) % len(b.ring)
	b.count--
	b.totalOut++
	return msg, true
}

// close stops further pushes and wakes all waiters.
func (b *frameBuffer) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

func (b *frameBuffer) stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:       b.count,
		Capacity:    len(b.ring),
		Peak:        b.peak,
		TotalIn:     b.totalIn,
		TotalOut:    b.totalOut,
		ResizeCount: b.resizes,
	}
}

// grow doubles the ring. Must be called with lock held.
func (b *frameBuffer) grow() {
	ring := make([]TimestampedMessage, len(b.ring)*2)
	if b.count > 0 {
		if b.head < b.tail {
			copy(ring, b.ring[b.head:b.tail])
		} else {
			n := copy(ring, b.ring[b.head:])
			copy(ring[n:], b.ring[:b.tail])
		}
	}
	b.ring = ring
	b.head = 0
	b.tail = b.count
	b.resizes++
}
