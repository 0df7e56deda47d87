package connection

import (
	"strconv"
	"testing"
	"time"
)

func frame(i int) TimestampedMessage {
	return TimestampedMessage{Data: []byte(strconv.Itoa(i))}
}

func TestFrameBuffer_FIFO(t *testing.T) {
	buf := newFrameBuffer(4)

	for i := 0; i < 100; i++ {
		if !buf.push(frame(i)) {
			t.Fatalf("push(%d) returned false", i)
		}
	}

	stats := buf.stats()
	if stats.Count != 100 {
		t.Errorf("Count = %d, want 100", stats.Count)
	}
	if stats.ResizeCount < 3 {
		t.Errorf("ResizeCount = %d, expected at least 3 resizes", stats.ResizeCount)
	}

	for i := 0; i < 100; i++ {
		msg, ok := buf.pop()
		if !ok {
			t.Fatalf("pop() returned false for item %d", i)
		}
		if string(msg.Data) != strconv.Itoa(i) {
			t.Errorf("popped %s, want %d", msg.Data, i)
		}
	}
}

func TestFrameBuffer_GrowWhileWrapped(t *testing.T) {
	buf := newFrameBuffer(10)

	// Move head forward so the ring wraps before it grows.
	for i := 0; i < 5; i++ {
		buf.push(frame(i))
	}
	for i := 0; i < 5; i++ {
		buf.pop()
	}
	for i := 5; i < 20; i++ {
		buf.push(frame(i))
	}

	for i := 5; i < 20; i++ {
		msg, ok := buf.pop()
		if !ok || string(msg.Data) != strconv.Itoa(i) {
			t.Fatalf("pop() = %s, %v; want %d", msg.Data, ok, i)
		}
	}
}

func TestFrameBuffer_BlockingPop(t *testing.T) {
	buf := newFrameBuffer(10)

	received := make(chan string, 1)
	go func() {
		msg, ok := buf.pop()
		if ok {
			received <- string(msg.Data)
		}
	}()

	time.Sleep(10 * time.Millisecond)
	buf.push(frame(42))

	select {
	case got := <-received:
		if got != "42" {
			t.Errorf("received %s, want 42", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for blocked pop")
	}
}

func TestFrameBuffer_CloseDrains(t *testing.T) {
	buf := newFrameBuffer(10)
	buf.push(frame(1))
	buf.push(frame(2))
	buf.close()

	if buf.push(frame(3)) {
		t.Error("push should return false after close")
	}

	for _, want := range []string{"1", "2"} {
		msg, ok := buf.pop()
		if !ok || string(msg.Data) != want {
			t.Errorf("pop() = %s, %v; want %s, true", msg.Data, ok, want)
		}
	}

	if _, ok := buf.pop(); ok {
		t.Error("pop should return false when empty and closed")
	}
}

func TestFrameBuffer_CloseUnblocksPop(t *testing.T) {
	buf := newFrameBuffer(10)

	done := make(chan bool, 1)
	go func() {
		_, ok := buf.pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	buf.close()

	select {
	case ok := <-done:
		if ok {
			t.Error("pop should return false when closed and empty")
		}
	case <-time.After(time.Second):
		t.Fatal("close did not unblock pop")
	}
}

func TestFrameBuffer_Stats(t *testing.T) {
	buf := newFrameBuffer(100)
	for i := 0; i < 5; i++ {
		buf.push(frame(i))
	}
	buf.pop()

	stats := buf.stats()
	if stats.TotalIn != 5 || stats.TotalOut != 1 || stats.Peak != 5 || stats.Count != 4 {
		t.Errorf("stats() = %+v", stats)
	}
}
