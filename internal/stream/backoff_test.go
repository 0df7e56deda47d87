package stream

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff_DoublesAndCaps(t *testing.T) {
	b := newBackoff(BackoffConfig{BaseWait: time.Second, MaxWait: 8 * time.Second})

	want := []time.Duration{1, 2, 4, 8, 8, 8}
	for i, w := range want {
		if got := b.next(); got != w*time.Second {
			t.Errorf("next() #%d = %v, want %v", i, got, w*time.Second)
		}
	}

	b.reset()
	if got := b.next(); got != time.Second {
		t.Errorf("next() after reset = %v, want 1s", got)
	}
}

func TestBackoff_Jitter(t *testing.T) {
	tests := []struct {
		name string
		r    float64
		want time.Duration
	}{
		{"low", 0, 500 * time.Millisecond},
		{"middle", 0.5, time.Second},
		{"high", 0.75, 1250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackoff(BackoffConfig{BaseWait: time.Second, MaxWait: time.Minute, Jitter: 0.5})
			b.rand = func() float64 { return tt.r }
			if got := b.next(); got != tt.want {
				t.Errorf("next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBackoff_JitterNeverExceedsCap(t *testing.T) {
	b := newBackoff(BackoffConfig{BaseWait: time.Second, MaxWait: 8 * time.Second, Jitter: 0.5})
	b.rand = func() float64 { return 0.99 }

	// 1s, 2s, 4s, then 8s at the cap; jitter up would give 11.92s.
	for i := 0; i < 8; i++ {
		if got := b.next(); got > 8*time.Second {
			t.Errorf("next() #%d = %v, want <= 8s", i, got)
		}
	}
	if got := b.next(); got != 8*time.Second {
		t.Errorf("next() at cap = %v, want 8s", got)
	}

	b.rand = func() float64 { return 0 }
	if got := b.next(); got != 4*time.Second {
		t.Errorf("next() at cap with low jitter = %v, want 4s", got)
	}
}

func TestBackoff_Defaults(t *testing.T) {
	b := newBackoff(BackoffConfig{MaxWait: time.Millisecond, Jitter: 3})
	if b.cfg.BaseWait != time.Second || b.cfg.MaxWait != time.Second || b.cfg.Jitter != 1 {
		t.Errorf("cfg = %+v", b.cfg)
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	never := func(time.Duration) <-chan time.Time { return nil }
	if err := sleep(ctx, never, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleep() = %v, want context.Canceled", err)
	}
}

func TestSequencer(t *testing.T) {
	s := newSequencer()

	steps := []struct {
		key     string
		seq     int64
		dense   bool
		want    seqResult
		wantGap int64
	}{
		{"a", 10, true, seqFirst, 0},
		{"a", 11, true, seqNext, 0},
		{"a", 11, true, seqDuplicate, 0},
		{"a", 9, true, seqDuplicate, 0},
		{"a", 15, true, seqGap, 3},
		{"b", 100, false, seqFirst, 0},
		{"b", 250, false, seqNext, 0},
		{"b", 250, false, seqDuplicate, 0},
		{"a", 16, true, seqNext, 0},
	}

	for i, st := range steps {
		res, gap := s.observe(st.key, st.seq, st.dense)
		if res != st.want || gap != st.wantGap {
			t.Errorf("step %d observe(%s, %d) = %v, %d; want %v, %d", i, st.key, st.seq, res, gap, st.want, st.wantGap)
		}
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateSubscribing:  "subscribing",
		StateStreaming:    "streaming",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
