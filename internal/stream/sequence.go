package stream

// seqResult classifies an observed sequence number.
type seqResult int

const (
	seqFirst seqResult = iota
	seqNext
	seqGap
	seqDuplicate
)

// sequencer tracks the last sequence number per key. It survives reconnects
// so frames replayed by a new connection are recognized.
type sequencer struct {
	last map[string]int64
}

func newSequencer() *sequencer {
	return &sequencer{last: make(map[string]int64)}
}

// observe records seq under key. A number at or below the last one is a
// duplicate and leaves the state unchanged. For dense sequences a jump of
// more than one is a gap; gap reports how many numbers were skipped.
func (s *sequencer) observe(key string, seq int64, dense bool) (res seqResult, gap int64) {
	last, ok := s.last[key]
	if !ok {
		s.last[key] = seq
		return seqFirst, 0
	}

	if seq <= last {
		return seqDuplicate, 0
	}

	s.last[key] = seq
	if dense && seq != last+1 {
		return seqGap, seq - last - 1
	}
	return seqNext, 0
}
