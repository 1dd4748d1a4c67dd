package auction

// Sequence issues strictly increasing integers for event ordering.
//
// Unlike a free-running atomic counter, Sequence is a plain value embedded in
// the aggregate: it is only advanced inside an engine transaction, and a
// transaction that fails to persist discards its scratch copy - counter
// included. Committed seq values therefore have no gaps and never repeat.
type Sequence struct {
	next int64
}

// NewSequence creates a sequence whose first issued value is 1.
func NewSequence() Sequence {
	return Sequence{next: 1}
}

// NewSequenceAt creates a sequence whose next issued value is next.
// Used when restoring a persisted aggregate.
func NewSequenceAt(next int64) Sequence {
	return Sequence{next: next}
}

// Next returns the current counter value and advances it.
func (s *Sequence) Next() int64 {
	v := s.next
	s.next++
	return v
}

// Peek returns the value Next would issue, without advancing.
// Used for persistence and snapshots.
func (s *Sequence) Peek() int64 {
	return s.next
}
