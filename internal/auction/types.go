package auction

import "time"

// Participant identifies the bidder or initiator behind a single call.
// Identity resolution (cookies, sessions) happens outside the core; callers
// pass both fields on every operation.
type Participant struct {
	ID   string
	Name string
}

// CurrentRound is the lot currently open for bidding.
//
// LastEventAt drives idle detection and is taken from the engine clock, not
// from the display timestamps on individual bid events.
type CurrentRound struct {
	RoundID     int64     `json:"round_id"`
	Item        string    `json:"item"`
	Metadata    string    `json:"metadata"`
	StartPrice  int64     `json:"start_price"`
	Amount      int64     `json:"amount"`
	LeaderID    string    `json:"leader_id"`
	LeaderName  string    `json:"leader_name"`
	StartedAt   time.Time `json:"started_at"`
	LastEventAt time.Time `json:"last_event_at"`
}

// BidEvent is one ordered event in a round: either the synthetic zero-delta
// entry appended at round start, or an accepted bid. Immutable once appended.
type BidEvent struct {
	Seq             int64     `json:"seq"`
	Timestamp       time.Time `json:"timestamp"`
	ParticipantID   string    `json:"participant_id"`
	ParticipantName string    `json:"participant_name"`
	Delta           int64     `json:"delta"`
	AmountAfter     int64     `json:"amount_after"`
}

// HistoryEntry is the immutable record written exactly once when a round
// closes. Bids carries the round's full event log, synthetic start included.
type HistoryEntry struct {
	RoundID     int64      `json:"round_id"`
	Item        string     `json:"item"`
	Metadata    string     `json:"metadata"`
	StartPrice  int64      `json:"start_price"`
	WinnerName  string     `json:"winner_name"`
	FinalAmount int64      `json:"final_amount"`
	ClosedAt    time.Time  `json:"closed_at"`
	Bids        []BidEvent `json:"bids"`
}

// PresenceEntry records when a named participant last polled.
type PresenceEntry struct {
	ParticipantName string    `json:"participant_name"`
	LastSeenAt      time.Time `json:"last_seen_at"`
}

// State is the whole auction aggregate. A process owns exactly one State,
// guarded by the engine; see the package comment for the access rules.
type State struct {
	// Seq orders every event across the aggregate's lifetime. Round starts
	// and bids share this one counter.
	Seq Sequence

	// NextRoundID is allocated on round start and never reused.
	NextRoundID int64

	// Current is non-nil exactly while a round is active.
	Current *CurrentRound

	// BidLog holds the current round's events in seq order.
	// Cleared when the round closes.
	BidLog []BidEvent

	// History holds closed rounds, oldest first. Append-only.
	History []HistoryEntry

	// Presence maps participant ID to their last-seen entry.
	Presence map[string]PresenceEntry

	// LastCheckAt gates the shared idle-close / presence-sweep throttle.
	// Housekeeping only; stripped from snapshots.
	LastCheckAt time.Time
}

// NewState creates an empty aggregate: no round, no history, seq starting
// at 1 and round IDs starting at 1.
func NewState() *State {
	return &State{
		Seq:         NewSequence(),
		NextRoundID: 1,
		BidLog:      []BidEvent{},
		History:     []HistoryEntry{},
		Presence:    make(map[string]PresenceEntry),
	}
}

// Clone returns a deep copy of the aggregate. Transactions mutate a clone
// and swap it in only after a successful persist, so a failed transaction
// can never leave the published state half-written.
func (s *State) Clone() *State {
	c := &State{
		Seq:         s.Seq,
		NextRoundID: s.NextRoundID,
		BidLog:      make([]BidEvent, len(s.BidLog)),
		History:     make([]HistoryEntry, len(s.History)),
		Presence:    make(map[string]PresenceEntry, len(s.Presence)),
		LastCheckAt: s.LastCheckAt,
	}
	if s.Current != nil {
		cur := *s.Current
		c.Current = &cur
	}
	copy(c.BidLog, s.BidLog)
	for i, h := range s.History {
		bids := make([]BidEvent, len(h.Bids))
		copy(bids, h.Bids)
		h.Bids = bids
		c.History[i] = h
	}
	for id, p := range s.Presence {
		c.Presence[id] = p
	}
	return c
}

// Snapshot is the externally visible view of the aggregate. It mirrors State
// minus housekeeping fields, with everything deep-copied so readers can hold
// it after their transaction has returned.
type Snapshot struct {
	NextSeq     int64                    `json:"next_seq"`
	NextRoundID int64                    `json:"next_round_id"`
	Current     *CurrentRound            `json:"current"`
	BidLog      []BidEvent               `json:"bid_log"`
	History     []HistoryEntry           `json:"history"`
	Presence    map[string]PresenceEntry `json:"presence"`
}

// Snapshot builds an immutable copy of the aggregate for readers.
func (s *State) Snapshot() Snapshot {
	c := s.Clone()
	return Snapshot{
		NextSeq:     c.Seq.Peek(),
		NextRoundID: c.NextRoundID,
		Current:     c.Current,
		BidLog:      c.BidLog,
		History:     c.History,
		Presence:    c.Presence,
	}
}
