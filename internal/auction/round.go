package auction

import (
	"slices"
	"time"
)

// StartRound opens a new round for the given item.
//
// Fails with ErrCodeRoundAlreadyActive while a round is in progress; at most
// one round is ever active. The new round's amount starts at startPrice and
// the initiator is its first leader, so a round that closes with no real bids
// still has a winner.
//
// A synthetic zero-delta BidEvent is appended as the round's first log entry.
// It anchors the round in the global seq order and records who opened it.
func (s *State) StartRound(item, metadata string, startPrice int64, initiator Participant, now time.Time) (roundID, seq int64, err error) {
	if s.Current != nil {
		return 0, 0, newRoundError(ErrCodeRoundAlreadyActive, s.Current.RoundID,
			"a round is already in progress")
	}
	if item == "" {
		return 0, 0, newError(ErrCodeItemRequired, "item must not be empty")
	}
	if startPrice < 0 {
		return 0, 0, newError(ErrCodeInvalidStartPrice, "start price %d is negative", startPrice)
	}
	if initiator.Name == "" {
		return 0, 0, newError(ErrCodeNameRequired, "initiator has no display name")
	}

	roundID = s.NextRoundID
	s.NextRoundID++
	seq = s.Seq.Next()

	s.Current = &CurrentRound{
		RoundID:     roundID,
		Item:        item,
		Metadata:    metadata,
		StartPrice:  startPrice,
		Amount:      startPrice,
		LeaderID:    initiator.ID,
		LeaderName:  initiator.Name,
		StartedAt:   now,
		LastEventAt: now,
	}
	s.BidLog = []BidEvent{{
		Seq:             seq,
		Timestamp:       now,
		ParticipantID:   initiator.ID,
		ParticipantName: initiator.Name,
		Delta:           0,
		AmountAfter:     startPrice,
	}}

	return roundID, seq, nil
}

// PlaceBid raises the current round's amount by delta and makes the bidder
// the new leader.
//
// Preconditions are checked in order: a round must be active, delta must be
// a member of increments, and a non-zero clientRoundID must match the current
// round. clientRoundID 0 means "unknown" and skips the match - it lets a
// client bid before its first successful state read.
func (s *State) PlaceBid(delta, clientRoundID int64, bidder Participant, increments []int64, now time.Time) (seq, amount int64, err error) {
	if s.Current == nil {
		return 0, 0, newError(ErrCodeNoActiveRound, "no round in progress")
	}
	if !slices.Contains(increments, delta) {
		return 0, 0, newRoundError(ErrCodeInvalidIncrement, s.Current.RoundID,
			"increment %d is not allowed", delta)
	}
	if clientRoundID != 0 && clientRoundID != s.Current.RoundID {
		return 0, 0, newRoundError(ErrCodeRoundMismatch, clientRoundID,
			"bid targets round %d but round %d is current", clientRoundID, s.Current.RoundID)
	}

	s.Current.Amount += delta
	s.Current.LeaderID = bidder.ID
	s.Current.LeaderName = bidder.Name
	s.Current.LastEventAt = now

	seq = s.Seq.Next()
	s.BidLog = append(s.BidLog, BidEvent{
		Seq:             seq,
		Timestamp:       now,
		ParticipantID:   bidder.ID,
		ParticipantName: bidder.Name,
		Delta:           delta,
		AmountAfter:     s.Current.Amount,
	})

	return seq, s.Current.Amount, nil
}

// CloseIfIdle closes the current round when no event has landed for
// idleTimeout or longer, converting it into a HistoryEntry.
//
// Closing is unconditional on idle: a round with no bids beyond the synthetic
// start still closes, with the initiator as winner at the start price.
// Returns nil when no round is active or the round is not yet idle.
func (s *State) CloseIfIdle(now time.Time, idleTimeout time.Duration) *HistoryEntry {
	if s.Current == nil {
		return nil
	}
	if now.Sub(s.Current.LastEventAt) < idleTimeout {
		return nil
	}

	bids := make([]BidEvent, len(s.BidLog))
	copy(bids, s.BidLog)

	entry := HistoryEntry{
		RoundID:     s.Current.RoundID,
		Item:        s.Current.Item,
		Metadata:    s.Current.Metadata,
		StartPrice:  s.Current.StartPrice,
		WinnerName:  s.Current.LeaderName,
		FinalAmount: s.Current.Amount,
		ClosedAt:    now,
		Bids:        bids,
	}
	s.History = append(s.History, entry)
	s.Current = nil
	s.BidLog = []BidEvent{}

	return &entry
}
