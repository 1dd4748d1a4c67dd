package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIncrements = []int64{1, 5, 10, 50, 100}

func testTime(sec int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, sec, 0, time.UTC)
}

func TestStartRound_Basic(t *testing.T) {
	s := NewState()
	now := testTime(0)

	roundID, seq, err := s.StartRound("Player A", "forward", 1, Participant{ID: "u1", Name: "U1"}, now)
	require.NoError(t, err)

	assert.Equal(t, int64(1), roundID)
	assert.Equal(t, int64(1), seq)

	require.NotNil(t, s.Current)
	assert.Equal(t, "Player A", s.Current.Item)
	assert.Equal(t, "forward", s.Current.Metadata)
	assert.Equal(t, int64(1), s.Current.Amount)
	assert.Equal(t, "U1", s.Current.LeaderName)
	assert.Equal(t, now, s.Current.StartedAt)
	assert.Equal(t, now, s.Current.LastEventAt)

	// The synthetic start entry anchors the round in the seq order.
	require.Len(t, s.BidLog, 1)
	assert.Equal(t, int64(1), s.BidLog[0].Seq)
	assert.Equal(t, int64(0), s.BidLog[0].Delta)
	assert.Equal(t, int64(1), s.BidLog[0].AmountAfter)
	assert.Equal(t, "u1", s.BidLog[0].ParticipantID)
}

func TestStartRound_WhileActive(t *testing.T) {
	s := NewState()
	_, _, err := s.StartRound("Player A", "", 1, Participant{ID: "u1", Name: "U1"}, testTime(0))
	require.NoError(t, err)

	before := s.Clone()
	_, _, err = s.StartRound("Player B", "", 5, Participant{ID: "u2", Name: "U2"}, testTime(1))
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeRoundAlreadyActive))

	// Rejected start must not mutate anything.
	assert.Equal(t, before.NextRoundID, s.NextRoundID)
	assert.Equal(t, before.Seq.Peek(), s.Seq.Peek())
	assert.Equal(t, before.Current, s.Current)
	assert.Equal(t, before.BidLog, s.BidLog)
}

func TestStartRound_Validation(t *testing.T) {
	tests := []struct {
		name      string
		item      string
		price     int64
		initiator Participant
		wantCode  ErrorCode
	}{
		{"empty item", "", 1, Participant{ID: "u1", Name: "U1"}, ErrCodeItemRequired},
		{"negative price", "Player A", -1, Participant{ID: "u1", Name: "U1"}, ErrCodeInvalidStartPrice},
		{"no display name", "Player A", 1, Participant{ID: "u1"}, ErrCodeNameRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			_, _, err := s.StartRound(tt.item, "", tt.price, tt.initiator, testTime(0))
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, CodeOf(err))
			assert.Nil(t, s.Current)
			assert.Equal(t, int64(1), s.Seq.Peek(), "no seq may be consumed on rejection")
		})
	}
}

func TestStartRound_ZeroStartPrice(t *testing.T) {
	s := NewState()
	_, _, err := s.StartRound("Player A", "", 0, Participant{ID: "u1", Name: "U1"}, testTime(0))
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.Current.Amount)
}

func TestStartRound_RoundIDsIncrease(t *testing.T) {
	s := NewState()
	now := testTime(0)

	id1, _, err := s.StartRound("A", "", 1, Participant{ID: "u1", Name: "U1"}, now)
	require.NoError(t, err)
	require.NotNil(t, s.CloseIfIdle(now.Add(time.Hour), time.Second))

	id2, _, err := s.StartRound("B", "", 1, Participant{ID: "u1", Name: "U1"}, now.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)
}

func TestPlaceBid_Basic(t *testing.T) {
	s := NewState()
	now := testTime(0)
	_, _, err := s.StartRound("Player A", "", 1, Participant{ID: "u1", Name: "U1"}, now)
	require.NoError(t, err)

	later := testTime(5)
	seq, amount, err := s.PlaceBid(5, 1, Participant{ID: "u2", Name: "U2"}, testIncrements, later)
	require.NoError(t, err)

	assert.Equal(t, int64(2), seq)
	assert.Equal(t, int64(6), amount)
	assert.Equal(t, "U2", s.Current.LeaderName)
	assert.Equal(t, later, s.Current.LastEventAt)

	require.Len(t, s.BidLog, 2)
	assert.Equal(t, int64(5), s.BidLog[1].Delta)
	assert.Equal(t, int64(6), s.BidLog[1].AmountAfter)
}

func TestPlaceBid_NoActiveRound(t *testing.T) {
	s := NewState()
	_, _, err := s.PlaceBid(5, 0, Participant{ID: "u2", Name: "U2"}, testIncrements, testTime(0))
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeNoActiveRound))
}

func TestPlaceBid_InvalidIncrement(t *testing.T) {
	s := NewState()
	_, _, err := s.StartRound("Player A", "", 1, Participant{ID: "u1", Name: "U1"}, testTime(0))
	require.NoError(t, err)

	for _, delta := range []int64{0, -5, 3, 7, 1000} {
		_, _, err := s.PlaceBid(delta, 0, Participant{ID: "u2", Name: "U2"}, testIncrements, testTime(1))
		require.Error(t, err, "delta %d", delta)
		assert.True(t, IsCode(err, ErrCodeInvalidIncrement), "delta %d", delta)
	}
	assert.Equal(t, int64(1), s.Current.Amount, "rejected bids must not move the price")
	assert.Len(t, s.BidLog, 1)
}

func TestPlaceBid_RoundMismatch(t *testing.T) {
	s := NewState()
	_, _, err := s.StartRound("Player A", "", 1, Participant{ID: "u1", Name: "U1"}, testTime(0))
	require.NoError(t, err)

	_, _, err = s.PlaceBid(5, 99, Participant{ID: "u2", Name: "U2"}, testIncrements, testTime(1))
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeRoundMismatch))
}

func TestPlaceBid_SentinelZeroSkipsMatch(t *testing.T) {
	s := NewState()
	_, _, err := s.StartRound("Player A", "", 1, Participant{ID: "u1", Name: "U1"}, testTime(0))
	require.NoError(t, err)

	// A client that has never read state bids with round ID 0.
	_, amount, err := s.PlaceBid(10, 0, Participant{ID: "u2", Name: "U2"}, testIncrements, testTime(1))
	require.NoError(t, err)
	assert.Equal(t, int64(11), amount)
}

func TestPlaceBid_ChecksOrdered(t *testing.T) {
	// Invalid increment must win over round mismatch: checks run in order.
	s := NewState()
	_, _, err := s.StartRound("Player A", "", 1, Participant{ID: "u1", Name: "U1"}, testTime(0))
	require.NoError(t, err)

	_, _, err = s.PlaceBid(3, 99, Participant{ID: "u2", Name: "U2"}, testIncrements, testTime(1))
	assert.True(t, IsCode(err, ErrCodeInvalidIncrement))
}

func TestPlaceBid_AmountNonDecreasing(t *testing.T) {
	s := NewState()
	now := testTime(0)
	_, _, err := s.StartRound("Player A", "", 100, Participant{ID: "u1", Name: "U1"}, now)
	require.NoError(t, err)

	deltas := []int64{1, 100, 5, 50, 10}
	for i, d := range deltas {
		_, _, err := s.PlaceBid(d, 0, Participant{ID: "u2", Name: "U2"}, testIncrements, testTime(i+1))
		require.NoError(t, err)
	}

	var sum int64
	for _, d := range deltas {
		sum += d
	}
	assert.Equal(t, int64(100)+sum, s.Current.Amount)

	// Read back in seq order: amounts never decrease, seqs strictly increase.
	for i := 1; i < len(s.BidLog); i++ {
		assert.Greater(t, s.BidLog[i].Seq, s.BidLog[i-1].Seq)
		assert.GreaterOrEqual(t, s.BidLog[i].AmountAfter, s.BidLog[i-1].AmountAfter)
	}
}

func TestCloseIfIdle_NotYetIdle(t *testing.T) {
	s := NewState()
	now := testTime(0)
	_, _, err := s.StartRound("Player A", "", 1, Participant{ID: "u1", Name: "U1"}, now)
	require.NoError(t, err)

	entry := s.CloseIfIdle(now.Add(29*time.Second), 30*time.Second)
	assert.Nil(t, entry)
	assert.NotNil(t, s.Current)
}

func TestCloseIfIdle_ClosesAtExactTimeout(t *testing.T) {
	s := NewState()
	now := testTime(0)
	_, _, err := s.StartRound("Player A", "", 1, Participant{ID: "u1", Name: "U1"}, now)
	require.NoError(t, err)

	entry := s.CloseIfIdle(now.Add(30*time.Second), 30*time.Second)
	require.NotNil(t, entry)
	assert.Nil(t, s.Current)
	assert.Empty(t, s.BidLog)
}

func TestCloseIfIdle_NoRound(t *testing.T) {
	s := NewState()
	assert.Nil(t, s.CloseIfIdle(testTime(100), time.Second))
}

func TestCloseIfIdle_WinnerAndLog(t *testing.T) {
	s := NewState()
	now := testTime(0)
	_, _, err := s.StartRound("Player A", "defense", 1, Participant{ID: "u1", Name: "U1"}, now)
	require.NoError(t, err)
	_, _, err = s.PlaceBid(5, 0, Participant{ID: "u2", Name: "U2"}, testIncrements, testTime(3))
	require.NoError(t, err)

	preClose := make([]BidEvent, len(s.BidLog))
	copy(preClose, s.BidLog)

	entry := s.CloseIfIdle(testTime(60), 30*time.Second)
	require.NotNil(t, entry)

	assert.Equal(t, int64(1), entry.RoundID)
	assert.Equal(t, "Player A", entry.Item)
	assert.Equal(t, "defense", entry.Metadata)
	assert.Equal(t, int64(1), entry.StartPrice)
	assert.Equal(t, "U2", entry.WinnerName)
	assert.Equal(t, int64(6), entry.FinalAmount)
	assert.Equal(t, preClose, entry.Bids, "history must carry the pre-close bid log")

	require.Len(t, s.History, 1)
	assert.Equal(t, *entry, s.History[0])
}

func TestCloseIfIdle_NoBidsStillCloses(t *testing.T) {
	s := NewState()
	now := testTime(0)
	_, _, err := s.StartRound("Player A", "", 7, Participant{ID: "u1", Name: "U1"}, now)
	require.NoError(t, err)

	entry := s.CloseIfIdle(testTime(60), 30*time.Second)
	require.NotNil(t, entry)
	assert.Equal(t, "U1", entry.WinnerName)
	assert.Equal(t, int64(7), entry.FinalAmount)
	require.Len(t, entry.Bids, 1)
	assert.Equal(t, int64(0), entry.Bids[0].Delta)
}

func TestSeqOrder_SpansRounds(t *testing.T) {
	// Seqs are unique and strictly increasing across the whole aggregate -
	// start events and bids share one counter, across round boundaries.
	s := NewState()
	now := testTime(0)

	_, seq1, err := s.StartRound("A", "", 1, Participant{ID: "u1", Name: "U1"}, now)
	require.NoError(t, err)
	seq2, _, err := s.PlaceBid(5, 0, Participant{ID: "u2", Name: "U2"}, testIncrements, testTime(1))
	require.NoError(t, err)
	require.NotNil(t, s.CloseIfIdle(testTime(120), 30*time.Second))

	_, seq3, err := s.StartRound("B", "", 1, Participant{ID: "u1", Name: "U1"}, testTime(130))
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, []int64{seq1, seq2, seq3})
}

func TestClone_Independent(t *testing.T) {
	s := NewState()
	now := testTime(0)
	_, _, err := s.StartRound("Player A", "", 1, Participant{ID: "u1", Name: "U1"}, now)
	require.NoError(t, err)
	s.Touch("u1", "U1", now, 0)

	c := s.Clone()
	_, _, err = c.PlaceBid(5, 0, Participant{ID: "u2", Name: "U2"}, testIncrements, testTime(1))
	require.NoError(t, err)
	c.Touch("u2", "U2", testTime(1), 0)

	// Original must be untouched by mutations of the clone.
	assert.Equal(t, int64(1), s.Current.Amount)
	assert.Len(t, s.BidLog, 1)
	assert.Len(t, s.Presence, 1)
	assert.Equal(t, int64(2), s.Seq.Peek())

	assert.Equal(t, int64(6), c.Current.Amount)
	assert.Len(t, c.BidLog, 2)
}

func TestSnapshot_StripsHousekeeping(t *testing.T) {
	s := NewState()
	s.LastCheckAt = testTime(10)
	_, _, err := s.StartRound("Player A", "", 1, Participant{ID: "u1", Name: "U1"}, testTime(0))
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, int64(2), snap.NextSeq)
	assert.Equal(t, int64(2), snap.NextRoundID)
	require.NotNil(t, snap.Current)

	// The snapshot is detached from the live aggregate.
	snap.Current.Amount = 999
	snap.BidLog[0].Delta = 999
	assert.Equal(t, int64(1), s.Current.Amount)
	assert.Equal(t, int64(0), s.BidLog[0].Delta)
}
