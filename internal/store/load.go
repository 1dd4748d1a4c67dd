package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lotboard/lotboard/internal/auction"
)

// Load rebuilds the aggregate from disk.
// An empty database yields a fresh aggregate, not an error.
func (s *Store) Load(ctx context.Context) (*auction.State, error) {
	st := auction.NewState()

	var nextSeq, nextRoundID, lastCheckAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT next_seq, next_round_id, last_check_at FROM meta WHERE id = 1
	`).Scan(&nextSeq, &nextRoundID, &lastCheckAt)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: read meta: %w", err)
	}

	st.Seq = auction.NewSequenceAt(nextSeq)
	st.NextRoundID = nextRoundID
	st.LastCheckAt = fromUnixNano(lastCheckAt)

	cur, err := s.loadCurrentRound(ctx)
	if err != nil {
		return nil, err
	}
	st.Current = cur

	st.BidLog, err = s.loadBidLog(ctx)
	if err != nil {
		return nil, err
	}

	st.History, err = s.LoadHistory(ctx)
	if err != nil {
		return nil, err
	}

	st.Presence, err = s.loadPresence(ctx)
	if err != nil {
		return nil, err
	}

	return st, nil
}

// loadCurrentRound returns the active round, or nil when the auction is idle.
func (s *Store) loadCurrentRound(ctx context.Context) (*auction.CurrentRound, error) {
	var cur auction.CurrentRound
	var startedAt, lastEventAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT round_id, item, metadata, start_price, amount, leader_id, leader_name, started_at, last_event_at
		FROM current_round WHERE id = 1
	`).Scan(
		&cur.RoundID, &cur.Item, &cur.Metadata, &cur.StartPrice, &cur.Amount,
		&cur.LeaderID, &cur.LeaderName, &startedAt, &lastEventAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: read current round: %w", err)
	}

	cur.StartedAt = fromUnixNano(startedAt)
	cur.LastEventAt = fromUnixNano(lastEventAt)
	return &cur, nil
}

// loadBidLog returns the active round's events in seq order.
func (s *Store) loadBidLog(ctx context.Context) ([]auction.BidEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, ts, participant_id, participant_name, delta, amount_after
		FROM bid_events
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load state: query bid log: %w", err)
	}
	defer rows.Close()

	events := []auction.BidEvent{}
	for rows.Next() {
		ev, err := scanBidEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load state: iterate bid log: %w", err)
	}

	return events, nil
}

// LoadHistory returns all closed rounds, oldest first, each with its full
// bid log. Also used directly by the history CLI command.
func (s *Store) LoadHistory(ctx context.Context) ([]auction.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT round_id, item, metadata, start_price, winner_name, final_amount, closed_at
		FROM history
		ORDER BY round_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load state: query history: %w", err)
	}
	defer rows.Close()

	history := []auction.HistoryEntry{}
	for rows.Next() {
		var h auction.HistoryEntry
		var closedAt int64
		if err := rows.Scan(
			&h.RoundID, &h.Item, &h.Metadata, &h.StartPrice,
			&h.WinnerName, &h.FinalAmount, &closedAt,
		); err != nil {
			return nil, fmt.Errorf("load state: scan history: %w", err)
		}
		h.ClosedAt = fromUnixNano(closedAt)
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load state: iterate history: %w", err)
	}

	for i := range history {
		bids, err := s.loadHistoryBids(ctx, history[i].RoundID)
		if err != nil {
			return nil, err
		}
		history[i].Bids = bids
	}

	return history, nil
}

// loadHistoryBids returns a closed round's bid log in seq order.
func (s *Store) loadHistoryBids(ctx context.Context, roundID int64) ([]auction.BidEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, ts, participant_id, participant_name, delta, amount_after
		FROM history_bids
		WHERE round_id = ?
		ORDER BY seq ASC
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("load state: query history bids for round %d: %w", roundID, err)
	}
	defer rows.Close()

	bids := []auction.BidEvent{}
	for rows.Next() {
		ev, err := scanBidEvent(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load state: iterate history bids: %w", err)
	}

	return bids, nil
}

// loadPresence returns all persisted presence entries.
func (s *Store) loadPresence(ctx context.Context) (map[string]auction.PresenceEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT participant_id, participant_name, last_seen_at FROM presence
	`)
	if err != nil {
		return nil, fmt.Errorf("load state: query presence: %w", err)
	}
	defer rows.Close()

	presence := make(map[string]auction.PresenceEntry)
	for rows.Next() {
		var id, name string
		var lastSeen int64
		if err := rows.Scan(&id, &name, &lastSeen); err != nil {
			return nil, fmt.Errorf("load state: scan presence: %w", err)
		}
		presence[id] = auction.PresenceEntry{
			ParticipantName: name,
			LastSeenAt:      fromUnixNano(lastSeen),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load state: iterate presence: %w", err)
	}

	return presence, nil
}

// scanBidEvent scans a row from bid_events or history_bids.
func scanBidEvent(rows *sql.Rows) (auction.BidEvent, error) {
	var ev auction.BidEvent
	var ts int64
	if err := rows.Scan(
		&ev.Seq, &ts, &ev.ParticipantID, &ev.ParticipantName, &ev.Delta, &ev.AmountAfter,
	); err != nil {
		return auction.BidEvent{}, fmt.Errorf("load state: scan bid event: %w", err)
	}
	ev.Timestamp = fromUnixNano(ts)
	return ev, nil
}
