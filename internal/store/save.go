package store

import (
	"context"
	"fmt"

	"github.com/lotboard/lotboard/internal/auction"
)

// Save writes the whole aggregate in a single transaction.
//
// Counters, the current round, its bid log, and presence are replaced
// wholesale - the aggregate is small and a full rewrite is cheaper to reason
// about than change tracking. History rows are inserted with ON CONFLICT DO
// NOTHING: closed rounds already on disk are never touched, which keeps the
// history append-only at the storage layer too.
//
// Either every table reflects the new aggregate or none does.
func (s *Store) Save(ctx context.Context, st *auction.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save state: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO meta (id, next_seq, next_round_id, last_check_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			next_seq = excluded.next_seq,
			next_round_id = excluded.next_round_id,
			last_check_at = excluded.last_check_at
	`, st.Seq.Peek(), st.NextRoundID, unixNano(st.LastCheckAt))
	if err != nil {
		return fmt.Errorf("save state: write meta: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM current_round`); err != nil {
		return fmt.Errorf("save state: clear current round: %w", err)
	}
	if st.Current != nil {
		cur := st.Current
		_, err = tx.ExecContext(ctx, `
			INSERT INTO current_round
			(id, round_id, item, metadata, start_price, amount, leader_id, leader_name, started_at, last_event_at)
			VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			cur.RoundID,
			cur.Item,
			cur.Metadata,
			cur.StartPrice,
			cur.Amount,
			cur.LeaderID,
			cur.LeaderName,
			unixNano(cur.StartedAt),
			unixNano(cur.LastEventAt),
		)
		if err != nil {
			return fmt.Errorf("save state: write current round: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bid_events`); err != nil {
		return fmt.Errorf("save state: clear bid log: %w", err)
	}
	for _, ev := range st.BidLog {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bid_events
			(seq, ts, participant_id, participant_name, delta, amount_after)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			ev.Seq,
			unixNano(ev.Timestamp),
			ev.ParticipantID,
			ev.ParticipantName,
			ev.Delta,
			ev.AmountAfter,
		)
		if err != nil {
			return fmt.Errorf("save state: write bid event %d: %w", ev.Seq, err)
		}
	}

	for _, h := range st.History {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO history
			(round_id, item, metadata, start_price, winner_name, final_amount, closed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(round_id) DO NOTHING
		`,
			h.RoundID,
			h.Item,
			h.Metadata,
			h.StartPrice,
			h.WinnerName,
			h.FinalAmount,
			unixNano(h.ClosedAt),
		)
		if err != nil {
			return fmt.Errorf("save state: write history round %d: %w", h.RoundID, err)
		}

		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("save state: history rows affected: %w", err)
		}
		if inserted == 0 {
			// Round already persisted; its bids are too.
			continue
		}

		for _, ev := range h.Bids {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO history_bids
				(round_id, seq, ts, participant_id, participant_name, delta, amount_after)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(round_id, seq) DO NOTHING
			`,
				h.RoundID,
				ev.Seq,
				unixNano(ev.Timestamp),
				ev.ParticipantID,
				ev.ParticipantName,
				ev.Delta,
				ev.AmountAfter,
			)
			if err != nil {
				return fmt.Errorf("save state: write history bid %d/%d: %w", h.RoundID, ev.Seq, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM presence`); err != nil {
		return fmt.Errorf("save state: clear presence: %w", err)
	}
	for id, p := range st.Presence {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO presence (participant_id, participant_name, last_seen_at)
			VALUES (?, ?, ?)
		`, id, p.ParticipantName, unixNano(p.LastSeenAt))
		if err != nil {
			return fmt.Errorf("save state: write presence %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save state: commit: %w", err)
	}

	return nil
}
