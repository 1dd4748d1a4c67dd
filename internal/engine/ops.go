package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/lotboard/lotboard/internal/auction"
)

// StartRoundRequest opens a new round for an item.
type StartRoundRequest struct {
	Item       string
	Metadata   string
	StartPrice int64
	Initiator  auction.Participant
}

// StartRoundResult reports the identifiers assigned to a new round.
type StartRoundResult struct {
	RoundID int64
	Seq     int64
}

// StartRound opens a new round. It fails with RoundAlreadyActive while
// another round is live, unless that round's idle deadline has already
// passed, in which case the old round is closed first.
func (e *Engine) StartRound(ctx context.Context, req StartRoundRequest) (StartRoundResult, error) {
	var res StartRoundResult
	err := e.transact(ctx, func(next *auction.State, now time.Time) error {
		roundID, seq, err := next.StartRound(req.Item, req.Metadata, req.StartPrice, req.Initiator, now)
		if err != nil {
			return err
		}
		next.Touch(req.Initiator.ID, req.Initiator.Name, now, e.cfg.RefreshThrottle)
		res = StartRoundResult{RoundID: roundID, Seq: seq}
		return nil
	})
	if err != nil {
		return StartRoundResult{}, err
	}

	slog.Info("round started",
		"round_id", res.RoundID,
		"seq", res.Seq,
		"item", req.Item,
		"start_price", req.StartPrice,
		"initiator", req.Initiator.Name,
	)
	return res, nil
}

// BidRequest raises the current round's price by Delta.
//
// RoundID is the round the client believes is live. Zero means "whatever
// round is current"; a non-zero mismatch is rejected with RoundMismatch.
type BidRequest struct {
	Delta   int64
	RoundID int64
	Bidder  auction.Participant
}

// BidResult reports the accepted bid's ordering and the price it
// produced.
type BidResult struct {
	Seq    int64
	Amount int64
}

// PlaceBid applies a bid to the current round.
func (e *Engine) PlaceBid(ctx context.Context, req BidRequest) (BidResult, error) {
	var res BidResult
	err := e.transact(ctx, func(next *auction.State, now time.Time) error {
		seq, amount, err := next.PlaceBid(req.Delta, req.RoundID, req.Bidder, e.cfg.Increments, now)
		if err != nil {
			return err
		}
		next.Touch(req.Bidder.ID, req.Bidder.Name, now, e.cfg.RefreshThrottle)
		res = BidResult{Seq: seq, Amount: amount}
		return nil
	})
	if err != nil {
		return BidResult{}, err
	}

	slog.Info("bid placed",
		"seq", res.Seq,
		"amount", res.Amount,
		"delta", req.Delta,
		"bidder", req.Bidder.Name,
	)
	return res, nil
}

// ReadState returns a detached snapshot of the aggregate for the given
// viewer, refreshing the viewer's presence entry.
//
// Housekeeping (idle close and presence sweep) runs at most once per
// check-throttle window. If persisting the housekeeping result fails,
// the last saved aggregate is served unchanged and the next operation
// retries; a read never fails because of the store.
func (e *Engine) ReadState(ctx context.Context, viewer auction.Participant) auction.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	next := e.state.Clone()
	dirty := false

	var closed *auction.HistoryEntry
	var swept int
	if now.Sub(next.LastCheckAt) >= e.cfg.CheckThrottle {
		closed = next.CloseIfIdle(now, e.cfg.IdleTimeout)
		swept = next.SweepPresence(now, e.cfg.PresenceExpiry)
		next.LastCheckAt = now
		dirty = true
	}

	if next.Touch(viewer.ID, viewer.Name, now, e.cfg.RefreshThrottle) {
		dirty = true
	}

	if dirty {
		if err := e.persister.Save(ctx, next); err != nil {
			slog.Error("housekeeping persist failed", "error", err)
			return e.state.Snapshot()
		}
		e.state = next
		if closed != nil {
			logRoundClosed(closed)
		}
		if swept > 0 {
			slog.Debug("presence swept", "removed", swept)
		}
	}

	return e.state.Snapshot()
}
