package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lotboard/lotboard/internal/auction"
	"github.com/lotboard/lotboard/internal/engine"
)

// ScenarioEpoch is the fake-clock start time for every scenario run.
// Fixed so traces and goldens are deterministic.
var ScenarioEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// TraceEvent records the outcome of one engine-facing step. Advance
// steps are clock manipulation and leave no trace.
type TraceEvent struct {
	Action  string `json:"action"` // "start_round", "bid", "read"
	Seq     int64  `json:"seq,omitempty"`
	RoundID int64  `json:"round_id,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
	Error   string `json:"error,omitempty"` // error code when rejected
}

// FinalState summarizes the aggregate after the last step.
type FinalState struct {
	NextSeq      int64 `json:"next_seq"`
	NextRoundID  int64 `json:"next_round_id"`
	ActiveRound  int64 `json:"active_round"` // 0 when no round is live
	Amount       int64 `json:"amount,omitempty"`
	ClosedRounds int   `json:"closed_rounds"`
}

// Result is the full outcome of a scenario run.
type Result struct {
	Trace []TraceEvent
	Final FinalState
}

type discardPersister struct{}

func (discardPersister) Save(context.Context, *auction.State) error { return nil }

// Run executes a scenario on a fresh engine with a fake clock.
// A step failing in a way its expect_error doesn't cover aborts the run.
func Run(scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, err
	}

	cfg := engine.Config{
		IdleTimeout: time.Duration(scenario.Config.IdleTimeoutSeconds) * time.Second,
		Increments:  scenario.Config.Increments,
	}
	fc := clockwork.NewFakeClockAt(ScenarioEpoch)
	eng := engine.New(discardPersister{}, nil, cfg, engine.WithClock(fc))

	ctx := context.Background()
	result := &Result{Trace: []TraceEvent{}}

	for i, step := range scenario.Steps {
		switch {
		case step.Advance != "":
			d, _ := time.ParseDuration(step.Advance)
			fc.Advance(d)

		case step.StartRound != nil:
			sr := step.StartRound
			res, err := eng.StartRound(ctx, engine.StartRoundRequest{
				Item:       sr.Item,
				Metadata:   sr.Metadata,
				StartPrice: sr.StartPrice,
				Initiator:  participant(sr.ID, sr.Name),
			})
			ev := TraceEvent{Action: "start_round", Seq: res.Seq, RoundID: res.RoundID}
			if err := checkStepError(i, step, err, &ev); err != nil {
				return nil, err
			}
			result.Trace = append(result.Trace, ev)

		case step.Bid != nil:
			b := step.Bid
			res, err := eng.PlaceBid(ctx, engine.BidRequest{
				Delta:   b.Delta,
				RoundID: b.RoundID,
				Bidder:  participant(b.ID, b.Name),
			})
			ev := TraceEvent{Action: "bid", Seq: res.Seq, Amount: res.Amount}
			if err := checkStepError(i, step, err, &ev); err != nil {
				return nil, err
			}
			result.Trace = append(result.Trace, ev)

		case step.Read != nil:
			eng.ReadState(ctx, participant(step.Read.ID, step.Read.Name))
			result.Trace = append(result.Trace, TraceEvent{Action: "read"})
		}
	}

	snap := eng.ReadState(ctx, auction.Participant{})
	result.Final = FinalState{
		NextSeq:      snap.NextSeq,
		NextRoundID:  snap.NextRoundID,
		ClosedRounds: len(snap.History),
	}
	if snap.Current != nil {
		result.Final.ActiveRound = snap.Current.RoundID
		result.Final.Amount = snap.Current.Amount
	}
	return result, nil
}

func participant(id, name string) auction.Participant {
	if id == "" {
		id = name
	}
	return auction.Participant{ID: id, Name: name}
}

// checkStepError reconciles a step's outcome with its expect_error
// clause, rewriting ev into an error event when a rejection was
// expected and observed.
func checkStepError(i int, step Step, err error, ev *TraceEvent) error {
	if step.ExpectError == "" {
		if err != nil {
			return fmt.Errorf("step %d failed: %w", i+1, err)
		}
		return nil
	}

	if err == nil {
		return fmt.Errorf("step %d succeeded, expected error %s", i+1, step.ExpectError)
	}
	code := string(auction.CodeOf(err))
	if code != step.ExpectError {
		return fmt.Errorf("step %d failed with %s, expected %s", i+1, code, step.ExpectError)
	}
	*ev = TraceEvent{Action: ev.Action, Error: code}
	return nil
}
