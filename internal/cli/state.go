package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lotboard/lotboard/internal/auction"
	"github.com/lotboard/lotboard/internal/store"
)

// StateOptions holds flags for the state command.
type StateOptions struct {
	*RootOptions
	Database string
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect the stored auction state",
		Long: `Print the auction aggregate as persisted in the database:
counters, the active round with its bid log, and known participants.

Example:
  lotboard state --db ./lotboard.db
  lotboard state --db ./lotboard.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// stateReport is the inspection payload for the state command.
type stateReport struct {
	NextSeq      int64                 `json:"next_seq"`
	NextRoundID  int64                 `json:"next_round_id"`
	Current      *auction.CurrentRound `json:"current"`
	BidLog       []auction.BidEvent    `json:"bid_log"`
	ClosedRounds int                   `json:"closed_rounds"`
	Participants int                   `json:"participants"`
}

func (r stateReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "next seq:      %d\n", r.NextSeq)
	fmt.Fprintf(&b, "next round:    %d\n", r.NextRoundID)
	fmt.Fprintf(&b, "closed rounds: %d\n", r.ClosedRounds)
	fmt.Fprintf(&b, "participants:  %d\n", r.Participants)

	if r.Current == nil {
		b.WriteString("current round: none")
		return b.String()
	}

	fmt.Fprintf(&b, "current round: %d %q amount=%d leader=%s\n",
		r.Current.RoundID, r.Current.Item, r.Current.Amount, r.Current.LeaderName)
	for _, ev := range r.BidLog {
		fmt.Fprintf(&b, "  seq=%d %s +%d -> %d\n",
			ev.Seq, ev.ParticipantName, ev.Delta, ev.AmountAfter)
	}
	return strings.TrimRight(b.String(), "\n")
}

func runState(opts *StateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	st, err := store.Open(opts.Database)
	if err != nil {
		return outputError(formatter, ExitCommandError, ErrCodeOpenFailed, "failed to open database", err)
	}
	defer st.Close()

	state, err := st.Load(cmd.Context())
	if err != nil {
		return outputError(formatter, ExitFailure, ErrCodeLoadFailed, "failed to load state", err)
	}

	return formatter.Success(stateReport{
		NextSeq:      state.Seq.Peek(),
		NextRoundID:  state.NextRoundID,
		Current:      state.Current,
		BidLog:       state.BidLog,
		ClosedRounds: len(state.History),
		Participants: len(state.Presence),
	})
}
