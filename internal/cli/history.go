package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lotboard/lotboard/internal/auction"
	"github.com/lotboard/lotboard/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Bids     bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List closed rounds",
		Long: `List every closed round in the order it was archived, with the
winner and final amount. Use --bids to include each round's bid log.

Example:
  lotboard history --db ./lotboard.db
  lotboard history --db ./lotboard.db --bids --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().BoolVar(&opts.Bids, "bids", false, "include each round's bid log")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// historyReport is the inspection payload for the history command.
type historyReport struct {
	Rounds   []auction.HistoryEntry `json:"rounds"`
	withBids bool
}

func (r historyReport) String() string {
	if len(r.Rounds) == 0 {
		return "no closed rounds"
	}

	var b strings.Builder
	for _, entry := range r.Rounds {
		fmt.Fprintf(&b, "round %d: %q -> %s for %d (%d bids, closed %s)\n",
			entry.RoundID, entry.Item, entry.WinnerName, entry.FinalAmount,
			len(entry.Bids), entry.ClosedAt.Format(time.RFC3339))
		if r.withBids {
			for _, ev := range entry.Bids {
				fmt.Fprintf(&b, "  seq=%d %s +%d -> %d\n",
					ev.Seq, ev.ParticipantName, ev.Delta, ev.AmountAfter)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	st, err := store.Open(opts.Database)
	if err != nil {
		return outputError(formatter, ExitCommandError, ErrCodeOpenFailed, "failed to open database", err)
	}
	defer st.Close()

	rounds, err := st.LoadHistory(cmd.Context())
	if err != nil {
		return outputError(formatter, ExitFailure, ErrCodeLoadFailed, "failed to load history", err)
	}

	report := historyReport{Rounds: rounds, withBids: opts.Bids}
	if !opts.Bids {
		// Trim bid logs from JSON output too when not requested.
		for i := range report.Rounds {
			report.Rounds[i].Bids = nil
		}
	}

	return formatter.Success(report)
}
