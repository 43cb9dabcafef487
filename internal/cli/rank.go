package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/liftoff/internal/meet"
	"github.com/roach88/liftoff/internal/scoring"
)

// RankOptions holds flags for the rank command.
type RankOptions struct {
	*RootOptions
	Database    string
	Competition string
	Absolute    bool
}

// RankResult holds category or absolute rankings; only one is set.
type RankResult struct {
	CompetitionID string             `json:"competition_id"`
	Categories    []scoring.Category `json:"categories,omitempty"`
	Absolute      []scoring.Ranked   `json:"absolute,omitempty"`
}

// NewRankCommand creates the rank command.
func NewRankCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RankOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Print competition results",
		Long: `Rank athletes by total within each gender and weight class, or across
the whole competition by IPF GL points with --absolute.

Example:
  liftoff rank --db ./meet.db --competition nats-2026
  liftoff rank --db ./meet.db --competition nats-2026 --absolute --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Competition, "competition", "", "competition ID (required)")
	cmd.Flags().BoolVar(&opts.Absolute, "absolute", false, "rank across categories by IPF GL points")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("competition")

	return cmd
}

func runRank(opts *RankOptions, cmd *cobra.Command) error {
	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := meet.Load(cmd.Context(), st, opts.Competition)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load competition", err)
	}
	lines := scoring.Summarize(snap)
	f := opts.formatter(cmd)

	if opts.Absolute {
		ranked := scoring.AbsoluteRanking(lines)
		if ranked == nil {
			ranked = []scoring.Ranked{}
		}
		return f.Success(RankResult{CompetitionID: opts.Competition, Absolute: ranked}, func(w io.Writer) {
			fmt.Fprintf(w, "Absolute ranking for %s:\n", opts.Competition)
			for _, r := range ranked {
				writeRanked(w, r)
			}
		})
	}

	categories := scoring.CategoryRanking(lines)
	return f.Success(RankResult{CompetitionID: opts.Competition, Categories: categories}, func(w io.Writer) {
		for i, c := range categories {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s %s\n", c.Gender, c.WeightClass)
			for _, r := range c.Entries {
				writeRanked(w, r)
			}
		}
	})
}

func writeRanked(w io.Writer, r scoring.Ranked) {
	place := "-"
	if r.Rank > 0 {
		place = fmt.Sprintf("%d", r.Rank)
	}
	fmt.Fprintf(w, "%4s  %-28s %7.2f %7.2f %7.2f  total %7.2f  GL %6.2f\n",
		place, r.Name, r.BestSquat, r.BestBench, r.BestDeadlift, r.Total, r.IPFGL)
}
