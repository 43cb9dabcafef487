package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/liftoff/internal/declare"
	"github.com/roach88/liftoff/internal/meet"
	"github.com/roach88/liftoff/internal/ordering"
)

// OrderOptions holds flags for the order command.
type OrderOptions struct {
	*RootOptions
	Database    string
	Competition string
	Lift        string
}

// OrderResult is the attempt order of one lift.
type OrderResult struct {
	CompetitionID string           `json:"competition_id"`
	Lift          meet.Lift        `json:"lift"`
	Entries       []ordering.Entry `json:"entries"`
}

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Print the attempt order of a lift",
		Long: `Compute the attempt order of a lift from stored attempts, weigh-ins and
saved declarations, the same way the live session does.

Example:
  liftoff order --db ./meet.db --competition nats-2026 --lift bench`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Competition, "competition", "", "competition ID (required)")
	cmd.Flags().StringVar(&opts.Lift, "lift", string(meet.LiftSquat), "lift (squat|bench|deadlift)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("competition")

	return cmd
}

func runOrder(opts *OrderOptions, cmd *cobra.Command) error {
	lift, err := meet.ParseLift(opts.Lift)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid lift", err)
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	snap, err := meet.Load(ctx, st, opts.Competition)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load competition", err)
	}
	decls := declare.NewStore()
	if err := decls.Load(ctx, st, opts.Competition); err != nil {
		return WrapExitError(ExitCommandError, "failed to load declarations", err)
	}

	entries := ordering.CalculateAttemptOrder(ordering.BuildRequests(lift, snap, decls), snap.Athletes)
	if entries == nil {
		entries = []ordering.Entry{}
	}
	result := OrderResult{CompetitionID: opts.Competition, Lift: lift, Entries: entries}

	return opts.formatter(cmd).Success(result, func(w io.Writer) {
		if len(entries) == 0 {
			fmt.Fprintf(w, "No attempts left on %s.\n", lift)
			return
		}
		fmt.Fprintf(w, "%s order for %s:\n", lift, opts.Competition)
		for i, e := range entries {
			fmt.Fprintf(w, "%3d. %-28s attempt %d  %7.2fkg  lot %d\n", i+1, e.AthleteName, e.AttemptNumber, e.WeightKg, e.LotNumber)
		}
	})
}
