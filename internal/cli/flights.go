package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/liftoff/internal/config"
	"github.com/roach88/liftoff/internal/flights"
	"github.com/roach88/liftoff/internal/meet"
)

// FlightsOptions holds flags for the flights command.
type FlightsOptions struct {
	*RootOptions
	Database    string
	Competition string
	ConfigPath  string
	Write       bool
}

// FlightsResult is a balanced flight set and its validation report.
type FlightsResult struct {
	CompetitionID string         `json:"competition_id"`
	Written       bool           `json:"written"`
	Flights       []meet.Flight  `json:"flights"`
	Report        flights.Report `json:"report"`
}

// NewFlightsCommand creates the flights command.
func NewFlightsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FlightsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "flights",
		Short: "Balance athletes into flights",
		Long: `Group weighed-in athletes by gender and weight class and split each group
into evenly sized flights. Without --write the result is only printed;
with --write every stored flight of the competition is replaced.

Exit codes:
  0 - Flights are within the size limits
  1 - A flight exceeds the maximum size
  2 - Command error

Example:
  liftoff flights --db ./meet.db --competition nats-2026 --write`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlights(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Competition, "competition", "", "competition ID (required)")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file with flight size limits")
	cmd.Flags().BoolVar(&opts.Write, "write", false, "replace stored flights")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("competition")

	return cmd
}

func runFlights(opts *FlightsOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	fopts := cfg.FlightOptions()

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

	var (
		set    []meet.Flight
		report flights.Report
	)
	if opts.Write {
		set, report, err = flights.Regenerate(ctx, st, opts.Competition, snap, fopts)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to store flights", err)
		}
	} else {
		set = flights.Balance(opts.Competition, snap.Athletes, snap.WeighIns, fopts)
		report = flights.Validate(set, fopts)
	}
	if set == nil {
		set = []meet.Flight{}
	}

	result := FlightsResult{CompetitionID: opts.Competition, Written: opts.Write, Flights: set, Report: report}
	text := func(w io.Writer) {
		for _, f := range set {
			fmt.Fprintf(w, "%-8s %-3s %2d  %s\n", f.Lift, f.Name, len(f.AthleteIDs), strings.Join(f.AthleteIDs, " "))
		}
		for _, issue := range report.Warnings {
			fmt.Fprintf(w, "%s: %s\n", issue.Severity, issue.Message)
		}
	}

	f := opts.formatter(cmd)
	if !report.Valid {
		if err := f.Failure("E_FLIGHT_OVERSIZE", "flight exceeds maximum size", result, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "flight exceeds maximum size")
	}
	return f.Success(result, text)
}
