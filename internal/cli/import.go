package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/liftoff/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
}

// ImportResult summarizes an imported roster.
type ImportResult struct {
	CompetitionID string `json:"competition_id"`
	Athletes      int    `json:"athletes"`
	WeighedIn     int    `json:"weighed_in"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <roster.yaml>",
		Short: "Import a competition roster",
		Long: `Create or update a competition, its athletes and their weigh-ins from a
roster file. Importing the same roster twice leaves the database unchanged.

Example:
  liftoff import --db ./meet.db ./roster.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	roster, err := store.LoadRoster(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load roster", err)
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.ImportRoster(cmd.Context(), roster); err != nil {
		return WrapExitError(ExitCommandError, "failed to import roster", err)
	}

	result := ImportResult{CompetitionID: roster.Competition.ID, Athletes: len(roster.Athletes)}
	for _, e := range roster.Athletes {
		if _, ok := e.WeighIn(); ok {
			result.WeighedIn++
		}
	}
	return opts.formatter(cmd).Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Imported %s: %d athletes, %d weighed in\n", result.CompetitionID, result.Athletes, result.WeighedIn)
	})
}

// openStore opens the database, mapping failures to ExitCommandError.
func openStore(path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
