package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/liftoff/internal/broadcast"
	"github.com/roach88/liftoff/internal/config"
	"github.com/roach88/liftoff/internal/display"
	"github.com/roach88/liftoff/internal/engine"
	"github.com/roach88/liftoff/internal/protest"
	"github.com/roach88/liftoff/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database    string
	ConfigPath  string
	EnvFiles    []string
	Listen      string
	Competition string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the live session and display server",
		Long: `Start the live competition session with its operator API, event stream
and satellite feeds. Events are also written to the broadcast outbox so
displays can catch up after a reconnect.

Settings are read from --config, then LIFTOFF_* environment variables
(seeded from .env when present), then flags.

Example:
  liftoff serve --db ./meet.db --config ./liftoff.yaml
  liftoff serve --db ./meet.db --competition nats-2026 --listen :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to config file")
	cmd.Flags().StringSliceVar(&opts.EnvFiles, "env-file", []string{".env"}, "dotenv files to load")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&opts.Competition, "competition", "", "competition to open at startup (overrides config)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadServeConfig(opts)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, st, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start session", err)
	}
	if err := a.serve(ctx); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

func loadServeConfig(opts *ServeOptions) (config.Config, error) {
	if err := config.LoadEnv(opts.EnvFiles...); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load env file", err)
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if opts.Listen != "" {
		cfg.ListenAddr = opts.Listen
	}
	if opts.Competition != "" {
		cfg.CompetitionID = opts.Competition
	}
	return cfg, nil
}

// app is the wired serve process: one session behind a runner, the display
// server, and the asynchronous publishers fed from the session.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	bus     *broadcast.Bus
	runner  *engine.Runner
	server  *display.Server
	remotes []*broadcast.Remote
}

func newApp(ctx context.Context, cfg config.Config, st *store.Store, logger *slog.Logger) (*app, error) {
	lastSeq, err := st.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("read outbox: %w", err)
	}

	bus := broadcast.NewBus(broadcast.WithHistorySize(cfg.HistorySize))
	remotes := []*broadcast.Remote{
		broadcast.NewRemote(st,
			broadcast.WithBuffer(cfg.SatelliteBuffer),
			broadcast.WithLogger(logger.With("publisher", "outbox")),
		),
	}
	if len(cfg.Satellites) > 0 {
		remotes = append(remotes, broadcast.NewRemote(broadcast.NewHTTPTransport(cfg.Satellites),
			broadcast.WithBuffer(cfg.SatelliteBuffer),
			broadcast.WithLogger(logger.With("publisher", "satellites")),
		))
	}
	publishers := make([]broadcast.Publisher, len(remotes))
	for i, r := range remotes {
		publishers[i] = r
	}

	workflow := protest.New(st,
		protest.WithWindow(cfg.ProtestWindow()),
		protest.WithMinReason(cfg.ProtestMinReason),
	)
	session := engine.New(st, bus,
		engine.WithLogger(logger),
		engine.WithDeclarationRepository(st),
		engine.WithProtests(workflow),
		engine.WithAttemptClock(cfg.AttemptClock()),
		engine.WithSequence(engine.NewClockAt(lastSeq)),
		engine.WithPublishers(publishers...),
	)
	runner := engine.NewRunner(session, engine.WithRunnerLogger(logger))

	logger.Info("session ready",
		"last_seq", lastSeq,
		"satellites", len(cfg.Satellites),
		"attempt_clock", cfg.AttemptClock(),
	)
	return &app{
		cfg:     cfg,
		logger:  logger,
		bus:     bus,
		runner:  runner,
		server:  display.New(runner, bus, display.WithOutbox(st), display.WithLogger(logger)),
		remotes: remotes,
	}, nil
}

// serve runs the session loop and the display server until ctx ends, then
// saves declarations and drains the publishers.
func (a *app) serve(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loopDone := make(chan error, 1)
	go func() { loopDone <- a.runner.Run(loopCtx) }()
	defer a.shutdown(loopCtx, loopDone)

	if id := a.cfg.CompetitionID; id != "" {
		if err := a.runner.Do(ctx, func(ctx context.Context, s *engine.Session) error {
			return s.Open(ctx, id)
		}); err != nil {
			return fmt.Errorf("open competition %s: %w", id, err)
		}
	}
	return a.server.ListenAndServe(ctx, a.cfg.ListenAddr)
}

func (a *app) shutdown(ctx context.Context, loopDone <-chan error) {
	if err := a.runner.Do(ctx, func(ctx context.Context, s *engine.Session) error {
		return s.Close(ctx)
	}); err != nil {
		a.logger.Error("failed to save declarations", "error", err)
	}
	a.runner.Stop()
	if err := <-loopDone; err != nil {
		a.logger.Error("runner stopped with error", "error", err)
	}
	for _, r := range a.remotes {
		r.Close()
		if dropped, failed := r.Stats(); dropped > 0 || failed > 0 {
			a.logger.Warn("undelivered events", "dropped", dropped, "failed", failed)
		}
	}
}
