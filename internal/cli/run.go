package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dropfarm/internal/api"
	"github.com/roach88/dropfarm/internal/config"
	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/gql"
	"github.com/roach88/dropfarm/internal/notify"
	"github.com/roach88/dropfarm/internal/scheduler"
	"github.com/roach88/dropfarm/internal/session"
	"github.com/roach88/dropfarm/internal/store"
	"github.com/roach88/dropfarm/internal/viewer"
)

const shutdownTimeout = 10 * time.Second

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Database string
	Listen   string

	// Ready, when set, receives the bound control API address.
	Ready chan<- string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the farming daemon",
		Long: `Start the dropfarm daemon.

The daemon opens (or creates) its SQLite database, restores the persisted
farming state, resumes farming when it was running and serves the control
API until interrupted.

Example:
  dropfarm run --config ./dropfarm.yaml
  dropfarm run --db /tmp/dropfarm.db --listen 127.0.0.1:9000 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to YAML config (defaults when empty)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides store.path)")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "control API listen address (overrides server.listen)")

	return cmd
}

// setupLogging installs a text handler on w at the configured level.
func setupLogging(w io.Writer, level string, verbose bool) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lvl,
	})
	slog.SetDefault(slog.New(handler))
}

func runDaemon(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Store.Path = opts.Database
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	setupLogging(cmd.ErrOrStderr(), cfg.Log.Level, opts.Verbose)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("opening database", "path", cfg.Store.Path)
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	client := gql.NewClient(cfg.GraphQLConfig())
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			slog.Warn("error closing graphql client", "error", closeErr)
		}
	}()

	sessOpts := []session.Option{
		session.WithStatic(cfg.SessionStatic()),
		session.WithRetryCooldown(cfg.Session.Retry),
	}
	if cfg.Session.Validate {
		sessOpts = append(sessOpts, session.WithValidator(client))
	}
	sessions := session.NewProvider(st, sessOpts...)

	ticker, err := scheduler.New(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to start scheduler", err)
	}
	defer func() {
		if shutErr := ticker.Shutdown(); shutErr != nil {
			slog.Warn("error stopping scheduler", "error", shutErr)
		}
	}()

	events := notify.NewBroadcaster(notify.DefaultBuffer)
	eng := engine.New(client, sessions, viewer.New(client, sessions, engine.SystemClock()), st,
		engine.WithOptions(cfg.EngineOptions()),
		engine.WithNotifier(notify.Multi{events, notify.Log{}}),
		engine.WithScheduler(ticker),
		engine.WithClaimLog(st),
	)
	if err := eng.Restore(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to restore state", err)
	}

	srv := api.New(eng,
		api.WithSessions(sessions),
		api.WithClaims(st),
		api.WithEvents(events),
		api.WithHealth(st),
	)
	ln, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	addr := ln.Addr().String()
	fmt.Fprintf(cmd.OutOrStdout(), "dropfarm listening on http://%s\n", addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if opts.Ready != nil {
		opts.Ready <- addr
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down", "reason", context.Cause(ctx))
	case err := <-serveErr:
		if err != nil {
			return WrapExitError(ExitFailure, "control api stopped", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("control api shutdown failed", "error", err)
	}

	slog.Info("daemon stopped gracefully")
	return nil
}
