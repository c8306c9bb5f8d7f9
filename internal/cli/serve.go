package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/fragio/internal/ioserver"
	"github.com/roach88/fragio/internal/journal"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Socket  string
	Listen  string
	Backend string
	DSN     string
	Journal string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the object-storage I/O server",
		Long: `Serve a relational backend to objstore clients over a Unix socket (mode
0600) or TCP. Each client gets its own backend connection. With --journal
every executed statement is recorded per session.

The server runs until SIGINT or SIGTERM.

Examples:
  fragio serve --socket /run/fragio/io.sock
  fragio serve --listen 127.0.0.1:7070 --backend relational:postgres \
    --dsn "host=db user=fragio dbname=odb" --journal ./journal.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Socket, "socket", "", "Unix socket path to listen on")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "TCP host:port to listen on")
	cmd.Flags().StringVar(&opts.Backend, "backend", "", "backend driver identifier (default relational:sqlite3)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "backend DSN")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to the statement journal")
	cmd.MarkFlagsMutuallyExclusive("socket", "listen")

	return cmd
}

// serverConfig merges the daemon section of the config with flags.
func (o *ServeOptions) serverConfig() ioserver.Config {
	cfg := o.Config.DaemonConfig()
	switch {
	case o.Socket != "":
		cfg.Network, cfg.Address = "unix", o.Socket
	case o.Listen != "":
		cfg.Network, cfg.Address = "tcp", o.Listen
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.DSN != "" {
		cfg.Params.DSN = o.DSN
	}
	return cfg
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	cfg := opts.serverConfig()
	cfg.Registry = opts.Registry
	if cfg.Address == "" {
		return NewExitError(ExitCommandError, "one of --socket or --listen is required")
	}

	journalPath := opts.Journal
	if journalPath == "" {
		journalPath = opts.Config.Daemon.Journal
	}
	if journalPath != "" {
		j, err := journal.Open(journalPath)
		if err != nil {
			return out.Fail(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()
		cfg.Journal = j
		slog.Info("journal ready", "path", journalPath)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	srv, err := ioserver.New(ctx, cfg)
	if err != nil {
		return out.Fail(ExitCommandError, "failed to start server", err)
	}
	ln, err := srv.Listen()
	if err != nil {
		if closeErr := srv.Close(); closeErr != nil {
			slog.Warn("backend cleanup failed", "error", closeErr)
		}
		return out.Fail(ExitCommandError, "failed to listen", err)
	}

	if err := srv.Serve(ctx, ln); err != nil {
		return out.Fail(ExitFailure, "server error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
