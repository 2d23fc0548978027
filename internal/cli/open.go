package cli

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quiltdb/quilt/internal/replica"
	"github.com/quiltdb/quilt/internal/todo"
	"github.com/quiltdb/quilt/internal/txn"
)

// newLogger builds the command logger. Diagnostics go to stderr so
// JSON output on stdout stays parseable.
func newLogger(opts *RootOptions) zerolog.Logger {
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *Formatter {
	return &Formatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

// openService opens the replica named by --db and builds a service for
// the acting user. The caller must Close the returned replica.
func openService(ctx context.Context, opts *RootOptions, log zerolog.Logger) (*replica.Replica, *todo.Service, error) {
	if opts.Database == "" {
		return nil, nil, NewExitError(ExitCommandError, "no database given (use --db or a config file)")
	}

	rep, err := replica.Open(ctx, opts.Database, opts.User, opts.UserName)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	svc, err := todo.NewService(txn.NewCoordinator(rep),
		todo.Session{UserID: rep.UserID(), UserName: opts.UserName},
		nil, log)
	if err != nil {
		rep.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to create service", err)
	}
	return rep, svc, nil
}
