package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a replica database for a user",
		Long: `Initialize a new replica database owned by the given user.

The user id doubles as the user's personal realm id: every list the
user creates starts out private in that realm. Initializing an
existing database is a no-op if the user matches and an error if it
does not.

Example:
  quilt --db ./alice.db --user alice@example.com init`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.User == "" {
				return NewExitError(ExitCommandError, "init requires --user")
			}
			log := newLogger(opts)
			rep, _, err := openService(cmd.Context(), opts, log)
			if err != nil {
				return err
			}
			defer rep.Close()

			return newFormatter(opts, cmd).Success(fmt.Sprintf(
				"initialized %s for %s (replica %s)", opts.Database, rep.UserID(), rep.ID()))
		},
	}

	cmd.Flags().StringVar(&opts.UserName, "name", "", "display name for the user")
	return cmd
}
