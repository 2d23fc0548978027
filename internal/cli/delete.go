package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <list-id>",
		Short: "Delete a list and everything attached to it",
		Long: `Delete a list, all of its items, all memberships of its realm, and
the realm itself, in one transaction. Deleting a list that does not
exist is a no-op.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, svc, err := openService(cmd.Context(), opts, newLogger(opts))
			if err != nil {
				return err
			}
			defer rep.Close()

			if err := svc.DeleteList(cmd.Context(), args[0]); err != nil {
				return WrapExitError(ExitFailure, "failed to delete list", err)
			}
			return newFormatter(opts, cmd).Success(fmt.Sprintf("deleted %s", args[0]))
		},
	}
}
