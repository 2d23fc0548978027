package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quiltdb/quilt/internal/replica"
)

// NewMergeCommand creates the merge command.
func NewMergeCommand(opts *RootOptions) *cobra.Command {
	var both bool

	cmd := &cobra.Command{
		Use:   "merge <peer-db>",
		Short: "Merge ops from a peer replica database",
		Long: `Import the operation log of a peer replica into this one and rebuild
state from the merged log. Merging is idempotent; running it twice
changes nothing.

With --both, ops flow in both directions and the two replicas end up
with identical state.

Example:
  quilt --db ./alice-phone.db merge ./alice-laptop.db --both`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(opts)
			ctx := cmd.Context()

			rep, _, err := openService(ctx, opts, log)
			if err != nil {
				return err
			}
			defer rep.Close()

			peer, err := replica.Open(ctx, args[0], "", "")
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open peer database", err)
			}
			defer peer.Close()

			res, err := rep.Merge(ctx, peer, log)
			if err != nil {
				return WrapExitError(ExitFailure, "merge failed", err)
			}
			if both {
				if _, err := peer.Merge(ctx, rep, log); err != nil {
					return WrapExitError(ExitFailure, "reverse merge failed", err)
				}
			}
			return newFormatter(opts, cmd).Success(fmt.Sprintf(
				"imported %d ops (%d total)", res.Imported, res.LogSize))
		},
	}

	cmd.Flags().BoolVar(&both, "both", false, "merge in both directions")
	return cmd
}
