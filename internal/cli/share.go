package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewShareCommand creates the share command.
func NewShareCommand(opts *RootOptions) *cobra.Command {
	var (
		name   string
		invite bool
	)

	cmd := &cobra.Command{
		Use:   "share <list-id> <email>",
		Short: "Share a list with another user",
		Long: `Share a list with another user.

A private list is promoted to sharable first: it moves, together with
its items, into the realm tied to its id. The invited user may add
items and toggle the done flag; the list itself stays under the
owner's control.

Example:
  quilt --db ./alice.db share 0192f1f3-list-id bob@example.com --name Bob`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, svc, err := openService(cmd.Context(), opts, newLogger(opts))
			if err != nil {
				return err
			}
			defer rep.Close()

			if err := svc.ShareWith(cmd.Context(), args[0], name, args[1], invite); err != nil {
				return WrapExitError(ExitFailure, "failed to share list", err)
			}
			return newFormatter(opts, cmd).Success(fmt.Sprintf("shared %s with %s", args[0], args[1]))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name for the invited user")
	cmd.Flags().BoolVar(&invite, "invite", false, "request an external invitation on next sync")
	return cmd
}

// NewUnshareCommand creates the unshare command.
func NewUnshareCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unshare <list-id> <email>",
		Short: "Revoke a user's access to a list",
		Long: `Revoke a user's access to a list.

When only the owner remains afterwards, the list automatically reverts
to private: its realm and remaining memberships are removed and the
items move back to the owner's personal realm.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, svc, err := openService(cmd.Context(), opts, newLogger(opts))
			if err != nil {
				return err
			}
			defer rep.Close()

			if err := svc.UnshareWith(cmd.Context(), args[0], args[1]); err != nil {
				return WrapExitError(ExitFailure, "failed to unshare list", err)
			}
			return newFormatter(opts, cmd).Success(fmt.Sprintf("unshared %s from %s", args[0], args[1]))
		},
	}
}

// NewPrivateCommand creates the private command.
func NewPrivateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "private <list-id>",
		Short:         "Make a list private again, revoking all access",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, svc, err := openService(cmd.Context(), opts, newLogger(opts))
			if err != nil {
				return err
			}
			defer rep.Close()

			if err := svc.MakePrivate(cmd.Context(), args[0]); err != nil {
				return WrapExitError(ExitFailure, "failed to make list private", err)
			}
			return newFormatter(opts, cmd).Success(fmt.Sprintf("%s is private", args[0]))
		},
	}
}

// NewMembersCommand creates the members command.
func NewMembersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "members <list-id>",
		Short:         "Show who a list is shared with",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, svc, err := openService(cmd.Context(), opts, newLogger(opts))
			if err != nil {
				return err
			}
			defer rep.Close()

			members, err := svc.Members(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read members", err)
			}

			f := newFormatter(opts, cmd)
			if f.Format == "json" {
				return f.Success(toGoSlice(members))
			}
			if len(members) == 0 {
				return f.Success("not shared")
			}
			var b strings.Builder
			for _, m := range members {
				role := "member"
				if m.GetBool("owner") {
					role = "owner"
				}
				fmt.Fprintf(&b, "%-6s %s\n", role, m.GetString("email"))
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}
}
