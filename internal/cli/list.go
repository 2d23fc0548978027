package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quiltdb/quilt/internal/realm"
	"github.com/quiltdb/quilt/internal/record"
)

// NewAddListCommand creates the add-list command.
func NewAddListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "add-list <title>",
		Short:         "Create a new private to-do list",
		Example:       `  quilt --db ./alice.db add-list "Groceries"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, svc, err := openService(cmd.Context(), opts, newLogger(opts))
			if err != nil {
				return err
			}
			defer rep.Close()

			id, err := svc.CreateList(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "failed to create list", err)
			}
			return newFormatter(opts, cmd).Success(id)
		},
	}
}

// NewListsCommand creates the lists command.
func NewListsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "lists",
		Short:         "Show all to-do lists",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, svc, err := openService(cmd.Context(), opts, newLogger(opts))
			if err != nil {
				return err
			}
			defer rep.Close()

			lists, err := svc.Lists(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read lists", err)
			}

			f := newFormatter(opts, cmd)
			if f.Format == "json" {
				return f.Success(toGoSlice(lists))
			}
			if len(lists) == 0 {
				return f.Success("no lists")
			}
			var b strings.Builder
			for _, list := range lists {
				status := "private"
				if realm.IsSharable(list) {
					status = "shared"
				}
				fmt.Fprintf(&b, "%s  %-10s %s\n", list.GetString("id"), status, list.GetString("title"))
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}
}

// toGoSlice converts records to plain maps for JSON encoding.
func toGoSlice(objs []record.Object) []any {
	out := make([]any, len(objs))
	for i, o := range objs {
		out[i] = record.ToGo(o)
	}
	return out
}
