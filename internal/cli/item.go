package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewAddItemCommand creates the add-item command.
func NewAddItemCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "add-item <list-id> <title>",
		Short:         "Add an item to a list",
		Example:       `  quilt --db ./alice.db add-item 0192f1f3-list-id "Milk"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, svc, err := openService(cmd.Context(), opts, newLogger(opts))
			if err != nil {
				return err
			}
			defer rep.Close()

			id, err := svc.AddItem(cmd.Context(), args[0], args[1])
			if err != nil {
				return WrapExitError(ExitFailure, "failed to add item", err)
			}
			return newFormatter(opts, cmd).Success(id)
		},
	}
}

// NewDoneCommand creates the done command.
func NewDoneCommand(opts *RootOptions) *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:           "done <item-id>",
		Short:         "Mark an item done (or not done with --undo)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, svc, err := openService(cmd.Context(), opts, newLogger(opts))
			if err != nil {
				return err
			}
			defer rep.Close()

			if err := svc.SetDone(cmd.Context(), args[0], !undo); err != nil {
				return WrapExitError(ExitFailure, "failed to update item", err)
			}
			return newFormatter(opts, cmd).Success(args[0])
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "mark the item not done")
	return cmd
}

// NewItemsCommand creates the items command.
func NewItemsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "items <list-id>",
		Short:         "Show the items of a list",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, svc, err := openService(cmd.Context(), opts, newLogger(opts))
			if err != nil {
				return err
			}
			defer rep.Close()

			items, err := svc.Items(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read items", err)
			}

			f := newFormatter(opts, cmd)
			if f.Format == "json" {
				return f.Success(toGoSlice(items))
			}
			if len(items) == 0 {
				return f.Success("no items")
			}
			var b strings.Builder
			for _, item := range items {
				mark := "[ ]"
				if item.GetBool("done") {
					mark = "[x]"
				}
				fmt.Fprintf(&b, "%s %s  %s\n", mark, item.GetString("id"), item.GetString("title"))
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}
}
