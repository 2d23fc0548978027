package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quiltdb/quilt/internal/store"
)

// NewLogCommand creates the log command.
func NewLogCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "log",
		Short:         "Show the operation log in replay order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, _, err := openService(cmd.Context(), opts, newLogger(opts))
			if err != nil {
				return err
			}
			defer rep.Close()

			ops, err := store.ListOps(cmd.Context(), rep.Store().DB())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read op log", err)
			}

			f := newFormatter(opts, cmd)
			if f.Format == "json" {
				out := make([]any, len(ops))
				for i, op := range ops {
					out[i] = map[string]any{
						"id":      op.ID,
						"replica": op.Replica,
						"seq":     op.Seq,
						"table":   op.Table,
						"kind":    string(op.Kind),
					}
				}
				return f.Success(out)
			}
			if len(ops) == 0 {
				return f.Success("empty log")
			}
			var b strings.Builder
			for _, op := range ops {
				fmt.Fprintf(&b, "%4d %-12s %-10s %s %s\n", op.Seq, op.Kind, op.Table, shortID(op.ID), op.Replica)
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
