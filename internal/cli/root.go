package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
	Config   string
	User     string
	UserName string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the quilt CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "quilt",
		Short: "quilt - offline-first shared to-do lists",
		Long: `An offline-first to-do list database with realm-based sharing.

Each database file is one replica. Replicas edit independently and
merge later; lists can be shared with other users and unshared again.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return applyConfig(opts)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the replica database")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to a YAML config file (default quilt.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.User, "user", "", "acting user id (email)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewAddListCommand(opts))
	cmd.AddCommand(NewListsCommand(opts))
	cmd.AddCommand(NewAddItemCommand(opts))
	cmd.AddCommand(NewDoneCommand(opts))
	cmd.AddCommand(NewItemsCommand(opts))
	cmd.AddCommand(NewShareCommand(opts))
	cmd.AddCommand(NewUnshareCommand(opts))
	cmd.AddCommand(NewPrivateCommand(opts))
	cmd.AddCommand(NewMembersCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewMergeCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
