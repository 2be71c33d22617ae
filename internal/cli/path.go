package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/retriever-io/retriever/pkg/storage"
)

// newPathCmd creates the `path` command.
// Usage: retriever path [<source>]
func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path [<source>]",
		Short: "Print the cache directory, creating it if needed",
		Long: `Prints the directory retriever caches data in: the base directory when no
source is named, or the named source's subdirectory. The directory is created
when it does not exist, so the output is always usable.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			dir, err := storage.SourceDir(cfg.DataDir, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
