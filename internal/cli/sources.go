package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/retriever-io/retriever/pkg/sources"
)

// newSourcesCmd creates the `sources` command.
// Usage: retriever sources
func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the built-in sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range sources.Names() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}
