// Package cli wires the retriever commands. Each command parses flags, builds
// the pieces it needs, and delegates to a testable core function.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/retriever-io/retriever/internal/config"
	"github.com/retriever-io/retriever/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

// NewRootCmd creates the top-level `retriever` command.
func NewRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:   "retriever",
		Short: "Retriever — versioned snapshots of reference datasets, cached locally",
		Long: `retriever resolves the latest version of a reference dataset, downloads it
into a local cache, and prints where it landed. Repeated runs reuse the cache:
a snapshot is fetched again only when the source has published a new version
or --force-refresh asks for it.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := logging.Init(cfg); err != nil {
				return err
			}
			cmd.SetContext(withConfig(cmd.Context(), cfg))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to retriever.toml (default: $XDG_CONFIG_HOME/retriever/retriever.toml)")

	root.AddCommand(newGetCmd())
	root.AddCommand(newPathCmd())
	root.AddCommand(newSourcesCmd())

	return root
}

// Execute runs the root command.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

type configKey struct{}

// withConfig stores the loaded config on the command context so subcommands
// can reach it without package-level state.
func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return &config.Config{}
}

// newHTTPClient is the client handed to every source. Reference datasets run
// to gigabytes, so the timeout bounds the response headers, not the body.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}
}
