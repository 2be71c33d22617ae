package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/retriever-io/retriever/pkg/download"
	"github.com/retriever-io/retriever/pkg/source"
	"github.com/retriever-io/retriever/pkg/sources"
)

// newGetCmd creates the `get` command.
// Usage: retriever get <source> [--from-local] [--force-refresh] [--version X]
func newGetCmd() *cobra.Command {
	var (
		fromLocal    bool
		forceRefresh bool
		silent       bool
		wantVersion  string
		customPath   string
	)

	cmd := &cobra.Command{
		Use:   "get <source>",
		Short: "Fetch a dataset snapshot into the local cache",
		Long: `Resolves the latest version of the named source, downloads it if the cache
does not already hold it, and prints the cached file path(s).

With --from-local the network is never contacted and the newest cached
snapshot is returned. With --force-refresh the snapshot is downloaded even
when the cache is current. With --version a specific release is fetched
instead of the latest (not every source supports this).

A user-defined source is reachable via --custom with a TOML definition file;
the positional argument is then omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := buildSource(cmd, args, customPath, silent)
			if err != nil {
				return err
			}
			policy := source.Policy{FromLocal: fromLocal, ForceRefresh: forceRefresh}
			return runGet(src, wantVersion, policy, silent, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&fromLocal, "from-local", false, "Use the newest cached snapshot; never contact the network")
	cmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "Download even when the cache is current")
	cmd.Flags().StringVar(&wantVersion, "version", "", "Fetch this specific version instead of the latest")
	cmd.Flags().StringVar(&customPath, "custom", "", "TOML definition of a user-defined source")
	cmd.Flags().BoolVarP(&silent, "silent", "s", false, "Print only the resulting path(s)")

	return cmd
}

// buildSource resolves the positional argument or --custom flag to a source.
func buildSource(cmd *cobra.Command, args []string, customPath string, silent bool) (*source.Source, error) {
	cfg := configFrom(cmd)
	opts := sources.Options{DataDir: cfg.DataDir}
	if !silent {
		opts.Progress = stderrProgress()
	}
	client := newHTTPClient()

	if customPath != "" {
		if len(args) != 0 {
			return nil, fmt.Errorf("--custom replaces the source argument; drop %q", args[0])
		}
		def, err := sources.LoadCustom(customPath)
		if err != nil {
			return nil, err
		}
		return def.Source(client, opts), nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("a source name is required (one of: %s)", strings.Join(sources.Names(), ", "))
	}
	constructor, ok := sources.Registry()[args[0]]
	if !ok {
		return nil, fmt.Errorf("unknown source %q (known: %s)", args[0], strings.Join(sources.Names(), ", "))
	}
	return constructor(client, opts), nil
}

// runGet is the testable core of the get command.
func runGet(src *source.Source, wantVersion string, policy source.Policy, silent bool, out io.Writer) error {
	var (
		result source.Result
		err    error
	)
	if wantVersion != "" {
		result, err = src.GetSpecific(wantVersion, policy)
	} else {
		result, err = src.GetLatest(policy)
	}
	if err != nil {
		if policy.FromLocal && source.IsNotFound(err) {
			return fmt.Errorf("no cached data for %s; rerun without --from-local to download it", src.Name)
		}
		return err
	}

	if silent {
		for _, member := range sortedMembers(result.Paths) {
			fmt.Fprintln(out, result.Paths[member])
		}
		return nil
	}

	fmt.Fprintf(out, "📦 %s %s\n", src.Name, result.Version)
	for _, member := range sortedMembers(result.Paths) {
		if member == "" {
			fmt.Fprintf(out, "  ✅ %s\n", result.Paths[member])
		} else {
			fmt.Fprintf(out, "  ✅ %s → %s\n", member, result.Paths[member])
		}
	}
	return nil
}

func sortedMembers(paths map[string]string) []string {
	members := make([]string, 0, len(paths))
	for m := range paths {
		members = append(members, m)
	}
	sort.Strings(members)
	return members
}

// stderrProgress reports download progress on stderr, leaving stdout as the
// machine-readable channel.
func stderrProgress() download.Progress {
	var last int64
	return func(received, total int64) {
		// redraw at most every mebibyte to keep slow terminals usable
		if received-last < 1<<20 && received != total {
			return
		}
		last = received
		if total > 0 {
			fmt.Fprintf(os.Stderr, "\r⬇️  %d / %d bytes", received, total)
		} else {
			fmt.Fprintf(os.Stderr, "\r⬇️  %d bytes", received)
		}
		if received == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}
