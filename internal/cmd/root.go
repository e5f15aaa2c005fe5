// Package cmd builds the terrafs command tree: mounting the filesystem
// plus mount-free utilities for poking at a scenery server.
package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/FGMEMBERS-SCENERY/terrafs/internal/logging"
	"github.com/FGMEMBERS-SCENERY/terrafs/pkg/client"
	"github.com/FGMEMBERS-SCENERY/terrafs/version"
)

var (
	flagServer    string
	flagTimeout   time.Duration
	flagLogLevel  string
	flagLogFormat string
)

// NewRootCmd creates the root cobra command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "terrafs",
		Short: "terrafs - mount a TerraSync scenery server as a read-only filesystem",
		Long: `terrafs exposes an HTTP-hosted TerraSync scenery dataset as a mountable
read-only filesystem. Directory listings come from the server's .dirindex
manifests, fetched on demand and cached for the lifetime of the mount;
file contents are fetched in full when a file is opened.

Use subcommands to perform different operations:
  - mount: mount a scenery server at a mountpoint
  - ls: list a remote directory without mounting
  - cat: print a remote file without mounting`,
		Version: version.GetFullVersion(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Init(logging.Config{
				Level:  flagLogLevel,
				Format: flagLogFormat,
			})
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagServer, "server",
		envOr("TERRAFS_SERVER", client.DefaultServerURL),
		"scenery server base URL")
	pf.DurationVar(&flagTimeout, "timeout", client.DefaultTimeout,
		"per-request HTTP timeout")
	pf.StringVar(&flagLogLevel, "log-level",
		envOr("TERRAFS_LOG_LEVEL", "info"),
		"log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format",
		envOr("TERRAFS_LOG_FORMAT", "console"),
		"log format: console, json")

	rootCmd.AddCommand(NewMountCmd())
	rootCmd.AddCommand(NewLsCmd())
	rootCmd.AddCommand(NewCatCmd())

	return rootCmd
}
