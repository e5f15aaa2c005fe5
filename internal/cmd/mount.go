package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FGMEMBERS-SCENERY/terrafs/internal/logging"
	"github.com/FGMEMBERS-SCENERY/terrafs/internal/metrics"
	"github.com/FGMEMBERS-SCENERY/terrafs/pkg/terrafs"
	"github.com/FGMEMBERS-SCENERY/terrafs/version"
)

// NewMountCmd creates the mount subcommand.
func NewMountCmd() *cobra.Command {
	var (
		staticRoot  bool
		verifyHash  bool
		metricsAddr string
		optStrings  []string
	)

	mountCmd := &cobra.Command{
		Use:   "mount MOUNTPOINT",
		Short: "Mount a scenery server as a read-only filesystem",
		Long: `Mount a scenery server at the given mountpoint.

Configuration is taken from flags or, for compatibility with fstab-style
invocation, from mount option strings:

  terrafs mount /mnt/scenery -o server=http://example.org/scenery,staticroot

Options the driver does not recognize are passed through to the FUSE
layer (allow_other, uid=..., and friends).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := mountOptions{Server: flagServer, StaticRoot: &staticRoot}
			for _, spec := range optStrings {
				if err := parseMountOptions(spec, &opts); err != nil {
					return err
				}
			}

			cfg := terrafs.Config{
				ServerURL:  opts.Server,
				StaticRoot: *opts.StaticRoot,
				VerifyHash: verifyHash,
				Timeout:    flagTimeout,
			}
			return runMount(args[0], cfg, metricsAddr, opts.Passthrough)
		},
	}

	mountCmd.Flags().BoolVar(&staticRoot, "staticroot", false,
		"present the four fixed top-level scenery directories instead of the root manifest")
	mountCmd.Flags().BoolVar(&verifyHash, "verify-hash", false,
		"verify fetched file content against manifest hashes")
	mountCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"serve Prometheus metrics on this address (e.g. :9090)")
	mountCmd.Flags().StringArrayVarP(&optStrings, "options", "o", nil,
		"mount options (server=<url>, staticroot, nostaticroot; unknown options go to FUSE)")

	return mountCmd
}

func runMount(mountpoint string, cfg terrafs.Config, metricsAddr string, fuseOpts []string) error {
	fsys := terrafs.New(cfg)

	logging.L().Info("terrafs starting",
		zap.String("version", version.GetVersion()),
		zap.String("server", fsys.Client().BaseURL()),
		zap.String("mountpoint", mountpoint),
		zap.Bool("staticroot", cfg.StaticRoot))

	// Pre-flight: a static root needs no manifest, anything else needs
	// the root manifest to resolve before the kernel starts asking.
	if !cfg.StaticRoot {
		idx, err := fsys.Cache().Lookup(context.Background(), "")
		if err != nil {
			return fmt.Errorf("scenery server unreachable: %w", err)
		}
		if idx == nil {
			logging.L().Warn("server publishes no root manifest; " +
				"mounting anyway, consider --staticroot")
		}
	}

	if metricsAddr != "" {
		metrics.Register(fsys)
		go metrics.Serve(metricsAddr)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logging.L().Info("unmounting on signal", zap.String("signal", sig.String()))
		fsys.Unmount()
	}()

	args := []string{"-o", "ro", "-o", "fsname=terrafs"}
	for _, opt := range fuseOpts {
		args = append(args, "-o", opt)
	}
	if err := fsys.Mount(mountpoint, args); err != nil {
		return err
	}

	snap := fsys.Snapshot()
	logging.L().Info("unmounted",
		zap.Int64("manifest_fetches", snap.Cache.Misses),
		zap.Int64("cache_hits", snap.Cache.Hits),
		zap.Int64("file_fetches", snap.FileFetches),
		zap.String("bytes_fetched", humanize.Bytes(uint64(snap.BytesFetched))),
		zap.Int64("fetch_errors", snap.FetchErrors))
	return nil
}
