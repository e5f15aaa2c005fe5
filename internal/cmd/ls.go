package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/FGMEMBERS-SCENERY/terrafs/pkg/cache"
	"github.com/FGMEMBERS-SCENERY/terrafs/pkg/client"
)

// NewLsCmd creates the ls subcommand, a mount-free directory listing.
func NewLsCmd() *cobra.Command {
	var asJSON bool

	lsCmd := &cobra.Command{
		Use:   "ls [PATH]",
		Short: "List a remote scenery directory without mounting",
		Long: `Fetch and print one remote directory's manifest.

PATH is the directory below the server root, defaulting to the root
itself. The listing shows each child's type, size and name in manifest
order; --json prints the parsed manifest structure instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirPath := "/"
			if len(args) == 1 {
				dirPath = args[0]
			}
			if !strings.HasPrefix(dirPath, "/") {
				dirPath = "/" + dirPath
			}
			dirPath = strings.TrimSuffix(dirPath, "/")

			c := client.New(client.Config{
				BaseURL: flagServer,
				Timeout: flagTimeout,
			})
			idx, err := cache.New(c).Lookup(cmd.Context(), dirPath)
			if err != nil {
				return err
			}
			if idx == nil {
				return fmt.Errorf("%s: no manifest published", dirPath+"/"+cache.ManifestName)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(idx)
			}

			for _, e := range idx.Entries {
				if e.IsDir() {
					fmt.Printf("d %10s %s/\n", "-", e.Name)
				} else {
					fmt.Printf("f %10s %s\n", humanize.Bytes(e.Size), e.Name)
				}
			}
			return nil
		},
	}

	lsCmd.Flags().BoolVar(&asJSON, "json", false, "print the parsed manifest as JSON")
	return lsCmd
}
