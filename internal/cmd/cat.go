package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FGMEMBERS-SCENERY/terrafs/pkg/client"
)

// NewCatCmd creates the cat subcommand, a mount-free file fetch.
func NewCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat PATH",
		Short: "Print a remote scenery file without mounting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}

			c := client.New(client.Config{
				BaseURL: flagServer,
				Timeout: flagTimeout,
			})
			body, err := c.Get(cmd.Context(), path)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(body)
			return err
		},
	}
}
