package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/FGMEMBERS-SCENERY/terrafs/internal/cmd"
	"github.com/FGMEMBERS-SCENERY/terrafs/internal/logging"
)

func main() {
	defer logging.Sync()
	if err := fang.Execute(context.Background(), cmd.NewRootCmd()); err != nil {
		os.Exit(1)
	}
}
