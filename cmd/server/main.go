package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "grc-server",
		Short:        "GRC back-office API",
		SilenceUsage: true,
	}
	root.AddCommand(
		serveCommand(),
		migrateCommand(),
		importFrameworkCommand(),
		scorecardCommand(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
