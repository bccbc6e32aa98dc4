// Package main is the entry point for the pagelite CLI.
//
// Usage:
//
//	pagelite serve -c config.yaml       # Start the API server
//	pagelite migrate -c config.yaml     # Apply PostgreSQL migrations
//	pagelite pro abc123 [--disable]     # Toggle the Pro tier of a page
//	pagelite list                       # List stored pages
//	pagelite version                    # Show version info
package main

import (
	"os"

	"github.com/bissquit/pagelite/internal/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pagelite",
		Short: "Hosted status pages behind a secret edit link",
		Long: `Pagelite hosts public status pages. Anyone can create a page and manage it
through the secret edit link returned at creation; visitors see the overall
status, components and incidents, and can subscribe to incident emails.

Configuration is read from an optional YAML file and PAGELITE_ environment
variables (PAGELITE_SERVER__PORT=8080).`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newProCmd(), newListCmd(), newVersionCmd())
	return root
}

// loadConfig reads and validates configuration for a command.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra already prints the error
		os.Exit(1)
	}
}
