package main

import (
	"fmt"

	"github.com/bissquit/pagelite/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "pagelite %s\n", version.Version)
			_, _ = fmt.Fprintf(out, "  commit: %s\n", version.GitCommit)
			_, _ = fmt.Fprintf(out, "  built:  %s\n", version.BuildDate)
		},
	}
}
