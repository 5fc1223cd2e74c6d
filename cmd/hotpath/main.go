// Package main provides the hotpath server binary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hotpath-io/hotpath/internal/cli"
	"github.com/hotpath-io/hotpath/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "hotpath",
		Short:         "hotpath - self-profiling HTTP load laboratory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cli.NewServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("hotpath version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}
