// Package cli provides the infraprobe commands.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"
	// Commit is set at build time.
	Commit = "unknown"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "infraprobe",
		Short: "Verify connectivity to provisioned infrastructure",
		Long: "infraprobe checks that the object storage buckets and the cache cluster of a " +
			"deployment environment are reachable and usable, using throwaway test data.",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(NewStorageCmd())
	rootCmd.AddCommand(NewCacheCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the running probe;
// cleanup of probe data still runs.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCmd().ExecuteContext(ctx)
}
