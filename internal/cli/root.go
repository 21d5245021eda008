// Package cli wires the ferag command tree.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "ferag",
	Short: "Incremental knowledge-graph RAG backend",
	Long: `ferag turns uploaded text into a growing knowledge graph.

Each upload runs a pipeline cycle (extraction, schema induction, merge,
staging) that an owner reviews before it is promoted into the production
dataset.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, workerCmd, mergeCmd, verifyCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
