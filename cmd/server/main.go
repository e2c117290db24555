package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// main hands off to cobra; the serve command wires dependencies and owns the
// process lifecycle. Business logic lives in internal services packages.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "huanbo",
		Short:         "Huanbo Logistics website and contact intake service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the environment")

	root.AddCommand(newServeCmd(&envFile), newStatsCmd(&envFile))
	return root
}
