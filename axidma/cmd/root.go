// Package cmd provides the command-line interface of axidma.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// NewRootCmd creates the axidma command with all its subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "axidma",
		Short: "axidma simulates a DMA engine copying memory over a burst bus.",
		Long: `axidma simulates a DMA engine copying memory over a burst bus ` +
			`with separate address, data, and response channels. Flags can ` +
			`also be given as AXIDMA_* variables in the environment or in a ` +
			`.env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			if err := loadEnvFile(envFile); err != nil {
				return err
			}

			return applyEnv(cmd.Flags())
		},
	}

	rootCmd.PersistentFlags().String("env-file", ".env",
		"File with AXIDMA_* settings, ignored if missing")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newRegsCmd())
	rootCmd.AddCommand(newTraceCmd())

	return rootCmd
}

// Execute runs the root command and exits the process, running the exit
// handlers registered with atexit first.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
