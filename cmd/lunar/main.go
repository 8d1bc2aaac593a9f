// Package main implements the lunar CLI, the LunarMonkeys mission console.
//
// File Index:
//
//	main.go        - rootCmd, global flags, logger setup, main()
//	app.go         - config loading, client/state wiring, metrics endpoint
//	cmd_console.go - interactive console (default command)
//	cmd_probe.go   - probe command
//	cmd_config.go  - config init / show commands
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	backendURL string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lunar",
	Short: "LunarMonkeys - mission control for the lunar primate program",
	Long: `LunarMonkeys tracks the astro-primates of the lunar program and the
discoveries they make, backed by a Manifest backend.

Scientists deploy primates and log discoveries; Observers follow along
read-only.

Run without arguments to start the interactive console.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip logger init for the console (it has its own UI)
		if cmd == cmd.Root() {
			return nil
		}

		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.lunarmonkeys/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend-url", "", "Manifest backend base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(probeCmd, configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
