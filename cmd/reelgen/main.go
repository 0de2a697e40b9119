// Command reelgen drives the reel grid from a terminal: spin and watch the
// grid, serve the HTTP API, list stored sessions and verify results.
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

	"github.com/reelgen/reelgen/internal/config"
	"github.com/reelgen/reelgen/internal/engine"
)

// cli holds what PersistentPreRunE prepares for the subcommands.
type cli struct {
	verbose    bool
	configPath string
	envFile    string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "reelgen",
		Short: "Provably fair reel grid generator",
		Long: `reelgen spins a grid of shuffled reels driven by HMAC-SHA256 seeds.

Every spin is reproducible from the server seed, the client seed and the
nonce, so stored sessions can be verified once the server seed is revealed.`,
		Version:       engine.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.envFile, c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg

			zc := zap.NewProductionConfig()
			level, err := zapcore.ParseLevel(cfg.Log.Level)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
			}
			if c.verbose {
				level = zapcore.DebugLevel
			}
			zc.Level = zap.NewAtomicLevelAt(level)
			logger, err := zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file (default $REELGEN_CONFIG)")
	root.PersistentFlags().StringVar(&c.envFile, "env", ".env", "dotenv file loaded before the config")

	root.AddCommand(
		newRunCmd(c),
		newServeCmd(c),
		newVerifyCmd(c),
		newSessionsCmd(c),
		newSeedsCmd(c),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
